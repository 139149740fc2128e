package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sheet-agent/web/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newStore(t *testing.T) *services.SessionStore {
	t.Helper()
	store, err := services.NewSessionStore(8, t.TempDir(), nil, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func sessionRouter(store *services.SessionStore) *gin.Engine {
	r := gin.New()
	r.Use(SessionMiddleware(store))
	r.GET("/", func(c *gin.Context) {
		sess, ok := CurrentSession(c)
		if !ok {
			c.String(http.StatusInternalServerError, "no session")
			return
		}
		c.String(http.StatusOK, sess.ID)
	})
	return r
}

func TestSessionMiddlewareIssuesCookie(t *testing.T) {
	store := newStore(t)
	r := sessionRouter(store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != SessionCookieName {
		t.Fatalf("cookies = %v", cookies)
	}
	if _, err := uuid.Parse(cookies[0].Value); err != nil {
		t.Errorf("cookie value %q is not a uuid", cookies[0].Value)
	}
	if w.Body.String() != cookies[0].Value {
		t.Errorf("session id %q does not match cookie %q", w.Body.String(), cookies[0].Value)
	}
	if store.Len() != 1 {
		t.Errorf("store.Len = %d, want 1", store.Len())
	}
}

func TestSessionMiddlewareReusesCookie(t *testing.T) {
	store := newStore(t)
	r := sessionRouter(store)
	id := uuid.New().String()

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: id})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Body.String() != id {
			t.Fatalf("session = %q, want %q", w.Body.String(), id)
		}
		if len(w.Result().Cookies()) != 0 {
			t.Errorf("unexpected new cookie on request %d", i)
		}
	}
	if store.Len() != 1 {
		t.Errorf("store.Len = %d, want 1", store.Len())
	}
}

func TestSessionMiddlewareReplacesInvalidCookie(t *testing.T) {
	r := sessionRouter(newStore(t))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "not-a-uuid"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if cookies := w.Result().Cookies(); len(cookies) != 1 || cookies[0].Value == "not-a-uuid" {
		t.Errorf("cookies = %v, want a fresh session cookie", cookies)
	}
}

func limitedRouter(limiter *SessionRateLimiter, limitType string, id uuid.UUID) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("sessionID", id)
		c.Next()
	})
	r.POST("/", RateLimitMiddleware(limiter, limitType), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestRateLimitQuestions(t *testing.T) {
	limiter := NewSessionRateLimiter(RateLimiterConfig{QuestionsPerMinute: 1, BurstSize: 2}, zap.NewNop())
	defer limiter.Stop()
	r := limitedRouter(limiter, LimitQuestion, uuid.New())

	codes := make([]int, 3)
	for i := range codes {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
		codes[i] = w.Code
		if i == 2 && w.Header().Get("Retry-After") != "60" {
			t.Errorf("Retry-After = %q", w.Header().Get("Retry-After"))
		}
	}
	want := []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("request %d status = %d, want %d", i, codes[i], want[i])
		}
	}
}

func TestRateLimitIsPerSession(t *testing.T) {
	limiter := NewSessionRateLimiter(RateLimiterConfig{FilesPerHour: 1}, zap.NewNop())
	defer limiter.Stop()

	for _, id := range []uuid.UUID{uuid.New(), uuid.New()} {
		w := httptest.NewRecorder()
		limitedRouter(limiter, LimitFile, id).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
		if w.Code != http.StatusNoContent {
			t.Errorf("first upload for %s got %d", id, w.Code)
		}
	}
}

func TestRateLimitDisabled(t *testing.T) {
	limiter := NewSessionRateLimiter(RateLimiterConfig{}, zap.NewNop())
	defer limiter.Stop()
	r := limitedRouter(limiter, LimitQuestion, uuid.New())
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
		if w.Code != http.StatusNoContent {
			t.Fatalf("request %d status = %d", i, w.Code)
		}
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	limiter := NewSessionRateLimiter(RateLimiterConfig{QuestionsPerMinute: 5, FilesPerHour: 5}, zap.NewNop())
	defer limiter.Stop()
	id := uuid.New()
	limiter.AllowQuestion(id)
	limiter.AllowFile(id)

	if n := limiter.cleanup(time.Now().Add(-time.Minute)); n != 0 {
		t.Errorf("cleanup removed %d fresh buckets", n)
	}
	if n := limiter.cleanup(time.Now().Add(time.Minute)); n != 2 {
		t.Errorf("cleanup removed %d, want 2", n)
	}
}
