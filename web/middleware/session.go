package middleware

import (
	"sheet-agent/web/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const SessionCookieName = "sheet_agent_session"
const CookieMaxAge = 24 * 60 * 60 // 1 day

// SessionMiddleware binds each request to a live session. A missing or
// unparsable cookie starts a fresh session instead of failing the request.
func SessionMiddleware(store *services.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var sessionID uuid.UUID
		cookie, err := c.Cookie(SessionCookieName)
		if err == nil {
			sessionID, err = uuid.Parse(cookie)
		}
		if err != nil {
			sessionID = uuid.New()
			c.SetCookie(SessionCookieName, sessionID.String(), CookieMaxAge, "/", "", false, true)
		}

		sess := store.GetOrCreate(sessionID.String())
		sess.Touch()

		c.Set("sessionID", sessionID)
		c.Set("session", sess)
		c.Next()
	}
}

// CurrentSession returns the session bound by SessionMiddleware.
func CurrentSession(c *gin.Context) (*services.Session, bool) {
	v, ok := c.Get("session")
	if !ok {
		return nil, false
	}
	sess, ok := v.(*services.Session)
	return sess, ok
}
