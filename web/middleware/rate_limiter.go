package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	LimitQuestion = "question"
	LimitFile     = "file"
)

// RateLimiterConfig holds configuration for rate limiting
type RateLimiterConfig struct {
	QuestionsPerMinute int           // Max questions per session per minute
	FilesPerHour       int           // Max uploads per session per hour
	BurstSize          int           // Questions allowed back to back
	CleanupInterval    time.Duration // How often idle buckets are dropped
	IdleTTL            time.Duration // Buckets untouched this long are dropped
}

// TokenBucket implements a token bucket rate limiter
type TokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a full bucket.
func NewTokenBucket(maxTokens float64, refillRate float64) *TokenBucket {
	return &TokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow consumes a token if one is available.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked(time.Now())
	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}
	return false
}

// Remaining returns the whole tokens currently available.
func (tb *TokenBucket) Remaining() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	elapsed := time.Since(tb.lastRefill).Seconds()
	return int(min(tb.maxTokens, tb.tokens+elapsed*tb.refillRate))
}

func (tb *TokenBucket) lastUsed() time.Time {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.lastRefill
}

func (tb *TokenBucket) refillLocked(now time.Time) {
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens = min(tb.maxTokens, tb.tokens+elapsed*tb.refillRate)
	tb.lastRefill = now
}

// SessionRateLimiter keeps one question bucket and one upload bucket per
// session.
type SessionRateLimiter struct {
	config         RateLimiterConfig
	questionLimits map[uuid.UUID]*TokenBucket
	fileLimits     map[uuid.UUID]*TokenBucket
	mu             sync.Mutex
	logger         *zap.Logger
	stopCleanup    chan struct{}
	stopOnce       sync.Once
}

// NewSessionRateLimiter starts the cleanup goroutine when
// CleanupInterval is positive. Call Stop to end it.
func NewSessionRateLimiter(config RateLimiterConfig, logger *zap.Logger) *SessionRateLimiter {
	if config.BurstSize <= 0 {
		config.BurstSize = 1
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = time.Hour
	}
	limiter := &SessionRateLimiter{
		config:         config,
		questionLimits: make(map[uuid.UUID]*TokenBucket),
		fileLimits:     make(map[uuid.UUID]*TokenBucket),
		logger:         logger,
		stopCleanup:    make(chan struct{}),
	}
	if config.CleanupInterval > 0 {
		go limiter.cleanupRoutine()
	}
	return limiter
}

func (srl *SessionRateLimiter) cleanupRoutine() {
	ticker := time.NewTicker(srl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			srl.cleanup(time.Now().Add(-srl.config.IdleTTL))
		case <-srl.stopCleanup:
			return
		}
	}
}

// cleanup drops buckets last used before cutoff.
func (srl *SessionRateLimiter) cleanup(cutoff time.Time) int {
	srl.mu.Lock()
	defer srl.mu.Unlock()

	removed := 0
	for _, limits := range []map[uuid.UUID]*TokenBucket{srl.questionLimits, srl.fileLimits} {
		for id, bucket := range limits {
			if bucket.lastUsed().Before(cutoff) {
				delete(limits, id)
				removed++
			}
		}
	}
	if removed > 0 {
		srl.logger.Debug("Dropped idle rate limit buckets", zap.Int("count", removed))
	}
	return removed
}

// Stop ends the cleanup routine.
func (srl *SessionRateLimiter) Stop() {
	srl.stopOnce.Do(func() { close(srl.stopCleanup) })
}

func (srl *SessionRateLimiter) bucket(limits map[uuid.UUID]*TokenBucket, id uuid.UUID, size, perSecond float64) *TokenBucket {
	srl.mu.Lock()
	defer srl.mu.Unlock()
	b, ok := limits[id]
	if !ok {
		b = NewTokenBucket(size, perSecond)
		limits[id] = b
	}
	return b
}

func (srl *SessionRateLimiter) questionBucket(id uuid.UUID) *TokenBucket {
	return srl.bucket(srl.questionLimits, id,
		float64(srl.config.BurstSize), float64(srl.config.QuestionsPerMinute)/60.0)
}

func (srl *SessionRateLimiter) fileBucket(id uuid.UUID) *TokenBucket {
	return srl.bucket(srl.fileLimits, id,
		float64(srl.config.FilesPerHour), float64(srl.config.FilesPerHour)/3600.0)
}

// AllowQuestion reports whether the session may submit another question.
func (srl *SessionRateLimiter) AllowQuestion(sessionID uuid.UUID) bool {
	return srl.questionBucket(sessionID).Allow()
}

// AllowFile reports whether the session may upload another file.
func (srl *SessionRateLimiter) AllowFile(sessionID uuid.UUID) bool {
	return srl.fileBucket(sessionID).Allow()
}

// RateLimitMiddleware rejects requests over the session's limit of the
// given type with 429. A non-positive configured rate disables the limit.
func RateLimitMiddleware(limiter *SessionRateLimiter, limitType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionIDValue, exists := c.Get("sessionID")
		if !exists {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session not initialized"})
			return
		}
		sessionID := sessionIDValue.(uuid.UUID)

		var bucket *TokenBucket
		var limit int
		switch limitType {
		case LimitQuestion:
			if limiter.config.QuestionsPerMinute <= 0 {
				c.Next()
				return
			}
			bucket, limit = limiter.questionBucket(sessionID), limiter.config.BurstSize
		case LimitFile:
			if limiter.config.FilesPerHour <= 0 {
				c.Next()
				return
			}
			bucket, limit = limiter.fileBucket(sessionID), limiter.config.FilesPerHour
		default:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "unknown limit type"})
			return
		}

		allowed := bucket.Allow()
		remaining := bucket.Remaining()
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			logger, _ := c.Get("logger")
			if zapLogger, _ := logger.(*zap.Logger); zapLogger != nil {
				zapLogger.Warn("Rate limit exceeded",
					zap.String("session_id", sessionID.String()),
					zap.String("limit_type", limitType),
					zap.Int("limit", limit))
			}
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"limit":       limit,
				"remaining":   remaining,
				"retry_after": 60,
			})
			return
		}

		c.Next()
	}
}
