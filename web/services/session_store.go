package services

import (
	"os"
	"sync"
	"time"

	"sheet-agent/utils"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

// SessionCleaner releases per-session resources held outside the store.
type SessionCleaner interface {
	CleanupSession(sessionID string)
}

// SessionStore keeps at most MaxSessions live sessions in an LRU. Evicted or
// removed sessions lose their workspace directory and executor binding once
// their current operation finishes.
type SessionStore struct {
	mu           sync.Mutex
	cache        *lru.Cache
	releasing    sync.WaitGroup
	workspaceDir string
	cleaner      SessionCleaner
	logger       *zap.Logger
}

// NewSessionStore builds the store. cleaner may be nil.
func NewSessionStore(size int, workspaceDir string, cleaner SessionCleaner, logger *zap.Logger) (*SessionStore, error) {
	s := &SessionStore{
		workspaceDir: workspaceDir,
		cleaner:      cleaner,
		logger:       logger,
	}
	cache, err := lru.NewWithEvict(size, s.onEvict)
	if err != nil {
		return nil, err
	}
	s.cache = cache
	return s, nil
}

// onEvict runs under the cache lock, so the release waits for the session's
// running operation in its own goroutine.
func (s *SessionStore) onEvict(key, value interface{}) {
	sess, ok := value.(*Session)
	if !ok {
		return
	}
	s.releasing.Add(1)
	go func() {
		defer s.releasing.Done()
		s.release(sess)
	}()
}

func (s *SessionStore) release(sess *Session) {
	// Close blocks until a Submit in flight returns.
	sess.Close()
	if current, ok := s.cache.Peek(sess.ID); ok && current != sess {
		// The id came back as a new session; its workspace is in use.
		s.logger.Debug("Session id reused before release, keeping workspace", zap.String("session_id", sess.ID))
		return
	}
	if s.cleaner != nil {
		s.cleaner.CleanupSession(sess.ID)
	}
	if err := os.RemoveAll(sess.Workspace); err != nil {
		s.logger.Warn("Failed to delete workspace directory",
			zap.Error(err),
			zap.String("path", sess.Workspace),
			zap.String("session_id", sess.ID))
	}
	s.logger.Debug("Session released", zap.String("session_id", sess.ID))
}

// Wait blocks until every evicted or removed session has been released.
func (s *SessionStore) Wait() { s.releasing.Wait() }

// GetOrCreate returns the live session for id, creating it when absent.
func (s *SessionStore) GetOrCreate(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.cache.Get(id); ok {
		return v.(*Session)
	}
	sess := NewSession(id, utils.SessionWorkspace(s.workspaceDir, id))
	if evicted := s.cache.Add(id, sess); evicted {
		s.logger.Info("Session store full, evicted least recently used session")
	}
	return sess
}

// Get returns the session for id without creating one.
func (s *SessionStore) Get(id string) (*Session, bool) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

// Remove deletes a session; its resources are released in the background.
func (s *SessionStore) Remove(id string) bool {
	return s.cache.Remove(id)
}

// IdleSince lists sessions last active before cutoff without touching
// their recency.
func (s *SessionStore) IdleSince(cutoff time.Time) []string {
	var ids []string
	for _, key := range s.cache.Keys() {
		v, ok := s.cache.Peek(key)
		if !ok {
			continue
		}
		if sess := v.(*Session); sess.LastActive().Before(cutoff) {
			ids = append(ids, sess.ID)
		}
	}
	return ids
}

func (s *SessionStore) Len() int { return s.cache.Len() }

// Purge releases every session and waits for the releases to finish.
func (s *SessionStore) Purge() {
	s.cache.Purge()
	s.Wait()
}
