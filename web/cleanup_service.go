package web

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sheet-agent/web/services"

	"go.uber.org/zap"
)

// CleanupService removes idle sessions and workspace directories left over
// from earlier runs.
type CleanupService struct {
	store        *services.SessionStore
	workspaceDir string
	logger       *zap.Logger
}

func NewCleanupService(store *services.SessionStore, workspaceDir string, logger *zap.Logger) *CleanupService {
	return &CleanupService{
		store:        store,
		workspaceDir: workspaceDir,
		logger:       logger,
	}
}

// CleanupStaleSessions releases sessions idle for longer than maxAge and
// returns how many were removed.
func (cs *CleanupService) CleanupStaleSessions(maxAge time.Duration) int {
	cutoffTime := time.Now().Add(-maxAge)

	stale := cs.store.IdleSince(cutoffTime)
	if len(stale) == 0 {
		cs.logger.Debug("No stale sessions found")
		return 0
	}

	cs.logger.Info("Found stale sessions to clean up",
		zap.Int("count", len(stale)),
		zap.Time("cutoff_time", cutoffTime))

	deletedCount := 0
	for _, id := range stale {
		// Remove hands the session to the store's release: workspace and executor binding.
		if cs.store.Remove(id) {
			deletedCount++
		}
	}

	cs.logger.Info("Stale session cleanup completed",
		zap.Int("sessions_deleted", deletedCount),
		zap.Int("sessions_live", cs.store.Len()))
	return deletedCount
}

// CleanupOrphanWorkspaces deletes workspace directories that belong to no
// live session and were last modified before maxAge ago.
func (cs *CleanupService) CleanupOrphanWorkspaces(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(cs.workspaceDir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to list workspaces: %w", err)
	}

	cutoffTime := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, live := cs.store.Get(entry.Name()); live {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoffTime) {
			continue
		}
		path := filepath.Join(cs.workspaceDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			cs.logger.Warn("Failed to delete workspace directory",
				zap.Error(err),
				zap.String("path", path))
			continue
		}
		cs.logger.Debug("Workspace directory deleted", zap.String("path", path))
		removed++
	}
	return removed, nil
}

// Start sweeps every interval until ctx is done.
func (cs *CleanupService) Start(ctx context.Context, interval, maxAge time.Duration) {
	if interval <= 0 {
		cs.logger.Warn("Cleanup interval not positive, cleanup disabled", zap.Duration("interval", interval))
		return
	}
	cs.logger.Info("Starting session cleanup",
		zap.Duration("interval", interval),
		zap.Duration("max_age", maxAge))

	sweep := func() {
		cs.CleanupStaleSessions(maxAge)
		if n, err := cs.CleanupOrphanWorkspaces(maxAge); err != nil {
			cs.logger.Error("Orphan workspace cleanup failed", zap.Error(err))
		} else if n > 0 {
			cs.logger.Info("Removed orphan workspaces", zap.Int("count", n))
		}
	}
	sweep()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sweep()
		case <-ctx.Done():
			cs.logger.Info("Session cleanup stopped")
			return
		}
	}
}
