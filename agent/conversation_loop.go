package agent

import (
	"errors"
	"fmt"

	"sheet-agent/config"

	"go.uber.org/zap"
)

var (
	// ErrIterationLimit is returned when the model has not produced a final
	// answer within MaxIterations calls.
	ErrIterationLimit = errors.New("agent stopped: iteration limit reached without a final answer")

	// ErrTooManyToolErrors is returned after ConsecutiveErrors failed code
	// executions in a row.
	ErrTooManyToolErrors = errors.New("agent stopped: too many consecutive code execution errors")
)

// ConversationLoop manages the agent's turn loop, error tracking, and breaking conditions.
type ConversationLoop struct {
	cfg               *config.Config
	consecutiveErrors int
	logger            *zap.Logger
}

// NewConversationLoop creates a new conversation loop instance.
func NewConversationLoop(cfg *config.Config, logger *zap.Logger) *ConversationLoop {
	return &ConversationLoop{
		cfg:    cfg,
		logger: logger,
	}
}

// Check reports whether turn may run. turn is zero based, so a cap of 10
// allows turns 0 through 9.
func (c *ConversationLoop) Check(turn int) error {
	if c.consecutiveErrors >= c.cfg.ConsecutiveErrors {
		c.logger.Warn("Agent produced consecutive execution errors, stopping",
			zap.Int("consecutive_errors", c.consecutiveErrors))
		return fmt.Errorf("%w (%d)", ErrTooManyToolErrors, c.consecutiveErrors)
	}
	if turn >= c.cfg.MaxIterations {
		c.logger.Info("Reached maximum iterations",
			zap.Int("max_iterations", c.cfg.MaxIterations))
		return fmt.Errorf("%w (%d)", ErrIterationLimit, c.cfg.MaxIterations)
	}
	return nil
}

// RecordError increments the consecutive error counter.
func (c *ConversationLoop) RecordError() {
	c.consecutiveErrors++
	c.logger.Debug("Recorded execution error",
		zap.Int("consecutive_errors", c.consecutiveErrors))
}

// RecordSuccess resets the consecutive error counter.
func (c *ConversationLoop) RecordSuccess() {
	c.consecutiveErrors = 0
}
