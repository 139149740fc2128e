package agent

import (
	"context"
	"strings"

	"sheet-agent/tools"

	"go.uber.org/zap"
)

// maxObservationChars bounds the executor output fed back to the model.
const maxObservationChars = 4000

const executionDisabled = "Code execution is disabled. Answer using the dataframe description you were given."

// Executor runs pandas code against a session's df.
type Executor interface {
	InitializeSession(ctx context.Context, sessionID, csvPath string) (string, error)
	Run(ctx context.Context, sessionID, code string) (string, error)
	CleanupSession(sessionID string)
}

// ExecutionCoordinator handles Python code detection, execution, and result processing.
type ExecutionCoordinator struct {
	executor Executor
	logger   *zap.Logger
}

// ExecutionResult contains the outcome of processing a model reply for code execution.
type ExecutionResult struct {
	Result   string
	HasError bool
}

// NewExecutionCoordinator creates a new execution coordinator. executor may be nil.
func NewExecutionCoordinator(executor Executor, logger *zap.Logger) *ExecutionCoordinator {
	return &ExecutionCoordinator{
		executor: executor,
		logger:   logger,
	}
}

// ProcessResponse runs the first python block in reply, if any. Executor
// failures become an "Error: ..." observation rather than a returned error.
func (e *ExecutionCoordinator) ProcessResponse(ctx context.Context, reply, sessionID string) *ExecutionResult {
	code := tools.ExtractCode(reply)
	if code == "" {
		return &ExecutionResult{}
	}
	if e.executor == nil {
		return &ExecutionResult{Result: executionDisabled}
	}

	e.logger.Info("Executing Python code",
		zap.String("session_id", sessionID),
		zap.Int("code_lines", strings.Count(code, "\n")+1))

	result, err := e.executor.Run(ctx, sessionID, code)
	if err != nil {
		e.logger.Error("Error executing Python code", zap.Error(err), zap.String("session_id", sessionID))
		result = "Error: " + err.Error()
	}

	hasError := err != nil || e.DetectError(result)
	if hasError {
		e.logger.Warn("Python execution resulted in error",
			zap.String("session_id", sessionID),
			zap.String("error_preview", tools.SanitizeLogOutput(result, 200)))
	}

	return &ExecutionResult{
		Result:   truncateObservation(result),
		HasError: hasError,
	}
}

// DetectError checks if the execution result contains error indicators.
func (e *ExecutionCoordinator) DetectError(result string) bool {
	return strings.Contains(result, "Error:") || strings.Contains(result, "Traceback (most recent call last)")
}

func truncateObservation(s string) string {
	if len(s) <= maxObservationChars {
		return s
	}
	return s[:maxObservationChars] + "\n... (output truncated)"
}
