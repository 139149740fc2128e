// Package agent drives the model through a bounded reason/execute loop until
// it returns the JSON answer for one question about one dataset.
package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"sheet-agent/config"
	"sheet-agent/dataset"
	apperrors "sheet-agent/errors"
	"sheet-agent/llmclient"
	"sheet-agent/prompts"
	"sheet-agent/utils"
	"sheet-agent/web/types"

	"go.uber.org/zap"
)

// datasetFile is the canonical CSV the executor reads df from.
const datasetFile = "dataset.csv"

// summaryRows is how many rows of the dataset the system prompt shows.
const summaryRows = 5

type Agent struct {
	cfg                  *config.Config
	model                llmclient.Model
	executor             Executor
	logger               *zap.Logger
	executionCoordinator *ExecutionCoordinator
	responseHandler      *ResponseHandler
}

// NewAgent wires the model and executor. executor may be nil, in which case
// the model only sees the dataset summary.
func NewAgent(cfg *config.Config, model llmclient.Model, executor Executor, logger *zap.Logger) *Agent {
	logger.Info("Agent initialized",
		zap.Int("max_iterations", cfg.MaxIterations),
		zap.Bool("code_execution", executor != nil))

	return &Agent{
		cfg:                  cfg,
		model:                model,
		executor:             executor,
		logger:               logger,
		executionCoordinator: NewExecutionCoordinator(executor, logger),
		responseHandler:      NewResponseHandler(logger),
	}
}

// Answer runs one question against ds and returns the model's final text,
// expected to be a JSON envelope. Each call starts from a fresh df and an
// empty history.
func (a *Agent) Answer(ctx context.Context, sessionID string, ds *dataset.Dataset, question string) (string, error) {
	if a.executor != nil {
		if err := a.loadDataset(ctx, sessionID, ds); err != nil {
			return "", err
		}
	}

	system := prompts.BuildSystem(ds.Summary(summaryRows))
	history := []types.AgentMessage{{Role: types.RoleUser, Content: prompts.BuildQuestion(question)}}
	loop := NewConversationLoop(a.cfg, a.logger)

	for turn := 0; ; turn++ {
		if err := loop.Check(turn); err != nil {
			return "", err
		}

		reply, err := a.model.Chat(ctx, a.responseHandler.BuildMessagesForLLM(system, history))
		if err != nil {
			return "", fmt.Errorf("model call on turn %d: %w", turn+1, err)
		}
		a.logger.Debug("Model reply received",
			zap.String("session_id", sessionID),
			zap.Int("turn", turn+1),
			zap.Int("length", len(reply)))
		history = append(history, types.AgentMessage{Role: types.RoleAssistant, Content: reply})

		kind, answer := a.responseHandler.Classify(reply)
		switch kind {
		case ReplyFinal:
			a.logger.Info("Agent produced final answer",
				zap.String("session_id", sessionID),
				zap.Int("turns", turn+1))
			return answer, nil

		case ReplyCode:
			result := a.executionCoordinator.ProcessResponse(ctx, reply, sessionID)
			if result.HasError {
				loop.RecordError()
			} else {
				loop.RecordSuccess()
			}
			history = append(history, types.AgentMessage{Role: types.RoleUser, Content: "Observation:\n" + result.Result})

		default:
			a.logger.Warn("Could not parse model reply, asking for correction",
				zap.String("session_id", sessionID),
				zap.Int("turn", turn+1))
			history = append(history, types.AgentMessage{Role: types.RoleUser, Content: prompts.FormatCorrection()})
		}
	}
}

// loadDataset writes ds as CSV into the session workspace and binds df.
func (a *Agent) loadDataset(ctx context.Context, sessionID string, ds *dataset.Dataset) error {
	dir := utils.SessionWorkspace(a.cfg.WorkspaceDir, sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.WrapError(err, "create session workspace")
	}
	path, err := filepath.Abs(filepath.Join(dir, datasetFile))
	if err != nil {
		return apperrors.WrapError(err, "resolve dataset path")
	}

	f, err := os.Create(path)
	if err != nil {
		return apperrors.WrapError(err, "create dataset file")
	}
	if err := ds.WriteCSV(f); err != nil {
		f.Close()
		return apperrors.WrapError(err, "write dataset file")
	}
	if err := f.Close(); err != nil {
		return apperrors.WrapError(err, "close dataset file")
	}

	out, err := a.executor.InitializeSession(ctx, sessionID, path)
	if err != nil {
		return apperrors.WrapErrorf(err, "load dataset into executor session %s", sessionID)
	}
	a.logger.Debug("Executor session initialized",
		zap.String("session_id", sessionID),
		zap.String("output", out))
	return nil
}

// CleanupSession releases executor state for sessionID.
func (a *Agent) CleanupSession(sessionID string) {
	if a.executor != nil {
		a.executor.CleanupSession(sessionID)
	}
}
