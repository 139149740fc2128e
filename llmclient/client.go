package llmclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"sheet-agent/config"
	apperrors "sheet-agent/errors"
	"sheet-agent/web/types"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"go.uber.org/zap"
)

// Model identifiers the provider can be bound to. Only DefaultModel is used
// unless MODEL overrides it.
const (
	DefaultModel = "deepseek-reasoner"
	GLMModel     = "glm-4.5"
	GPT41Model   = "gpt-4.1"
)

// ErrMissingCredentials is returned by Chat when no API key was configured.
var ErrMissingCredentials = errors.New("OPENAI_API_KEY is not set")

// ErrContextWindowExceeded is returned when the model reports the prompt
// exceeds the available context size.
var ErrContextWindowExceeded = errors.New("context window exceeded")

// Model is the narrow chat interface the agent depends on.
type Model interface {
	Chat(ctx context.Context, messages []types.AgentMessage) (string, error)
}

type Client struct {
	model  string
	apiKey string
	api    openai.Client
	logger *zap.Logger
}

// New builds a client from cfg. A missing API key is not an error here; it
// surfaces on the first Chat call.
func New(cfg *config.Config, logger *zap.Logger) *Client {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.OpenAIAPIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.OpenAIBaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.OpenAIBaseURL))
	}
	if cfg.LLMRequestTimeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.LLMRequestTimeout))
	}

	return &Client{
		model:  model,
		apiKey: cfg.OpenAIAPIKey,
		api:    openai.NewClient(opts...),
		logger: logger,
	}
}

// ModelName returns the bound model identifier.
func (c *Client) ModelName() string { return c.model }

// Chat performs a non-streaming chat completion call.
func (c *Client) Chat(ctx context.Context, messages []types.AgentMessage) (string, error) {
	if c.apiKey == "" {
		return "", apperrors.Join(apperrors.ErrLLMCommunication, ErrMissingCredentials)
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: toParams(messages),
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			if apiErr.StatusCode == http.StatusBadRequest && strings.Contains(apiErr.Error(), "context") {
				return "", apperrors.Join(apperrors.ErrLLMCommunication, ErrContextWindowExceeded)
			}
			c.logger.Warn("Model endpoint returned an error",
				zap.String("model", c.model),
				zap.Int("status", apiErr.StatusCode))
		}
		return "", apperrors.Join(apperrors.ErrLLMCommunication, fmt.Errorf("chat completion: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.Join(apperrors.ErrLLMCommunication, errors.New("no response choices from model endpoint"))
	}

	c.logger.Debug("Chat completion finished",
		zap.String("model", c.model),
		zap.Int64("total_tokens", resp.Usage.TotalTokens))
	return resp.Choices[0].Message.Content, nil
}

func toParams(messages []types.AgentMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case types.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case types.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
