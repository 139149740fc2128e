package handlers

import (
	"errors"

	"sheet-agent/agent"
	"sheet-agent/envelope"
	apperrors "sheet-agent/errors"
	"sheet-agent/llmclient"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondWithError logs the technical error and renders the page with a
// user-friendly message.
func (h *AnalysisHandler) respondWithError(c *gin.Context, statusCode int, technicalError error, userMessage string, fields ...zap.Field) {
	fields = append(fields, zap.Error(technicalError))
	h.logger.Error("Request failed", fields...)
	h.render(c, statusCode, userMessage)
}

// respondWithClientError renders the page with a message; validation errors
// are not logged.
func (h *AnalysisHandler) respondWithClientError(c *gin.Context, statusCode int, userMessage string) {
	h.render(c, statusCode, userMessage)
}

// userMessage turns an agent or upload error into text fit for the page.
func userMessage(err error) string {
	switch {
	case errors.Is(err, llmclient.ErrMissingCredentials):
		return "The model API key is not configured. Set OPENAI_API_KEY and restart."
	case errors.Is(err, llmclient.ErrContextWindowExceeded):
		return "The dataset summary is too large for the model. Try a smaller file."
	case errors.Is(err, agent.ErrIterationLimit):
		return "The agent could not reach an answer within its step limit. Try rephrasing the question."
	case errors.Is(err, agent.ErrTooManyToolErrors):
		return "The agent's code kept failing. Try a more specific question."
	case apperrors.IsLLMCommunication(err):
		return "Could not reach the language model. Please try again."
	case apperrors.IsServiceUnavailable(err):
		return "The Python executor is unreachable. Please try again shortly."
	case errors.Is(err, envelope.ErrShapeMismatch), errors.Is(err, envelope.ErrMalformedEnvelope):
		return "The model's response could not be displayed: " + err.Error()
	}
	return err.Error()
}
