package agent

import (
	"strings"

	"sheet-agent/tools"
	"sheet-agent/web/types"

	"go.uber.org/zap"
)

const finalAnswerMarker = "Final Answer:"

// ReplyKind classifies one model reply.
type ReplyKind int

const (
	ReplyUnparsable ReplyKind = iota
	ReplyFinal
	ReplyCode
)

// ResponseHandler builds model input and classifies model replies.
type ResponseHandler struct {
	logger *zap.Logger
}

// NewResponseHandler creates a new response handler instance.
func NewResponseHandler(logger *zap.Logger) *ResponseHandler {
	return &ResponseHandler{logger: logger}
}

// BuildMessagesForLLM prepends the system prompt to the turn history.
func (r *ResponseHandler) BuildMessagesForLLM(system string, history []types.AgentMessage) []types.AgentMessage {
	messages := make([]types.AgentMessage, 0, len(history)+1)
	messages = append(messages, types.AgentMessage{Role: types.RoleSystem, Content: system})
	return append(messages, history...)
}

// Classify decides what a reply asks for. A reply carrying both a code block
// and a final answer is unparsable. For ReplyFinal the answer text is
// returned with any code fences removed.
func (r *ResponseHandler) Classify(reply string) (ReplyKind, string) {
	hasCode := tools.ExtractCode(reply) != ""
	_, after, hasFinal := strings.Cut(reply, finalAnswerMarker)

	switch {
	case hasCode && hasFinal:
		r.logger.Debug("Reply has both a code block and a final answer")
		return ReplyUnparsable, ""
	case hasFinal:
		answer := stripFences(after)
		if answer == "" {
			return ReplyUnparsable, ""
		}
		return ReplyFinal, answer
	case hasCode:
		return ReplyCode, ""
	}

	if bare := stripFences(reply); strings.HasPrefix(bare, "{") && strings.HasSuffix(bare, "}") {
		return ReplyFinal, bare
	}
	return ReplyUnparsable, ""
}

// stripFences removes a surrounding ``` or ```json fence.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl != -1 && !strings.ContainsAny(s[:nl], "{[\"") {
		s = s[nl+1:]
	}
	if end := strings.LastIndex(s, "```"); end != -1 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}
