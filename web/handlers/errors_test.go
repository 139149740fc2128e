package handlers

import (
	"errors"
	"fmt"
	"testing"

	"sheet-agent/agent"
	apperrors "sheet-agent/errors"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"executor down", apperrors.Join(apperrors.ErrServiceUnavailable, errors.New("dial tcp: refused")), "The Python executor is unreachable. Please try again shortly."},
		{"model down", apperrors.Join(apperrors.ErrLLMCommunication, errors.New("502")), "Could not reach the language model. Please try again."},
		{"step limit", fmt.Errorf("session s1: %w", agent.ErrIterationLimit), "The agent could not reach an answer within its step limit. Try rephrasing the question."},
		{"other", errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := userMessage(tt.err); got != tt.want {
				t.Errorf("userMessage = %q, want %q", got, tt.want)
			}
		})
	}
}
