package errors

import (
	"errors"
	"testing"
)

func TestWrapErrorNil(t *testing.T) {
	if WrapError(nil, "ctx") != nil {
		t.Fatal("WrapError(nil) should be nil")
	}
	if WrapErrorf(nil, "ctx %d", 1) != nil {
		t.Fatal("WrapErrorf(nil) should be nil")
	}
	if Join(ErrInvalidInput, nil) != nil {
		t.Fatal("Join(_, nil) should be nil")
	}
}

func TestJoinMatchesBoth(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Join(ErrLLMCommunication, cause)

	if !IsLLMCommunication(err) {
		t.Errorf("expected %v to match ErrLLMCommunication", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected %v to match the cause", err)
	}
	if IsInvalidInput(err) {
		t.Errorf("did not expect %v to match ErrInvalidInput", err)
	}
}

func TestWrapErrorfKeepsChain(t *testing.T) {
	err := WrapErrorf(ErrServiceUnavailable, "executor %q", "py-1:9999")
	if !IsServiceUnavailable(err) {
		t.Fatalf("expected service unavailable, got %v", err)
	}
	if got, want := err.Error(), `executor "py-1:9999": service unavailable`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
