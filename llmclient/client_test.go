package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sheet-agent/config"
	apperrors "sheet-agent/errors"
	"sheet-agent/web/types"

	"go.uber.org/zap"
)

func testConfig(baseURL, key string) *config.Config {
	return &config.Config{
		OpenAIBaseURL:     baseURL,
		OpenAIAPIKey:      key,
		MaxRetries:        0,
		LLMRequestTimeout: 5 * time.Second,
	}
}

func TestChat(t *testing.T) {
	var got struct {
		Model    string               `json:"model"`
		Messages []types.AgentMessage `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s, want /chat/completions", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "deepseek-reasoner",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "Final Answer: {\"answer\": \"42\"}"}}],
			"usage": {"prompt_tokens": 3, "completion_tokens": 5, "total_tokens": 8}
		}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL+"/", "sk-test"), zap.NewNop())
	out, err := c.Chat(context.Background(), []types.AgentMessage{
		{Role: types.RoleSystem, Content: "sys"},
		{Role: types.RoleUser, Content: "how many rows?"},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out != `Final Answer: {"answer": "42"}` {
		t.Errorf("content = %q", out)
	}
	if got.Model != DefaultModel {
		t.Errorf("model = %q, want %q", got.Model, DefaultModel)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "how many rows?" {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestChatMissingCredentials(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL+"/", ""), zap.NewNop())
	_, err := c.Chat(context.Background(), []types.AgentMessage{{Role: types.RoleUser, Content: "hi"}})
	if !errors.Is(err, ErrMissingCredentials) || !apperrors.IsLLMCommunication(err) {
		t.Fatalf("err = %v, want ErrMissingCredentials tagged as LLM communication", err)
	}
	if called {
		t.Error("endpoint was called without credentials")
	}
}

func TestChatServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "bad key", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL+"/", "sk-bad"), zap.NewNop())
	if _, err := c.Chat(context.Background(), nil); !apperrors.IsLLMCommunication(err) {
		t.Fatalf("err = %v, want LLM communication error", err)
	}
}

func TestModelOverride(t *testing.T) {
	cfg := testConfig("", "k")
	cfg.Model = GPT41Model
	if got := New(cfg, zap.NewNop()).ModelName(); got != GPT41Model {
		t.Errorf("ModelName = %s, want %s", got, GPT41Model)
	}
	if got := New(testConfig("", "k"), zap.NewNop()).ModelName(); got != DefaultModel {
		t.Errorf("ModelName = %s, want %s", got, DefaultModel)
	}
}
