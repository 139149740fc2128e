package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("WEB_PORT: 9000\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Load(zap.NewNop(), path)

	if cfg.WebPort != 9000 {
		t.Errorf("WebPort = %d, want 9000", cfg.WebPort)
	}
	if cfg.MaxIterations != 10 {
		t.Errorf("MaxIterations = %d, want 10", cfg.MaxIterations)
	}
	if cfg.LLMRequestTimeout != 300*time.Second {
		t.Errorf("LLMRequestTimeout = %v, want 300s", cfg.LLMRequestTimeout)
	}
	if cfg.SessionRetentionAge != 24*time.Hour {
		t.Errorf("SessionRetentionAge = %v, want 24h", cfg.SessionRetentionAge)
	}
	if len(cfg.PythonExecutorAddresses) != 0 {
		t.Errorf("PythonExecutorAddresses = %v, want empty", cfg.PythonExecutorAddresses)
	}
}

func TestLoadExecutorAddressesFromEnv(t *testing.T) {
	t.Setenv("PYTHON_EXECUTOR_ADDRESSES", "exec-a:9999, exec-b:9999 ,")
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("LOG_LEVEL: debug\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Load(zap.NewNop(), path)

	want := []string{"exec-a:9999", "exec-b:9999"}
	if len(cfg.PythonExecutorAddresses) != len(want) {
		t.Fatalf("PythonExecutorAddresses = %v, want %v", cfg.PythonExecutorAddresses, want)
	}
	for i := range want {
		if cfg.PythonExecutorAddresses[i] != want[i] {
			t.Errorf("address[%d] = %q, want %q", i, cfg.PythonExecutorAddresses[i], want[i])
		}
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestMaxUploadBytes(t *testing.T) {
	cfg := &Config{MaxUploadMB: 2}
	if got := cfg.MaxUploadBytes(); got != 2<<20 {
		t.Errorf("MaxUploadBytes = %d, want %d", got, 2<<20)
	}
}

func TestLoadDurationFromEnv(t *testing.T) {
	t.Setenv("LLM_REQUEST_TIMEOUT", "45")
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("CLEANUP_INTERVAL: 2\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Load(zap.NewNop(), path)

	if cfg.LLMRequestTimeout != 45*time.Second {
		t.Errorf("LLMRequestTimeout = %v, want 45s", cfg.LLMRequestTimeout)
	}
	if cfg.CleanupInterval != 2*time.Hour {
		t.Errorf("CleanupInterval = %v, want 2h", cfg.CleanupInterval)
	}
}
