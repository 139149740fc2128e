package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds the application's configuration
type Config struct {
	LogLevel                     string        `mapstructure:"LOG_LEVEL"`
	WebPort                      int           `mapstructure:"WEB_PORT"`
	OpenAIBaseURL                string        `mapstructure:"OPENAI_BASE_URL"`
	OpenAIAPIKey                 string        `mapstructure:"OPENAI_API_KEY"`
	Model                        string        `mapstructure:"MODEL"`
	MaxIterations                int           `mapstructure:"MAX_ITERATIONS"`
	ConsecutiveErrors            int           `mapstructure:"CONSECUTIVE_ERRORS"`
	MaxRetries                   int           `mapstructure:"MAX_RETRIES"`
	LLMRequestTimeout            time.Duration `mapstructure:"LLM_REQUEST_TIMEOUT"`
	PythonExecutorAddresses      []string      `mapstructure:"PYTHON_EXECUTOR_ADDRESSES"`
	PythonExecutorDialTimeout    time.Duration `mapstructure:"PYTHON_EXECUTOR_DIAL_TIMEOUT"`
	PythonExecutorIOTimeout      time.Duration `mapstructure:"PYTHON_EXECUTOR_IO_TIMEOUT"`
	PythonExecutorCooldown       time.Duration `mapstructure:"PYTHON_EXECUTOR_COOLDOWN"`
	PythonExecutorMaxConnections int           `mapstructure:"PYTHON_EXECUTOR_MAX_CONNECTIONS"`
	WorkspaceDir                 string        `mapstructure:"WORKSPACE_DIR"`
	MaxUploadMB                  int           `mapstructure:"MAX_UPLOAD_MB"`
	PreviewRows                  int           `mapstructure:"PREVIEW_ROWS"`
	MaxSessions                  int           `mapstructure:"MAX_SESSIONS"`
	CleanupEnabled               bool          `mapstructure:"CLEANUP_ENABLED"`
	CleanupInterval              time.Duration `mapstructure:"CLEANUP_INTERVAL"`
	SessionRetentionAge          time.Duration `mapstructure:"SESSION_RETENTION_AGE"`
	RateLimitQuestionsPerMin     int           `mapstructure:"RATE_LIMIT_QUESTIONS_PER_MIN"`
	RateLimitFilesPerHour        int           `mapstructure:"RATE_LIMIT_FILES_PER_HOUR"`
	RateLimitBurstSize           int           `mapstructure:"RATE_LIMIT_BURST_SIZE"`
}

// Load reads config.yaml (if present) and the environment. cfgFile overrides
// the search path when non-empty.
func Load(logger *zap.Logger, cfgFile string) *Config {
	var config Config
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")        // For running locally
		v.AddConfigPath("../")      // For running from docker subdir
		v.AddConfigPath("./config") // Common config folder
	}
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if logger != nil {
			logger.Warn("Could not read config file, using defaults/env vars", zap.Error(err))
		}
	}

	// Durations are plain integers; decode them before viper's duration
	// hook sees a unitless string from the environment.
	for _, key := range durationKeys {
		v.Set(key, v.GetInt(key))
	}

	if err := v.Unmarshal(&config); err != nil {
		// Config unmarshaling is critical - fail fast during bootstrap
		if logger != nil {
			logger.Fatal("Unable to decode config into struct", zap.Error(err))
		} else {
			fmt.Fprintf(os.Stderr, "FATAL: Unable to decode config into struct: %v\n", err)
			os.Exit(1)
		}
	}

	config.normalize()
	return &config
}

// durationKeys are given in seconds or hours and scaled by normalize.
var durationKeys = []string{
	"LLM_REQUEST_TIMEOUT",
	"PYTHON_EXECUTOR_DIAL_TIMEOUT",
	"PYTHON_EXECUTOR_IO_TIMEOUT",
	"PYTHON_EXECUTOR_COOLDOWN",
	"CLEANUP_INTERVAL",
	"SESSION_RETENTION_AGE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("WEB_PORT", 8501)
	v.SetDefault("OPENAI_BASE_URL", "")
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("MODEL", "")
	v.SetDefault("MAX_ITERATIONS", 10)
	v.SetDefault("CONSECUTIVE_ERRORS", 3)
	v.SetDefault("MAX_RETRIES", 2)
	v.SetDefault("LLM_REQUEST_TIMEOUT", 300)
	v.SetDefault("PYTHON_EXECUTOR_ADDRESSES", []string{})
	v.SetDefault("PYTHON_EXECUTOR_DIAL_TIMEOUT", 5)
	v.SetDefault("PYTHON_EXECUTOR_IO_TIMEOUT", 120)
	v.SetDefault("PYTHON_EXECUTOR_COOLDOWN", 30)
	v.SetDefault("PYTHON_EXECUTOR_MAX_CONNECTIONS", 4)
	v.SetDefault("WORKSPACE_DIR", "workspaces")
	v.SetDefault("MAX_UPLOAD_MB", 20)
	v.SetDefault("PREVIEW_ROWS", 50)
	v.SetDefault("MAX_SESSIONS", 256)
	v.SetDefault("CLEANUP_ENABLED", true)
	v.SetDefault("CLEANUP_INTERVAL", 1)
	v.SetDefault("SESSION_RETENTION_AGE", 24)
	v.SetDefault("RATE_LIMIT_QUESTIONS_PER_MIN", 10)
	v.SetDefault("RATE_LIMIT_FILES_PER_HOUR", 30)
	v.SetDefault("RATE_LIMIT_BURST_SIZE", 3)
}

func (c *Config) normalize() {
	// Env vars arrive as a single comma separated string.
	if len(c.PythonExecutorAddresses) == 1 && strings.Contains(c.PythonExecutorAddresses[0], ",") {
		c.PythonExecutorAddresses = strings.Split(c.PythonExecutorAddresses[0], ",")
	}
	cleaned := make([]string, 0, len(c.PythonExecutorAddresses))
	for _, addr := range c.PythonExecutorAddresses {
		addr = strings.TrimSpace(addr)
		if addr != "" {
			cleaned = append(cleaned, addr)
		}
	}
	c.PythonExecutorAddresses = cleaned

	if c.MaxIterations <= 0 {
		c.MaxIterations = 10
	}
	if c.ConsecutiveErrors <= 0 {
		c.ConsecutiveErrors = 3
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.PreviewRows <= 0 {
		c.PreviewRows = 50
	}
	if c.MaxSessions <= 0 {
		c.MaxSessions = 256
	}

	// Convert seconds/hours to proper time.Duration
	c.LLMRequestTimeout = c.LLMRequestTimeout * time.Second
	c.PythonExecutorDialTimeout = c.PythonExecutorDialTimeout * time.Second
	c.PythonExecutorIOTimeout = c.PythonExecutorIOTimeout * time.Second
	c.PythonExecutorCooldown = c.PythonExecutorCooldown * time.Second
	c.CleanupInterval = c.CleanupInterval * time.Hour
	c.SessionRetentionAge = c.SessionRetentionAge * time.Hour
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}
