package cmd

import (
	"context"
	"fmt"
	"os"

	"sheet-agent/agent"
	"sheet-agent/config"
	"sheet-agent/llmclient"
	"sheet-agent/tools"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile  string
	logLevel string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sheet-agent",
	Short: "Ask questions about a CSV or Excel file in plain language",
	Long: `sheet-agent loads a spreadsheet, hands a summary of it to a language model
and runs the model's pandas code on a Python executor until it produces an
answer, a table or a chart.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	PersistentPostRun: func(*cobra.Command, []string) { config.Cleanup() },
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	bootLogger, err := config.InitLogger("info")
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	cfg = config.Load(bootLogger, cfgFile)

	level := cfg.LogLevel
	if cmd.Flags().Changed("log-level") {
		level = logLevel
	}
	logger, err = config.InitLogger(level)
	if err != nil {
		return fmt.Errorf("failed to re-initialize logger with configured level: %w", err)
	}
	return nil
}

// buildAgent wires the model client and, when any executor is reachable,
// the Python executor. The returned func releases the executor.
func buildAgent(ctx context.Context) (*agent.Agent, func()) {
	model := llmclient.New(cfg, logger)
	if cfg.OpenAIAPIKey == "" {
		logger.Warn("OPENAI_API_KEY is not set; questions will fail until it is configured")
	}

	// Leave the interface nil rather than holding a nil *PythonExecutor.
	var executor agent.Executor
	closeFn := func() {}
	if len(cfg.PythonExecutorAddresses) == 0 {
		logger.Warn("No PYTHON_EXECUTOR_ADDRESSES configured; code execution disabled")
	} else if py, err := tools.NewPythonExecutor(ctx, cfg, logger); err != nil {
		logger.Warn("Python executor unavailable; code execution disabled", zap.Error(err))
	} else {
		executor = py
		closeFn = py.Close
	}

	logger.Info("Agent ready",
		zap.String("model", model.ModelName()),
		zap.Bool("code_execution", executor != nil),
		zap.Int("max_iterations", cfg.MaxIterations))
	return agent.NewAgent(cfg, model, executor, logger), closeFn
}
