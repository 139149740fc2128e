package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"sheet-agent/dataset"
	"sheet-agent/envelope"
	"sheet-agent/utils"
	"sheet-agent/web/format"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	askFile     string
	askType     string
	askSheet    string
	askQuestion string
	askChartDir string
	askRaw      bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer one question about a file from the command line",
	Example: `  sheet-agent ask --file sales.csv --question "Which region sold the most?"
  sheet-agent ask --file q.xlsx --sheet Q2 --question "Plot revenue by month" --chart-dir out/`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if strings.TrimSpace(askQuestion) == "" {
			return errors.New("--question is required")
		}
		ds, err := loadFile(askFile, askType, askSheet)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, closeExecutor := buildAgent(ctx)
		defer closeExecutor()

		sessionID := uuid.New().String()
		defer func() {
			a.CleanupSession(sessionID)
			os.RemoveAll(utils.SessionWorkspace(cfg.WorkspaceDir, sessionID))
		}()

		raw, err := a.Answer(ctx, sessionID, ds, askQuestion)
		if err != nil {
			return err
		}
		logger.Debug("Agent replied", zap.String("raw", raw))
		out := cmd.OutOrStdout()
		if askRaw {
			fmt.Fprintln(out, raw)
			return nil
		}

		env, err := envelope.Decode(raw)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "Raw response:\n"+raw)
			return err
		}
		res, err := format.Render(env)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "Raw response:\n"+raw)
			return err
		}
		return printResult(out, res, askChartDir)
	},
}

func init() {
	askCmd.Flags().StringVar(&askFile, "file", "", "CSV or .xlsx file to analyze")
	askCmd.Flags().StringVar(&askType, "type", "", "file type, CSV or EXCEL (default from extension)")
	askCmd.Flags().StringVar(&askSheet, "sheet", "", "sheet to load from a workbook (default first)")
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question to ask")
	askCmd.Flags().StringVar(&askChartDir, "chart-dir", "", "directory to write chart SVGs into")
	askCmd.Flags().BoolVar(&askRaw, "raw", false, "print the model's JSON response unrendered")
	_ = askCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(askCmd)
}

// loadFile reads path with the loader for fileType, or for the extension
// when fileType is empty.
func loadFile(path, fileType, sheet string) (*dataset.Dataset, error) {
	if fileType == "" {
		fileType = string(dataset.KindCSV)
		if strings.EqualFold(filepath.Ext(path), dataset.KindExcel.Extension()) {
			fileType = string(dataset.KindExcel)
		}
	}
	kind, err := dataset.ParseKind(fileType)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	name := filepath.Base(path)
	if kind == dataset.KindExcel {
		return dataset.LoadXLSX(f, name, sheet)
	}
	return dataset.LoadCSV(f, name)
}

// printResult writes the answer and table to w and the charts to chartDir.
func printResult(w io.Writer, res *format.Result, chartDir string) error {
	if res.IsEmpty() {
		fmt.Fprintln(w, "(no output)")
		return nil
	}
	if res.HasAnswer {
		fmt.Fprintln(w, res.Answer)
	}
	if res.Table != nil {
		if res.HasAnswer {
			fmt.Fprintln(w)
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(res.Table.Columns, "\t"))
		for _, row := range res.Table.Rows {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	for _, c := range []*format.Chart{res.Bar, res.Line} {
		if c == nil {
			continue
		}
		if chartDir == "" {
			fmt.Fprintf(w, "(%s chart omitted; pass --chart-dir to save it)\n", c.Kind)
			continue
		}
		if err := os.MkdirAll(chartDir, 0o755); err != nil {
			return fmt.Errorf("create chart dir: %w", err)
		}
		path := filepath.Join(chartDir, c.Kind+".svg")
		if err := os.WriteFile(path, []byte(c.SVG), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintf(w, "%s chart written to %s\n", c.Kind, path)
	}
	return nil
}
