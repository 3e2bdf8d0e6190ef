package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/oncallkb/internal/pipeline"
	"github.com/MikeSquared-Agency/oncallkb/internal/printer"
	"github.com/MikeSquared-Agency/oncallkb/internal/processor"
	"github.com/MikeSquared-Agency/oncallkb/internal/report"
)

type analyzeOptions struct {
	input       string
	jsonPath    string
	summaryPath string
	catalogPath string
	sourceName  string
}

func newAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Parse a Slack thread export and summarize it",
		Long: `Parse a Slack thread export into structured thread records and render
the markdown summary report.

The export is a series of "# Thread N" blocks separated by a line of 40 "="
characters. Blocks without a thread header are skipped with a warning.

Examples:
  # Report to stdout
  oncallkb analyze --input slack-bor-write-alerts-threads-90d.md

  # Write both artifacts
  oncallkb analyze -i export.md --json threads.json --summary summary.md

  # Read from a pipe with a custom catalog
  cat export.md | oncallkb analyze -i - --catalog catalog.yaml --source-name bor-write-alerts`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "Transcript export to read (- for stdin)")
	cmd.Flags().StringVar(&opts.jsonPath, "json", "", "Write thread records as JSON to this path")
	cmd.Flags().StringVar(&opts.summaryPath, "summary", "", "Write the markdown report to this path (default stdout)")
	cmd.Flags().StringVar(&opts.catalogPath, "catalog", "", "YAML catalog overriding services, bots and key terms")
	cmd.Flags().StringVar(&opts.sourceName, "source-name", "", "Source label for the report header (default input file name)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, opts *analyzeOptions) error {
	setupLogging(os.Getenv("LOG_LEVEL"), cmd.ErrOrStderr())

	if opts.input == "" {
		return printer.Error(
			"no input given",
			"analyze needs a transcript export to read.",
			[]string{"Pass the export path with --input, or --input - to read stdin"},
		)
	}

	text, err := readInput(cmd, opts.input)
	if err != nil {
		return printer.Error(
			"failed to read input",
			err.Error(),
			[]string{"Pass an existing export file with --input, or --input - to read stdin"},
		)
	}

	cat, err := loadCatalog(opts.catalogPath)
	if err != nil {
		return err
	}

	source := opts.sourceName
	if source == "" {
		source = sourceFromInput(opts.input)
	}

	proc := processor.New(pipeline.New(cat, slog.Default()), processor.Deps{}, slog.Default())
	run, err := proc.Run(context.Background(), processor.OriginCLI, source, text)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", source, err)
	}

	// Keep stdout clean for the report when it is not written to a file.
	prevOut := printer.Out
	printer.Out = cmd.OutOrStdout()
	if opts.summaryPath == "" {
		printer.Out = cmd.ErrOrStderr()
	}
	defer func() { printer.Out = prevOut }()

	if opts.jsonPath != "" {
		if err := writeThreadsJSON(opts.jsonPath, run.Result); err != nil {
			return printer.Error("failed to write JSON", err.Error(), nil)
		}
		printer.Success("Wrote %d threads to %s\n", len(run.Result.Threads), opts.jsonPath)
	}

	if opts.summaryPath != "" {
		if err := os.WriteFile(opts.summaryPath, []byte(run.Report), 0o644); err != nil {
			return printer.Error("failed to write summary", err.Error(), nil)
		}
		printer.Success("Wrote summary to %s\n", opts.summaryPath)
	} else if _, err := io.WriteString(cmd.OutOrStdout(), run.Report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if n := len(run.Result.Skipped); n > 0 {
		printer.Warning("Skipped %d block(s) without a \"# Thread N\" header\n", n)
	}

	printer.Info("\n")
	printer.Heading("--- Quick Stats ---")
	report.WriteQuickStats(printer.Out, run.Result.Summary, len(run.Result.Skipped))
	return nil
}

func readInput(cmd *cobra.Command, input string) (string, error) {
	if input == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func sourceFromInput(input string) string {
	if input == "-" {
		return "stdin"
	}
	return filepath.Base(input)
}

func writeThreadsJSON(path string, res *pipeline.Result) error {
	data, err := json.MarshalIndent(res.Threads, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal threads: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
