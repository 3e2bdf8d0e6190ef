package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/oncallkb/internal/config"
	"github.com/MikeSquared-Agency/oncallkb/internal/enrich"
	"github.com/MikeSquared-Agency/oncallkb/internal/printer"
)

var versionString = "dev"

// NewRootCmd builds the oncallkb command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "oncallkb",
		Short: "oncallkb - Slack on-call thread analyzer",
		Long: `oncallkb parses Slack thread exports from on-call alert channels into
structured thread records and renders a markdown summary of which services,
people and failure modes show up most.

Run "oncallkb analyze" for one-off exports or "oncallkb serve" to accept
exports over HTTP and NATS.`,
		Version: versionString,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		FParseErrWhitelist: cobra.FParseErrWhitelist{},
		SilenceErrors:      true,
		SilenceUsage:       true,
	}

	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newCatalogCmd())
	root.AddCommand(newBackfillCmd())
	return root
}

// Execute runs the root command. It is called by main.main().
func Execute() error {
	return NewRootCmd().Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	versionString = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func setupLogging(level string, w io.Writer) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}

// loadCatalog resolves the catalog from the flag, then ONCALLKB_CATALOG, then the built-in default.
func loadCatalog(flagPath string) (enrich.Catalog, error) {
	path := flagPath
	if path == "" {
		path = os.Getenv("ONCALLKB_CATALOG")
	}
	cat, err := config.LoadCatalog(path)
	if err != nil {
		return enrich.Catalog{}, printer.Error(
			"failed to load catalog",
			err.Error(),
			[]string{
				"Check the path passed to --catalog or ONCALLKB_CATALOG",
				"Run 'oncallkb catalog' to print a valid starting point",
			},
		)
	}
	return cat, nil
}
