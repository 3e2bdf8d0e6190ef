package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/oncallkb/internal/config"
)

func newCatalogCmd() *cobra.Command {
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the effective catalog as YAML",
		Long: `Print the services, bot senders, key terms and acknowledgement exclusions
in effect after applying --catalog or ONCALLKB_CATALOG over the built-in defaults.

The output is a valid catalog file and a good starting point for customizing one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(catalogPath)
			if err != nil {
				return err
			}
			data, err := config.MarshalCatalog(cat)
			if err != nil {
				return fmt.Errorf("marshal catalog: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "YAML catalog overriding the built-in defaults")
	return cmd
}
