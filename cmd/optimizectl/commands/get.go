package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goptimize/internal/cli"
)

var getCmd = &cobra.Command{
	Use:   "get <scope>...",
	Short: "Show cached propositions for decision scopes",
	Long: `Show the propositions the service currently holds for the given scopes.
Scopes without cached content are omitted.

Examples:
  optimizectl get homepage-banner
  optimizectl get homepage-banner sidebar --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		props, err := c.Get(context.Background(), args)
		if err != nil {
			return fmt.Errorf("failed to get propositions: %w", err)
		}

		if !quiet {
			return cli.PrintPropositions(cmd.OutOrStdout(), props, cli.OutputFormat(format))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
