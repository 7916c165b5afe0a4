package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the service's cached propositions",
	Long: `Clear every cached proposition, including preview content. Requires the
admin API key.

Example:
  optimizectl reset --profile local`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Reset(context.Background()); err != nil {
			return fmt.Errorf("failed to reset: %w", err)
		}
		if !quiet {
			fmt.Fprintln(cmd.OutOrStdout(), "Cached propositions cleared")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
