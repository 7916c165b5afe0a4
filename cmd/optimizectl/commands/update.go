package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	updateXDM  string
	updateData string
)

var updateCmd = &cobra.Command{
	Use:   "update <scope>...",
	Short: "Request fresh propositions for decision scopes",
	Long: `Ask the service to fetch propositions for the given scopes. The request is
queued; use "get" to read the propositions once the response has arrived.

Examples:
  optimizectl update homepage-banner
  optimizectl update homepage-banner --xdm '{"web":{"webPageDetails":{"URL":"https://example.com"}}}'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		xdmData, err := parseObject("--xdm", updateXDM)
		if err != nil {
			return err
		}
		data, err := parseObject("--data", updateData)
		if err != nil {
			return err
		}

		c, err := newClient()
		if err != nil {
			return err
		}
		id, err := c.Update(context.Background(), args, xdmData, data)
		if err != nil {
			return fmt.Errorf("failed to request propositions: %w", err)
		}

		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Update requested (request id %s)\n", id)
		}
		return nil
	},
}

// parseObject decodes an optional JSON object flag.
func parseObject(flag, raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("%s must be a JSON object: %w", flag, err)
	}
	return out, nil
}

func init() {
	updateCmd.Flags().StringVar(&updateXDM, "xdm", "", "XDM data merged into the request (JSON object)")
	updateCmd.Flags().StringVar(&updateData, "data", "", "Free-form data sent with the request (JSON object)")
	rootCmd.AddCommand(updateCmd)
}
