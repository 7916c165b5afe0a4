package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goptimize/internal/cli"
	"github.com/TimurManjosov/goptimize/internal/client"
	"github.com/TimurManjosov/goptimize/internal/logging"
)

var (
	// Global flags
	baseURL string
	apiKey  string
	profile string
	format  string
	quiet   bool
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "optimizectl",
	Short: "CLI tool for requesting and tracking personalized propositions",
	Long: `optimizectl talks to an optimize service: it requests propositions for
decision scopes, reads them from the service cache and reports display and
tap interactions. Scope names can be encoded and checked locally.

Examples:
  optimizectl scope encode --activity xcore:offer-activity:1 --placement xcore:offer-placement:1
  optimizectl update homepage-banner
  optimizectl get homepage-banner --format json
  optimizectl track homepage-banner --event display
  optimizectl reset --profile local`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			return logging.SetLevel("debug")
		}
		return logging.SetLevel("warn")
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Base URL of the optimize API")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Admin API key")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "Configuration profile (defaults to default_profile)")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose output")
}

// newClient builds an API client for the selected profile.
func newClient() (*client.Client, error) {
	p, _, err := cli.ResolveProfile(profile, baseURL, apiKey)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return client.NewClient(p.BaseURL, p.APIKey), nil
}
