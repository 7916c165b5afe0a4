package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goptimize/internal/cli"
	"github.com/TimurManjosov/goptimize/internal/decisionscope"
)

var (
	scopeActivity  string
	scopePlacement string
	scopeItemCount int
)

var scopeCmd = &cobra.Command{
	Use:   "scope",
	Short: "Encode, decode and validate decision scope names",
	Long:  `Work with decision scope names locally. No server is contacted.`,
}

var scopeEncodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Encode an activity and placement into a scope name",
	Long: `Encode an activity and placement into a Base64 scope name. The item count
is only included when it is greater than 1.

Example:
  optimizectl scope encode --activity xcore:offer-activity:1 --placement xcore:offer-placement:1 --count 3`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, ok := decisionscope.Encode(scopeActivity, scopePlacement, scopeItemCount)
		if !ok {
			return fmt.Errorf("activity and placement must be non-empty and count at least 1")
		}
		if !quiet {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var scopeDecodeCmd = &cobra.Command{
	Use:   "decode <name>",
	Short: "Decode an encoded scope name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		activity, err := decisionscope.Decode(args[0])
		if err != nil {
			return err
		}
		if quiet {
			return nil
		}
		return cli.PrintValue(cmd.OutOrStdout(), activity, cli.OutputFormat(format))
	},
}

var scopeValidateCmd = &cobra.Command{
	Use:   "validate <name>...",
	Short: "Check whether scope names may be sent in a request",
	Long: `Check whether scope names may be sent in a request. Names that are not
encoded activity scopes are treated as opaque and are valid when non-empty.

Example:
  optimizectl scope validate homepage-banner eyJhY3Rpdml0eUlkIjoiIn0=`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		invalid := 0
		for _, name := range args {
			valid := decisionscope.New(name).IsValid()
			if !valid {
				invalid++
			}
			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%t\n", name, valid)
			}
		}
		if invalid > 0 {
			return fmt.Errorf("%d of %d scopes are invalid", invalid, len(args))
		}
		return nil
	},
}

func init() {
	scopeEncodeCmd.Flags().StringVar(&scopeActivity, "activity", "", "Activity id")
	scopeEncodeCmd.Flags().StringVar(&scopePlacement, "placement", "", "Placement id")
	scopeEncodeCmd.Flags().IntVar(&scopeItemCount, "count", 1, "Number of items requested")
	_ = scopeEncodeCmd.MarkFlagRequired("activity")
	_ = scopeEncodeCmd.MarkFlagRequired("placement")

	rootCmd.AddCommand(scopeCmd)
	scopeCmd.AddCommand(scopeEncodeCmd)
	scopeCmd.AddCommand(scopeDecodeCmd)
	scopeCmd.AddCommand(scopeValidateCmd)
}
