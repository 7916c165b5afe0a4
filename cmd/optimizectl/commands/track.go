package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goptimize/internal/proposition"
	"github.com/TimurManjosov/goptimize/internal/xdm"
)

var (
	trackEvent  string
	trackOffers []string
)

var trackCmd = &cobra.Command{
	Use:   "track <scope>...",
	Short: "Report a display or tap of cached propositions",
	Long: `Report that the propositions cached for the given scopes were displayed
or tapped. The interaction is built from the propositions the service holds,
optionally restricted to some offers.

Examples:
  optimizectl track homepage-banner --event display
  optimizectl track homepage-banner --event tap --offer offer-1`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var eventType string
		switch trackEvent {
		case "display":
			eventType = xdm.EventTypeDisplay
		case "tap":
			eventType = xdm.EventTypeInteract
		default:
			return fmt.Errorf("--event must be 'display' or 'tap', got '%s'", trackEvent)
		}

		c, err := newClient()
		if err != nil {
			return err
		}
		ctx := context.Background()

		props, err := c.Get(ctx, args)
		if err != nil {
			return fmt.Errorf("failed to get propositions: %w", err)
		}
		props = narrowTo(props, trackOffers)
		if len(props) == 0 {
			return fmt.Errorf("no cached propositions to track for %v", args)
		}

		if err := c.Track(ctx, xdm.InteractionXDM(eventType, props...)); err != nil {
			return fmt.Errorf("failed to track interaction: %w", err)
		}
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Tracked %s for %d proposition(s)\n", trackEvent, len(props))
		}
		return nil
	},
}

// narrowTo keeps only the given offers. Propositions left without offers are
// dropped. An empty list keeps everything.
func narrowTo(props []proposition.Proposition, offerIDs []string) []proposition.Proposition {
	if len(offerIDs) == 0 {
		return props
	}
	out := make([]proposition.Proposition, 0, len(props))
	for _, p := range props {
		if n := p.Narrow(offerIDs...); len(n.Offers()) > 0 {
			out = append(out, n)
		}
	}
	return out
}

func init() {
	trackCmd.Flags().StringVar(&trackEvent, "event", "display", "Interaction type (display, tap)")
	trackCmd.Flags().StringSliceVar(&trackOffers, "offer", nil, "Offer ids to track (default: all offers)")
	rootCmd.AddCommand(trackCmd)
}
