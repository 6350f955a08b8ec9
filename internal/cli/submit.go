package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"trackeco/internal/disposal"
	"trackeco/internal/models"
	"trackeco/internal/syncer"
)

func submitCmd(configPath func() string) *cobra.Command {
	var (
		quantity int
		lat, lng string
		sync     bool
	)
	cmd := &cobra.Command{
		Use:   "submit CATEGORY SUBTYPE",
		Short: "Record a waste disposal",
		Long: `Checks the disposal against the anti-cheat rules and stores it locally
if accepted. Rejections print the reason and are not errors.

The location comes from --lat/--lng, else from TRACKECO_LAT/TRACKECO_LNG.`,
		Example: `  trackeco submit plastic bottle --lat 35.6812 --lng 139.7671
  trackeco submit electronic battery --qty 2`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := disposal.Input{Category: args[0], Subtype: args[1], Quantity: quantity}
			if lat != "" || lng != "" {
				loc, err := parseLocation(lat, lng)
				if err != nil {
					return err
				}
				in.Location = loc
			}

			a, err := openApp(configPath())
			if err != nil {
				return err
			}
			defer a.Close()

			userID, err := a.userID()
			if err != nil {
				return err
			}

			res, err := a.svc.SubmitDisposal(cmd.Context(), userID, in)
			if err != nil && res.RecordID == "" {
				return err
			}

			out := cmd.OutOrStdout()
			if !res.Accepted {
				fmt.Fprintf(out, "❌ Rejected (%s): %s\n", res.Reason, res.Message)
				if res.CooldownRemainingSeconds != nil {
					fmt.Fprintf(out, "   Try again in %s\n", time.Duration(*res.CooldownRemainingSeconds)*time.Second)
				}
				return nil
			}

			fmt.Fprintf(out, "✅ Accepted: ~%d points, ~%d XP (record %s)\n",
				res.LocalPointsEstimate, res.LocalXPEstimate, res.RecordID)
			if err != nil {
				// Stored, but the anti-cheat history was not saved
				return err
			}

			if sync {
				result, err := a.svc.TriggerSync(cmd.Context(), userID)
				printSync(cmd, result, err)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&quantity, "qty", "q", 1, "number of items")
	cmd.Flags().StringVar(&lat, "lat", "", "latitude in degrees")
	cmd.Flags().StringVar(&lng, "lng", "", "longitude in degrees")
	cmd.Flags().BoolVar(&sync, "sync", true, "sync pending records right away when online")
	return cmd
}

func printSync(cmd *cobra.Command, result syncer.Result, err error) {
	out := cmd.OutOrStdout()
	switch {
	case err == nil:
		fmt.Fprintf(out, "🔄 Sync: %d synced, %d failed\n", result.Synced, result.Failed)
		for _, recErr := range result.Errors {
			fmt.Fprintf(out, "   %s: %v\n", recErr.RecordID, recErr.Err)
		}
	case syncer.IsSkip(err):
		fmt.Fprintf(out, "⏭️  Sync skipped: %v\n", err)
	default:
		fmt.Fprintf(out, "⚠️  Sync stopped after %d synced: %v\n", result.Synced, err)
	}
}

func syncCmd(configPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push pending records to the API now",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(configPath())
			if err != nil {
				return err
			}
			defer a.Close()

			userID, err := a.userID()
			if err != nil {
				return err
			}

			result, err := a.svc.TriggerSync(cmd.Context(), userID)
			printSync(cmd, result, err)
			if err != nil && !syncer.IsSkip(err) {
				return err
			}
			return nil
		},
	}
}

func displayState(rec models.WasteRecord) string {
	return string(rec.DisplayState())
}
