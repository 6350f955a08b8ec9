package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"trackeco/internal/models"
)

func recordsCmd(configPath func() string) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "records",
		Short: "List local records, newest first",
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

			records, err := a.svc.Records(userID, limit)
			if err != nil {
				return err
			}
			if asJSON {
				resp := make([]models.WasteRecordResponse, 0, len(records))
				for i := range records {
					resp = append(resp, records[i].ToWasteRecordResponse())
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}

			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No records yet.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tWHEN\tWASTE\tQTY\tPOINTS\tXP\tSTATE\tATTEMPTS")
			for _, rec := range records {
				fmt.Fprintf(w, "%s\t%s\t%s/%s\t%d\t%d\t%d\t%s\t%d\n",
					rec.ID,
					time.UnixMilli(rec.CreatedAt).Format("2006-01-02 15:04"),
					rec.Category, rec.Subtype,
					rec.Quantity, rec.PointsEarned, rec.XPEarned,
					displayState(rec), rec.SyncAttempts)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of records")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func statusCmd(configPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show local and server totals",
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

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Signed in as %s\n", a.session.Email)

			stats, err := a.svc.Stats(userID)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "\nOn this device:")
			fmt.Fprintf(out, "  records: %d\n", stats.Total)
			fmt.Fprintf(out, "  pending: %d (%d with failed attempts, ~%d pts)\n", stats.Pending, stats.FailedOnce, stats.PointsPending)
			fmt.Fprintf(out, "  synced:  %d (%d pts)\n", stats.Synced, stats.PointsSynced)

			if !a.gate.IsAvailable(cmd.Context()) {
				fmt.Fprintln(out, "\nServer: offline")
				return nil
			}
			remote, err := a.client.Stats(cmd.Context())
			if err != nil {
				fmt.Fprintf(out, "\nServer: unavailable (%v)\n", err)
				return nil
			}
			fmt.Fprintln(out, "\nOn the server:")
			fmt.Fprintf(out, "  points: %d\n", remote.TotalPoints)
			fmt.Fprintf(out, "  xp:     %d (%s)\n", remote.TotalXP, remote.EcoRank)
			fmt.Fprintf(out, "  streak: %d days\n", remote.Streak)
			if remote.NextRankAtXP != nil {
				fmt.Fprintf(out, "  next rank at %d XP\n", *remote.NextRankAtXP)
			}
			return nil
		},
	}
}

func deleteCmd(configPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete RECORD_ID",
		Short: "Delete one local record",
		Long:  `Deletes a record from this device. A record already synced stays credited on the server.`,
		Args:  cobra.ExactArgs(1),
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
			if err := a.svc.DeleteRecord(userID, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func purgeCmd(configPath func() string) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every local record and the anti-cheat history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("purge deletes unsynced records too; pass --yes to confirm")
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
			removed, err := a.svc.PurgeUser(userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d record(s)\n", removed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm")
	return cmd
}
