// Package cli implements the trackeco device client.
package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"trackeco/internal/config"
)

var version = "0.3.0"

// NewRootCmd builds the trackeco command tree
func NewRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "trackeco",
		Short: "TrackEco device client",
		Long: `TrackEco records waste disposals on this device, checks them against
the anti-cheat rules, and syncs accepted records to the TrackEco API
whenever the network is reachable.

Records are stored locally first, so submitting works offline.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadDotEnv()
			if configPath != "" {
				return nil
			}
			dir, err := config.Dir()
			if err != nil {
				return err
			}
			configPath = filepath.Join(dir, "config.toml")
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.trackeco/config.toml)")

	paths := func() string { return configPath }
	root.AddCommand(
		loginCmd(paths),
		logoutCmd(paths),
		submitCmd(paths),
		syncCmd(paths),
		statusCmd(paths),
		recordsCmd(paths),
		deleteCmd(paths),
		purgeCmd(paths),
		daemonCmd(paths),
		configCmd(paths),
	)
	return root
}

// Execute runs the CLI
func Execute() error {
	return NewRootCmd().Execute()
}
