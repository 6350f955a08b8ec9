package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"trackeco/internal/config"
)

func configCmd(configPath func() string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the client configuration",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			if err := config.Save(path, config.DefaultConfig(filepath.Dir(path))); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "api.base_url       = %s\n", cfg.API.BaseURL)
			fmt.Fprintf(out, "api.timeout        = %s\n", cfg.APITimeout())
			fmt.Fprintf(out, "storage.path       = %s\n", cfg.Storage.Path)
			fmt.Fprintf(out, "sync.interval      = %s\n", cfg.SyncInterval())
			fmt.Fprintf(out, "sync.run_on_start  = %v\n", cfg.Sync.RunOnStart)
			fmt.Fprintf(out, "sync.low_battery   = %d%%\n", cfg.Sync.LowBatteryPercent)
			fmt.Fprintf(out, "metrics.listen     = %s\n", cfg.Metrics.Listen)
			return nil
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
