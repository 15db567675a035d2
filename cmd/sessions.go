/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/hrdesk/apiserver/config"
	"github.com/hrdesk/apiserver/internal/logging"
	"github.com/hrdesk/apiserver/internal/server"
	"github.com/spf13/cobra"
)

// purgeSessionsCmd deletes expired session rows. Run it from cron.
var purgeSessionsCmd = &cobra.Command{
	Use:   "purge-sessions",
	Short: "Delete expired login sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		ctx := cmd.Context()

		app, err := server.OpenApp(ctx, cfg, logging.New(cfg.Log))
		if err != nil {
			return err
		}
		defer app.Close()

		removed, err := app.Auth.PurgeExpired(ctx)
		if err != nil {
			return fmt.Errorf("purge sessions: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired sessions\n", removed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(purgeSessionsCmd)
}
