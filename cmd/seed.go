/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hrdesk/apiserver/config"
	"github.com/hrdesk/apiserver/internal/logging"
	"github.com/hrdesk/apiserver/internal/server"
	"github.com/hrdesk/apiserver/internal/services"
	"github.com/spf13/cobra"
)

var seedAdminPassword string

// seedCmd creates the primary admin account and the default department.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the primary admin and default department",
	Long: `Creates the primary admin account and the default department when they
are missing. The password comes from --admin-password or ADMIN_PASSWORD;
there is no built-in default.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password := strings.TrimSpace(seedAdminPassword)
		if password == "" {
			password = strings.TrimSpace(os.Getenv("ADMIN_PASSWORD"))
		}
		if password == "" {
			return errors.New("admin password is required (--admin-password or ADMIN_PASSWORD)")
		}

		cfg := config.LoadConfig()
		logger := logging.New(cfg.Log)
		ctx := cmd.Context()

		app, err := server.OpenApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		created, err := app.Users.EnsurePrimaryAdmin(ctx, password)
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		if created {
			fmt.Fprintf(cmd.OutOrStdout(), "created admin user %q\n", cfg.Access.PrimaryAdminUsername)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "admin user %q already exists\n", cfg.Access.PrimaryAdminUsername)
		}

		_, created, err = app.Departments.EnsureDefault(ctx, services.DefaultDepartmentName)
		if err != nil {
			return fmt.Errorf("seed department: %w", err)
		}
		if created {
			fmt.Fprintf(cmd.OutOrStdout(), "created department %q\n", services.DefaultDepartmentName)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringVar(&seedAdminPassword, "admin-password", "", "password for the primary admin account")
}
