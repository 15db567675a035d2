/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hrdesk/apiserver/config"
	"github.com/hrdesk/apiserver/internal/logging"
	"github.com/hrdesk/apiserver/internal/mq"
	"github.com/hrdesk/apiserver/internal/services"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect audit events",
}

// eventsTailCmd prints audit events from the configured channel until interrupted.
var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print audit events as they are published",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := logging.New(cfg.Log)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		queue, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return fmt.Errorf("open mq: %w", err)
		}
		defer queue.Close()

		out := cmd.OutOrStdout()
		logger.Info("tailing audit events", "channel", cfg.MQ.Channel, "backend", cfg.MQ.Backend)
		err = queue.Subscribe(ctx, cfg.MQ.Channel, func(ctx context.Context, msg mq.Message) error {
			var event services.Event
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				// Unreadable payloads are acknowledged so they are not redelivered forever.
				logger.Warn("skipping malformed event", "message_id", msg.ID, "error", err)
				return nil
			}
			fmt.Fprintf(out, "%s %-24s actor=%d entity=%d",
				event.At.Format("2006-01-02T15:04:05Z07:00"), event.Type, event.ActorID, event.EntityID)
			if len(event.Details) > 0 {
				details, _ := json.Marshal(event.Details)
				fmt.Fprintf(out, " %s", details)
			}
			fmt.Fprintln(out)
			return nil
		})
		if err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
