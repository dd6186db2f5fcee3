/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/uimarket/uimarket/internal/mq"
	"github.com/uimarket/uimarket/types"
)

// eventsCmd groups event bus commands.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect domain events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Log every event published on the events channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		broker, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		defer broker.Close()

		slog.Info("tailing events", "backend", cfg.MQ.Backend, "channel", cfg.MQ.Channel)
		err = mq.SubscribeEvents(ctx, broker, cfg.MQ.Channel,
			func(ctx context.Context, event types.Event) error {
				attrs := []any{
					"type", event.Type,
					"component_id", event.ComponentID,
					"user_id", event.UserID,
					"occurred_at", event.OccurredAt,
				}
				if event.IsFavorite != nil {
					attrs = append(attrs, "is_favorite", *event.IsFavorite)
				}
				slog.InfoContext(ctx, "event", attrs...)
				return nil
			},
			func(msg mq.Message, err error) {
				slog.Warn("skipping message", "id", msg.ID, "error", err)
			},
		)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
