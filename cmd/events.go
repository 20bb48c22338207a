/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/hoa-ledger/apiserver/internal/mq"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect ledger events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Log every ledger event as it is published",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		backend, err := mq.Open(ctx, cfg)
		if err != nil {
			return err
		}
		if backend == nil {
			return errors.New("no event backend configured, set MQ_BACKEND")
		}
		defer backend.Close()

		log.Info().Str("channel", cfg.MQ.Channel).Msg("waiting for events")
		err = backend.Subscribe(ctx, cfg.MQ.Channel, func(ctx context.Context, msg mq.Message) error {
			ev, err := mq.DecodeEvent(msg)
			if err != nil {
				log.Warn().Err(err).Str("id", msg.ID).Msg("undecodable event")
				return nil
			}
			entry := log.Info().
				Str("id", msg.ID).
				Str("type", ev.Type).
				Str("subject", ev.Subject).
				Time("occurred_at", ev.OccurredAt)
			if len(ev.Data) > 0 {
				entry = entry.RawJSON("data", ev.Data)
			}
			entry.Msg("event")
			return nil
		})
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
