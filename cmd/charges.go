/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"

	"github.com/hoa-ledger/apiserver/internal/db"
	"github.com/hoa-ledger/apiserver/internal/mq"
	"github.com/hoa-ledger/apiserver/internal/server"
	"github.com/hoa-ledger/apiserver/internal/services"
	"github.com/hoa-ledger/apiserver/types"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var chargesCmd = &cobra.Command{
	Use:   "charges",
	Short: "Manage neighbor charges",
}

var generatePeriod string

var chargesGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Charge every neighbor the configured contribution for a month",
	Long: `Charge every neighbor the configured contribution for a month.
Neighbors already charged for the month are skipped, so the command can be
run repeatedly.

	hoa charges generate --period 2025-03-01
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var period types.Period
		if generatePeriod != "" {
			parsed, err := types.ParsePeriod(generatePeriod)
			if err != nil {
				return err
			}
			period = parsed
		}

		conn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		var events services.EventPublisher
		backend, err := mq.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		if backend != nil {
			defer backend.Close()
			publisher := mq.NewPublisher(backend, cfg.MQ.Channel)
			defer publisher.Close()
			events = publisher
		}

		repos := server.OpenRepositories(conn)
		ledger := services.NewLedgerService(repos.Ledger, repos.Neighbors, repos.Neighborhood, events, nil)
		result, err := ledger.GenerateCharges(cmd.Context(), period)
		if err != nil {
			return err
		}

		log.Info().
			Str("period", result.Period.String()).
			Str("amount", result.Amount.StringFixed(2)).
			Int64("created", result.Created).
			Msg("charges generated")
		return json.NewEncoder(cmd.OutOrStdout()).Encode(result)
	},
}

func init() {
	rootCmd.AddCommand(chargesCmd)
	chargesCmd.AddCommand(chargesGenerateCmd)

	chargesGenerateCmd.Flags().StringVar(&generatePeriod, "period", "", "month to charge as YYYY-MM-01 (default: current month)")
}
