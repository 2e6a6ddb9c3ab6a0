package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"TitanMusic/core/catalog"
	"TitanMusic/events"

	"github.com/spf13/cobra"
)

var eventsGroup string

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Tail track lifecycle events from Kafka",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(cfg.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is not set")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		consumer := events.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, eventsGroup)
		defer consumer.Close()

		enc := json.NewEncoder(cmd.OutOrStdout())
		fmt.Fprintf(cmd.ErrOrStderr(), "Listening on %s...\n", cfg.KafkaTopic)
		err := consumer.Consume(ctx, func(evt catalog.Event) error {
			return enc.Encode(evt)
		})
		if errors.Is(err, ctx.Err()) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().StringVarP(&eventsGroup, "group", "g", "", "consumer group id (empty reads new events only)")
}
