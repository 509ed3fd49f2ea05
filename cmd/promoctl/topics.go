package main

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/noah-isme/toko-promo/internal/events"
)

func (c *cli) topicsCmd() *cobra.Command {
	var (
		brokers     string
		topic       string
		partitions  int32
		replication int16
	)

	ensure := &cobra.Command{
		Use:   "ensure",
		Short: "Create the discount event topic if it is missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			seeds := splitCSV(brokers)
			if len(seeds) == 0 {
				return errors.New("KAFKA_BROKERS is required")
			}
			client, err := kgo.NewClient(kgo.SeedBrokers(seeds...), kgo.ClientID("promoctl"))
			if err != nil {
				return err
			}
			defer client.Close()

			if err := events.EnsureTopic(cmd.Context(), client, topic, partitions, replication); err != nil {
				return err
			}
			c.logger.Info().Str("topic", topic).Int32("partitions", partitions).Msg("topic ready")
			return nil
		},
	}
	defaultTopic := os.Getenv("KAFKA_DISCOUNT_TOPIC")
	if defaultTopic == "" {
		defaultTopic = events.TopicDiscountResolved
	}
	ensure.Flags().StringVar(&brokers, "brokers", os.Getenv("KAFKA_BROKERS"), "comma separated seed brokers")
	ensure.Flags().StringVar(&topic, "topic", defaultTopic, "topic name")
	ensure.Flags().Int32Var(&partitions, "partitions", 3, "partition count")
	ensure.Flags().Int16Var(&replication, "replication", 1, "replication factor")

	cmd := &cobra.Command{Use: "topics", Short: "Manage Kafka topics"}
	cmd.AddCommand(ensure)
	return cmd
}

func splitCSV(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
