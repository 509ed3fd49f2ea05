package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// TopicDiscountResolved carries one record per discount resolution.
const TopicDiscountResolved = "promotion.discount.resolved"

// EnsureTopic creates the topic when it does not exist yet.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string, partitions int32, replication int16) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, partitions, replication, nil, topic)
	if err != nil {
		return fmt.Errorf("events: create topic %s: %w", topic, err)
	}
	for _, detail := range resp {
		if detail.Err != nil && !errors.Is(detail.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("events: create topic %s: %w", detail.Topic, detail.Err)
		}
	}
	return nil
}
