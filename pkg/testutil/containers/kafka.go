//go:build integration

package containers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

const redpandaImage = "redpandadata/redpanda:latest"

// KafkaContainer is a single Kafka-protocol broker shared by a test binary.
type KafkaContainer struct {
	Container testcontainers.Container
	Brokers   string
}

// NewKafkaContainer starts Redpanda, which speaks the Kafka protocol and
// boots in a few seconds. The container is terminated when t finishes.
func NewKafkaContainer(t *testing.T) *KafkaContainer {
	t.Helper()
	ctx := context.Background()

	c, err := kafka.Run(ctx, redpandaImage, kafka.WithClusterID("warden-test"))
	if err != nil {
		t.Fatalf("start kafka container: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = c.Terminate(ctx)
	})

	brokers, err := c.Brokers(ctx)
	if err != nil || len(brokers) == 0 {
		t.Fatalf("resolve kafka brokers: %v", err)
	}
	return &KafkaContainer{Container: c, Brokers: brokers[0]}
}

// CreateTopic creates topic through the admin API.
func (k *KafkaContainer) CreateTopic(ctx context.Context, topic string, partitions int32, replicationFactor int16) error {
	client, err := kgo.NewClient(kgo.SeedBrokers(k.Brokers))
	if err != nil {
		return err
	}
	defer client.Close()

	resp, err := kadm.NewClient(client).CreateTopics(ctx, partitions, replicationFactor, nil, topic)
	if err != nil {
		return err
	}
	if r, ok := resp[topic]; ok && r.Err != nil {
		return fmt.Errorf("create topic %s: %w", topic, r.Err)
	}
	return nil
}

// NewConsumer returns a group consumer reading topics from the start.
func (k *KafkaContainer) NewConsumer(_ context.Context, groupID string, topics ...string) (*kgo.Client, error) {
	return kgo.NewClient(
		kgo.SeedBrokers(k.Brokers),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topics...),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		kgo.DisableAutoCommit(),
	)
}

// Drain polls until want records have arrived or timeout elapses and returns
// what it got.
func (k *KafkaContainer) Drain(ctx context.Context, client *kgo.Client, want int, timeout time.Duration) []*kgo.Record {
	var out []*kgo.Record
	k.poll(ctx, client, timeout, func(r *kgo.Record) bool {
		out = append(out, r)
		return len(out) >= want
	})
	return out
}

// WaitForMessage returns the first record matching match, or nil on timeout.
func (k *KafkaContainer) WaitForMessage(ctx context.Context, client *kgo.Client, timeout time.Duration, match func(*kgo.Record) bool) *kgo.Record {
	var found *kgo.Record
	k.poll(ctx, client, timeout, func(r *kgo.Record) bool {
		if match(r) {
			found = r
		}
		return found != nil
	})
	return found
}

// poll feeds records to visit until it returns true, the client closes or
// timeout elapses.
func (k *KafkaContainer) poll(ctx context.Context, client *kgo.Client, timeout time.Duration, visit func(*kgo.Record) bool) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for ctx.Err() == nil {
		fetches := client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return
		}
		done := false
		fetches.EachRecord(func(r *kgo.Record) {
			if !done {
				done = visit(r)
			}
		})
		if done {
			return
		}
	}
}
