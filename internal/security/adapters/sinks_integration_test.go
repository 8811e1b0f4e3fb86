//go:build integration

package adapters_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"warden/internal/platform/config"
	"warden/internal/platform/kafka"
	"warden/internal/platform/kafka/producer"
	platformredis "warden/internal/platform/redis"
	"warden/internal/security/adapters"
	"warden/internal/security/models"
	"warden/pkg/testutil"
	"warden/pkg/testutil/containers"
)

type SinkIntegrationSuite struct {
	suite.Suite
}

func TestSinkIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(SinkIntegrationSuite))
}

func records() []models.LogRecord {
	out := make([]models.LogRecord, 0, 3)
	for i, user := range []string{"alice", "alice", "bob"} {
		e := testutil.FailedLogin(user, "203.0.113.5").At(testutil.T0.Add(time.Duration(i) * time.Second)).Build()
		e.ID = "evt-" + string(rune('a'+i))
		out = append(out, models.EventRecord(e))
	}
	return out
}

func (s *SinkIntegrationSuite) TestKafkaSinkDeliversEveryRecord() {
	ctx := context.Background()
	kc := containers.GetManager().GetKafka(s.T())
	const topic = "it.security-events"
	s.Require().NoError(kc.CreateTopic(ctx, topic, 3, 1))

	cfg := kafka.DefaultProducerConfig()
	cfg.Brokers = kc.Brokers
	prod, err := producer.New(cfg, nil)
	s.Require().NoError(err)
	defer prod.Close(5 * time.Second)

	sink, err := adapters.NewKafkaSink(prod)
	s.Require().NoError(err)
	s.Require().NoError(sink.SubmitBatch(ctx, topic, records()))

	consumer, err := kc.NewConsumer(ctx, "it-kafka-sink", topic)
	s.Require().NoError(err)
	defer consumer.Close()

	got := kc.Drain(ctx, consumer, 3, 15*time.Second)
	s.Require().Len(got, 3)

	partitions := map[string]int32{}
	for _, r := range got {
		var rec models.LogRecord
		s.Require().NoError(json.Unmarshal(r.Value, &rec))
		s.Equal(models.RecordSecurityEvent, rec.Type)
		if p, seen := partitions[string(r.Key)]; seen {
			s.Equal(p, r.Partition, "one user's records share a partition")
		}
		partitions[string(r.Key)] = r.Partition
	}
}

func (s *SinkIntegrationSuite) TestRedisSinkAppendsToStream() {
	ctx := context.Background()
	rc := containers.GetManager().GetRedis(s.T())

	client, err := platformredis.New(ctx, config.Redis{URL: rc.URL})
	s.Require().NoError(err)
	defer client.Close()

	sink, err := adapters.NewRedisSink(client.Client, adapters.WithCompression(true), adapters.WithStreamMaxLen(1000))
	s.Require().NoError(err)
	defer sink.Close()

	const stream = "it.security-events"
	in := records()
	s.Require().NoError(sink.SubmitBatch(ctx, stream, in))

	entries, err := client.XRange(ctx, stream, "-", "+").Result()
	s.Require().NoError(err)
	s.Require().Len(entries, len(in))
	for i, entry := range entries {
		rec, err := sink.Decode(entry)
		s.Require().NoError(err)
		s.Equal(in[i].ID, rec.ID, "stream order matches submission order")
	}
	s.NoError(client.Health(ctx))
}
