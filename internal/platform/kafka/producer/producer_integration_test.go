//go:build integration

package producer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"warden/internal/platform/kafka"
	"warden/internal/platform/kafka/producer"
	"warden/pkg/testutil/containers"
)

type ProducerIntegrationSuite struct {
	suite.Suite
	kafka    *containers.KafkaContainer
	producer *producer.Producer
}

func TestProducerIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ProducerIntegrationSuite))
}

func (s *ProducerIntegrationSuite) SetupSuite() {
	s.kafka = containers.GetManager().GetKafka(s.T())

	cfg := kafka.DefaultProducerConfig()
	cfg.Brokers = s.kafka.Brokers
	cfg.DeliveryTimeout = 10 * time.Second
	prod, err := producer.New(cfg, nil)
	s.Require().NoError(err)
	s.producer = prod
}

func (s *ProducerIntegrationSuite) TearDownSuite() {
	if s.producer != nil {
		s.producer.Close(5 * time.Second)
	}
}

// ProduceBatch only returns after the broker acknowledged every record.
func (s *ProducerIntegrationSuite) TestProduceBatchDeliversAllRecords() {
	ctx := context.Background()
	topic := "security-events-batch"
	s.Require().NoError(s.kafka.CreateTopic(ctx, topic, 1, 1))

	err := s.producer.ProduceBatch(ctx, []producer.Message{
		{Topic: topic, Key: []byte("evt-1"), Value: []byte(`{"id":"evt-1"}`)},
		{Topic: topic, Key: []byte("evt-2"), Value: []byte(`{"id":"evt-2"}`), Headers: map[string]string{"record_type": "security_event"}},
	})
	s.Require().NoError(err)

	consumer, err := s.kafka.NewConsumer(ctx, "producer-batch-group", topic)
	s.Require().NoError(err)
	defer consumer.Close()

	record := s.kafka.WaitForMessage(ctx, consumer, 10*time.Second, func(r *kgo.Record) bool {
		return string(r.Key) == "evt-2"
	})
	s.Require().NotNil(record)
	s.Equal(`{"id":"evt-2"}`, string(record.Value))
	s.Require().Len(record.Headers, 1)
	s.Equal("security_event", string(record.Headers[0].Value))
}

func (s *ProducerIntegrationSuite) TestProduceAutoCreatesTopic() {
	ctx := context.Background()
	topic := "security-auto-" + time.Now().Format("20060102150405")

	s.Require().NoError(s.producer.ProduceBatch(ctx, []producer.Message{
		{Topic: topic, Key: []byte("auto"), Value: []byte("{}")},
	}))

	consumer, err := s.kafka.NewConsumer(ctx, "producer-auto-group", topic)
	s.Require().NoError(err)
	defer consumer.Close()

	s.NotNil(s.kafka.WaitForMessage(ctx, consumer, 10*time.Second, func(r *kgo.Record) bool {
		return string(r.Key) == "auto"
	}))
}

func (s *ProducerIntegrationSuite) TestPing() {
	s.NoError(s.producer.Ping(context.Background()))
}
