package adapters

import (
	"context"

	"warden/internal/platform/kafka/producer"
	"warden/internal/security/models"
)

type batchProducer interface {
	ProduceBatch(ctx context.Context, msgs []producer.Message) error
}

// KafkaSink writes one Kafka record per log record; the stream name is the
// topic. Records are keyed by user so a user's timeline stays ordered within
// its partition.
type KafkaSink struct {
	producer batchProducer
	codec    *codec
}

func NewKafkaSink(p batchProducer) (*KafkaSink, error) {
	c, err := newCodec(false)
	if err != nil {
		return nil, err
	}
	return &KafkaSink{producer: p, codec: c}, nil
}

func (s *KafkaSink) SubmitBatch(ctx context.Context, stream string, records []models.LogRecord) error {
	msgs := make([]producer.Message, 0, len(records))
	for _, r := range records {
		value, err := s.codec.encode(r)
		if err != nil {
			return err
		}
		msgs = append(msgs, producer.Message{
			Topic: stream,
			Key:   []byte(partitionKey(r)),
			Value: value,
			Headers: map[string]string{
				"record_id":   r.ID,
				"record_type": string(r.Type),
			},
		})
	}
	return classify("kafka sink", s.producer.ProduceBatch(ctx, msgs))
}
