package adapters

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"warden/internal/security/models"
)

const (
	fieldID       = "id"
	fieldType     = "type"
	fieldEncoding = "encoding"
	fieldPayload  = "payload"
)

// RedisSink appends log records to Redis Streams with one pipelined XADD per
// record. Streams are trimmed approximately to maxLen when it is positive.
type RedisSink struct {
	client redis.Cmdable
	maxLen int64
	codec  *codec
}

type RedisOption func(*redisOptions)

type redisOptions struct {
	maxLen   int64
	compress bool
}

func WithStreamMaxLen(n int64) RedisOption {
	return func(o *redisOptions) {
		if n > 0 {
			o.maxLen = n
		}
	}
}

// WithCompression stores payloads as zstd-compressed JSON.
func WithCompression(on bool) RedisOption {
	return func(o *redisOptions) {
		o.compress = on
	}
}

func NewRedisSink(client redis.Cmdable, opts ...RedisOption) (*RedisSink, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	var o redisOptions
	for _, opt := range opts {
		opt(&o)
	}
	c, err := newCodec(o.compress)
	if err != nil {
		return nil, err
	}
	return &RedisSink{client: client, maxLen: o.maxLen, codec: c}, nil
}

func (s *RedisSink) SubmitBatch(ctx context.Context, stream string, records []models.LogRecord) error {
	if len(records) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for _, r := range records {
		payload, err := s.codec.encode(r)
		if err != nil {
			return err
		}
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: stream,
			MaxLen: s.maxLen,
			Approx: s.maxLen > 0,
			Values: map[string]any{
				fieldID:       r.ID,
				fieldType:     string(r.Type),
				fieldEncoding: s.codec.encoding(),
				fieldPayload:  payload,
			},
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return classify("redis sink", err)
	}
	return nil
}

// Decode rebuilds a log record from a stream entry written by SubmitBatch.
func (s *RedisSink) Decode(msg redis.XMessage) (models.LogRecord, error) {
	enc, _ := msg.Values[fieldEncoding].(string)
	payload, _ := msg.Values[fieldPayload].(string)
	return s.codec.decode(enc, []byte(payload))
}

func (s *RedisSink) Close() {
	s.codec.close()
}
