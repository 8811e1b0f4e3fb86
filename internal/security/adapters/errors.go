package adapters

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"warden/internal/platform/kafka/producer"
	"warden/internal/sentinel"
)

// classify tags a client error with the sentinel the flusher and dispatcher
// branch on. The original error stays in the chain.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, nats.ErrTimeout):
		return fmt.Errorf("%s: %w: %w", op, sentinel.ErrTimeout, err)
	case errors.Is(err, producer.ErrClosed),
		errors.Is(err, redis.ErrClosed),
		errors.Is(err, nats.ErrConnectionClosed),
		errors.Is(err, errSinkClosed):
		return fmt.Errorf("%s: %w: %w", op, sentinel.ErrClosed, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
	}
}

var errSinkClosed = errors.New("sink closed")
