package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthChecker(t *testing.T) {
	ok := NewHealthChecker(pingFunc(func(context.Context) error { return nil }))
	assert.NoError(t, ok.Check(context.Background()))
	assert.Equal(t, "kafka", ok.Name())

	down := NewHealthChecker(pingFunc(func(context.Context) error { return errors.New("dial tcp: connection refused") }))
	err := down.Check(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no kafka brokers reachable")

	assert.Error(t, NewHealthChecker(nil).Check(context.Background()))
}

func TestDefaultProducerConfig(t *testing.T) {
	cfg := DefaultProducerConfig()
	assert.Equal(t, "all", cfg.Acks)
	assert.Equal(t, 3, cfg.Retries)
	assert.Equal(t, "warden", cfg.ClientID)
}

func TestSeedBrokers(t *testing.T) {
	cfg := ProducerConfig{Brokers: " a:9092, ,b:9092,"}
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.SeedBrokers())
	assert.Empty(t, ProducerConfig{}.SeedBrokers())
}
