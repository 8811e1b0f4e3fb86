package kafka

import (
	"strings"
	"time"
)

// ProducerConfig holds the settings of the security record producer.
type ProducerConfig struct {
	// Brokers is a comma separated seed list.
	Brokers         string
	ClientID        string
	Acks            string
	Retries         int
	Linger          time.Duration
	DeliveryTimeout time.Duration
}

// DefaultProducerConfig favours durability: every in-sync replica must
// acknowledge a security record before the flusher treats it as delivered.
func DefaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		ClientID:        "warden",
		Acks:            "all",
		Retries:         3,
		Linger:          5 * time.Millisecond,
		DeliveryTimeout: 30 * time.Second,
	}
}

// SeedBrokers splits Brokers, dropping blanks.
func (c ProducerConfig) SeedBrokers() []string {
	var out []string
	for b := range strings.SplitSeq(c.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
