// Package adapters implements the log sink and alert channel ports on top of
// Kafka, Redis Streams, NATS and slog, plus an in-memory sink for tests and
// local runs.
package adapters
