package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"WARDEN_ADDR" envDefault:":8080"`
	Environment     string        `env:"WARDEN_ENV" envDefault:"development"`
	ReadTimeout     time.Duration `env:"WARDEN_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"WARDEN_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"WARDEN_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"WARDEN_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	MaxBodyBytes    int64         `env:"WARDEN_MAX_BODY_BYTES" envDefault:"1048576"`
	// TrustedProxies lists CIDRs whose forwarding headers are honoured.
	TrustedProxies []string `env:"WARDEN_TRUSTED_PROXIES" envSeparator:","`
}

type Log struct {
	Level string `env:"WARDEN_LOG_LEVEL" envDefault:"info"`
}

// Security tunes the monitor. Durations accept time.ParseDuration syntax.
type Security struct {
	FlushInterval     time.Duration `env:"WARDEN_FLUSH_INTERVAL" envDefault:"30s"`
	FlushThreshold    int           `env:"WARDEN_FLUSH_THRESHOLD" envDefault:"100"`
	FlushMaxAttempts  int           `env:"WARDEN_FLUSH_MAX_ATTEMPTS" envDefault:"3"`
	FlushRetryBackoff time.Duration `env:"WARDEN_FLUSH_RETRY_BACKOFF" envDefault:"1s"`
	SinkTimeout       time.Duration `env:"WARDEN_SINK_TIMEOUT" envDefault:"10s"`
	MaxRetryBatches   int           `env:"WARDEN_MAX_RETRY_BATCHES" envDefault:"100"`
	MaxBatchRecords   int           `env:"WARDEN_MAX_BATCH_RECORDS" envDefault:"500"`
	StreamPrefix      string        `env:"WARDEN_STREAM_PREFIX"`

	RateLimitPerMinute int `env:"WARDEN_RATE_LIMIT_PER_MINUTE" envDefault:"100"`
	RateLimitPerHour   int `env:"WARDEN_RATE_LIMIT_PER_HOUR" envDefault:"1000"`

	ScanInterval time.Duration `env:"WARDEN_SCAN_INTERVAL" envDefault:"5m"`
	DedupeSize   int           `env:"WARDEN_DEDUPE_SIZE" envDefault:"10000"`

	RetentionWindow   time.Duration `env:"WARDEN_RETENTION_WINDOW" envDefault:"24h"`
	RetentionInterval time.Duration `env:"WARDEN_RETENTION_INTERVAL" envDefault:"5m"`
	GDPRRetention     time.Duration `env:"WARDEN_GDPR_RETENTION" envDefault:"720h"`

	AlertQueueSize int           `env:"WARDEN_ALERT_QUEUE_SIZE" envDefault:"256"`
	AlertTimeout   time.Duration `env:"WARDEN_ALERT_TIMEOUT" envDefault:"5s"`
}

const (
	SinkMemory = "memory"
	SinkKafka  = "kafka"
	SinkRedis  = "redis"

	AlertsLog  = "log"
	AlertsNATS = "nats"
)

// Sink selects and configures the durable log destination.
type Sink struct {
	Kind  string `env:"WARDEN_SINK" envDefault:"memory"`
	Kafka Kafka
	Redis Redis
}

type Kafka struct {
	Brokers         string        `env:"WARDEN_KAFKA_BROKERS"`
	Acks            string        `env:"WARDEN_KAFKA_ACKS" envDefault:"all"`
	Retries         int           `env:"WARDEN_KAFKA_RETRIES" envDefault:"3"`
	DeliveryTimeout time.Duration `env:"WARDEN_KAFKA_DELIVERY_TIMEOUT" envDefault:"30s"`
}

type Redis struct {
	URL          string        `env:"WARDEN_REDIS_URL"`
	PoolSize     int           `env:"WARDEN_REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"WARDEN_REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"WARDEN_REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"WARDEN_REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"WARDEN_REDIS_WRITE_TIMEOUT" envDefault:"3s"`
	// StreamMaxLen caps each stream with approximate trimming; 0 disables it.
	StreamMaxLen int64 `env:"WARDEN_REDIS_STREAM_MAXLEN" envDefault:"100000"`
	Compress     bool  `env:"WARDEN_REDIS_COMPRESS" envDefault:"false"`
}

// Alerts selects and configures the alert channel.
type Alerts struct {
	Kind          string `env:"WARDEN_ALERTS" envDefault:"log"`
	NATSURL       string `env:"WARDEN_NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	SubjectPrefix string `env:"WARDEN_NATS_SUBJECT_PREFIX" envDefault:"warden.alerts"`
}

type Config struct {
	Server   Server
	Log      Log
	Security Security
	Sink     Sink
	Alerts   Alerts
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if !slices.Contains([]string{SinkMemory, SinkKafka, SinkRedis}, c.Sink.Kind) {
		return fmt.Errorf("WARDEN_SINK must be one of memory, kafka, redis; got %q", c.Sink.Kind)
	}
	if c.Sink.Kind == SinkKafka && c.Sink.Kafka.Brokers == "" {
		return fmt.Errorf("WARDEN_KAFKA_BROKERS is required when WARDEN_SINK=kafka")
	}
	if c.Sink.Kind == SinkRedis && c.Sink.Redis.URL == "" {
		return fmt.Errorf("WARDEN_REDIS_URL is required when WARDEN_SINK=redis")
	}
	if !slices.Contains([]string{AlertsLog, AlertsNATS}, c.Alerts.Kind) {
		return fmt.Errorf("WARDEN_ALERTS must be one of log, nats; got %q", c.Alerts.Kind)
	}
	return nil
}
