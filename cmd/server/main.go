package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"warden/internal/platform/config"
	"warden/internal/platform/health"
	"warden/internal/platform/kafka"
	"warden/internal/platform/kafka/producer"
	"warden/internal/platform/logger"
	platformredis "warden/internal/platform/redis"
	"warden/internal/security/adapters"
	"warden/internal/security/anomaly"
	"warden/internal/security/compliance"
	"warden/internal/security/metrics"
	"warden/internal/security/monitor"
	"warden/internal/security/ports"
	"warden/internal/server"
	"warden/pkg/platform/middleware/metadata"
)

const poolStatsInterval = 15 * time.Second

// main wires configuration, the log sink, the alert channel and the monitor,
// then serves HTTP until SIGINT or SIGTERM. On shutdown the server stops
// accepting requests before the monitor's final flush.
func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not load .env file", "error", err)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("warden stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("warden stopped")
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hc := health.New(cfg.Server.Environment)
	background, cancelBackground := context.WithCancel(context.Background())
	defer cancelBackground()
	g := new(errgroup.Group)

	sink, closeSink, err := buildSink(ctx, cfg, log, hc, g, background)
	if err != nil {
		return err
	}
	defer closeSink()

	channel, closeChannel, err := buildAlertChannel(cfg, log, hc)
	if err != nil {
		return err
	}
	defer closeChannel()

	mon, err := monitor.New(sink, channel,
		monitor.WithConfig(monitorConfig(cfg.Security)),
		monitor.WithLogger(log),
		monitor.WithMetrics(metrics.New()),
	)
	if err != nil {
		return fmt.Errorf("build monitor: %w", err)
	}
	hc.RegisterStats("flusher", func() any { return mon.FlushStats() })
	hc.RegisterStats("alerts", func() any { return mon.AlertStats() })

	proxies, err := metadata.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return fmt.Errorf("trusted proxies: %w", err)
	}
	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: server.NewRouter(server.Deps{
			Service:        mon,
			Health:         hc,
			Logger:         log,
			TrustedProxies: proxies,
			MaxBodyBytes:   cfg.Server.MaxBodyBytes,
			Metrics:        true,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	g.Go(func() error { return mon.Run(background) })
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Server.Addr, "sink", cfg.Sink.Kind, "alerts", cfg.Alerts.Kind)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			stop()
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		cancelBackground()
		if err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// buildSink returns the configured log sink and its cleanup. Broker-backed
// sinks also register a readiness check.
func buildSink(ctx context.Context, cfg *config.Config, log *slog.Logger, hc *health.Handler, g *errgroup.Group, background context.Context) (ports.LogSink, func(), error) {
	switch cfg.Sink.Kind {
	case config.SinkKafka:
		pc := kafka.DefaultProducerConfig()
		pc.Brokers = cfg.Sink.Kafka.Brokers
		pc.Acks = cfg.Sink.Kafka.Acks
		pc.Retries = cfg.Sink.Kafka.Retries
		pc.DeliveryTimeout = cfg.Sink.Kafka.DeliveryTimeout
		prod, err := producer.New(pc, log)
		if err != nil {
			return nil, nil, err
		}
		sink, err := adapters.NewKafkaSink(prod)
		if err != nil {
			prod.Close(time.Second)
			return nil, nil, err
		}
		checker := kafka.NewHealthChecker(prod)
		hc.RegisterCheck(checker.Name(), checker.Check)
		return sink, func() { prod.Close(cfg.Server.ShutdownTimeout) }, nil

	case config.SinkRedis:
		client, err := platformredis.New(ctx, cfg.Sink.Redis)
		if err != nil {
			return nil, nil, err
		}
		sink, err := adapters.NewRedisSink(client.Client,
			adapters.WithStreamMaxLen(cfg.Sink.Redis.StreamMaxLen),
			adapters.WithCompression(cfg.Sink.Redis.Compress),
		)
		if err != nil {
			client.Close() //nolint:errcheck // startup failure
			return nil, nil, err
		}
		hc.RegisterCheck("redis", client.Health)
		g.Go(func() error {
			ticker := time.NewTicker(poolStatsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-background.Done():
					return nil
				case <-ticker.C:
					client.RecordPoolStats()
				}
			}
		})
		return sink, func() {
			sink.Close()
			if err := client.Close(); err != nil {
				log.Warn("redis close failed", "error", err)
			}
		}, nil

	default:
		log.Warn("using in-memory log sink; records are not durable")
		return adapters.NewMemorySink(), func() {}, nil
	}
}

func buildAlertChannel(cfg *config.Config, log *slog.Logger, hc *health.Handler) (ports.AlertChannel, func(), error) {
	if cfg.Alerts.Kind != config.AlertsNATS {
		return adapters.NewLogChannel(log), func() {}, nil
	}
	nc, err := adapters.ConnectNATS(cfg.Alerts.NATSURL, "warden", log)
	if err != nil {
		return nil, nil, err
	}
	channel, err := adapters.NewNATSChannel(nc, cfg.Alerts.SubjectPrefix)
	if err != nil {
		nc.Close()
		return nil, nil, err
	}
	hc.RegisterCheck("nats", adapters.NATSHealth(nc))
	return channel, func() {
		if err := nc.Drain(); err != nil {
			log.Warn("nats drain failed", "error", err)
		}
	}, nil
}

func monitorConfig(s config.Security) monitor.Config {
	compCfg := compliance.DefaultConfig()
	compCfg.GDPRRetention = s.GDPRRetention
	anomalyCfg := anomaly.DefaultConfig()

	return monitor.Config{
		FlushInterval:      s.FlushInterval,
		FlushThreshold:     s.FlushThreshold,
		FlushMaxAttempts:   s.FlushMaxAttempts,
		FlushRetryBackoff:  s.FlushRetryBackoff,
		SinkTimeout:        s.SinkTimeout,
		MaxRetryBatches:    s.MaxRetryBatches,
		MaxBatchRecords:    s.MaxBatchRecords,
		StreamPrefix:       s.StreamPrefix,
		RateLimitPerMinute: s.RateLimitPerMinute,
		RateLimitPerHour:   s.RateLimitPerHour,
		ScanInterval:       s.ScanInterval,
		DedupeSize:         s.DedupeSize,
		Anomaly:            &anomalyCfg,
		Compliance:         &compCfg,
		RetentionWindow:    s.RetentionWindow,
		RetentionInterval:  s.RetentionInterval,
		AlertQueueSize:     s.AlertQueueSize,
		AlertTimeout:       s.AlertTimeout,
	}
}
