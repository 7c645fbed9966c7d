// Package main is the entrypoint for the perflog service.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/perflog/perflog/internal/bus"
	"github.com/perflog/perflog/internal/config"
	"github.com/perflog/perflog/internal/handler"
	"github.com/perflog/perflog/internal/metrics"
	"github.com/perflog/perflog/internal/middleware"
	"github.com/perflog/perflog/internal/migrate"
	"github.com/perflog/perflog/internal/perf"
	"github.com/perflog/perflog/internal/repository"
	"github.com/perflog/perflog/internal/server"
	"github.com/perflog/perflog/internal/stream"
	"github.com/perflog/perflog/internal/txdecode"
	"github.com/perflog/perflog/internal/txstatus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error("perflog stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder, err := metrics.NewPrometheus(reg)
	if err != nil {
		return err
	}

	b := bus.New(logger)
	tracker := perf.NewTracker(logger, recorder)
	reg.MustRegister(perf.NewCollector(tracker))

	deps := routerDeps{
		cfg:       cfg,
		logger:    logger,
		tracker:   tracker,
		gatherer:  reg,
		submitter: b,
	}

	if cfg.StatLog {
		tracker.Subscribe(b)
		deps.perf = b
		logger.Info("api performance tracking enabled")
	}

	var repo *repository.Repository
	if cfg.DatabaseURL != "" {
		if cfg.AutoMigrate {
			if err := runMigrations(ctx, cfg, logger); err != nil {
				return err
			}
		}

		repo, err = repository.New(ctx, cfg.DatabaseURL, repository.PoolOptions{
			MaxConns:        cfg.DBMaxConns,
			MinConns:        cfg.DBMinConns,
			MaxConnIdleTime: cfg.DBMaxConnIdleTime,
		})
		if err != nil {
			logger.Error(
				"failed to connect to database",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
				slog.String("database_url", redactURL(cfg.DatabaseURL)),
			)
			return errors.New("database unavailable")
		}
		defer repo.Close()
		logger.Info("connected to database")

		deps.db = repo
		deps.reader = repo
	}

	// Registered in start order; the server stops them in reverse.
	var steps []shutdownStep

	if cfg.RecordTxStatus {
		classifier := txstatus.NewClassifier(txdecode.NewEthereum(), logger, recorder)
		persister := txstatus.NewPersister(repo, logger, recorder)
		pipeline := txstatus.NewPipeline(classifier, persister, logger, recorder)
		pipeline.Subscribe(b)
		steps = append(steps, shutdownStep{"tx status pipeline", pipeline.Shutdown})
		logger.Info("tx status recording enabled")
	} else if cfg.StreamEnabled() {
		logger.Warn("stream transport enabled without RECORD_TX_STATUS, batches will be discarded")
	}

	if cfg.StreamEnabled() {
		client, err := stream.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			return errors.New("redis unavailable")
		}
		defer client.Close()
		logger.Info("connected to Redis")

		worker := stream.NewWorker(client, b, logger, stream.NewConsumerID(), recorder)
		stream.Tuning{
			BatchSize:     cfg.TxStreamBatchSize,
			BlockTimeout:  cfg.TxStreamBlockTimeout,
			ClaimInterval: cfg.TxStreamClaimInterval,
			ClaimIdle:     cfg.TxStreamClaimIdle,
		}.Apply(worker)
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("stream worker stopped", "error", err)
			}
		}()
		steps = append(steps, shutdownStep{"stream worker", worker.Shutdown})

		deps.submitter = stream.NewPublisher(client, logger, recorder)
		deps.redis = redisPinger{client: client}
	}

	if cfg.StatLog {
		steps = append(steps, shutdownStep{"perf reporter", startReporter(ctx, tracker, cfg.ReportInterval, logger)})
	}

	srv := server.New(setupRouter(deps), server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)
	for _, step := range steps {
		srv.OnShutdown(step.name, step.fn)
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"stat_log", cfg.StatLog,
		"record_tx_status", cfg.RecordTxStatus,
		"stream", cfg.StreamEnabled(),
	)

	return srv.Run(ctx)
}

func runMigrations(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	runner, err := migrate.New(cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	if err := runner.Up(ctx); err != nil {
		logger.Error("failed to apply migrations",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
		)
		return errors.New("migrations failed")
	}
	return nil
}

type shutdownStep struct {
	name string
	fn   server.ShutdownFunc
}

// startReporter logs a report every interval and returns a ShutdownFunc
// that stops the loop and logs a final report.
func startReporter(ctx context.Context, tracker *perf.Tracker, interval time.Duration, logger *slog.Logger) server.ShutdownFunc {
	reportLogger := logger.With("component", "perf.report")

	reportCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := tracker.RunReporter(reportCtx, interval); err != nil && !errors.Is(err, context.Canceled) {
			reportLogger.Error("reporter stopped", "error", err)
		}
	}()

	return func(ctx context.Context) error {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		perf.LogReport(reportLogger, tracker.Report())
		return nil
	}
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

var _ handler.HealthChecker = redisPinger{}
var _ middleware.PerfEmitter = (*bus.Bus)(nil)
