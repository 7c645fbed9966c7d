// Package main applies or rolls back the perflog schema.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/perflog/perflog/internal/migrate"
)

type migrateConfig struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
}

func main() {
	command := flag.String("command", "up", "migrate command (up|status|version|down)")
	timeout := flag.Duration("timeout", time.Minute, "command timeout")
	target := flag.Int64("target", 0, "target version for down command (optional)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil)).With("cmd", "migrate")

	var cfg migrateConfig
	if err := env.Parse(&cfg); err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	runner, err := migrate.New(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to configure migration runner", "error", err)
		os.Exit(1)
	}

	switch *command {
	case "up":
		err = runner.Up(ctx)
	case "status":
		err = runner.Status(ctx)
	case "version":
		var v int64
		v, err = runner.Version(ctx)
		if err == nil {
			logger.Info("current schema version", "version", v)
		}
	case "down":
		err = runner.Down(ctx, *target)
	default:
		logger.Error("unsupported command", "command", *command)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("migration command failed", "command", *command, "error", err)
		os.Exit(1)
	}

	logger.Info("migration command completed", "command", *command)
}
