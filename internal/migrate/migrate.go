// Package migrate applies the embedded goose migrations.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/perflog/perflog/migrations"
)

const runTimeout = time.Minute

// goose keeps its dialect and base FS in package globals.
var gooseMu sync.Mutex

// Runner wraps goose for one database.
type Runner struct {
	dsn    string
	fsys   fs.FS
	logger *slog.Logger
}

// New returns a Runner over the embedded migrations.
func New(dsn string, logger *slog.Logger) (*Runner, error) {
	return NewWithFS(dsn, migrations.FS, logger)
}

// NewWithFS returns a Runner over fsys.
func NewWithFS(dsn string, fsys fs.FS, logger *slog.Logger) (*Runner, error) {
	if dsn == "" {
		return nil, errors.New("empty database dsn")
	}
	if fsys == nil {
		return nil, errors.New("nil migrations filesystem")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{dsn: dsn, fsys: fsys, logger: logger.With("component", "migrate")}, nil
}

// Up applies pending migrations.
func (r *Runner) Up(ctx context.Context) error {
	return r.withGoose(ctx, func(ctx context.Context, db *sql.DB) error {
		r.logger.Info("applying migrations")
		if err := goose.UpContext(ctx, db, "."); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		r.logger.Info("migrations applied")
		return nil
	})
}

// Status logs applied and pending migrations.
func (r *Runner) Status(ctx context.Context) error {
	return r.withGoose(ctx, func(ctx context.Context, db *sql.DB) error {
		if err := goose.StatusContext(ctx, db, "."); err != nil {
			return fmt.Errorf("migration status: %w", err)
		}
		return nil
	})
}

// Down rolls back the latest migration, or to targetVersion when it is positive.
func (r *Runner) Down(ctx context.Context, targetVersion int64) error {
	return r.withGoose(ctx, func(ctx context.Context, db *sql.DB) error {
		if targetVersion > 0 {
			r.logger.Info("rolling back migrations", "target", targetVersion)
			if err := goose.DownToContext(ctx, db, ".", targetVersion); err != nil {
				return fmt.Errorf("rollback to version %d: %w", targetVersion, err)
			}
			return nil
		}
		r.logger.Info("rolling back latest migration")
		if err := goose.DownContext(ctx, db, "."); err != nil {
			return fmt.Errorf("rollback latest migration: %w", err)
		}
		return nil
	})
}

// Version returns the current schema version.
func (r *Runner) Version(ctx context.Context) (int64, error) {
	var version int64
	err := r.withGoose(ctx, func(ctx context.Context, db *sql.DB) error {
		v, err := goose.GetDBVersionContext(ctx, db)
		if err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
		version = v
		return nil
	})
	return version, err
}

func (r *Runner) withGoose(ctx context.Context, fn func(context.Context, *sql.DB) error) error {
	db, err := sql.Open("postgres", r.dsn)
	if err != nil {
		return fmt.Errorf("open sql connection: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sql connection: %w", err)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(r.fsys)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("configure goose: %w", err)
	}

	return fn(ctx, db)
}
