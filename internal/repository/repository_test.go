package repository

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func TestPoolOptions_Apply(t *testing.T) {
	tests := []struct {
		name     string
		opts     PoolOptions
		wantMax  int32
		wantMin  int32
		wantIdle time.Duration
	}{
		{"zero keeps pgx defaults", PoolOptions{}, 8, 0, 30 * time.Minute},
		{"all set", PoolOptions{MaxConns: 20, MinConns: 2, MaxConnIdleTime: time.Minute}, 20, 2, time.Minute},
		{"min above max ignored", PoolOptions{MaxConns: 4, MinConns: 5}, 4, 0, 30 * time.Minute},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := pgxpool.ParseConfig("postgres://u:p@localhost:5432/db?pool_max_conns=8")
			if err != nil {
				t.Fatalf("ParseConfig failed: %v", err)
			}
			cfg.MaxConnIdleTime = 30 * time.Minute

			tt.opts.apply(cfg)

			if cfg.MaxConns != tt.wantMax || cfg.MinConns != tt.wantMin || cfg.MaxConnIdleTime != tt.wantIdle {
				t.Errorf("got max=%d min=%d idle=%s, want max=%d min=%d idle=%s",
					cfg.MaxConns, cfg.MinConns, cfg.MaxConnIdleTime, tt.wantMax, tt.wantMin, tt.wantIdle)
			}
		})
	}
}
