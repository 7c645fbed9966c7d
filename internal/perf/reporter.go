package perf

import (
	"context"
	"log/slog"
	"strconv"
	"time"
)

// LogReport writes one log line per API in r.
func LogReport(logger *slog.Logger, r Report) {
	logger.Info("api perf results",
		"apis", len(r.APIs),
		"uptime_seconds", formatFixed(r.UptimeSeconds),
		"dropped_tickets", r.DroppedTickets,
	)
	for _, s := range r.APIs {
		logger.Info("api perf",
			slog.String("api", s.API),
			slog.Int64("count", s.Count),
			slog.String("min_ms", formatFixed(durationMs(s.Min))),
			slog.String("max_ms", formatFixed(durationMs(s.Max))),
			slog.String("total_ms", formatFixed(durationMs(s.Total))),
			slog.String("avg_ms", formatFixed(durationMs(s.Avg))),
			slog.String("req_per_sec", formatFixed(s.Throughput)),
		)
	}
}

// RunReporter reports every interval until ctx is cancelled.
// Each report clears pending tickets, see Report.
func (t *Tracker) RunReporter(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	t.logger.Info("periodic api perf reporter started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			t.logger.Info("periodic api perf reporter stopping")
			return ctx.Err()
		case <-ticker.C:
			LogReport(t.logger, t.Report())
		}
	}
}

func formatFixed(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
