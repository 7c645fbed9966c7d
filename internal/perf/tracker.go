// Package perf measures API call latency by correlating fn_start and fn_end
// events and keeps running per-API statistics.
package perf

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/perflog/perflog/internal/bus"
	"github.com/perflog/perflog/internal/metrics"
)

// Report is the result of a manual or periodic report.
type Report struct {
	GeneratedAt    time.Time  `json:"generated_at"`
	UptimeSeconds  float64    `json:"uptime_seconds"`
	APIs           []APIStats `json:"apis"`
	DroppedTickets int        `json:"dropped_tickets"`
}

// Tracker owns the ticket table and the aggregator for one process.
type Tracker struct {
	tickets *TicketStore
	agg     *Aggregator
	metrics metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time
}

// NewTracker creates a Tracker. A nil recorder discards metrics.
func NewTracker(logger *slog.Logger, recorder metrics.Recorder) *Tracker {
	return newTracker(logger, recorder, time.Now)
}

func newTracker(logger *slog.Logger, recorder metrics.Recorder, now func() time.Time) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Tracker{
		tickets: NewTicketStore(),
		agg:     NewAggregator(now),
		metrics: recorder,
		logger:  logger.With("component", "perf.tracker"),
		now:     now,
	}
}

// Begin starts a measurement for ticket.
func (t *Tracker) Begin(ticket, api string, startedAt time.Time) {
	t.tickets.Begin(ticket, api, startedAt)
}

// End completes the measurement for ticket and records it.
// It returns false on a correlation miss, which is not an error.
func (t *Tracker) End(ticket string, endedAt time.Time) bool {
	obs, ok := t.tickets.End(ticket, endedAt)
	if !ok {
		t.metrics.IncCorrelationMiss()
		return false
	}
	t.agg.Record(obs.API, obs.Duration)
	return true
}

// Stats returns the running record for api.
func (t *Tracker) Stats(api string) (MetricRecord, bool) {
	return t.agg.Get(api)
}

// Snapshot returns current statistics without side effects.
func (t *Tracker) Snapshot() []APIStats {
	return t.agg.Snapshot()
}

// PendingTickets returns the number of unmatched fn_start events.
func (t *Tracker) PendingTickets() int {
	return t.tickets.Len()
}

// Report returns current statistics and clears the pending ticket table.
// Statistics are kept.
func (t *Tracker) Report() Report {
	r := Report{
		GeneratedAt:   t.now().UTC(),
		UptimeSeconds: t.agg.Uptime().Seconds(),
		APIs:          t.agg.Snapshot(),
	}
	r.DroppedTickets = t.tickets.Clear()
	t.metrics.AddTicketsDropped(r.DroppedTickets)
	return r
}

// Reset discards statistics and pending tickets.
func (t *Tracker) Reset() {
	t.agg.Reset()
	t.tickets.Clear()
}

// Subscribe registers the tracker for fn_start and fn_end events on b.
func (t *Tracker) Subscribe(b *bus.Bus) {
	b.Subscribe(bus.KindFnStart, func(_ context.Context, ev bus.Event) {
		body, ok := ev.Body.(bus.FnStart)
		if !ok {
			t.logger.Warn("unexpected fn_start body", "body_type", fmt.Sprintf("%T", ev.Body))
			return
		}
		t.Begin(body.Ticket, body.API, body.StartedAt)
	})
	b.Subscribe(bus.KindFnEnd, func(_ context.Context, ev bus.Event) {
		body, ok := ev.Body.(bus.FnEnd)
		if !ok {
			t.logger.Warn("unexpected fn_end body", "body_type", fmt.Sprintf("%T", ev.Body))
			return
		}
		t.End(body.Ticket, body.EndedAt)
	})
	t.logger.Info("api perf logging enabled")
}

// NewTicket returns a fresh, time-sortable ticket id.
func NewTicket() string {
	return ulid.Make().String()
}

// Track emits fn_start for api and returns a func that emits the matching
// fn_end. Typical use:
//
//	defer perf.Track(ctx, b, "eth_getBalance")()
func Track(ctx context.Context, b *bus.Bus, api string) func() {
	ticket := NewTicket()
	b.EmitFnStart(ctx, ticket, api, time.Now())
	return func() {
		b.EmitFnEnd(ctx, ticket, time.Now())
	}
}
