// Package bus provides the in-process event bus that decouples instrumented
// call sites and tx ingestion from the metrics and tx-status subscribers.
package bus

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/perflog/perflog/internal/model"
)

// Kind names an event stream on the bus.
type Kind string

const (
	// KindFnStart marks the beginning of a timed API call.
	KindFnStart Kind = "fn_start"
	// KindFnEnd marks the completion of a timed API call.
	KindFnEnd Kind = "fn_end"
	// KindTxInsertDB carries one batch of raw tx submissions to record.
	KindTxInsertDB Kind = "tx_insert_db"
)

// Event is a single message delivered to subscribers of its Kind.
type Event struct {
	Kind Kind
	Body any
}

// FnStart is the body of a KindFnStart event.
type FnStart struct {
	Ticket    string
	API       string
	StartedAt time.Time
}

// FnEnd is the body of a KindFnEnd event.
type FnEnd struct {
	Ticket  string
	EndedAt time.Time
}

// TxBatch is the body of a KindTxInsertDB event.
type TxBatch struct {
	Submissions []model.RawTxSubmission
}

// Handler receives events. Handlers run in the publisher's goroutine and
// must hand long-running work off to their own goroutines.
type Handler func(ctx context.Context, ev Event)

// Bus delivers events synchronously to subscribers in registration order.
// Events without subscribers are dropped.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Kind][]Handler
	logger *slog.Logger
}

// New creates an empty Bus.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subs:   make(map[Kind][]Handler),
		logger: logger.With("component", "bus"),
	}
}

// Subscribe registers h for events of the given kind.
func (b *Bus) Subscribe(kind Kind, h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[kind] = append(b.subs[kind], h)
}

// Subscribers returns the number of handlers registered for kind.
func (b *Bus) Subscribers(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[kind])
}

// Publish delivers ev to every handler currently subscribed to ev.Kind.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.mu.RLock()
	handlers := b.subs[ev.Kind]
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(ctx, h, ev)
	}
}

func (b *Bus) deliver(ctx context.Context, h Handler, ev Event) {
	defer func() {
		if rvr := recover(); rvr != nil {
			b.logger.Error("subscriber panic recovered",
				slog.String("kind", string(ev.Kind)),
				slog.Any("panic", rvr),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	h(ctx, ev)
}

// EmitFnStart publishes a fn_start event.
func (b *Bus) EmitFnStart(ctx context.Context, ticket, api string, startedAt time.Time) {
	b.Publish(ctx, Event{Kind: KindFnStart, Body: FnStart{Ticket: ticket, API: api, StartedAt: startedAt}})
}

// EmitFnEnd publishes a fn_end event.
func (b *Bus) EmitFnEnd(ctx context.Context, ticket string, endedAt time.Time) {
	b.Publish(ctx, Event{Kind: KindFnEnd, Body: FnEnd{Ticket: ticket, EndedAt: endedAt}})
}

// EmitTxBatch publishes a tx_insert_db event carrying submissions.
func (b *Bus) EmitTxBatch(ctx context.Context, submissions []model.RawTxSubmission) {
	b.Publish(ctx, Event{Kind: KindTxInsertDB, Body: TxBatch{Submissions: submissions}})
}

// SubmitBatch hands a batch to tx_insert_db subscribers. It never fails.
func (b *Bus) SubmitBatch(ctx context.Context, submissions []model.RawTxSubmission) error {
	b.EmitTxBatch(ctx, submissions)
	return nil
}
