package txstatus

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/perflog/perflog/internal/bus"
	"github.com/perflog/perflog/internal/metrics"
	"github.com/perflog/perflog/internal/model"
)

// Summary reports what happened to one batch.
type Summary struct {
	Received int
	Inserted int
	Skipped  int // no raw payload
	Failed   int // decode errors
	Rejected int // storage errors and duplicates
}

// Pipeline classifies and persists tx_insert_db batches.
type Pipeline struct {
	classifier *Classifier
	persister  *Persister
	tracer     trace.Tracer
	metrics    metrics.Recorder
	logger     *slog.Logger

	wg sync.WaitGroup
}

// NewPipeline wires a classifier and persister into a Pipeline.
func NewPipeline(classifier *Classifier, persister *Persister, logger *slog.Logger, recorder metrics.Recorder) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Pipeline{
		classifier: classifier,
		persister:  persister,
		tracer:     otel.Tracer("github.com/perflog/perflog/internal/txstatus"),
		metrics:    recorder,
		logger:     logger.With("component", "txstatus.pipeline"),
	}
}

// Process classifies the batch and persists every decodable record.
func (p *Pipeline) Process(ctx context.Context, batch []model.RawTxSubmission) Summary {
	ctx, span := p.tracer.Start(ctx, "txstatus.process_batch")
	defer span.End()

	start := time.Now()
	classified := p.classifier.ClassifyBatch(ctx, batch)
	persisted := p.persister.Persist(ctx, classified.Statuses)

	summary := Summary{
		Received: len(batch),
		Inserted: persisted.Inserted,
		Skipped:  classified.Skipped,
		Failed:   classified.Failed,
		Rejected: persisted.Skipped,
	}

	span.SetAttributes(
		attribute.Int("batch.size", summary.Received),
		attribute.Int("batch.inserted", summary.Inserted),
		attribute.Int("batch.failed", summary.Failed),
	)
	p.metrics.ObserveTxBatchSize(len(batch))
	p.metrics.ObserveTxBatchDuration(time.Since(start))

	p.logger.Debug("tx batch processed",
		"received", summary.Received,
		"inserted", summary.Inserted,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"rejected", summary.Rejected,
		"duration_ms", float64(time.Since(start).Microseconds())/1000,
	)
	return summary
}

// Subscribe registers the tx_insert_db handler on b. Each batch is
// processed on its own goroutine and outlives the publisher's context.
func (p *Pipeline) Subscribe(b *bus.Bus) {
	b.Subscribe(bus.KindTxInsertDB, func(ctx context.Context, ev bus.Event) {
		batch, ok := ev.Body.(bus.TxBatch)
		if !ok {
			p.logger.Warn("unexpected tx_insert_db body", "body_type", fmt.Sprintf("%T", ev.Body))
			return
		}
		if len(batch.Submissions) == 0 {
			return
		}

		detached := context.WithoutCancel(ctx)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			defer p.recoverBatch(len(batch.Submissions))
			p.Process(detached, batch.Submissions)
		}()
	})
}

// recoverBatch stops a panicking decoder or store from taking the process down.
// The whole batch is counted as skipped.
func (p *Pipeline) recoverBatch(size int) {
	if rvr := recover(); rvr != nil {
		p.logger.Error("tx batch panic recovered",
			slog.Int("batch_size", size),
			slog.Any("panic", rvr),
			slog.String("stack", string(debug.Stack())),
		)
		p.metrics.IncTxSkipped(skipPanic)
	}
}

// Shutdown waits for in-flight batches or until ctx is done.
// It implements server.ShutdownFunc.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("tx pipeline drained")
		return nil
	case <-ctx.Done():
		p.logger.Warn("tx pipeline shutdown timed out")
		return ctx.Err()
	}
}
