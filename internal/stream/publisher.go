package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/perflog/perflog/internal/metrics"
	"github.com/perflog/perflog/internal/model"
)

const (
	// StreamKey is the Redis stream carrying tx_insert_db batches.
	StreamKey = "stream:tx_insert_db"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// PublishTimeout is the max time to wait for an async publish.
	PublishTimeout = 500 * time.Millisecond
)

// BatchPayload is the stream message format.
type BatchPayload struct {
	Submissions []model.RawTxSubmission `json:"txs"`
	PublishedAt int64                   `json:"t"` // Unix milliseconds
}

// Publisher enqueues tx batches to the Redis stream.
type Publisher struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// NewPublisher creates a new batch publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With("component", "stream.publisher"),
		metrics: recorder,
		now:     time.Now,
	}
}

// PublishBatch adds a batch to the stream synchronously and returns its stream ID.
func (p *Publisher) PublishBatch(ctx context.Context, subs []model.RawTxSubmission) (string, error) {
	payload := BatchPayload{Submissions: subs, PublishedAt: p.now().UnixMilli()}
	if err := ValidateBatchPayload(payload); err != nil {
		return "", err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal batch: %w", err)
	}

	id, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"payload": string(data),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	return id, nil
}

// PublishAsync publishes without blocking the caller.
// Errors are logged and counted, never returned.
func (p *Publisher) PublishAsync(subs []model.RawTxSubmission) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		streamID, err := p.PublishBatch(ctx, subs)
		if err != nil {
			p.logger.Warn("failed to publish tx batch",
				"batch_size", len(subs),
				"error", err,
			)
			p.metrics.IncStreamPublished("dropped")
			return
		}

		p.logger.Debug("tx batch published",
			"batch_size", len(subs),
			"stream_id", streamID,
		)
		p.metrics.IncStreamPublished("success")
	}()
}

// SubmitBatch publishes synchronously and counts the outcome.
func (p *Publisher) SubmitBatch(ctx context.Context, subs []model.RawTxSubmission) error {
	if _, err := p.PublishBatch(ctx, subs); err != nil {
		p.metrics.IncStreamPublished("dropped")
		return err
	}
	p.metrics.IncStreamPublished("success")
	return nil
}
