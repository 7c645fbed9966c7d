// Package txstatus classifies raw tx submissions and records them for audit.
package txstatus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/perflog/perflog/internal/metrics"
	"github.com/perflog/perflog/internal/model"
	"github.com/perflog/perflog/internal/txdecode"
)

var (
	// ErrNoRawPayload indicates a submission without raw bytes. Such records are skipped.
	ErrNoRawPayload = errors.New("submission has no raw payload")
	// ErrDecode indicates the raw payload could not be decoded.
	ErrDecode = errors.New("decode raw transaction")
)

// Skip reasons reported to the metrics recorder.
const (
	skipNoRaw       = "no_raw"
	skipDecodeError = "decode_error"
	skipPanic       = "panic"
)

// Result is the outcome of classifying one submission.
type Result struct {
	Index  int
	Status *model.DetailedTxStatus
	Err    error
}

// BatchResult folds the per-record results of one batch.
type BatchResult struct {
	Statuses []model.DetailedTxStatus // successes, in submission order
	Skipped  int                      // submissions without raw payload
	Failed   int                      // submissions that failed to decode
}

// Classifier turns raw submissions into detailed tx statuses.
type Classifier struct {
	decoder txdecode.Decoder
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewClassifier creates a Classifier backed by decoder.
func NewClassifier(decoder txdecode.Decoder, logger *slog.Logger, recorder metrics.Recorder) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Classifier{
		decoder: decoder,
		metrics: recorder,
		logger:  logger.With("component", "txstatus.classifier"),
	}
}

// Classify decodes and labels one submission.
func (c *Classifier) Classify(ctx context.Context, sub model.RawTxSubmission) (*model.DetailedTxStatus, error) {
	if sub.Raw == "" {
		return nil, ErrNoRawPayload
	}

	tx, err := c.decoder.Decode(ctx, sub.Raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	hash := sub.TxHash
	if hash == "" {
		hash = tx.Hash
	}

	return &model.DetailedTxStatus{
		TxHash:   hash,
		Type:     TypeOf(tx),
		To:       tx.To,
		From:     tx.From,
		Injected: sub.Injected,
		Accepted: model.ReasonCode(sub.Reason),
		Reason:   sub.Reason,
		IP:       sub.IP,
	}, nil
}

// ClassifyBatch classifies every submission. A failing record never
// aborts the batch.
func (c *Classifier) ClassifyBatch(ctx context.Context, subs []model.RawTxSubmission) BatchResult {
	results := make([]Result, 0, len(subs))
	for i, sub := range subs {
		status, err := c.Classify(ctx, sub)
		results = append(results, Result{Index: i, Status: status, Err: err})
	}
	return c.fold(results)
}

func (c *Classifier) fold(results []Result) BatchResult {
	out := BatchResult{Statuses: make([]model.DetailedTxStatus, 0, len(results))}
	for _, r := range results {
		switch {
		case r.Err == nil:
			out.Statuses = append(out.Statuses, *r.Status)
			c.metrics.IncTxClassified(string(r.Status.Type))
		case errors.Is(r.Err, ErrNoRawPayload):
			out.Skipped++
			c.metrics.IncTxSkipped(skipNoRaw)
		default:
			out.Failed++
			c.metrics.IncTxSkipped(skipDecodeError)
			c.logger.Debug("skipping undecodable submission",
				"index", r.Index,
				"error", r.Err,
			)
		}
	}
	return out
}

// TypeOf applies the classification rules in order:
// no recipient with data is a deployment, a recipient with value and no
// data is a coin transfer, anything else is a contract call.
func TypeOf(tx *txdecode.Transaction) model.TxType {
	switch {
	case !tx.HasRecipient() && len(tx.Data) > 0:
		return model.TxTypeDeployment
	case tx.HasRecipient() && tx.Value != nil && tx.Value.Sign() > 0 && len(tx.Data) == 0:
		return model.TxTypeCoinTransfer
	default:
		return model.TxTypeContractCall
	}
}
