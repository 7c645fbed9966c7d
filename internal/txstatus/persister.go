package txstatus

import (
	"context"
	"errors"
	"log/slog"

	"github.com/perflog/perflog/internal/metrics"
	"github.com/perflog/perflog/internal/model"
	"github.com/perflog/perflog/internal/repository"
)

// Store is the storage collaborator for tx statuses.
type Store interface {
	InsertTxStatus(ctx context.Context, status *model.DetailedTxStatus) error
}

// PersistResult summarizes one Persist call.
type PersistResult struct {
	Inserted int
	Skipped  int
}

// Persister writes tx statuses one at a time, best-effort.
type Persister struct {
	store   Store
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewPersister creates a Persister backed by store.
func NewPersister(store Store, logger *slog.Logger, recorder metrics.Recorder) *Persister {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Persister{
		store:   store,
		metrics: recorder,
		logger:  logger.With("component", "txstatus.persister"),
	}
}

// Persist inserts each status. Failed inserts are logged and skipped;
// there is no retry and no rollback.
func (p *Persister) Persist(ctx context.Context, statuses []model.DetailedTxStatus) PersistResult {
	var res PersistResult
	for i := range statuses {
		status := &statuses[i]
		if err := p.store.InsertTxStatus(ctx, status); err != nil {
			res.Skipped++
			p.metrics.IncTxPersisted("failed")
			if errors.Is(err, repository.ErrTxStatusExists) {
				p.logger.Debug("tx status already recorded", "tx_hash", status.TxHash)
				continue
			}
			p.logger.Warn("failed to record tx status",
				"tx_hash", status.TxHash,
				"error", err,
			)
			continue
		}
		res.Inserted++
		p.metrics.IncTxPersisted("success")
	}
	return res
}
