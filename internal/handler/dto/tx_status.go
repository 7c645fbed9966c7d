// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/perflog/perflog/internal/model"
	"github.com/perflog/perflog/internal/perf"
)

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// IngestResponse acknowledges an accepted tx batch.
type IngestResponse struct {
	Accepted  int    `json:"accepted"`
	Transport string `json:"transport"` // "bus" or "stream"
}

// TxStatusListResponse wraps an audit query result.
type TxStatusListResponse struct {
	Data  []*model.DetailedTxStatus `json:"data"`
	Count int                       `json:"count"`
}

// PerfSnapshotResponse is the current latency view without side effects.
type PerfSnapshotResponse struct {
	GeneratedAt    time.Time       `json:"generated_at"`
	APIs           []perf.APIStats `json:"apis"`
	PendingTickets int             `json:"pending_tickets"`
}

// ToTxStatusListResponse converts repository rows to a list response.
func ToTxStatusListResponse(rows []*model.DetailedTxStatus) *TxStatusListResponse {
	if rows == nil {
		rows = []*model.DetailedTxStatus{}
	}
	return &TxStatusListResponse{Data: rows, Count: len(rows)}
}
