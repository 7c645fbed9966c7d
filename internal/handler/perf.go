package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/perflog/perflog/internal/auth"
	"github.com/perflog/perflog/internal/handler/dto"
	"github.com/perflog/perflog/internal/perf"
)

// PerfHandler exposes the latency tracker.
type PerfHandler struct {
	tracker *perf.Tracker
	logger  *slog.Logger
}

// NewPerfHandler creates a new PerfHandler.
func NewPerfHandler(tracker *perf.Tracker, logger *slog.Logger) *PerfHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PerfHandler{
		tracker: tracker,
		logger:  logger.With("component", "perf.report"),
	}
}

// Snapshot returns current statistics without touching pending tickets.
// GET /debug/perf
func (h *PerfHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.PerfSnapshotResponse{
		GeneratedAt:    time.Now().UTC(),
		APIs:           h.tracker.Snapshot(),
		PendingTickets: h.tracker.PendingTickets(),
	})
}

// Report logs and returns a report, dropping every pending ticket.
// POST /debug/perf/report
func (h *PerfHandler) Report(w http.ResponseWriter, r *http.Request) {
	report := h.tracker.Report()

	logger := h.logger
	if subject := auth.SubjectFromContext(r.Context()); subject != "" {
		logger = logger.With("subject", subject)
	}
	perf.LogReport(logger, report)

	writeJSON(w, http.StatusOK, report)
}
