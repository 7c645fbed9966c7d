package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/perflog/perflog/internal/auth"
	"github.com/perflog/perflog/internal/metrics"
	"github.com/perflog/perflog/internal/perf"
)

func newPerfFixture(t *testing.T) (*PerfHandler, *perf.Tracker) {
	t.Helper()
	tracker := perf.NewTracker(discardLogger(), metrics.NewNoop())

	start := time.Now()
	tracker.Begin("t1", "tx_status.ingest", start)
	tracker.End("t1", start.Add(20*time.Millisecond))
	tracker.Begin("t2", "tx_status.ingest", start)

	return NewPerfHandler(tracker, discardLogger()), tracker
}

func TestPerfHandler_SnapshotHasNoSideEffects(t *testing.T) {
	t.Parallel()

	h, tracker := newPerfFixture(t)

	rec := httptest.NewRecorder()
	h.Snapshot(rec, httptest.NewRequest(http.MethodGet, "/debug/perf", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp struct {
		PendingTickets int `json:"pending_tickets"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.PendingTickets != 1 {
		t.Errorf("pending tickets = %d, want 1", resp.PendingTickets)
	}
	if tracker.PendingTickets() != 1 {
		t.Error("snapshot must not clear pending tickets")
	}
}

func TestPerfHandler_ReportDropsPendingTickets(t *testing.T) {
	t.Parallel()

	h, tracker := newPerfFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/debug/perf/report", nil)
	req = req.WithContext(auth.ContextWithSubject(req.Context(), "admin"))
	rec := httptest.NewRecorder()
	h.Report(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp struct {
		APIs []struct {
			API   string `json:"api"`
			Count int64  `json:"count"`
		} `json:"apis"`
		DroppedTickets int `json:"dropped_tickets"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.DroppedTickets != 1 {
		t.Errorf("dropped tickets = %d, want 1", resp.DroppedTickets)
	}
	if len(resp.APIs) != 1 || resp.APIs[0].API != "tx_status.ingest" || resp.APIs[0].Count != 1 {
		t.Errorf("unexpected apis: %+v", resp.APIs)
	}
	if tracker.PendingTickets() != 0 {
		t.Errorf("pending tickets after report = %d, want 0", tracker.PendingTickets())
	}
	if tracker.End("t2", time.Now()) {
		t.Error("end after report should be a correlation miss")
	}
	if stats, _ := tracker.Stats("tx_status.ingest"); stats.Count != 1 {
		t.Errorf("statistics should survive a report, count = %d", stats.Count)
	}
}
