package perf

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_ExposesSnapshot(t *testing.T) {
	t.Parallel()

	tr, _, _ := newTestTracker(t)
	t0 := time.Now()
	tr.Begin("a", "eth_call", t0)
	tr.End("a", t0.Add(10*time.Millisecond))
	tr.Begin("pending", "eth_call", t0)

	reg := prometheus.NewRegistry()
	if err := reg.Register(NewCollector(tr)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	expected := `
# HELP perflog_api_calls_total Completed API calls observed through fn_start/fn_end
# TYPE perflog_api_calls_total counter
perflog_api_calls_total{api="eth_call"} 1
# HELP perflog_pending_tickets fn_start events still waiting for fn_end
# TYPE perflog_pending_tickets gauge
perflog_pending_tickets 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"perflog_api_calls_total", "perflog_pending_tickets"); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
}

func TestCollector_EmptyTracker(t *testing.T) {
	t.Parallel()

	tr, _, _ := newTestTracker(t)
	if n := testutil.CollectAndCount(NewCollector(tr)); n != 1 {
		t.Errorf("CollectAndCount = %d, want 1 (pending gauge only)", n)
	}
}
