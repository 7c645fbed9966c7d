package perf

import (
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MetricRecord holds running statistics for one API.
type MetricRecord struct {
	Count int64
	Min   time.Duration
	Max   time.Duration
	Total time.Duration
}

// APIStats is a reported view of a MetricRecord with derived values.
type APIStats struct {
	API        string
	Count      int64
	Min        time.Duration
	Max        time.Duration
	Total      time.Duration
	Avg        time.Duration
	Throughput float64 // calls per second of process uptime
}

// MarshalJSON renders durations in milliseconds.
func (s APIStats) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		API        string  `json:"api"`
		Count      int64   `json:"count"`
		MinMs      float64 `json:"min_ms"`
		MaxMs      float64 `json:"max_ms"`
		TotalMs    float64 `json:"total_ms"`
		AvgMs      float64 `json:"avg_ms"`
		Throughput float64 `json:"requests_per_second"`
	}{
		API:        s.API,
		Count:      s.Count,
		MinMs:      durationMs(s.Min),
		MaxMs:      durationMs(s.Max),
		TotalMs:    durationMs(s.Total),
		AvgMs:      durationMs(s.Avg),
		Throughput: s.Throughput,
	})
}

// Aggregator keeps per-API running statistics.
type Aggregator struct {
	mu        sync.Mutex
	records   map[string]*MetricRecord
	startedAt time.Time
	now       func() time.Time
}

// NewAggregator creates an Aggregator. Throughput is measured from the
// moment of construction.
func NewAggregator(now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{
		records:   make(map[string]*MetricRecord),
		startedAt: now(),
		now:       now,
	}
}

// Record folds one observed duration into the statistics for api.
func (a *Aggregator) Record(api string, d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec, ok := a.records[api]
	if !ok {
		a.records[api] = &MetricRecord{Count: 1, Min: d, Max: d, Total: d}
		return
	}

	rec.Count++
	rec.Total += d
	if d < rec.Min {
		rec.Min = d
	}
	if d > rec.Max {
		rec.Max = d
	}
}

// Get returns a copy of the record for api.
func (a *Aggregator) Get(api string) (MetricRecord, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec, ok := a.records[api]
	if !ok {
		return MetricRecord{}, false
	}
	return *rec, true
}

// Uptime returns the time elapsed since the Aggregator was created.
func (a *Aggregator) Uptime() time.Duration {
	return a.now().Sub(a.startedAt)
}

// Snapshot returns derived statistics for every tracked API, sorted by name.
func (a *Aggregator) Snapshot() []APIStats {
	uptime := a.Uptime().Seconds()

	a.mu.Lock()
	defer a.mu.Unlock()

	stats := make([]APIStats, 0, len(a.records))
	for api, rec := range a.records {
		s := APIStats{
			API:   api,
			Count: rec.Count,
			Min:   rec.Min,
			Max:   rec.Max,
			Total: rec.Total,
			Avg:   rec.Total / time.Duration(rec.Count),
		}
		if uptime > 0 {
			s.Throughput = float64(rec.Count) / uptime
		}
		stats = append(stats, s)
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].API < stats[j].API })
	return stats
}

// Reset discards all statistics.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	a.records = make(map[string]*MetricRecord)
	a.mu.Unlock()
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
