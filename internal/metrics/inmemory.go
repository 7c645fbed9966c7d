package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	CorrelationMisses uint64
	TicketsDropped    uint64

	TxClassified map[string]uint64
	TxSkipped    map[string]uint64
	TxPersisted  map[string]uint64

	TxBatchCount           uint64
	TxBatchRecordsTotal    uint64
	TxBatchDurationTotalNs int64

	StreamPublished map[string]uint64
	StreamConsumed  map[string]uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	correlationMisses      uint64
	ticketsDropped         uint64
	txBatchCount           uint64
	txBatchRecordsTotal    uint64
	txBatchDurationTotalNs int64

	mu              sync.Mutex
	txClassified    map[string]uint64
	txSkipped       map[string]uint64
	txPersisted     map[string]uint64
	streamPublished map[string]uint64
	streamConsumed  map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		txClassified:    make(map[string]uint64),
		txSkipped:       make(map[string]uint64),
		txPersisted:     make(map[string]uint64),
		streamPublished: make(map[string]uint64),
		streamConsumed:  make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		CorrelationMisses:      atomic.LoadUint64(&m.correlationMisses),
		TicketsDropped:         atomic.LoadUint64(&m.ticketsDropped),
		TxClassified:           copyCounts(m.txClassified),
		TxSkipped:              copyCounts(m.txSkipped),
		TxPersisted:            copyCounts(m.txPersisted),
		TxBatchCount:           atomic.LoadUint64(&m.txBatchCount),
		TxBatchRecordsTotal:    atomic.LoadUint64(&m.txBatchRecordsTotal),
		TxBatchDurationTotalNs: atomic.LoadInt64(&m.txBatchDurationTotalNs),
		StreamPublished:        copyCounts(m.streamPublished),
		StreamConsumed:         copyCounts(m.streamConsumed),
	}
}

// IncCorrelationMiss increments the fn_end-without-ticket counter.
func (m *InMemoryRecorder) IncCorrelationMiss() {
	atomic.AddUint64(&m.correlationMisses, 1)
}

// AddTicketsDropped adds tickets discarded by a report.
func (m *InMemoryRecorder) AddTicketsDropped(n int) {
	if n > 0 {
		atomic.AddUint64(&m.ticketsDropped, uint64(n))
	}
}

// IncTxClassified increments the classified counter for txType.
func (m *InMemoryRecorder) IncTxClassified(txType string) {
	m.inc(m.txClassified, txType)
}

// IncTxSkipped increments the skipped counter for reason.
func (m *InMemoryRecorder) IncTxSkipped(reason string) {
	m.inc(m.txSkipped, reason)
}

// IncTxPersisted increments the persisted counter for status.
func (m *InMemoryRecorder) IncTxPersisted(status string) {
	m.inc(m.txPersisted, status)
}

// ObserveTxBatchSize records the number of submissions in a batch.
func (m *InMemoryRecorder) ObserveTxBatchSize(size int) {
	atomic.AddUint64(&m.txBatchCount, 1)
	if size > 0 {
		atomic.AddUint64(&m.txBatchRecordsTotal, uint64(size))
	}
}

// ObserveTxBatchDuration records batch processing duration.
func (m *InMemoryRecorder) ObserveTxBatchDuration(duration time.Duration) {
	atomic.AddInt64(&m.txBatchDurationTotalNs, duration.Nanoseconds())
}

// IncStreamPublished increments the stream publish counter for status.
func (m *InMemoryRecorder) IncStreamPublished(status string) {
	m.inc(m.streamPublished, status)
}

// IncStreamConsumed increments the stream consume counter for status.
func (m *InMemoryRecorder) IncStreamConsumed(status string) {
	m.inc(m.streamConsumed, status)
}

func (m *InMemoryRecorder) inc(counts map[string]uint64, label string) {
	m.mu.Lock()
	counts[label]++
	m.mu.Unlock()
}

func copyCounts(src map[string]uint64) map[string]uint64 {
	dst := make(map[string]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
