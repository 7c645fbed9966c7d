package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncCorrelationMiss is a no-op.
func (n *NoopRecorder) IncCorrelationMiss() {}

// AddTicketsDropped is a no-op.
func (n *NoopRecorder) AddTicketsDropped(count int) {}

// IncTxClassified is a no-op.
func (n *NoopRecorder) IncTxClassified(txType string) {}

// IncTxSkipped is a no-op.
func (n *NoopRecorder) IncTxSkipped(reason string) {}

// IncTxPersisted is a no-op.
func (n *NoopRecorder) IncTxPersisted(status string) {}

// ObserveTxBatchSize is a no-op.
func (n *NoopRecorder) ObserveTxBatchSize(size int) {}

// ObserveTxBatchDuration is a no-op.
func (n *NoopRecorder) ObserveTxBatchDuration(duration time.Duration) {}

// IncStreamPublished is a no-op.
func (n *NoopRecorder) IncStreamPublished(status string) {}

// IncStreamConsumed is a no-op.
func (n *NoopRecorder) IncStreamConsumed(status string) {}
