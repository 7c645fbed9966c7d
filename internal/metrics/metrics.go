// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus or keep them in memory.
type Recorder interface {
	// Latency tracking
	IncCorrelationMiss()
	AddTicketsDropped(n int)

	// Tx status pipeline
	IncTxClassified(txType string) // txType: model.TxType value
	IncTxSkipped(reason string)    // reason: "no_raw" or "decode_error"
	IncTxPersisted(status string)  // status: "success" or "failed"
	ObserveTxBatchSize(size int)
	ObserveTxBatchDuration(duration time.Duration)

	// Stream transport
	IncStreamPublished(status string) // status: "success" or "dropped"
	IncStreamConsumed(status string)  // status: "success" or "malformed"
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
