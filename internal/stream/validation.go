package stream

import (
	"errors"
	"fmt"
)

const (
	// MaxBatchSize is the largest batch accepted on the stream.
	MaxBatchSize = 1000

	maxRawLength    = 256 * 1024
	maxReasonLength = 512
	maxIPLength     = 64
)

// ErrEmptyBatch indicates a batch without submissions.
var ErrEmptyBatch = errors.New("batch has no submissions")

// ValidateBatchPayload checks size bounds. It does not decode raw payloads;
// undecodable records are skipped downstream.
func ValidateBatchPayload(payload BatchPayload) error {
	if len(payload.Submissions) == 0 {
		return ErrEmptyBatch
	}
	if len(payload.Submissions) > MaxBatchSize {
		return fmt.Errorf("batch has %d submissions, max %d", len(payload.Submissions), MaxBatchSize)
	}
	for i, sub := range payload.Submissions {
		if len(sub.Raw) > maxRawLength {
			return fmt.Errorf("submission %d: raw payload too long", i)
		}
		if len(sub.Reason) > maxReasonLength {
			return fmt.Errorf("submission %d: reason too long", i)
		}
		if len(sub.IP) > maxIPLength {
			return fmt.Errorf("submission %d: ip too long", i)
		}
	}
	return nil
}
