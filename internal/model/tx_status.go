// Package model defines domain entities for the application.
package model

import "time"

// TxType labels what a recorded transaction does on chain.
type TxType string

const (
	TxTypeDeployment   TxType = "contract deployment"
	TxTypeCoinTransfer TxType = "coin transfer"
	TxTypeContractCall TxType = "contract call"
	// TxTypeOther is a valid stored label, but the classifier has no rule that produces it.
	TxTypeOther TxType = "other"
)

// IsValid checks if the tx type is one of the known labels.
func (t TxType) IsValid() bool {
	switch t {
	case TxTypeDeployment, TxTypeCoinTransfer, TxTypeContractCall, TxTypeOther:
		return true
	}
	return false
}

// RawTxSubmission is one submission as seen by the ingestion layer,
// before decoding. Raw holds either a 0x-prefixed hex string or binary bytes.
type RawTxSubmission struct {
	TxHash   string `json:"txHash,omitempty"`
	Raw      string `json:"raw,omitempty"`
	Injected bool   `json:"injected"`
	Reason   string `json:"reason"`
	IP       string `json:"ip,omitempty"`
}

// DetailedTxStatus is a classified submission ready to be persisted.
type DetailedTxStatus struct {
	TxHash   string `json:"txHash"`
	Type     TxType `json:"type"`
	To       string `json:"to,omitempty"` // empty when the tx has no recipient
	From     string `json:"from"`
	Injected bool   `json:"injected"`
	Accepted int    `json:"accepted"`
	Reason   string `json:"reason"`
	IP       string `json:"ip,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"` // set by storage on read
}
