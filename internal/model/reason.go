package model

import "strings"

// Accepted codes stored with each tx status.
const (
	// AcceptedOK is stored for submissions the node accepted.
	AcceptedOK = 1
	// AcceptedUnknown is stored when the reason text is not in the lookup table.
	AcceptedUnknown = 1000
)

// Reason texts reported by the node when it accepts or rejects a submission.
const (
	ReasonProcessed          = "Transaction successfully processed."
	ReasonMaxLoad            = "Maximum load exceeded."
	ReasonShardsPending      = "Not ready to accept transactions, shard calculations pending"
	ReasonNetworkConditions  = "Network conditions to allow transactions are not met."
	ReasonNetworkAppInit     = "Network conditions to allow app init via set"
	ReasonFutureTimestamp    = "Transaction timestamp cannot be in the future."
	ReasonExpiredTimestamp   = "Transaction is too old."
	ReasonInvalidSignature   = "Transaction signature is not valid."
	ReasonInsufficientFunds  = "Sender does not have enough balance."
	ReasonNonceTooLow        = "Transaction nonce is lower than the account nonce."
	ReasonNonceTooHigh       = "Transaction nonce is too far ahead of the account nonce."
	ReasonGasLimitExceeded   = "Transaction gas limit exceeds the block gas limit."
	ReasonDuplicateTx        = "Transaction already known."
	ReasonInjectRejectedByIP = "Too many transactions from this IP."
)

var reasonCodes = map[string]int{
	normalizeReason(ReasonProcessed):          AcceptedOK,
	normalizeReason(ReasonMaxLoad):            500,
	normalizeReason(ReasonShardsPending):      501,
	normalizeReason(ReasonNetworkConditions):  502,
	normalizeReason(ReasonNetworkAppInit):     503,
	normalizeReason(ReasonFutureTimestamp):    504,
	normalizeReason(ReasonExpiredTimestamp):   505,
	normalizeReason(ReasonInvalidSignature):   506,
	normalizeReason(ReasonInsufficientFunds):  507,
	normalizeReason(ReasonNonceTooLow):        508,
	normalizeReason(ReasonNonceTooHigh):       509,
	normalizeReason(ReasonGasLimitExceeded):   510,
	normalizeReason(ReasonDuplicateTx):        511,
	normalizeReason(ReasonInjectRejectedByIP): 512,
}

// ReasonCode maps a human readable reason to its accepted code.
// Matching ignores case and surrounding whitespace.
func ReasonCode(reason string) int {
	if code, ok := reasonCodes[normalizeReason(reason)]; ok {
		return code
	}
	return AcceptedUnknown
}

func normalizeReason(reason string) string {
	return strings.ToLower(strings.TrimSpace(reason))
}
