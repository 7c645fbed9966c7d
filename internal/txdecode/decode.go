// Package txdecode turns raw signed transactions into the fields the
// tx-status classifier needs.
package txdecode

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	// ErrEmptyPayload indicates there were no bytes to decode.
	ErrEmptyPayload = errors.New("empty raw transaction")
	// ErrMalformed indicates the payload is not a valid signed transaction.
	ErrMalformed = errors.New("malformed raw transaction")
)

// Transaction is the decoded view of a raw transaction.
// Addresses and the hash are lowercase 0x-hex.
type Transaction struct {
	Hash  string
	To    string // empty for contract creation
	Data  []byte
	Value *big.Int
	From  string
}

// HasRecipient reports whether the transaction targets an address.
func (t *Transaction) HasRecipient() bool {
	return t.To != ""
}

// Decoder decodes a raw transaction payload.
type Decoder interface {
	Decode(ctx context.Context, raw string) (*Transaction, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(ctx context.Context, raw string) (*Transaction, error)

// Decode calls f.
func (f DecoderFunc) Decode(ctx context.Context, raw string) (*Transaction, error) {
	return f(ctx, raw)
}

// EthereumDecoder decodes RLP legacy and EIP-2718 typed transactions and
// recovers the sender from the signature.
type EthereumDecoder struct{}

// NewEthereum returns an EthereumDecoder.
func NewEthereum() *EthereumDecoder {
	return &EthereumDecoder{}
}

// Decode parses raw, which is either 0x-prefixed hex or the binary encoding.
func (d *EthereumDecoder) Decode(_ context.Context, raw string) (*Transaction, error) {
	payload, err := payloadBytes(raw)
	if err != nil {
		return nil, err
	}

	var tx types.Transaction
	if err := tx.UnmarshalBinary(payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	from, err := types.Sender(signerFor(&tx), &tx)
	if err != nil {
		return nil, fmt.Errorf("%w: recover sender: %v", ErrMalformed, err)
	}

	decoded := &Transaction{
		Hash:  tx.Hash().Hex(),
		Data:  tx.Data(),
		Value: tx.Value(),
		From:  CanonicalAddress(from),
	}
	if to := tx.To(); to != nil {
		decoded.To = CanonicalAddress(*to)
	}
	return decoded, nil
}

// CanonicalAddress renders addr as lowercase 0x-hex.
func CanonicalAddress(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

func signerFor(tx *types.Transaction) types.Signer {
	chainID := tx.ChainId()
	if chainID == nil || chainID.Sign() == 0 {
		return types.HomesteadSigner{}
	}
	return types.LatestSignerForChainID(chainID)
}

func payloadBytes(raw string) ([]byte, error) {
	if raw == "" {
		return nil, ErrEmptyPayload
	}
	if !strings.HasPrefix(raw, "0x") && !strings.HasPrefix(raw, "0X") {
		return []byte(raw), nil
	}

	b, err := hexutil.Decode("0x" + raw[2:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(b) == 0 {
		return nil, ErrEmptyPayload
	}
	return b, nil
}
