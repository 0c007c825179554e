package wallet

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// TxRequest is a transaction the provider should sign and submit.
type TxRequest struct {
	To       common.Address
	Value    *big.Int
	GasLimit uint64
	GasPrice *big.Int
	Data     []byte
}

// Provider is the narrow wallet surface the purchase orchestrator depends
// on. The real implementation signs with a local key over an RPC endpoint;
// tests substitute a double. Nothing else in the repo talks to the chain.
type Provider interface {
	// Connect establishes the wallet identity. It is the blocking
	// account-access step: callers must not submit before it succeeds.
	Connect(ctx context.Context) error
	Connected() bool
	Address() common.Address

	ChainID(ctx context.Context) (*big.Int, error)
	Balance(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, req TxRequest) (uint64, error)

	// SendTransaction signs and submits, returning the transaction hash.
	SendTransaction(ctx context.Context, req TxRequest) (string, error)

	// CallContract executes a read-only call against to with the given
	// calldata.
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)

	// OnAccountChange registers a callback fired whenever the active account
	// (re)connects or changes. The original UI reloaded the page on this
	// event; here it drives a full listing refresh.
	OnAccountChange(fn func(common.Address))
}

// rejectionCoder is implemented by provider errors that carry an EIP-1193
// error code. Code 4001 is "user rejected request".
type rejectionCoder interface {
	ErrorCode() int
}

// IsRejected reports whether err represents the signer declining the
// transaction prompt.
func IsRejected(err error) bool {
	if err == nil {
		return false
	}
	if coder, ok := err.(rejectionCoder); ok && coder.ErrorCode() == 4001 {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "user rejected")
}

// IsInsufficientFunds matches the node's insufficient-balance failure.
func IsInsufficientFunds(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "insufficient funds")
}
