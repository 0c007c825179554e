package domain

import "errors"

// Failure taxonomy. Every fault is caught at the boundary where it occurs and
// wrapped around one of these sentinels; nothing propagates unclassified.
var (
	// ErrDataUnavailable covers an unreachable feed, a missing API credential
	// and empty or malformed payloads. Callers degrade to an empty collection.
	ErrDataUnavailable = errors.New("energy data unavailable")

	// ErrValidation marks a rejected editor input (e.g. empty location).
	ErrValidation = errors.New("validation failed")

	// ErrWalletUnavailable means no usable wallet: no RPC endpoint, no key.
	ErrWalletUnavailable = errors.New("wallet unavailable")

	// ErrUserRejected means the signer declined the transaction prompt.
	ErrUserRejected = errors.New("user rejected transaction")

	// ErrTransactionFailed is the generic on-chain or estimation failure.
	ErrTransactionFailed = errors.New("transaction failed")
)
