package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TxStatus is the lifecycle state of a purchase attempt.
// Transitions are forward-only: pending -> success or pending -> failed,
// exactly once. A settled transaction is never mutated again.
type TxStatus string

const (
	TxPending TxStatus = "pending"
	TxSuccess TxStatus = "success"
	TxFailed  TxStatus = "failed"
)

// Transaction records one purchase attempt and its outcome.
// Amount, Price and Location are snapshots copied from the listing at purchase
// time, not live links.
type Transaction struct {
	ID        string          `json:"id"`
	ListingID string          `json:"listingId"`
	TradeID   uint64          `json:"tradeId"`
	Amount    decimal.Decimal `json:"amount"`
	Price     decimal.Decimal `json:"price"`
	Location  string          `json:"location"`
	Status    TxStatus        `json:"status"`
	Hash      string          `json:"hash,omitempty"`  // set only on success
	Error     string          `json:"error,omitempty"` // set only on failure
	CreatedAt time.Time       `json:"createdAt"`
	SettledAt *time.Time      `json:"settledAt,omitempty"`
}

// NewTransaction opens a pending transaction for the given listing.
// IDs are timestamp-derived so each attempt is unique and sortable.
func NewTransaction(l *Listing) *Transaction {
	now := time.Now()
	return &Transaction{
		ID:        fmt.Sprintf("tx-%d", now.UnixNano()),
		ListingID: l.ID,
		TradeID:   l.TradeID,
		Amount:    l.Quantity,
		Price:     l.Price,
		Location:  l.Location,
		Status:    TxPending,
		CreatedAt: now,
	}
}

// Settled reports whether the transaction has reached a terminal state.
func (t *Transaction) Settled() bool {
	return t.Status == TxSuccess || t.Status == TxFailed
}
