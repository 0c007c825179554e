package trade

import (
	"context"
	"math/big"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/wattmart/gowatt/internal/domain"
	"github.com/wattmart/gowatt/internal/wallet"
	"github.com/wattmart/gowatt/pkg/logger"
)

// Journal records purchase attempts. Implemented by journal.Journal; tests
// substitute an in-memory double.
type Journal interface {
	Record(tx *domain.Transaction) error
	MarkSuccess(id, hash string) error
	MarkFailed(id, message string) error
}

// Orchestrator turns a selected listing into a priced buyEnergy transaction
// and tracks its lifecycle. Each Buy call produces exactly one transaction
// record that settles exactly once; there are no retries.
type Orchestrator struct {
	provider    wallet.Provider
	contract    *Contract
	journal     Journal
	fallbackGas uint64
	onPurchase  func() // fired after a confirmed purchase to refresh listings
}

func NewOrchestrator(provider wallet.Provider, contract *Contract, journal Journal, fallbackGas uint64) *Orchestrator {
	if fallbackGas == 0 {
		fallbackGas = 300_000
	}
	return &Orchestrator{
		provider:    provider,
		contract:    contract,
		journal:     journal,
		fallbackGas: fallbackGas,
	}
}

// OnPurchase registers a callback invoked after every successful purchase.
// External trade availability may have changed, so the marketplace re-runs
// its full fetch.
func (o *Orchestrator) OnPurchase(fn func()) {
	o.onPurchase = fn
}

// weiPerEther is the conversion factor for the contract's base unit.
var weiPerEther = decimal.NewFromBigInt(big.NewInt(1_000_000_000_000_000_000), 0)

// totalValueWei computes the amount owed for the listing in the contract's
// base unit. Always price times quantity, never price alone.
func totalValueWei(l *domain.Listing) *big.Int {
	return l.TotalCost().Mul(weiPerEther).BigInt()
}

// Buy executes a purchase. The wallet identity is established first (a
// blocking step, never skipped silently); a pending transaction is journaled
// before submission so the attempt is visible during signing latency; the
// outcome settles the record in place.
//
// A nil transaction is returned only when the wallet precondition fails;
// otherwise the returned transaction reflects the terminal state, alongside
// a classified error on failure.
func (o *Orchestrator) Buy(ctx context.Context, listing *domain.Listing) (*domain.Transaction, error) {
	if !o.provider.Connected() {
		logger.Info("[trade] wallet not connected, requesting access")
		if err := o.provider.Connect(ctx); err != nil {
			if wallet.IsRejected(err) {
				return nil, errors.Wrap(domain.ErrUserRejected, "wallet connection declined")
			}
			return nil, err
		}
	}

	tx := domain.NewTransaction(listing)
	if err := o.journal.Record(tx); err != nil {
		return nil, errors.Wrap(err, "record pending transaction")
	}

	value := totalValueWei(listing)
	logger.Infof("[trade] %s: buying trade %d for %s wei (%s MWH @ $%s/kWh)",
		tx.ID, listing.TradeID, value, listing.Quantity, listing.DisplayPrice())

	hash, err := o.submit(ctx, listing.TradeID, value)
	if err != nil {
		classified := classify(err)
		o.settleFailed(tx, classified)
		return tx, classified
	}

	now := time.Now()
	tx.Status = domain.TxSuccess
	tx.Hash = hash
	tx.SettledAt = &now
	if err := o.journal.MarkSuccess(tx.ID, hash); err != nil {
		logger.Errorf("[trade] %s: journal success: %v", tx.ID, err)
	}
	logger.Infof("[trade] %s: confirmed, hash=%s", tx.ID, hash)

	if o.onPurchase != nil {
		o.onPurchase()
	}
	return tx, nil
}

func (o *Orchestrator) submit(ctx context.Context, tradeID uint64, value *big.Int) (string, error) {
	data, err := o.contract.BuyEnergyCalldata(tradeID)
	if err != nil {
		return "", err
	}
	req := wallet.TxRequest{
		To:    o.contract.Address(),
		Value: value,
		Data:  data,
	}

	req.GasPrice, err = o.provider.SuggestGasPrice(ctx)
	if err != nil {
		return "", errors.Wrap(err, "suggest gas price")
	}

	// Estimation failure is not fatal: fall back to a conservative fixed
	// limit and let the node reject the transaction if it truly cannot run.
	req.GasLimit, err = o.provider.EstimateGas(ctx, req)
	if err != nil {
		logger.Warnf("[trade] gas estimation failed (%v), using fallback limit %d", err, o.fallbackGas)
		req.GasLimit = o.fallbackGas
	}

	return o.provider.SendTransaction(ctx, req)
}

func (o *Orchestrator) settleFailed(tx *domain.Transaction, cause error) {
	now := time.Now()
	tx.Status = domain.TxFailed
	tx.Error = cause.Error()
	tx.SettledAt = &now
	if err := o.journal.MarkFailed(tx.ID, tx.Error); err != nil {
		logger.Errorf("[trade] %s: journal failure: %v", tx.ID, err)
	}
	logger.Warnf("[trade] %s: failed: %s", tx.ID, tx.Error)
}

// classify maps raw provider errors onto the failure taxonomy: a declined
// prompt, an insufficient balance, or the generic passthrough.
func classify(err error) error {
	switch {
	case wallet.IsRejected(err):
		return errors.Wrap(domain.ErrUserRejected, "transaction declined in wallet")
	case wallet.IsInsufficientFunds(err):
		return errors.Wrap(domain.ErrTransactionFailed, "insufficient funds for purchase")
	case errors.Is(err, domain.ErrWalletUnavailable):
		return err
	default:
		return errors.Wrap(domain.ErrTransactionFailed, err.Error())
	}
}
