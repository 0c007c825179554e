package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/wattmart/gowatt/internal/domain"
)

// Journal is the purchase audit trail. Every attempt is inserted as pending
// and settled in place exactly once; a settled row is never touched again,
// so failed attempts stay visible instead of being rolled back.
type Journal struct {
	db *sql.DB
}

func Open(path string) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("journal path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir journal dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

func (j *Journal) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`
CREATE TABLE IF NOT EXISTS transactions (
  id TEXT PRIMARY KEY,
  listing_id TEXT NOT NULL,
  trade_id INTEGER NOT NULL,
  amount TEXT NOT NULL,
  price TEXT NOT NULL,
  location TEXT NOT NULL,
  status TEXT NOT NULL,
  hash TEXT,
  error TEXT,
  created_at TEXT NOT NULL,
  settled_at TEXT
);`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_created ON transactions(created_at DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := j.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("journal migrate: %w", err)
		}
	}
	return nil
}

// Record inserts a freshly opened pending transaction.
func (j *Journal) Record(tx *domain.Transaction) error {
	_, err := j.db.Exec(`
INSERT INTO transactions (id, listing_id, trade_id, amount, price, location, status, created_at)
VALUES (?,?,?,?,?,?,?,?)
`, tx.ID, tx.ListingID, tx.TradeID, tx.Amount.String(), tx.Price.String(), tx.Location,
		string(tx.Status), tx.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// MarkSuccess settles a pending transaction with its hash. The WHERE guard
// makes the transition monotonic: an already-settled row is left alone.
func (j *Journal) MarkSuccess(id, hash string) error {
	return j.settle(id, domain.TxSuccess, hash, "")
}

// MarkFailed settles a pending transaction with a human-readable error.
func (j *Journal) MarkFailed(id, message string) error {
	return j.settle(id, domain.TxFailed, "", message)
}

func (j *Journal) settle(id string, status domain.TxStatus, hash, message string) error {
	res, err := j.db.Exec(`
UPDATE transactions
SET status = ?, hash = NULLIF(?, ''), error = NULLIF(?, ''), settled_at = ?
WHERE id = ? AND status = 'pending'
`, string(status), hash, message, time.Now().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("settle transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("transaction %s is not pending", id)
	}
	return nil
}

// Recent returns the latest n attempts, newest first.
func (j *Journal) Recent(ctx context.Context, n int) ([]domain.Transaction, error) {
	if n <= 0 {
		n = 50
	}
	rows, err := j.db.QueryContext(ctx, `
SELECT id, listing_id, trade_id, amount, price, location, status,
       COALESCE(hash, ''), COALESCE(error, ''), created_at, COALESCE(settled_at, '')
FROM transactions
ORDER BY created_at DESC
LIMIT ?
`, n)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *tx)
	}
	return out, rows.Err()
}

// Get looks up a single attempt by ID.
func (j *Journal) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	row := j.db.QueryRowContext(ctx, `
SELECT id, listing_id, trade_id, amount, price, location, status,
       COALESCE(hash, ''), COALESCE(error, ''), created_at, COALESCE(settled_at, '')
FROM transactions
WHERE id = ?
`, id)
	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return tx, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var amount, price, status, createdAt, settledAt string
	if err := row.Scan(&tx.ID, &tx.ListingID, &tx.TradeID, &amount, &price, &tx.Location,
		&status, &tx.Hash, &tx.Error, &createdAt, &settledAt); err != nil {
		return nil, err
	}
	tx.Status = domain.TxStatus(status)
	var err error
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("bad amount %q: %w", amount, err)
	}
	if tx.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("bad price %q: %w", price, err)
	}
	if tx.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("bad created_at %q: %w", createdAt, err)
	}
	if settledAt != "" {
		t, err := time.Parse(time.RFC3339Nano, settledAt)
		if err != nil {
			return nil, fmt.Errorf("bad settled_at %q: %w", settledAt, err)
		}
		tx.SettledAt = &t
	}
	return &tx, nil
}
