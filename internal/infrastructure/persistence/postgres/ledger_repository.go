// Package postgres - LedgerEntryRepository implementation. Entries are
// append-only; this repository exposes no update or delete surface.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/coinvault/coinvault/internal/application/ports"
	"github.com/coinvault/coinvault/internal/domain/entities"
	"github.com/coinvault/coinvault/internal/domain/valueobjects"
)

// Compile-time check
var _ ports.LedgerEntryRepository = (*LedgerEntryRepository)(nil)

// LedgerEntryRepository stores double-entry postings.
type LedgerEntryRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerEntryRepository creates a new LedgerEntryRepository.
func NewLedgerEntryRepository(pool *pgxpool.Pool) *LedgerEntryRepository {
	return &LedgerEntryRepository{pool: pool}
}

// Insert persists one posting and assigns its id.
func (r *LedgerEntryRepository) Insert(ctx context.Context, entry *entities.LedgerEntry) error {
	q := querierFrom(ctx, r.pool)

	query := `
		INSERT INTO ledger_entries (transaction_id, wallet_id, entry_type, amount, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := q.QueryRow(ctx, query,
		entry.TransactionID,
		entry.WalletID,
		string(entry.Kind),
		entry.Amount.String(),
		entry.BalanceAfter.String(),
		entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return nil
}

// ListByWallet returns a wallet's postings, newest first.
func (r *LedgerEntryRepository) ListByWallet(ctx context.Context, walletID int64, limit, offset int) ([]*entities.LedgerEntry, error) {
	q := querierFrom(ctx, r.pool)

	query := `
		SELECT id, transaction_id, wallet_id, entry_type, amount::text, balance_after::text, created_at
		FROM ledger_entries
		WHERE wallet_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := q.Query(ctx, query, walletID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var out []*entities.LedgerEntry
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// SumByWallet returns the sum of entry amounts for a wallet as a decimal
// string. By the ledger invariant this equals the stored balance.
func (r *LedgerEntryRepository) SumByWallet(ctx context.Context, walletID int64) (string, error) {
	q := querierFrom(ctx, r.pool)

	query := `SELECT COALESCE(SUM(amount), 0)::text FROM ledger_entries WHERE wallet_id = $1`

	var sum string
	if err := q.QueryRow(ctx, query, walletID).Scan(&sum); err != nil {
		return "", fmt.Errorf("failed to sum ledger entries: %w", err)
	}
	return sum, nil
}

func scanLedgerEntry(row pgx.Row) (*entities.LedgerEntry, error) {
	var (
		e               entities.LedgerEntry
		kind            string
		amountStr       string
		balanceAfterStr string
		createdAt       time.Time
	)

	err := row.Scan(&e.ID, &e.TransactionID, &e.WalletID, &kind, &amountStr, &balanceAfterStr, &createdAt)
	if err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("invalid entry amount %q: %w", amountStr, err)
	}
	balanceAfter, err := decimal.NewFromString(balanceAfterStr)
	if err != nil {
		return nil, fmt.Errorf("invalid balance_after %q: %w", balanceAfterStr, err)
	}

	e.Kind = entities.EntryKind(kind)
	e.Amount = valueobjects.NewMoneyFromDecimal(amount)
	e.BalanceAfter = valueobjects.NewMoneyFromDecimal(balanceAfter)
	e.CreatedAt = createdAt
	return &e, nil
}
