// Package postgres - TransactionRepository implementation.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/coinvault/coinvault/internal/application/ports"
	"github.com/coinvault/coinvault/internal/domain/entities"
	domainErrors "github.com/coinvault/coinvault/internal/domain/errors"
	"github.com/coinvault/coinvault/internal/domain/valueobjects"
)

// Compile-time check
var _ ports.TransactionRepository = (*TransactionRepository)(nil)

// TransactionRepository stores transaction headers.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

const transactionColumns = `id, transaction_id, idempotency_key, transaction_type, status,
	from_wallet_id, to_wallet_id, asset_type_id, amount::text,
	COALESCE(description, ''), COALESCE(meta_data, ''), created_at, completed_at`

// Insert persists a new header and assigns its surrogate id. A uniqueness
// violation on idempotency_key maps to ErrDuplicateKey: it means a racing
// request with the same key won, and the caller returns the winner's
// cached response.
func (r *TransactionRepository) Insert(ctx context.Context, tx *entities.Transaction) error {
	q := querierFrom(ctx, r.pool)

	query := `
		INSERT INTO transactions (
			transaction_id, idempotency_key, transaction_type, status,
			from_wallet_id, to_wallet_id, asset_type_id, amount,
			description, meta_data, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), NULLIF($10, ''), $11)
		RETURNING id
	`

	var id int64
	err := q.QueryRow(ctx, query,
		tx.TransactionID(),
		tx.IdempotencyKey(),
		string(tx.Kind()),
		string(tx.Status()),
		tx.FromWalletID(),
		tx.ToWalletID(),
		tx.AssetTypeID(),
		tx.Amount().String(),
		tx.Description(),
		tx.Metadata(),
		tx.CreatedAt(),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err, "") {
			return fmt.Errorf("%w: idempotency key %s", domainErrors.ErrDuplicateKey, tx.IdempotencyKey())
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	tx.AssignID(id)
	return nil
}

// MarkCompleted persists the PENDING -> COMPLETED transition.
func (r *TransactionRepository) MarkCompleted(ctx context.Context, tx *entities.Transaction) error {
	q := querierFrom(ctx, r.pool)

	query := `UPDATE transactions SET status = $2, completed_at = $3 WHERE id = $1`

	tag, err := q.Exec(ctx, query, tx.ID(), string(tx.Status()), tx.CompletedAt())
	if err != nil {
		return fmt.Errorf("failed to complete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: transaction %d", domainErrors.ErrEntityNotFound, tx.ID())
	}
	return nil
}

// FindByIdempotencyKey loads the header recorded for a key.
func (r *TransactionRepository) FindByIdempotencyKey(ctx context.Context, key string) (*entities.Transaction, error) {
	q := querierFrom(ctx, r.pool)

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE idempotency_key = $1`

	tx, err := scanTransaction(q.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrEntityNotFound
		}
		return nil, fmt.Errorf("failed to find transaction by idempotency key: %w", err)
	}
	return tx, nil
}

// ListByWallets returns headers where either wallet is in walletIDs,
// ordered by created_at descending.
func (r *TransactionRepository) ListByWallets(ctx context.Context, walletIDs []int64, limit, offset int) ([]*entities.Transaction, error) {
	q := querierFrom(ctx, r.pool)

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE from_wallet_id = ANY($1) OR to_wallet_id = ANY($1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := q.Query(ctx, query, walletIDs, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var out []*entities.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// CountByWallets returns the total number of headers touching walletIDs.
func (r *TransactionRepository) CountByWallets(ctx context.Context, walletIDs []int64) (int64, error) {
	q := querierFrom(ctx, r.pool)

	query := `SELECT COUNT(*) FROM transactions WHERE from_wallet_id = ANY($1) OR to_wallet_id = ANY($1)`

	var count int64
	if err := q.QueryRow(ctx, query, walletIDs).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

func scanTransaction(row pgx.Row) (*entities.Transaction, error) {
	var (
		id             int64
		transactionID  string
		idempotencyKey string
		kind           string
		status         string
		fromWalletID   int64
		toWalletID     int64
		assetTypeID    int64
		amountStr      string
		description    string
		metadata       string
		createdAt      time.Time
		completedAt    *time.Time
	)

	err := row.Scan(
		&id, &transactionID, &idempotencyKey, &kind, &status,
		&fromWalletID, &toWalletID, &assetTypeID, &amountStr,
		&description, &metadata, &createdAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q for transaction %d: %w", amountStr, id, err)
	}

	return entities.ReconstructTransaction(
		id, transactionID, idempotencyKey,
		entities.TransactionKind(kind),
		entities.TransactionStatus(status),
		fromWalletID, toWalletID, assetTypeID,
		valueobjects.NewMoneyFromDecimal(amount),
		description, metadata, createdAt, completedAt,
	), nil
}
