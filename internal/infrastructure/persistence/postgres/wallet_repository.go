// Package postgres - WalletRepository implementation with lazy
// materialization and the ordered locking read used by the transfer engine.
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
var _ ports.WalletRepository = (*WalletRepository)(nil)

// WalletRepository implements ports.WalletRepository.
//
// Balances are stored as numeric(20,2) and scanned through text so the exact
// decimal value never passes through a float.
type WalletRepository struct {
	pool *pgxpool.Pool
}

// NewWalletRepository creates a new WalletRepository.
func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

const walletColumns = `id, user_id, asset_type_id, balance::text, is_system, version, created_at, updated_at`

// Find reads a wallet without locking.
func (r *WalletRepository) Find(ctx context.Context, userID string, assetTypeID int64) (*entities.Wallet, error) {
	q := querierFrom(ctx, r.pool)

	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 AND asset_type_id = $2`

	w, err := scanWallet(q.QueryRow(ctx, query, userID, assetTypeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %s", domainErrors.ErrWalletNotFound, userID)
		}
		return nil, fmt.Errorf("failed to find wallet: %w", err)
	}
	return w, nil
}

// Acquire locates the wallet, creating it with zero balance when absent.
// Concurrent creators serialize on the (user_id, asset_type_id) unique
// constraint: the loser re-reads the winner's row.
func (r *WalletRepository) Acquire(ctx context.Context, userID string, assetTypeID int64, isSystem bool) (*entities.Wallet, bool, error) {
	w, err := r.Find(ctx, userID, assetTypeID)
	if err == nil {
		return w, false, nil
	}
	if !domainErrors.IsWalletNotFound(err) {
		return nil, false, err
	}

	q := querierFrom(ctx, r.pool)

	// ON CONFLICT keeps the transaction alive on a lost creation race
	// (a plain unique-violation would abort it).
	query := `
		INSERT INTO wallets (user_id, asset_type_id, balance, is_system, version)
		VALUES ($1, $2, 0, $3, 0)
		ON CONFLICT ON CONSTRAINT uq_user_asset DO NOTHING
		RETURNING ` + walletColumns

	created, err := scanWallet(q.QueryRow(ctx, query, userID, assetTypeID, isSystem))
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to insert wallet: %w", err)
	}

	// Lost the creation race. The winner committed, but under repeatable
	// read its row is invisible to this snapshot; re-run the unit of work
	// with a fresh one.
	w, err = r.Find(ctx, userID, assetTypeID)
	if err != nil {
		if domainErrors.IsWalletNotFound(err) {
			return nil, false, fmt.Errorf("%w: wallet %s created concurrently", domainErrors.ErrRetryConflict, userID)
		}
		return nil, false, err
	}
	return w, false, nil
}

// LockForTransfer selects the given wallet ids ordered ascending and takes
// exclusive row locks. All transfers lock in this same total order, which is
// what makes concurrent overlapping transfers deadlock-free.
func (r *WalletRepository) LockForTransfer(ctx context.Context, ids []int64) (map[int64]*entities.Wallet, error) {
	q := querierFrom(ctx, r.pool)

	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to lock wallets: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]*entities.Wallet, len(ids))
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan locked wallet: %w", err)
		}
		out[w.ID()] = w
	}
	return out, rows.Err()
}

// SaveBalance persists the balance and version mutated by the engine.
// The caller holds the row lock; no optimistic check is needed here.
func (r *WalletRepository) SaveBalance(ctx context.Context, wallet *entities.Wallet) error {
	q := querierFrom(ctx, r.pool)

	query := `UPDATE wallets SET balance = $2, version = $3, updated_at = $4 WHERE id = $1`

	tag, err := q.Exec(ctx, query,
		wallet.ID(),
		wallet.Balance().String(),
		wallet.Version(),
		wallet.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to update wallet balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: wallet %d", domainErrors.ErrWalletNotFound, wallet.ID())
	}
	return nil
}

// FindByUser returns all wallets of a user, optionally filtered to one
// asset type (assetTypeID = 0 means no filter).
func (r *WalletRepository) FindByUser(ctx context.Context, userID string, assetTypeID int64) ([]*entities.Wallet, error) {
	q := querierFrom(ctx, r.pool)

	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`
	args := []any{userID}
	if assetTypeID != 0 {
		query += ` AND asset_type_id = $2`
		args = append(args, assetTypeID)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find wallets by user: %w", err)
	}
	defer rows.Close()

	var out []*entities.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func scanWallet(row pgx.Row) (*entities.Wallet, error) {
	var (
		id          int64
		userID      string
		assetTypeID int64
		balanceStr  string
		isSystem    bool
		version     int64
		createdAt   time.Time
		updatedAt   time.Time
	)

	if err := row.Scan(&id, &userID, &assetTypeID, &balanceStr, &isSystem, &version, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("invalid balance %q for wallet %d: %w", balanceStr, id, err)
	}

	return entities.ReconstructWallet(
		id, userID, assetTypeID,
		valueobjects.NewMoneyFromDecimal(balance),
		isSystem, version, createdAt, updatedAt,
	), nil
}
