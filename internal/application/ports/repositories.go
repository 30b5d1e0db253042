// Package ports defines the interfaces the application layer expects from
// infrastructure. Implementations live under internal/infrastructure.
//
// Pattern: Repository Pattern + Ports & Adapters (Hexagonal Architecture)
package ports

import (
	"context"

	"github.com/coinvault/coinvault/internal/domain/entities"
)

// AssetTypeRepository resolves asset codes to catalog rows.
type AssetTypeRepository interface {
	// FindByCode resolves an asset code, filtering inactive assets.
	// Returns errors.ErrAssetNotFound when the code is absent or inactive.
	FindByCode(ctx context.Context, code string) (*entities.AssetType, error)

	// FindByID loads an asset by surrogate id.
	FindByID(ctx context.Context, id int64) (*entities.AssetType, error)

	// List returns the full catalog. Used by the seed command.
	List(ctx context.Context) ([]*entities.AssetType, error)

	// Insert adds a new catalog row. Returns errors.ErrDuplicateKey when
	// the code is already taken.
	Insert(ctx context.Context, asset *entities.AssetType) error
}

// WalletRepository locates and lazily materializes wallets keyed by
// (user_id, asset_type_id).
type WalletRepository interface {
	// Find reads a wallet without locking. Returns errors.ErrWalletNotFound
	// when absent.
	Find(ctx context.Context, userID string, assetTypeID int64) (*entities.Wallet, error)

	// Acquire locates the wallet and, if absent, creates it with zero
	// balance and version 0. Rows returned here are NOT locked; locking is
	// the transfer engine's job. A duplicate-key loss against a concurrent
	// creator is resolved by re-reading; when the winner's row is not
	// visible to the current snapshot, errors.ErrRetryConflict is
	// returned so the unit of work can be re-run. The bool reports
	// whether this call materialized the wallet.
	Acquire(ctx context.Context, userID string, assetTypeID int64, isSystem bool) (*entities.Wallet, bool, error)

	// LockForTransfer issues one locking read selecting the given wallet
	// ids ordered ascending with exclusive row locks. Wallets come back
	// keyed by id; missing ids are simply absent from the map.
	LockForTransfer(ctx context.Context, ids []int64) (map[int64]*entities.Wallet, error)

	// SaveBalance persists balance/version mutated by the transfer engine.
	// Must be called while the row lock is held.
	SaveBalance(ctx context.Context, wallet *entities.Wallet) error

	// FindByUser returns all wallets of a user, optionally filtered to one
	// asset type (assetTypeID = 0 means no filter).
	FindByUser(ctx context.Context, userID string, assetTypeID int64) ([]*entities.Wallet, error)
}

// TransactionRepository stores transaction headers.
type TransactionRepository interface {
	// Insert persists a new header and assigns its surrogate id.
	Insert(ctx context.Context, tx *entities.Transaction) error

	// MarkCompleted persists the PENDING -> COMPLETED transition.
	MarkCompleted(ctx context.Context, tx *entities.Transaction) error

	// FindByIdempotencyKey loads the header recorded for a key.
	// Returns errors.ErrEntityNotFound when absent.
	FindByIdempotencyKey(ctx context.Context, key string) (*entities.Transaction, error)

	// ListByWallets returns headers where either wallet is in walletIDs,
	// ordered by created_at descending.
	ListByWallets(ctx context.Context, walletIDs []int64, limit, offset int) ([]*entities.Transaction, error)

	// CountByWallets returns the total number of headers touching walletIDs.
	CountByWallets(ctx context.Context, walletIDs []int64) (int64, error)
}

// LedgerEntryRepository stores the double-entry postings. Entries are
// append-only; there is no update surface.
type LedgerEntryRepository interface {
	// Insert persists one posting.
	Insert(ctx context.Context, entry *entities.LedgerEntry) error

	// ListByWallet returns a wallet's postings, newest first.
	ListByWallet(ctx context.Context, walletID int64, limit, offset int) ([]*entities.LedgerEntry, error)

	// SumByWallet returns the sum of entry amounts for a wallet.
	// The ledger invariant says this equals the stored balance.
	SumByWallet(ctx context.Context, walletID int64) (string, error)
}

// IdempotencyCache records responses keyed by idempotency key and replays
// them for the TTL window.
type IdempotencyCache interface {
	// Lookup returns the cached record if it exists and is unexpired,
	// nil otherwise. Expired records are tombstones.
	Lookup(ctx context.Context, key string) (*entities.IdempotencyRecord, error)

	// Record inserts a new record. Returns errors.ErrDuplicateKey when the
	// key already exists; callers resolve the race by re-running Lookup.
	Record(ctx context.Context, rec *entities.IdempotencyRecord) error

	// DeleteExpired garbage-collects tombstones. Returns rows removed.
	DeleteExpired(ctx context.Context) (int64, error)
}

// OutboxMessage is one event row awaiting relay to the broker.
type OutboxMessage struct {
	ID        int64
	EventID   string
	EventType string
	Payload   []byte
}
