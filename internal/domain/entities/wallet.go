// Package entities - Wallet is the core entity of the ledger: one balance of
// one asset owned by one actor. It enforces the non-negative balance rule for
// user wallets; system wallets (Treasury, Bonus Pool, Revenue) are exempt.
package entities

import (
	"time"

	"github.com/coinvault/coinvault/internal/domain/errors"
	"github.com/coinvault/coinvault/internal/domain/valueobjects"
)

// System wallet naming convention. System wallets are addressed by user_id
// convention, one triple per asset code, created lazily on first use.
const (
	SystemTreasuryPrefix  = "SYSTEM_TREASURY_"
	SystemBonusPoolPrefix = "SYSTEM_BONUS_POOL_"
	SystemRevenuePrefix   = "SYSTEM_REVENUE_"
)

// TreasuryUserID returns the treasury wallet owner id for an asset code.
func TreasuryUserID(assetCode string) string {
	return SystemTreasuryPrefix + assetCode
}

// BonusPoolUserID returns the bonus pool wallet owner id for an asset code.
func BonusPoolUserID(assetCode string) string {
	return SystemBonusPoolPrefix + assetCode
}

// RevenueUserID returns the revenue wallet owner id for an asset code.
func RevenueUserID(assetCode string) string {
	return SystemRevenuePrefix + assetCode
}

// Wallet represents a per-actor, per-asset balance.
//
// Entity Pattern:
// - Has identity (store-assigned id)
// - Enforces invariants (non-negative balance for user wallets)
// - Balance mutations go through Debit/Credit so the version counter and
//   updated timestamp stay in lockstep with the amount
type Wallet struct {
	id          int64
	userID      string
	assetTypeID int64
	balance     valueobjects.Money
	isSystem    bool
	version     int64
	createdAt   time.Time
	updatedAt   time.Time
}

// NewWallet creates a fresh wallet with zero balance and version 0.
// The id is assigned by the store on insert.
func NewWallet(userID string, assetTypeID int64, isSystem bool) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		userID:      userID,
		assetTypeID: assetTypeID,
		balance:     valueobjects.Zero(),
		isSystem:    isSystem,
		version:     0,
		createdAt:   now,
		updatedAt:   now,
	}
}

// ReconstructWallet rebuilds a Wallet from stored data.
// Used by the repository to hydrate entities from database rows.
func ReconstructWallet(
	id int64,
	userID string,
	assetTypeID int64,
	balance valueobjects.Money,
	isSystem bool,
	version int64,
	createdAt, updatedAt time.Time,
) *Wallet {
	return &Wallet{
		id:          id,
		userID:      userID,
		assetTypeID: assetTypeID,
		balance:     balance,
		isSystem:    isSystem,
		version:     version,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// AssignID sets the store-generated id after insert.
func (w *Wallet) AssignID(id int64) {
	w.id = id
}

// Getters

func (w *Wallet) ID() int64 {
	return w.id
}

func (w *Wallet) UserID() string {
	return w.userID
}

func (w *Wallet) AssetTypeID() int64 {
	return w.assetTypeID
}

func (w *Wallet) Balance() valueobjects.Money {
	return w.balance
}

func (w *Wallet) IsSystem() bool {
	return w.isSystem
}

func (w *Wallet) Version() int64 {
	return w.version
}

func (w *Wallet) CreatedAt() time.Time {
	return w.createdAt
}

func (w *Wallet) UpdatedAt() time.Time {
	return w.updatedAt
}

// Business methods

// CanDebit checks whether debiting the given amount is allowed.
// System wallets are modelled as unbounded sources/sinks: their balance is
// still adjusted for bookkeeping but never rejects a debit.
func (w *Wallet) CanDebit(amount valueobjects.Money) error {
	if w.isSystem {
		return nil
	}
	if w.balance.LessThan(amount) {
		return errors.NewInsufficientFunds(w.balance.String(), amount.String())
	}
	return nil
}

// Debit subtracts the amount from the balance. The caller must have run
// CanDebit first; user wallet balances never go negative through this path.
func (w *Wallet) Debit(amount valueobjects.Money) error {
	if err := w.CanDebit(amount); err != nil {
		return err
	}
	w.balance = w.balance.Sub(amount)
	w.version++
	w.updatedAt = time.Now().UTC()
	return nil
}

// Credit adds the amount to the balance.
func (w *Wallet) Credit(amount valueobjects.Money) {
	w.balance = w.balance.Add(amount)
	w.version++
	w.updatedAt = time.Now().UTC()
}
