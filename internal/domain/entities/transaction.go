// Package entities - Transaction is the header of one double-entry value
// movement between two wallets of the same asset.
package entities

import (
	"time"

	"github.com/coinvault/coinvault/internal/domain/errors"
	"github.com/coinvault/coinvault/internal/domain/valueobjects"
	"github.com/google/uuid"
)

// TransactionKind classifies the business flow behind a movement.
type TransactionKind string

const (
	TransactionKindTopup      TransactionKind = "TOPUP"
	TransactionKindBonus      TransactionKind = "BONUS"
	TransactionKindSpend      TransactionKind = "SPEND"
	TransactionKindRefund     TransactionKind = "REFUND"
	TransactionKindAdjustment TransactionKind = "ADJUSTMENT"
)

// IsValid checks if the transaction kind is valid.
func (k TransactionKind) IsValid() bool {
	switch k {
	case TransactionKindTopup, TransactionKindBonus, TransactionKindSpend,
		TransactionKindRefund, TransactionKindAdjustment:
		return true
	default:
		return false
	}
}

// TransactionStatus is the lifecycle state of a transaction header.
// ROLLED_BACK is reserved for a future compensating flow; the operations
// implemented here never emit it.
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "PENDING"
	TransactionStatusCompleted  TransactionStatus = "COMPLETED"
	TransactionStatusFailed     TransactionStatus = "FAILED"
	TransactionStatusRolledBack TransactionStatus = "ROLLED_BACK"
)

// Transaction is one value movement between two wallets.
//
// Invariants:
// - amount > 0
// - from and to wallets differ and carry the transaction's asset
// - transaction_id and idempotency_key are globally unique
type Transaction struct {
	id             int64
	transactionID  string // externally opaque, UUID-shaped
	idempotencyKey string
	kind           TransactionKind
	status         TransactionStatus
	fromWalletID   int64
	toWalletID     int64
	assetTypeID    int64
	amount         valueobjects.Money
	description    string
	metadata       string // serialized, opaque to the core
	createdAt      time.Time
	completedAt    *time.Time
}

// NewTransaction creates a PENDING transaction header with a freshly
// generated transaction id.
func NewTransaction(
	fromWalletID, toWalletID, assetTypeID int64,
	amount valueobjects.Money,
	kind TransactionKind,
	idempotencyKey, description, metadata string,
) (*Transaction, error) {
	if !amount.IsPositive() {
		return nil, errors.ValidationError{Field: "amount", Message: "must be greater than zero"}
	}
	if fromWalletID == toWalletID {
		return nil, errors.ValidationError{Field: "to_wallet_id", Message: "cannot transfer to the same wallet"}
	}
	if !kind.IsValid() {
		return nil, errors.ValidationError{Field: "kind", Message: "invalid transaction kind"}
	}
	if idempotencyKey == "" {
		return nil, errors.ValidationError{Field: "idempotency_key", Message: "is required"}
	}

	return &Transaction{
		transactionID:  uuid.NewString(),
		idempotencyKey: idempotencyKey,
		kind:           kind,
		status:         TransactionStatusPending,
		fromWalletID:   fromWalletID,
		toWalletID:     toWalletID,
		assetTypeID:    assetTypeID,
		amount:         amount,
		description:    description,
		metadata:       metadata,
		createdAt:      time.Now().UTC(),
	}, nil
}

// ReconstructTransaction rebuilds a Transaction from stored data.
func ReconstructTransaction(
	id int64,
	transactionID, idempotencyKey string,
	kind TransactionKind,
	status TransactionStatus,
	fromWalletID, toWalletID, assetTypeID int64,
	amount valueobjects.Money,
	description, metadata string,
	createdAt time.Time,
	completedAt *time.Time,
) *Transaction {
	return &Transaction{
		id:             id,
		transactionID:  transactionID,
		idempotencyKey: idempotencyKey,
		kind:           kind,
		status:         status,
		fromWalletID:   fromWalletID,
		toWalletID:     toWalletID,
		assetTypeID:    assetTypeID,
		amount:         amount,
		description:    description,
		metadata:       metadata,
		createdAt:      createdAt,
		completedAt:    completedAt,
	}
}

// AssignID sets the store-generated id after insert.
func (t *Transaction) AssignID(id int64) {
	t.id = id
}

// Getters

func (t *Transaction) ID() int64 {
	return t.id
}

func (t *Transaction) TransactionID() string {
	return t.transactionID
}

func (t *Transaction) IdempotencyKey() string {
	return t.idempotencyKey
}

func (t *Transaction) Kind() TransactionKind {
	return t.kind
}

func (t *Transaction) Status() TransactionStatus {
	return t.status
}

func (t *Transaction) FromWalletID() int64 {
	return t.fromWalletID
}

func (t *Transaction) ToWalletID() int64 {
	return t.toWalletID
}

func (t *Transaction) AssetTypeID() int64 {
	return t.assetTypeID
}

func (t *Transaction) Amount() valueobjects.Money {
	return t.amount
}

func (t *Transaction) Description() string {
	return t.description
}

func (t *Transaction) Metadata() string {
	return t.metadata
}

func (t *Transaction) CreatedAt() time.Time {
	return t.createdAt
}

func (t *Transaction) CompletedAt() *time.Time {
	return t.completedAt
}

// MarkCompleted transitions PENDING -> COMPLETED and stamps completed_at.
func (t *Transaction) MarkCompleted() error {
	if t.status != TransactionStatusPending {
		return errors.ValidationError{Field: "status", Message: "only pending transactions can complete"}
	}
	now := time.Now().UTC()
	t.status = TransactionStatusCompleted
	t.completedAt = &now
	return nil
}
