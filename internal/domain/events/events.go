// Package events defines domain events raised by the ledger. Events are
// immutable facts about committed state changes; they are written to the
// outbox inside the business transaction and relayed to the broker after
// commit, so consumers never observe a movement that did not happen.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventTypeWalletCreated        = "wallet.created"
	EventTypeTransactionCompleted = "transaction.completed"
)

// DomainEvent is the base interface for all domain events.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	// Payload returns the serializable event body.
	Payload() any
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	eventID    uuid.UUID
	eventType  string
	occurredAt time.Time
}

func newBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		eventID:    uuid.New(),
		eventType:  eventType,
		occurredAt: time.Now().UTC(),
	}
}

func (e BaseEvent) EventID() uuid.UUID {
	return e.eventID
}

func (e BaseEvent) EventType() string {
	return e.eventType
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.occurredAt
}

// WalletCreated is raised when a wallet is materialized for the first time.
type WalletCreated struct {
	BaseEvent
	WalletID  int64  `json:"wallet_id"`
	UserID    string `json:"user_id"`
	AssetCode string `json:"asset_code"`
	IsSystem  bool   `json:"is_system"`
}

func NewWalletCreated(walletID int64, userID, assetCode string, isSystem bool) *WalletCreated {
	return &WalletCreated{
		BaseEvent: newBaseEvent(EventTypeWalletCreated),
		WalletID:  walletID,
		UserID:    userID,
		AssetCode: assetCode,
		IsSystem:  isSystem,
	}
}

func (e *WalletCreated) Payload() any {
	return e
}

// TransactionCompleted is raised when a double-entry posting commits.
type TransactionCompleted struct {
	BaseEvent
	TransactionID string `json:"transaction_id"`
	Kind          string `json:"kind"`
	FromWalletID  int64  `json:"from_wallet_id"`
	ToWalletID    int64  `json:"to_wallet_id"`
	AssetCode     string `json:"asset_code"`
	Amount        string `json:"amount"`
}

func NewTransactionCompleted(transactionID, kind string, fromWalletID, toWalletID int64, assetCode, amount string) *TransactionCompleted {
	return &TransactionCompleted{
		BaseEvent:     newBaseEvent(EventTypeTransactionCompleted),
		TransactionID: transactionID,
		Kind:          kind,
		FromWalletID:  fromWalletID,
		ToWalletID:    toWalletID,
		AssetCode:     assetCode,
		Amount:        amount,
	}
}

func (e *TransactionCompleted) Payload() any {
	return e
}
