// Package dtos holds the commands entering the application layer and the
// DTOs leaving it. Commands are already validated at the adapter boundary;
// amounts arrive as exact decimals, never floats.
package dtos

import (
	"time"

	"github.com/coinvault/coinvault/internal/domain/valueobjects"
)

// Commands

// TopupCommand credits a user from the system treasury.
type TopupCommand struct {
	UserID           string
	AssetCode        string
	Amount           valueobjects.Money
	IdempotencyKey   string
	RequestPath      string
	RequestMethod    string
	PaymentReference string
	Description      string
}

// BonusCommand credits a user from the system bonus pool.
type BonusCommand struct {
	UserID         string
	AssetCode      string
	Amount         valueobjects.Money
	IdempotencyKey string
	RequestPath    string
	RequestMethod  string
	Reason         string
}

// SpendCommand debits a user into the system revenue sink.
type SpendCommand struct {
	UserID         string
	AssetCode      string
	Amount         valueobjects.Money
	IdempotencyKey string
	RequestPath    string
	RequestMethod  string
	ItemID         string
	Description    string
}

// BalanceQuery reads (and on first sight creates) a user wallet.
type BalanceQuery struct {
	UserID    string
	AssetCode string
}

// HistoryQuery lists a user's transaction headers, newest first.
type HistoryQuery struct {
	UserID    string
	AssetCode string // optional; empty means all assets
	Limit     int
	Offset    int
}

// DTOs

// TransactionDTO is the wire shape of a transaction header.
type TransactionDTO struct {
	TransactionID   string     `json:"transaction_id"`
	TransactionType string     `json:"transaction_type"`
	Status          string     `json:"status"`
	FromWalletID    int64      `json:"from_wallet_id"`
	ToWalletID      int64      `json:"to_wallet_id"`
	Amount          string     `json:"amount"`
	Description     string     `json:"description,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// WalletBalanceDTO is the wire shape of a balance read.
type WalletBalanceDTO struct {
	WalletID      int64     `json:"wallet_id"`
	UserID        string    `json:"user_id"`
	AssetTypeCode string    `json:"asset_type_code"`
	Balance       string    `json:"balance"`
	IsSystem      bool      `json:"is_system"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TransactionHistoryDTO is the paginated history envelope.
type TransactionHistoryDTO struct {
	Transactions []TransactionDTO `json:"transactions"`
	TotalCount   int64            `json:"total_count"`
	Page         int              `json:"page"`
	PageSize     int              `json:"page_size"`
}

// OperationResult is what a mutating operation hands back to the adapter:
// the response status plus the exact bytes recorded for replay. A replayed
// request returns the original bytes untouched.
type OperationResult struct {
	Status   int
	Body     []byte
	Replayed bool
}
