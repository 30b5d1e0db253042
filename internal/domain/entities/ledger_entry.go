package entities

import (
	"time"

	"github.com/coinvault/coinvault/internal/domain/valueobjects"
)

// EntryKind is the side of a double-entry posting.
type EntryKind string

const (
	EntryKindDebit  EntryKind = "DEBIT"
	EntryKindCredit EntryKind = "CREDIT"
)

// LedgerEntry is one signed posting against one wallet. Entries are
// append-only; exactly two exist per completed transaction and they sum to
// zero. BalanceAfter is the wallet balance immediately after this posting.
type LedgerEntry struct {
	ID            int64
	TransactionID int64 // FK to the transaction header's surrogate id
	WalletID      int64
	Kind          EntryKind
	Amount        valueobjects.Money // negative for debits, positive for credits
	BalanceAfter  valueobjects.Money
	CreatedAt     time.Time
}

// NewDebitEntry builds the debit side of a posting: amount is negated.
func NewDebitEntry(walletID int64, amount, balanceAfter valueobjects.Money) *LedgerEntry {
	return &LedgerEntry{
		WalletID:     walletID,
		Kind:         EntryKindDebit,
		Amount:       amount.Neg(),
		BalanceAfter: balanceAfter,
		CreatedAt:    time.Now().UTC(),
	}
}

// NewCreditEntry builds the credit side of a posting.
func NewCreditEntry(walletID int64, amount, balanceAfter valueobjects.Money) *LedgerEntry {
	return &LedgerEntry{
		WalletID:     walletID,
		Kind:         EntryKindCredit,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		CreatedAt:    time.Now().UTC(),
	}
}
