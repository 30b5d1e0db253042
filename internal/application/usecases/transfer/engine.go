// Package transfer implements the transaction execution engine: one atomic
// double-entry posting between two wallets.
//
// Invariants upheld here:
//   - atomicity: header, both entries, both balance updates commit together
//     (the caller supplies the transaction scope)
//   - consistency: balance always equals the sum of a wallet's entries, and
//     user wallets never go below zero
//   - deadlock freedom: both rows are locked in one read ordered by
//     ascending wallet id, so overlapping transfers serialize on the first
//     common id and no lock cycle can form
package transfer

import (
	"context"
	"log/slog"

	"github.com/coinvault/coinvault/internal/application/ports"
	"github.com/coinvault/coinvault/internal/domain/entities"
	domainErrors "github.com/coinvault/coinvault/internal/domain/errors"
	"github.com/coinvault/coinvault/internal/domain/valueobjects"
)

// Posting is the input to one transfer execution.
type Posting struct {
	FromWalletID   int64
	ToWalletID     int64
	AssetTypeID    int64
	Amount         valueobjects.Money
	Kind           entities.TransactionKind
	IdempotencyKey string
	Description    string
	Metadata       string // serialized, opaque
}

// Engine orchestrates a single atomic value movement. It must be called
// inside an open unit of work; every repository call below shares the
// caller's transaction and its row locks.
type Engine struct {
	wallets      ports.WalletRepository
	transactions ports.TransactionRepository
	entries      ports.LedgerEntryRepository
	logger       *slog.Logger
}

// NewEngine creates a transfer engine.
func NewEngine(
	wallets ports.WalletRepository,
	transactions ports.TransactionRepository,
	entries ports.LedgerEntryRepository,
	logger *slog.Logger,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		wallets:      wallets,
		transactions: transactions,
		entries:      entries,
		logger:       logger,
	}
}

// Post executes one double-entry posting.
//
// Locking protocol: both wallet rows are selected in a single locking read
// ordered by id ascending. Validation runs only after the locks are held, so
// the balance check observes the committed value no concurrent transfer can
// change underneath us.
func (e *Engine) Post(ctx context.Context, p Posting) (*entities.Transaction, error) {
	ids := []int64{p.FromWalletID, p.ToWalletID}
	if ids[0] > ids[1] {
		ids[0], ids[1] = ids[1], ids[0]
	}

	locked, err := e.wallets.LockForTransfer(ctx, ids)
	if err != nil {
		return nil, domainErrors.NewInternal("lock wallets", err)
	}

	fromWallet, toWallet := locked[p.FromWalletID], locked[p.ToWalletID]
	if fromWallet == nil || toWallet == nil {
		return nil, domainErrors.ErrWalletNotFound
	}

	if err := fromWallet.CanDebit(p.Amount); err != nil {
		return nil, err
	}

	tx, err := entities.NewTransaction(
		p.FromWalletID, p.ToWalletID, p.AssetTypeID,
		p.Amount, p.Kind, p.IdempotencyKey, p.Description, p.Metadata,
	)
	if err != nil {
		return nil, err
	}

	// Header first: a unique-constraint hit on idempotency_key surfaces
	// before any balance moves.
	if err := e.transactions.Insert(ctx, tx); err != nil {
		return nil, err
	}

	if err := fromWallet.Debit(p.Amount); err != nil {
		return nil, err
	}
	toWallet.Credit(p.Amount)

	if err := e.wallets.SaveBalance(ctx, fromWallet); err != nil {
		return nil, domainErrors.NewInternal("update from-wallet balance", err)
	}
	if err := e.wallets.SaveBalance(ctx, toWallet); err != nil {
		return nil, domainErrors.NewInternal("update to-wallet balance", err)
	}

	debit := entities.NewDebitEntry(fromWallet.ID(), p.Amount, fromWallet.Balance())
	debit.TransactionID = tx.ID()
	if err := e.entries.Insert(ctx, debit); err != nil {
		return nil, domainErrors.NewInternal("insert debit entry", err)
	}

	credit := entities.NewCreditEntry(toWallet.ID(), p.Amount, toWallet.Balance())
	credit.TransactionID = tx.ID()
	if err := e.entries.Insert(ctx, credit); err != nil {
		return nil, domainErrors.NewInternal("insert credit entry", err)
	}

	if err := tx.MarkCompleted(); err != nil {
		return nil, err
	}
	if err := e.transactions.MarkCompleted(ctx, tx); err != nil {
		return nil, domainErrors.NewInternal("complete transaction", err)
	}

	e.logger.DebugContext(ctx, "posting executed",
		"transaction_id", tx.TransactionID(),
		"kind", string(p.Kind),
		"from_wallet_id", p.FromWalletID,
		"to_wallet_id", p.ToWalletID,
		"amount", p.Amount.String(),
	)

	return tx, nil
}
