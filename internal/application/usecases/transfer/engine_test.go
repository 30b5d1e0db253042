package transfer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinvault/coinvault/internal/domain/entities"
	domainErrors "github.com/coinvault/coinvault/internal/domain/errors"
	"github.com/coinvault/coinvault/internal/domain/valueobjects"
)

// In-memory fakes for the engine's ports.

type fakeWalletRepo struct {
	wallets    map[int64]*entities.Wallet
	lockedIDs  [][]int64 // records every locking read's id slice
	savedOrder []int64
}

func newFakeWalletRepo(ws ...*entities.Wallet) *fakeWalletRepo {
	r := &fakeWalletRepo{wallets: make(map[int64]*entities.Wallet)}
	for _, w := range ws {
		r.wallets[w.ID()] = w
	}
	return r
}

func (r *fakeWalletRepo) Find(ctx context.Context, userID string, assetTypeID int64) (*entities.Wallet, error) {
	for _, w := range r.wallets {
		if w.UserID() == userID && w.AssetTypeID() == assetTypeID {
			return w, nil
		}
	}
	return nil, domainErrors.ErrWalletNotFound
}

func (r *fakeWalletRepo) Acquire(ctx context.Context, userID string, assetTypeID int64, isSystem bool) (*entities.Wallet, bool, error) {
	if w, err := r.Find(ctx, userID, assetTypeID); err == nil {
		return w, false, nil
	}
	w := entities.NewWallet(userID, assetTypeID, isSystem)
	w.AssignID(int64(len(r.wallets) + 1))
	r.wallets[w.ID()] = w
	return w, true, nil
}

func (r *fakeWalletRepo) LockForTransfer(ctx context.Context, ids []int64) (map[int64]*entities.Wallet, error) {
	r.lockedIDs = append(r.lockedIDs, append([]int64(nil), ids...))
	out := make(map[int64]*entities.Wallet)
	for _, id := range ids {
		if w, ok := r.wallets[id]; ok {
			out[id] = w
		}
	}
	return out, nil
}

func (r *fakeWalletRepo) SaveBalance(ctx context.Context, wallet *entities.Wallet) error {
	r.savedOrder = append(r.savedOrder, wallet.ID())
	return nil
}

func (r *fakeWalletRepo) FindByUser(ctx context.Context, userID string, assetTypeID int64) ([]*entities.Wallet, error) {
	var out []*entities.Wallet
	for _, w := range r.wallets {
		if w.UserID() == userID {
			out = append(out, w)
		}
	}
	return out, nil
}

type fakeTransactionRepo struct {
	inserted  []*entities.Transaction
	completed []*entities.Transaction
	insertErr error
	nextID    int64
}

func (r *fakeTransactionRepo) Insert(ctx context.Context, tx *entities.Transaction) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.nextID++
	tx.AssignID(r.nextID)
	r.inserted = append(r.inserted, tx)
	return nil
}

func (r *fakeTransactionRepo) MarkCompleted(ctx context.Context, tx *entities.Transaction) error {
	r.completed = append(r.completed, tx)
	return nil
}

func (r *fakeTransactionRepo) FindByIdempotencyKey(ctx context.Context, key string) (*entities.Transaction, error) {
	for _, tx := range r.inserted {
		if tx.IdempotencyKey() == key {
			return tx, nil
		}
	}
	return nil, domainErrors.ErrEntityNotFound
}

func (r *fakeTransactionRepo) ListByWallets(ctx context.Context, walletIDs []int64, limit, offset int) ([]*entities.Transaction, error) {
	return nil, nil
}

func (r *fakeTransactionRepo) CountByWallets(ctx context.Context, walletIDs []int64) (int64, error) {
	return 0, nil
}

type fakeLedgerRepo struct {
	entries []*entities.LedgerEntry
	nextID  int64
}

func (r *fakeLedgerRepo) Insert(ctx context.Context, entry *entities.LedgerEntry) error {
	r.nextID++
	entry.ID = r.nextID
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeLedgerRepo) ListByWallet(ctx context.Context, walletID int64, limit, offset int) ([]*entities.LedgerEntry, error) {
	return nil, nil
}

func (r *fakeLedgerRepo) SumByWallet(ctx context.Context, walletID int64) (string, error) {
	return "0", nil
}

func money(t *testing.T, s string) valueobjects.Money {
	t.Helper()
	m, err := valueobjects.NewMoney(s)
	require.NoError(t, err)
	return m
}

func seededWallet(t *testing.T, id int64, userID string, balance string, isSystem bool) *entities.Wallet {
	t.Helper()
	w := entities.NewWallet(userID, 10, isSystem)
	w.AssignID(id)
	if balance != "0" {
		w.Credit(money(t, balance))
	}
	return w
}

func TestEngine_Post_Success(t *testing.T) {
	treasury := seededWallet(t, 1, "SYSTEM_TREASURY_GOLD_COIN", "0", true)
	alice := seededWallet(t, 2, "alice", "0", false)

	wallets := newFakeWalletRepo(treasury, alice)
	txRepo := &fakeTransactionRepo{}
	ledger := &fakeLedgerRepo{}
	engine := NewEngine(wallets, txRepo, ledger, nil)

	tx, err := engine.Post(context.Background(), Posting{
		FromWalletID:   1,
		ToWalletID:     2,
		AssetTypeID:    10,
		Amount:         money(t, "100.00"),
		Kind:           entities.TransactionKindTopup,
		IdempotencyKey: "k1",
	})
	require.NoError(t, err)

	assert.Equal(t, entities.TransactionStatusCompleted, tx.Status())
	assert.NotNil(t, tx.CompletedAt())

	// balances moved on both sides
	assert.Equal(t, "-100.00", treasury.Balance().String())
	assert.Equal(t, "100.00", alice.Balance().String())

	// exactly one DEBIT and one CREDIT, summing to zero
	require.Len(t, ledger.entries, 2)
	debit, credit := ledger.entries[0], ledger.entries[1]
	assert.Equal(t, entities.EntryKindDebit, debit.Kind)
	assert.Equal(t, "-100.00", debit.Amount.String())
	assert.Equal(t, "-100.00", debit.BalanceAfter.String())
	assert.Equal(t, tx.ID(), debit.TransactionID)
	assert.Equal(t, entities.EntryKindCredit, credit.Kind)
	assert.Equal(t, "100.00", credit.Amount.String())
	assert.Equal(t, "100.00", credit.BalanceAfter.String())
	assert.Equal(t, tx.ID(), credit.TransactionID)
	assert.True(t, debit.Amount.Add(credit.Amount).IsZero())
}

func TestEngine_Post_LocksInAscendingOrder(t *testing.T) {
	a := seededWallet(t, 9, "alice", "50.00", false)
	b := seededWallet(t, 3, "SYSTEM_REVENUE_GOLD_COIN", "0", true)

	wallets := newFakeWalletRepo(a, b)
	engine := NewEngine(wallets, &fakeTransactionRepo{}, &fakeLedgerRepo{}, nil)

	// from=9 to=3: the locking read must still ask for [3, 9]
	_, err := engine.Post(context.Background(), Posting{
		FromWalletID:   9,
		ToWalletID:     3,
		AssetTypeID:    10,
		Amount:         money(t, "10.00"),
		Kind:           entities.TransactionKindSpend,
		IdempotencyKey: "k-order",
	})
	require.NoError(t, err)

	require.Len(t, wallets.lockedIDs, 1)
	assert.Equal(t, []int64{3, 9}, wallets.lockedIDs[0])
}

func TestEngine_Post_InsufficientFunds(t *testing.T) {
	alice := seededWallet(t, 1, "alice", "70.00", false)
	revenue := seededWallet(t, 2, "SYSTEM_REVENUE_GOLD_COIN", "0", true)

	wallets := newFakeWalletRepo(alice, revenue)
	txRepo := &fakeTransactionRepo{}
	ledger := &fakeLedgerRepo{}
	engine := NewEngine(wallets, txRepo, ledger, nil)

	_, err := engine.Post(context.Background(), Posting{
		FromWalletID:   1,
		ToWalletID:     2,
		AssetTypeID:    10,
		Amount:         money(t, "9999.00"),
		Kind:           entities.TransactionKindSpend,
		IdempotencyKey: "k2",
	})
	require.Error(t, err)
	assert.True(t, domainErrors.IsInsufficientFunds(err))

	// nothing was written, nothing moved
	assert.Empty(t, txRepo.inserted)
	assert.Empty(t, ledger.entries)
	assert.Equal(t, "70.00", alice.Balance().String())
}

func TestEngine_Post_SystemWalletDebitsBelowZero(t *testing.T) {
	treasury := seededWallet(t, 1, "SYSTEM_TREASURY_GOLD_COIN", "0", true)
	alice := seededWallet(t, 2, "alice", "0", false)

	engine := NewEngine(newFakeWalletRepo(treasury, alice), &fakeTransactionRepo{}, &fakeLedgerRepo{}, nil)

	// two topups from an unfunded treasury both succeed
	for i, key := range []string{"ka", "kb"} {
		_, err := engine.Post(context.Background(), Posting{
			FromWalletID:   1,
			ToWalletID:     2,
			AssetTypeID:    10,
			Amount:         money(t, "10.00"),
			Kind:           entities.TransactionKindTopup,
			IdempotencyKey: key,
		})
		require.NoError(t, err, "posting %d", i)
	}

	assert.Equal(t, "-20.00", treasury.Balance().String())
	assert.Equal(t, "20.00", alice.Balance().String())
}

func TestEngine_Post_WalletMissing(t *testing.T) {
	alice := seededWallet(t, 1, "alice", "10.00", false)
	engine := NewEngine(newFakeWalletRepo(alice), &fakeTransactionRepo{}, &fakeLedgerRepo{}, nil)

	_, err := engine.Post(context.Background(), Posting{
		FromWalletID:   1,
		ToWalletID:     42, // never created
		AssetTypeID:    10,
		Amount:         money(t, "1.00"),
		Kind:           entities.TransactionKindSpend,
		IdempotencyKey: "k3",
	})
	assert.True(t, domainErrors.IsWalletNotFound(err))
}

func TestEngine_Post_DuplicateKeySurfacesFromHeaderInsert(t *testing.T) {
	treasury := seededWallet(t, 1, "SYSTEM_TREASURY_GOLD_COIN", "0", true)
	alice := seededWallet(t, 2, "alice", "0", false)

	txRepo := &fakeTransactionRepo{insertErr: domainErrors.ErrDuplicateKey}
	ledger := &fakeLedgerRepo{}
	engine := NewEngine(newFakeWalletRepo(treasury, alice), txRepo, ledger, nil)

	_, err := engine.Post(context.Background(), Posting{
		FromWalletID:   1,
		ToWalletID:     2,
		AssetTypeID:    10,
		Amount:         money(t, "10.00"),
		Kind:           entities.TransactionKindTopup,
		IdempotencyKey: "raced",
	})
	require.Error(t, err)
	assert.True(t, domainErrors.IsDuplicateKey(err))

	// header insert failed before any balance mutation
	assert.True(t, alice.Balance().IsZero())
	assert.Empty(t, ledger.entries)
}
