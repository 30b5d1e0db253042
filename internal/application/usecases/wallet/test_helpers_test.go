package wallet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coinvault/coinvault/internal/application/usecases/transfer"
	"github.com/coinvault/coinvault/internal/domain/entities"
	domainErrors "github.com/coinvault/coinvault/internal/domain/errors"
	"github.com/coinvault/coinvault/internal/domain/events"
	"github.com/coinvault/coinvault/internal/domain/valueobjects"
)

// In-memory fakes for the use case ports. They model enough store behaviour
// (unique keys, lazy creation) to run whole flows without a database.

type fakeAssetRepo struct {
	assets map[string]*entities.AssetType
}

func newFakeAssetRepo(codes ...string) *fakeAssetRepo {
	r := &fakeAssetRepo{assets: make(map[string]*entities.AssetType)}
	for i, code := range codes {
		r.assets[code] = &entities.AssetType{ID: int64(i + 1), Code: code, Name: code, IsActive: true}
	}
	return r
}

func (r *fakeAssetRepo) FindByCode(ctx context.Context, code string) (*entities.AssetType, error) {
	if a, ok := r.assets[code]; ok && a.IsActive {
		return a, nil
	}
	return nil, domainErrors.ErrAssetNotFound
}

func (r *fakeAssetRepo) FindByID(ctx context.Context, id int64) (*entities.AssetType, error) {
	for _, a := range r.assets {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, domainErrors.ErrAssetNotFound
}

func (r *fakeAssetRepo) List(ctx context.Context) ([]*entities.AssetType, error) {
	var out []*entities.AssetType
	for _, a := range r.assets {
		out = append(out, a)
	}
	return out, nil
}

func (r *fakeAssetRepo) Insert(ctx context.Context, asset *entities.AssetType) error {
	if _, ok := r.assets[asset.Code]; ok {
		return domainErrors.ErrDuplicateKey
	}
	asset.ID = int64(len(r.assets) + 1)
	r.assets[asset.Code] = asset
	return nil
}

type fakeWalletRepo struct {
	wallets map[int64]*entities.Wallet
	nextID  int64
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{wallets: make(map[int64]*entities.Wallet)}
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
	r.nextID++
	w := entities.NewWallet(userID, assetTypeID, isSystem)
	w.AssignID(r.nextID)
	r.wallets[w.ID()] = w
	return w, true, nil
}

func (r *fakeWalletRepo) LockForTransfer(ctx context.Context, ids []int64) (map[int64]*entities.Wallet, error) {
	out := make(map[int64]*entities.Wallet)
	for _, id := range ids {
		if w, ok := r.wallets[id]; ok {
			out[id] = w
		}
	}
	return out, nil
}

func (r *fakeWalletRepo) SaveBalance(ctx context.Context, wallet *entities.Wallet) error {
	return nil
}

func (r *fakeWalletRepo) FindByUser(ctx context.Context, userID string, assetTypeID int64) ([]*entities.Wallet, error) {
	var out []*entities.Wallet
	for _, w := range r.wallets {
		if w.UserID() != userID {
			continue
		}
		if assetTypeID != 0 && w.AssetTypeID() != assetTypeID {
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

type fakeTransactionRepo struct {
	byKey  map[string]*entities.Transaction
	nextID int64
}

func newFakeTransactionRepo() *fakeTransactionRepo {
	return &fakeTransactionRepo{byKey: make(map[string]*entities.Transaction)}
}

func (r *fakeTransactionRepo) Insert(ctx context.Context, tx *entities.Transaction) error {
	if _, ok := r.byKey[tx.IdempotencyKey()]; ok {
		return domainErrors.ErrDuplicateKey
	}
	r.nextID++
	tx.AssignID(r.nextID)
	r.byKey[tx.IdempotencyKey()] = tx
	return nil
}

func (r *fakeTransactionRepo) MarkCompleted(ctx context.Context, tx *entities.Transaction) error {
	return nil
}

func (r *fakeTransactionRepo) FindByIdempotencyKey(ctx context.Context, key string) (*entities.Transaction, error) {
	if tx, ok := r.byKey[key]; ok {
		return tx, nil
	}
	return nil, domainErrors.ErrEntityNotFound
}

func (r *fakeTransactionRepo) ListByWallets(ctx context.Context, walletIDs []int64, limit, offset int) ([]*entities.Transaction, error) {
	ids := make(map[int64]bool, len(walletIDs))
	for _, id := range walletIDs {
		ids[id] = true
	}
	var all []*entities.Transaction
	for _, tx := range r.byKey {
		if ids[tx.FromWalletID()] || ids[tx.ToWalletID()] {
			all = append(all, tx)
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *fakeTransactionRepo) CountByWallets(ctx context.Context, walletIDs []int64) (int64, error) {
	txs, err := r.ListByWallets(ctx, walletIDs, int(^uint(0)>>1), 0)
	return int64(len(txs)), err
}

type fakeLedgerRepo struct {
	entries []*entities.LedgerEntry
}

func (r *fakeLedgerRepo) Insert(ctx context.Context, entry *entities.LedgerEntry) error {
	entry.ID = int64(len(r.entries) + 1)
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeLedgerRepo) ListByWallet(ctx context.Context, walletID int64, limit, offset int) ([]*entities.LedgerEntry, error) {
	return nil, nil
}

func (r *fakeLedgerRepo) SumByWallet(ctx context.Context, walletID int64) (string, error) {
	return "0", nil
}

// fakeIdempotencyCache allows per-test overrides of Lookup/Record while
// defaulting to an in-memory map.
type fakeIdempotencyCache struct {
	records    map[string]*entities.IdempotencyRecord
	lookupFunc func(ctx context.Context, key string) (*entities.IdempotencyRecord, error)
	recordFunc func(ctx context.Context, rec *entities.IdempotencyRecord) error
}

func newFakeIdempotencyCache() *fakeIdempotencyCache {
	return &fakeIdempotencyCache{records: make(map[string]*entities.IdempotencyRecord)}
}

func (c *fakeIdempotencyCache) Lookup(ctx context.Context, key string) (*entities.IdempotencyRecord, error) {
	if c.lookupFunc != nil {
		return c.lookupFunc(ctx, key)
	}
	return c.records[key], nil
}

func (c *fakeIdempotencyCache) Record(ctx context.Context, rec *entities.IdempotencyRecord) error {
	if c.recordFunc != nil {
		return c.recordFunc(ctx, rec)
	}
	if _, ok := c.records[rec.IdempotencyKey]; ok {
		return domainErrors.ErrDuplicateKey
	}
	c.records[rec.IdempotencyKey] = rec
	return nil
}

func (c *fakeIdempotencyCache) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

type fakePublisher struct {
	published []events.DomainEvent
}

func (p *fakePublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	p.published = append(p.published, event)
	return nil
}

func (p *fakePublisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	p.published = append(p.published, batch...)
	return nil
}

// fakeUnitOfWork runs the function directly; fakes have no rollback.
type fakeUnitOfWork struct{}

func (u *fakeUnitOfWork) Execute(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

// fixture bundles the fakes behind a ready-to-use Deps.
type fixture struct {
	assets  *fakeAssetRepo
	wallets *fakeWalletRepo
	txs     *fakeTransactionRepo
	ledger  *fakeLedgerRepo
	idem    *fakeIdempotencyCache
	pub     *fakePublisher
	deps    *Deps
}

func newFixture(codes ...string) *fixture {
	f := &fixture{
		assets:  newFakeAssetRepo(codes...),
		wallets: newFakeWalletRepo(),
		txs:     newFakeTransactionRepo(),
		ledger:  &fakeLedgerRepo{},
		idem:    newFakeIdempotencyCache(),
		pub:     &fakePublisher{},
	}
	f.deps = &Deps{
		Assets:       f.assets,
		Wallets:      f.wallets,
		Transactions: f.txs,
		Idempotency:  f.idem,
		Publisher:    f.pub,
		Engine:       transfer.NewEngine(f.wallets, f.txs, f.ledger, nil),
		UoW:          &fakeUnitOfWork{},
	}
	return f
}

func money(t *testing.T, s string) valueobjects.Money {
	t.Helper()
	m, err := valueobjects.NewMoney(s)
	require.NoError(t, err)
	return m
}
