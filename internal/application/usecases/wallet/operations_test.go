package wallet

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinvault/coinvault/internal/application/dtos"
	"github.com/coinvault/coinvault/internal/domain/entities"
	domainErrors "github.com/coinvault/coinvault/internal/domain/errors"
	"github.com/coinvault/coinvault/internal/domain/events"
)

func TestTopup_CreatesWalletsAndPosts(t *testing.T) {
	f := newFixture("GOLD_COIN")
	uc := NewTopupUseCase(f.deps)

	result, err := uc.Execute(context.Background(), dtos.TopupCommand{
		UserID:         "alice",
		AssetCode:      "GOLD_COIN",
		Amount:         money(t, "100.00"),
		IdempotencyKey: "k1",
		RequestPath:    "/api/v1/wallets/topup",
		RequestMethod:  "POST",
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 201, result.Status)
	assert.False(t, result.Replayed)

	var dto dtos.TransactionDTO
	require.NoError(t, json.Unmarshal(result.Body, &dto))
	assert.Equal(t, "TOPUP", dto.TransactionType)
	assert.Equal(t, "COMPLETED", dto.Status)
	assert.Equal(t, "100.00", dto.Amount)

	// user wallet credited, treasury debited
	alice, err := f.wallets.Find(context.Background(), "alice", 1)
	require.NoError(t, err)
	assert.Equal(t, "100.00", alice.Balance().String())

	treasury, err := f.wallets.Find(context.Background(), entities.TreasuryUserID("GOLD_COIN"), 1)
	require.NoError(t, err)
	assert.True(t, treasury.IsSystem())
	assert.Equal(t, "-100.00", treasury.Balance().String())

	// idempotency record carries the exact response bytes
	rec, err := f.idem.Lookup(context.Background(), "k1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, result.Body, rec.ResponseBody)
	assert.Equal(t, 201, rec.ResponseStatus)

	// wallet.created for alice and the treasury, plus transaction.completed
	var created, completed int
	for _, ev := range f.pub.published {
		switch ev.EventType() {
		case events.EventTypeWalletCreated:
			created++
		case events.EventTypeTransactionCompleted:
			completed++
		}
	}
	assert.Equal(t, 2, created)
	assert.Equal(t, 1, completed)
}

func TestTopup_ReplayReturnsOriginalBytes(t *testing.T) {
	f := newFixture("GOLD_COIN")
	uc := NewTopupUseCase(f.deps)

	cmd := dtos.TopupCommand{
		UserID:         "alice",
		AssetCode:      "GOLD_COIN",
		Amount:         money(t, "100.00"),
		IdempotencyKey: "k1",
		RequestPath:    "/api/v1/wallets/topup",
		RequestMethod:  "POST",
	}

	first, err := uc.Execute(context.Background(), cmd)
	require.NoError(t, err)

	second, err := uc.Execute(context.Background(), cmd)
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.Body, second.Body)
	assert.Equal(t, first.Status, second.Status)

	// no second posting happened
	assert.Len(t, f.txs.byKey, 1)
	alice, _ := f.wallets.Find(context.Background(), "alice", 1)
	assert.Equal(t, "100.00", alice.Balance().String())
}

func TestBonus_DrawsFromBonusPool(t *testing.T) {
	f := newFixture("GOLD_COIN")
	uc := NewBonusUseCase(f.deps)

	result, err := uc.Execute(context.Background(), dtos.BonusCommand{
		UserID:         "bob",
		AssetCode:      "GOLD_COIN",
		Amount:         money(t, "50.00"),
		IdempotencyKey: "bonus-1",
		Reason:         "Referral bonus",
	})
	require.NoError(t, err)

	var dto dtos.TransactionDTO
	require.NoError(t, json.Unmarshal(result.Body, &dto))
	assert.Equal(t, "BONUS", dto.TransactionType)
	assert.Equal(t, "Bonus: Referral bonus", dto.Description)

	pool, err := f.wallets.Find(context.Background(), entities.BonusPoolUserID("GOLD_COIN"), 1)
	require.NoError(t, err)
	assert.Equal(t, "-50.00", pool.Balance().String())
}

func TestSpend_MovesFundsToRevenue(t *testing.T) {
	f := newFixture("GOLD_COIN")

	// fund alice first
	_, err := NewTopupUseCase(f.deps).Execute(context.Background(), dtos.TopupCommand{
		UserID: "alice", AssetCode: "GOLD_COIN", Amount: money(t, "100.00"), IdempotencyKey: "k1",
	})
	require.NoError(t, err)

	result, err := NewSpendUseCase(f.deps).Execute(context.Background(), dtos.SpendCommand{
		UserID:         "alice",
		AssetCode:      "GOLD_COIN",
		Amount:         money(t, "30.00"),
		IdempotencyKey: "k2",
		ItemID:         "sword-7",
	})
	require.NoError(t, err)
	assert.Equal(t, 201, result.Status)

	alice, _ := f.wallets.Find(context.Background(), "alice", 1)
	assert.Equal(t, "70.00", alice.Balance().String())

	revenue, err := f.wallets.Find(context.Background(), entities.RevenueUserID("GOLD_COIN"), 1)
	require.NoError(t, err)
	assert.Equal(t, "30.00", revenue.Balance().String())
}

func TestSpend_InsufficientFundsLeavesNoTrace(t *testing.T) {
	f := newFixture("GOLD_COIN")

	_, err := NewTopupUseCase(f.deps).Execute(context.Background(), dtos.TopupCommand{
		UserID: "alice", AssetCode: "GOLD_COIN", Amount: money(t, "70.00"), IdempotencyKey: "k1",
	})
	require.NoError(t, err)

	_, err = NewSpendUseCase(f.deps).Execute(context.Background(), dtos.SpendCommand{
		UserID:         "alice",
		AssetCode:      "GOLD_COIN",
		Amount:         money(t, "9999.00"),
		IdempotencyKey: "k3",
	})
	require.Error(t, err)
	assert.True(t, domainErrors.IsInsufficientFunds(err))

	// balance unchanged, and no idempotency record for the failed key:
	// a corrected retry with k3 must still be able to succeed
	alice, _ := f.wallets.Find(context.Background(), "alice", 1)
	assert.Equal(t, "70.00", alice.Balance().String())

	rec, err := f.idem.Lookup(context.Background(), "k3")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestSpend_NoWalletIsNotFound(t *testing.T) {
	f := newFixture("GOLD_COIN")

	_, err := NewSpendUseCase(f.deps).Execute(context.Background(), dtos.SpendCommand{
		UserID:         "bob", // never topped up
		AssetCode:      "GOLD_COIN",
		Amount:         money(t, "30.00"),
		IdempotencyKey: "k4",
	})
	require.Error(t, err)
	assert.True(t, domainErrors.IsWalletNotFound(err))

	// spend must not materialize the wallet
	_, err = f.wallets.Find(context.Background(), "bob", 1)
	assert.True(t, domainErrors.IsWalletNotFound(err))
}

func TestTopup_UnknownAssetIsNotFound(t *testing.T) {
	f := newFixture("GOLD_COIN")

	_, err := NewTopupUseCase(f.deps).Execute(context.Background(), dtos.TopupCommand{
		UserID:         "alice",
		AssetCode:      "PLUTONIUM",
		Amount:         money(t, "10.00"),
		IdempotencyKey: "k5",
	})
	assert.True(t, domainErrors.IsAssetNotFound(err))
}

func TestTopup_IdempotencyRaceReturnsWinnerResponse(t *testing.T) {
	f := newFixture("GOLD_COIN")

	winnerBody := []byte(`{"transaction_id":"winner"}`)
	winner := entities.NewIdempotencyRecord("raced", "/api/v1/wallets/topup", "POST", 201, winnerBody)

	// First lookup misses (we start executing); Record loses the unique
	// constraint; the re-read then finds the winner's committed record.
	calls := 0
	f.idem.lookupFunc = func(ctx context.Context, key string) (*entities.IdempotencyRecord, error) {
		calls++
		if calls == 1 {
			return nil, nil
		}
		return winner, nil
	}
	f.idem.recordFunc = func(ctx context.Context, rec *entities.IdempotencyRecord) error {
		return domainErrors.ErrDuplicateKey
	}

	result, err := NewTopupUseCase(f.deps).Execute(context.Background(), dtos.TopupCommand{
		UserID:         "alice",
		AssetCode:      "GOLD_COIN",
		Amount:         money(t, "10.00"),
		IdempotencyKey: "raced",
	})
	require.NoError(t, err)
	assert.True(t, result.Replayed)
	assert.Equal(t, winnerBody, result.Body)
}
