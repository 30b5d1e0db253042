package wallet

import (
	"context"

	"github.com/coinvault/coinvault/internal/application/dtos"
	"github.com/coinvault/coinvault/internal/domain/events"
)

// GetBalanceUseCase reads a user's balance for one asset. A first-time read
// materializes the wallet with zero balance so the response is well-defined.
type GetBalanceUseCase struct {
	deps *Deps
}

// NewGetBalanceUseCase creates the use case.
func NewGetBalanceUseCase(deps *Deps) *GetBalanceUseCase {
	return &GetBalanceUseCase{deps: deps}
}

// Execute resolves the asset and locates or creates the wallet. The
// create-on-read runs in its own unit of work so the new row commits.
func (uc *GetBalanceUseCase) Execute(ctx context.Context, q dtos.BalanceQuery) (*dtos.WalletBalanceDTO, error) {
	var out *dtos.WalletBalanceDTO

	err := uc.deps.executeWithRetry(ctx, func(txCtx context.Context) error {
		asset, err := uc.deps.Assets.FindByCode(txCtx, q.AssetCode)
		if err != nil {
			return err
		}

		w, created, err := uc.deps.Wallets.Acquire(txCtx, q.UserID, asset.ID, false)
		if err != nil {
			return err
		}
		if created {
			ev := events.NewWalletCreated(w.ID(), w.UserID(), asset.Code, false)
			if err := uc.deps.Publisher.Publish(txCtx, ev); err != nil {
				return err
			}
		}

		dto := dtos.MapWalletBalance(w, asset)
		out = &dto
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
