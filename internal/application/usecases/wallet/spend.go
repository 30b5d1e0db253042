package wallet

import (
	"context"

	"github.com/coinvault/coinvault/internal/application/dtos"
	"github.com/coinvault/coinvault/internal/domain/entities"
)

// SpendUseCase debits a user wallet into the system revenue sink.
//
// Unlike topup and bonus, spend does NOT create the user wallet: spending
// from a zero-balance implicit wallet is indistinguishable from a mistaken
// user id, so an absent wallet is a not-found error.
type SpendUseCase struct {
	deps *Deps
}

// NewSpendUseCase creates the use case.
func NewSpendUseCase(deps *Deps) *SpendUseCase {
	return &SpendUseCase{deps: deps}
}

// Execute runs the spend.
func (uc *SpendUseCase) Execute(ctx context.Context, cmd dtos.SpendCommand) (*dtos.OperationResult, error) {
	return uc.deps.runPosting(ctx, cmd.IdempotencyKey, cmd.RequestPath, cmd.RequestMethod, cmd.Amount,
		func(txCtx context.Context) (*postingPlan, error) {
			asset, err := uc.deps.Assets.FindByCode(txCtx, cmd.AssetCode)
			if err != nil {
				return nil, err
			}

			plan := &postingPlan{asset: asset, kind: entities.TransactionKindSpend}

			userWallet, err := uc.deps.Wallets.Find(txCtx, cmd.UserID, asset.ID)
			if err != nil {
				return nil, err
			}

			revenue, err := acquireTracked(txCtx, uc.deps.Wallets, plan, entities.RevenueUserID(asset.Code), asset.ID, true)
			if err != nil {
				return nil, err
			}

			plan.fromWallet = userWallet
			plan.toWallet = revenue
			plan.description = cmd.Description
			if plan.description == "" {
				plan.description = "Purchase by " + cmd.UserID
			}
			plan.metadata = marshalMetadata(map[string]string{
				"item_id": cmd.ItemID,
				"flow":    "spend",
			})
			return plan, nil
		})
}
