package wallet

import (
	"context"

	"github.com/coinvault/coinvault/internal/application/dtos"
	"github.com/coinvault/coinvault/internal/domain/entities"
)

// TopupUseCase credits a user wallet from the system treasury (purchase
// flow). The user wallet and the treasury are both created lazily.
type TopupUseCase struct {
	deps *Deps
}

// NewTopupUseCase creates the use case.
func NewTopupUseCase(deps *Deps) *TopupUseCase {
	return &TopupUseCase{deps: deps}
}

// Execute runs the topup.
func (uc *TopupUseCase) Execute(ctx context.Context, cmd dtos.TopupCommand) (*dtos.OperationResult, error) {
	return uc.deps.runPosting(ctx, cmd.IdempotencyKey, cmd.RequestPath, cmd.RequestMethod, cmd.Amount,
		func(txCtx context.Context) (*postingPlan, error) {
			asset, err := uc.deps.Assets.FindByCode(txCtx, cmd.AssetCode)
			if err != nil {
				return nil, err
			}

			plan := &postingPlan{asset: asset, kind: entities.TransactionKindTopup}

			userWallet, err := acquireTracked(txCtx, uc.deps.Wallets, plan, cmd.UserID, asset.ID, false)
			if err != nil {
				return nil, err
			}

			treasury, err := acquireTracked(txCtx, uc.deps.Wallets, plan, entities.TreasuryUserID(asset.Code), asset.ID, true)
			if err != nil {
				return nil, err
			}

			plan.fromWallet = treasury
			plan.toWallet = userWallet
			plan.description = cmd.Description
			if plan.description == "" {
				plan.description = "Wallet top-up for " + cmd.UserID
			}
			plan.metadata = marshalMetadata(map[string]string{
				"payment_reference": cmd.PaymentReference,
				"flow":              "topup",
			})
			return plan, nil
		})
}
