package wallet

import (
	"context"

	"github.com/coinvault/coinvault/internal/application/dtos"
	"github.com/coinvault/coinvault/internal/domain/entities"
)

// BonusUseCase issues incentive credits from the system bonus pool.
type BonusUseCase struct {
	deps *Deps
}

// NewBonusUseCase creates the use case.
func NewBonusUseCase(deps *Deps) *BonusUseCase {
	return &BonusUseCase{deps: deps}
}

// Execute runs the bonus issuance.
func (uc *BonusUseCase) Execute(ctx context.Context, cmd dtos.BonusCommand) (*dtos.OperationResult, error) {
	return uc.deps.runPosting(ctx, cmd.IdempotencyKey, cmd.RequestPath, cmd.RequestMethod, cmd.Amount,
		func(txCtx context.Context) (*postingPlan, error) {
			asset, err := uc.deps.Assets.FindByCode(txCtx, cmd.AssetCode)
			if err != nil {
				return nil, err
			}

			plan := &postingPlan{asset: asset, kind: entities.TransactionKindBonus}

			userWallet, err := acquireTracked(txCtx, uc.deps.Wallets, plan, cmd.UserID, asset.ID, false)
			if err != nil {
				return nil, err
			}

			bonusPool, err := acquireTracked(txCtx, uc.deps.Wallets, plan, entities.BonusPoolUserID(asset.Code), asset.ID, true)
			if err != nil {
				return nil, err
			}

			plan.fromWallet = bonusPool
			plan.toWallet = userWallet
			plan.description = "Bonus: " + cmd.Reason
			plan.metadata = marshalMetadata(map[string]string{
				"bonus_reason": cmd.Reason,
				"flow":         "bonus",
			})
			return plan, nil
		})
}
