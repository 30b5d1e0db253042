package wallet

import (
	"context"

	"github.com/coinvault/coinvault/internal/application/dtos"
)

// History pagination bounds.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 100
)

// GetHistoryUseCase lists transaction headers where either wallet belongs to
// the user, newest first, optionally filtered to one asset.
type GetHistoryUseCase struct {
	deps *Deps
}

// NewGetHistoryUseCase creates the use case.
func NewGetHistoryUseCase(deps *Deps) *GetHistoryUseCase {
	return &GetHistoryUseCase{deps: deps}
}

// Execute runs the history query.
func (uc *GetHistoryUseCase) Execute(ctx context.Context, q dtos.HistoryQuery) (*dtos.TransactionHistoryDTO, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	var assetTypeID int64
	if q.AssetCode != "" {
		asset, err := uc.deps.Assets.FindByCode(ctx, q.AssetCode)
		if err != nil {
			return nil, err
		}
		assetTypeID = asset.ID
	}

	wallets, err := uc.deps.Wallets.FindByUser(ctx, q.UserID, assetTypeID)
	if err != nil {
		return nil, err
	}

	out := &dtos.TransactionHistoryDTO{
		Transactions: []dtos.TransactionDTO{},
		Page:         offset/limit + 1,
		PageSize:     limit,
	}
	if len(wallets) == 0 {
		return out, nil
	}

	walletIDs := make([]int64, 0, len(wallets))
	for _, w := range wallets {
		walletIDs = append(walletIDs, w.ID())
	}

	txs, err := uc.deps.Transactions.ListByWallets(ctx, walletIDs, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := uc.deps.Transactions.CountByWallets(ctx, walletIDs)
	if err != nil {
		return nil, err
	}

	out.Transactions = dtos.MapTransactions(txs)
	out.TotalCount = total
	return out, nil
}
