package dtos

import (
	"github.com/coinvault/coinvault/internal/domain/entities"
)

// MapTransaction converts a Transaction entity to its wire shape.
func MapTransaction(tx *entities.Transaction) TransactionDTO {
	return TransactionDTO{
		TransactionID:   tx.TransactionID(),
		TransactionType: string(tx.Kind()),
		Status:          string(tx.Status()),
		FromWalletID:    tx.FromWalletID(),
		ToWalletID:      tx.ToWalletID(),
		Amount:          tx.Amount().String(),
		Description:     tx.Description(),
		CreatedAt:       tx.CreatedAt(),
		CompletedAt:     tx.CompletedAt(),
	}
}

// MapTransactions converts a page of headers.
func MapTransactions(txs []*entities.Transaction) []TransactionDTO {
	out := make([]TransactionDTO, 0, len(txs))
	for _, tx := range txs {
		out = append(out, MapTransaction(tx))
	}
	return out
}

// MapWalletBalance converts a wallet plus its asset to a balance response.
func MapWalletBalance(w *entities.Wallet, asset *entities.AssetType) WalletBalanceDTO {
	return WalletBalanceDTO{
		WalletID:      w.ID(),
		UserID:        w.UserID(),
		AssetTypeCode: asset.Code,
		Balance:       w.Balance().String(),
		IsSystem:      w.IsSystem(),
		UpdatedAt:     w.UpdatedAt(),
	}
}
