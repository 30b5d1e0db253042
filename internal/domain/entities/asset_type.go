// Package entities holds the persistent domain model of the wallet ledger.
package entities

import "time"

// AssetType is a catalogued unit of virtual value (gold coins, diamonds,
// loyalty points). Codes are unique and immutable once a wallet or
// transaction references them.
type AssetType struct {
	ID          int64
	Code        string // short unique code, e.g. "GOLD_COIN"
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
