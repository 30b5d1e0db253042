// Package postgres - AssetTypeRepository implementation.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coinvault/coinvault/internal/application/ports"
	"github.com/coinvault/coinvault/internal/domain/entities"
	domainErrors "github.com/coinvault/coinvault/internal/domain/errors"
)

// Compile-time check
var _ ports.AssetTypeRepository = (*AssetTypeRepository)(nil)

// AssetTypeRepository resolves asset codes against the asset_types catalog.
type AssetTypeRepository struct {
	pool *pgxpool.Pool
}

// NewAssetTypeRepository creates a new AssetTypeRepository.
func NewAssetTypeRepository(pool *pgxpool.Pool) *AssetTypeRepository {
	return &AssetTypeRepository{pool: pool}
}

const assetColumns = `id, code, name, COALESCE(description, ''), is_active, created_at, updated_at`

// FindByCode resolves an active asset by code. Inactive and unknown codes
// both map to ErrAssetNotFound; callers cannot tell them apart.
func (r *AssetTypeRepository) FindByCode(ctx context.Context, code string) (*entities.AssetType, error) {
	q := querierFrom(ctx, r.pool)

	query := `SELECT ` + assetColumns + ` FROM asset_types WHERE code = $1 AND is_active = true`

	asset, err := scanAssetType(q.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domainErrors.ErrAssetNotFound, code)
		}
		return nil, fmt.Errorf("failed to find asset type by code: %w", err)
	}
	return asset, nil
}

// FindByID loads an asset by surrogate id regardless of active flag.
func (r *AssetTypeRepository) FindByID(ctx context.Context, id int64) (*entities.AssetType, error) {
	q := querierFrom(ctx, r.pool)

	query := `SELECT ` + assetColumns + ` FROM asset_types WHERE id = $1`

	asset, err := scanAssetType(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrAssetNotFound
		}
		return nil, fmt.Errorf("failed to find asset type by id: %w", err)
	}
	return asset, nil
}

// List returns the full catalog ordered by code.
func (r *AssetTypeRepository) List(ctx context.Context) ([]*entities.AssetType, error) {
	q := querierFrom(ctx, r.pool)

	rows, err := q.Query(ctx, `SELECT `+assetColumns+` FROM asset_types ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to list asset types: %w", err)
	}
	defer rows.Close()

	var out []*entities.AssetType
	for rows.Next() {
		asset, err := scanAssetType(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset type: %w", err)
		}
		out = append(out, asset)
	}
	return out, rows.Err()
}

// Insert adds a catalog row and assigns its id.
func (r *AssetTypeRepository) Insert(ctx context.Context, asset *entities.AssetType) error {
	q := querierFrom(ctx, r.pool)

	query := `
		INSERT INTO asset_types (code, name, description, is_active)
		VALUES ($1, $2, NULLIF($3, ''), $4)
		RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(ctx, query, asset.Code, asset.Name, asset.Description, asset.IsActive).
		Scan(&asset.ID, &asset.CreatedAt, &asset.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "") {
			return fmt.Errorf("%w: asset code %s", domainErrors.ErrDuplicateKey, asset.Code)
		}
		return fmt.Errorf("failed to insert asset type: %w", err)
	}
	return nil
}

func scanAssetType(row pgx.Row) (*entities.AssetType, error) {
	var (
		a         entities.AssetType
		createdAt time.Time
		updatedAt time.Time
	)
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Description, &a.IsActive, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	a.CreatedAt = createdAt
	a.UpdatedAt = updatedAt
	return &a, nil
}
