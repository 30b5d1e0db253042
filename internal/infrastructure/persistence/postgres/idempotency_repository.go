// Package postgres - IdempotencyRepository is the authoritative replay
// cache. Records are written inside the business transaction, so a rolled
// back movement never leaves a replayable response behind.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coinvault/coinvault/internal/application/ports"
	"github.com/coinvault/coinvault/internal/domain/entities"
	domainErrors "github.com/coinvault/coinvault/internal/domain/errors"
)

// Compile-time check
var _ ports.IdempotencyCache = (*IdempotencyRepository)(nil)

// IdempotencyRepository stores idempotency records in idempotency_logs.
type IdempotencyRepository struct {
	pool *pgxpool.Pool
}

// NewIdempotencyRepository creates a new IdempotencyRepository.
func NewIdempotencyRepository(pool *pgxpool.Pool) *IdempotencyRepository {
	return &IdempotencyRepository{pool: pool}
}

// Lookup returns the unexpired record for a key, nil when absent or
// expired. Expired rows are tombstones left for the out-of-band sweeper.
func (r *IdempotencyRepository) Lookup(ctx context.Context, key string) (*entities.IdempotencyRecord, error) {
	q := querierFrom(ctx, r.pool)

	query := `
		SELECT id, idempotency_key, request_path, request_method,
		       COALESCE(response_status, 0), COALESCE(response_body, ''), created_at, expires_at
		FROM idempotency_logs
		WHERE idempotency_key = $1 AND expires_at > now()
	`

	var (
		rec  entities.IdempotencyRecord
		body string
	)
	err := q.QueryRow(ctx, query, key).Scan(
		&rec.ID, &rec.IdempotencyKey, &rec.RequestPath, &rec.RequestMethod,
		&rec.ResponseStatus, &body, &rec.CreatedAt, &rec.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up idempotency record: %w", err)
	}
	rec.ResponseBody = []byte(body)
	return &rec, nil
}

// Record inserts a new record. A uniqueness violation maps to
// ErrDuplicateKey; callers resolve the first-writer race by re-running
// Lookup and replaying the winner's response.
func (r *IdempotencyRepository) Record(ctx context.Context, rec *entities.IdempotencyRecord) error {
	q := querierFrom(ctx, r.pool)

	query := `
		INSERT INTO idempotency_logs (
			idempotency_key, request_path, request_method,
			response_status, response_body, created_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := q.QueryRow(ctx, query,
		rec.IdempotencyKey,
		rec.RequestPath,
		rec.RequestMethod,
		rec.ResponseStatus,
		string(rec.ResponseBody),
		rec.CreatedAt,
		rec.ExpiresAt,
	).Scan(&rec.ID)
	if err != nil {
		if isUniqueViolation(err, "") {
			return fmt.Errorf("%w: idempotency key %s", domainErrors.ErrDuplicateKey, rec.IdempotencyKey)
		}
		return fmt.Errorf("failed to insert idempotency record: %w", err)
	}
	return nil
}

// DeleteExpired removes tombstones past their TTL. Intended for a
// background sweep; the expires_at index keeps it cheap.
func (r *IdempotencyRepository) DeleteExpired(ctx context.Context) (int64, error) {
	q := querierFrom(ctx, r.pool)

	tag, err := q.Exec(ctx, `DELETE FROM idempotency_logs WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired idempotency records: %w", err)
	}
	return tag.RowsAffected(), nil
}
