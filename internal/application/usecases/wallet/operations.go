// Package wallet contains the operation use cases built on the transfer
// engine: topup, bonus, spend, balance and history. Each mutating use case
// selects the system counterparty and the transaction kind, then delegates
// the posting to the engine inside one unit of work.
package wallet

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/coinvault/coinvault/internal/application/dtos"
	"github.com/coinvault/coinvault/internal/application/ports"
	"github.com/coinvault/coinvault/internal/application/usecases/transfer"
	"github.com/coinvault/coinvault/internal/domain/entities"
	domainErrors "github.com/coinvault/coinvault/internal/domain/errors"
	"github.com/coinvault/coinvault/internal/domain/events"
	"github.com/coinvault/coinvault/internal/domain/valueobjects"
)

// Deps bundles what every wallet use case needs.
type Deps struct {
	Assets       ports.AssetTypeRepository
	Wallets      ports.WalletRepository
	Transactions ports.TransactionRepository
	Idempotency  ports.IdempotencyCache
	Publisher    ports.EventPublisher
	Engine       *transfer.Engine
	UoW          ports.UnitOfWork
	Logger       *slog.Logger
}

func (d *Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// maxConflictRetries bounds re-runs of a unit of work aborted by the store
// for a concurrent update. Conflicts resolve as soon as the competing
// transaction commits, so a handful of attempts is plenty.
const maxConflictRetries = 10

// executeWithRetry re-runs the unit of work on retryable store conflicts.
// Serialization aborts and lost creation races are retried up to
// maxConflictRetries times; if every attempt conflicts, the last conflict
// error is returned to the caller.
func (d *Deps) executeWithRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = d.UoW.Execute(ctx, fn)
		if !domainErrors.IsRetryConflict(err) {
			return err
		}
		d.logger().DebugContext(ctx, "retrying conflicted transaction", "attempt", attempt+1)
		time.Sleep(time.Duration(attempt+1) * 5 * time.Millisecond)
	}
	return err
}

// postingPlan is produced inside the transaction scope once the
// counterparties are resolved.
type postingPlan struct {
	asset       *entities.AssetType
	fromWallet  *entities.Wallet
	toWallet    *entities.Wallet
	kind        entities.TransactionKind
	description string
	metadata    string
	created     []*entities.Wallet // wallets materialized while resolving
}

// runPosting is the shared mutation path. It replays a cached response if
// the idempotency key was seen, otherwise executes the posting, records the
// response inside the same transaction, and resolves the first-writer race
// on the key by returning the winner's cached body.
func (d *Deps) runPosting(
	ctx context.Context,
	key, path, method string,
	amount valueobjects.Money,
	resolve func(txCtx context.Context) (*postingPlan, error),
) (*dtos.OperationResult, error) {
	if rec, err := d.Idempotency.Lookup(ctx, key); err != nil {
		return nil, domainErrors.NewInternal("idempotency lookup", err)
	} else if rec != nil {
		return &dtos.OperationResult{Status: rec.ResponseStatus, Body: rec.ResponseBody, Replayed: true}, nil
	}

	var result *dtos.OperationResult

	err := d.executeWithRetry(ctx, func(txCtx context.Context) error {
		plan, err := resolve(txCtx)
		if err != nil {
			return err
		}

		tx, err := d.Engine.Post(txCtx, transfer.Posting{
			FromWalletID:   plan.fromWallet.ID(),
			ToWalletID:     plan.toWallet.ID(),
			AssetTypeID:    plan.asset.ID,
			Amount:         amount,
			Kind:           plan.kind,
			IdempotencyKey: key,
			Description:    plan.description,
			Metadata:       plan.metadata,
		})
		if err != nil {
			return err
		}

		dto := dtos.MapTransaction(tx)
		body, err := json.Marshal(dto)
		if err != nil {
			return domainErrors.NewInternal("serialize response", err)
		}

		// The record rides in the same transaction as the ledger writes:
		// a rolled-back movement can never leave a replayable response.
		rec := entities.NewIdempotencyRecord(key, path, method, 201, body)
		if err := d.Idempotency.Record(txCtx, rec); err != nil {
			return err
		}

		batch := make([]events.DomainEvent, 0, len(plan.created)+1)
		for _, w := range plan.created {
			batch = append(batch, events.NewWalletCreated(w.ID(), w.UserID(), plan.asset.Code, w.IsSystem()))
		}
		batch = append(batch, events.NewTransactionCompleted(
			tx.TransactionID(), string(tx.Kind()),
			tx.FromWalletID(), tx.ToWalletID(),
			plan.asset.Code, tx.Amount().String(),
		))
		if err := d.Publisher.PublishBatch(txCtx, batch); err != nil {
			return domainErrors.NewInternal("record events", err)
		}

		result = &dtos.OperationResult{Status: 201, Body: body}
		return nil
	})

	if err != nil {
		if domainErrors.IsDuplicateKey(err) {
			// Lost the first-writer race. The winner committed before our
			// constraint violation surfaced, so its record is readable now.
			rec, lookupErr := d.Idempotency.Lookup(ctx, key)
			if lookupErr == nil && rec != nil {
				d.logger().InfoContext(ctx, "idempotency race resolved to cached response", "path", path)
				return &dtos.OperationResult{Status: rec.ResponseStatus, Body: rec.ResponseBody, Replayed: true}, nil
			}
			return nil, domainErrors.NewInternal("idempotency race re-read", lookupErr)
		}
		return nil, err
	}

	return result, nil
}

// acquireTracked wraps WalletRepository.Acquire and collects materialized
// wallets into the plan for event emission.
func acquireTracked(
	ctx context.Context,
	wallets ports.WalletRepository,
	plan *postingPlan,
	userID string,
	assetTypeID int64,
	isSystem bool,
) (*entities.Wallet, error) {
	w, created, err := wallets.Acquire(ctx, userID, assetTypeID, isSystem)
	if err != nil {
		return nil, err
	}
	if created {
		plan.created = append(plan.created, w)
	}
	return w, nil
}

func marshalMetadata(m map[string]string) string {
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}
