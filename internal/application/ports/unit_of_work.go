// Package ports - UnitOfWork is the explicit transaction scope required by
// the core: one unit of work is one store transaction, committed at the end
// of the request or rolled back on any error.
package ports

import "context"

// UnitOfWork runs a function inside a store transaction.
//
// Behaviour:
// - begins a transaction and injects it into the context
// - fn returning nil commits; fn returning an error rolls back
// - a panic rolls back and re-panics
//
// Every repository call inside fn must use the context fn receives, so all
// operations share the same transaction and the same row locks.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(ctx context.Context) error) error
}
