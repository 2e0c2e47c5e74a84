package uow

import (
	"context"

	"collateral-loan-engine/internal/domain/access"
	"collateral-loan-engine/internal/domain/collateral"
	"collateral-loan-engine/internal/domain/event"
	"collateral-loan-engine/internal/domain/loan"
)

// Repos are bound to one transaction.
type Repos struct {
	Loans  loan.Repository
	IDs    loan.IDAllocator
	Locks  collateral.Repository
	Access access.Repository
	Events event.Repository
}

type UnitOfWork interface {
	// WithinTx runs fn atomically. The ctx handed to fn carries the transaction so
	// collaborators that share the database join it; a nested call made with that
	// ctx runs under a savepoint instead of opening a new transaction.
	WithinTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
}
