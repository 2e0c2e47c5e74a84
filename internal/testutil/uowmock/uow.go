package uowmock

import (
	"context"
	"errors"

	"collateral-loan-engine/internal/domain/uow"
)

// Ensure compile-time compliance
var _ uow.UnitOfWork = (*UoW)(nil)

var errUnimplemented = errors.New("uowmock: method not implemented")

// UoW is a function-backed mock that satisfies uow.UnitOfWork.
type UoW struct {
	WithinTxFn func(ctx context.Context, fn func(ctx context.Context, r uow.Repos) error) error
}

func New() *UoW { return &UoW{} }

// WithRepos makes WithinTx call fn directly with r, without any transaction.
func (m *UoW) WithRepos(r uow.Repos) *UoW {
	m.WithinTxFn = func(ctx context.Context, fn func(context.Context, uow.Repos) error) error {
		return fn(ctx, r)
	}
	return m
}

func (m *UoW) Reset() { *m = UoW{} }

func (m *UoW) WithinTx(ctx context.Context, fn func(ctx context.Context, r uow.Repos) error) error {
	if m.WithinTxFn != nil {
		return m.WithinTxFn(ctx, fn)
	}
	return errUnimplemented
}
