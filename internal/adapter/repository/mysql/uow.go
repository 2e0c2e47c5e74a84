package mysql

import (
	"collateral-loan-engine/internal/domain/uow"
	"context"

	"gorm.io/gorm"
)

type GormUoW struct {
	db     *gorm.DB
	locker Locker
}

// NewGormUoW serializes outermost transactions with locker; nil means a LocalLocker.
func NewGormUoW(db *gorm.DB, locker Locker) *GormUoW {
	if locker == nil {
		locker = &LocalLocker{}
	}
	return &GormUoW{db: db, locker: locker}
}

func reposFor(tx *gorm.DB) uow.Repos {
	return uow.Repos{
		Loans:  &LoanRepository{db: tx},
		IDs:    &SequenceRepository{db: tx},
		Locks:  &LockRepository{db: tx},
		Access: &AccessRepository{db: tx},
		Events: &EventRepository{db: tx},
	}
}

func (u *GormUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, r uow.Repos) error) error {
	if tx, ok := txFrom(ctx); ok {
		// re-entrant call from a collaborator: the lock is already held, nest under a savepoint
		return tx.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
			return fn(withTx(ctx, inner), reposFor(inner))
		})
	}

	unlock, err := u.locker.Lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(withTx(ctx, tx), reposFor(tx))
	})
}
