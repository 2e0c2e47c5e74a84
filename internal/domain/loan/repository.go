package loan

import "context"

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	// GetByID returns gorm.ErrRecordNotFound when absent.
	GetByID(ctx context.Context, id uint64) (*Loan, error)
	GetByIDForUpdate(ctx context.Context, id uint64) (*Loan, error)
	Save(ctx context.Context, l *Loan) error
}

// IDAllocator issues strictly increasing ids starting at 1.
type IDAllocator interface {
	Next(ctx context.Context) (uint64, error)
}
