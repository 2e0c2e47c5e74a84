package loan

import (
	"context"
	"errors"
	"fmt"

	domain "collateral-loan-engine/internal/domain/loan"
	"collateral-loan-engine/internal/domain/uow"
	"collateral-loan-engine/pkg/u256"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"gorm.io/gorm"
)

// GetLoan never reports absence as an error: an unknown id yields the zero
// record with StateNone.
func (e *Engine) GetLoan(ctx context.Context, loanID uint64) (*domain.Loan, error) {
	var out *domain.Loan
	err := e.uow.WithinTx(ctx, func(ctx context.Context, r uow.Repos) error {
		l, err := r.Loans.GetByID(ctx, loanID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			out = &domain.Loan{}
			return nil
		}
		if err != nil {
			return err
		}
		out = l
		return nil
	})
	return out, err
}

// PayoffAmount quotes what Repay would pull for an Active loan.
func (e *Engine) PayoffAmount(ctx context.Context, loanID uint64) (*uint256.Int, error) {
	l, err := e.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if l.State != domain.StateActive {
		return nil, fmt.Errorf("%w: loan %d is %q", domain.ErrInvalidState, loanID, l.State)
	}
	return repaymentDue(l.Terms)
}

func (e *Engine) LoanEvents(ctx context.Context, loanID uint64) ([]EventDTO, error) {
	var out []EventDTO
	err := e.uow.WithinTx(ctx, func(ctx context.Context, r uow.Repos) error {
		evs, err := r.Events.ListByLoanID(ctx, loanID)
		if err != nil {
			return err
		}
		out = make([]EventDTO, 0, len(evs))
		for _, ev := range evs {
			out = append(out, EventDTO{
				EventID:   ev.EventID,
				Type:      string(ev.Type),
				LoanID:    ev.LoanID,
				Payload:   ev.Payload,
				CreatedAt: ev.CreatedAt,
			})
		}
		return nil
	})
	return out, err
}

func (e *Engine) IsLocked(ctx context.Context, collection common.Address, item *uint256.Int) (bool, error) {
	var locked bool
	err := e.uow.WithinTx(ctx, func(ctx context.Context, r uow.Repos) error {
		var err error
		locked, err = r.Locks.IsLocked(ctx, collection, u256.OrZero(item))
		return err
	})
	return locked, err
}
