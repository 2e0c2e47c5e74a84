package loan

import (
	"context"
	"errors"
	"fmt"
	"math"

	"collateral-loan-engine/internal/domain/access"
	"collateral-loan-engine/internal/domain/event"
	domain "collateral-loan-engine/internal/domain/loan"
	"collateral-loan-engine/internal/domain/uow"
	"collateral-loan-engine/pkg/u256"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
)

// CreateLoan validates terms, reserves the collateral and records the loan as
// Created. No assets move.
func (e *Engine) CreateLoan(ctx context.Context, caller common.Address, terms domain.Terms) (uint64, error) {
	var loanID uint64
	err := e.uow.WithinTx(ctx, func(ctx context.Context, r uow.Repos) error {
		if err := e.authorize(ctx, r, caller, access.RoleOriginator, true); err != nil {
			return err
		}
		terms = cloneTerms(terms)
		if err := validateTerms(terms); err != nil {
			return err
		}
		locked, err := r.Locks.IsLocked(ctx, terms.Collection, terms.CollateralItem)
		if err != nil {
			return err
		}
		if locked {
			return fmt.Errorf("%w: %s/%s", domain.ErrConflict, terms.Collection.Hex(), terms.CollateralItem.Dec())
		}
		if err := validateSchedule(terms); err != nil {
			return err
		}

		now := e.now()
		if terms.Duration > uint64(math.MaxInt64-now) {
			return fmt.Errorf("%w: duration %d overflows due date", domain.ErrValidation, terms.Duration)
		}

		loanID, err = r.IDs.Next(ctx)
		if err != nil {
			return err
		}
		l := &domain.Loan{
			ID:              loanID,
			Terms:           terms,
			State:           domain.StateCreated,
			DueDate:         now + int64(terms.Duration),
			StartDate:       now,
			Balance:         terms.Principal.Clone(),
			BalancePaid:     u256.Zero(),
			LateFeesAccrued: u256.Zero(),
		}
		if err := r.Loans.Create(ctx, l); err != nil {
			return err
		}
		if err := r.Locks.SetLocked(ctx, terms.Collection, terms.CollateralItem, true); err != nil {
			return err
		}
		return e.emit(ctx, r, event.TypeLoanCreated, loanID, event.LoanCreated{
			Terms:  termsPayload(terms),
			LoanID: loanID,
		})
	})
	e.done("create", loanID, err)
	if err != nil {
		return 0, err
	}
	return loanID, nil
}

// StartLoan escrows the collateral and principal pulled from caller, activates the
// loan, issues both notes and pays the principal net of the origination fee to the
// borrower. The fee stays in custody.
func (e *Engine) StartLoan(ctx context.Context, caller, lender, borrower common.Address, loanID uint64) error {
	err := e.uow.WithinTx(ctx, func(ctx context.Context, r uow.Repos) error {
		if err := e.authorize(ctx, r, caller, access.RoleOriginator, true); err != nil {
			return err
		}
		l, err := loadInState(ctx, r, loanID, domain.StateCreated)
		if err != nil {
			return err
		}

		bps, err := e.feeBps(ctx, r)
		if err != nil {
			return err
		}
		fee, err := originationFee(l.Terms.Principal, bps)
		if err != nil {
			return err
		}
		payout, err := u256.Sub(l.Terms.Principal, fee)
		if err != nil {
			return err
		}

		currency := e.rails.ValueToken(l.Terms.Currency)
		collection := e.rails.OwnershipToken(l.Terms.Collection)

		// inbound pulls
		if err := collection.Transfer(ctx, caller, e.custody, l.Terms.CollateralItem); err != nil {
			return err
		}
		if err := currency.Transfer(ctx, caller, e.custody, l.Terms.Principal); err != nil {
			return err
		}

		// effects
		l.State = domain.StateActive
		if l.BorrowerNoteID, err = e.borrowerNotes.Mint(ctx, borrower, loanID); err != nil {
			return err
		}
		if l.LenderNoteID, err = e.lenderNotes.Mint(ctx, lender, loanID); err != nil {
			return err
		}
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		if err := e.emit(ctx, r, event.TypeLoanStarted, loanID, event.LoanStarted{
			LoanID:   loanID,
			Lender:   lender.Hex(),
			Borrower: borrower.Hex(),
		}); err != nil {
			return err
		}

		// outbound release
		return currency.Transfer(ctx, e.custody, borrower, payout)
	})
	e.done("start", loanID, err)
	return err
}

// Repay settles an Active loan in one payment of principal plus flat interest on
// the full principal. It is not gated by the pause switch.
func (e *Engine) Repay(ctx context.Context, caller common.Address, loanID uint64) error {
	err := e.uow.WithinTx(ctx, func(ctx context.Context, r uow.Repos) error {
		if err := e.authorize(ctx, r, caller, access.RoleRepayer, false); err != nil {
			return err
		}
		l, err := loadInState(ctx, r, loanID, domain.StateActive)
		if err != nil {
			return err
		}
		due, err := repaymentDue(l.Terms)
		if err != nil {
			return err
		}
		if due.IsZero() {
			return fmt.Errorf("%w: nothing due on loan %d", domain.ErrValidation, loanID)
		}

		currency := e.rails.ValueToken(l.Terms.Currency)
		if err := currency.Transfer(ctx, caller, e.custody, due); err != nil {
			return err
		}
		lender, borrower, err := e.parties(ctx, l)
		if err != nil {
			return err
		}

		l.State = domain.StateRepaid
		l.Balance = u256.Zero()
		if err := e.close(ctx, r, l); err != nil {
			return err
		}
		if err := e.emit(ctx, r, event.TypeLoanRepaid, loanID, event.LoanRepaid{LoanID: loanID}); err != nil {
			return err
		}

		if err := currency.Transfer(ctx, e.custody, lender, due); err != nil {
			return err
		}
		return e.rails.OwnershipToken(l.Terms.Collection).Transfer(ctx, e.custody, borrower, l.Terms.CollateralItem)
	})
	e.done("repay", loanID, err)
	return err
}

// RepayPart takes one installment. A principal portion at or above the
// outstanding balance is final: the loan is repaid, any principal overpayment is
// refunded to the borrower and the whole installment goes to the lender.
// Otherwise the payment stays in custody and only the balance moves.
func (e *Engine) RepayPart(ctx context.Context, caller common.Address, loanID uint64, in InstallmentInput) error {
	err := e.uow.WithinTx(ctx, func(ctx context.Context, r uow.Repos) error {
		if err := e.authorize(ctx, r, caller, access.RoleRepayer, false); err != nil {
			return err
		}
		l, err := loadInState(ctx, r, loanID, domain.StateActive)
		if err != nil {
			return err
		}
		toPrincipal := u256.OrZero(in.ToPrincipal)
		total, err := u256.Add(toPrincipal, in.ToLateFees)
		if err != nil {
			return err
		}
		if total, err = u256.Add(total, in.ToInterest); err != nil {
			return err
		}

		currency := e.rails.ValueToken(l.Terms.Currency)
		if err := currency.Transfer(ctx, caller, e.custody, total); err != nil {
			return err
		}
		lender, borrower, err := e.parties(ctx, l)
		if err != nil {
			return err
		}

		if l.LateFeesAccrued, err = u256.Add(l.LateFeesAccrued, in.ToLateFees); err != nil {
			return err
		}
		if in.MissedPayments >= math.MaxUint64-l.InstallmentsPaid {
			return fmt.Errorf("%w: installment counter", domain.ErrArithmetic)
		}
		l.InstallmentsPaid += in.MissedPayments + 1
		if l.BalancePaid, err = u256.Add(l.BalancePaid, total); err != nil {
			return err
		}

		balance := u256.OrZero(l.Balance)
		if toPrincipal.Lt(balance) {
			if l.Balance, err = u256.Sub(balance, toPrincipal); err != nil {
				return err
			}
			if err := r.Loans.Save(ctx, l); err != nil {
				return err
			}
			return e.emit(ctx, r, event.TypeInstallmentPaymentReceived, loanID, event.InstallmentPaymentReceived{
				LoanID:           loanID,
				PrincipalPortion: toPrincipal.Dec(),
				NewBalance:       l.Balance.Dec(),
			})
		}

		refund, err := u256.Sub(toPrincipal, balance)
		if err != nil {
			return err
		}
		l.State = domain.StateRepaid
		l.Balance = u256.Zero()
		if err := e.close(ctx, r, l); err != nil {
			return err
		}
		if err := e.emit(ctx, r, event.TypeLoanRepaid, loanID, event.LoanRepaid{LoanID: loanID}); err != nil {
			return err
		}

		if !refund.IsZero() {
			if err := currency.Transfer(ctx, e.custody, borrower, refund); err != nil {
				return err
			}
		}
		if err := currency.Transfer(ctx, e.custody, lender, total); err != nil {
			return err
		}
		return e.rails.OwnershipToken(l.Terms.Collection).Transfer(ctx, e.custody, borrower, l.Terms.CollateralItem)
	})
	e.done("repay_part", loanID, err)
	return err
}

// Claim defaults an expired Active loan and hands the collateral to the lender.
func (e *Engine) Claim(ctx context.Context, caller common.Address, loanID uint64) error {
	err := e.uow.WithinTx(ctx, func(ctx context.Context, r uow.Repos) error {
		if err := e.authorize(ctx, r, caller, access.RoleRepayer, true); err != nil {
			return err
		}
		l, err := loadInState(ctx, r, loanID, domain.StateActive)
		if err != nil {
			return err
		}
		if now := e.now(); !l.Expired(now) {
			return fmt.Errorf("%w: loan %d due at %d, now %d", domain.ErrNotExpired, loanID, l.DueDate, now)
		}
		lender, err := e.lenderNotes.OwnerOf(ctx, l.LenderNoteID)
		if err != nil {
			return err
		}

		l.State = domain.StateDefaulted
		l.Balance = u256.Zero()
		if err := e.close(ctx, r, l); err != nil {
			return err
		}
		if err := e.emit(ctx, r, event.TypeLoanClaimed, loanID, event.LoanClaimed{LoanID: loanID}); err != nil {
			return err
		}

		return e.rails.OwnershipToken(l.Terms.Collection).Transfer(ctx, e.custody, lender, l.Terms.CollateralItem)
	})
	e.done("claim", loanID, err)
	return err
}

// loadInState locks the record and requires state want. A missing loan is
// treated as a state mismatch.
func loadInState(ctx context.Context, r uow.Repos, loanID uint64, want domain.State) (*domain.Loan, error) {
	l, err := r.Loans.GetByIDForUpdate(ctx, loanID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: loan %d does not exist", domain.ErrInvalidState, loanID)
	}
	if err != nil {
		return nil, err
	}
	if l.State != want {
		return nil, fmt.Errorf("%w: loan %d is %q, want %q", domain.ErrInvalidState, loanID, l.State, want)
	}
	return l, nil
}

// parties resolves the current holders of the lender and borrower notes.
func (e *Engine) parties(ctx context.Context, l *domain.Loan) (lender, borrower common.Address, err error) {
	if lender, err = e.lenderNotes.OwnerOf(ctx, l.LenderNoteID); err != nil {
		return
	}
	borrower, err = e.borrowerNotes.OwnerOf(ctx, l.BorrowerNoteID)
	return
}

// close persists a terminal record, releases the collateral lock and burns both notes.
func (e *Engine) close(ctx context.Context, r uow.Repos, l *domain.Loan) error {
	if err := r.Loans.Save(ctx, l); err != nil {
		return err
	}
	if err := r.Locks.SetLocked(ctx, l.Terms.Collection, l.Terms.CollateralItem, false); err != nil {
		return err
	}
	if err := e.borrowerNotes.Burn(ctx, l.BorrowerNoteID); err != nil {
		return err
	}
	return e.lenderNotes.Burn(ctx, l.LenderNoteID)
}

func cloneTerms(t domain.Terms) domain.Terms {
	out := t
	out.CollateralItem = u256.OrZero(t.CollateralItem).Clone()
	out.Principal = u256.OrZero(t.Principal).Clone()
	out.Rate = u256.OrZero(t.Rate).Clone()
	return out
}

func termsPayload(t domain.Terms) event.TermsPayload {
	return event.TermsPayload{
		Collection:     t.Collection.Hex(),
		CollateralItem: u256.String(t.CollateralItem),
		Currency:       t.Currency.Hex(),
		Principal:      u256.String(t.Principal),
		Rate:           u256.String(t.Rate),
		Duration:       t.Duration,
		Installments:   t.Installments,
	}
}
