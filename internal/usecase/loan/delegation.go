package loan

import (
	"context"

	"collateral-loan-engine/internal/domain/uow"
	"collateral-loan-engine/pkg/u256"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// CanCallOn reports whether caller currently holds the borrower note of the
// active loan backed by the vault item (collection, item). Unlocked vaults are
// never callable.
//
// The scan is linear in the number of borrower notes caller holds.
func (e *Engine) CanCallOn(ctx context.Context, caller, collection common.Address, item *uint256.Int) (bool, error) {
	item = u256.OrZero(item)
	allowed := false
	err := e.uow.WithinTx(ctx, func(ctx context.Context, r uow.Repos) error {
		locked, err := r.Locks.IsLocked(ctx, collection, item)
		if err != nil || !locked {
			return err
		}
		n, err := e.borrowerNotes.BalanceOf(ctx, caller)
		if err != nil {
			return err
		}
		for i := uint64(0); i < n; i++ {
			noteID, err := e.borrowerNotes.NoteOfOwnerByIndex(ctx, caller, i)
			if err != nil {
				return err
			}
			loanID, err := e.borrowerNotes.LoanIDByNoteID(ctx, noteID)
			if err != nil {
				return err
			}
			l, err := r.Loans.GetByID(ctx, loanID)
			if err != nil {
				return err
			}
			if l.Terms.Collection == collection && u256.OrZero(l.Terms.CollateralItem).Eq(item) {
				allowed = true
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return allowed, nil
}
