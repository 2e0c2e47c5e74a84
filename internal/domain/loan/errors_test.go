package loan

import (
	"errors"
	"fmt"
	"testing"

	"collateral-loan-engine/internal/domain/custody"
	"collateral-loan-engine/pkg/u256"
)

func TestCodeOf(t *testing.T) {
	cases := []struct {
		err  error
		want Code
	}{
		{fmt.Errorf("%w: duration must be positive", ErrValidation), CodeValidation},
		{fmt.Errorf("%w: 0xabc/1", ErrConflict), CodeConflict},
		{fmt.Errorf("%w: loan 1 is \"repaid\"", ErrInvalidState), CodeInvalidState},
		{ErrNotExpired, CodeNotExpired},
		{ErrUnauthorized, CodeUnauthorized},
		{ErrPaused, CodePaused},
		{u256.ErrOverflow, CodeArithmetic},
		{fmt.Errorf("ledger: insufficient balance: %w", custody.ErrTransferRejected), CodeTransfer},
		{errors.New("disk full"), CodeUnknown},
		{nil, CodeUnknown},
	}
	for _, c := range cases {
		if got := CodeOf(c.err); got != c.want {
			t.Errorf("CodeOf(%v) = %s, want %s", c.err, got, c.want)
		}
	}
}

func TestStateTerminal(t *testing.T) {
	for s, want := range map[State]bool{
		StateNone: false, StateCreated: false, StateActive: false,
		StateRepaid: true, StateDefaulted: true,
	} {
		if s.Terminal() != want {
			t.Errorf("%q.Terminal() = %v", s, !want)
		}
	}
}

func TestExpired(t *testing.T) {
	l := &Loan{DueDate: 100}
	if l.Expired(100) {
		t.Fatal("due date itself is not expired")
	}
	if !l.Expired(101) {
		t.Fatal("one second past due is expired")
	}
}
