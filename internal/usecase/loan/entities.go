package loan

import (
	"time"

	domain "collateral-loan-engine/internal/domain/loan"
	"collateral-loan-engine/pkg/u256"

	"github.com/holiman/uint256"
)

// InstallmentInput is one installment-path payment.
type InstallmentInput struct {
	ToPrincipal    *uint256.Int
	MissedPayments uint64
	ToInterest     *uint256.Int
	ToLateFees     *uint256.Int
}

type TermsDTO struct {
	Collection     string `json:"collateral_collection"`
	CollateralItem string `json:"collateral_item"`
	Currency       string `json:"currency"`
	Principal      string `json:"principal"`
	Rate           string `json:"rate"`
	Duration       uint64 `json:"duration"`
	Installments   uint32 `json:"installments"`
}

type LoanDTO struct {
	LoanID           uint64    `json:"loan_id"`
	BorrowerNoteID   uint64    `json:"borrower_note_id"`
	LenderNoteID     uint64    `json:"lender_note_id"`
	Terms            TermsDTO  `json:"terms"`
	State            string    `json:"state"`
	DueDate          int64     `json:"due_date"`
	StartDate        int64     `json:"start_date"`
	Balance          string    `json:"balance"`
	BalancePaid      string    `json:"balance_paid"`
	LateFeesAccrued  string    `json:"late_fees_accrued"`
	InstallmentsPaid uint64    `json:"installments_paid"`
	CreatedAt        time.Time `json:"created_at"`
}

type EventDTO struct {
	EventID   string    `json:"event_id"`
	Type      string    `json:"type"`
	LoanID    uint64    `json:"loan_id"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

func termsDTO(t domain.Terms) TermsDTO {
	return TermsDTO{
		Collection:     t.Collection.Hex(),
		CollateralItem: u256.String(t.CollateralItem),
		Currency:       t.Currency.Hex(),
		Principal:      u256.String(t.Principal),
		Rate:           u256.String(t.Rate),
		Duration:       t.Duration,
		Installments:   t.Installments,
	}
}

// ToDTO renders a record; an absent loan renders with state "none".
func ToDTO(l *domain.Loan) LoanDTO {
	state := string(l.State)
	if l.State == domain.StateNone {
		state = "none"
	}
	return LoanDTO{
		LoanID:           l.ID,
		BorrowerNoteID:   l.BorrowerNoteID,
		LenderNoteID:     l.LenderNoteID,
		Terms:            termsDTO(l.Terms),
		State:            state,
		DueDate:          l.DueDate,
		StartDate:        l.StartDate,
		Balance:          u256.String(l.Balance),
		BalancePaid:      u256.String(l.BalancePaid),
		LateFeesAccrued:  u256.String(l.LateFeesAccrued),
		InstallmentsPaid: l.InstallmentsPaid,
		CreatedAt:        l.CreatedAt,
	}
}
