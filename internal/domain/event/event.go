package event

import (
	"context"
	"time"
)

type Type string

const (
	TypeLoanCreated                Type = "LoanCreated"
	TypeLoanStarted                Type = "LoanStarted"
	TypeLoanRepaid                 Type = "LoanRepaid"
	TypeLoanClaimed                Type = "LoanClaimed"
	TypeInstallmentPaymentReceived Type = "InstallmentPaymentReceived"
	TypeFeesSwept                  Type = "FeesSwept"
)

// Event is an outbox row; it commits or rolls back with the operation that wrote it.
type Event struct {
	ID          uint64     `gorm:"primaryKey;autoIncrement;column:id"`
	EventID     string     `gorm:"column:event_id;type:char(32);not null;uniqueIndex"`
	Type        Type       `gorm:"column:type;size:64;not null"`
	LoanID      uint64     `gorm:"column:loan_id;not null;index"`
	Payload     string     `gorm:"column:payload;type:text;not null"`
	CreatedAt   time.Time  `gorm:"autoCreateTime"`
	PublishedAt *time.Time `gorm:"column:published_at;index"`
}

func (Event) TableName() string { return "loan_events" }

type Repository interface {
	Append(ctx context.Context, e *Event) error
	ListByLoanID(ctx context.Context, loanID uint64) ([]Event, error)
	ListUnpublished(ctx context.Context, limit int) ([]Event, error)
	MarkPublished(ctx context.Context, ids []uint64, at time.Time) error
}

// Payloads. Amounts are base-10 strings.

type TermsPayload struct {
	Collection     string `json:"collateral_collection"`
	CollateralItem string `json:"collateral_item"`
	Currency       string `json:"currency"`
	Principal      string `json:"principal"`
	Rate           string `json:"rate"`
	Duration       uint64 `json:"duration"`
	Installments   uint32 `json:"installments"`
}

type LoanCreated struct {
	Terms  TermsPayload `json:"terms"`
	LoanID uint64       `json:"loan_id"`
}

type LoanStarted struct {
	LoanID   uint64 `json:"loan_id"`
	Lender   string `json:"lender"`
	Borrower string `json:"borrower"`
}

type LoanRepaid struct {
	LoanID uint64 `json:"loan_id"`
}

type LoanClaimed struct {
	LoanID uint64 `json:"loan_id"`
}

type InstallmentPaymentReceived struct {
	LoanID           uint64 `json:"loan_id"`
	PrincipalPortion string `json:"principal_portion"`
	NewBalance       string `json:"new_balance"`
}

type FeesSwept struct {
	Token     string `json:"token"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}
