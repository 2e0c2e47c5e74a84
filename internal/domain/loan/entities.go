package loan

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"collateral-loan-engine/pkg/u256"
)

type State string

const (
	StateNone      State = ""
	StateCreated   State = "created"
	StateActive    State = "active"
	StateRepaid    State = "repaid"
	StateDefaulted State = "defaulted"
)

// Terminal reports whether no further transition is allowed.
func (s State) Terminal() bool { return s == StateRepaid || s == StateDefaulted }

const (
	// MaxInstallments is exclusive.
	MaxInstallments = 1_000_000
	BasisPoints     = 10_000
)

// RateScale is the fixed-point scale of Terms.Rate: whole basis points = Rate / RateScale.
var RateScale = u256.MustParse("1000000000000000000")

// Terms are immutable once the loan is created.
type Terms struct {
	Collection     common.Address `gorm:"column:collateral_collection;type:binary(20);not null;index:idx_loans_collateral"`
	CollateralItem *uint256.Int   `gorm:"column:collateral_item;type:varchar(78);not null;serializer:u256;index:idx_loans_collateral"`
	Currency       common.Address `gorm:"column:currency;type:binary(20);not null"`
	Principal      *uint256.Int   `gorm:"column:principal;type:varchar(78);not null;serializer:u256"`
	Rate           *uint256.Int   `gorm:"column:rate;type:varchar(78);not null;serializer:u256"`
	Duration       uint64         `gorm:"column:duration;not null"`
	Installments   uint32         `gorm:"column:installments;not null"`
}

// Loan is the registry record. It is retained after reaching a terminal state.
type Loan struct {
	ID               uint64       `gorm:"primaryKey;autoIncrement:false;column:id"`
	BorrowerNoteID   uint64       `gorm:"column:borrower_note_id"`
	LenderNoteID     uint64       `gorm:"column:lender_note_id"`
	Terms            Terms        `gorm:"embedded"`
	State            State        `gorm:"column:state;size:16;not null;index"`
	DueDate          int64        `gorm:"column:due_date;not null"`
	StartDate        int64        `gorm:"column:start_date;not null"`
	Balance          *uint256.Int `gorm:"column:balance;type:varchar(78);not null;serializer:u256"`
	BalancePaid      *uint256.Int `gorm:"column:balance_paid;type:varchar(78);not null;serializer:u256"`
	LateFeesAccrued  *uint256.Int `gorm:"column:late_fees_accrued;type:varchar(78);not null;serializer:u256"`
	InstallmentsPaid uint64       `gorm:"column:installments_paid;not null"`
	CreatedAt        time.Time    `gorm:"autoCreateTime"`
	UpdatedAt        time.Time    `gorm:"autoUpdateTime"`
}

func (Loan) TableName() string { return "loans" }

// Expired reports whether the due date lies strictly before now.
func (l *Loan) Expired(now int64) bool { return l.DueDate < now }
