package mysql

import (
	"context"
	"errors"
	"testing"

	domain "collateral-loan-engine/internal/domain/loan"
	"collateral-loan-engine/pkg/u256"

	"gorm.io/gorm"
)

const maxU256 = "115792089237316195423570985008687907853269984665640564039457584007913129639935"

func makeLoan(id uint64) *domain.Loan {
	return &domain.Loan{
		ID: id,
		Terms: domain.Terms{
			Collection:     addr("0xc011"),
			CollateralItem: u256.MustParse(maxU256),
			Currency:       addr("0xcafe"),
			Principal:      u256.Of(1000),
			Rate:           u256.MustParse("10000000000000000000"),
			Duration:       3600,
			Installments:   2,
		},
		State:           domain.StateCreated,
		DueDate:         1_700_003_600,
		StartDate:       1_700_000_000,
		Balance:         u256.Of(1000),
		BalancePaid:     u256.Zero(),
		LateFeesAccrued: u256.Zero(),
	}
}

func TestLoanRepository_CreateAndGet(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, makeLoan(1)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(ctx, 1)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.State != domain.StateCreated {
		t.Fatalf("state = %q", got.State)
	}
	if got.Terms.Collection != addr("0xc011") || got.Terms.Currency != addr("0xcafe") {
		t.Fatalf("addresses not round-tripped: %+v", got.Terms)
	}
	if got.Terms.CollateralItem.Dec() != maxU256 {
		t.Fatalf("collateral item = %s", got.Terms.CollateralItem.Dec())
	}
	if got.Terms.Rate.Dec() != "10000000000000000000" || got.Balance.Uint64() != 1000 {
		t.Fatalf("amounts not round-tripped: rate=%s balance=%s", got.Terms.Rate.Dec(), got.Balance.Dec())
	}
	if got.DueDate != 1_700_003_600 || got.Terms.Installments != 2 {
		t.Fatalf("scalars not round-tripped: %+v", got)
	}
}

func TestLoanRepository_GetByID_NotFound(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)

	_, err := repo.GetByID(context.Background(), 42)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("want ErrRecordNotFound, got %v", err)
	}
	_, err = repo.GetByIDForUpdate(context.Background(), 42)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("ForUpdate: want ErrRecordNotFound, got %v", err)
	}
}

func TestLoanRepository_Save(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()
	if err := repo.Create(ctx, makeLoan(7)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	l, err := repo.GetByIDForUpdate(ctx, 7)
	if err != nil {
		t.Fatalf("GetByIDForUpdate: %v", err)
	}
	l.State = domain.StateActive
	l.BorrowerNoteID, l.LenderNoteID = 3, 4
	l.Balance = u256.Of(500)
	l.InstallmentsPaid = 1
	if err := repo.Save(ctx, l); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.GetByID(ctx, 7)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.State != domain.StateActive || got.BorrowerNoteID != 3 || got.LenderNoteID != 4 {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.Balance.Uint64() != 500 || got.InstallmentsPaid != 1 {
		t.Fatalf("balance=%s paid=%d", got.Balance.Dec(), got.InstallmentsPaid)
	}
}

func TestLoanRepository_Tx_Rollback(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.Tx(ctx, func(r domain.Repository) error {
		if err := r.Create(ctx, makeLoan(9)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	if _, err := repo.GetByID(ctx, 9); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("loan should have been rolled back, got %v", err)
	}
}

func TestSequenceRepository_Next(t *testing.T) {
	db := openTestDB(t)
	seq := NewSequenceRepository(db)
	ctx := context.Background()

	for want := uint64(1); want <= 3; want++ {
		got, err := seq.Next(ctx)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if got != want {
			t.Fatalf("Next = %d, want %d", got, want)
		}
	}
}
