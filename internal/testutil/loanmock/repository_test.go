package loanmock

import (
	"context"
	"errors"
	"testing"

	domain "collateral-loan-engine/internal/domain/loan"
)

func TestRepo_Create(t *testing.T) {
	ctx := context.Background()
	l := &domain.Loan{ID: 1}

	called := false
	wantErr := errors.New("boom")
	m := &Repo{
		CreateFn: func(gotCtx context.Context, got *domain.Loan) error {
			called = true
			if got != l {
				t.Fatalf("arg mismatch")
			}
			return wantErr
		},
	}
	if err := m.Create(ctx, l); !errors.Is(err, wantErr) {
		t.Fatalf("Create: want %v, got %v", wantErr, err)
	}
	if !called {
		t.Fatalf("CreateFn not called")
	}

	// Default (nil func) → no-op, nil error
	m = &Repo{}
	if err := m.Create(ctx, l); err != nil {
		t.Fatalf("Create default: want nil, got %v", err)
	}
}

func TestRepo_GetByID_Default(t *testing.T) {
	m := &Repo{}
	got, err := m.GetByID(context.Background(), 9)
	if err != context.Canceled {
		t.Fatalf("GetByID default: want context.Canceled, got %v", err)
	}
	if got != nil {
		t.Fatalf("GetByID default: want nil, got %+v", got)
	}
	if _, err := m.GetByIDForUpdate(context.Background(), 9); err != context.Canceled {
		t.Fatalf("GetByIDForUpdate default: want context.Canceled, got %v", err)
	}
}

func TestIDs_CountsFromOne(t *testing.T) {
	m := &IDs{}
	for want := uint64(1); want <= 3; want++ {
		got, err := m.Next(context.Background())
		if err != nil || got != want {
			t.Fatalf("Next = %d, %v; want %d", got, err, want)
		}
	}
}
