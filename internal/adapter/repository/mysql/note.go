package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"collateral-loan-engine/internal/domain/custody"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
)

type NoteKind string

const (
	NoteBorrower NoteKind = "borrower"
	NoteLender   NoteKind = "lender"
)

var (
	ErrNoteNotFound    = errors.New("note: not found")
	ErrIndexOutOfRange = errors.New("note: owner index out of range")
	ErrNotNoteOwner    = fmt.Errorf("note: sender does not own note: %w", custody.ErrTransferRejected)
)

// Note is a claim token bound to a loan.
type Note struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement;column:id"`
	Kind      NoteKind       `gorm:"column:kind;size:16;not null;index:idx_notes_kind_owner"`
	Owner     common.Address `gorm:"column:owner;type:binary(20);not null;index:idx_notes_kind_owner"`
	LoanID    uint64         `gorm:"column:loan_id;not null;index"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (Note) TableName() string { return "notes" }

// NoteRepository issues notes of a single kind.
type NoteRepository struct {
	db   *gorm.DB
	kind NoteKind
}

var _ custody.NoteIssuer = (*NoteRepository)(nil)

func NewNoteRepository(db *gorm.DB, kind NoteKind) *NoteRepository {
	return &NoteRepository{db: db, kind: kind}
}

func (r *NoteRepository) Mint(ctx context.Context, owner common.Address, loanID uint64) (uint64, error) {
	n := &Note{Kind: r.kind, Owner: owner, LoanID: loanID}
	if err := conn(ctx, r.db).Create(n).Error; err != nil {
		return 0, err
	}
	return n.ID, nil
}

func (r *NoteRepository) Burn(ctx context.Context, noteID uint64) error {
	res := conn(ctx, r.db).Where("id = ? AND kind = ?", noteID, r.kind).Delete(&Note{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s %d", ErrNoteNotFound, r.kind, noteID)
	}
	return nil
}

func (r *NoteRepository) get(ctx context.Context, noteID uint64) (*Note, error) {
	var n Note
	err := conn(ctx, r.db).Where("id = ? AND kind = ?", noteID, r.kind).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s %d", ErrNoteNotFound, r.kind, noteID)
	}
	return &n, err
}

func (r *NoteRepository) OwnerOf(ctx context.Context, noteID uint64) (common.Address, error) {
	n, err := r.get(ctx, noteID)
	if err != nil {
		return common.Address{}, err
	}
	return n.Owner, nil
}

func (r *NoteRepository) LoanIDByNoteID(ctx context.Context, noteID uint64) (uint64, error) {
	n, err := r.get(ctx, noteID)
	if err != nil {
		return 0, err
	}
	return n.LoanID, nil
}

func (r *NoteRepository) BalanceOf(ctx context.Context, owner common.Address) (uint64, error) {
	var cnt int64
	err := conn(ctx, r.db).Model(&Note{}).
		Where("kind = ? AND owner = ?", r.kind, owner).
		Count(&cnt).Error
	return uint64(cnt), err
}

// NoteOfOwnerByIndex enumerates an owner's notes in ascending id order.
func (r *NoteRepository) NoteOfOwnerByIndex(ctx context.Context, owner common.Address, index uint64) (uint64, error) {
	var ids []uint64
	err := conn(ctx, r.db).Model(&Note{}).
		Where("kind = ? AND owner = ?", r.kind, owner).
		Order("id ASC").
		Offset(int(index)).
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: %s[%d]", ErrIndexOutOfRange, owner.Hex(), index)
	}
	return ids[0], nil
}

// Transfer hands a note to a new owner; the loan position moves with it.
func (r *NoteRepository) Transfer(ctx context.Context, from, to common.Address, noteID uint64) error {
	owner, err := r.OwnerOf(ctx, noteID)
	if err != nil {
		return err
	}
	if owner != from {
		return fmt.Errorf("%w: %s %d", ErrNotNoteOwner, r.kind, noteID)
	}
	return conn(ctx, r.db).Model(&Note{}).
		Where("id = ? AND kind = ?", noteID, r.kind).
		Update("owner", to).Error
}
