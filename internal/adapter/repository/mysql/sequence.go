package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const loanSequence = "loan_id"

// Sequence is a named monotonic counter row.
type Sequence struct {
	Name  string `gorm:"column:name;size:64;primaryKey"`
	Value uint64 `gorm:"column:value;not null"`
}

func (Sequence) TableName() string { return "loan_sequences" }

// SequenceRepository allocates loan ids. Zero is never issued.
type SequenceRepository struct{ db *gorm.DB }

func NewSequenceRepository(db *gorm.DB) *SequenceRepository { return &SequenceRepository{db: db} }

func (r *SequenceRepository) Next(ctx context.Context) (uint64, error) {
	db := r.db.WithContext(ctx)
	var seq Sequence
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("name = ?", loanSequence).
		First(&seq).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		seq = Sequence{Name: loanSequence, Value: 1}
		if err := db.Create(&seq).Error; err != nil {
			return 0, err
		}
		return seq.Value, nil
	case err != nil:
		return 0, err
	}
	seq.Value++
	if err := db.Model(&Sequence{}).Where("name = ?", loanSequence).Update("value", seq.Value).Error; err != nil {
		return 0, err
	}
	return seq.Value, nil
}
