package mysql

import (
	"context"
	"errors"

	"collateral-loan-engine/internal/domain/collateral"
	"collateral-loan-engine/pkg/u256"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LockRepository struct{ db *gorm.DB }

func NewLockRepository(db *gorm.DB) *LockRepository { return &LockRepository{db: db} }

func (r *LockRepository) IsLocked(ctx context.Context, collection common.Address, item *uint256.Int) (bool, error) {
	var out collateral.Lock
	err := r.db.WithContext(ctx).
		Where("collection = ? AND item = ?", collection, u256.String(item)).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return out.Locked, nil
}

func (r *LockRepository) SetLocked(ctx context.Context, collection common.Address, item *uint256.Int, locked bool) error {
	row := &collateral.Lock{Collection: collection, Item: u256.OrZero(item), Locked: locked}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "item"}},
		DoUpdates: clause.AssignmentColumns([]string{"locked", "updated_at"}),
	}).Create(row).Error
}
