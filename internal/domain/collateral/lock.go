package collateral

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Lock marks whether a collateral item currently backs an open loan.
type Lock struct {
	Collection common.Address `gorm:"column:collection;type:binary(20);primaryKey"`
	Item       *uint256.Int   `gorm:"column:item;type:varchar(78);primaryKey;serializer:u256"`
	Locked     bool           `gorm:"column:locked;not null"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime"`
}

func (Lock) TableName() string { return "collateral_locks" }

type Repository interface {
	IsLocked(ctx context.Context, collection common.Address, item *uint256.Int) (bool, error)
	SetLocked(ctx context.Context, collection common.Address, item *uint256.Int, locked bool) error
}
