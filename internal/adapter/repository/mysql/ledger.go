package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"collateral-loan-engine/internal/domain/custody"
	"collateral-loan-engine/pkg/u256"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInsufficientBalance = fmt.Errorf("ledger: insufficient balance: %w", custody.ErrTransferRejected)
	ErrNotItemOwner        = fmt.Errorf("ledger: sender does not own item: %w", custody.ErrTransferRejected)
	ErrUnknownItem         = fmt.Errorf("ledger: unknown item: %w", custody.ErrTransferRejected)
)

// TokenBalance is one holder's balance of one value token.
type TokenBalance struct {
	Token     common.Address `gorm:"column:token;type:binary(20);primaryKey"`
	Holder    common.Address `gorm:"column:holder;type:binary(20);primaryKey"`
	Amount    *uint256.Int   `gorm:"column:amount;type:varchar(78);not null;serializer:u256"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (TokenBalance) TableName() string { return "token_balances" }

// CollectionItem records the owner of one collateral item.
type CollectionItem struct {
	Collection common.Address `gorm:"column:collection;type:binary(20);primaryKey"`
	Item       *uint256.Int   `gorm:"column:item;type:varchar(78);primaryKey;serializer:u256"`
	Owner      common.Address `gorm:"column:owner;type:binary(20);not null;index"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime"`
}

func (CollectionItem) TableName() string { return "collection_items" }

// Ledger is a database-backed implementation of the asset rails. Movements run on
// the transaction carried by ctx, so they commit or roll back with the engine.
type Ledger struct{ db *gorm.DB }

var _ custody.Rails = (*Ledger)(nil)

func NewLedger(db *gorm.DB) *Ledger { return &Ledger{db: db} }

func (l *Ledger) ValueToken(currency common.Address) custody.ValueToken {
	return &ledgerToken{db: l.db, token: currency}
}

func (l *Ledger) OwnershipToken(collection common.Address) custody.OwnershipToken {
	return &ledgerCollection{db: l.db, collection: collection}
}

// Credit mints amount of token to holder.
func (l *Ledger) Credit(ctx context.Context, token, holder common.Address, amount *uint256.Int) error {
	t := &ledgerToken{db: l.db, token: token}
	return conn(ctx, l.db).Transaction(func(tx *gorm.DB) error {
		return t.adjust(tx, holder, amount, true)
	})
}

// MintItem registers item in collection under owner.
func (l *Ledger) MintItem(ctx context.Context, collection common.Address, item *uint256.Int, owner common.Address) error {
	return conn(ctx, l.db).Create(&CollectionItem{Collection: collection, Item: u256.OrZero(item), Owner: owner}).Error
}

type ledgerToken struct {
	db    *gorm.DB
	token common.Address
}

func (t *ledgerToken) BalanceOf(ctx context.Context, holder common.Address) (*uint256.Int, error) {
	return t.balance(conn(ctx, t.db), holder, false)
}

func (t *ledgerToken) Transfer(ctx context.Context, from, to common.Address, amount *uint256.Int) error {
	amount = u256.OrZero(amount)
	return conn(ctx, t.db).Transaction(func(tx *gorm.DB) error {
		if err := t.adjust(tx, from, amount, false); err != nil {
			return err
		}
		return t.adjust(tx, to, amount, true)
	})
}

func (t *ledgerToken) balance(db *gorm.DB, holder common.Address, forUpdate bool) (*uint256.Int, error) {
	var row TokenBalance
	q := db
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := q.Where("token = ? AND holder = ?", t.token, holder).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return u256.Zero(), nil
	}
	if err != nil {
		return nil, err
	}
	return u256.OrZero(row.Amount), nil
}

func (t *ledgerToken) adjust(db *gorm.DB, holder common.Address, amount *uint256.Int, credit bool) error {
	cur, err := t.balance(db, holder, true)
	if err != nil {
		return err
	}
	var next *uint256.Int
	if credit {
		next, err = u256.Add(cur, amount)
	} else {
		if cur.Lt(amount) {
			return fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficientBalance, holder.Hex(), cur.Dec(), amount.Dec())
		}
		next, err = u256.Sub(cur, amount)
	}
	if err != nil {
		return err
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}, {Name: "holder"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "updated_at"}),
	}).Create(&TokenBalance{Token: t.token, Holder: holder, Amount: next}).Error
}

type ledgerCollection struct {
	db         *gorm.DB
	collection common.Address
}

func (c *ledgerCollection) OwnerOf(ctx context.Context, item *uint256.Int) (common.Address, error) {
	var row CollectionItem
	err := conn(ctx, c.db).
		Where("collection = ? AND item = ?", c.collection, u256.String(item)).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return common.Address{}, fmt.Errorf("%w: %s/%s", ErrUnknownItem, c.collection.Hex(), u256.String(item))
	}
	return row.Owner, err
}

func (c *ledgerCollection) Transfer(ctx context.Context, from, to common.Address, item *uint256.Int) error {
	owner, err := c.OwnerOf(ctx, item)
	if err != nil {
		return err
	}
	if owner != from {
		return fmt.Errorf("%w: %s/%s", ErrNotItemOwner, c.collection.Hex(), u256.String(item))
	}
	return conn(ctx, c.db).Model(&CollectionItem{}).
		Where("collection = ? AND item = ?", c.collection, u256.String(item)).
		Update("owner", to).Error
}
