package mysql

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"collateral-loan-engine/internal/domain/access"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccessRepository struct{ db *gorm.DB }

func NewAccessRepository(db *gorm.DB) *AccessRepository { return &AccessRepository{db: db} }

func (r *AccessRepository) HasRole(ctx context.Context, account common.Address, role access.Role) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&access.Grant{}).
		Where("account = ? AND role = ?", account, role).
		Count(&n).Error
	return n > 0, err
}

// Grant is idempotent.
func (r *AccessRepository) Grant(ctx context.Context, account common.Address, role access.Role) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&access.Grant{Account: account, Role: role}).Error
}

func (r *AccessRepository) Revoke(ctx context.Context, account common.Address, role access.Role) error {
	return r.db.WithContext(ctx).
		Where("account = ? AND role = ?", account, role).
		Delete(&access.Grant{}).Error
}

func (r *AccessRepository) CountRole(ctx context.Context, role access.Role) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&access.Grant{}).Where("role = ?", role).Count(&n).Error
	return n, err
}

func (r *AccessRepository) IsPaused(ctx context.Context) (bool, error) {
	v, ok, err := r.setting(ctx, access.SettingPaused)
	if err != nil || !ok {
		return false, err
	}
	return strconv.ParseBool(v)
}

func (r *AccessRepository) SetPaused(ctx context.Context, paused bool) error {
	return r.put(ctx, access.SettingPaused, strconv.FormatBool(paused))
}

func (r *AccessRepository) FeeBps(ctx context.Context) (uint64, bool, error) {
	v, ok, err := r.setting(ctx, access.SettingFeeBps)
	if err != nil || !ok {
		return 0, false, err
	}
	bps, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("setting %s: %w", access.SettingFeeBps, err)
	}
	return bps, true, nil
}

func (r *AccessRepository) SetFeeBps(ctx context.Context, bps uint64) error {
	return r.put(ctx, access.SettingFeeBps, strconv.FormatUint(bps, 10))
}

func (r *AccessRepository) setting(ctx context.Context, key string) (string, bool, error) {
	var s access.Setting
	err := r.db.WithContext(ctx).Where("name = ?", key).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return s.Value, true, nil
}

func (r *AccessRepository) put(ctx context.Context, key, value string) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&access.Setting{Key: key, Value: value}).Error
}
