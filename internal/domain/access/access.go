package access

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type Role string

const (
	RoleOriginator Role = "ORIGINATOR"
	RoleRepayer    Role = "REPAYER"
	RoleFeeClaimer Role = "FEE_CLAIMER"
	RoleAdmin      Role = "ADMIN"
)

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOriginator, RoleRepayer, RoleFeeClaimer, RoleAdmin:
		return true
	}
	return false
}

// AdminRole returns the role allowed to grant and revoke r.
// The fee claimer administers itself.
func (r Role) AdminRole() Role {
	if r == RoleFeeClaimer {
		return RoleFeeClaimer
	}
	return RoleAdmin
}

// Grant is one row of the flat permission table.
type Grant struct {
	Account   common.Address `gorm:"column:account;type:binary(20);primaryKey"`
	Role      Role           `gorm:"column:role;size:32;primaryKey"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
}

func (Grant) TableName() string { return "role_grants" }

// Setting is a key/value engine switch.
type Setting struct {
	Key       string    `gorm:"column:name;size:64;primaryKey"`
	Value     string    `gorm:"column:value;size:255;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Setting) TableName() string { return "engine_settings" }

const (
	SettingPaused = "paused"
	// SettingFeeBps overrides the configured origination fee once set.
	SettingFeeBps = "origination_fee_bps"
)

type Repository interface {
	HasRole(ctx context.Context, account common.Address, role Role) (bool, error)
	Grant(ctx context.Context, account common.Address, role Role) error
	Revoke(ctx context.Context, account common.Address, role Role) error
	CountRole(ctx context.Context, role Role) (int64, error)

	IsPaused(ctx context.Context) (bool, error)
	SetPaused(ctx context.Context, paused bool) error

	// FeeBps reports ok=false until SetFeeBps has stored a rate.
	FeeBps(ctx context.Context) (bps uint64, ok bool, err error)
	SetFeeBps(ctx context.Context, bps uint64) error
}
