package loan

import (
	"context"
	"fmt"

	"collateral-loan-engine/internal/domain/access"
	"collateral-loan-engine/internal/domain/custody"
	"collateral-loan-engine/internal/domain/event"
	domain "collateral-loan-engine/internal/domain/loan"
	"collateral-loan-engine/internal/domain/uow"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Bootstrap grants the initial admin and fee claimer when none exist yet.
// Zero addresses are skipped.
func (e *Engine) Bootstrap(ctx context.Context, admin, feeClaimer common.Address) error {
	return e.uow.WithinTx(ctx, func(ctx context.Context, r uow.Repos) error {
		for _, g := range []struct {
			account common.Address
			role    access.Role
		}{{admin, access.RoleAdmin}, {feeClaimer, access.RoleFeeClaimer}} {
			if g.account == (common.Address{}) {
				continue
			}
			n, err := r.Access.CountRole(ctx, g.role)
			if err != nil {
				return err
			}
			if n > 0 {
				continue
			}
			if err := r.Access.Grant(ctx, g.account, g.role); err != nil {
				return err
			}
			e.log.Info().Str("role", string(g.role)).Str("account", g.account.Hex()).Msg("bootstrap role granted")
		}
		return nil
	})
}

func (e *Engine) HasRole(ctx context.Context, account common.Address, role access.Role) (bool, error) {
	var ok bool
	err := e.uow.WithinTx(ctx, func(ctx context.Context, r uow.Repos) error {
		var err error
		ok, err = r.Access.HasRole(ctx, account, role)
		return err
	})
	return ok, err
}

// GrantRole requires caller to hold the administering role of role.
func (e *Engine) GrantRole(ctx context.Context, caller common.Address, role access.Role, account common.Address) error {
	return e.administer(ctx, caller, role, func(ctx context.Context, r uow.Repos) error {
		return r.Access.Grant(ctx, account, role)
	})
}

func (e *Engine) RevokeRole(ctx context.Context, caller common.Address, role access.Role, account common.Address) error {
	return e.administer(ctx, caller, role, func(ctx context.Context, r uow.Repos) error {
		return r.Access.Revoke(ctx, account, role)
	})
}

// RenounceRole drops one of caller's own roles.
func (e *Engine) RenounceRole(ctx context.Context, caller common.Address, role access.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", domain.ErrValidation, role)
	}
	return e.uow.WithinTx(ctx, func(ctx context.Context, r uow.Repos) error {
		return r.Access.Revoke(ctx, caller, role)
	})
}

func (e *Engine) administer(ctx context.Context, caller common.Address, role access.Role, fn func(ctx context.Context, r uow.Repos) error) error {
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", domain.ErrValidation, role)
	}
	return e.uow.WithinTx(ctx, func(ctx context.Context, r uow.Repos) error {
		if err := e.authorize(ctx, r, caller, role.AdminRole(), false); err != nil {
			return err
		}
		return fn(ctx, r)
	})
}

// Pause disables CreateLoan, StartLoan and Claim. Repayment stays open.
func (e *Engine) Pause(ctx context.Context, caller common.Address) error {
	return e.setPaused(ctx, caller, true)
}

func (e *Engine) Unpause(ctx context.Context, caller common.Address) error {
	return e.setPaused(ctx, caller, false)
}

func (e *Engine) setPaused(ctx context.Context, caller common.Address, paused bool) error {
	err := e.uow.WithinTx(ctx, func(ctx context.Context, r uow.Repos) error {
		if err := e.authorize(ctx, r, caller, access.RoleAdmin, false); err != nil {
			return err
		}
		return r.Access.SetPaused(ctx, paused)
	})
	if err == nil {
		e.log.Info().Bool("paused", paused).Str("by", caller.Hex()).Msg("pause switch set")
	}
	return err
}

func (e *Engine) Paused(ctx context.Context) (bool, error) {
	var paused bool
	err := e.uow.WithinTx(ctx, func(ctx context.Context, r uow.Repos) error {
		var err error
		paused, err = r.Access.IsPaused(ctx)
		return err
	})
	return paused, err
}

// SetFeePolicy reads the rate from p once and stores it, replacing the
// configured policy for every engine sharing the store.
func (e *Engine) SetFeePolicy(ctx context.Context, caller common.Address, p custody.FeePolicy) error {
	if p == nil {
		return fmt.Errorf("%w: fee policy is nil", domain.ErrValidation)
	}
	var bps uint64
	err := e.uow.WithinTx(ctx, func(ctx context.Context, r uow.Repos) error {
		if err := e.authorize(ctx, r, caller, access.RoleFeeClaimer, false); err != nil {
			return err
		}
		var err error
		if bps, err = p.OriginationFeeBps(ctx); err != nil {
			return err
		}
		return r.Access.SetFeeBps(ctx, bps)
	})
	if err != nil {
		return err
	}
	e.log.Info().Uint64("fee_bps", bps).Str("by", caller.Hex()).Msg("fee policy replaced")
	return nil
}

// SweepFees moves the whole custodial balance of token to caller.
func (e *Engine) SweepFees(ctx context.Context, caller, token common.Address) (*uint256.Int, error) {
	var swept *uint256.Int
	err := e.uow.WithinTx(ctx, func(ctx context.Context, r uow.Repos) error {
		if err := e.authorize(ctx, r, caller, access.RoleFeeClaimer, false); err != nil {
			return err
		}
		currency := e.rails.ValueToken(token)
		bal, err := currency.BalanceOf(ctx, e.custody)
		if err != nil {
			return err
		}
		if err := e.emit(ctx, r, event.TypeFeesSwept, 0, event.FeesSwept{
			Token:     token.Hex(),
			Recipient: caller.Hex(),
			Amount:    bal.Dec(),
		}); err != nil {
			return err
		}
		swept = bal
		return currency.Transfer(ctx, e.custody, caller, bal)
	})
	if err != nil {
		return nil, err
	}
	e.log.Info().Str("token", token.Hex()).Str("amount", swept.Dec()).Msg("fees swept")
	return swept, nil
}
