package loan

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"collateral-loan-engine/internal/domain/access"
	"collateral-loan-engine/internal/domain/custody"
	"collateral-loan-engine/internal/domain/event"
	domain "collateral-loan-engine/internal/domain/loan"
	"collateral-loan-engine/internal/domain/uow"
	"collateral-loan-engine/pkg/id"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

// Deps are the collaborators an Engine drives.
type Deps struct {
	UoW           uow.UnitOfWork
	Rails         custody.Rails
	BorrowerNotes custody.NoteIssuer
	LenderNotes   custody.NoteIssuer
	FeePolicy     custody.FeePolicy
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.clock = now } }

func WithLogger(l zerolog.Logger) Option { return func(e *Engine) { e.log = l } }

// Engine is the loan lifecycle state machine. Every operation runs in one
// unit-of-work transaction and finishes all registry, lock and note changes
// before any asset leaves custody.
type Engine struct {
	custody       common.Address
	uow           uow.UnitOfWork
	rails         custody.Rails
	borrowerNotes custody.NoteIssuer
	lenderNotes   custody.NoteIssuer

	// fees applies until a fee claimer stores a rate
	fees custody.FeePolicy

	clock func() time.Time
	log   zerolog.Logger
}

// NewEngine builds an engine holding escrowed assets at custodyAddr.
func NewEngine(custodyAddr common.Address, d Deps, opts ...Option) *Engine {
	e := &Engine{
		custody:       custodyAddr,
		uow:           d.UoW,
		rails:         d.Rails,
		borrowerNotes: d.BorrowerNotes,
		lenderNotes:   d.LenderNotes,
		fees:          d.FeePolicy,
		clock:         time.Now,
		log:           zerolog.Nop(),
	}
	if e.fees == nil {
		e.fees = custody.FixedFee(0)
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// CustodyAddress is where escrowed collateral and currency are held.
func (e *Engine) CustodyAddress() common.Address { return e.custody }

func (e *Engine) now() int64 { return e.clock().Unix() }

// feeBps prefers the stored rate so every engine over the same store agrees.
func (e *Engine) feeBps(ctx context.Context, r uow.Repos) (uint64, error) {
	bps, ok, err := r.Access.FeeBps(ctx)
	if err != nil || ok {
		return bps, err
	}
	return e.fees.OriginationFeeBps(ctx)
}

// authorize checks the role first and then, for gated operations, the pause switch.
func (e *Engine) authorize(ctx context.Context, r uow.Repos, caller common.Address, role access.Role, pausable bool) error {
	ok, err := r.Access.HasRole(ctx, caller, role)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s is not %s", domain.ErrUnauthorized, caller.Hex(), role)
	}
	if !pausable {
		return nil
	}
	paused, err := r.Access.IsPaused(ctx)
	if err != nil {
		return err
	}
	if paused {
		return domain.ErrPaused
	}
	return nil
}

func (e *Engine) emit(ctx context.Context, r uow.Repos, typ event.Type, loanID uint64, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return r.Events.Append(ctx, &event.Event{
		EventID: id.NewID32(),
		Type:    typ,
		LoanID:  loanID,
		Payload: string(b),
	})
}

func (e *Engine) done(op string, loanID uint64, err error) {
	if err != nil {
		e.log.Debug().Str("op", op).Uint64("loan_id", loanID).
			Str("code", string(domain.CodeOf(err))).Err(err).Msg("loan operation rejected")
		return
	}
	e.log.Info().Str("op", op).Uint64("loan_id", loanID).Msg("loan operation committed")
}
