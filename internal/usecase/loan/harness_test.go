package loan

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	repo "collateral-loan-engine/internal/adapter/repository/mysql"
	"collateral-loan-engine/internal/domain/access"
	"collateral-loan-engine/internal/domain/custody"
	domain "collateral-loan-engine/internal/domain/loan"
	"collateral-loan-engine/internal/logging"
	"collateral-loan-engine/pkg/u256"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	custodyAddr = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	admin       = common.HexToAddress("0x00000000000000000000000000000000000000ad")
	originator  = common.HexToAddress("0x0000000000000000000000000000000000000001")
	repayer     = common.HexToAddress("0x0000000000000000000000000000000000000002")
	feeClaimer  = common.HexToAddress("0x00000000000000000000000000000000000000fe")
	lender      = common.HexToAddress("0x000000000000000000000000000000000000001e")
	borrower    = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	stranger    = common.HexToAddress("0x0000000000000000000000000000000000000bad")

	currency   = common.HexToAddress("0x000000000000000000000000000000000000cafe")
	collection = common.HexToAddress("0x000000000000000000000000000000000000c011")
)

const t0 = int64(1_700_000_000)

// harness runs a real engine on in-memory sqlite with the database-backed rails
// and note issuers.
type harness struct {
	t             *testing.T
	ctx           context.Context
	db            *gorm.DB
	engine        *Engine
	ledger        *repo.Ledger
	borrowerNotes *repo.NoteRepository
	lenderNotes   *repo.NoteRepository
	now           int64
}

type harnessOpt func(*Deps)

func withFee(bps uint64) harnessOpt {
	return func(d *Deps) { d.FeePolicy = custody.FixedFee(bps) }
}

func withRails(wrap func(custody.Rails) custody.Rails) harnessOpt {
	return func(d *Deps) { d.Rails = wrap(d.Rails) }
}

func newHarness(t *testing.T, opts ...harnessOpt) *harness {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(repo.Models()...))

	h := &harness{
		t:             t,
		ctx:           context.Background(),
		db:            db,
		ledger:        repo.NewLedger(db),
		borrowerNotes: repo.NewNoteRepository(db, repo.NoteBorrower),
		lenderNotes:   repo.NewNoteRepository(db, repo.NoteLender),
		now:           t0,
	}
	deps := Deps{
		UoW:           repo.NewGormUoW(db, nil),
		Rails:         h.ledger,
		BorrowerNotes: h.borrowerNotes,
		LenderNotes:   h.lenderNotes,
	}
	for _, o := range opts {
		o(&deps)
	}
	h.engine = NewEngine(custodyAddr, deps,
		WithClock(func() time.Time { return time.Unix(h.now, 0) }),
		WithLogger(logging.ConfigureTests()))

	require.NoError(t, h.engine.Bootstrap(h.ctx, admin, feeClaimer))
	require.NoError(t, h.engine.GrantRole(h.ctx, admin, access.RoleOriginator, originator))
	require.NoError(t, h.engine.GrantRole(h.ctx, admin, access.RoleRepayer, repayer))
	return h
}

// bps encodes whole basis points in the 1e18-scaled rate format.
func bps(n uint64) *uint256.Int {
	out, _ := u256.Mul(u256.Of(n), domain.RateScale)
	return out
}

func (h *harness) terms(item, principal uint64) domain.Terms { return sampleTerms(item, principal) }

// sampleTerms is a 10 bps, 100 second, full-repay loan.
func sampleTerms(item, principal uint64) domain.Terms {
	return domain.Terms{
		Collection:     collection,
		CollateralItem: u256.Of(item),
		Currency:       currency,
		Principal:      u256.Of(principal),
		Rate:           bps(10),
		Duration:       100,
		Installments:   0,
	}
}

// fund gives the originator the collateral item and the principal.
func (h *harness) fund(item, principal uint64) {
	h.t.Helper()
	require.NoError(h.t, h.ledger.MintItem(h.ctx, collection, u256.Of(item), originator))
	require.NoError(h.t, h.ledger.Credit(h.ctx, currency, originator, u256.Of(principal)))
}

func (h *harness) credit(who common.Address, amount uint64) {
	h.t.Helper()
	require.NoError(h.t, h.ledger.Credit(h.ctx, currency, who, u256.Of(amount)))
}

// originate funds, creates and starts a loan between lender and borrower.
func (h *harness) originate(item, principal uint64) uint64 {
	h.t.Helper()
	h.fund(item, principal)
	id, err := h.engine.CreateLoan(h.ctx, originator, h.terms(item, principal))
	require.NoError(h.t, err)
	require.NoError(h.t, h.engine.StartLoan(h.ctx, originator, lender, borrower, id))
	return id
}

func (h *harness) balance(who common.Address) uint64 {
	h.t.Helper()
	b, err := h.ledger.ValueToken(currency).BalanceOf(h.ctx, who)
	require.NoError(h.t, err)
	return b.Uint64()
}

func (h *harness) itemOwner(item uint64) common.Address {
	h.t.Helper()
	owner, err := h.ledger.OwnershipToken(collection).OwnerOf(h.ctx, u256.Of(item))
	require.NoError(h.t, err)
	return owner
}

func (h *harness) loan(id uint64) *domain.Loan {
	h.t.Helper()
	l, err := h.engine.GetLoan(h.ctx, id)
	require.NoError(h.t, err)
	return l
}

func (h *harness) locked(item uint64) bool {
	h.t.Helper()
	ok, err := h.engine.IsLocked(h.ctx, collection, u256.Of(item))
	require.NoError(h.t, err)
	return ok
}

func (h *harness) eventTypes(id uint64) []string {
	h.t.Helper()
	evs, err := h.engine.LoanEvents(h.ctx, id)
	require.NoError(h.t, err)
	out := make([]string, 0, len(evs))
	for _, e := range evs {
		out = append(out, e.Type)
	}
	return out
}

func decode[T any](t *testing.T, payload string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(payload), &v))
	return v
}
