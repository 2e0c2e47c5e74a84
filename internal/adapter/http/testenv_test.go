package http

import (
	"bytes"
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"

	"collateral-loan-engine/internal/adapter/middleware"
	repo "collateral-loan-engine/internal/adapter/repository/mysql"
	"collateral-loan-engine/internal/domain/access"
	"collateral-loan-engine/internal/logging"
	"collateral-loan-engine/internal/usecase/loan"
	"collateral-loan-engine/pkg/u256"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	custodyHex    = "0x00000000000000000000000000000000000000c0"
	adminHex      = "0x00000000000000000000000000000000000000ad"
	originatorHex = "0x0000000000000000000000000000000000000001"
	repayerHex    = "0x0000000000000000000000000000000000000002"
	feeClaimerHex = "0x00000000000000000000000000000000000000fe"
	lenderHex     = "0x000000000000000000000000000000000000001e"
	borrowerHex   = "0x00000000000000000000000000000000000000b0"
	strangerHex   = "0x0000000000000000000000000000000000000bad"
	currencyHex   = "0x000000000000000000000000000000000000cafe"
	collectionHex = "0x000000000000000000000000000000000000c011"

	// 10 basis points in 1e18 fixed point
	tenBps = "10000000000000000000"
)

type testEnv struct {
	t      *testing.T
	e      *echo.Echo
	engine *loan.Engine
	ledger *repo.Ledger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(repo.Models()...))

	ledger := repo.NewLedger(db)
	eng := loan.NewEngine(common.HexToAddress(custodyHex), loan.Deps{
		UoW:           repo.NewGormUoW(db, nil),
		Rails:         ledger,
		BorrowerNotes: repo.NewNoteRepository(db, repo.NoteBorrower),
		LenderNotes:   repo.NewNoteRepository(db, repo.NoteLender),
	}, loan.WithLogger(logging.ConfigureTests()))
	ctx := context.Background()
	require.NoError(t, eng.Bootstrap(ctx, common.HexToAddress(adminHex), common.HexToAddress(feeClaimerHex)))
	require.NoError(t, eng.GrantRole(ctx, common.HexToAddress(adminHex), access.RoleOriginator, common.HexToAddress(originatorHex)))
	require.NoError(t, eng.GrantRole(ctx, common.HexToAddress(adminHex), access.RoleRepayer, common.HexToAddress(repayerHex)))

	e := echo.New()
	e.Validator = NewValidator()
	Register(e, NewHandler(), NewLoanHandler(eng), NewAdminHandler(eng))
	return &testEnv{t: t, e: e, engine: eng, ledger: ledger}
}

func (env *testEnv) do(method, path, caller string, body any) *httptest.ResponseRecorder {
	env.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(env.t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if caller != "" {
		req.Header.Set(middleware.HeaderCaller, caller)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) credit(who string, amount uint64) {
	env.t.Helper()
	require.NoError(env.t, env.ledger.Credit(context.Background(),
		common.HexToAddress(currencyHex), common.HexToAddress(who), u256.Of(amount)))
}

func (env *testEnv) balance(who string) uint64 {
	env.t.Helper()
	b, err := env.ledger.ValueToken(common.HexToAddress(currencyHex)).
		BalanceOf(context.Background(), common.HexToAddress(who))
	require.NoError(env.t, err)
	return b.Uint64()
}

func createBody(item string, principal string) map[string]any {
	return map[string]any{
		"collateral_collection": collectionHex,
		"collateral_item":       item,
		"currency":              currencyHex,
		"principal":             principal,
		"rate":                  tenBps,
		"duration":              100,
		"installments":          0,
	}
}

// fund gives the originator the item and the principal.
func (env *testEnv) fund(item, principal uint64) {
	env.t.Helper()
	require.NoError(env.t, env.ledger.MintItem(context.Background(),
		common.HexToAddress(collectionHex), u256.Of(item), common.HexToAddress(originatorHex)))
	env.credit(originatorHex, principal)
}

// originate creates and starts a loan through the API.
func (env *testEnv) originate(item, principal uint64) loan.LoanDTO {
	env.t.Helper()
	env.fund(item, principal)
	rec := env.do(stdhttp.MethodPost, "/loans", originatorHex,
		createBody(u256.Of(item).Dec(), u256.Of(principal).Dec()))
	require.Equal(env.t, stdhttp.StatusCreated, rec.Code, rec.Body.String())
	dto := decodeBody[loan.LoanDTO](env.t, rec)

	rec = env.do(stdhttp.MethodPost, loanPath(dto.LoanID, "start"), originatorHex,
		map[string]string{"lender": lenderHex, "borrower": borrowerHex})
	require.Equal(env.t, stdhttp.StatusOK, rec.Code, rec.Body.String())
	return decodeBody[loan.LoanDTO](env.t, rec)
}

func loanPath(id uint64, suffix string) string {
	p := "/loans/" + u256.Of(id).Dec()
	if suffix != "" {
		p += "/" + suffix
	}
	return p
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
