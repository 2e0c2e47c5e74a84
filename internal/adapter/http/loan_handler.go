package http

import (
	"net/http"

	domain "collateral-loan-engine/internal/domain/loan"
	"collateral-loan-engine/internal/usecase/loan"
	"collateral-loan-engine/pkg/u256"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
)

type LoanHandler struct{ eng *loan.Engine }

func NewLoanHandler(eng *loan.Engine) *LoanHandler { return &LoanHandler{eng: eng} }

type createLoanReq struct {
	Collection     string `json:"collateral_collection" validate:"required,hexaddr"`
	CollateralItem string `json:"collateral_item"       validate:"required,u256"`
	Currency       string `json:"currency"              validate:"required,hexaddr"`
	Principal      string `json:"principal"             validate:"required,u256"`
	Rate           string `json:"rate"                  validate:"required,u256"`
	Duration       uint64 `json:"duration"`
	Installments   uint32 `json:"installments"`
}

func (r createLoanReq) terms() domain.Terms {
	return domain.Terms{
		Collection:     common.HexToAddress(r.Collection),
		CollateralItem: u256.MustParse(r.CollateralItem),
		Currency:       common.HexToAddress(r.Currency),
		Principal:      u256.MustParse(r.Principal),
		Rate:           u256.MustParse(r.Rate),
		Duration:       r.Duration,
		Installments:   r.Installments,
	}
}

type startLoanReq struct {
	Lender   string `json:"lender"   validate:"required,hexaddr"`
	Borrower string `json:"borrower" validate:"required,hexaddr"`
}

type installmentReq struct {
	ToPrincipal    string `json:"to_principal"    validate:"required,u256"`
	MissedPayments uint64 `json:"missed_payments"`
	ToInterest     string `json:"to_interest"     validate:"required,u256"`
	ToLateFees     string `json:"to_late_fees"    validate:"required,u256"`
}

type payoffResp struct {
	LoanID uint64 `json:"loan_id"`
	Amount string `json:"amount"`
}

func (h *LoanHandler) CreateLoan(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return badRequest(c, err)
	}
	var req createLoanReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	ctx := c.Request().Context()
	id, err := h.eng.CreateLoan(ctx, caller, req.terms())
	if err != nil {
		return writeError(c, err)
	}
	l, err := h.eng.GetLoan(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, loan.ToDTO(l))
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
	id, err := loanIDParam(c)
	if err != nil {
		return badRequest(c, err)
	}
	l, err := h.eng.GetLoan(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, loan.ToDTO(l))
}

func (h *LoanHandler) Payoff(c echo.Context) error {
	id, err := loanIDParam(c)
	if err != nil {
		return badRequest(c, err)
	}
	amt, err := h.eng.PayoffAmount(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, payoffResp{LoanID: id, Amount: u256.String(amt)})
}

func (h *LoanHandler) Events(c echo.Context) error {
	id, err := loanIDParam(c)
	if err != nil {
		return badRequest(c, err)
	}
	evs, err := h.eng.LoanEvents(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, evs)
}

func (h *LoanHandler) Start(c echo.Context) error {
	caller, id, err := callerAndLoan(c)
	if err != nil {
		return badRequest(c, err)
	}
	var req startLoanReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	err = h.eng.StartLoan(c.Request().Context(), caller,
		common.HexToAddress(req.Lender), common.HexToAddress(req.Borrower), id)
	if err != nil {
		return writeError(c, err)
	}
	return h.render(c, id)
}

func (h *LoanHandler) Repay(c echo.Context) error {
	caller, id, err := callerAndLoan(c)
	if err != nil {
		return badRequest(c, err)
	}
	if err := h.eng.Repay(c.Request().Context(), caller, id); err != nil {
		return writeError(c, err)
	}
	return h.render(c, id)
}

func (h *LoanHandler) RepayPart(c echo.Context) error {
	caller, id, err := callerAndLoan(c)
	if err != nil {
		return badRequest(c, err)
	}
	var req installmentReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	in := loan.InstallmentInput{
		ToPrincipal:    u256.MustParse(req.ToPrincipal),
		MissedPayments: req.MissedPayments,
		ToInterest:     u256.MustParse(req.ToInterest),
		ToLateFees:     u256.MustParse(req.ToLateFees),
	}
	if err := h.eng.RepayPart(c.Request().Context(), caller, id, in); err != nil {
		return writeError(c, err)
	}
	return h.render(c, id)
}

func (h *LoanHandler) Claim(c echo.Context) error {
	caller, id, err := callerAndLoan(c)
	if err != nil {
		return badRequest(c, err)
	}
	if err := h.eng.Claim(c.Request().Context(), caller, id); err != nil {
		return writeError(c, err)
	}
	return h.render(c, id)
}

// CanCallOn answers whether caller may act on the escrowed item.
func (h *LoanHandler) CanCallOn(c echo.Context) error {
	collection, caller := c.Param("collection"), c.Param("caller")
	if !common.IsHexAddress(collection) || !common.IsHexAddress(caller) {
		return badRequest(c, errBadAddress)
	}
	item, err := u256.Parse(c.Param("item"))
	if err != nil {
		return badRequest(c, errBadItem)
	}
	ok, err := h.eng.CanCallOn(c.Request().Context(),
		common.HexToAddress(caller), common.HexToAddress(collection), item)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"allowed": ok})
}

func (h *LoanHandler) render(c echo.Context, id uint64) error {
	l, err := h.eng.GetLoan(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, loan.ToDTO(l))
}
