package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"collateral-loan-engine/internal/adapter/middleware"
	domain "collateral-loan-engine/internal/domain/loan"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

var (
	errBadCaller  = errors.New("missing or invalid " + middleware.HeaderCaller)
	errBadLoanID  = errors.New("loan_id must be a positive integer")
	errBadAddress = errors.New("path address must be a 20-byte hex address")
	errBadItem    = errors.New("item must be a base-10 integer below 2^256")
)

func callerFrom(c echo.Context) (common.Address, error) {
	raw := strings.TrimSpace(c.Request().Header.Get(middleware.HeaderCaller))
	if !common.IsHexAddress(raw) {
		return common.Address{}, errBadCaller
	}
	return common.HexToAddress(raw), nil
}

func loanIDParam(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("loan_id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errBadLoanID
	}
	return id, nil
}

func callerAndLoan(c echo.Context) (common.Address, uint64, error) {
	caller, err := callerFrom(c)
	if err != nil {
		return common.Address{}, 0, err
	}
	id, err := loanIDParam(c)
	if err != nil {
		return common.Address{}, 0, err
	}
	return caller, id, nil
}

var statusByCode = map[domain.Code]int{
	domain.CodeValidation:   http.StatusUnprocessableEntity,
	domain.CodeConflict:     http.StatusConflict,
	domain.CodeInvalidState: http.StatusConflict,
	domain.CodeNotExpired:   http.StatusPreconditionFailed,
	domain.CodeUnauthorized: http.StatusForbidden,
	domain.CodePaused:       http.StatusServiceUnavailable,
	domain.CodeArithmetic:   http.StatusUnprocessableEntity,
	domain.CodeTransfer:     http.StatusUnprocessableEntity,
}

// Map domain errors → HTTP codes. Unknown errors are logged and hidden.
func writeError(c echo.Context, err error) error {
	code := domain.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
	return c.JSON(status, ErrorResponse{Error: err.Error(), Code: string(code)})
}

func badRequest(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
}

// bindValid binds and validates req, writing the 400/422 response itself.
func bindValid(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(req); err != nil {
		return false, c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Code:    string(domain.CodeValidation),
			Details: ToFieldErrors(err),
		})
	}
	return true, nil
}
