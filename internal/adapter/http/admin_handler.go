package http

import (
	"context"
	"net/http"

	"collateral-loan-engine/internal/domain/access"
	"collateral-loan-engine/internal/domain/custody"
	"collateral-loan-engine/internal/usecase/loan"
	"collateral-loan-engine/pkg/u256"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
)

// AdminHandler serves the role, pause and fee endpoints.
type AdminHandler struct{ eng *loan.Engine }

func NewAdminHandler(eng *loan.Engine) *AdminHandler { return &AdminHandler{eng: eng} }

type feePolicyReq struct {
	FeeBps *uint64 `json:"fee_bps" validate:"required,lte=10000"`
}

type roleReq struct {
	Account string `json:"account" validate:"required,hexaddr"`
	Role    string `json:"role"    validate:"required,oneof=ORIGINATOR REPAYER FEE_CLAIMER ADMIN"`
}

type renounceReq struct {
	Role string `json:"role" validate:"required,oneof=ORIGINATOR REPAYER FEE_CLAIMER ADMIN"`
}

type sweepResp struct {
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

func (h *AdminHandler) Pause(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return badRequest(c, err)
	}
	if err := h.eng.Pause(c.Request().Context(), caller); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"paused": true})
}

func (h *AdminHandler) Unpause(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return badRequest(c, err)
	}
	if err := h.eng.Unpause(c.Request().Context(), caller); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"paused": false})
}

func (h *AdminHandler) SetFeePolicy(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return badRequest(c, err)
	}
	var req feePolicyReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	if err := h.eng.SetFeePolicy(c.Request().Context(), caller, custody.FixedFee(*req.FeeBps)); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]uint64{"fee_bps": *req.FeeBps})
}

func (h *AdminHandler) SweepFees(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return badRequest(c, err)
	}
	token := c.Param("token")
	if !common.IsHexAddress(token) {
		return badRequest(c, errBadAddress)
	}
	amt, err := h.eng.SweepFees(c.Request().Context(), caller, common.HexToAddress(token))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, sweepResp{Token: common.HexToAddress(token).Hex(), Amount: u256.String(amt)})
}

func (h *AdminHandler) GrantRole(c echo.Context) error {
	return h.changeRole(c, h.eng.GrantRole)
}

func (h *AdminHandler) RevokeRole(c echo.Context) error {
	return h.changeRole(c, h.eng.RevokeRole)
}

func (h *AdminHandler) RenounceRole(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return badRequest(c, err)
	}
	var req renounceReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	if err := h.eng.RenounceRole(c.Request().Context(), caller, access.Role(req.Role)); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type roleChange func(ctx context.Context, caller common.Address, role access.Role, account common.Address) error

func (h *AdminHandler) changeRole(c echo.Context, fn roleChange) error {
	caller, err := callerFrom(c)
	if err != nil {
		return badRequest(c, err)
	}
	var req roleReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	if err := fn(c.Request().Context(), caller, access.Role(req.Role), common.HexToAddress(req.Account)); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
