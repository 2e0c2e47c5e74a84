package http

import "github.com/labstack/echo/v4"

// Register mounts every route on e. mutating wraps the state-changing routes.
func Register(e *echo.Echo, h *Handler, loans *LoanHandler, admin *AdminHandler, mutating ...echo.MiddlewareFunc) {
	e.GET("/health", h.Health)

	e.GET("/loans/:loan_id", loans.GetLoan)
	e.GET("/loans/:loan_id/payoff", loans.Payoff)
	e.GET("/loans/:loan_id/events", loans.Events)
	e.GET("/vaults/:collection/:item/callers/:caller", loans.CanCallOn)

	m := e.Group("", mutating...)
	m.POST("/loans", loans.CreateLoan)
	m.POST("/loans/:loan_id/start", loans.Start)
	m.POST("/loans/:loan_id/repay", loans.Repay)
	m.POST("/loans/:loan_id/installments", loans.RepayPart)
	m.POST("/loans/:loan_id/claim", loans.Claim)

	a := m.Group("/admin")
	a.POST("/pause", admin.Pause)
	a.POST("/unpause", admin.Unpause)
	a.PUT("/fee-policy", admin.SetFeePolicy)
	a.POST("/fees/:token/sweep", admin.SweepFees)
	a.POST("/roles", admin.GrantRole)
	a.DELETE("/roles", admin.RevokeRole)
	a.POST("/roles/renounce", admin.RenounceRole)
}
