package handler

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(e *echo.Echo, accountHandler *AccountHandler, paymentHandler *PaymentHandler, feeHandler *FeeHandler, accrualHandler *AccrualHandler, delinquencyHandler *DelinquencyHandler, restructureHandler *RestructureHandler, prepaymentHandler *PrepaymentHandler, closureHandler *ClosureHandler, colendingHandler *ColendingHandler, fldgHandler *FLDGHandler, eclHandler *ECLHandler, eodHandler *EODHandler, wsHandler *WebSocketHandler) {
	// API version 1
	api := e.Group("/api/v1")

	// Account and schedule routes
	accounts := api.Group("/accounts")
	accounts.POST("", accountHandler.CreateAccount)
	accounts.GET("/:id", accountHandler.GetAccount)
	accounts.GET("/by-number/:number", accountHandler.GetAccountByNumber)
	accounts.GET("/:id/schedule", accountHandler.GetSchedule)
	accounts.POST("/:id/schedule", accountHandler.PersistSchedule)
	accounts.POST("/:id/schedule/regenerate", accountHandler.RegenerateSchedule)
	api.POST("/schedules/preview", accountHandler.PreviewSchedule)

	// Payment routes
	api.POST("/payments", paymentHandler.ApplyPayment)
	api.GET("/payments/:id", paymentHandler.GetPayment)
	accounts.GET("/:id/payments", paymentHandler.ListPayments)

	// Late fee routes
	accounts.POST("/:id/fees/assess", feeHandler.AssessLateFees)

	// Accrual and rate routes
	accounts.POST("/:id/accruals", accrualHandler.Accrue)
	accounts.POST("/:id/accruals/catch-up", accrualHandler.CatchUp)
	accounts.GET("/:id/accruals", accrualHandler.History)
	accounts.GET("/:id/rate-resets", accrualHandler.ListResets)
	api.PUT("/benchmarks/:code", accrualHandler.UpsertBenchmark)

	// Delinquency routes
	accounts.POST("/:id/delinquency/refresh", delinquencyHandler.Refresh)
	accounts.GET("/:id/delinquency", delinquencyHandler.Latest)
	accounts.GET("/:id/delinquency/trend", delinquencyHandler.Trend)
	api.GET("/delinquency/distribution", delinquencyHandler.Distribution)

	// Restructure workflow routes
	restructures := api.Group("/restructures")
	restructures.POST("", restructureHandler.Request)
	restructures.POST("/impact", restructureHandler.Impact)
	restructures.POST("/:id/approve", restructureHandler.Approve)
	restructures.POST("/:id/reject", restructureHandler.Reject)
	restructures.POST("/:id/apply", restructureHandler.Apply)

	// Prepayment routes
	accounts.POST("/:id/prepayments", prepaymentHandler.Apply)
	accounts.POST("/:id/prepayments/impact", prepaymentHandler.Impact)

	// Closure, write-off and recovery routes
	accounts.POST("/:id/close", closureHandler.Close)
	accounts.POST("/:id/write-off", closureHandler.WriteOff)
	accounts.POST("/:id/recoveries", closureHandler.RecordRecovery)

	// Co-lending routes
	accounts.POST("/:id/participations", colendingHandler.Register)
	accounts.GET("/:id/participations", colendingHandler.Participations)
	accounts.POST("/:id/collections/split", colendingHandler.SplitCollection)
	accounts.POST("/:id/servicer-fee/accrue", colendingHandler.AccrueServicerFee)
	accounts.POST("/:id/excess-spread", colendingHandler.ExcessSpread)
	accounts.GET("/:id/ledger/:partner", colendingHandler.Ledger)

	// Default guarantee routes
	fldg := api.Group("/fldg")
	fldg.POST("", fldgHandler.CreateArrangement)
	fldg.GET("/:id", fldgHandler.GetArrangement)
	fldg.POST("/claims", fldgHandler.Claim)
	fldg.POST("/recoveries", fldgHandler.Recovery)
	fldg.GET("/:id/utilizations", fldgHandler.Utilizations)
	fldg.GET("/:id/recoveries", fldgHandler.Recoveries)

	// Impairment routes
	accounts.POST("/:id/ecl/run", eclHandler.Run)
	accounts.GET("/:id/ecl", eclHandler.LatestProvision)
	api.GET("/ecl/portfolio", eclHandler.Portfolio)

	// End-of-day batch
	api.POST("/eod/run", eodHandler.Run)

	// WebSocket endpoint
	e.GET("/ws", wsHandler.HandleWS)
}
