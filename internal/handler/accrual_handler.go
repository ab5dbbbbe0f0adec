package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/anvayfin/lms-backend/internal/domain"
	"github.com/anvayfin/lms-backend/internal/service"
)

// AccrualHandler handles interest accrual and benchmark HTTP requests
type AccrualHandler struct {
	accrualService *service.AccrualService
}

// NewAccrualHandler creates a new AccrualHandler
func NewAccrualHandler(accrualService *service.AccrualService) *AccrualHandler {
	return &AccrualHandler{accrualService: accrualService}
}

// AccrueRequest represents the single-day accrual request body
type AccrueRequest struct {
	Date string `json:"date"`
}

// AccrualResponse represents one daily accrual in API responses
type AccrualResponse struct {
	ID          int64  `json:"id"`
	AccountID   int64  `json:"accountId"`
	AccrualDate string `json:"accrualDate"`
	Base        string `json:"base"`
	Rate        string `json:"rate"`
	Amount      string `json:"amount"`
	Cumulative  string `json:"cumulative"`
	Status      string `json:"status"`
}

// Accrue handles POST /api/v1/accounts/:id/accruals
func (h *AccrualHandler) Accrue(c echo.Context) error {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req AccrueRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	date, ok := parseDate(req.Date)
	if !ok {
		return NewValidationError(c, "Invalid date", []ValidationError{
			{Field: "date", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	accrual, err := h.accrualService.Accrue(c.Request().Context(), accountID, date)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toAccrualResponse(accrual))
}

// CatchUpRequest represents the catch-up accrual request body
type CatchUpRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// CatchUpResponse reports how many days were booked
type CatchUpResponse struct {
	Booked int `json:"booked"`
}

// CatchUp handles POST /api/v1/accounts/:id/accruals/catch-up
func (h *AccrualHandler) CatchUp(c echo.Context) error {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req CatchUpRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	from, ok := parseDate(req.From)
	if !ok {
		return NewValidationError(c, "Invalid from date", []ValidationError{
			{Field: "from", Message: "Must be in YYYY-MM-DD format"},
		})
	}
	to, ok := parseDate(req.To)
	if !ok {
		return NewValidationError(c, "Invalid to date", []ValidationError{
			{Field: "to", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	booked, err := h.accrualService.CatchUp(c.Request().Context(), accountID, from, to)
	if err != nil {
		return err
	}

	log.Info().Int64("account_id", accountID).Int("booked", booked).Msg("Accrual catch-up completed")
	return c.JSON(http.StatusOK, CatchUpResponse{Booked: booked})
}

// History handles GET /api/v1/accounts/:id/accruals?from=...&to=...
func (h *AccrualHandler) History(c echo.Context) error {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	from, ok := parseDate(c.QueryParam("from"))
	if !ok {
		return NewValidationError(c, "Invalid from parameter", []ValidationError{
			{Field: "from", Message: "Must be in YYYY-MM-DD format"},
		})
	}
	to, ok := parseDate(c.QueryParam("to"))
	if !ok {
		return NewValidationError(c, "Invalid to parameter", []ValidationError{
			{Field: "to", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	accruals, err := h.accrualService.History(c.Request().Context(), accountID, from, to)
	if err != nil {
		return err
	}

	response := make([]AccrualResponse, len(accruals))
	for i, a := range accruals {
		response[i] = toAccrualResponse(a)
	}
	return c.JSON(http.StatusOK, response)
}

// UpsertBenchmarkRequest represents a benchmark fixing publication
type UpsertBenchmarkRequest struct {
	EffectiveDate string `json:"effectiveDate"`
	Rate          string `json:"rate"`
}

// BenchmarkResponse represents a benchmark fixing in API responses
type BenchmarkResponse struct {
	ID            int64  `json:"id"`
	Code          string `json:"code"`
	EffectiveDate string `json:"effectiveDate"`
	Rate          string `json:"rate"`
}

// UpsertBenchmark handles PUT /api/v1/benchmarks/:code
func (h *AccrualHandler) UpsertBenchmark(c echo.Context) error {
	code := c.Param("code")
	if code == "" {
		return NewValidationError(c, "Benchmark code is required", nil)
	}

	var req UpsertBenchmarkRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	effectiveDate, ok := parseDate(req.EffectiveDate)
	if !ok {
		return NewValidationError(c, "Invalid effective date", []ValidationError{
			{Field: "effectiveDate", Message: "Must be in YYYY-MM-DD format"},
		})
	}
	rate, ok := parseAmount(req.Rate)
	if !ok {
		return NewValidationError(c, "Invalid rate", []ValidationError{
			{Field: "rate", Message: "Must be a valid decimal number"},
		})
	}

	fixing, err := h.accrualService.UpsertBenchmark(c.Request().Context(), code, effectiveDate, rate)
	if err != nil {
		return err
	}

	log.Info().Str("code", code).Str("rate", rate.String()).Msg("Benchmark fixing published")
	return c.JSON(http.StatusOK, BenchmarkResponse{
		ID:            fixing.ID,
		Code:          fixing.Code,
		EffectiveDate: formatDate(fixing.EffectiveDate),
		Rate:          fixing.Rate.String(),
	})
}

// RateResetResponse represents one floating rate repricing
type RateResetResponse struct {
	ID        int64  `json:"id"`
	AccountID int64  `json:"accountId"`
	ResetDate string `json:"resetDate"`
	OldRate   string `json:"oldRate"`
	NewRate   string `json:"newRate"`
	Benchmark string `json:"benchmark"`
}

// ListResets handles GET /api/v1/accounts/:id/rate-resets
func (h *AccrualHandler) ListResets(c echo.Context) error {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	resets, err := h.accrualService.Resets(c.Request().Context(), accountID)
	if err != nil {
		return err
	}

	response := make([]RateResetResponse, len(resets))
	for i, r := range resets {
		response[i] = RateResetResponse{
			ID:        r.ID,
			AccountID: r.AccountID,
			ResetDate: formatDate(r.ResetDate),
			OldRate:   r.OldRate.String(),
			NewRate:   r.NewRate.String(),
			Benchmark: r.Benchmark.String(),
		}
	}
	return c.JSON(http.StatusOK, response)
}

func toAccrualResponse(a *domain.InterestAccrual) AccrualResponse {
	return AccrualResponse{
		ID:          a.ID,
		AccountID:   a.AccountID,
		AccrualDate: formatDate(a.AccrualDate),
		Base:        a.Base.StringFixed(2),
		Rate:        a.Rate.String(),
		Amount:      a.Amount.StringFixed(2),
		Cumulative:  a.Cumulative.StringFixed(2),
		Status:      string(a.Status),
	}
}
