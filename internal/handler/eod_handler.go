package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/anvayfin/lms-backend/internal/service"
)

// EODHandler handles end-of-day batch HTTP requests
type EODHandler struct {
	eodService *service.EODService
}

// NewEODHandler creates a new EODHandler
func NewEODHandler(eodService *service.EODService) *EODHandler {
	return &EODHandler{eodService: eodService}
}

// EODRunRequest triggers the end-of-day batch for a business date
type EODRunRequest struct {
	Date string `json:"date"`
}

// Run handles POST /api/v1/eod/run
func (h *EODHandler) Run(c echo.Context) error {
	var req EODRunRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	date, ok := parseDate(req.Date)
	if !ok {
		return NewValidationError(c, "Invalid date", []ValidationError{
			{Field: "date", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	result, err := h.eodService.Run(c.Request().Context(), date)
	if err != nil {
		return err
	}

	log.Info().
		Str("date", req.Date).
		Int("accrual_processed", result.Accrual.Processed).
		Int("delinquency_processed", result.Delinquency.Processed).
		Msg("EOD run completed via API")

	return c.JSON(http.StatusOK, result)
}
