package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anvayfin/lms-backend/internal/service"
)

// FeeHandler handles late fee HTTP requests
type FeeHandler struct {
	feeService *service.FeeService
}

// NewFeeHandler creates a new FeeHandler
func NewFeeHandler(feeService *service.FeeService) *FeeHandler {
	return &FeeHandler{feeService: feeService}
}

// AssessFeesRequest triggers late fee assessment as of a date
type AssessFeesRequest struct {
	AsOf string `json:"asOf"`
}

// LateFeeChargeResponse represents one charged installment
type LateFeeChargeResponse struct {
	Period      int    `json:"period"`
	DueDate     string `json:"dueDate"`
	OverdueDays int    `json:"overdueDays"`
	Amount      string `json:"amount"`
}

// AssessLateFees handles POST /api/v1/accounts/:id/fees/assess
func (h *FeeHandler) AssessLateFees(c echo.Context) error {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req AssessFeesRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	asOf, ok := parseDate(req.AsOf)
	if !ok {
		return NewValidationError(c, "Invalid as-of date", []ValidationError{
			{Field: "asOf", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	charges, err := h.feeService.AssessLateFees(c.Request().Context(), accountID, asOf)
	if err != nil {
		return err
	}

	response := make([]LateFeeChargeResponse, len(charges))
	for i, charge := range charges {
		response[i] = LateFeeChargeResponse{
			Period:      charge.Period,
			DueDate:     formatDate(charge.DueDate),
			OverdueDays: charge.OverdueDays,
			Amount:      charge.Amount.StringFixed(2),
		}
	}
	return c.JSON(http.StatusOK, response)
}
