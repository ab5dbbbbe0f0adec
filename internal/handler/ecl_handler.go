package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anvayfin/lms-backend/internal/service"
)

// ECLHandler handles impairment staging and provisioning HTTP requests
type ECLHandler struct {
	eclService *service.ECLService
}

// NewECLHandler creates a new ECLHandler
func NewECLHandler(eclService *service.ECLService) *ECLHandler {
	return &ECLHandler{eclService: eclService}
}

// ECLRunRequest triggers staging and provisioning for one account
type ECLRunRequest struct {
	AsOf string `json:"asOf"`
	SICR bool   `json:"sicr,omitempty"`
}

// Run handles POST /api/v1/accounts/:id/ecl/run
func (h *ECLHandler) Run(c echo.Context) error {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req ECLRunRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	asOf, ok := parseDate(req.AsOf)
	if !ok {
		return NewValidationError(c, "Invalid as-of date", []ValidationError{
			{Field: "asOf", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	result, err := h.eclService.Run(c.Request().Context(), accountID, asOf, req.SICR)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// LatestProvision handles GET /api/v1/accounts/:id/ecl
func (h *ECLHandler) LatestProvision(c echo.Context) error {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	provision, err := h.eclService.LatestProvision(c.Request().Context(), accountID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, provision)
}

// Portfolio handles GET /api/v1/ecl/portfolio?asOf=YYYY-MM-DD
func (h *ECLHandler) Portfolio(c echo.Context) error {
	asOf, ok := parseDate(c.QueryParam("asOf"))
	if !ok {
		return NewValidationError(c, "Invalid as-of date", []ValidationError{
			{Field: "asOf", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	summary, err := h.eclService.PortfolioSummary(c.Request().Context(), asOf)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}
