package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anvayfin/lms-backend/internal/domain"
	"github.com/anvayfin/lms-backend/internal/service"
)

// DelinquencyHandler handles delinquency HTTP requests
type DelinquencyHandler struct {
	delinquencyService *service.DelinquencyService
}

// NewDelinquencyHandler creates a new DelinquencyHandler
func NewDelinquencyHandler(delinquencyService *service.DelinquencyService) *DelinquencyHandler {
	return &DelinquencyHandler{delinquencyService: delinquencyService}
}

// RefreshDelinquencyRequest represents the refresh request body
type RefreshDelinquencyRequest struct {
	AsOf string `json:"asOf"`
}

// DelinquencySnapshotResponse represents one delinquency snapshot
type DelinquencySnapshotResponse struct {
	ID               int64  `json:"id"`
	AccountID        int64  `json:"accountId"`
	AsOf             string `json:"asOf"`
	DPD              int    `json:"dpd"`
	Bucket           string `json:"bucket"`
	NPA              bool   `json:"npa"`
	NPACategory      string `json:"npaCategory,omitempty"`
	OverduePrincipal string `json:"overduePrincipal"`
	OverdueInterest  string `json:"overdueInterest"`
	OverdueFees      string `json:"overdueFees"`
	TotalOverdue     string `json:"totalOverdue"`
}

// Refresh handles POST /api/v1/accounts/:id/delinquency/refresh
func (h *DelinquencyHandler) Refresh(c echo.Context) error {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req RefreshDelinquencyRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	asOf, ok := parseDate(req.AsOf)
	if !ok {
		return NewValidationError(c, "Invalid as-of date", []ValidationError{
			{Field: "asOf", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	snapshot, err := h.delinquencyService.Refresh(c.Request().Context(), accountID, asOf)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSnapshotResponse(snapshot))
}

// Latest handles GET /api/v1/accounts/:id/delinquency
func (h *DelinquencyHandler) Latest(c echo.Context) error {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	snapshot, err := h.delinquencyService.Latest(c.Request().Context(), accountID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSnapshotResponse(snapshot))
}

// Trend handles GET /api/v1/accounts/:id/delinquency/trend?from=...&to=...
func (h *DelinquencyHandler) Trend(c echo.Context) error {
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

	snapshots, err := h.delinquencyService.Trend(c.Request().Context(), accountID, from, to)
	if err != nil {
		return err
	}

	response := make([]DelinquencySnapshotResponse, len(snapshots))
	for i, s := range snapshots {
		response[i] = toSnapshotResponse(s)
	}
	return c.JSON(http.StatusOK, response)
}

// BucketDistributionResponse aggregates the book by bucket
type BucketDistributionResponse struct {
	Bucket      string `json:"bucket"`
	Accounts    int    `json:"accounts"`
	Outstanding string `json:"outstanding"`
}

// Distribution handles GET /api/v1/delinquency/distribution?asOf=...
func (h *DelinquencyHandler) Distribution(c echo.Context) error {
	asOf, ok := parseDate(c.QueryParam("asOf"))
	if !ok {
		return NewValidationError(c, "Invalid asOf parameter", []ValidationError{
			{Field: "asOf", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	buckets, err := h.delinquencyService.BucketDistribution(c.Request().Context(), asOf)
	if err != nil {
		return err
	}

	response := make([]BucketDistributionResponse, len(buckets))
	for i, b := range buckets {
		response[i] = BucketDistributionResponse{
			Bucket:      b.Bucket,
			Accounts:    b.Accounts,
			Outstanding: b.Outstanding.StringFixed(2),
		}
	}
	return c.JSON(http.StatusOK, response)
}

func toSnapshotResponse(s *domain.DelinquencySnapshot) DelinquencySnapshotResponse {
	return DelinquencySnapshotResponse{
		ID:               s.ID,
		AccountID:        s.AccountID,
		AsOf:             formatDate(s.AsOf),
		DPD:              s.DPD,
		Bucket:           s.Bucket,
		NPA:              s.NPA,
		NPACategory:      s.NPACategory,
		OverduePrincipal: s.OverduePrincipal.StringFixed(2),
		OverdueInterest:  s.OverdueInterest.StringFixed(2),
		OverdueFees:      s.OverdueFees.StringFixed(2),
		TotalOverdue:     s.TotalOverdue().StringFixed(2),
	}
}
