package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/anvayfin/lms-backend/internal/domain"
	"github.com/anvayfin/lms-backend/internal/service"
)

// RestructureHandler handles restructure workflow HTTP requests
type RestructureHandler struct {
	restructureService *service.RestructureService
}

// NewRestructureHandler creates a new RestructureHandler
func NewRestructureHandler(restructureService *service.RestructureService) *RestructureHandler {
	return &RestructureHandler{restructureService: restructureService}
}

// RestructureRequestBody represents a restructure proposal
type RestructureRequestBody struct {
	AccountID        int64   `json:"accountId"`
	Type             string  `json:"type"`
	NewRate          *string `json:"newRate,omitempty"`
	ExtensionPeriods int     `json:"extensionPeriods,omitempty"`
	HaircutAmount    *string `json:"haircutAmount,omitempty"`
	NewInstallment   *string `json:"newInstallment,omitempty"`
}

// RestructureRequestResponse represents a restructure request in API responses
type RestructureRequestResponse struct {
	ID               int64   `json:"id"`
	AccountID        int64   `json:"accountId"`
	Type             string  `json:"type"`
	NewRate          *string `json:"newRate,omitempty"`
	ExtensionPeriods int     `json:"extensionPeriods,omitempty"`
	HaircutAmount    *string `json:"haircutAmount,omitempty"`
	NewInstallment   *string `json:"newInstallment,omitempty"`
	Status           string  `json:"status"`
	Reason           string  `json:"reason,omitempty"`
	RequestedAt      string  `json:"requestedAt"`
	DecidedAt        *string `json:"decidedAt,omitempty"`
	AppliedAt        *string `json:"appliedAt,omitempty"`
}

func (b *RestructureRequestBody) toDomain(c echo.Context) (*domain.RestructureRequest, error) {
	newRate, ok := parseOptionalAmount(b.NewRate)
	if !ok {
		return nil, NewValidationError(c, "Invalid new rate", []ValidationError{
			{Field: "newRate", Message: "Must be a valid decimal number"},
		})
	}
	haircut, ok := parseOptionalAmount(b.HaircutAmount)
	if !ok {
		return nil, NewValidationError(c, "Invalid haircut amount", []ValidationError{
			{Field: "haircutAmount", Message: "Must be a valid decimal number"},
		})
	}
	installment, ok := parseOptionalAmount(b.NewInstallment)
	if !ok {
		return nil, NewValidationError(c, "Invalid new installment", []ValidationError{
			{Field: "newInstallment", Message: "Must be a valid decimal number"},
		})
	}

	return &domain.RestructureRequest{
		AccountID:        b.AccountID,
		Type:             domain.RestructureType(b.Type),
		NewRate:          newRate,
		ExtensionPeriods: b.ExtensionPeriods,
		HaircutAmount:    haircut,
		NewInstallment:   installment,
	}, nil
}

// Request handles POST /api/v1/restructures
func (h *RestructureHandler) Request(c echo.Context) error {
	var body RestructureRequestBody
	if err := c.Bind(&body); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	req, err := body.toDomain(c)
	if req == nil {
		return err
	}

	created, err := h.restructureService.Request(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toRestructureRequestResponse(created))
}

// Approve handles POST /api/v1/restructures/:id/approve
func (h *RestructureHandler) Approve(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	req, err := h.restructureService.Approve(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toRestructureRequestResponse(req))
}

// RejectRequest carries the rejection reason
type RejectRequest struct {
	Reason string `json:"reason"`
}

// Reject handles POST /api/v1/restructures/:id/reject
func (h *RestructureHandler) Reject(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var body RejectRequest
	if err := c.Bind(&body); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	req, err := h.restructureService.Reject(c.Request().Context(), id, body.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toRestructureRequestResponse(req))
}

// RestructureEventResponse represents an applied restructure
type RestructureEventResponse struct {
	ID         int64  `json:"id"`
	AccountID  int64  `json:"accountId"`
	RequestID  int64  `json:"requestId"`
	Type       string `json:"type"`
	OldRate    string `json:"oldRate"`
	NewRate    string `json:"newRate"`
	OldTenure  int    `json:"oldTenure"`
	NewTenure  int    `json:"newTenure"`
	OldBalance string `json:"oldBalance"`
	NewBalance string `json:"newBalance"`
	AppliedAt  string `json:"appliedAt"`
}

// Apply handles POST /api/v1/restructures/:id/apply
func (h *RestructureHandler) Apply(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	event, err := h.restructureService.Apply(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, RestructureEventResponse{
		ID:         event.ID,
		AccountID:  event.AccountID,
		RequestID:  event.RequestID,
		Type:       string(event.Type),
		OldRate:    event.OldRate.String(),
		NewRate:    event.NewRate.String(),
		OldTenure:  event.OldTenure,
		NewTenure:  event.NewTenure,
		OldBalance: event.OldBalance.StringFixed(2),
		NewBalance: event.NewBalance.StringFixed(2),
		AppliedAt:  event.AppliedAt.Format(time.RFC3339),
	})
}

// RestructureImpactResponse previews a proposal against current terms
type RestructureImpactResponse struct {
	CurrentInstallment  string `json:"currentInstallment"`
	ProposedInstallment string `json:"proposedInstallment"`
	CurrentTenure       int    `json:"currentTenure"`
	ProposedTenure      int    `json:"proposedTenure"`
	CurrentRate         string `json:"currentRate"`
	ProposedRate        string `json:"proposedRate"`
}

// Impact handles POST /api/v1/restructures/impact
func (h *RestructureHandler) Impact(c echo.Context) error {
	var body RestructureRequestBody
	if err := c.Bind(&body); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	req, err := body.toDomain(c)
	if req == nil {
		return err
	}

	impact, err := h.restructureService.Impact(c.Request().Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, RestructureImpactResponse{
		CurrentInstallment:  impact.CurrentInstallment.StringFixed(2),
		ProposedInstallment: impact.ProposedInstallment.StringFixed(2),
		CurrentTenure:       impact.CurrentTenure,
		ProposedTenure:      impact.ProposedTenure,
		CurrentRate:         impact.CurrentRate.String(),
		ProposedRate:        impact.ProposedRate.String(),
	})
}

func toRestructureRequestResponse(r *domain.RestructureRequest) RestructureRequestResponse {
	resp := RestructureRequestResponse{
		ID:               r.ID,
		AccountID:        r.AccountID,
		Type:             string(r.Type),
		ExtensionPeriods: r.ExtensionPeriods,
		Status:           string(r.Status),
		Reason:           r.Reason,
		RequestedAt:      r.RequestedAt.Format(time.RFC3339),
	}
	if r.NewRate != nil {
		v := r.NewRate.String()
		resp.NewRate = &v
	}
	if r.HaircutAmount != nil {
		v := r.HaircutAmount.StringFixed(2)
		resp.HaircutAmount = &v
	}
	if r.NewInstallment != nil {
		v := r.NewInstallment.StringFixed(2)
		resp.NewInstallment = &v
	}
	if r.DecidedAt != nil {
		v := r.DecidedAt.Format(time.RFC3339)
		resp.DecidedAt = &v
	}
	if r.AppliedAt != nil {
		v := r.AppliedAt.Format(time.RFC3339)
		resp.AppliedAt = &v
	}
	return resp
}
