package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/anvayfin/lms-backend/internal/domain"
	"github.com/anvayfin/lms-backend/internal/service"
)

// ColendingHandler handles co-lending participation HTTP requests
type ColendingHandler struct {
	colendingService *service.ColendingService
}

// NewColendingHandler creates a new ColendingHandler
func NewColendingHandler(colendingService *service.ColendingService) *ColendingHandler {
	return &ColendingHandler{colendingService: colendingService}
}

// ParticipationBody represents one partner's share in the register request
type ParticipationBody struct {
	PartnerCode  string  `json:"partnerCode"`
	Role         string  `json:"role"`
	SharePercent string  `json:"sharePercent"`
	LenderYield  *string `json:"lenderYield,omitempty"`
}

// ServicerArrangementBody represents the servicing fee terms
type ServicerArrangementBody struct {
	FeeRatePct string `json:"feeRatePct"`
	FeeBase    string `json:"feeBase"`
}

// RegisterParticipationsRequest represents the register request body
type RegisterParticipationsRequest struct {
	Participations []ParticipationBody      `json:"participations"`
	Servicer       *ServicerArrangementBody `json:"servicer,omitempty"`
}

// ParticipationResponse represents one registered participation
type ParticipationResponse struct {
	ID           int64   `json:"id"`
	AccountID    int64   `json:"accountId"`
	PartnerCode  string  `json:"partnerCode"`
	Role         string  `json:"role"`
	SharePercent string  `json:"sharePercent"`
	LenderYield  *string `json:"lenderYield,omitempty"`
}

// Register handles POST /api/v1/accounts/:id/participations
func (h *ColendingHandler) Register(c echo.Context) error {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req RegisterParticipationsRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	parts := make([]*domain.LoanParticipation, len(req.Participations))
	for i, p := range req.Participations {
		share, ok := parseAmount(p.SharePercent)
		if !ok {
			return NewValidationError(c, "Invalid share percent", []ValidationError{
				{Field: "sharePercent", Message: "Must be a valid decimal number"},
			})
		}
		yield, ok := parseOptionalAmount(p.LenderYield)
		if !ok {
			return NewValidationError(c, "Invalid lender yield", []ValidationError{
				{Field: "lenderYield", Message: "Must be a valid decimal number"},
			})
		}
		parts[i] = &domain.LoanParticipation{
			PartnerCode:  p.PartnerCode,
			Role:         domain.ParticipantRole(p.Role),
			SharePercent: share,
			LenderYield:  yield,
		}
	}

	var servicer *domain.ServicerArrangement
	if req.Servicer != nil {
		feeRate, ok := parseAmount(req.Servicer.FeeRatePct)
		if !ok {
			return NewValidationError(c, "Invalid servicer fee rate", []ValidationError{
				{Field: "feeRatePct", Message: "Must be a valid decimal number"},
			})
		}
		servicer = &domain.ServicerArrangement{
			FeeRatePct: feeRate,
			FeeBase:    domain.ServicerFeeBase(req.Servicer.FeeBase),
		}
	}

	if err := h.colendingService.Register(c.Request().Context(), accountID, parts, servicer); err != nil {
		return err
	}

	response := make([]ParticipationResponse, len(parts))
	for i, p := range parts {
		response[i] = toParticipationResponse(p)
	}
	return c.JSON(http.StatusCreated, response)
}

// Participations handles GET /api/v1/accounts/:id/participations
func (h *ColendingHandler) Participations(c echo.Context) error {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	parts, err := h.colendingService.Participations(c.Request().Context(), accountID)
	if err != nil {
		return err
	}

	response := make([]ParticipationResponse, len(parts))
	for i, p := range parts {
		response[i] = toParticipationResponse(p)
	}
	return c.JSON(http.StatusOK, response)
}

// SplitCollectionRequest represents a collection to divide across partners
type SplitCollectionRequest struct {
	ValueDate string `json:"valueDate"`
	Principal string `json:"principal"`
	Interest  string `json:"interest"`
	Fees      string `json:"fees"`
}

// CollectionSplitResponse represents one partner's cut
type CollectionSplitResponse struct {
	PartnerCode string `json:"partnerCode"`
	Role        string `json:"role"`
	Principal   string `json:"principal"`
	Interest    string `json:"interest"`
	Fees        string `json:"fees"`
}

// SplitCollection handles POST /api/v1/accounts/:id/collections/split
func (h *ColendingHandler) SplitCollection(c echo.Context) error {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req SplitCollectionRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	valueDate, ok := parseDate(req.ValueDate)
	if !ok {
		return NewValidationError(c, "Invalid value date", []ValidationError{
			{Field: "valueDate", Message: "Must be in YYYY-MM-DD format"},
		})
	}
	principal, ok := parseAmount(req.Principal)
	if !ok {
		return NewValidationError(c, "Invalid principal", []ValidationError{
			{Field: "principal", Message: "Must be a valid decimal number"},
		})
	}
	interest, ok := parseAmount(req.Interest)
	if !ok {
		return NewValidationError(c, "Invalid interest", []ValidationError{
			{Field: "interest", Message: "Must be a valid decimal number"},
		})
	}
	fees, ok := parseAmount(req.Fees)
	if !ok {
		return NewValidationError(c, "Invalid fees", []ValidationError{
			{Field: "fees", Message: "Must be a valid decimal number"},
		})
	}

	splits, err := h.colendingService.SplitCollection(c.Request().Context(), accountID, valueDate, principal, interest, fees)
	if err != nil {
		return err
	}

	response := make([]CollectionSplitResponse, len(splits))
	for i, s := range splits {
		response[i] = CollectionSplitResponse{
			PartnerCode: s.PartnerCode,
			Role:        string(s.Role),
			Principal:   s.Principal.StringFixed(2),
			Interest:    s.Interest.StringFixed(2),
			Fees:        s.Fees.StringFixed(2),
		}
	}
	return c.JSON(http.StatusOK, response)
}

// ServicerFeeRequest accrues the servicing fee through a date
type ServicerFeeRequest struct {
	AsOf string `json:"asOf"`
}

// ServicerFeeResponse reports the accrued fee
type ServicerFeeResponse struct {
	Fee string `json:"fee"`
}

// AccrueServicerFee handles POST /api/v1/accounts/:id/servicer-fee/accrue
func (h *ColendingHandler) AccrueServicerFee(c echo.Context) error {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req ServicerFeeRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	asOf, ok := parseDate(req.AsOf)
	if !ok {
		return NewValidationError(c, "Invalid as-of date", []ValidationError{
			{Field: "asOf", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	fee, err := h.colendingService.AccrueServicerFee(c.Request().Context(), accountID, asOf)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ServicerFeeResponse{Fee: fee.StringFixed(2)})
}

// ExcessSpreadRequest computes the spread on collected interest
type ExcessSpreadRequest struct {
	ValueDate         string `json:"valueDate"`
	InterestCollected string `json:"interestCollected"`
}

// ExcessSpreadResponse reports the posted spread
type ExcessSpreadResponse struct {
	Spread string `json:"spread"`
}

// ExcessSpread handles POST /api/v1/accounts/:id/excess-spread
func (h *ColendingHandler) ExcessSpread(c echo.Context) error {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req ExcessSpreadRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	valueDate, ok := parseDate(req.ValueDate)
	if !ok {
		return NewValidationError(c, "Invalid value date", []ValidationError{
			{Field: "valueDate", Message: "Must be in YYYY-MM-DD format"},
		})
	}
	interest, ok := parseAmount(req.InterestCollected)
	if !ok {
		return NewValidationError(c, "Invalid interest collected", []ValidationError{
			{Field: "interestCollected", Message: "Must be a valid decimal number"},
		})
	}

	spread, err := h.colendingService.ExcessSpread(c.Request().Context(), accountID, valueDate, interest)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ExcessSpreadResponse{Spread: spread.StringFixed(2)})
}

// LedgerEntryResponse represents one partner ledger posting
type LedgerEntryResponse struct {
	ID          int64  `json:"id"`
	AccountID   int64  `json:"accountId"`
	PartnerCode string `json:"partnerCode"`
	EntryDate   string `json:"entryDate"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Balance     string `json:"balance"`
	CreatedAt   string `json:"createdAt"`
}

// Ledger handles GET /api/v1/accounts/:id/ledger/:partner
func (h *ColendingHandler) Ledger(c echo.Context) error {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	partnerCode := c.Param("partner")
	if partnerCode == "" {
		return NewValidationError(c, "Partner code is required", nil)
	}

	entries, err := h.colendingService.Ledger(c.Request().Context(), accountID, partnerCode)
	if err != nil {
		return err
	}

	response := make([]LedgerEntryResponse, len(entries))
	for i, e := range entries {
		response[i] = LedgerEntryResponse{
			ID:          e.ID,
			AccountID:   e.AccountID,
			PartnerCode: e.PartnerCode,
			EntryDate:   formatDate(e.EntryDate),
			Type:        string(e.Type),
			Amount:      e.Amount.StringFixed(2),
			Balance:     e.Balance.StringFixed(2),
			CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		}
	}
	return c.JSON(http.StatusOK, response)
}

func toParticipationResponse(p *domain.LoanParticipation) ParticipationResponse {
	resp := ParticipationResponse{
		ID:           p.ID,
		AccountID:    p.AccountID,
		PartnerCode:  p.PartnerCode,
		Role:         string(p.Role),
		SharePercent: p.SharePercent.String(),
	}
	if p.LenderYield != nil {
		v := p.LenderYield.String()
		resp.LenderYield = &v
	}
	return resp
}
