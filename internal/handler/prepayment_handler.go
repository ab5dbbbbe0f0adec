package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anvayfin/lms-backend/internal/domain"
	"github.com/anvayfin/lms-backend/internal/service"
)

// PrepaymentHandler handles prepayment and foreclosure HTTP requests
type PrepaymentHandler struct {
	prepaymentService *service.PrepaymentService
}

// NewPrepaymentHandler creates a new PrepaymentHandler
func NewPrepaymentHandler(prepaymentService *service.PrepaymentService) *PrepaymentHandler {
	return &PrepaymentHandler{prepaymentService: prepaymentService}
}

// PrepaymentImpactRequest asks what a prepayment would do
type PrepaymentImpactRequest struct {
	Amount string `json:"amount"`
}

// PrepaymentImpactResponse previews both prepayment modes
type PrepaymentImpactResponse struct {
	CurrentEMI     string `json:"currentEmi"`
	ReducedEMI     string `json:"reducedEmi"`
	CurrentTenure  int    `json:"currentTenure"`
	ReducedTenure  int    `json:"reducedTenure"`
	InterestSaved  string `json:"interestSaved"`
	PayoffAmount   string `json:"payoffAmount"`
	Penalty        string `json:"penalty"`
	RemainingAfter string `json:"remainingAfter"`
}

// Impact handles POST /api/v1/accounts/:id/prepayments/impact
func (h *PrepaymentHandler) Impact(c echo.Context) error {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req PrepaymentImpactRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		return NewValidationError(c, "Invalid amount", []ValidationError{
			{Field: "amount", Message: "Must be a valid decimal number"},
		})
	}

	impact, err := h.prepaymentService.Impact(c.Request().Context(), accountID, amount)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, PrepaymentImpactResponse{
		CurrentEMI:     impact.CurrentEMI.StringFixed(2),
		ReducedEMI:     impact.ReducedEMI.StringFixed(2),
		CurrentTenure:  impact.CurrentTenure,
		ReducedTenure:  impact.ReducedTenure,
		InterestSaved:  impact.InterestSaved.StringFixed(2),
		PayoffAmount:   impact.PayoffAmount.StringFixed(2),
		Penalty:        impact.Penalty.StringFixed(2),
		RemainingAfter: impact.RemainingAfter.StringFixed(2),
	})
}

// ApplyPrepaymentRequest represents a prepayment to execute
type ApplyPrepaymentRequest struct {
	Amount       string `json:"amount"`
	Mode         string `json:"mode"`
	ValueDate    string `json:"valueDate"`
	WaivePenalty bool   `json:"waivePenalty,omitempty"`
}

// PrepaymentEventResponse represents an applied prepayment
type PrepaymentEventResponse struct {
	ID        int64  `json:"id"`
	AccountID int64  `json:"accountId"`
	Mode      string `json:"mode"`
	Amount    string `json:"amount"`
	Penalty   string `json:"penalty"`
	OldEMI    string `json:"oldEmi"`
	NewEMI    string `json:"newEmi"`
	OldTenure int    `json:"oldTenure"`
	NewTenure int    `json:"newTenure"`
	ValueDate string `json:"valueDate"`
}

// Apply handles POST /api/v1/accounts/:id/prepayments
func (h *PrepaymentHandler) Apply(c echo.Context) error {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req ApplyPrepaymentRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		return NewValidationError(c, "Invalid amount", []ValidationError{
			{Field: "amount", Message: "Must be a valid decimal number"},
		})
	}
	valueDate, ok := parseDate(req.ValueDate)
	if !ok {
		return NewValidationError(c, "Invalid value date", []ValidationError{
			{Field: "valueDate", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	event, err := h.prepaymentService.Apply(c.Request().Context(), service.ApplyPrepaymentInput{
		AccountID:    accountID,
		Amount:       amount,
		Mode:         domain.PrepaymentMode(req.Mode),
		ValueDate:    valueDate,
		WaivePenalty: req.WaivePenalty,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, PrepaymentEventResponse{
		ID:        event.ID,
		AccountID: event.AccountID,
		Mode:      string(event.Mode),
		Amount:    event.Amount.StringFixed(2),
		Penalty:   event.Penalty.StringFixed(2),
		OldEMI:    event.OldEMI.StringFixed(2),
		NewEMI:    event.NewEMI.StringFixed(2),
		OldTenure: event.OldTenure,
		NewTenure: event.NewTenure,
		ValueDate: formatDate(event.ValueDate),
	})
}
