package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/anvayfin/lms-backend/internal/domain"
	"github.com/anvayfin/lms-backend/internal/service"
)

// PaymentHandler handles payment HTTP requests
type PaymentHandler struct {
	paymentService *service.PaymentService
	paymentRepo    domain.PaymentRepository
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *service.PaymentService, paymentRepo domain.PaymentRepository) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		paymentRepo:    paymentRepo,
	}
}

// ApplyPaymentRequest represents the payment request body
type ApplyPaymentRequest struct {
	AccountID   int64  `json:"accountId"`
	ExternalRef string `json:"externalRef,omitempty"`
	Amount      string `json:"amount"`
	Channel     string `json:"channel,omitempty"`
	ValueDate   string `json:"valueDate"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID          int64                       `json:"id"`
	AccountID   int64                       `json:"accountId"`
	ExternalRef string                      `json:"externalRef"`
	Amount      string                      `json:"amount"`
	Channel     string                      `json:"channel"`
	ValueDate   string                      `json:"valueDate"`
	Unallocated string                      `json:"unallocated"`
	ReceivedAt  string                      `json:"receivedAt"`
	Replayed    bool                        `json:"replayed,omitempty"`
	Allocations []PaymentAllocationResponse `json:"allocations,omitempty"`
}

// PaymentAllocationResponse represents one allocation line
type PaymentAllocationResponse struct {
	Period    int    `json:"period"`
	Component string `json:"component"`
	Amount    string `json:"amount"`
}

// ApplyPayment handles POST /api/v1/payments
func (h *PaymentHandler) ApplyPayment(c echo.Context) error {
	var req ApplyPaymentRequest
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

	result, err := h.paymentService.ApplyPayment(c.Request().Context(), service.ApplyPaymentInput{
		AccountID:   req.AccountID,
		ExternalRef: req.ExternalRef,
		Amount:      amount,
		Channel:     req.Channel,
		ValueDate:   valueDate,
	})
	if err != nil {
		return err
	}

	resp := toPaymentResponse(result.Payment)
	resp.Replayed = result.Replayed
	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	return c.JSON(status, resp)
}

// GetPayment handles GET /api/v1/payments/:id
func (h *PaymentHandler) GetPayment(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	payment, err := h.paymentRepo.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPaymentResponse(payment))
}

// ListPayments handles GET /api/v1/accounts/:id/payments
func (h *PaymentHandler) ListPayments(c echo.Context) error {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	payments, err := h.paymentRepo.ListByAccount(c.Request().Context(), accountID)
	if err != nil {
		return err
	}

	response := make([]PaymentResponse, len(payments))
	for i, p := range payments {
		response[i] = toPaymentResponse(p)
	}
	return c.JSON(http.StatusOK, response)
}

func toPaymentResponse(p *domain.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:          p.ID,
		AccountID:   p.AccountID,
		ExternalRef: p.ExternalRef,
		Amount:      p.Amount.StringFixed(2),
		Channel:     p.Channel,
		ValueDate:   formatDate(p.ValueDate),
		Unallocated: p.Unallocated.StringFixed(2),
		ReceivedAt:  p.ReceivedAt.Format(time.RFC3339),
	}
	for _, a := range p.Allocations {
		resp.Allocations = append(resp.Allocations, PaymentAllocationResponse{
			Period:    a.Period,
			Component: string(a.Component),
			Amount:    a.Amount.StringFixed(2),
		})
	}
	return resp
}
