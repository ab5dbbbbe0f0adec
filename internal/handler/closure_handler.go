package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/anvayfin/lms-backend/internal/domain"
	"github.com/anvayfin/lms-backend/internal/service"
)

// ClosureHandler handles closure, write-off and recovery HTTP requests
type ClosureHandler struct {
	closureService *service.ClosureService
}

// NewClosureHandler creates a new ClosureHandler
func NewClosureHandler(closureService *service.ClosureService) *ClosureHandler {
	return &ClosureHandler{closureService: closureService}
}

// CloseAccountRequest represents a normal or settlement closure
type CloseAccountRequest struct {
	Type        string  `json:"type"`
	ClosureDate string  `json:"closureDate"`
	AmountPaid  string  `json:"amountPaid"`
	WaiveAmount *string `json:"waiveAmount,omitempty"`
}

// ClosureEventResponse represents a closure in API responses
type ClosureEventResponse struct {
	ID           int64  `json:"id"`
	AccountID    int64  `json:"accountId"`
	Type         string `json:"type"`
	ClosureDate  string `json:"closureDate"`
	AmountPaid   string `json:"amountPaid"`
	WaivedAmount string `json:"waivedAmount"`
}

// Close handles POST /api/v1/accounts/:id/close
func (h *ClosureHandler) Close(c echo.Context) error {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req CloseAccountRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	closureDate, ok := parseDate(req.ClosureDate)
	if !ok {
		return NewValidationError(c, "Invalid closure date", []ValidationError{
			{Field: "closureDate", Message: "Must be in YYYY-MM-DD format"},
		})
	}
	amountPaid, ok := parseAmount(req.AmountPaid)
	if !ok {
		return NewValidationError(c, "Invalid amount paid", []ValidationError{
			{Field: "amountPaid", Message: "Must be a valid decimal number"},
		})
	}
	waive, ok := parseOptionalAmount(req.WaiveAmount)
	if !ok {
		return NewValidationError(c, "Invalid waive amount", []ValidationError{
			{Field: "waiveAmount", Message: "Must be a valid decimal number"},
		})
	}

	input := service.CloseInput{
		AccountID:   accountID,
		Type:        domain.ClosureType(req.Type),
		ClosureDate: closureDate,
		AmountPaid:  amountPaid,
		WaiveAmount: decimal.Zero,
	}
	if waive != nil {
		input.WaiveAmount = *waive
	}

	event, err := h.closureService.Close(c.Request().Context(), input)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ClosureEventResponse{
		ID:           event.ID,
		AccountID:    event.AccountID,
		Type:         string(event.Type),
		ClosureDate:  formatDate(event.ClosureDate),
		AmountPaid:   event.AmountPaid.StringFixed(2),
		WaivedAmount: event.WaivedAmount.StringFixed(2),
	})
}

// WriteOffRequest represents a full or partial write-off
type WriteOffRequest struct {
	WriteOffDate    string  `json:"writeOffDate"`
	Partial         bool    `json:"partial,omitempty"`
	PrincipalAmount *string `json:"principalAmount,omitempty"`
	Reason          string  `json:"reason,omitempty"`
	FLDGProgramCode string  `json:"fldgProgramCode,omitempty"`
}

// WriteOffResponse represents a write-off in API responses
type WriteOffResponse struct {
	ID              int64  `json:"id"`
	AccountID       int64  `json:"accountId"`
	WriteOffDate    string `json:"writeOffDate"`
	PrincipalAmount string `json:"principalAmount"`
	InterestAmount  string `json:"interestAmount"`
	FeesAmount      string `json:"feesAmount"`
	Total           string `json:"total"`
	Partial         bool   `json:"partial"`
	DPDAtWriteOff   int    `json:"dpdAtWriteOff"`
	NPACategory     string `json:"npaCategory,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

// WriteOff handles POST /api/v1/accounts/:id/write-off
func (h *ClosureHandler) WriteOff(c echo.Context) error {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req WriteOffRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	writeOffDate, ok := parseDate(req.WriteOffDate)
	if !ok {
		return NewValidationError(c, "Invalid write-off date", []ValidationError{
			{Field: "writeOffDate", Message: "Must be in YYYY-MM-DD format"},
		})
	}
	principal, ok := parseOptionalAmount(req.PrincipalAmount)
	if !ok {
		return NewValidationError(c, "Invalid principal amount", []ValidationError{
			{Field: "principalAmount", Message: "Must be a valid decimal number"},
		})
	}

	input := service.WriteOffInput{
		AccountID:       accountID,
		WriteOffDate:    writeOffDate,
		Partial:         req.Partial,
		Reason:          req.Reason,
		FLDGProgramCode: req.FLDGProgramCode,
	}
	if principal != nil {
		input.PrincipalAmount = *principal
	}

	writeOff, err := h.closureService.WriteOff(c.Request().Context(), input)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, WriteOffResponse{
		ID:              writeOff.ID,
		AccountID:       writeOff.AccountID,
		WriteOffDate:    formatDate(writeOff.WriteOffDate),
		PrincipalAmount: writeOff.PrincipalAmount.StringFixed(2),
		InterestAmount:  writeOff.InterestAmount.StringFixed(2),
		FeesAmount:      writeOff.FeesAmount.StringFixed(2),
		Total:           writeOff.Total().StringFixed(2),
		Partial:         writeOff.Partial,
		DPDAtWriteOff:   writeOff.DPDAtWriteOff,
		NPACategory:     writeOff.NPACategory,
		Reason:          writeOff.Reason,
	})
}

// RecoveryRequest represents cash recovered after a write-off
type RecoveryRequest struct {
	RecoveryDate        string  `json:"recoveryDate"`
	Amount              string  `json:"amount"`
	AgencyCommissionPct *string `json:"agencyCommissionPct,omitempty"`
	FLDGProgramCode     string  `json:"fldgProgramCode,omitempty"`
}

// RecoveryResponse represents a write-off recovery in API responses
type RecoveryResponse struct {
	ID               int64  `json:"id"`
	WriteOffID       int64  `json:"writeOffId"`
	AccountID        int64  `json:"accountId"`
	RecoveryDate     string `json:"recoveryDate"`
	Amount           string `json:"amount"`
	AgencyCommission string `json:"agencyCommission"`
	Net              string `json:"net"`
}

// RecordRecovery handles POST /api/v1/accounts/:id/recoveries
func (h *ClosureHandler) RecordRecovery(c echo.Context) error {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req RecoveryRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	recoveryDate, ok := parseDate(req.RecoveryDate)
	if !ok {
		return NewValidationError(c, "Invalid recovery date", []ValidationError{
			{Field: "recoveryDate", Message: "Must be in YYYY-MM-DD format"},
		})
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		return NewValidationError(c, "Invalid amount", []ValidationError{
			{Field: "amount", Message: "Must be a valid decimal number"},
		})
	}
	commission, ok := parseOptionalAmount(req.AgencyCommissionPct)
	if !ok {
		return NewValidationError(c, "Invalid agency commission", []ValidationError{
			{Field: "agencyCommissionPct", Message: "Must be a valid decimal number"},
		})
	}

	input := service.RecoveryInput{
		AccountID:       accountID,
		RecoveryDate:    recoveryDate,
		Amount:          amount,
		FLDGProgramCode: req.FLDGProgramCode,
	}
	if commission != nil {
		input.AgencyCommissionPct = *commission
	}

	recovery, err := h.closureService.RecordRecovery(c.Request().Context(), input)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, RecoveryResponse{
		ID:               recovery.ID,
		WriteOffID:       recovery.WriteOffID,
		AccountID:        recovery.AccountID,
		RecoveryDate:     formatDate(recovery.RecoveryDate),
		Amount:           recovery.Amount.StringFixed(2),
		AgencyCommission: recovery.AgencyCommission.StringFixed(2),
		Net:              recovery.Net.StringFixed(2),
	})
}
