package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/anvayfin/lms-backend/internal/domain"
	"github.com/anvayfin/lms-backend/internal/fincore"
	"github.com/anvayfin/lms-backend/internal/service"
)

// AccountHandler handles loan account HTTP requests
type AccountHandler struct {
	accountService  *service.AccountService
	scheduleService *service.ScheduleService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accountService *service.AccountService, scheduleService *service.ScheduleService) *AccountHandler {
	return &AccountHandler{
		accountService:  accountService,
		scheduleService: scheduleService,
	}
}

// CreateAccountRequest represents the booking request body. Monetary amounts
// and rates travel as strings.
type CreateAccountRequest struct {
	AccountNumber    string  `json:"accountNumber"`
	ProductCode      string  `json:"productCode"`
	BorrowerRef      string  `json:"borrowerRef"`
	Principal        string  `json:"principal"`
	InterestRate     string  `json:"interestRate"`
	RateType         string  `json:"rateType,omitempty"`
	BenchmarkCode    *string `json:"benchmarkCode,omitempty"`
	Spread           *string `json:"spread,omitempty"`
	RateFloor        *string `json:"rateFloor,omitempty"`
	RateCap          *string `json:"rateCap,omitempty"`
	ScheduleType     string  `json:"scheduleType,omitempty"`
	Frequency        string  `json:"frequency"`
	TenurePeriods    int     `json:"tenurePeriods"`
	DayCount         string  `json:"dayCount,omitempty"`
	Secured          bool    `json:"secured"`
	DisbursementDate string  `json:"disbursementDate"`

	BalloonFraction     *string `json:"balloonFraction,omitempty"`
	StepPercent         *string `json:"stepPercent,omitempty"`
	StepEveryPeriods    int     `json:"stepEveryPeriods,omitempty"`
	MoratoriumPeriods   int     `json:"moratoriumPeriods,omitempty"`
	MoratoriumTreatment string  `json:"moratoriumTreatment,omitempty"`
}

// AccountResponse represents a loan account in API responses
type AccountResponse struct {
	ID               int64   `json:"id"`
	AccountNumber    string  `json:"accountNumber"`
	ProductCode      string  `json:"productCode"`
	BorrowerRef      string  `json:"borrowerRef"`
	Principal        string  `json:"principal"`
	InterestRate     string  `json:"interestRate"`
	RateType         string  `json:"rateType"`
	BenchmarkCode    *string `json:"benchmarkCode,omitempty"`
	Spread           string  `json:"spread"`
	RateFloor        *string `json:"rateFloor,omitempty"`
	RateCap          *string `json:"rateCap,omitempty"`
	ScheduleType     string  `json:"scheduleType"`
	Frequency        string  `json:"frequency"`
	TenurePeriods    int     `json:"tenurePeriods"`
	DayCount         string  `json:"dayCount"`
	Secured          bool    `json:"secured"`
	DisbursementDate string  `json:"disbursementDate"`

	Status               string `json:"status"`
	OutstandingPrincipal string `json:"outstandingPrincipal"`
	OutstandingInterest  string `json:"outstandingInterest"`
	OutstandingFees      string `json:"outstandingFees"`

	DPD          int    `json:"dpd"`
	Bucket       string `json:"bucket"`
	NPA          bool   `json:"npa"`
	NPACategory  string `json:"npaCategory,omitempty"`
	Restructured bool   `json:"restructured"`

	ClosureType *string `json:"closureType,omitempty"`
	ClosedAt    *string `json:"closedAt,omitempty"`

	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// ScheduleRowResponse represents one installment in API responses
type ScheduleRowResponse struct {
	Period         int    `json:"period"`
	DueDate        string `json:"dueDate"`
	OpeningBalance string `json:"openingBalance"`
	PrincipalDue   string `json:"principalDue"`
	InterestDue    string `json:"interestDue"`
	FeeDue         string `json:"feeDue"`
	TotalDue       string `json:"totalDue"`
	ClosingBalance string `json:"closingBalance"`
	PrincipalPaid  string `json:"principalPaid"`
	InterestPaid   string `json:"interestPaid"`
	FeesPaid       string `json:"feesPaid"`
	Status         string `json:"status"`
	PaidAt         *string `json:"paidAt,omitempty"`
}

// CreateAccount handles POST /api/v1/accounts
func (h *AccountHandler) CreateAccount(c echo.Context) error {
	var req CreateAccountRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	principal, ok := parseAmount(req.Principal)
	if !ok {
		return NewValidationError(c, "Invalid principal", []ValidationError{
			{Field: "principal", Message: "Must be a valid decimal number"},
		})
	}
	rate, ok := parseAmount(req.InterestRate)
	if !ok {
		return NewValidationError(c, "Invalid interest rate", []ValidationError{
			{Field: "interestRate", Message: "Must be a valid decimal number"},
		})
	}
	disbursement, ok := parseDate(req.DisbursementDate)
	if !ok {
		return NewValidationError(c, "Invalid disbursement date", []ValidationError{
			{Field: "disbursementDate", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	spread, ok := parseOptionalAmount(req.Spread)
	if !ok {
		return NewValidationError(c, "Invalid spread", []ValidationError{
			{Field: "spread", Message: "Must be a valid decimal number"},
		})
	}
	floor, ok := parseOptionalAmount(req.RateFloor)
	if !ok {
		return NewValidationError(c, "Invalid rate floor", []ValidationError{
			{Field: "rateFloor", Message: "Must be a valid decimal number"},
		})
	}
	rateCap, ok := parseOptionalAmount(req.RateCap)
	if !ok {
		return NewValidationError(c, "Invalid rate cap", []ValidationError{
			{Field: "rateCap", Message: "Must be a valid decimal number"},
		})
	}
	balloon, ok := parseOptionalAmount(req.BalloonFraction)
	if !ok {
		return NewValidationError(c, "Invalid balloon fraction", []ValidationError{
			{Field: "balloonFraction", Message: "Must be a valid decimal number"},
		})
	}
	step, ok := parseOptionalAmount(req.StepPercent)
	if !ok {
		return NewValidationError(c, "Invalid step percent", []ValidationError{
			{Field: "stepPercent", Message: "Must be a valid decimal number"},
		})
	}

	input := service.CreateAccountInput{
		AccountNumber:       req.AccountNumber,
		ProductCode:         req.ProductCode,
		BorrowerRef:         req.BorrowerRef,
		Principal:           principal,
		InterestRate:        rate,
		RateType:            domain.RateType(req.RateType),
		BenchmarkCode:       req.BenchmarkCode,
		RateFloor:           floor,
		RateCap:             rateCap,
		ScheduleType:        fincore.ScheduleType(req.ScheduleType),
		Frequency:           fincore.Frequency(req.Frequency),
		TenurePeriods:       req.TenurePeriods,
		DayCount:            fincore.DayCount(req.DayCount),
		Secured:             req.Secured,
		DisbursementDate:    disbursement,
		StepEveryPeriods:    req.StepEveryPeriods,
		MoratoriumPeriods:   req.MoratoriumPeriods,
		MoratoriumTreatment: fincore.MoratoriumTreatment(req.MoratoriumTreatment),
	}
	if spread != nil {
		input.Spread = *spread
	}
	if balloon != nil {
		input.BalloonFraction = *balloon
	}
	if step != nil {
		input.StepPercent = *step
	}

	account, err := h.accountService.CreateAccount(c.Request().Context(), input)
	if err != nil {
		return err
	}

	log.Info().
		Int64("account_id", account.ID).
		Str("account_number", account.AccountNumber).
		Str("principal", account.Principal.String()).
		Msg("Loan account booked")

	return c.JSON(http.StatusCreated, toAccountResponse(account))
}

// GetAccount handles GET /api/v1/accounts/:id
func (h *AccountHandler) GetAccount(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	account, err := h.accountService.GetAccount(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// GetAccountByNumber handles GET /api/v1/accounts/by-number/:number
func (h *AccountHandler) GetAccountByNumber(c echo.Context) error {
	number := c.Param("number")
	if number == "" {
		return NewValidationError(c, "Account number is required", nil)
	}

	account, err := h.accountService.GetAccountByNumber(c.Request().Context(), number)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// GetSchedule handles GET /api/v1/accounts/:id/schedule
func (h *AccountHandler) GetSchedule(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	rows, err := h.scheduleService.GetSchedule(c.Request().Context(), id)
	if err != nil {
		return err
	}

	response := make([]ScheduleRowResponse, len(rows))
	for i, row := range rows {
		response[i] = toScheduleRowResponse(row)
	}
	return c.JSON(http.StatusOK, response)
}

// PersistSchedule handles POST /api/v1/accounts/:id/schedule
func (h *AccountHandler) PersistSchedule(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	rows, err := h.scheduleService.PersistForAccount(c.Request().Context(), id)
	if err != nil {
		return err
	}

	log.Info().Int64("account_id", id).Int("rows", len(rows)).Msg("Schedule persisted")

	response := make([]ScheduleRowResponse, len(rows))
	for i, row := range rows {
		response[i] = toScheduleRowResponse(row)
	}
	return c.JSON(http.StatusCreated, response)
}

// RegenerateSchedule handles POST /api/v1/accounts/:id/schedule/regenerate
func (h *AccountHandler) RegenerateSchedule(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	rows, err := h.scheduleService.RegenerateForAccount(c.Request().Context(), id)
	if err != nil {
		return err
	}

	log.Info().Int64("account_id", id).Int("rows", len(rows)).Msg("Schedule regenerated")

	response := make([]ScheduleRowResponse, len(rows))
	for i, row := range rows {
		response[i] = toScheduleRowResponse(row)
	}
	return c.JSON(http.StatusOK, response)
}

// PreviewScheduleRequest represents the schedule preview request body
type PreviewScheduleRequest struct {
	ScheduleType        string  `json:"scheduleType"`
	Principal           string  `json:"principal"`
	InterestRate        string  `json:"interestRate"`
	TenurePeriods       int     `json:"tenurePeriods"`
	Frequency           string  `json:"frequency"`
	StartDate           string  `json:"startDate"`
	BalloonFraction     *string `json:"balloonFraction,omitempty"`
	StepPercent         *string `json:"stepPercent,omitempty"`
	StepEveryPeriods    int     `json:"stepEveryPeriods,omitempty"`
	MoratoriumPeriods   int     `json:"moratoriumPeriods,omitempty"`
	MoratoriumTreatment string  `json:"moratoriumTreatment,omitempty"`
}

// PreviewScheduleRow represents one previewed installment
type PreviewScheduleRow struct {
	Period         int    `json:"period"`
	DueDate        string `json:"dueDate"`
	OpeningBalance string `json:"openingBalance"`
	PrincipalDue   string `json:"principalDue"`
	InterestDue    string `json:"interestDue"`
	TotalDue       string `json:"totalDue"`
	ClosingBalance string `json:"closingBalance"`
}

// PreviewSchedule handles POST /api/v1/schedules/preview
func (h *AccountHandler) PreviewSchedule(c echo.Context) error {
	var req PreviewScheduleRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	principal, ok := parseAmount(req.Principal)
	if !ok {
		return NewValidationError(c, "Invalid principal", []ValidationError{
			{Field: "principal", Message: "Must be a valid decimal number"},
		})
	}
	rate, ok := parseAmount(req.InterestRate)
	if !ok {
		return NewValidationError(c, "Invalid interest rate", []ValidationError{
			{Field: "interestRate", Message: "Must be a valid decimal number"},
		})
	}
	start, ok := parseDate(req.StartDate)
	if !ok {
		return NewValidationError(c, "Invalid start date", []ValidationError{
			{Field: "startDate", Message: "Must be in YYYY-MM-DD format"},
		})
	}
	balloon, ok := parseOptionalAmount(req.BalloonFraction)
	if !ok {
		return NewValidationError(c, "Invalid balloon fraction", []ValidationError{
			{Field: "balloonFraction", Message: "Must be a valid decimal number"},
		})
	}
	step, ok := parseOptionalAmount(req.StepPercent)
	if !ok {
		return NewValidationError(c, "Invalid step percent", []ValidationError{
			{Field: "stepPercent", Message: "Must be a valid decimal number"},
		})
	}

	terms := service.ScheduleTerms{
		Type:                fincore.ScheduleType(req.ScheduleType),
		Principal:           principal,
		AnnualRatePct:       rate,
		Periods:             req.TenurePeriods,
		Frequency:           fincore.Frequency(req.Frequency),
		StartDate:           start,
		StepEveryPeriods:    req.StepEveryPeriods,
		MoratoriumPeriods:   req.MoratoriumPeriods,
		MoratoriumTreatment: fincore.MoratoriumTreatment(req.MoratoriumTreatment),
	}
	if balloon != nil {
		terms.BalloonFraction = *balloon
	}
	if step != nil {
		terms.StepPercent = *step
	}

	rows, err := h.scheduleService.Generate(terms)
	if err != nil {
		return err
	}

	response := make([]PreviewScheduleRow, len(rows))
	for i, row := range rows {
		response[i] = PreviewScheduleRow{
			Period:         row.Period,
			DueDate:        formatDate(row.DueDate),
			OpeningBalance: row.OpeningBalance.StringFixed(2),
			PrincipalDue:   row.PrincipalDue.StringFixed(2),
			InterestDue:    row.InterestDue.StringFixed(2),
			TotalDue:       row.TotalDue.StringFixed(2),
			ClosingBalance: row.ClosingBalance.StringFixed(2),
		}
	}
	return c.JSON(http.StatusOK, response)
}

func toAccountResponse(a *domain.LoanAccount) AccountResponse {
	resp := AccountResponse{
		ID:                   a.ID,
		AccountNumber:        a.AccountNumber,
		ProductCode:          a.ProductCode,
		BorrowerRef:          a.BorrowerRef,
		Principal:            a.Principal.StringFixed(2),
		InterestRate:         a.InterestRate.String(),
		RateType:             string(a.RateType),
		BenchmarkCode:        a.BenchmarkCode,
		Spread:               a.Spread.String(),
		ScheduleType:         string(a.ScheduleType),
		Frequency:            string(a.Frequency),
		TenurePeriods:        a.TenurePeriods,
		DayCount:             string(a.DayCount),
		Secured:              a.Secured,
		DisbursementDate:     formatDate(a.DisbursementDate),
		Status:               string(a.Status),
		OutstandingPrincipal: a.OutstandingPrincipal.StringFixed(2),
		OutstandingInterest:  a.OutstandingInterest.StringFixed(2),
		OutstandingFees:      a.OutstandingFees.StringFixed(2),
		DPD:                  a.DPD,
		Bucket:               a.Bucket,
		NPACategory:          a.NPACategory,
		NPA:                  a.NPA,
		Restructured:         a.Restructured,
		CreatedAt:            a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:            a.UpdatedAt.Format(time.RFC3339),
	}
	if a.RateFloor != nil {
		floor := a.RateFloor.String()
		resp.RateFloor = &floor
	}
	if a.RateCap != nil {
		capStr := a.RateCap.String()
		resp.RateCap = &capStr
	}
	if a.ClosureType != nil {
		closure := string(*a.ClosureType)
		resp.ClosureType = &closure
	}
	if a.ClosedAt != nil {
		closedAt := a.ClosedAt.Format(time.RFC3339)
		resp.ClosedAt = &closedAt
	}
	return resp
}

func toScheduleRowResponse(row *domain.ScheduleRow) ScheduleRowResponse {
	resp := ScheduleRowResponse{
		Period:         row.Period,
		DueDate:        formatDate(row.DueDate),
		OpeningBalance: row.OpeningBalance.StringFixed(2),
		PrincipalDue:   row.PrincipalDue.StringFixed(2),
		InterestDue:    row.InterestDue.StringFixed(2),
		FeeDue:         row.FeeDue.StringFixed(2),
		TotalDue:       row.TotalDue.StringFixed(2),
		ClosingBalance: row.ClosingBalance.StringFixed(2),
		PrincipalPaid:  row.PrincipalPaid.StringFixed(2),
		InterestPaid:   row.InterestPaid.StringFixed(2),
		FeesPaid:       row.FeesPaid.StringFixed(2),
		Status:         string(row.Status),
	}
	if row.PaidAt != nil {
		paidAt := row.PaidAt.Format(time.RFC3339)
		resp.PaidAt = &paidAt
	}
	return resp
}
