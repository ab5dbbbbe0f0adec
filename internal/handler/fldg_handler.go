package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anvayfin/lms-backend/internal/domain"
	"github.com/anvayfin/lms-backend/internal/service"
)

// FLDGHandler handles default guarantee HTTP requests
type FLDGHandler struct {
	fldgService *service.FLDGService
}

// NewFLDGHandler creates a new FLDGHandler
func NewFLDGHandler(fldgService *service.FLDGService) *FLDGHandler {
	return &FLDGHandler{fldgService: fldgService}
}

// CreateFLDGRequest represents the guarantee pool registration body
type CreateFLDGRequest struct {
	ProgramCode        string  `json:"programCode"`
	PartnerCode        string  `json:"partnerCode"`
	Structure          string  `json:"structure"`
	CoverPercent       string  `json:"coverPercent"`
	AbsoluteCap        *string `json:"absoluteCap,omitempty"`
	PortfolioAmount    string  `json:"portfolioAmount"`
	FirstLossThreshold *string `json:"firstLossThreshold,omitempty"`
	TriggerDPD         int     `json:"triggerDpd"`
}

// FLDGArrangementResponse represents a guarantee pool in API responses
type FLDGArrangementResponse struct {
	ID                 int64  `json:"id"`
	ProgramCode        string `json:"programCode"`
	PartnerCode        string `json:"partnerCode"`
	Structure          string `json:"structure"`
	CoverPercent       string `json:"coverPercent"`
	AbsoluteCap        string `json:"absoluteCap"`
	PortfolioAmount    string `json:"portfolioAmount"`
	FirstLossThreshold string `json:"firstLossThreshold"`
	TriggerDPD         int    `json:"triggerDpd"`
	Utilized           string `json:"utilized"`
	Recovered          string `json:"recovered"`
	EffectiveLimit     string `json:"effectiveLimit"`
	Balance            string `json:"balance"`
}

// CreateArrangement handles POST /api/v1/fldg
func (h *FLDGHandler) CreateArrangement(c echo.Context) error {
	var req CreateFLDGRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	coverPercent, ok := parseAmount(req.CoverPercent)
	if !ok {
		return NewValidationError(c, "Invalid cover percent", []ValidationError{
			{Field: "coverPercent", Message: "Must be a valid decimal number"},
		})
	}
	portfolio, ok := parseAmount(req.PortfolioAmount)
	if !ok {
		return NewValidationError(c, "Invalid portfolio amount", []ValidationError{
			{Field: "portfolioAmount", Message: "Must be a valid decimal number"},
		})
	}
	absoluteCap, ok := parseOptionalAmount(req.AbsoluteCap)
	if !ok {
		return NewValidationError(c, "Invalid absolute cap", []ValidationError{
			{Field: "absoluteCap", Message: "Must be a valid decimal number"},
		})
	}
	firstLoss, ok := parseOptionalAmount(req.FirstLossThreshold)
	if !ok {
		return NewValidationError(c, "Invalid first loss threshold", []ValidationError{
			{Field: "firstLossThreshold", Message: "Must be a valid decimal number"},
		})
	}

	arr := &domain.FLDGArrangement{
		ProgramCode:     req.ProgramCode,
		PartnerCode:     req.PartnerCode,
		Structure:       domain.FLDGStructure(req.Structure),
		CoverPercent:    coverPercent,
		PortfolioAmount: portfolio,
		TriggerDPD:      req.TriggerDPD,
	}
	if absoluteCap != nil {
		arr.AbsoluteCap = *absoluteCap
	}
	if firstLoss != nil {
		arr.FirstLossThreshold = *firstLoss
	}

	created, err := h.fldgService.CreateArrangement(c.Request().Context(), arr)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toFLDGResponse(created))
}

// GetArrangement handles GET /api/v1/fldg/:id
func (h *FLDGHandler) GetArrangement(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	arr, err := h.fldgService.GetArrangement(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toFLDGResponse(arr))
}

// FLDGClaimRequest represents a claim against the pool
type FLDGClaimRequest struct {
	ProgramCode string `json:"programCode"`
	AccountID   int64  `json:"accountId"`
	ClaimDate   string `json:"claimDate"`
	Reason      string `json:"reason"`
	Amount      string `json:"amount"`
}

// FLDGUtilizationResponse represents one honored claim
type FLDGUtilizationResponse struct {
	ID            int64  `json:"id"`
	ArrangementID int64  `json:"arrangementId"`
	AccountID     int64  `json:"accountId"`
	ClaimDate     string `json:"claimDate"`
	Reason        string `json:"reason"`
	Claimed       string `json:"claimed"`
	Honored       string `json:"honored"`
}

// Claim handles POST /api/v1/fldg/claims
func (h *FLDGHandler) Claim(c echo.Context) error {
	var req FLDGClaimRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	claimDate, ok := parseDate(req.ClaimDate)
	if !ok {
		return NewValidationError(c, "Invalid claim date", []ValidationError{
			{Field: "claimDate", Message: "Must be in YYYY-MM-DD format"},
		})
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		return NewValidationError(c, "Invalid amount", []ValidationError{
			{Field: "amount", Message: "Must be a valid decimal number"},
		})
	}

	utilization, err := h.fldgService.Claim(c.Request().Context(), service.ClaimInput{
		ProgramCode: req.ProgramCode,
		AccountID:   req.AccountID,
		ClaimDate:   claimDate,
		Reason:      domain.FLDGClaimReason(req.Reason),
		Amount:      amount,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toUtilizationResponse(utilization))
}

// FLDGRecoveryRequest represents a recovery routed through the pool
type FLDGRecoveryRequest struct {
	ProgramCode  string `json:"programCode"`
	AccountID    int64  `json:"accountId"`
	RecoveryDate string `json:"recoveryDate"`
	Amount       string `json:"amount"`
}

// FLDGRecoveryResponse represents a pool recovery
type FLDGRecoveryResponse struct {
	ID            int64  `json:"id"`
	ArrangementID int64  `json:"arrangementId"`
	AccountID     int64  `json:"accountId"`
	RecoveryDate  string `json:"recoveryDate"`
	Amount        string `json:"amount"`
	Replenished   string `json:"replenished"`
	ToLender      string `json:"toLender"`
}

// Recovery handles POST /api/v1/fldg/recoveries
func (h *FLDGHandler) Recovery(c echo.Context) error {
	var req FLDGRecoveryRequest
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

	recovery, err := h.fldgService.Recovery(c.Request().Context(), service.FLDGRecoveryInput{
		ProgramCode:  req.ProgramCode,
		AccountID:    req.AccountID,
		RecoveryDate: recoveryDate,
		Amount:       amount,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, FLDGRecoveryResponse{
		ID:            recovery.ID,
		ArrangementID: recovery.ArrangementID,
		AccountID:     recovery.AccountID,
		RecoveryDate:  formatDate(recovery.RecoveryDate),
		Amount:        recovery.Amount.StringFixed(2),
		Replenished:   recovery.Replenished.StringFixed(2),
		ToLender:      recovery.ToLender.StringFixed(2),
	})
}

// Utilizations handles GET /api/v1/fldg/:id/utilizations
func (h *FLDGHandler) Utilizations(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	utilizations, err := h.fldgService.Utilizations(c.Request().Context(), id)
	if err != nil {
		return err
	}

	response := make([]FLDGUtilizationResponse, len(utilizations))
	for i, u := range utilizations {
		response[i] = toUtilizationResponse(u)
	}
	return c.JSON(http.StatusOK, response)
}

// Recoveries handles GET /api/v1/fldg/:id/recoveries
func (h *FLDGHandler) Recoveries(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	recoveries, err := h.fldgService.Recoveries(c.Request().Context(), id)
	if err != nil {
		return err
	}

	response := make([]FLDGRecoveryResponse, len(recoveries))
	for i, r := range recoveries {
		response[i] = FLDGRecoveryResponse{
			ID:            r.ID,
			ArrangementID: r.ArrangementID,
			AccountID:     r.AccountID,
			RecoveryDate:  formatDate(r.RecoveryDate),
			Amount:        r.Amount.StringFixed(2),
			Replenished:   r.Replenished.StringFixed(2),
			ToLender:      r.ToLender.StringFixed(2),
		}
	}
	return c.JSON(http.StatusOK, response)
}

func toFLDGResponse(a *domain.FLDGArrangement) FLDGArrangementResponse {
	return FLDGArrangementResponse{
		ID:                 a.ID,
		ProgramCode:        a.ProgramCode,
		PartnerCode:        a.PartnerCode,
		Structure:          string(a.Structure),
		CoverPercent:       a.CoverPercent.String(),
		AbsoluteCap:        a.AbsoluteCap.StringFixed(2),
		PortfolioAmount:    a.PortfolioAmount.StringFixed(2),
		FirstLossThreshold: a.FirstLossThreshold.StringFixed(2),
		TriggerDPD:         a.TriggerDPD,
		Utilized:           a.Utilized.StringFixed(2),
		Recovered:          a.Recovered.StringFixed(2),
		EffectiveLimit:     a.EffectiveLimit().StringFixed(2),
		Balance:            a.Balance().StringFixed(2),
	}
}

func toUtilizationResponse(u *domain.FLDGUtilization) FLDGUtilizationResponse {
	return FLDGUtilizationResponse{
		ID:            u.ID,
		ArrangementID: u.ArrangementID,
		AccountID:     u.AccountID,
		ClaimDate:     formatDate(u.ClaimDate),
		Reason:        string(u.Reason),
		Claimed:       u.Claimed.StringFixed(2),
		Honored:       u.Honored.StringFixed(2),
	}
}
