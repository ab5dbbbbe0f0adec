package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/anvayfin/lms-backend/internal/domain"
	"github.com/anvayfin/lms-backend/internal/fincore"
	"github.com/anvayfin/lms-backend/internal/service"
	"github.com/anvayfin/lms-backend/internal/testutil"
)

func newAccountHandler(accountRepo *testutil.MockLoanAccountRepository, scheduleRepo *testutil.MockScheduleRepository) *AccountHandler {
	txManager := &testutil.MockTxManager{}
	calendar := fincore.NewCalendar(nil)
	scheduleService := service.NewScheduleService(accountRepo, scheduleRepo, txManager, calendar, fincore.BusinessDayNone)
	accountService := service.NewAccountService(accountRepo, scheduleRepo, scheduleService, txManager, fincore.DayCountACT365)
	return NewAccountHandler(accountService, scheduleService)
}

func TestCreateAccount_Success(t *testing.T) {
	e := echo.New()
	accountRepo := testutil.NewMockLoanAccountRepository()
	scheduleRepo := testutil.NewMockScheduleRepository()
	handler := newAccountHandler(accountRepo, scheduleRepo)

	reqBody := `{
		"accountNumber": "LN-1001",
		"productCode": "PL-STD",
		"borrowerRef": "CUST-42",
		"principal": "120000.00",
		"interestRate": "12.5",
		"frequency": "monthly",
		"tenurePeriods": 12,
		"disbursementDate": "2026-01-15"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler.CreateAccount(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", rec.Code)
	}

	var response AccountResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.AccountNumber != "LN-1001" {
		t.Errorf("Expected account number 'LN-1001', got %s", response.AccountNumber)
	}
	if response.ScheduleType != "emi" {
		t.Errorf("Expected default schedule type 'emi', got %s", response.ScheduleType)
	}
	if response.Status != "active" {
		t.Errorf("Expected status 'active', got %s", response.Status)
	}
	if response.OutstandingPrincipal != "120000.00" {
		t.Errorf("Expected outstanding principal '120000.00', got %s", response.OutstandingPrincipal)
	}

	rows, _ := scheduleRepo.GetByAccount(c.Request().Context(), response.ID)
	if len(rows) != 12 {
		t.Errorf("Expected 12 schedule rows persisted, got %d", len(rows))
	}
}

func TestCreateAccount_InvalidPrincipal(t *testing.T) {
	e := echo.New()
	handler := newAccountHandler(testutil.NewMockLoanAccountRepository(), testutil.NewMockScheduleRepository())

	reqBody := `{
		"accountNumber": "LN-1002",
		"principal": "not-a-number",
		"interestRate": "10",
		"frequency": "monthly",
		"tenurePeriods": 6,
		"disbursementDate": "2026-01-15"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.CreateAccount(c); err != nil {
		t.Fatalf("Expected validation response, got error %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}

	var problem ProblemDetails
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("Failed to unmarshal problem details: %v", err)
	}
	if len(problem.Errors) != 1 || problem.Errors[0].Field != "principal" {
		t.Errorf("Expected a principal field error, got %+v", problem.Errors)
	}
}

func TestGetAccount_Success(t *testing.T) {
	e := echo.New()
	accountRepo := testutil.NewMockLoanAccountRepository()
	handler := newAccountHandler(accountRepo, testutil.NewMockScheduleRepository())

	accountRepo.AddAccount(&domain.LoanAccount{
		ID:                   7,
		AccountNumber:        "LN-7",
		Principal:            decimal.NewFromInt(50000),
		InterestRate:         decimal.NewFromInt(11),
		RateType:             domain.RateFixed,
		ScheduleType:         fincore.ScheduleEMI,
		Frequency:            fincore.FrequencyMonthly,
		TenurePeriods:        24,
		DayCount:             fincore.DayCountACT365,
		Status:               domain.AccountActive,
		OutstandingPrincipal: decimal.NewFromInt(50000),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/7", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("7")

	if err := handler.GetAccount(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var response AccountResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.ID != 7 || response.AccountNumber != "LN-7" {
		t.Errorf("Unexpected account in response: %+v", response)
	}
}

func TestGetAccount_InvalidID(t *testing.T) {
	e := echo.New()
	handler := newAccountHandler(testutil.NewMockLoanAccountRepository(), testutil.NewMockScheduleRepository())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/abc", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("abc")

	if err := handler.GetAccount(c); err != nil {
		t.Fatalf("Expected written validation response, got error %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestPreviewSchedule_BulletTotals(t *testing.T) {
	e := echo.New()
	handler := newAccountHandler(testutil.NewMockLoanAccountRepository(), testutil.NewMockScheduleRepository())

	reqBody := `{
		"principal": "100000.00",
		"interestRate": "12",
		"scheduleType": "bullet",
		"frequency": "monthly",
		"tenurePeriods": 6,
		"startDate": "2026-02-01"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedules/preview", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.PreviewSchedule(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var rows []PreviewScheduleRow
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("Expected 6 rows, got %d", len(rows))
	}
	for _, row := range rows[:5] {
		if row.PrincipalDue != "0.00" {
			t.Errorf("Period %d: expected no principal before maturity, got %s", row.Period, row.PrincipalDue)
		}
	}
	if rows[5].PrincipalDue != "100000.00" {
		t.Errorf("Expected full principal at maturity, got %s", rows[5].PrincipalDue)
	}
}
