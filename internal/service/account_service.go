package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/anvayfin/lms-backend/internal/domain"
	"github.com/anvayfin/lms-backend/internal/fincore"
)

// AccountService handles loan account booking and lookup
type AccountService struct {
	accountRepo     domain.LoanAccountRepository
	scheduleRepo    domain.ScheduleRepository
	scheduleService *ScheduleService
	txManager       domain.TxManager
	defaultDayCount fincore.DayCount
}

// NewAccountService creates a new AccountService
func NewAccountService(accountRepo domain.LoanAccountRepository, scheduleRepo domain.ScheduleRepository, scheduleService *ScheduleService, txManager domain.TxManager, defaultDayCount fincore.DayCount) *AccountService {
	return &AccountService{
		accountRepo:     accountRepo,
		scheduleRepo:    scheduleRepo,
		scheduleService: scheduleService,
		txManager:       txManager,
		defaultDayCount: defaultDayCount,
	}
}

// CreateAccountInput contains input for booking a loan account
type CreateAccountInput struct {
	AccountNumber    string
	ProductCode      string
	BorrowerRef      string
	Principal        decimal.Decimal
	InterestRate     decimal.Decimal
	RateType         domain.RateType
	BenchmarkCode    *string
	Spread           decimal.Decimal
	RateFloor        *decimal.Decimal
	RateCap          *decimal.Decimal
	ScheduleType     fincore.ScheduleType
	Frequency        fincore.Frequency
	TenurePeriods    int
	DayCount         fincore.DayCount
	Secured          bool
	DisbursementDate time.Time

	BalloonFraction     decimal.Decimal
	StepPercent         decimal.Decimal
	StepEveryPeriods    int
	MoratoriumPeriods   int
	MoratoriumTreatment fincore.MoratoriumTreatment
}

// CreateAccount books a new loan account and persists its schedule in one
// transaction
func (s *AccountService) CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.LoanAccount, error) {
	account := &domain.LoanAccount{
		AccountNumber:        input.AccountNumber,
		ProductCode:          input.ProductCode,
		BorrowerRef:          input.BorrowerRef,
		Principal:            input.Principal,
		InterestRate:         input.InterestRate,
		RateType:             input.RateType,
		BenchmarkCode:        input.BenchmarkCode,
		Spread:               input.Spread,
		RateFloor:            input.RateFloor,
		RateCap:              input.RateCap,
		ScheduleType:         input.ScheduleType,
		Frequency:            input.Frequency,
		TenurePeriods:        input.TenurePeriods,
		DayCount:             input.DayCount,
		Secured:              input.Secured,
		DisbursementDate:     input.DisbursementDate,
		Status:               domain.AccountActive,
		OutstandingPrincipal: input.Principal,
		OutstandingInterest:  decimal.Zero,
		OutstandingFees:      decimal.Zero,
		Bucket:               domain.BucketCurrent,
	}
	if account.RateType == "" {
		account.RateType = domain.RateFixed
	}
	if account.DayCount == "" {
		account.DayCount = s.defaultDayCount
	}
	if account.ScheduleType == "" {
		account.ScheduleType = fincore.ScheduleEMI
	}
	if err := account.Validate(); err != nil {
		return nil, err
	}

	terms := TermsFromAccount(account)
	terms.BalloonFraction = input.BalloonFraction
	terms.StepPercent = input.StepPercent
	terms.StepEveryPeriods = input.StepEveryPeriods
	terms.MoratoriumPeriods = input.MoratoriumPeriods
	terms.MoratoriumTreatment = input.MoratoriumTreatment

	rows, err := s.scheduleService.Generate(terms)
	if err != nil {
		return nil, err
	}

	err = s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		created, err := s.accountRepo.Create(ctx, account)
		if err != nil {
			return err
		}
		account = created
		return s.scheduleRepo.ReplaceForAccount(ctx, account.ID, toScheduleRows(account.ID, rows))
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// GetAccount retrieves an account by ID
func (s *AccountService) GetAccount(ctx context.Context, id int64) (*domain.LoanAccount, error) {
	return s.accountRepo.GetByID(ctx, id)
}

// GetAccountByNumber retrieves an account by its account number
func (s *AccountService) GetAccountByNumber(ctx context.Context, number string) (*domain.LoanAccount, error) {
	return s.accountRepo.GetByAccountNumber(ctx, number)
}
