package fincore

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ScheduleType identifies a repayment structure
type ScheduleType string

const (
	ScheduleEMI          ScheduleType = "emi"
	ScheduleInterestOnly ScheduleType = "interest_only"
	ScheduleBullet       ScheduleType = "bullet"
	ScheduleStepUp       ScheduleType = "step_up"
	ScheduleStepDown     ScheduleType = "step_down"
	ScheduleBalloon      ScheduleType = "balloon"
	ScheduleMoratorium   ScheduleType = "moratorium"
)

// MoratoriumTreatment controls how interest during a moratorium is handled
type MoratoriumTreatment string

const (
	MoratoriumCapitalize       MoratoriumTreatment = "capitalize"
	MoratoriumAccrueAndCollect MoratoriumTreatment = "accrue_and_collect"
	MoratoriumWaive            MoratoriumTreatment = "waive"
)

var ErrInvalidSchedule = errors.New("invalid schedule input")

// ScheduleSpec describes the terms a repayment schedule is generated from
type ScheduleSpec struct {
	Type          ScheduleType
	Principal     decimal.Decimal
	AnnualRatePct decimal.Decimal
	Periods       int
	Frequency     Frequency
	StartDate     time.Time

	// Balloon only: fraction of principal deferred to the final installment
	BalloonFraction decimal.Decimal

	// Step-up/step-down only
	StepPercent      decimal.Decimal
	StepEveryPeriods int

	// Moratorium only
	MoratoriumPeriods   int
	MoratoriumTreatment MoratoriumTreatment

	// Optional due date adjustment
	Calendar        *Calendar
	BusinessDayMode BusinessDayMode
}

// Installment is one generated schedule row
type Installment struct {
	Period         int
	DueDate        time.Time
	OpeningBalance decimal.Decimal
	PrincipalDue   decimal.Decimal
	InterestDue    decimal.Decimal
	TotalDue       decimal.Decimal
	ClosingBalance decimal.Decimal
}

// GenerateSchedule produces the full repayment schedule for the given terms.
// Principal components always sum to the principal exactly; the final row
// absorbs rounding residue.
func GenerateSchedule(spec ScheduleSpec) ([]Installment, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}

	var rows []Installment
	var err error
	switch spec.Type {
	case ScheduleEMI:
		rows, err = generateEMI(spec)
	case ScheduleInterestOnly:
		rows, err = generateInterestOnly(spec)
	case ScheduleBullet:
		rows, err = generateBullet(spec)
	case ScheduleStepUp, ScheduleStepDown:
		rows, err = generateStep(spec)
	case ScheduleBalloon:
		rows, err = generateBalloon(spec)
	case ScheduleMoratorium:
		rows, err = generateMoratorium(spec)
	default:
		return nil, fmt.Errorf("%w: unsupported schedule type %q", ErrInvalidSchedule, spec.Type)
	}
	if err != nil {
		return nil, err
	}

	if spec.Calendar != nil && spec.BusinessDayMode != BusinessDayNone {
		for i := range rows {
			rows[i].DueDate = spec.Calendar.Adjust(rows[i].DueDate, spec.BusinessDayMode)
		}
	}
	return rows, nil
}

func (s ScheduleSpec) validate() error {
	if s.Principal.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: %v", ErrInvalidSchedule, ErrInvalidPrincipal)
	}
	if s.Periods < 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSchedule, ErrInvalidTenure)
	}
	if s.AnnualRatePct.IsNegative() {
		return fmt.Errorf("%w: %v", ErrInvalidSchedule, ErrInvalidRate)
	}
	if s.Frequency.PeriodsPerYear() == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidSchedule, ErrUnknownFrequency)
	}
	if s.StartDate.IsZero() {
		return fmt.Errorf("%w: start date is required", ErrInvalidSchedule)
	}
	switch s.Type {
	case ScheduleBalloon:
		if s.BalloonFraction.LessThanOrEqual(decimal.Zero) || s.BalloonFraction.GreaterThanOrEqual(one) {
			return fmt.Errorf("%w: balloon fraction must be between 0 and 1 exclusive", ErrInvalidSchedule)
		}
	case ScheduleStepUp, ScheduleStepDown:
		if s.StepPercent.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: step percent must be positive", ErrInvalidSchedule)
		}
		if s.StepEveryPeriods < 1 {
			return fmt.Errorf("%w: step interval must be at least one period", ErrInvalidSchedule)
		}
	case ScheduleMoratorium:
		if s.MoratoriumPeriods < 1 || s.MoratoriumPeriods >= s.Periods {
			return fmt.Errorf("%w: moratorium must be shorter than the tenure", ErrInvalidSchedule)
		}
		switch s.MoratoriumTreatment {
		case MoratoriumCapitalize, MoratoriumAccrueAndCollect, MoratoriumWaive:
		default:
			return fmt.Errorf("%w: unknown moratorium treatment %q", ErrInvalidSchedule, s.MoratoriumTreatment)
		}
	}
	return nil
}

func (s ScheduleSpec) dueDate(period int) time.Time {
	return s.Frequency.AddPeriods(s.StartDate, period)
}

func (s ScheduleSpec) periodicRate() decimal.Decimal {
	return PeriodicRate(s.AnnualRatePct, s.Frequency.PeriodsPerYear())
}

func generateEMI(spec ScheduleSpec) ([]Installment, error) {
	emi, err := EMI(spec.Principal, spec.AnnualRatePct, spec.Periods, spec.Frequency.PeriodsPerYear())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	return amortize(spec, spec.Principal, 1, spec.Periods, func(period int, balance decimal.Decimal) decimal.Decimal {
		return emi
	}), nil
}

// amortize builds rows from firstPeriod through lastPeriod, taking the
// installment amount for each period from totalFor. Interest is the periodic
// rate on the opening balance; the final row absorbs the rounding residue.
func amortize(spec ScheduleSpec, balance decimal.Decimal, firstPeriod, lastPeriod int, totalFor func(period int, balance decimal.Decimal) decimal.Decimal) []Installment {
	r := spec.periodicRate()
	rows := make([]Installment, 0, lastPeriod-firstPeriod+1)

	for p := firstPeriod; p <= lastPeriod; p++ {
		interest := RoundMoney(balance.Mul(r))
		var principal decimal.Decimal
		if p == lastPeriod {
			principal = balance
		} else {
			principal = totalFor(p, balance).Sub(interest)
			if principal.GreaterThan(balance) {
				principal = balance
			}
		}
		closing := balance.Sub(principal)
		rows = append(rows, Installment{
			Period:         p,
			DueDate:        spec.dueDate(p),
			OpeningBalance: balance,
			PrincipalDue:   principal,
			InterestDue:    interest,
			TotalDue:       RoundMoney(principal.Add(interest)),
			ClosingBalance: closing,
		})
		balance = closing
		if balance.IsZero() && p < lastPeriod {
			// Balance exhausted early; emit zero rows to keep period numbering
			for q := p + 1; q <= lastPeriod; q++ {
				rows = append(rows, Installment{
					Period:  q,
					DueDate: spec.dueDate(q),
				})
			}
			break
		}
	}
	return rows
}

func generateInterestOnly(spec ScheduleSpec) ([]Installment, error) {
	r := spec.periodicRate()
	interest := RoundMoney(spec.Principal.Mul(r))
	rows := make([]Installment, 0, spec.Periods)

	for p := 1; p <= spec.Periods; p++ {
		row := Installment{
			Period:         p,
			DueDate:        spec.dueDate(p),
			OpeningBalance: spec.Principal,
			InterestDue:    interest,
			TotalDue:       interest,
			ClosingBalance: spec.Principal,
		}
		if p == spec.Periods {
			row.PrincipalDue = spec.Principal
			row.TotalDue = RoundMoney(spec.Principal.Add(interest))
			row.ClosingBalance = decimal.Zero
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// generateBullet defers everything to maturity: interim rows carry no dues
// and the final row collects the principal plus interest for every period.
func generateBullet(spec ScheduleSpec) ([]Installment, error) {
	r := spec.periodicRate()
	perPeriodInterest := RoundMoney(spec.Principal.Mul(r))
	totalInterest := perPeriodInterest.Mul(decimal.NewFromInt(int64(spec.Periods)))
	rows := make([]Installment, 0, spec.Periods)

	for p := 1; p < spec.Periods; p++ {
		rows = append(rows, Installment{
			Period:         p,
			DueDate:        spec.dueDate(p),
			OpeningBalance: spec.Principal,
			ClosingBalance: spec.Principal,
		})
	}
	rows = append(rows, Installment{
		Period:         spec.Periods,
		DueDate:        spec.dueDate(spec.Periods),
		OpeningBalance: spec.Principal,
		PrincipalDue:   spec.Principal,
		InterestDue:    totalInterest,
		TotalDue:       RoundMoney(spec.Principal.Add(totalInterest)),
		ClosingBalance: decimal.Zero,
	})
	return rows, nil
}

// generateStep recomputes the level installment from the remaining balance at
// every step boundary and scales it by the cumulative step multiplier.
func generateStep(spec ScheduleSpec) ([]Installment, error) {
	step := spec.StepPercent.Div(hundred)
	if spec.Type == ScheduleStepDown {
		step = step.Neg()
	}

	ppy := spec.Frequency.PeriodsPerYear()
	multiplier := one
	var emi decimal.Decimal
	balance := spec.Principal

	totalFor := func(period int, bal decimal.Decimal) decimal.Decimal {
		if (period-1)%spec.StepEveryPeriods == 0 {
			if period > 1 {
				multiplier = multiplier.Add(multiplier.Mul(step))
			}
			remaining := spec.Periods - period + 1
			base, err := EMI(bal, spec.AnnualRatePct, remaining, ppy)
			if err != nil {
				base = RoundMoney(bal.Div(decimal.NewFromInt(int64(remaining))))
			}
			emi = RoundMoney(base.Mul(multiplier))
		}
		return emi
	}
	return amortize(spec, balance, 1, spec.Periods, totalFor), nil
}

// generateBalloon amortizes the non-balloon portion with a level installment
// while charging interest on the full outstanding balance; the balloon
// principal is collected with the final installment.
func generateBalloon(spec ScheduleSpec) ([]Installment, error) {
	balloon := RoundMoney(spec.Principal.Mul(spec.BalloonFraction))
	amortPart := spec.Principal.Sub(balloon)
	r := spec.periodicRate()

	emi, err := EMI(amortPart, spec.AnnualRatePct, spec.Periods, spec.Frequency.PeriodsPerYear())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}

	rows := make([]Installment, 0, spec.Periods)
	balance := spec.Principal
	amortBalance := amortPart

	for p := 1; p <= spec.Periods; p++ {
		interest := RoundMoney(balance.Mul(r))
		var principal decimal.Decimal
		if p == spec.Periods {
			principal = balance
		} else {
			amortInterest := RoundMoney(amortBalance.Mul(r))
			principal = emi.Sub(amortInterest)
			if principal.GreaterThan(amortBalance) {
				principal = amortBalance
			}
		}
		closing := balance.Sub(principal)
		rows = append(rows, Installment{
			Period:         p,
			DueDate:        spec.dueDate(p),
			OpeningBalance: balance,
			PrincipalDue:   principal,
			InterestDue:    interest,
			TotalDue:       RoundMoney(principal.Add(interest)),
			ClosingBalance: closing,
		})
		balance = closing
		amortBalance = amortBalance.Sub(principal)
	}
	return rows, nil
}

// GenerateFixedInstallment amortizes a balance with a caller-chosen level
// installment, deriving the tenure from the installment itself. Used when a
// schedule is rebuilt around a negotiated installment amount.
func GenerateFixedInstallment(principal, annualRatePct, installment decimal.Decimal, freq Frequency, startDate time.Time) ([]Installment, error) {
	if principal.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, ErrInvalidPrincipal)
	}
	if installment.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: installment must be positive", ErrInvalidSchedule)
	}

	r := PeriodicRate(annualRatePct, freq.PeriodsPerYear())
	periods, err := RemainingTenure(principal, installment, r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}

	spec := ScheduleSpec{
		Type:          ScheduleEMI,
		Principal:     principal,
		AnnualRatePct: annualRatePct,
		Periods:       periods,
		Frequency:     freq,
		StartDate:     startDate,
	}
	return amortize(spec, principal, 1, periods, func(period int, balance decimal.Decimal) decimal.Decimal {
		return installment
	}), nil
}

// generateMoratorium emits zero-due rows for the moratorium periods and then
// amortizes the remaining tenure. Capitalized interest grows the balance;
// accrued interest is collected with the first post-moratorium installment.
func generateMoratorium(spec ScheduleSpec) ([]Installment, error) {
	r := spec.periodicRate()
	balance := spec.Principal
	carried := decimal.Zero
	rows := make([]Installment, 0, spec.Periods)

	for p := 1; p <= spec.MoratoriumPeriods; p++ {
		switch spec.MoratoriumTreatment {
		case MoratoriumCapitalize:
			balance = RoundMoney(balance.Add(balance.Mul(r)))
		case MoratoriumAccrueAndCollect:
			carried = carried.Add(RoundMoney(balance.Mul(r)))
		}
		rows = append(rows, Installment{
			Period:         p,
			DueDate:        spec.dueDate(p),
			OpeningBalance: balance,
			ClosingBalance: balance,
		})
	}

	remaining := spec.Periods - spec.MoratoriumPeriods
	emi, err := EMI(balance, spec.AnnualRatePct, remaining, spec.Frequency.PeriodsPerYear())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	tail := amortize(spec, balance, spec.MoratoriumPeriods+1, spec.Periods, func(period int, bal decimal.Decimal) decimal.Decimal {
		return emi
	})
	if !carried.IsZero() && len(tail) > 0 {
		tail[0].InterestDue = tail[0].InterestDue.Add(carried)
		tail[0].TotalDue = RoundMoney(tail[0].PrincipalDue.Add(tail[0].InterestDue))
	}
	return append(rows, tail...), nil
}
