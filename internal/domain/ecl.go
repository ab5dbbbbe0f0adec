package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ECLConfig holds the probability-of-default and loss-given-default
// parameters used for provisioning. Stage 3 PD is always 100%.
type ECLConfig struct {
	PDStage1     decimal.Decimal `json:"pdStage1"`
	PDStage2     decimal.Decimal `json:"pdStage2"`
	LGDSecured   decimal.Decimal `json:"lgdSecured"`
	LGDUnsecured decimal.Decimal `json:"lgdUnsecured"`
}

// DefaultECLConfig returns conservative baseline parameters
func DefaultECLConfig() ECLConfig {
	return ECLConfig{
		PDStage1:     decimal.RequireFromString("0.02"),
		PDStage2:     decimal.RequireFromString("0.15"),
		LGDSecured:   decimal.RequireFromString("0.35"),
		LGDUnsecured: decimal.RequireFromString("0.65"),
	}
}

// LGDFor picks the loss-given-default for an account's security status
func (c ECLConfig) LGDFor(secured bool) decimal.Decimal {
	if secured {
		return c.LGDSecured
	}
	return c.LGDUnsecured
}

// ECLStaging records an account's impairment stage as of a reporting date
type ECLStaging struct {
	ID            int64     `json:"id"`
	AccountID     int64     `json:"accountId"`
	AsOf          time.Time `json:"asOf"`
	Stage         int       `json:"stage"`
	PreviousStage int       `json:"previousStage"`
	Reason        string    `json:"reason"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ECLProvision is the expected credit loss computed for one account.
// Provision is the closing requirement; Opening carries the prior period in
// and Charge/Release record the movement between the two.
type ECLProvision struct {
	ID        int64           `json:"id"`
	AccountID int64           `json:"accountId"`
	AsOf      time.Time       `json:"asOf"`
	Stage     int             `json:"stage"`
	EAD       decimal.Decimal `json:"ead"`
	PD        decimal.Decimal `json:"pd"`
	LGD       decimal.Decimal `json:"lgd"`
	Opening   decimal.Decimal `json:"opening"`
	Charge    decimal.Decimal `json:"charge"`
	Release   decimal.Decimal `json:"release"`
	Provision decimal.Decimal `json:"provision"`
	CreatedAt time.Time       `json:"createdAt"`
}

// ECLPortfolioSummary aggregates provisions by stage for one reporting date
type ECLPortfolioSummary struct {
	Stage     int             `json:"stage"`
	Accounts  int             `json:"accounts"`
	EAD       decimal.Decimal `json:"ead"`
	Provision decimal.Decimal `json:"provision"`
}

// ECLRepository persists staging decisions and provisions
type ECLRepository interface {
	CreateStaging(ctx context.Context, staging *ECLStaging) (*ECLStaging, error)
	GetLatestStaging(ctx context.Context, accountID int64) (*ECLStaging, error)
	CreateProvision(ctx context.Context, provision *ECLProvision) (*ECLProvision, error)
	GetLatestProvision(ctx context.Context, accountID int64) (*ECLProvision, error)
	PortfolioSummaryOn(ctx context.Context, asOf time.Time) ([]*ECLPortfolioSummary, error)
}
