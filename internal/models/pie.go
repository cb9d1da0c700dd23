package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Pie represents a named sub-portfolio grouping a subset of positions, with
// its own performance attribution relative to the overall portfolio.
type Pie struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Positions   []Position `json:"positions"`

	TotalValue     decimal.Decimal `json:"total_value"`
	InvestedAmount decimal.Decimal `json:"invested_amount"`
	CashBalance    decimal.Decimal `json:"cash_balance"`
	TotalReturn    decimal.Decimal `json:"total_return"`
	TotalReturnPct decimal.Decimal `json:"total_return_pct"`

	// PortfolioWeight is this pie's share of the overall portfolio, 0-100.
	PortfolioWeight decimal.Decimal `json:"portfolio_weight"`

	AnnualizedReturn      *decimal.Decimal `json:"annualized_return,omitempty"`
	TimeWeightedReturn    *decimal.Decimal `json:"time_weighted_return,omitempty"`
	PortfolioContribution *decimal.Decimal `json:"portfolio_contribution,omitempty"`

	RiskMetrics *RiskMetrics `json:"risk_metrics,omitempty"`

	// TargetAllocation is the desired share of the overall portfolio, 0-100.
	TargetAllocation *decimal.Decimal `json:"target_allocation,omitempty"`

	CreatedAt    time.Time `json:"created_at"`
	RebalancedAt time.Time `json:"rebalanced_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Validate checks the pie invariants.
func (p *Pie) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("pie: id is required")
	}

	if p.Name == "" {
		return fmt.Errorf("pie %s: name is required", p.ID)
	}

	hundred := decimal.NewFromInt(100)
	if p.PortfolioWeight.LessThan(decimal.Zero) || p.PortfolioWeight.GreaterThan(hundred) {
		return fmt.Errorf("pie %s: portfolio weight must be between 0 and 100", p.ID)
	}

	if p.TargetAllocation != nil &&
		(p.TargetAllocation.LessThan(decimal.Zero) || p.TargetAllocation.GreaterThan(hundred)) {
		return fmt.Errorf("pie %s: target allocation must be between 0 and 100", p.ID)
	}

	for i := range p.Positions {
		if err := p.Positions[i].Validate(); err != nil {
			return fmt.Errorf("pie %s: %w", p.ID, err)
		}
	}

	return nil
}
