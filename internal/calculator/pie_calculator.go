package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"portfolio-analytics-api/internal/models"
)

// PieCalculator derives sub-portfolio level performance figures. Relative
// measures reuse the risk calculator's conventions against the overall
// portfolio instead of an external benchmark.
type PieCalculator struct {
	risk *RiskCalculator
}

func NewPieCalculator(risk *RiskCalculator) *PieCalculator {
	if risk == nil {
		risk = NewRiskCalculator(DefaultRiskConfig())
	}
	return &PieCalculator{risk: risk}
}

// Contribution expresses a pie's absolute return as a percentage of the
// total portfolio value. A zero portfolio contributes nothing rather than
// dividing by zero.
func (pc *PieCalculator) Contribution(pieReturn, portfolioTotal decimal.Decimal) decimal.Decimal {
	if portfolioTotal.IsZero() {
		return decimal.Zero
	}
	return pieReturn.Div(portfolioTotal).Mul(decimal.NewFromInt(100)).Round(2)
}

// TimeWeightedReturn geometrically links a periodic fractional return series
// into a cumulative percentage. An empty series has no return, which is
// distinct from a zero return, so the result is nil.
func (pc *PieCalculator) TimeWeightedReturn(returns []decimal.Decimal) *decimal.Decimal {
	if len(returns) == 0 {
		return nil
	}

	one := decimal.NewFromInt(1)
	linked := one
	for _, r := range returns {
		linked = linked.Mul(one.Add(r))
	}

	twr := linked.Sub(one).Mul(decimal.NewFromInt(100)).Round(2)
	return &twr
}

// Beta measures a pie's sensitivity to the overall portfolio's returns.
func (pc *PieCalculator) Beta(pieReturns, portfolioReturns []decimal.Decimal) (*decimal.Decimal, error) {
	return pc.risk.Beta(pieReturns, portfolioReturns)
}

// Analyze fills the derived performance fields of a pie in place: market
// value, portfolio weight, time-weighted return, contribution and risk
// metrics measured against the overall portfolio's return series.
func (pc *PieCalculator) Analyze(pie *models.Pie, portfolioTotal decimal.Decimal, pieReturns, portfolioReturns []decimal.Decimal) error {
	if pie == nil {
		return fmt.Errorf("pie is required")
	}
	if err := pie.Validate(); err != nil {
		return err
	}

	pie.TotalValue = models.TotalMarketValue(pie.Positions)

	if portfolioTotal.IsPositive() {
		pie.PortfolioWeight = pie.TotalValue.Div(portfolioTotal).Mul(decimal.NewFromInt(100)).Round(2)
	} else {
		pie.PortfolioWeight = decimal.Zero
	}

	pie.TimeWeightedReturn = pc.TimeWeightedReturn(pieReturns)

	contribution := pc.Contribution(pie.TotalReturn, portfolioTotal)
	pie.PortfolioContribution = &contribution

	if len(pieReturns) > 0 {
		metrics, err := pc.risk.Metrics(pieReturns, portfolioReturns)
		if err != nil {
			return fmt.Errorf("pie %s: %w", pie.ID, err)
		}
		pie.RiskMetrics = metrics
	}

	return nil
}
