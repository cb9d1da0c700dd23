package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RiskCategory buckets a portfolio's risk score.
type RiskCategory string

const (
	RiskCategoryLow      RiskCategory = "LOW"
	RiskCategoryMedium   RiskCategory = "MEDIUM"
	RiskCategoryHigh     RiskCategory = "HIGH"
	RiskCategoryVeryHigh RiskCategory = "VERY_HIGH"
)

// RiskMetrics holds the risk measures derived from a periodic return series.
// All percentages are expressed on a 0-100 scale; drawdowns are negative.
// Pointer fields are nil when there is not enough data to compute them,
// which is distinct from a computed zero.
type RiskMetrics struct {
	Volatility    decimal.Decimal  `json:"volatility"`
	Volatility30d *decimal.Decimal `json:"volatility_30d,omitempty"`
	Volatility90d *decimal.Decimal `json:"volatility_90d,omitempty"`

	SharpeRatio  *decimal.Decimal `json:"sharpe_ratio,omitempty"`
	SortinoRatio *decimal.Decimal `json:"sortino_ratio,omitempty"`

	MaxDrawdown         decimal.Decimal `json:"max_drawdown"`
	MaxDrawdownDuration *int            `json:"max_drawdown_duration,omitempty"`
	CurrentDrawdown     decimal.Decimal `json:"current_drawdown"`

	Beta          *decimal.Decimal `json:"beta,omitempty"`
	Alpha         *decimal.Decimal `json:"alpha,omitempty"`
	Correlation   *decimal.Decimal `json:"correlation,omitempty"`
	TrackingError *decimal.Decimal `json:"tracking_error,omitempty"`

	VaR95  *decimal.Decimal `json:"var_95,omitempty"`
	VaR99  *decimal.Decimal `json:"var_99,omitempty"`
	CVaR95 *decimal.Decimal `json:"cvar_95,omitempty"`

	RiskCategory RiskCategory    `json:"risk_category"`
	RiskScore    decimal.Decimal `json:"risk_score"`
}

// Validate checks the risk metrics invariants.
func (r *RiskMetrics) Validate() error {
	if r.Volatility.LessThan(decimal.Zero) {
		return fmt.Errorf("risk metrics: volatility cannot be negative")
	}

	if r.MaxDrawdown.GreaterThan(decimal.Zero) {
		return fmt.Errorf("risk metrics: max drawdown must be expressed as a negative percentage")
	}

	if r.CurrentDrawdown.GreaterThan(decimal.Zero) {
		return fmt.Errorf("risk metrics: current drawdown must be expressed as a negative percentage")
	}

	if r.MaxDrawdownDuration != nil && *r.MaxDrawdownDuration < 0 {
		return fmt.Errorf("risk metrics: drawdown duration cannot be negative")
	}

	one := decimal.NewFromInt(1)
	if r.Correlation != nil && (r.Correlation.LessThan(one.Neg()) || r.Correlation.GreaterThan(one)) {
		return fmt.Errorf("risk metrics: correlation must be within [-1, 1]")
	}

	if r.TrackingError != nil && r.TrackingError.LessThan(decimal.Zero) {
		return fmt.Errorf("risk metrics: tracking error cannot be negative")
	}

	hundred := decimal.NewFromInt(100)
	if r.RiskScore.LessThan(decimal.Zero) || r.RiskScore.GreaterThan(hundred) {
		return fmt.Errorf("risk metrics: risk score must be within [0, 100]")
	}

	return nil
}
