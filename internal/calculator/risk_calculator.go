package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"portfolio-analytics-api/internal/models"
)

// RiskConfig carries the statistical conventions of the risk calculator.
// PeriodsPerYear drives annualization (252 for daily series, 12 for
// monthly); RiskFreeRate is the annual rate as a fraction.
type RiskConfig struct {
	PeriodsPerYear      int             `json:"periods_per_year" default:"252"`
	RiskFreeRate        decimal.Decimal `json:"risk_free_rate"`
	MinBetaObservations int             `json:"min_beta_observations" default:"10"`
}

// DefaultRiskConfig assumes daily returns and a 2% annual risk-free rate.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		PeriodsPerYear:      252,
		RiskFreeRate:        decimal.NewFromFloat(0.02),
		MinBetaObservations: 10,
	}
}

type RiskCalculator struct {
	config RiskConfig
}

func NewRiskCalculator(config RiskConfig) *RiskCalculator {
	if config.PeriodsPerYear <= 0 {
		config.PeriodsPerYear = 252
	}
	if config.MinBetaObservations <= 0 {
		config.MinBetaObservations = 10
	}
	return &RiskCalculator{config: config}
}

var (
	betaLowerBound = decimal.NewFromInt(-3)
	betaUpperBound = decimal.NewFromInt(3)
)

// Metrics computes the full risk profile of a fractional return series. The
// benchmark series may be nil, in which case the relative measures (beta,
// alpha, correlation, tracking error) stay nil. A series shorter than 2
// observations yields zero/nil defaults without error; a benchmark of a
// different length than returns is an error.
func (rc *RiskCalculator) Metrics(returns, benchmark []decimal.Decimal) (*models.RiskMetrics, error) {
	if benchmark != nil && len(benchmark) != len(returns) {
		return nil, fmt.Errorf("benchmark series length %d does not match returns length %d", len(benchmark), len(returns))
	}

	metrics := &models.RiskMetrics{
		RiskCategory: models.RiskCategoryLow,
	}
	if len(returns) < 2 {
		return metrics, nil
	}

	annualization := sqrtDecimal(decimal.NewFromInt(int64(rc.config.PeriodsPerYear)))
	hundred := decimal.NewFromInt(100)

	periodVol := sampleStdDev(returns)
	metrics.Volatility = periodVol.Mul(annualization).Mul(hundred).Round(2)
	metrics.Volatility30d = rc.windowVolatility(returns, 30)
	metrics.Volatility90d = rc.windowVolatility(returns, 90)

	metrics.SharpeRatio = rc.sharpeRatio(returns, periodVol)
	metrics.SortinoRatio = rc.sortinoRatio(returns)

	maxDD, duration, currentDD := rc.drawdowns(returns)
	metrics.MaxDrawdown = maxDD.Mul(hundred).Round(2)
	metrics.CurrentDrawdown = currentDD.Mul(hundred).Round(2)
	metrics.MaxDrawdownDuration = &duration

	var95 := percentile(returns, 0.05).Mul(hundred).Round(2)
	var99 := percentile(returns, 0.01).Mul(hundred).Round(2)
	cvar95 := rc.conditionalVaR(returns, percentile(returns, 0.05)).Mul(hundred).Round(2)
	metrics.VaR95 = &var95
	metrics.VaR99 = &var99
	metrics.CVaR95 = &cvar95

	if benchmark != nil {
		beta, err := rc.Beta(returns, benchmark)
		if err != nil {
			return nil, err
		}
		metrics.Beta = beta
		metrics.Alpha = rc.alpha(returns, benchmark, beta)
		metrics.Correlation = rc.correlation(returns, benchmark)
		metrics.TrackingError = rc.trackingError(returns, benchmark)
	}

	metrics.RiskScore = rc.riskScore(metrics)
	metrics.RiskCategory = rc.classifyRisk(metrics.RiskScore)

	return metrics, nil
}

// Beta computes covariance(returns, benchmark) / variance(benchmark). Fewer
// than the configured minimum of paired observations yields nil, and the
// result is clamped to [-3, 3].
func (rc *RiskCalculator) Beta(returns, benchmark []decimal.Decimal) (*decimal.Decimal, error) {
	if len(returns) != len(benchmark) {
		return nil, fmt.Errorf("beta requires paired series, got %d and %d observations", len(returns), len(benchmark))
	}
	if len(returns) < rc.config.MinBetaObservations {
		return nil, nil
	}

	benchmarkVariance := sampleVariance(benchmark)
	if benchmarkVariance.IsZero() {
		return nil, nil
	}

	beta := sampleCovariance(returns, benchmark).Div(benchmarkVariance)
	if beta.LessThan(betaLowerBound) {
		beta = betaLowerBound
	}
	if beta.GreaterThan(betaUpperBound) {
		beta = betaUpperBound
	}
	beta = beta.Round(4)
	return &beta, nil
}

func (rc *RiskCalculator) sharpeRatio(returns []decimal.Decimal, periodVol decimal.Decimal) *decimal.Decimal {
	if periodVol.IsZero() {
		return nil
	}

	periodRiskFree := rc.config.RiskFreeRate.Div(decimal.NewFromInt(int64(rc.config.PeriodsPerYear)))
	excess := mean(returns).Sub(periodRiskFree)
	annualization := sqrtDecimal(decimal.NewFromInt(int64(rc.config.PeriodsPerYear)))

	sharpe := excess.Div(periodVol).Mul(annualization).Round(4)
	return &sharpe
}

// sortinoRatio replaces total volatility with downside deviation, the
// standard deviation of negative excess returns only.
func (rc *RiskCalculator) sortinoRatio(returns []decimal.Decimal) *decimal.Decimal {
	periodRiskFree := rc.config.RiskFreeRate.Div(decimal.NewFromInt(int64(rc.config.PeriodsPerYear)))

	downsideSum := decimal.Zero
	for _, r := range returns {
		excess := r.Sub(periodRiskFree)
		if excess.IsNegative() {
			downsideSum = downsideSum.Add(excess.Mul(excess))
		}
	}

	downsideDeviation := sqrtDecimal(downsideSum.Div(decimal.NewFromInt(int64(len(returns)))))
	if downsideDeviation.IsZero() {
		return nil
	}

	excess := mean(returns).Sub(periodRiskFree)
	annualization := sqrtDecimal(decimal.NewFromInt(int64(rc.config.PeriodsPerYear)))

	sortino := excess.Div(downsideDeviation).Mul(annualization).Round(4)
	return &sortino
}

// drawdowns walks the compounded wealth path and returns the max drawdown
// (as a negative fraction), its duration in periods from peak to trough (or
// to series end if never recovered), and the current drawdown.
func (rc *RiskCalculator) drawdowns(returns []decimal.Decimal) (decimal.Decimal, int, decimal.Decimal) {
	one := decimal.NewFromInt(1)
	wealth := one
	peak := one
	peakIndex := 0

	maxDrawdown := decimal.Zero
	maxDuration := 0
	currentDrawdown := decimal.Zero

	for i, r := range returns {
		wealth = wealth.Mul(one.Add(r))
		if wealth.GreaterThan(peak) {
			peak = wealth
			peakIndex = i + 1
		}

		drawdown := wealth.Div(peak).Sub(one)
		if drawdown.LessThan(maxDrawdown) {
			maxDrawdown = drawdown
			maxDuration = i + 1 - peakIndex
		}
		currentDrawdown = drawdown
	}

	return maxDrawdown, maxDuration, currentDrawdown
}

func (rc *RiskCalculator) conditionalVaR(returns []decimal.Decimal, threshold decimal.Decimal) decimal.Decimal {
	tail := make([]decimal.Decimal, 0)
	for _, r := range returns {
		if r.LessThanOrEqual(threshold) {
			tail = append(tail, r)
		}
	}
	if len(tail) == 0 {
		return threshold
	}
	return mean(tail)
}

func (rc *RiskCalculator) windowVolatility(returns []decimal.Decimal, window int) *decimal.Decimal {
	if len(returns) < window {
		return nil
	}

	recent := returns[len(returns)-window:]
	annualization := sqrtDecimal(decimal.NewFromInt(int64(rc.config.PeriodsPerYear)))
	vol := sampleStdDev(recent).Mul(annualization).Mul(decimal.NewFromInt(100)).Round(2)
	return &vol
}

func (rc *RiskCalculator) alpha(returns, benchmark []decimal.Decimal, beta *decimal.Decimal) *decimal.Decimal {
	if beta == nil {
		return nil
	}

	periods := decimal.NewFromInt(int64(rc.config.PeriodsPerYear))
	periodRiskFree := rc.config.RiskFreeRate.Div(periods)

	// Annualized CAPM alpha: actual excess return minus beta-scaled
	// benchmark excess return.
	excess := mean(returns).Sub(periodRiskFree)
	benchmarkExcess := mean(benchmark).Sub(periodRiskFree)
	alpha := excess.Sub(beta.Mul(benchmarkExcess)).Mul(periods).Mul(decimal.NewFromInt(100)).Round(2)
	return &alpha
}

func (rc *RiskCalculator) correlation(returns, benchmark []decimal.Decimal) *decimal.Decimal {
	stdA := sampleStdDev(returns)
	stdB := sampleStdDev(benchmark)
	if stdA.IsZero() || stdB.IsZero() {
		return nil
	}

	corr := sampleCovariance(returns, benchmark).Div(stdA.Mul(stdB))

	// Float square roots can push the ratio marginally past the bounds.
	one := decimal.NewFromInt(1)
	if corr.GreaterThan(one) {
		corr = one
	}
	if corr.LessThan(one.Neg()) {
		corr = one.Neg()
	}
	corr = corr.Round(4)
	return &corr
}

func (rc *RiskCalculator) trackingError(returns, benchmark []decimal.Decimal) *decimal.Decimal {
	diffs := make([]decimal.Decimal, len(returns))
	for i := range returns {
		diffs[i] = returns[i].Sub(benchmark[i])
	}

	annualization := sqrtDecimal(decimal.NewFromInt(int64(rc.config.PeriodsPerYear)))
	te := sampleStdDev(diffs).Mul(annualization).Mul(decimal.NewFromInt(100)).Round(2)
	return &te
}

// riskScore blends annualized volatility, max drawdown severity and VaR95
// into a 0-100 score weighted 40/30/30.
func (rc *RiskCalculator) riskScore(metrics *models.RiskMetrics) decimal.Decimal {
	hundred := decimal.NewFromInt(100)

	// Volatility of 40% or more annualized maps to the full sub-score.
	volScore := metrics.Volatility.Div(decimal.NewFromInt(40)).Mul(hundred)
	if volScore.GreaterThan(hundred) {
		volScore = hundred
	}

	// Drawdown of -50% or worse maps to the full sub-score.
	ddScore := metrics.MaxDrawdown.Abs().Div(decimal.NewFromInt(50)).Mul(hundred)
	if ddScore.GreaterThan(hundred) {
		ddScore = hundred
	}

	varScore := decimal.Zero
	if metrics.VaR95 != nil {
		// Daily VaR of -5% or worse maps to the full sub-score.
		varScore = metrics.VaR95.Abs().Div(decimal.NewFromInt(5)).Mul(hundred)
		if varScore.GreaterThan(hundred) {
			varScore = hundred
		}
	}

	score := volScore.Mul(decimal.NewFromFloat(0.4)).
		Add(ddScore.Mul(decimal.NewFromFloat(0.3))).
		Add(varScore.Mul(decimal.NewFromFloat(0.3))).
		Round(2)

	if score.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	if score.GreaterThan(hundred) {
		return hundred
	}
	return score
}

func (rc *RiskCalculator) classifyRisk(score decimal.Decimal) models.RiskCategory {
	switch {
	case score.LessThan(decimal.NewFromInt(25)):
		return models.RiskCategoryLow
	case score.LessThan(decimal.NewFromInt(50)):
		return models.RiskCategoryMedium
	case score.LessThan(decimal.NewFromInt(75)):
		return models.RiskCategoryHigh
	default:
		return models.RiskCategoryVeryHigh
	}
}
