package analytics

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"portfolio-analytics-api/internal/calculator"
	"portfolio-analytics-api/internal/models"
)

// PortfolioAnalyzer composes the individual calculators into one combined
// analysis. Each calculator runs independently on the input collections and
// the analyzer only merges their results.
type PortfolioAnalyzer struct {
	allocation      *calculator.AllocationCalculator
	diversification *calculator.DiversificationCalculator
	drift           *calculator.DriftCalculator
	risk            *calculator.RiskCalculator
	pie             *calculator.PieCalculator
	dividend        *calculator.DividendCalculator
}

func NewPortfolioAnalyzer(
	allocation *calculator.AllocationCalculator,
	diversification *calculator.DiversificationCalculator,
	drift *calculator.DriftCalculator,
	risk *calculator.RiskCalculator,
	pie *calculator.PieCalculator,
	dividend *calculator.DividendCalculator,
) *PortfolioAnalyzer {
	return &PortfolioAnalyzer{
		allocation:      allocation,
		diversification: diversification,
		drift:           drift,
		risk:            risk,
		pie:             pie,
		dividend:        dividend,
	}
}

// AnalysisInput is the fully materialized data a comprehensive analysis
// operates on. Optional parts left nil are skipped in the output.
type AnalysisInput struct {
	AccountID        string
	Positions        []models.Position
	Dividends        []models.Dividend
	Returns          []decimal.Decimal
	BenchmarkReturns []decimal.Decimal

	TargetAllocations map[calculator.Dimension]map[string]decimal.Decimal
	DriftTolerance    decimal.Decimal

	AsOf time.Time
}

// DividendSummary groups the dividend analyzer outputs included in a
// comprehensive analysis.
type DividendSummary struct {
	MonthlyHistory []calculator.MonthlyDividend     `json:"monthly_history"`
	BySecurity     []calculator.SecurityDividends   `json:"by_security"`
	Reinvestment   *calculator.ReinvestmentAnalysis `json:"reinvestment"`
	Projection     *calculator.IncomeProjection     `json:"projection"`
	Taxes          *calculator.TaxAnalysis          `json:"taxes"`
}

// ComprehensiveAnalysis is the merged output of all calculators.
type ComprehensiveAnalysis struct {
	AccountID  string          `json:"account_id"`
	AsOf       time.Time       `json:"as_of"`
	TotalValue decimal.Decimal `json:"total_value"`

	Allocations     map[calculator.Dimension]map[string]decimal.Decimal `json:"allocations"`
	Diversification *calculator.DiversificationScore                    `json:"diversification"`
	Concentration   *calculator.ConcentrationAnalysis                   `json:"concentration"`
	Drift           *calculator.DriftReport                             `json:"drift,omitempty"`
	Risk            *models.RiskMetrics                                 `json:"risk,omitempty"`
	Dividends       *DividendSummary                                    `json:"dividends,omitempty"`

	OverallScore    decimal.Decimal `json:"overall_score"`
	Grade           string          `json:"grade"`
	Recommendations []string        `json:"recommendations"`
}

// PerformComprehensiveAnalysis runs every applicable calculator over the
// input and merges the results. Missing optional inputs (no dividends, no
// return series, no targets) leave the corresponding sections nil; they do
// not fail the analysis.
func (pa *PortfolioAnalyzer) PerformComprehensiveAnalysis(input AnalysisInput) (*ComprehensiveAnalysis, error) {
	asOf := input.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}

	analysis := &ComprehensiveAnalysis{
		AccountID:  input.AccountID,
		AsOf:       asOf,
		TotalValue: models.TotalMarketValue(input.Positions),
	}

	allocations := make(map[calculator.Dimension]map[string]decimal.Decimal, len(calculator.Dimensions()))
	for _, dimension := range calculator.Dimensions() {
		breakdown, err := pa.allocation.Breakdown(input.Positions, dimension)
		if err != nil {
			return nil, fmt.Errorf("allocation by %s: %w", dimension, err)
		}
		allocations[dimension] = breakdown
	}
	analysis.Allocations = allocations

	analysis.Diversification = pa.diversification.Score(input.Positions)
	analysis.Concentration = pa.diversification.Concentration(input.Positions)

	if len(input.TargetAllocations) > 0 {
		report, err := pa.drift.Detect(input.Positions, input.TargetAllocations, input.DriftTolerance)
		if err != nil {
			return nil, fmt.Errorf("drift detection: %w", err)
		}
		analysis.Drift = report
	}

	if len(input.Returns) > 0 {
		metrics, err := pa.risk.Metrics(input.Returns, input.BenchmarkReturns)
		if err != nil {
			return nil, fmt.Errorf("risk metrics: %w", err)
		}
		analysis.Risk = metrics
	}

	if len(input.Dividends) > 0 {
		summary, err := pa.dividendSummary(input, asOf)
		if err != nil {
			return nil, err
		}
		analysis.Dividends = summary
	}

	analysis.OverallScore, analysis.Grade = pa.overallScore(analysis)
	analysis.Recommendations = pa.recommendations(analysis)

	return analysis, nil
}

func (pa *PortfolioAnalyzer) dividendSummary(input AnalysisInput, asOf time.Time) (*DividendSummary, error) {
	bySecurity, err := pa.dividend.BySecurity(input.Dividends, input.Positions, calculator.SortByTotalDividends, 10)
	if err != nil {
		return nil, fmt.Errorf("dividends by security: %w", err)
	}

	return &DividendSummary{
		MonthlyHistory: pa.dividend.MonthlyHistory(input.Dividends, 12),
		BySecurity:     bySecurity,
		Reinvestment:   pa.dividend.ReinvestmentAnalysis(input.Dividends),
		Projection:     pa.dividend.IncomeProjection(input.Dividends, input.Positions, asOf),
		Taxes:          pa.dividend.TaxAnalysis(input.Dividends),
	}, nil
}

// overallScore blends diversification and risk into a single portfolio
// health score. Without risk metrics the diversification score stands alone.
func (pa *PortfolioAnalyzer) overallScore(analysis *ComprehensiveAnalysis) (decimal.Decimal, string) {
	score := analysis.Diversification.OverallScore

	if analysis.Risk != nil {
		// A high risk score drags the health score down.
		riskHealth := decimal.NewFromInt(100).Sub(analysis.Risk.RiskScore)
		score = score.Mul(decimal.NewFromFloat(0.6)).
			Add(riskHealth.Mul(decimal.NewFromFloat(0.4)))
	}
	score = score.Round(2)

	return score, gradeFor(score)
}

func gradeFor(score decimal.Decimal) string {
	switch {
	case score.GreaterThanOrEqual(decimal.NewFromInt(90)):
		return "A"
	case score.GreaterThanOrEqual(decimal.NewFromInt(75)):
		return "B"
	case score.GreaterThanOrEqual(decimal.NewFromInt(60)):
		return "C"
	case score.GreaterThanOrEqual(decimal.NewFromInt(40)):
		return "D"
	default:
		return "F"
	}
}

func (pa *PortfolioAnalyzer) recommendations(analysis *ComprehensiveAnalysis) []string {
	recommendations := make([]string, 0)

	if len(analysis.Allocations) > 0 && analysis.TotalValue.IsZero() {
		recommendations = append(recommendations, "Portfolio has no invested value")
		return recommendations
	}

	if analysis.Concentration != nil && analysis.Concentration.ConcentrationLevel == "High" {
		recommendations = append(recommendations,
			"High concentration detected, consider spreading the largest holdings")
	}

	if analysis.Diversification != nil &&
		analysis.Diversification.OverallScore.LessThan(decimal.NewFromInt(40)) {
		recommendations = append(recommendations,
			"Diversification is weak, consider adding positions across more sectors and regions")
	}

	if analysis.Drift != nil && analysis.Drift.DriftDetected {
		recommendations = append(recommendations, analysis.Drift.Recommendations...)
	}

	if analysis.Risk != nil &&
		(analysis.Risk.RiskCategory == models.RiskCategoryHigh ||
			analysis.Risk.RiskCategory == models.RiskCategoryVeryHigh) {
		recommendations = append(recommendations,
			"Risk level is elevated, consider rebalancing toward lower volatility assets")
	}

	return recommendations
}
