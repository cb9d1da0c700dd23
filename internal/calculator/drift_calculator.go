package calculator

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"portfolio-analytics-api/internal/models"
)

type DriftCalculator struct {
	allocation *AllocationCalculator
}

func NewDriftCalculator(allocation *AllocationCalculator) *DriftCalculator {
	if allocation == nil {
		allocation = NewAllocationCalculator()
	}
	return &DriftCalculator{allocation: allocation}
}

// CategoryDrift records how far one category sits from its target weight.
type CategoryDrift struct {
	Dimension     Dimension       `json:"dimension"`
	Category      string          `json:"category"`
	CurrentPct    decimal.Decimal `json:"current_pct"`
	TargetPct     decimal.Decimal `json:"target_pct"`
	Drift         decimal.Decimal `json:"drift"`
	ExceedsLimit  bool            `json:"exceeds_limit"`
}

// DriftReport is the outcome of a drift check against a target allocation.
type DriftReport struct {
	DriftDetected   bool            `json:"drift_detected"`
	Tolerance       decimal.Decimal `json:"tolerance"`
	CategoryDrifts  []CategoryDrift `json:"category_drifts"`
	Recommendations []string        `json:"recommendations"`
}

// Detect compares the current allocation against targets, a map of dimension
// name to {category: target percentage}. Categories missing on either side
// are treated as 0%. A negative tolerance is an error.
func (dr *DriftCalculator) Detect(positions []models.Position, targets map[Dimension]map[string]decimal.Decimal, tolerance decimal.Decimal) (*DriftReport, error) {
	if tolerance.IsNegative() {
		return nil, fmt.Errorf("tolerance must be non-negative, got %s", tolerance)
	}

	report := &DriftReport{
		Tolerance:       tolerance,
		CategoryDrifts:  make([]CategoryDrift, 0),
		Recommendations: make([]string, 0),
	}

	dimensions := make([]Dimension, 0, len(targets))
	for dimension := range targets {
		if !dimension.IsValid() {
			return nil, fmt.Errorf("invalid target dimension: %s", dimension)
		}
		dimensions = append(dimensions, dimension)
	}
	sort.Slice(dimensions, func(i, j int) bool { return dimensions[i] < dimensions[j] })

	for _, dimension := range dimensions {
		current, err := dr.allocation.Breakdown(positions, dimension)
		if err != nil {
			return nil, err
		}

		drifts := dr.dimensionDrifts(dimension, current, targets[dimension], tolerance)
		for _, d := range drifts {
			report.CategoryDrifts = append(report.CategoryDrifts, d)
			if !d.ExceedsLimit {
				continue
			}
			report.DriftDetected = true
			if d.Drift.IsPositive() {
				report.Recommendations = append(report.Recommendations,
					fmt.Sprintf("Reduce %s exposure in %s by %s points", d.Category, d.Dimension, d.Drift.Abs().Round(2)))
			} else {
				report.Recommendations = append(report.Recommendations,
					fmt.Sprintf("Increase %s exposure in %s by %s points", d.Category, d.Dimension, d.Drift.Abs().Round(2)))
			}
		}
	}

	return report, nil
}

func (dr *DriftCalculator) dimensionDrifts(dimension Dimension, current, target map[string]decimal.Decimal, tolerance decimal.Decimal) []CategoryDrift {
	categories := make(map[string]struct{}, len(current)+len(target))
	for category := range current {
		categories[category] = struct{}{}
	}
	for category := range target {
		categories[category] = struct{}{}
	}

	names := make([]string, 0, len(categories))
	for category := range categories {
		names = append(names, category)
	}
	sort.Strings(names)

	drifts := make([]CategoryDrift, 0, len(names))
	for _, category := range names {
		currentPct := current[category]
		targetPct := target[category]
		drift := currentPct.Sub(targetPct)

		drifts = append(drifts, CategoryDrift{
			Dimension:    dimension,
			Category:     category,
			CurrentPct:   currentPct,
			TargetPct:    targetPct,
			Drift:        drift.Round(2),
			ExceedsLimit: drift.Abs().GreaterThan(tolerance),
		})
	}

	return drifts
}
