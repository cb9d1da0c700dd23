package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"portfolio-analytics-api/internal/models"
)

// Dimension selects the categorical attribute an allocation breakdown is
// grouped by. The set is closed on purpose: grouping is driven by an explicit
// switch, not reflection.
type Dimension string

const (
	DimensionSector    Dimension = "sector"
	DimensionIndustry  Dimension = "industry"
	DimensionCountry   Dimension = "country"
	DimensionAssetType Dimension = "asset_type"
)

// UncategorizedLabel groups positions whose selected attribute is empty.
const UncategorizedLabel = "Uncategorized"

// Dimensions lists the supported breakdown dimensions in canonical order.
func Dimensions() []Dimension {
	return []Dimension{DimensionSector, DimensionIndustry, DimensionCountry, DimensionAssetType}
}

// IsValid reports whether the dimension is one of the supported values.
func (d Dimension) IsValid() bool {
	switch d {
	case DimensionSector, DimensionIndustry, DimensionCountry, DimensionAssetType:
		return true
	}
	return false
}

type AllocationCalculator struct{}

func NewAllocationCalculator() *AllocationCalculator {
	return &AllocationCalculator{}
}

// Breakdown groups positions by the given dimension and returns each
// category's share of total market value as a percentage rounded to two
// decimal places. Percentages sum to 100 within rounding error. An empty
// position list yields an empty map; a zero total value yields zero for
// every category present.
func (ac *AllocationCalculator) Breakdown(positions []models.Position, dimension Dimension) (map[string]decimal.Decimal, error) {
	if !dimension.IsValid() {
		return nil, fmt.Errorf("unsupported allocation dimension %q", dimension)
	}

	breakdown := make(map[string]decimal.Decimal)
	if len(positions) == 0 {
		return breakdown, nil
	}

	totals := make(map[string]decimal.Decimal)
	totalValue := decimal.Zero

	for _, pos := range positions {
		label := categoryLabel(pos, dimension)
		totals[label] = totals[label].Add(pos.MarketValue)
		totalValue = totalValue.Add(pos.MarketValue)
	}

	hundred := decimal.NewFromInt(100)
	for label, value := range totals {
		if totalValue.IsZero() {
			breakdown[label] = decimal.Zero
			continue
		}
		breakdown[label] = value.Div(totalValue).Mul(hundred).Round(2)
	}

	return breakdown, nil
}

// Weights returns each position's share of total market value as a fraction
// in [0,1], keyed by symbol with values aggregated per symbol. A zero total
// yields an empty map.
func (ac *AllocationCalculator) Weights(positions []models.Position) map[string]decimal.Decimal {
	weights := make(map[string]decimal.Decimal)

	totalValue := models.TotalMarketValue(positions)
	if totalValue.IsZero() {
		return weights
	}

	for _, pos := range positions {
		weights[pos.Symbol] = weights[pos.Symbol].Add(pos.MarketValue.Div(totalValue))
	}

	return weights
}

func categoryLabel(pos models.Position, dimension Dimension) string {
	var label string

	switch dimension {
	case DimensionSector:
		label = pos.Sector
	case DimensionIndustry:
		label = pos.Industry
	case DimensionCountry:
		label = pos.Country
	case DimensionAssetType:
		label = string(pos.AssetType)
	}

	if label == "" {
		return UncategorizedLabel
	}
	return label
}
