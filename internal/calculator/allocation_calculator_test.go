package calculator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-analytics-api/internal/models"
)

func makePosition(symbol, sector, industry, country string, assetType models.AssetType, marketValue float64) models.Position {
	return models.Position{
		Symbol:      symbol,
		Name:        symbol + " Inc.",
		Quantity:    decimal.NewFromInt(1),
		MarketValue: decimal.NewFromFloat(marketValue),
		Sector:      sector,
		Industry:    industry,
		Country:     country,
		AssetType:   assetType,
	}
}

func sectorScenario() []models.Position {
	return []models.Position{
		makePosition("AAPL", "Technology", "Consumer Electronics", "US", models.AssetTypeStock, 1600),
		makePosition("MSFT", "Technology", "Software", "US", models.AssetTypeStock, 13000),
		makePosition("JNJ", "Healthcare", "Pharmaceuticals", "US", models.AssetTypeStock, 3500),
		makePosition("NVDA", "Technology", "Semiconductors", "US", models.AssetTypeStock, 1950),
		makePosition("VT", "Diversified", "Index Funds", "Global", models.AssetTypeETF, 10500),
	}
}

func TestAllocationCalculator_Breakdown(t *testing.T) {
	calc := NewAllocationCalculator()

	t.Run("sector breakdown matches known scenario", func(t *testing.T) {
		breakdown, err := calc.Breakdown(sectorScenario(), DimensionSector)
		require.NoError(t, err)
		require.Len(t, breakdown, 3)

		assert.Equal(t, "54.17", breakdown["Technology"].String())
		assert.Equal(t, "11.46", breakdown["Healthcare"].String())
		assert.Equal(t, "34.37", breakdown["Diversified"].String())
	})

	t.Run("percentages sum to 100 within tolerance", func(t *testing.T) {
		for _, dimension := range Dimensions() {
			breakdown, err := calc.Breakdown(sectorScenario(), dimension)
			require.NoError(t, err)

			sum := decimal.Zero
			for _, pct := range breakdown {
				sum = sum.Add(pct)
			}
			diff := sum.Sub(decimal.NewFromInt(100)).Abs()
			assert.True(t, diff.LessThanOrEqual(decimal.NewFromFloat(0.01)),
				"dimension %s sums to %s", dimension, sum)
		}
	})

	t.Run("empty positions return empty breakdown", func(t *testing.T) {
		breakdown, err := calc.Breakdown(nil, DimensionSector)
		require.NoError(t, err)
		assert.Empty(t, breakdown)
	})

	t.Run("missing category falls back to the uncategorized label", func(t *testing.T) {
		positions := []models.Position{
			makePosition("XYZ", "", "", "", models.AssetTypeStock, 1000),
		}
		breakdown, err := calc.Breakdown(positions, DimensionSector)
		require.NoError(t, err)
		assert.Equal(t, "100", breakdown[UncategorizedLabel].String())
	})

	t.Run("zero total value yields zero percentages", func(t *testing.T) {
		positions := []models.Position{
			makePosition("AAPL", "Technology", "", "US", models.AssetTypeStock, 0),
		}
		breakdown, err := calc.Breakdown(positions, DimensionSector)
		require.NoError(t, err)
		assert.True(t, breakdown["Technology"].IsZero())
	})

	t.Run("invalid dimension is rejected", func(t *testing.T) {
		_, err := calc.Breakdown(sectorScenario(), Dimension("region"))
		assert.Error(t, err)
	})
}

func TestAllocationCalculator_Weights(t *testing.T) {
	calc := NewAllocationCalculator()

	t.Run("weights are fractions summing to 1", func(t *testing.T) {
		weights := calc.Weights(sectorScenario())
		require.Len(t, weights, 5)

		sum := decimal.Zero
		for _, w := range weights {
			sum = sum.Add(w)
		}
		diff := sum.Sub(decimal.NewFromInt(1)).Abs()
		assert.True(t, diff.LessThanOrEqual(decimal.NewFromFloat(0.0001)))
	})

	t.Run("empty positions yield empty weights", func(t *testing.T) {
		assert.Empty(t, calc.Weights(nil))
	})
}
