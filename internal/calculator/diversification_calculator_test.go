package calculator

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-analytics-api/internal/models"
)

func TestDiversificationCalculator_Score(t *testing.T) {
	calc := NewDiversificationCalculator(DefaultDiversificationConfig())

	t.Run("empty positions score zero everywhere", func(t *testing.T) {
		score := calc.Score(nil)
		require.NotNil(t, score)
		assert.True(t, score.OverallScore.IsZero())
		assert.True(t, score.SectorScore.IsZero())
		assert.True(t, score.PositionCountScore.IsZero())
	})

	t.Run("single position scores zero on category dimensions", func(t *testing.T) {
		positions := []models.Position{
			makePosition("AAPL", "Technology", "Consumer Electronics", "US", models.AssetTypeStock, 10000),
		}
		score := calc.Score(positions)

		assert.True(t, score.SectorScore.IsZero())
		assert.True(t, score.IndustryScore.IsZero())
		assert.True(t, score.GeographyScore.IsZero())
		assert.True(t, score.AssetTypeScore.IsZero())
		assert.Equal(t, "10", score.PositionCountScore.String())
	})

	t.Run("position count score saturates at the reference", func(t *testing.T) {
		positions := make([]models.Position, 0, 12)
		for i := 0; i < 12; i++ {
			positions = append(positions, makePosition(
				fmt.Sprintf("S%02d", i), "Technology", "Software", "US", models.AssetTypeStock, 1000))
		}
		score := calc.Score(positions)
		assert.Equal(t, "100", score.PositionCountScore.String())

		score5 := calc.Score(positions[:5])
		assert.Equal(t, "50", score5.PositionCountScore.String())
	})

	t.Run("broader portfolios score higher", func(t *testing.T) {
		narrow := calc.Score([]models.Position{
			makePosition("AAPL", "Technology", "Consumer Electronics", "US", models.AssetTypeStock, 5000),
			makePosition("MSFT", "Technology", "Software", "US", models.AssetTypeStock, 5000),
		})
		broad := calc.Score(sectorScenario())
		assert.True(t, broad.OverallScore.GreaterThan(narrow.OverallScore))
	})

	t.Run("sub-scores stay within bounds", func(t *testing.T) {
		score := calc.Score(sectorScenario())
		hundred := decimal.NewFromInt(100)
		for _, s := range []decimal.Decimal{
			score.SectorScore, score.IndustryScore, score.GeographyScore,
			score.AssetTypeScore, score.PositionCountScore, score.OverallScore,
		} {
			assert.False(t, s.IsNegative())
			assert.True(t, s.LessThanOrEqual(hundred))
		}
	})
}

func TestDiversificationCalculator_Concentration(t *testing.T) {
	calc := NewDiversificationCalculator(DefaultDiversificationConfig())

	t.Run("empty positions yield a low zero result", func(t *testing.T) {
		analysis := calc.Concentration(nil)
		require.NotNil(t, analysis)
		assert.Equal(t, "Low", analysis.ConcentrationLevel)
		assert.Empty(t, analysis.TopHoldings)
		assert.True(t, analysis.HerfindahlIndex.IsZero())
		assert.True(t, analysis.Buckets.Top1.IsZero())
	})

	t.Run("equal weights give hhi of one over n", func(t *testing.T) {
		positions := []models.Position{
			makePosition("A", "Technology", "Software", "US", models.AssetTypeStock, 2500),
			makePosition("B", "Healthcare", "Pharma", "US", models.AssetTypeStock, 2500),
			makePosition("C", "Energy", "Oil", "US", models.AssetTypeStock, 2500),
			makePosition("D", "Financials", "Banks", "US", models.AssetTypeStock, 2500),
		}
		analysis := calc.Concentration(positions)
		assert.Equal(t, "0.25", analysis.HerfindahlIndex.String())
		assert.Equal(t, "High", analysis.ConcentrationLevel)
	})

	t.Run("buckets are non-decreasing", func(t *testing.T) {
		analysis := calc.Concentration(sectorScenario())
		assert.True(t, analysis.Buckets.Top1.LessThanOrEqual(analysis.Buckets.Top5))
		assert.True(t, analysis.Buckets.Top5.LessThanOrEqual(analysis.Buckets.Top10))
		assert.True(t, analysis.Buckets.Top10.LessThanOrEqual(decimal.NewFromInt(100)))
	})

	t.Run("top holdings are ranked by market value", func(t *testing.T) {
		analysis := calc.Concentration(sectorScenario())
		require.Len(t, analysis.TopHoldings, 5)
		assert.Equal(t, 1, analysis.TopHoldings[0].Rank)
		assert.Equal(t, "MSFT", analysis.TopHoldings[0].Symbol)
		assert.Equal(t, "VT", analysis.TopHoldings[1].Symbol)
		for i := 1; i < len(analysis.TopHoldings); i++ {
			assert.True(t, analysis.TopHoldings[i].MarketValue.
				LessThanOrEqual(analysis.TopHoldings[i-1].MarketValue))
		}
	})

	t.Run("single dominant holding is classified high", func(t *testing.T) {
		positions := []models.Position{
			makePosition("AAPL", "Technology", "Consumer Electronics", "US", models.AssetTypeStock, 9500),
			makePosition("JNJ", "Healthcare", "Pharma", "US", models.AssetTypeStock, 500),
		}
		analysis := calc.Concentration(positions)
		assert.Equal(t, "High", analysis.ConcentrationLevel)
		assert.Equal(t, "95", analysis.Buckets.Top1.String())
	})
}
