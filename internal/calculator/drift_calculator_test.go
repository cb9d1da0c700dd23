package calculator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-analytics-api/internal/models"
)

func TestDriftCalculator_Detect(t *testing.T) {
	calc := NewDriftCalculator(nil)

	positions := []models.Position{
		makePosition("AAPL", "Technology", "Consumer Electronics", "US", models.AssetTypeStock, 6000),
		makePosition("JNJ", "Healthcare", "Pharmaceuticals", "US", models.AssetTypeStock, 4000),
	}

	t.Run("flags categories outside tolerance", func(t *testing.T) {
		targets := map[Dimension]map[string]decimal.Decimal{
			DimensionSector: {
				"Technology": decimal.NewFromInt(50),
				"Healthcare": decimal.NewFromInt(50),
			},
		}

		report, err := calc.Detect(positions, targets, decimal.NewFromInt(5))
		require.NoError(t, err)

		assert.True(t, report.DriftDetected)
		require.Len(t, report.CategoryDrifts, 2)
		require.Len(t, report.Recommendations, 2)

		byCategory := make(map[string]CategoryDrift)
		for _, d := range report.CategoryDrifts {
			byCategory[d.Category] = d
		}
		assert.Equal(t, "10", byCategory["Technology"].Drift.String())
		assert.True(t, byCategory["Technology"].ExceedsLimit)
		assert.Equal(t, "-10", byCategory["Healthcare"].Drift.String())
	})

	t.Run("within tolerance reports no drift", func(t *testing.T) {
		targets := map[Dimension]map[string]decimal.Decimal{
			DimensionSector: {
				"Technology": decimal.NewFromInt(55),
				"Healthcare": decimal.NewFromInt(45),
			},
		}

		report, err := calc.Detect(positions, targets, decimal.NewFromInt(10))
		require.NoError(t, err)
		assert.False(t, report.DriftDetected)
		assert.Empty(t, report.Recommendations)
	})

	t.Run("target category absent from holdings drifts negative", func(t *testing.T) {
		targets := map[Dimension]map[string]decimal.Decimal{
			DimensionSector: {
				"Technology": decimal.NewFromInt(50),
				"Healthcare": decimal.NewFromInt(40),
				"Energy":     decimal.NewFromInt(10),
			},
		}

		report, err := calc.Detect(positions, targets, decimal.NewFromInt(5))
		require.NoError(t, err)

		var energy *CategoryDrift
		for i := range report.CategoryDrifts {
			if report.CategoryDrifts[i].Category == "Energy" {
				energy = &report.CategoryDrifts[i]
			}
		}
		require.NotNil(t, energy)
		assert.True(t, energy.CurrentPct.IsZero())
		assert.Equal(t, "-10", energy.Drift.String())
		assert.True(t, energy.ExceedsLimit)
	})

	t.Run("held category absent from target uses implicit zero", func(t *testing.T) {
		targets := map[Dimension]map[string]decimal.Decimal{
			DimensionSector: {
				"Technology": decimal.NewFromInt(100),
			},
		}

		report, err := calc.Detect(positions, targets, decimal.NewFromInt(5))
		require.NoError(t, err)

		var healthcare *CategoryDrift
		for i := range report.CategoryDrifts {
			if report.CategoryDrifts[i].Category == "Healthcare" {
				healthcare = &report.CategoryDrifts[i]
			}
		}
		require.NotNil(t, healthcare)
		assert.True(t, healthcare.TargetPct.IsZero())
		assert.Equal(t, "40", healthcare.Drift.String())
	})

	t.Run("negative tolerance is rejected", func(t *testing.T) {
		_, err := calc.Detect(positions, nil, decimal.NewFromInt(-1))
		assert.Error(t, err)
	})

	t.Run("invalid target dimension is rejected", func(t *testing.T) {
		targets := map[Dimension]map[string]decimal.Decimal{
			Dimension("region"): {"EU": decimal.NewFromInt(50)},
		}
		_, err := calc.Detect(positions, targets, decimal.NewFromInt(5))
		assert.Error(t, err)
	})

	t.Run("empty positions drift fully against targets", func(t *testing.T) {
		targets := map[Dimension]map[string]decimal.Decimal{
			DimensionSector: {"Technology": decimal.NewFromInt(100)},
		}
		report, err := calc.Detect(nil, targets, decimal.NewFromInt(5))
		require.NoError(t, err)
		assert.True(t, report.DriftDetected)
		require.Len(t, report.CategoryDrifts, 1)
		assert.Equal(t, "-100", report.CategoryDrifts[0].Drift.String())
	})
}
