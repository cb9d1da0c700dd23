package calculator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-analytics-api/internal/models"
)

func TestPieCalculator_Contribution(t *testing.T) {
	calc := NewPieCalculator(nil)

	t.Run("contribution is return over portfolio value", func(t *testing.T) {
		got := calc.Contribution(decimal.NewFromInt(200), decimal.NewFromInt(10000))
		assert.Equal(t, "2", got.String())
	})

	t.Run("zero portfolio value contributes zero", func(t *testing.T) {
		got := calc.Contribution(decimal.NewFromInt(100), decimal.Zero)
		assert.True(t, got.IsZero())
	})

	t.Run("negative return contributes negatively", func(t *testing.T) {
		got := calc.Contribution(decimal.NewFromInt(-500), decimal.NewFromInt(10000))
		assert.Equal(t, "-5", got.String())
	})
}

func TestPieCalculator_TimeWeightedReturn(t *testing.T) {
	calc := NewPieCalculator(nil)

	t.Run("empty series has no return", func(t *testing.T) {
		assert.Nil(t, calc.TimeWeightedReturn(nil))
		assert.Nil(t, calc.TimeWeightedReturn([]decimal.Decimal{}))
	})

	t.Run("geometric linking of a known series", func(t *testing.T) {
		twr := calc.TimeWeightedReturn(toDecimals([]float64{0.02, 0.01, -0.005, 0.015, 0.008}))
		require.NotNil(t, twr)
		assert.Equal(t, "4.87", twr.String())
	})

	t.Run("single period passes through", func(t *testing.T) {
		twr := calc.TimeWeightedReturn(toDecimals([]float64{0.05}))
		require.NotNil(t, twr)
		assert.Equal(t, "5", twr.String())
	})

	t.Run("zero returns link to zero", func(t *testing.T) {
		twr := calc.TimeWeightedReturn(toDecimals([]float64{0, 0, 0}))
		require.NotNil(t, twr)
		assert.True(t, twr.IsZero())
	})
}

func TestPieCalculator_Analyze(t *testing.T) {
	calc := NewPieCalculator(nil)

	t.Run("fills derived fields in place", func(t *testing.T) {
		pie := &models.Pie{
			ID:   "dividend-growth",
			Name: "Dividend Growth",
			Positions: []models.Position{
				{
					Symbol:      "KO",
					Quantity:    decimal.NewFromInt(50),
					MarketValue: decimal.NewFromInt(3000),
					AssetType:   models.AssetTypeStock,
				},
			},
			TotalReturn: decimal.NewFromInt(150),
		}

		returns := toDecimals([]float64{0.01, 0.02})

		err := calc.Analyze(pie, decimal.NewFromInt(12000), returns, returns)
		require.NoError(t, err)

		assert.Equal(t, "3000", pie.TotalValue.String())
		assert.Equal(t, "25", pie.PortfolioWeight.String())
		require.NotNil(t, pie.TimeWeightedReturn)
		assert.Equal(t, "3.02", pie.TimeWeightedReturn.String())
		require.NotNil(t, pie.PortfolioContribution)
		assert.Equal(t, "1.25", pie.PortfolioContribution.String())
		require.NotNil(t, pie.RiskMetrics)
	})

	t.Run("empty return series leaves performance unset", func(t *testing.T) {
		pie := &models.Pie{ID: "cash", Name: "Cash"}

		err := calc.Analyze(pie, decimal.NewFromInt(1000), nil, nil)
		require.NoError(t, err)

		assert.Nil(t, pie.TimeWeightedReturn)
		assert.Nil(t, pie.RiskMetrics)
		assert.True(t, pie.TotalValue.IsZero())
	})

	t.Run("invalid pie is rejected", func(t *testing.T) {
		err := calc.Analyze(&models.Pie{Name: "unnamed"}, decimal.NewFromInt(1000), nil, nil)
		assert.Error(t, err)
	})
}

func TestPieCalculator_Beta(t *testing.T) {
	calc := NewPieCalculator(NewRiskCalculator(DefaultRiskConfig()))

	t.Run("insufficient observations yield nil", func(t *testing.T) {
		short := toDecimals([]float64{0.01, 0.02, -0.01})
		beta, err := calc.Beta(short, short)
		require.NoError(t, err)
		assert.Nil(t, beta)
	})

	t.Run("sufficient observations stay within bounds", func(t *testing.T) {
		pie := toDecimals([]float64{0.012, -0.018, 0.02, -0.006, 0.015, 0.011, -0.012, 0.006, 0.013, -0.009})
		portfolio := toDecimals([]float64{0.01, -0.015, 0.016, -0.005, 0.012, 0.009, -0.01, 0.005, 0.011, -0.007})

		beta, err := calc.Beta(pie, portfolio)
		require.NoError(t, err)
		require.NotNil(t, beta)
		assert.True(t, beta.GreaterThanOrEqual(decimal.NewFromInt(-3)))
		assert.True(t, beta.LessThanOrEqual(decimal.NewFromInt(3)))
	})
}
