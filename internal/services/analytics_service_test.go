package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"portfolio-analytics-api/internal/analytics"
	"portfolio-analytics-api/internal/calculator"
	"portfolio-analytics-api/internal/models"
	"portfolio-analytics-api/pkg/cache"
)

// Mock implementations

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetAnalysis(ctx context.Context, accountID string, dest interface{}) error {
	args := m.Called(ctx, accountID, dest)
	return args.Error(0)
}

func (m *MockCache) SetAnalysis(ctx context.Context, accountID string, analysis interface{}) error {
	args := m.Called(ctx, accountID, analysis)
	return args.Error(0)
}

func (m *MockCache) GetRiskMetrics(ctx context.Context, accountID string, dest interface{}) error {
	args := m.Called(ctx, accountID, dest)
	return args.Error(0)
}

func (m *MockCache) SetRiskMetrics(ctx context.Context, accountID string, metrics interface{}) error {
	args := m.Called(ctx, accountID, metrics)
	return args.Error(0)
}

func (m *MockCache) GetDividendSummary(ctx context.Context, accountID string, dest interface{}) error {
	args := m.Called(ctx, accountID, dest)
	return args.Error(0)
}

func (m *MockCache) SetDividendSummary(ctx context.Context, accountID string, summary interface{}) error {
	args := m.Called(ctx, accountID, summary)
	return args.Error(0)
}

func (m *MockCache) InvalidateAccount(ctx context.Context, accountID string) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

type MockBrokerClient struct {
	mock.Mock
}

func (m *MockBrokerClient) GetPositions(ctx context.Context, accountID string) ([]models.Position, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Position), args.Error(1)
}

func (m *MockBrokerClient) GetDividends(ctx context.Context, accountID string, from, to time.Time) ([]models.Dividend, error) {
	args := m.Called(ctx, accountID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Dividend), args.Error(1)
}

func (m *MockBrokerClient) GetPortfolioReturns(ctx context.Context, accountID string, from, to time.Time) ([]decimal.Decimal, error) {
	args := m.Called(ctx, accountID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]decimal.Decimal), args.Error(1)
}

func (m *MockBrokerClient) GetPies(ctx context.Context, accountID string) ([]models.Pie, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Pie), args.Error(1)
}

func (m *MockBrokerClient) GetPieReturns(ctx context.Context, accountID, pieID string, from, to time.Time) ([]decimal.Decimal, error) {
	args := m.Called(ctx, accountID, pieID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]decimal.Decimal), args.Error(1)
}

func (m *MockBrokerClient) GetHistoricalPrices(ctx context.Context, symbol string, from, to time.Time) (*models.HistoricalData, error) {
	args := m.Called(ctx, symbol, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.HistoricalData), args.Error(1)
}

type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) PerformComprehensiveAnalysis(input analytics.AnalysisInput) (*analytics.ComprehensiveAnalysis, error) {
	args := m.Called(input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analytics.ComprehensiveAnalysis), args.Error(1)
}

type MockSnapshotRepository struct {
	mock.Mock
}

func (m *MockSnapshotRepository) Create(ctx context.Context, snapshot *models.Snapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockSnapshotRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Snapshot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Snapshot), args.Error(1)
}

func (m *MockSnapshotRepository) GetByAccountID(ctx context.Context, accountID string, limit, offset int) ([]models.Snapshot, error) {
	args := m.Called(ctx, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Snapshot), args.Error(1)
}

func (m *MockSnapshotRepository) GetByDateRange(ctx context.Context, accountID string, startDate, endDate time.Time) ([]models.Snapshot, error) {
	args := m.Called(ctx, accountID, startDate, endDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Snapshot), args.Error(1)
}

func (m *MockSnapshotRepository) GetLatest(ctx context.Context, accountID string) (*models.Snapshot, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Snapshot), args.Error(1)
}

func (m *MockSnapshotRepository) DeleteOldSnapshots(ctx context.Context, olderThan time.Duration) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

func newTestService(broker *MockBrokerClient, cacheClient *MockCache, analyzer *MockAnalyzer, repo *MockSnapshotRepository) *AnalyticsService {
	return NewAnalyticsService(
		analyzer,
		calculator.NewRiskCalculator(calculator.DefaultRiskConfig()),
		calculator.NewDividendCalculator(),
		calculator.NewDiversificationCalculator(calculator.DefaultDiversificationConfig()),
		broker,
		cacheClient,
		repo,
	)
}

func samplePositions() []models.Position {
	return []models.Position{
		{
			Symbol:       "AAPL",
			Quantity:     decimal.NewFromInt(10),
			AveragePrice: decimal.NewFromInt(150),
			CurrentPrice: decimal.NewFromInt(160),
			MarketValue:  decimal.NewFromInt(1600),
			Sector:       "Technology",
			Country:      "US",
			AssetType:    models.AssetTypeStock,
		},
		{
			Symbol:       "JNJ",
			Quantity:     decimal.NewFromInt(20),
			AveragePrice: decimal.NewFromInt(170),
			CurrentPrice: decimal.NewFromInt(175),
			MarketValue:  decimal.NewFromInt(3500),
			Sector:       "Healthcare",
			Country:      "US",
			AssetType:    models.AssetTypeStock,
		},
	}
}

func TestAnalyticsService_GetComprehensiveAnalysis(t *testing.T) {
	t.Run("cache miss fetches data and runs the analysis", func(t *testing.T) {
		broker := new(MockBrokerClient)
		cacheClient := new(MockCache)
		analyzer := new(MockAnalyzer)
		repo := new(MockSnapshotRepository)
		service := newTestService(broker, cacheClient, analyzer, repo)

		expected := &analytics.ComprehensiveAnalysis{AccountID: "acct-1"}

		cacheClient.On("GetAnalysis", mock.Anything, "acct-1", mock.Anything).Return(cache.ErrNotFound)
		broker.On("GetPositions", mock.Anything, "acct-1").Return(samplePositions(), nil)
		broker.On("GetDividends", mock.Anything, "acct-1", mock.Anything, mock.Anything).Return([]models.Dividend{}, nil)
		broker.On("GetPortfolioReturns", mock.Anything, "acct-1", mock.Anything, mock.Anything).Return([]decimal.Decimal{}, nil)
		analyzer.On("PerformComprehensiveAnalysis", mock.Anything).Return(expected, nil)
		cacheClient.On("SetAnalysis", mock.Anything, "acct-1", expected).Return(nil)

		analysis, err := service.GetComprehensiveAnalysis(context.Background(), "acct-1")
		require.NoError(t, err)
		assert.Equal(t, "acct-1", analysis.AccountID)

		broker.AssertExpectations(t)
		cacheClient.AssertExpectations(t)
		analyzer.AssertExpectations(t)
	})

	t.Run("cache hit skips the broker", func(t *testing.T) {
		broker := new(MockBrokerClient)
		cacheClient := new(MockCache)
		analyzer := new(MockAnalyzer)
		repo := new(MockSnapshotRepository)
		service := newTestService(broker, cacheClient, analyzer, repo)

		cacheClient.On("GetAnalysis", mock.Anything, "acct-1", mock.Anything).
			Run(func(args mock.Arguments) {
				dest := args.Get(2).(*analytics.ComprehensiveAnalysis)
				dest.AccountID = "acct-1"
			}).Return(nil)

		analysis, err := service.GetComprehensiveAnalysis(context.Background(), "acct-1")
		require.NoError(t, err)
		assert.Equal(t, "acct-1", analysis.AccountID)

		broker.AssertNotCalled(t, "GetPositions", mock.Anything, mock.Anything)
		analyzer.AssertNotCalled(t, "PerformComprehensiveAnalysis", mock.Anything)
	})

	t.Run("broker failure propagates", func(t *testing.T) {
		broker := new(MockBrokerClient)
		cacheClient := new(MockCache)
		analyzer := new(MockAnalyzer)
		repo := new(MockSnapshotRepository)
		service := newTestService(broker, cacheClient, analyzer, repo)

		cacheClient.On("GetAnalysis", mock.Anything, "acct-1", mock.Anything).Return(cache.ErrNotFound)
		broker.On("GetPositions", mock.Anything, "acct-1").Return(nil, errors.New("broker unavailable"))

		_, err := service.GetComprehensiveAnalysis(context.Background(), "acct-1")
		assert.Error(t, err)
		analyzer.AssertNotCalled(t, "PerformComprehensiveAnalysis", mock.Anything)
	})
}

func TestAnalyticsService_GetRiskMetrics(t *testing.T) {
	t.Run("computes metrics from the fetched return series", func(t *testing.T) {
		broker := new(MockBrokerClient)
		cacheClient := new(MockCache)
		analyzer := new(MockAnalyzer)
		repo := new(MockSnapshotRepository)
		service := newTestService(broker, cacheClient, analyzer, repo)

		returns := []decimal.Decimal{
			decimal.NewFromFloat(0.01), decimal.NewFromFloat(-0.02), decimal.NewFromFloat(0.015),
		}

		cacheClient.On("GetRiskMetrics", mock.Anything, "acct-1", mock.Anything).Return(cache.ErrNotFound)
		broker.On("GetPortfolioReturns", mock.Anything, "acct-1", mock.Anything, mock.Anything).Return(returns, nil)
		cacheClient.On("SetRiskMetrics", mock.Anything, "acct-1", mock.Anything).Return(nil)

		metrics, err := service.GetRiskMetrics(context.Background(), "acct-1")
		require.NoError(t, err)
		assert.True(t, metrics.Volatility.IsPositive())

		broker.AssertExpectations(t)
		cacheClient.AssertExpectations(t)
	})
}

func TestAnalyticsService_CreateSnapshot(t *testing.T) {
	t.Run("stores a snapshot derived from positions", func(t *testing.T) {
		broker := new(MockBrokerClient)
		cacheClient := new(MockCache)
		analyzer := new(MockAnalyzer)
		repo := new(MockSnapshotRepository)
		service := newTestService(broker, cacheClient, analyzer, repo)

		broker.On("GetPositions", mock.Anything, "acct-1").Return(samplePositions(), nil)
		repo.On("Create", mock.Anything, mock.Anything).Return(nil)

		snapshot, err := service.CreateSnapshot(context.Background(), "acct-1")
		require.NoError(t, err)

		assert.Equal(t, "acct-1", snapshot.AccountID)
		assert.Equal(t, "5100", snapshot.TotalValue.String())
		assert.Equal(t, 2, snapshot.PositionCount)
		assert.True(t, snapshot.HerfindahlIndex.IsPositive())

		repo.AssertExpectations(t)
	})

	t.Run("broker failure aborts the snapshot", func(t *testing.T) {
		broker := new(MockBrokerClient)
		cacheClient := new(MockCache)
		analyzer := new(MockAnalyzer)
		repo := new(MockSnapshotRepository)
		service := newTestService(broker, cacheClient, analyzer, repo)

		broker.On("GetPositions", mock.Anything, "acct-1").Return(nil, errors.New("timeout"))

		_, err := service.CreateSnapshot(context.Background(), "acct-1")
		assert.Error(t, err)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestAnalyticsService_GetPieAnalysis(t *testing.T) {
	t.Run("fills derived fields per pie", func(t *testing.T) {
		broker := new(MockBrokerClient)
		cacheClient := new(MockCache)
		analyzer := new(MockAnalyzer)
		repo := new(MockSnapshotRepository)
		service := newTestService(broker, cacheClient, analyzer, repo)

		positions := samplePositions()
		pies := []models.Pie{
			{
				ID:          "growth",
				Name:        "Growth",
				Positions:   positions[:1],
				TotalReturn: decimal.NewFromInt(102),
			},
		}
		returns := []decimal.Decimal{
			decimal.NewFromFloat(0.02),
			decimal.NewFromFloat(0.01),
		}

		broker.On("GetPositions", mock.Anything, "acct-1").Return(positions, nil)
		broker.On("GetPies", mock.Anything, "acct-1").Return(pies, nil)
		broker.On("GetPortfolioReturns", mock.Anything, "acct-1", mock.Anything, mock.Anything).Return(returns, nil)
		broker.On("GetPieReturns", mock.Anything, "acct-1", "growth", mock.Anything, mock.Anything).Return(returns, nil)

		analyzed, err := service.GetPieAnalysis(context.Background(), "acct-1")
		require.NoError(t, err)
		require.Len(t, analyzed, 1)

		pie := analyzed[0]
		assert.Equal(t, "1600", pie.TotalValue.String())
		assert.Equal(t, "31.37", pie.PortfolioWeight.String())
		require.NotNil(t, pie.TimeWeightedReturn)
		assert.Equal(t, "3.02", pie.TimeWeightedReturn.String())
		require.NotNil(t, pie.PortfolioContribution)
		assert.Equal(t, "2", pie.PortfolioContribution.String())
		require.NotNil(t, pie.RiskMetrics)

		broker.AssertExpectations(t)
	})

	t.Run("pie fetch failure propagates", func(t *testing.T) {
		broker := new(MockBrokerClient)
		cacheClient := new(MockCache)
		analyzer := new(MockAnalyzer)
		repo := new(MockSnapshotRepository)
		service := newTestService(broker, cacheClient, analyzer, repo)

		broker.On("GetPositions", mock.Anything, "acct-1").Return(samplePositions(), nil)
		broker.On("GetPies", mock.Anything, "acct-1").Return(nil, errors.New("unavailable"))

		_, err := service.GetPieAnalysis(context.Background(), "acct-1")
		assert.Error(t, err)
	})
}

func TestAnalyticsService_GetSecurityRisk(t *testing.T) {
	t.Run("derives metrics from price history", func(t *testing.T) {
		broker := new(MockBrokerClient)
		cacheClient := new(MockCache)
		analyzer := new(MockAnalyzer)
		repo := new(MockSnapshotRepository)
		service := newTestService(broker, cacheClient, analyzer, repo)

		base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
		history := &models.HistoricalData{
			Symbol: "AAPL",
			Points: []models.PricePoint{
				{Date: base, Close: decimal.NewFromInt(100)},
				{Date: base.AddDate(0, 0, 1), Close: decimal.NewFromInt(102)},
				{Date: base.AddDate(0, 0, 2), Close: decimal.NewFromInt(101)},
				{Date: base.AddDate(0, 0, 3), Close: decimal.NewFromInt(103)},
			},
		}

		broker.On("GetHistoricalPrices", mock.Anything, "AAPL", mock.Anything, mock.Anything).Return(history, nil)

		metrics, err := service.GetSecurityRisk(context.Background(), "AAPL")
		require.NoError(t, err)
		require.NotNil(t, metrics)
		assert.True(t, metrics.Volatility.IsPositive())
	})

	t.Run("out of order history is rejected", func(t *testing.T) {
		broker := new(MockBrokerClient)
		cacheClient := new(MockCache)
		analyzer := new(MockAnalyzer)
		repo := new(MockSnapshotRepository)
		service := newTestService(broker, cacheClient, analyzer, repo)

		base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
		history := &models.HistoricalData{
			Symbol: "AAPL",
			Points: []models.PricePoint{
				{Date: base.AddDate(0, 0, 1), Close: decimal.NewFromInt(100)},
				{Date: base, Close: decimal.NewFromInt(102)},
			},
		}

		broker.On("GetHistoricalPrices", mock.Anything, "AAPL", mock.Anything, mock.Anything).Return(history, nil)

		_, err := service.GetSecurityRisk(context.Background(), "AAPL")
		assert.Error(t, err)
	})
}
