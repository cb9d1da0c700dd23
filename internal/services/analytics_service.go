package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"portfolio-analytics-api/internal/analytics"
	"portfolio-analytics-api/internal/calculator"
	"portfolio-analytics-api/internal/models"
	"portfolio-analytics-api/internal/repositories"
	"portfolio-analytics-api/pkg/cache"
)

// Interfaces for testing
type CacheInterface interface {
	GetAnalysis(ctx context.Context, accountID string, dest interface{}) error
	SetAnalysis(ctx context.Context, accountID string, analysis interface{}) error
	GetRiskMetrics(ctx context.Context, accountID string, dest interface{}) error
	SetRiskMetrics(ctx context.Context, accountID string, metrics interface{}) error
	GetDividendSummary(ctx context.Context, accountID string, dest interface{}) error
	SetDividendSummary(ctx context.Context, accountID string, summary interface{}) error
	InvalidateAccount(ctx context.Context, accountID string) error
}

type BrokerClientInterface interface {
	GetPositions(ctx context.Context, accountID string) ([]models.Position, error)
	GetDividends(ctx context.Context, accountID string, from, to time.Time) ([]models.Dividend, error)
	GetPortfolioReturns(ctx context.Context, accountID string, from, to time.Time) ([]decimal.Decimal, error)
	GetPies(ctx context.Context, accountID string) ([]models.Pie, error)
	GetPieReturns(ctx context.Context, accountID, pieID string, from, to time.Time) ([]decimal.Decimal, error)
	GetHistoricalPrices(ctx context.Context, symbol string, from, to time.Time) (*models.HistoricalData, error)
}

type AnalyzerInterface interface {
	PerformComprehensiveAnalysis(input analytics.AnalysisInput) (*analytics.ComprehensiveAnalysis, error)
}

// AnalyticsService fetches raw account data, runs the calculators and
// caches the results per account.
type AnalyticsService struct {
	analyzer        AnalyzerInterface
	risk            *calculator.RiskCalculator
	dividend        *calculator.DividendCalculator
	diversification *calculator.DiversificationCalculator
	pie             *calculator.PieCalculator
	broker          BrokerClientInterface
	cache           CacheInterface
	snapshotRepo    repositories.SnapshotRepository
	log             *logrus.Entry

	// ReturnLookback bounds the historical window fetched for risk metrics.
	ReturnLookback time.Duration
	// DividendLookback bounds the dividend history window.
	DividendLookback time.Duration
}

func NewAnalyticsService(
	analyzer AnalyzerInterface,
	risk *calculator.RiskCalculator,
	dividend *calculator.DividendCalculator,
	diversification *calculator.DiversificationCalculator,
	broker BrokerClientInterface,
	cacheClient CacheInterface,
	snapshotRepo repositories.SnapshotRepository,
) *AnalyticsService {
	return &AnalyticsService{
		analyzer:         analyzer,
		risk:             risk,
		dividend:         dividend,
		diversification:  diversification,
		pie:              calculator.NewPieCalculator(risk),
		broker:           broker,
		cache:            cacheClient,
		snapshotRepo:     snapshotRepo,
		log:              logrus.WithField("component", "analytics_service"),
		ReturnLookback:   365 * 24 * time.Hour,
		DividendLookback: 3 * 365 * 24 * time.Hour,
	}
}

// GetComprehensiveAnalysis returns the combined analysis for an account,
// serving from cache when a fresh entry exists.
func (s *AnalyticsService) GetComprehensiveAnalysis(ctx context.Context, accountID string) (*analytics.ComprehensiveAnalysis, error) {
	var cached analytics.ComprehensiveAnalysis
	if err := s.cache.GetAnalysis(ctx, accountID, &cached); err == nil {
		s.log.WithField("account_id", accountID).Debug("analysis served from cache")
		return &cached, nil
	} else if err != cache.ErrNotFound {
		s.log.WithError(err).Warn("analysis cache read failed")
	}

	now := time.Now()

	positions, err := s.broker.GetPositions(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("fetching positions: %w", err)
	}

	dividends, err := s.broker.GetDividends(ctx, accountID, now.Add(-s.DividendLookback), now)
	if err != nil {
		return nil, fmt.Errorf("fetching dividends: %w", err)
	}

	returns, err := s.broker.GetPortfolioReturns(ctx, accountID, now.Add(-s.ReturnLookback), now)
	if err != nil {
		return nil, fmt.Errorf("fetching returns: %w", err)
	}

	analysis, err := s.analyzer.PerformComprehensiveAnalysis(analytics.AnalysisInput{
		AccountID: accountID,
		Positions: positions,
		Dividends: dividends,
		Returns:   returns,
		AsOf:      now,
	})
	if err != nil {
		return nil, fmt.Errorf("running analysis: %w", err)
	}

	if err := s.cache.SetAnalysis(ctx, accountID, analysis); err != nil {
		s.log.WithError(err).Warn("failed to cache analysis")
	}

	return analysis, nil
}

// GetRiskMetrics returns the risk profile of an account's return series.
func (s *AnalyticsService) GetRiskMetrics(ctx context.Context, accountID string) (*models.RiskMetrics, error) {
	var cached models.RiskMetrics
	if err := s.cache.GetRiskMetrics(ctx, accountID, &cached); err == nil {
		return &cached, nil
	}

	now := time.Now()
	returns, err := s.broker.GetPortfolioReturns(ctx, accountID, now.Add(-s.ReturnLookback), now)
	if err != nil {
		return nil, fmt.Errorf("fetching returns: %w", err)
	}

	metrics, err := s.risk.Metrics(returns, nil)
	if err != nil {
		return nil, fmt.Errorf("computing risk metrics: %w", err)
	}

	if err := s.cache.SetRiskMetrics(ctx, accountID, metrics); err != nil {
		s.log.WithError(err).Warn("failed to cache risk metrics")
	}

	return metrics, nil
}

// GetDividendSummary returns the full dividend analysis for an account.
func (s *AnalyticsService) GetDividendSummary(ctx context.Context, accountID string) (*analytics.DividendSummary, error) {
	var cached analytics.DividendSummary
	if err := s.cache.GetDividendSummary(ctx, accountID, &cached); err == nil {
		return &cached, nil
	}

	now := time.Now()

	positions, err := s.broker.GetPositions(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("fetching positions: %w", err)
	}

	dividends, err := s.broker.GetDividends(ctx, accountID, now.Add(-s.DividendLookback), now)
	if err != nil {
		return nil, fmt.Errorf("fetching dividends: %w", err)
	}

	bySecurity, err := s.dividend.BySecurity(dividends, positions, calculator.SortByTotalDividends, 10)
	if err != nil {
		return nil, fmt.Errorf("dividends by security: %w", err)
	}

	summary := &analytics.DividendSummary{
		MonthlyHistory: s.dividend.MonthlyHistory(dividends, 12),
		BySecurity:     bySecurity,
		Reinvestment:   s.dividend.ReinvestmentAnalysis(dividends),
		Projection:     s.dividend.IncomeProjection(dividends, positions, now),
		Taxes:          s.dividend.TaxAnalysis(dividends),
	}

	if err := s.cache.SetDividendSummary(ctx, accountID, summary); err != nil {
		s.log.WithError(err).Warn("failed to cache dividend summary")
	}

	return summary, nil
}

// GetAllocation returns the account's percentage breakdown along one
// dimension.
func (s *AnalyticsService) GetAllocation(ctx context.Context, accountID string, dimension calculator.Dimension) (map[string]decimal.Decimal, error) {
	positions, err := s.broker.GetPositions(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("fetching positions: %w", err)
	}

	return calculator.NewAllocationCalculator().Breakdown(positions, dimension)
}

// GetSecurityRisk computes the risk profile of a single security from its
// own price history.
func (s *AnalyticsService) GetSecurityRisk(ctx context.Context, symbol string) (*models.RiskMetrics, error) {
	now := time.Now()

	history, err := s.broker.GetHistoricalPrices(ctx, symbol, now.Add(-s.ReturnLookback), now)
	if err != nil {
		return nil, fmt.Errorf("fetching price history: %w", err)
	}

	if err := history.Validate(); err != nil {
		return nil, fmt.Errorf("invalid price history: %w", err)
	}

	metrics, err := s.risk.Metrics(history.Returns(), nil)
	if err != nil {
		return nil, fmt.Errorf("computing risk metrics for %s: %w", symbol, err)
	}

	return metrics, nil
}

// GetPieAnalysis returns the account's pies with derived performance fields
// filled in against the overall portfolio.
func (s *AnalyticsService) GetPieAnalysis(ctx context.Context, accountID string) ([]models.Pie, error) {
	now := time.Now()

	positions, err := s.broker.GetPositions(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("fetching positions: %w", err)
	}

	pies, err := s.broker.GetPies(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("fetching pies: %w", err)
	}

	portfolioReturns, err := s.broker.GetPortfolioReturns(ctx, accountID, now.Add(-s.ReturnLookback), now)
	if err != nil {
		return nil, fmt.Errorf("fetching returns: %w", err)
	}

	portfolioTotal := models.TotalMarketValue(positions)

	for i := range pies {
		pieReturns, err := s.broker.GetPieReturns(ctx, accountID, pies[i].ID, now.Add(-s.ReturnLookback), now)
		if err != nil {
			return nil, fmt.Errorf("fetching returns for pie %s: %w", pies[i].ID, err)
		}

		if err := s.pie.Analyze(&pies[i], portfolioTotal, pieReturns, portfolioReturns); err != nil {
			return nil, fmt.Errorf("analyzing pie %s: %w", pies[i].ID, err)
		}
	}

	return pies, nil
}

// DetectDrift compares the account's allocation against caller targets.
func (s *AnalyticsService) DetectDrift(ctx context.Context, accountID string, targets map[calculator.Dimension]map[string]decimal.Decimal, tolerance decimal.Decimal) (*calculator.DriftReport, error) {
	positions, err := s.broker.GetPositions(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("fetching positions: %w", err)
	}

	return calculator.NewDriftCalculator(nil).Detect(positions, targets, tolerance)
}

// CreateSnapshot persists a point-in-time record of the account's
// diversification profile.
func (s *AnalyticsService) CreateSnapshot(ctx context.Context, accountID string) (*models.Snapshot, error) {
	positions, err := s.broker.GetPositions(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("fetching positions: %w", err)
	}

	score := s.diversification.Score(positions)
	concentration := s.diversification.Concentration(positions)

	sectorAllocation, err := calculator.NewAllocationCalculator().Breakdown(positions, calculator.DimensionSector)
	if err != nil {
		return nil, fmt.Errorf("sector allocation: %w", err)
	}

	invested := decimal.Zero
	pnl := decimal.Zero
	for _, pos := range positions {
		invested = invested.Add(pos.Quantity.Mul(pos.AveragePrice))
		pnl = pnl.Add(pos.UnrealizedPnL)
	}

	snapshot := &models.Snapshot{
		AccountID:        accountID,
		Timestamp:        time.Now(),
		TotalValue:       models.TotalMarketValue(positions),
		InvestedValue:    invested,
		UnrealizedPnL:    pnl,
		PositionCount:    len(positions),
		SectorAllocation: sectorAllocation,
		HerfindahlIndex:  concentration.HerfindahlIndex,
		OverallScore:     score.OverallScore,
	}

	if err := s.snapshotRepo.Create(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("storing snapshot: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"account_id":  accountID,
		"total_value": snapshot.TotalValue.String(),
	}).Info("snapshot created")

	return snapshot, nil
}

// GetSnapshotHistory returns stored snapshots for an account.
func (s *AnalyticsService) GetSnapshotHistory(ctx context.Context, accountID string, limit, offset int) ([]models.Snapshot, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	return s.snapshotRepo.GetByAccountID(ctx, accountID, limit, offset)
}

// InvalidateAccount drops every cached result for an account.
func (s *AnalyticsService) InvalidateAccount(ctx context.Context, accountID string) error {
	return s.cache.InvalidateAccount(ctx, accountID)
}
