package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"portfolio-analytics-api/internal/models"
)

// DiversificationConfig carries the tunable constants of the scorer. The
// sub-score weights and reference category counts are deliberate
// configuration, not hard-coded magic numbers.
type DiversificationConfig struct {
	// Sub-score weights, must sum to 1.
	SectorWeight    float64 `json:"sector_weight" default:"0.30"`
	IndustryWeight  float64 `json:"industry_weight" default:"0.20"`
	GeographyWeight float64 `json:"geography_weight" default:"0.20"`
	AssetTypeWeight float64 `json:"asset_type_weight" default:"0.15"`
	CountWeight     float64 `json:"count_weight" default:"0.15"`

	// Reference effective-category counts: a portfolio equally weighted
	// across this many categories scores 100 on that dimension.
	SectorReference    int `json:"sector_reference" default:"8"`
	IndustryReference  int `json:"industry_reference" default:"10"`
	GeographyReference int `json:"geography_reference" default:"5"`
	AssetTypeReference int `json:"asset_type_reference" default:"4"`

	// PositionReference saturates the position-count sub-score.
	PositionReference int `json:"position_reference" default:"10"`

	// HHI classification thresholds.
	MediumHHIThreshold float64 `json:"medium_hhi_threshold" default:"0.15"`
	HighHHIThreshold   float64 `json:"high_hhi_threshold" default:"0.25"`
}

// DefaultDiversificationConfig returns the documented default constants.
func DefaultDiversificationConfig() DiversificationConfig {
	return DiversificationConfig{
		SectorWeight:       0.30,
		IndustryWeight:     0.20,
		GeographyWeight:    0.20,
		AssetTypeWeight:    0.15,
		CountWeight:        0.15,
		SectorReference:    8,
		IndustryReference:  10,
		GeographyReference: 5,
		AssetTypeReference: 4,
		PositionReference:  10,
		MediumHHIThreshold: 0.15,
		HighHHIThreshold:   0.25,
	}
}

type DiversificationCalculator struct {
	config     DiversificationConfig
	allocation *AllocationCalculator
}

func NewDiversificationCalculator(config DiversificationConfig) *DiversificationCalculator {
	return &DiversificationCalculator{
		config:     config,
		allocation: NewAllocationCalculator(),
	}
}

// DiversificationScore holds the per-dimension sub-scores and their weighted
// average, all on a 0-100 scale.
type DiversificationScore struct {
	SectorScore        decimal.Decimal `json:"sector_score"`
	IndustryScore      decimal.Decimal `json:"industry_score"`
	GeographyScore     decimal.Decimal `json:"geography_score"`
	AssetTypeScore     decimal.Decimal `json:"asset_type_score"`
	PositionCountScore decimal.Decimal `json:"position_count_score"`
	OverallScore       decimal.Decimal `json:"overall_score"`
}

// TopHolding is one entry of the concentration ranking.
type TopHolding struct {
	Rank        int             `json:"rank"`
	Symbol      string          `json:"symbol"`
	Name        string          `json:"name,omitempty"`
	MarketValue decimal.Decimal `json:"market_value"`
	Weight      decimal.Decimal `json:"weight"`
}

// ConcentrationBuckets holds cumulative weights of the largest holdings,
// expressed as percentages.
type ConcentrationBuckets struct {
	Top1  decimal.Decimal `json:"top_1"`
	Top5  decimal.Decimal `json:"top_5"`
	Top10 decimal.Decimal `json:"top_10"`
}

// ConcentrationAnalysis is the concentration view of a position list.
type ConcentrationAnalysis struct {
	HerfindahlIndex    decimal.Decimal      `json:"herfindahl_index"`
	ConcentrationLevel string               `json:"concentration_level"`
	TopHoldings        []TopHolding         `json:"top_holdings"`
	Buckets            ConcentrationBuckets `json:"concentration_buckets"`
}

// Score computes the composite diversification score. Each dimension
// sub-score maps the effective number of categories (inverse HHI of that
// dimension's allocation weights) onto [0,100]: one category scores 0, the
// configured reference count or more scores 100. Empty positions score 0
// everywhere.
func (dc *DiversificationCalculator) Score(positions []models.Position) *DiversificationScore {
	score := &DiversificationScore{}
	if len(positions) == 0 {
		return score
	}

	score.SectorScore = dc.dimensionScore(positions, DimensionSector, dc.config.SectorReference)
	score.IndustryScore = dc.dimensionScore(positions, DimensionIndustry, dc.config.IndustryReference)
	score.GeographyScore = dc.dimensionScore(positions, DimensionCountry, dc.config.GeographyReference)
	score.AssetTypeScore = dc.dimensionScore(positions, DimensionAssetType, dc.config.AssetTypeReference)
	score.PositionCountScore = dc.positionCountScore(len(positions))

	score.OverallScore = score.SectorScore.Mul(decimal.NewFromFloat(dc.config.SectorWeight)).
		Add(score.IndustryScore.Mul(decimal.NewFromFloat(dc.config.IndustryWeight))).
		Add(score.GeographyScore.Mul(decimal.NewFromFloat(dc.config.GeographyWeight))).
		Add(score.AssetTypeScore.Mul(decimal.NewFromFloat(dc.config.AssetTypeWeight))).
		Add(score.PositionCountScore.Mul(decimal.NewFromFloat(dc.config.CountWeight))).
		Round(2)

	return score
}

// Concentration computes the HHI, its classification, the top-10 holdings
// ranking and the cumulative top-N weight buckets. Empty positions yield a
// zero result classified as "Low".
func (dc *DiversificationCalculator) Concentration(positions []models.Position) *ConcentrationAnalysis {
	analysis := &ConcentrationAnalysis{
		ConcentrationLevel: "Low",
		TopHoldings:        make([]TopHolding, 0),
	}
	if len(positions) == 0 {
		return analysis
	}

	totalValue := models.TotalMarketValue(positions)
	if totalValue.IsZero() {
		return analysis
	}

	sorted := make([]models.Position, len(positions))
	copy(sorted, positions)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MarketValue.GreaterThan(sorted[j].MarketValue)
	})

	hhi := decimal.Zero
	hundred := decimal.NewFromInt(100)
	cumulative := decimal.Zero

	for i, pos := range sorted {
		weight := pos.MarketValue.Div(totalValue)
		hhi = hhi.Add(weight.Mul(weight))

		if i < 10 {
			analysis.TopHoldings = append(analysis.TopHoldings, TopHolding{
				Rank:        i + 1,
				Symbol:      pos.Symbol,
				Name:        pos.Name,
				MarketValue: pos.MarketValue,
				Weight:      weight.Mul(hundred).Round(2),
			})
		}

		cumulative = cumulative.Add(weight)
		switch {
		case i == 0:
			analysis.Buckets.Top1 = cumulative.Mul(hundred).Round(2)
		case i == 4:
			analysis.Buckets.Top5 = cumulative.Mul(hundred).Round(2)
		case i == 9:
			analysis.Buckets.Top10 = cumulative.Mul(hundred).Round(2)
		}
	}

	// Fewer than 5 or 10 holdings: the bucket is the whole portfolio.
	if len(sorted) < 5 {
		analysis.Buckets.Top5 = cumulative.Mul(hundred).Round(2)
	}
	if len(sorted) < 10 {
		analysis.Buckets.Top10 = cumulative.Mul(hundred).Round(2)
	}

	analysis.HerfindahlIndex = hhi.Round(4)
	analysis.ConcentrationLevel = dc.classifyHHI(hhi)

	return analysis
}

func (dc *DiversificationCalculator) dimensionScore(positions []models.Position, dimension Dimension, reference int) decimal.Decimal {
	breakdown, err := dc.allocation.Breakdown(positions, dimension)
	if err != nil || len(breakdown) == 0 {
		return decimal.Zero
	}

	// HHI over the dimension's weight fractions.
	hundred := decimal.NewFromInt(100)
	hhi := decimal.Zero
	for _, pct := range breakdown {
		weight := pct.Div(hundred)
		hhi = hhi.Add(weight.Mul(weight))
	}

	if hhi.IsZero() {
		return decimal.Zero
	}

	// Effective category count, mapped linearly onto [0,100]:
	// 1 category -> 0, reference or more -> 100.
	effective := decimal.NewFromInt(1).Div(hhi)
	if reference <= 1 {
		reference = 2
	}

	span := decimal.NewFromInt(int64(reference - 1))
	score := effective.Sub(decimal.NewFromInt(1)).Div(span).Mul(hundred)

	if score.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	if score.GreaterThan(hundred) {
		return hundred
	}
	return score.Round(2)
}

func (dc *DiversificationCalculator) positionCountScore(count int) decimal.Decimal {
	if count <= 0 {
		return decimal.Zero
	}

	reference := dc.config.PositionReference
	if reference <= 0 {
		reference = 10
	}

	if count >= reference {
		return decimal.NewFromInt(100)
	}

	return decimal.NewFromInt(int64(count)).
		Div(decimal.NewFromInt(int64(reference))).
		Mul(decimal.NewFromInt(100)).
		Round(2)
}

func (dc *DiversificationCalculator) classifyHHI(hhi decimal.Decimal) string {
	hhiFloat, _ := hhi.Float64()

	switch {
	case hhiFloat >= dc.config.HighHHIThreshold:
		return "High"
	case hhiFloat >= dc.config.MediumHHIThreshold:
		return "Medium"
	default:
		return "Low"
	}
}
