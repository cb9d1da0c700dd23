package calculator

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"portfolio-analytics-api/internal/models"
)

// Sort keys accepted by BySecurity.
const (
	SortByTotalDividends = "total_dividends"
	SortByDividendCount  = "dividend_count"
	SortByTTMDividends   = "ttm_dividends"
	SortByYield          = "yield"
)

type DividendCalculator struct {
	now func() time.Time
}

func NewDividendCalculator() *DividendCalculator {
	return &DividendCalculator{now: time.Now}
}

// MonthlyDividend is the income received during one calendar month.
type MonthlyDividend struct {
	Month       string          `json:"month"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Count       int             `json:"count"`
}

// SecurityDividends aggregates the dividend history of one security.
type SecurityDividends struct {
	Symbol         string           `json:"symbol"`
	SecurityName   string           `json:"security_name,omitempty"`
	TotalDividends decimal.Decimal  `json:"total_dividends"`
	DividendCount  int              `json:"dividend_count"`
	TTMDividends   decimal.Decimal  `json:"ttm_dividends"`
	CurrentYield   *decimal.Decimal `json:"current_yield,omitempty"`
}

// ReinvestmentAnalysis splits dividend income into reinvested and cash-paid.
type ReinvestmentAnalysis struct {
	TotalAmount      decimal.Decimal `json:"total_amount"`
	ReinvestedAmount decimal.Decimal `json:"reinvested_amount"`
	CashAmount       decimal.Decimal `json:"cash_amount"`
	ReinvestmentRate decimal.Decimal `json:"reinvestment_rate"`
	SharesAcquired   decimal.Decimal `json:"shares_acquired"`
}

// IncomeProjection forecasts forward dividend income from trailing history.
type IncomeProjection struct {
	AnnualProjection    decimal.Decimal `json:"annual_projection"`
	QuarterlyProjection decimal.Decimal `json:"quarterly_projection"`
	MonthlyProjection   decimal.Decimal `json:"monthly_projection"`
	MonthsOfHistory     int             `json:"months_of_history"`
	Confidence          string          `json:"confidence"`
}

// TaxAnalysis summarizes withholding across a dividend history.
type TaxAnalysis struct {
	TotalGross       decimal.Decimal  `json:"total_gross"`
	TotalWithheld    decimal.Decimal  `json:"total_withheld"`
	TotalNet         decimal.Decimal  `json:"total_net"`
	EffectiveTaxRate *decimal.Decimal `json:"effective_tax_rate,omitempty"`
}

// MonthlyHistory groups dividends by calendar month of the payment date and
// returns the most recent months in chronological order. months <= 0 returns
// the full history.
func (dc *DividendCalculator) MonthlyHistory(dividends []models.Dividend, months int) []MonthlyDividend {
	byMonth := make(map[string]*MonthlyDividend)
	for _, d := range dividends {
		key := d.PaymentDate.Format("2006-01")
		entry, ok := byMonth[key]
		if !ok {
			entry = &MonthlyDividend{Month: key}
			byMonth[key] = entry
		}
		entry.TotalAmount = entry.TotalAmount.Add(d.TotalAmount)
		entry.Count++
	}

	history := make([]MonthlyDividend, 0, len(byMonth))
	for _, entry := range byMonth {
		entry.TotalAmount = entry.TotalAmount.Round(2)
		history = append(history, *entry)
	}
	sort.Slice(history, func(i, j int) bool { return history[i].Month < history[j].Month })

	if months > 0 && len(history) > months {
		history = history[len(history)-months:]
	}
	return history
}

// BySecurity aggregates dividends per symbol, deriving trailing-12-month
// income and, where a current position exists, the trailing yield against
// its market value. Results sort descending by sortBy and are truncated to
// limit when positive.
func (dc *DividendCalculator) BySecurity(dividends []models.Dividend, positions []models.Position, sortBy string, limit int) ([]SecurityDividends, error) {
	if sortBy == "" {
		sortBy = SortByTotalDividends
	}
	switch sortBy {
	case SortByTotalDividends, SortByDividendCount, SortByTTMDividends, SortByYield:
	default:
		return nil, fmt.Errorf("invalid sort key: %s", sortBy)
	}

	ttmCutoff := dc.now().AddDate(-1, 0, 0)

	bySymbol := make(map[string]*SecurityDividends)
	for _, d := range dividends {
		entry, ok := bySymbol[d.Symbol]
		if !ok {
			entry = &SecurityDividends{Symbol: d.Symbol, SecurityName: d.SecurityName}
			bySymbol[d.Symbol] = entry
		}
		entry.TotalDividends = entry.TotalDividends.Add(d.TotalAmount)
		entry.DividendCount++
		if !d.PaymentDate.Before(ttmCutoff) {
			entry.TTMDividends = entry.TTMDividends.Add(d.TotalAmount)
		}
	}

	positionValues := make(map[string]decimal.Decimal, len(positions))
	for _, pos := range positions {
		positionValues[pos.Symbol] = pos.MarketValue
	}

	results := make([]SecurityDividends, 0, len(bySymbol))
	for _, entry := range bySymbol {
		entry.TotalDividends = entry.TotalDividends.Round(2)
		entry.TTMDividends = entry.TTMDividends.Round(2)

		if value, ok := positionValues[entry.Symbol]; ok && value.IsPositive() {
			yield := entry.TTMDividends.Div(value).Mul(decimal.NewFromInt(100)).Round(2)
			entry.CurrentYield = &yield
		}
		results = append(results, *entry)
	}

	sort.Slice(results, func(i, j int) bool {
		switch sortBy {
		case SortByDividendCount:
			if results[i].DividendCount != results[j].DividendCount {
				return results[i].DividendCount > results[j].DividendCount
			}
		case SortByTTMDividends:
			if !results[i].TTMDividends.Equal(results[j].TTMDividends) {
				return results[i].TTMDividends.GreaterThan(results[j].TTMDividends)
			}
		case SortByYield:
			yi, yj := results[i].CurrentYield, results[j].CurrentYield
			switch {
			case yi != nil && yj == nil:
				return true
			case yi == nil && yj != nil:
				return false
			case yi != nil && yj != nil && !yi.Equal(*yj):
				return yi.GreaterThan(*yj)
			}
		default:
			if !results[i].TotalDividends.Equal(results[j].TotalDividends) {
				return results[i].TotalDividends.GreaterThan(results[j].TotalDividends)
			}
		}
		return results[i].Symbol < results[j].Symbol
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// ReinvestmentAnalysis partitions income into reinvested and cash-paid and
// computes the reinvestment rate plus shares acquired through reinvestment.
func (dc *DividendCalculator) ReinvestmentAnalysis(dividends []models.Dividend) *ReinvestmentAnalysis {
	analysis := &ReinvestmentAnalysis{}
	for _, d := range dividends {
		analysis.TotalAmount = analysis.TotalAmount.Add(d.TotalAmount)
		if d.IsReinvested {
			analysis.ReinvestedAmount = analysis.ReinvestedAmount.Add(d.TotalAmount)
			if d.ReinvestedShares != nil {
				analysis.SharesAcquired = analysis.SharesAcquired.Add(*d.ReinvestedShares)
			}
		} else {
			analysis.CashAmount = analysis.CashAmount.Add(d.TotalAmount)
		}
	}

	if analysis.TotalAmount.IsPositive() {
		analysis.ReinvestmentRate = analysis.ReinvestedAmount.
			Div(analysis.TotalAmount).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}

	analysis.TotalAmount = analysis.TotalAmount.Round(2)
	analysis.ReinvestedAmount = analysis.ReinvestedAmount.Round(2)
	analysis.CashAmount = analysis.CashAmount.Round(2)
	return analysis
}

// IncomeProjection annualizes trailing-12-month income for currently held
// securities and splits it into even quarterly and monthly figures. The
// confidence qualifier is "high" with a full year of history, "low"
// otherwise.
func (dc *DividendCalculator) IncomeProjection(dividends []models.Dividend, positions []models.Position, now time.Time) *IncomeProjection {
	held := make(map[string]struct{}, len(positions))
	for _, pos := range positions {
		held[pos.Symbol] = struct{}{}
	}

	ttmCutoff := now.AddDate(-1, 0, 0)
	annual := decimal.Zero
	var earliest time.Time

	for _, d := range dividends {
		if earliest.IsZero() || d.PaymentDate.Before(earliest) {
			earliest = d.PaymentDate
		}
		if _, ok := held[d.Symbol]; !ok {
			continue
		}
		if d.PaymentDate.Before(ttmCutoff) || d.PaymentDate.After(now) {
			continue
		}
		annual = annual.Add(d.TotalAmount)
	}

	monthsOfHistory := 0
	if !earliest.IsZero() {
		monthsOfHistory = int(now.Sub(earliest).Hours() / (24 * 30))
	}

	confidence := "low"
	if monthsOfHistory >= 12 {
		confidence = "high"
	}

	return &IncomeProjection{
		AnnualProjection:    annual.Round(2),
		QuarterlyProjection: annual.Div(decimal.NewFromInt(4)).Round(2),
		MonthlyProjection:   annual.Div(decimal.NewFromInt(12)).Round(2),
		MonthsOfHistory:     monthsOfHistory,
		Confidence:          confidence,
	}
}

// TaxAnalysis totals gross, withheld and net amounts. The effective tax rate
// is nil when no gross income exists.
func (dc *DividendCalculator) TaxAnalysis(dividends []models.Dividend) *TaxAnalysis {
	analysis := &TaxAnalysis{}
	for _, d := range dividends {
		analysis.TotalGross = analysis.TotalGross.Add(d.GrossAmount)
		analysis.TotalWithheld = analysis.TotalWithheld.Add(d.TaxWithheld)
		analysis.TotalNet = analysis.TotalNet.Add(d.NetAmount)
	}

	if analysis.TotalGross.IsPositive() {
		rate := analysis.TotalWithheld.
			Div(analysis.TotalGross).
			Mul(decimal.NewFromInt(100)).
			Round(2)
		analysis.EffectiveTaxRate = &rate
	}

	analysis.TotalGross = analysis.TotalGross.Round(2)
	analysis.TotalWithheld = analysis.TotalWithheld.Round(2)
	analysis.TotalNet = analysis.TotalNet.Round(2)
	return analysis
}
