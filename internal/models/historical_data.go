package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is a single observation in a price series. Open/high/low and
// volume are optional; only date and close are guaranteed.
type PricePoint struct {
	Date   time.Time        `json:"date"`
	Close  decimal.Decimal  `json:"close"`
	Open   *decimal.Decimal `json:"open,omitempty"`
	High   *decimal.Decimal `json:"high,omitempty"`
	Low    *decimal.Decimal `json:"low,omitempty"`
	Volume *int64           `json:"volume,omitempty"`
}

// HistoricalData is a price time series for one symbol. Dates are strictly
// increasing; spacing may be irregular (weekends, halts) and consumers must
// not assume a fixed interval.
type HistoricalData struct {
	Symbol string       `json:"symbol"`
	Points []PricePoint `json:"points"`
}

// Validate checks the series invariants.
func (h *HistoricalData) Validate() error {
	if h.Symbol == "" {
		return fmt.Errorf("historical data: symbol is required")
	}

	for i, pt := range h.Points {
		if pt.Close.LessThan(decimal.Zero) {
			return fmt.Errorf("historical data %s: close price cannot be negative at index %d", h.Symbol, i)
		}
		if i > 0 && !h.Points[i-1].Date.Before(pt.Date) {
			return fmt.Errorf("historical data %s: dates must be strictly increasing at index %d", h.Symbol, i)
		}
	}

	return nil
}

// Returns derives the fractional period-over-period return series from the
// close prices. Points with a zero previous close are skipped.
func (h *HistoricalData) Returns() []decimal.Decimal {
	if len(h.Points) < 2 {
		return nil
	}

	returns := make([]decimal.Decimal, 0, len(h.Points)-1)
	for i := 1; i < len(h.Points); i++ {
		prev := h.Points[i-1].Close
		if prev.IsZero() {
			continue
		}
		returns = append(returns, h.Points[i].Close.Sub(prev).Div(prev))
	}

	return returns
}
