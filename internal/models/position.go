package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AssetType classifies a position by instrument kind.
type AssetType string

const (
	AssetTypeStock     AssetType = "STOCK"
	AssetTypeETF       AssetType = "ETF"
	AssetTypeCrypto    AssetType = "CRYPTO"
	AssetTypeBond      AssetType = "BOND"
	AssetTypeCommodity AssetType = "COMMODITY"
	AssetTypeCash      AssetType = "CASH"
)

// IsValid reports whether the asset type is one of the known values.
func (a AssetType) IsValid() bool {
	switch a {
	case AssetTypeStock, AssetTypeETF, AssetTypeCrypto, AssetTypeBond, AssetTypeCommodity, AssetTypeCash:
		return true
	}
	return false
}

// Position represents a single holding as returned by the brokerage API.
// Positions are value objects: they are built fresh from each data fetch and
// are never mutated by the calculators.
type Position struct {
	Symbol               string          `json:"symbol"`
	Name                 string          `json:"name,omitempty"`
	Quantity             decimal.Decimal `json:"quantity"`
	AveragePrice         decimal.Decimal `json:"average_price"`
	CurrentPrice         decimal.Decimal `json:"current_price"`
	MarketValue          decimal.Decimal `json:"market_value"`
	UnrealizedPnL        decimal.Decimal `json:"unrealized_pnl"`
	UnrealizedPnLPercent decimal.Decimal `json:"unrealized_pnl_percent"`

	Sector    string    `json:"sector,omitempty"`
	Industry  string    `json:"industry,omitempty"`
	Country   string    `json:"country,omitempty"`
	Currency  string    `json:"currency,omitempty"`
	AssetType AssetType `json:"asset_type"`

	LastUpdated time.Time `json:"last_updated,omitempty"`
}

// NewPosition builds a position from the raw fields fetched from the broker,
// deriving market value and unrealized P&L. It rejects values that violate
// the model invariants so the calculators can assume validated input.
func NewPosition(symbol string, quantity, averagePrice, currentPrice decimal.Decimal, assetType AssetType) (*Position, error) {
	p := &Position{
		Symbol:       symbol,
		Quantity:     quantity,
		AveragePrice: averagePrice,
		CurrentPrice: currentPrice,
		MarketValue:  quantity.Mul(currentPrice),
		AssetType:    assetType,
	}

	p.UnrealizedPnL = p.MarketValue.Sub(quantity.Mul(averagePrice))
	invested := quantity.Mul(averagePrice)
	if invested.GreaterThan(decimal.Zero) {
		p.UnrealizedPnLPercent = p.UnrealizedPnL.Div(invested).Mul(decimal.NewFromInt(100))
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

// Validate checks the position invariants.
func (p *Position) Validate() error {
	if p.Symbol == "" {
		return fmt.Errorf("position: symbol is required")
	}

	if p.Quantity.LessThan(decimal.Zero) {
		return fmt.Errorf("position %s: quantity cannot be negative", p.Symbol)
	}

	if p.AveragePrice.LessThan(decimal.Zero) {
		return fmt.Errorf("position %s: average price cannot be negative", p.Symbol)
	}

	if p.CurrentPrice.LessThan(decimal.Zero) {
		return fmt.Errorf("position %s: current price cannot be negative", p.Symbol)
	}

	if p.MarketValue.LessThan(decimal.Zero) {
		return fmt.Errorf("position %s: market value cannot be negative", p.Symbol)
	}

	if p.AssetType != "" && !p.AssetType.IsValid() {
		return fmt.Errorf("position %s: unknown asset type %q", p.Symbol, p.AssetType)
	}

	return nil
}

// TotalMarketValue sums the market value of all positions.
func TotalMarketValue(positions []Position) decimal.Decimal {
	total := decimal.Zero
	for _, pos := range positions {
		total = total.Add(pos.MarketValue)
	}
	return total
}
