package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DividendType classifies how a dividend was paid out.
type DividendType string

const (
	DividendTypeCash       DividendType = "CASH"
	DividendTypeStock      DividendType = "STOCK"
	DividendTypeReinvested DividendType = "REINVESTED"
)

// IsValid reports whether the dividend type is one of the known values.
func (d DividendType) IsValid() bool {
	switch d {
	case DividendTypeCash, DividendTypeStock, DividendTypeReinvested:
		return true
	}
	return false
}

// Dividend represents a single dividend payment record.
type Dividend struct {
	Symbol         string          `json:"symbol"`
	SecurityName   string          `json:"security_name,omitempty"`
	Type           DividendType    `json:"dividend_type"`
	AmountPerShare decimal.Decimal `json:"amount_per_share"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	SharesHeld     decimal.Decimal `json:"shares_held"`

	ExDate      time.Time `json:"ex_date"`
	PaymentDate time.Time `json:"payment_date"`

	GrossAmount decimal.Decimal `json:"gross_amount"`
	TaxWithheld decimal.Decimal `json:"tax_withheld"`
	NetAmount   decimal.Decimal `json:"net_amount"`

	Currency           string           `json:"currency,omitempty"`
	FxRate             *decimal.Decimal `json:"fx_rate,omitempty"`
	BaseCurrencyAmount *decimal.Decimal `json:"base_currency_amount,omitempty"`

	IsReinvested      bool             `json:"is_reinvested"`
	ReinvestedShares  *decimal.Decimal `json:"reinvested_shares,omitempty"`
	ReinvestmentPrice *decimal.Decimal `json:"reinvestment_price,omitempty"`
}

// Validate checks the dividend invariants.
func (d *Dividend) Validate() error {
	if d.Symbol == "" {
		return fmt.Errorf("dividend: symbol is required")
	}

	if !d.Type.IsValid() {
		return fmt.Errorf("dividend %s: unknown dividend type %q", d.Symbol, d.Type)
	}

	for name, v := range map[string]decimal.Decimal{
		"amount per share": d.AmountPerShare,
		"total amount":     d.TotalAmount,
		"shares held":      d.SharesHeld,
		"gross amount":     d.GrossAmount,
		"tax withheld":     d.TaxWithheld,
		"net amount":       d.NetAmount,
	} {
		if v.LessThan(decimal.Zero) {
			return fmt.Errorf("dividend %s: %s cannot be negative", d.Symbol, name)
		}
	}

	// net = gross - withheld must hold to the cent.
	if !d.NetAmount.Sub(d.GrossAmount.Sub(d.TaxWithheld)).Abs().LessThanOrEqual(decimal.New(1, -2)) {
		return fmt.Errorf("dividend %s: net amount does not equal gross minus withheld tax", d.Symbol)
	}

	if d.IsReinvested {
		if d.ReinvestedShares == nil || d.ReinvestmentPrice == nil {
			return fmt.Errorf("dividend %s: reinvested shares and reinvestment price are required for reinvested dividends", d.Symbol)
		}
		if d.ReinvestedShares.LessThan(decimal.Zero) {
			return fmt.Errorf("dividend %s: reinvested shares cannot be negative", d.Symbol)
		}
		if d.ReinvestmentPrice.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("dividend %s: reinvestment price must be positive", d.Symbol)
		}
	}

	return nil
}
