// Package normalize holds the value conversions shared by every platform transformer.
package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is the reporting currency of every unified record.
const DefaultCurrency = "THB"

// Pair identifies a directed conversion between two ISO currency codes.
type Pair struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Rates is a fixed exchange-rate table. Missing pairs convert at 1.0.
type Rates map[Pair]float64

// DefaultRates returns the built-in table used when no rates file is configured.
func DefaultRates() Rates {
	return Rates{
		{From: "USD", To: "THB"}: 35.0,
		{From: "THB", To: "USD"}: 1 / 35.0,
		{From: "EUR", To: "THB"}: 38.0,
		{From: "GBP", To: "THB"}: 44.0,
		{From: "JPY", To: "THB"}: 0.24,
		{From: "CNY", To: "THB"}: 4.90,
		{From: "SGD", To: "THB"}: 26.0,
		{From: "MYR", To: "THB"}: 7.50,
		{From: "IDR", To: "THB"}: 0.0022,
		{From: "VND", To: "THB"}: 0.0014,
		{From: "PHP", To: "THB"}: 0.63,
	}
}

// Rate returns the rate for from->to, or 1.0 when the pair is unknown.
func (r Rates) Rate(from, to string) float64 {
	if rate, ok := r[Pair{From: strings.ToUpper(from), To: strings.ToUpper(to)}]; ok {
		return rate
	}
	return 1.0
}

// Currency converts monetary amounts using an injected rate table.
type Currency struct {
	rates Rates
}

// NewCurrency builds a converter. A nil table falls back to DefaultRates.
func NewCurrency(rates Rates) *Currency {
	if rates == nil {
		rates = DefaultRates()
	}
	return &Currency{rates: rates}
}

// Normalize converts amount from source to target currency rounded to 2 decimals.
// A nil amount yields a nil result.
func (c *Currency) Normalize(amount any, source, target string) (*float64, error) {
	if amount == nil {
		return nil, nil
	}
	value, err := ToDecimal(amount)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(source, target) {
		out := value.Round(2).InexactFloat64()
		return &out, nil
	}
	rate := decimal.NewFromFloat(c.rates.Rate(source, target))
	out := value.Mul(rate).Round(2).InexactFloat64()
	return &out, nil
}

// MustAmount is Normalize for amounts that are already known to be non-nil numbers.
func (c *Currency) MustAmount(amount float64, source, target string) float64 {
	out, _ := c.Normalize(amount, source, target)
	if out == nil {
		return 0
	}
	return *out
}

// ToDecimal parses the numeric shapes produced by JSON decoding and the extractors.
func ToDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, nil
	case *decimal.Decimal:
		if n == nil {
			return decimal.Zero, nil
		}
		return *n, nil
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(n, ",", ""))
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse amount %q: %w", n, err)
		}
		return d, nil
	case json.Number:
		return ToDecimal(n.String())
	case float64:
		return decimal.NewFromFloat(n), nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int32:
		return decimal.NewFromInt32(n), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case uint:
		return decimal.NewFromUint64(uint64(n)), nil
	case uint64:
		return decimal.NewFromUint64(n), nil
	case bool:
		if n {
			return decimal.NewFromInt(1), nil
		}
		return decimal.Zero, nil
	default:
		return decimal.Zero, fmt.Errorf("unsupported amount type %T", v)
	}
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
