// Package currency converts prices between currencies using a single rate
// table per refresh run.
package currency

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"tourcatalog/internal/model"
)

// Places is the number of decimal places a converted amount is rounded to.
const Places = 2

var ErrNotConvertible = errors.New("currency not convertible")

func rateFor(table model.RateTable, code string) (decimal.Decimal, bool) {
	code = strings.ToUpper(code)
	if code == strings.ToUpper(table.Base) {
		if r, ok := table.Rates[code]; ok && r.IsPositive() {
			return r, true
		}
		return decimal.NewFromInt(1), true
	}
	r, ok := table.Rates[code]
	if !ok || !r.IsPositive() {
		return decimal.Zero, false
	}
	return r, true
}

// Convert converts amount from one currency to another through the table's
// base unit. The intermediate value is kept at full precision and the result
// is rounded once, half away from zero, to Places.
func Convert(amount decimal.Decimal, from, to string, table model.RateTable) (decimal.Decimal, error) {
	fromRate, ok := rateFor(table, from)
	if !ok {
		return decimal.Zero, errors.Wrapf(ErrNotConvertible, "no rate for %s", from)
	}
	toRate, ok := rateFor(table, to)
	if !ok {
		return decimal.Zero, errors.Wrapf(ErrNotConvertible, "no rate for %s", to)
	}
	if strings.EqualFold(from, to) {
		return amount.Round(Places), nil
	}
	return amount.Div(fromRate).Mul(toRate).Round(Places), nil
}

// AllPrices converts amount into every target currency. Targets that cannot
// be converted are omitted. The source currency is always present.
func AllPrices(amount decimal.Decimal, from string, targets []string, table model.RateTable) map[string]decimal.Decimal {
	from = strings.ToUpper(from)
	out := map[string]decimal.Decimal{from: amount.Round(Places)}
	for _, to := range targets {
		to = strings.ToUpper(to)
		if to == from {
			continue
		}
		v, err := Convert(amount, from, to, table)
		if err != nil {
			continue
		}
		out[to] = v
	}
	return out
}
