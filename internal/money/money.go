// Package money computes rental quotes: tax on a subtotal, day counts and the
// per-day price shown on a reservation.
package money

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

type Quote struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// NewQuote applies rate to subtotal. Tax is rounded to cents before it is added.
func NewQuote(subtotal, rate decimal.Decimal) Quote {
	tax := subtotal.Mul(rate).Round(2)
	return Quote{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax).Round(2),
	}
}

// QuoteOf sums the given subtotals and quotes the result.
func QuoteOf(subtotals []decimal.Decimal, rate decimal.Decimal) Quote {
	return NewQuote(decimal.Sum(decimal.Zero, subtotals...), rate)
}

// Days is the number of rental days between start and end, rounded to whole
// days. It is never less than 1.
func Days(start, end time.Time) int {
	if start.IsZero() || end.IsZero() {
		return 1
	}
	diff := end.Sub(start).Hours() / 24
	if diff <= 0 {
		return 1
	}
	d := int(math.Round(diff))
	if d < 1 {
		return 1
	}
	return d
}

// PerDay splits subtotal over days, rounded to cents.
func PerDay(subtotal decimal.Decimal, days int) decimal.Decimal {
	if days < 1 {
		days = 1
	}
	return subtotal.Div(decimal.NewFromInt(int64(days))).Round(2)
}
