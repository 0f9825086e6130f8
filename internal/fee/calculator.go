// Package fee computes parking charges from elapsed time and a flat rate.
package fee

import (
	"time"

	"github.com/shopspring/decimal"
)

var nanosPerHour = decimal.NewFromInt(int64(time.Hour))

// AmountDue returns ratePerHour times the hours between entry and now,
// rounded to two decimal places. An entry stamped in the future charges
// nothing.
func AmountDue(entry, now time.Time, ratePerHour decimal.Decimal) decimal.Decimal {
	elapsed := now.Sub(entry)
	if elapsed < 0 {
		elapsed = 0
	}
	hours := decimal.NewFromInt(elapsed.Nanoseconds()).Div(nanosPerHour)
	return ratePerHour.Mul(hours).Round(2)
}
