/*
Package generic provides the domain-agnostic primitives of the worktime engine.

PURPOSE:
  The calculation engine works on calendar days and decimal hour counts.
  This package holds the small set of types every other package shares so
  that the timesheet domain never deals with raw floats or ad-hoc date math.

KEY CONCEPTS IN THIS FILE (types.go):
  - Hours: decimal.Decimal quantities, always rounded to 2 places on output
  - Helpers for building, clamping and summing hour quantities

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point drift in sums
  2. Day granularity: TimePoint (time.go) is a calendar day, not an instant
  3. Typed failures: ValidationError (errors.go) carries a field and a code

USAGE:
  work := generic.MustParseHours("8")
  leave := generic.HoursBetween(start, end)
  overtime := generic.NonNegative(leave.Sub(work))

SEE ALSO:
  - time.go: TimePoint
  - period.go: Period and day iteration
  - errors.go: Validation error taxonomy
*/
package generic

import (
	"time"

	"github.com/shopspring/decimal"
)

// HoursPrecision is the number of decimal places hour totals are rounded to.
const HoursPrecision = 2

// MustParseHours parses a decimal string, returning zero on failure.
func MustParseHours(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// HoursBetween returns end-start in hours, rounded to HoursPrecision.
func HoursBetween(start, end time.Time) decimal.Decimal {
	seconds := decimal.NewFromInt(int64(end.Sub(start) / time.Second))
	return seconds.Div(decimal.NewFromInt(3600)).Round(HoursPrecision)
}

// HoursToDuration converts an hour count to a duration, truncated to the minute.
func HoursToDuration(h decimal.Decimal) time.Duration {
	whole := h.Truncate(0)
	minutes := h.Sub(whole).Mul(decimal.NewFromInt(60)).Truncate(0)
	return time.Duration(whole.IntPart())*time.Hour + time.Duration(minutes.IntPart())*time.Minute
}

// NonNegative returns max(0, d).
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// SumHours adds up a list of hour quantities.
func SumHours(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// HoursFloat returns d as a float64 rounded to HoursPrecision, for serialization.
func HoursFloat(d decimal.Decimal) float64 {
	f, _ := d.Round(HoursPrecision).Float64()
	return f
}
