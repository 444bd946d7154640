package generic

import "time"

// =============================================================================
// PERIOD - A closed range of calendar days
// =============================================================================

// Period is the closed interval [Start, End]. A period whose End is before
// its Start is empty: it contains no days.
type Period struct {
	Start TimePoint
	End   TimePoint
}

// Contains returns true if the day is within [Start, End].
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// IsEmpty reports whether the period contains no days.
func (p Period) IsEmpty() bool {
	return p.End.Before(p.Start)
}

// Days returns all days in the period in ascending order.
func (p Period) Days() []TimePoint {
	var days []TimePoint
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// Overlaps reports whether the period intersects [start, end]. A nil end
// means the other interval is open-ended.
func (p Period) Overlaps(start TimePoint, end *TimePoint) bool {
	if p.IsEmpty() {
		return false
	}
	if start.After(p.End) {
		return false
	}
	return end == nil || end.AfterOrEqual(p.Start)
}

// MonthPeriod returns the period covering a whole calendar month.
func MonthPeriod(year int, month int) Period {
	return Period{
		Start: StartOfMonth(year, time.Month(month)),
		End:   EndOfMonth(year, time.Month(month)),
	}
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
