package timesheet

import (
	"github.com/shopspring/decimal"
	"github.com/warp/worktime/generic"
)

type PerformanceID string

// PerformanceKind is the discriminator for the Performance family.
type PerformanceKind string

const (
	PerformanceActivity PerformanceKind = "activity"
	PerformanceStandby  PerformanceKind = "standby"
)

var (
	minActivityDuration = decimal.New(1, -2)
	maxActivityDuration = decimal.NewFromInt(24)
)

// Performance is a day-level record on a timesheet. Activity is set only
// for PerformanceActivity; a standby day carries no duration.
type Performance struct {
	ID          PerformanceID
	Kind        PerformanceKind
	TimesheetID TimesheetID
	UserID      UserID
	Date        generic.TimePoint
	ContractID  ContractID
	Activity    *ActivityDetails
}

// ActivityDetails are the fields specific to an activity performance.
type ActivityDetails struct {
	PerformanceTypeID PerformanceTypeID
	Description       string
	Duration          decimal.Decimal
}

// Duration returns the performed hours, zero for standby.
func (p Performance) Duration() decimal.Decimal {
	if p.Kind != PerformanceActivity || p.Activity == nil {
		return decimal.Zero
	}
	return p.Activity.Duration
}

// Validate checks the variant payload and duration bounds.
func (p Performance) Validate() error {
	switch p.Kind {
	case PerformanceActivity:
		if p.Activity == nil {
			return ErrInvalidDuration.WithMessage("activity performance requires a duration")
		}
		d := p.Activity.Duration
		if d.LessThan(minActivityDuration) || d.GreaterThan(maxActivityDuration) {
			return ErrInvalidDuration.WithMessage("duration must be between 0.01 and 24 hours, got %s", d)
		}
	case PerformanceStandby:
		if p.Activity != nil {
			return ErrInvalidDuration.WithMessage("standby performance has no duration")
		}
	default:
		return ErrPerformanceKind.WithMessage("unknown performance kind %q", p.Kind)
	}
	if p.ContractID == "" {
		return ErrPerformanceContract
	}
	return nil
}
