/*
Package timesheet implements the leave and work-time domain.

PURPOSE:
  Records who is employed where and on which schedule, which days are
  holidays, which leave was taken and what work was performed, and turns
  that into per-day hour totals. The two algorithmic components are:

  RangeAggregator (aggregator.go):
    users × [from, until] → work/holiday/leave/performed/overtime/remaining hours

  LeaveExpander (expander.go):
    leave + [start, end] + full-day flag → LeaveDate segments, atomically

  Both share the active-contract resolver (resolver.go).

DATA MODEL:
  WorkSchedule        weekday → contracted hours
  EmploymentContract  user + company + schedule over [StartedAt, EndedAt]
  Holiday             (name, date, country)
  Leave / LeaveDate   a leave request and its contiguous per-day spans
  Timesheet           monthly container the spans and performances attach to
  Performance         activity (with duration) or standby day
  Contract            billing contract performances are booked against

SEE ALSO:
  - store.go: Persistence interfaces consumed by the components
  - errors.go: Validation failures
  - lifecycle.go: Leave and timesheet state machines
*/
package timesheet

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/worktime/generic"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type CompanyID string
type WorkScheduleID string
type EmploymentContractID string
type HolidayID string
type LeaveTypeID string
type LeaveID string
type LeaveDateID string
type TimesheetID string

// =============================================================================
// USER / COMPANY
// =============================================================================

// User is the identity the engine tracks. The calculation core only uses ID.
type User struct {
	ID        UserID
	Username  string
	FirstName string
	LastName  string
	Email     string
	Active    bool
}

// Company is either an internal employer or a customer.
type Company struct {
	ID       CompanyID
	Name     string
	Country  string // ISO 3166 alpha-2, matched against Holiday.Country
	Internal bool
}

// =============================================================================
// WORK SCHEDULE
// =============================================================================

// WorkSchedule maps each weekday to the contracted hours for that day.
type WorkSchedule struct {
	ID        WorkScheduleID
	Name      string
	Monday    decimal.Decimal
	Tuesday   decimal.Decimal
	Wednesday decimal.Decimal
	Thursday  decimal.Decimal
	Friday    decimal.Decimal
	Saturday  decimal.Decimal
	Sunday    decimal.Decimal
}

var maxDayHours = decimal.NewFromInt(24)

// HoursFor returns the contracted hours for a weekday.
func (ws WorkSchedule) HoursFor(day time.Weekday) decimal.Decimal {
	switch day {
	case time.Monday:
		return ws.Monday
	case time.Tuesday:
		return ws.Tuesday
	case time.Wednesday:
		return ws.Wednesday
	case time.Thursday:
		return ws.Thursday
	case time.Friday:
		return ws.Friday
	case time.Saturday:
		return ws.Saturday
	case time.Sunday:
		return ws.Sunday
	}
	panic(fmt.Sprintf("timesheet: unknown weekday %d", day))
}

// Validate checks every weekday holds 0 <= hours <= 24.
func (ws WorkSchedule) Validate() error {
	for day := time.Sunday; day <= time.Saturday; day++ {
		h := ws.HoursFor(day)
		if h.IsNegative() || h.GreaterThan(maxDayHours) {
			return ErrInvalidScheduleHours.WithMessage("%s hours must be between 0 and 24, got %s", day, h)
		}
	}
	return nil
}

// WeeklyHours sums the contracted hours over a week.
func (ws WorkSchedule) WeeklyHours() decimal.Decimal {
	return generic.SumHours(ws.Monday, ws.Tuesday, ws.Wednesday, ws.Thursday, ws.Friday, ws.Saturday, ws.Sunday)
}

// =============================================================================
// EMPLOYMENT CONTRACT
// =============================================================================

// EmploymentContract binds a user to a company and work schedule for
// [StartedAt, EndedAt]. A nil EndedAt means the contract is open-ended.
type EmploymentContract struct {
	ID           EmploymentContractID
	UserID       UserID
	Company      Company
	WorkSchedule WorkSchedule
	StartedAt    generic.TimePoint
	EndedAt      *generic.TimePoint
}

// Covers reports whether date falls within the contract's validity interval.
func (ec EmploymentContract) Covers(date generic.TimePoint) bool {
	if date.Before(ec.StartedAt) {
		return false
	}
	return ec.EndedAt == nil || date.BeforeOrEqual(*ec.EndedAt)
}

// Validate checks the interval is well-formed.
func (ec EmploymentContract) Validate() error {
	if ec.EndedAt != nil && ec.EndedAt.Before(ec.StartedAt) {
		return ErrContractEndBeforeStart
	}
	return nil
}

// =============================================================================
// HOLIDAY
// =============================================================================

// Holiday suppresses scheduled work for users employed in Country on Date.
type Holiday struct {
	ID      HolidayID
	Name    string
	Date    generic.TimePoint
	Country string
}

// =============================================================================
// LEAVE
// =============================================================================

type LeaveStatus string

const (
	LeaveDraft    LeaveStatus = "draft"
	LeavePending  LeaveStatus = "pending"
	LeaveApproved LeaveStatus = "approved"
	LeaveRejected LeaveStatus = "rejected"
)

type LeaveType struct {
	ID   LeaveTypeID
	Name string
}

// Attachment is a file reference added to a leave. Storage is external.
type Attachment struct {
	ID   string
	Name string
	URL  string
}

// Leave is a leave request and the spans it covers.
type Leave struct {
	ID          LeaveID
	UserID      UserID
	LeaveTypeID LeaveTypeID
	Description string
	Status      LeaveStatus
	Attachments []Attachment
	Dates       []LeaveDate
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Hours returns the total leave hours over all spans.
func (l *Leave) Hours() decimal.Decimal {
	total := decimal.Zero
	for _, d := range l.Dates {
		total = total.Add(d.Hours())
	}
	return total
}

// LeaveDate is one contiguous span of leave inside a single calendar day.
type LeaveDate struct {
	ID          LeaveDateID
	LeaveID     LeaveID
	TimesheetID TimesheetID
	UserID      UserID
	StartsAt    time.Time
	EndsAt      time.Time
}

// Day returns the calendar day the span starts on.
func (d LeaveDate) Day() generic.TimePoint {
	return generic.DateOf(d.StartsAt)
}

// Hours returns the span length rounded to two decimals.
func (d LeaveDate) Hours() decimal.Decimal {
	return generic.HoursBetween(d.StartsAt, d.EndsAt)
}

// Overlaps reports whether two spans share any instant.
func (d LeaveDate) Overlaps(other LeaveDate) bool {
	return d.StartsAt.Before(other.EndsAt) && other.StartsAt.Before(d.EndsAt)
}

// =============================================================================
// TIMESHEET
// =============================================================================

type TimesheetStatus string

const (
	TimesheetActive  TimesheetStatus = "active"
	TimesheetPending TimesheetStatus = "pending"
	TimesheetClosed  TimesheetStatus = "closed"
)

// Timesheet is the monthly container, unique per (user, year, month).
type Timesheet struct {
	ID     TimesheetID
	UserID UserID
	Year   int
	Month  int
	Status TimesheetStatus
}
