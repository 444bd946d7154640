/*
expander.go - Expanding a leave's date range into per-day LeaveDates

PURPOSE:
  Turns "leave from X to Y" into the concrete spans stored on the leave.
  A partial-day request becomes exactly one span. A full-day request
  becomes one span per workable day, sized to the day's scheduled hours.

ALGORITHM (all inside one transaction):
  1. Load the leave; only draft and pending leaves may change dates, and
     only while every timesheet holding one of its spans is active.
  2. Delete every existing span (full replace, never incremental).
  3. Build the new spans:
     - partial day: [starts_at, ends_at] as given
     - full day: for every day of [starts_at.date, ends_at.date], resolve
       the active contract (cached until it stops covering the day), skip
       days with no scheduled hours or with a holiday in the contract's
       country, else span from the workday start hour for the scheduled
       hours.
  4. No span at all → ErrNoLeaveDates.
  5. Get-or-create the month's timesheet per span and insert the span
     (overlap with other leaves of the user is rejected by the store).
  6. Mark the leave pending and save.
  Any error rolls back every change, including the deletion in step 2.

SECOND NORMALIZATION:
  Starts are stored at second 1 and ends at second 0. Two spans touching
  at the same minute then never compare as overlapping. Stored data and
  the store overlap checks depend on this.

SEE ALSO:
  - resolver.go: ContractCursor
  - store.go: LeaveStore contract (overlap, get-or-create)
*/
package timesheet

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/warp/worktime/generic"
)

// DefaultWorkdayStartHour is the hour full-day leave spans start at.
const DefaultWorkdayStartHour = 9

// LeaveExpander applies date ranges to leaves.
type LeaveExpander struct {
	Store            TxStore
	WorkdayStartHour int

	// Location is the business timezone days and spans are computed in.
	Location *time.Location
	Logger   logrus.FieldLogger
	Now      func() time.Time
}

// NewLeaveExpander creates an expander using the default workday start in UTC.
func NewLeaveExpander(store TxStore) *LeaveExpander {
	return &LeaveExpander{
		Store:            store,
		WorkdayStartHour: DefaultWorkdayStartHour,
		Location:         time.UTC,
		Logger:           logrus.StandardLogger(),
		Now:              time.Now,
	}
}

// ApplyDateRange replaces the leave's spans with those implied by
// [startsAt, endsAt] and moves it to pending. On error nothing changes.
func (e *LeaveExpander) ApplyDateRange(ctx context.Context, id LeaveID, startsAt, endsAt time.Time, fullDay bool) (*Leave, error) {
	return e.expand(ctx, startsAt, endsAt, fullDay, func(s Store) (*Leave, error) {
		return s.GetLeave(ctx, id)
	})
}

// CreateLeave stores leave as a draft and applies [startsAt, endsAt] to
// it in the same transaction. On error the leave is not stored.
func (e *LeaveExpander) CreateLeave(ctx context.Context, leave *Leave, startsAt, endsAt time.Time, fullDay bool) (*Leave, error) {
	return e.expand(ctx, startsAt, endsAt, fullDay, func(s Store) (*Leave, error) {
		leave.Status = LeaveDraft
		leave.Dates = nil
		leave.CreatedAt = e.now()
		leave.UpdatedAt = leave.CreatedAt
		if err := s.SaveLeave(ctx, leave); err != nil {
			return nil, fmt.Errorf("failed to save leave: %w", err)
		}
		return s.GetLeave(ctx, leave.ID)
	})
}

func (e *LeaveExpander) expand(ctx context.Context, startsAt, endsAt time.Time, fullDay bool, load func(Store) (*Leave, error)) (*Leave, error) {
	loc := e.location()
	startsAt, endsAt = startsAt.In(loc), endsAt.In(loc)
	if endsAt.Before(startsAt) {
		return nil, ErrEndBeforeStart
	}
	startsAt = normalizeStart(startsAt)
	endsAt = normalizeEnd(endsAt)

	if !fullDay {
		if !generic.DateOf(startsAt).Equal(generic.DateOf(endsAt)) {
			return nil, ErrMultipleDays
		}
		if !endsAt.After(startsAt) {
			return nil, ErrEndBeforeStart
		}
	}

	var (
		id     LeaveID
		result *Leave
	)
	err := e.Store.WithTx(ctx, func(s Store) error {
		leave, err := load(s)
		if err != nil {
			return err
		}
		id = leave.ID
		if !leave.CanEditDates() {
			return ErrLeaveFinalized
		}
		if err := ensureEntriesEditable(ctx, s, leave.Dates); err != nil {
			return err
		}

		if err := s.DeleteLeaveDates(ctx, leave.ID); err != nil {
			return fmt.Errorf("failed to delete leave dates: %w", err)
		}
		leave.Dates = nil
		if leave.Status == LeavePending {
			if err := leave.Transition(LeaveDraft); err != nil {
				return err
			}
		}

		spans, err := e.spans(ctx, s, leave.UserID, startsAt, endsAt, fullDay)
		if err != nil {
			return err
		}
		if len(spans) == 0 {
			return ErrNoLeaveDates
		}

		for _, sp := range spans {
			ld, err := e.createLeaveDate(ctx, s, leave, sp)
			if err != nil {
				return err
			}
			leave.Dates = append(leave.Dates, ld)
		}

		if err := leave.Transition(LeavePending); err != nil {
			return err
		}
		leave.UpdatedAt = e.now()
		if err := s.SaveLeave(ctx, leave); err != nil {
			return fmt.Errorf("failed to save leave: %w", err)
		}
		result = leave
		return nil
	})
	if err != nil {
		e.logger().WithFields(logrus.Fields{
			"leave":    id,
			"starts":   startsAt.Format(time.RFC3339),
			"ends":     endsAt.Format(time.RFC3339),
			"full_day": fullDay,
		}).WithError(err).Debug("leave date range rejected")
		return nil, err
	}

	e.logger().WithFields(logrus.Fields{
		"leave": id,
		"spans": len(result.Dates),
	}).Debug("leave date range applied")
	return result, nil
}

type span struct {
	start time.Time
	end   time.Time
}

func (e *LeaveExpander) spans(ctx context.Context, s Store, user UserID, startsAt, endsAt time.Time, fullDay bool) ([]span, error) {
	if !fullDay {
		return []span{{start: startsAt, end: endsAt}}, nil
	}

	period := generic.Period{Start: generic.DateOf(startsAt), End: generic.DateOf(endsAt)}
	contracts, err := s.EmploymentContractsBetween(ctx, []UserID{user}, period)
	if err != nil {
		return nil, fmt.Errorf("failed to load employment contracts: %w", err)
	}
	holidays, err := s.HolidaysBetween(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("failed to load holidays: %w", err)
	}
	holidayCountries := make(map[string]map[string]bool)
	for _, h := range holidays {
		key := h.Date.String()
		if holidayCountries[key] == nil {
			holidayCountries[key] = make(map[string]bool)
		}
		holidayCountries[key][h.Country] = true
	}

	cursor := NewContractIndex(contracts).Cursor(user)
	var out []span
	for _, day := range period.Days() {
		contract := cursor.At(day)
		if contract == nil {
			continue
		}
		hours := contract.WorkSchedule.HoursFor(day.Weekday())
		if !hours.IsPositive() || holidayCountries[day.String()][contract.Company.Country] {
			continue
		}
		out = append(out, e.fullDaySpan(day, hours))
	}
	return out, nil
}

// fullDaySpan spans from the workday start for the scheduled hours,
// capped at the end of the day.
func (e *LeaveExpander) fullDaySpan(day generic.TimePoint, hours decimal.Decimal) span {
	loc := e.location()
	length := generic.HoursToDuration(hours)
	endHour := e.WorkdayStartHour + int(length/time.Hour)
	endMinute := int((length % time.Hour) / time.Minute)

	end := day.At(endHour, endMinute, 0, loc)
	if endHour >= 24 {
		end = day.At(23, 59, 59, loc)
	}
	return span{start: day.At(e.WorkdayStartHour, 0, 1, loc), end: end}
}

func (e *LeaveExpander) createLeaveDate(ctx context.Context, s Store, leave *Leave, sp span) (LeaveDate, error) {
	ts, err := s.GetOrCreateTimesheet(ctx, leave.UserID, sp.start.Year(), int(sp.start.Month()))
	if err != nil {
		return LeaveDate{}, fmt.Errorf("failed to get timesheet: %w", err)
	}
	if !ts.AllowsEntries() {
		return LeaveDate{}, ErrTimesheetNotActive.WithMessage("the timesheet for %d-%02d is %s", ts.Year, ts.Month, ts.Status)
	}

	ld := LeaveDate{
		LeaveID:     leave.ID,
		TimesheetID: ts.ID,
		UserID:      leave.UserID,
		StartsAt:    sp.start,
		EndsAt:      sp.end,
	}
	if err := s.CreateLeaveDate(ctx, &ld); err != nil {
		return LeaveDate{}, err
	}
	return ld, nil
}

func (e *LeaveExpander) location() *time.Location {
	if e.Location == nil {
		return time.UTC
	}
	return e.Location
}

func (e *LeaveExpander) logger() logrus.FieldLogger {
	if e.Logger == nil {
		return logrus.StandardLogger()
	}
	return e.Logger
}

func (e *LeaveExpander) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func normalizeStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 1, 0, t.Location())
}

func normalizeEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
}
