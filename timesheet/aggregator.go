/*
aggregator.go - Range aggregation of scheduled, taken and performed hours

PURPOSE:
  For a set of users and a closed date range, computes per user and per
  day how many hours were scheduled, credited as holiday, taken as leave
  and performed, and derives overtime and remaining hours.

ALGORITHM:
  1. Four bulk reads for the whole range and all users: employment
     contracts, holidays, approved leave dates, performances. Each is
     indexed by ISO date (then user) so the day loop never queries.
  2. For each user, for each day in [from, until]:
       work      = schedule hours of the active contract for the weekday (0 if none)
       holiday   = work, if a holiday exists that day in the contract's country
       leave     = sum of approved leave spans starting that day
       performed = sum of activity durations that day
       total     = holiday + leave + performed
       overtime  = max(0, total - work)
       remaining = max(0, work - total)
     Every performance also accumulates into a per-contract bucket
     (duration, standby days).
  3. User totals sum the daily work/holiday/leave/performed/total values;
     overtime and remaining are recomputed from those totals, never summed
     from the days.

HOLIDAY ACCOUNTING:
  A holiday does not reduce work hours. Holiday hours are credited next to
  them, so a holiday shows up as scheduled and covered at the same time.
  Reports built on this figure depend on it; keep it.

OUTPUT SHAPING (RangeOptions):
  Daily=false    → Details is nil, only user totals
  Detailed=false → days keep their numbers but no holiday/leave/performance lists
  Summary=false  → Summary is nil

SEE ALSO:
  - resolver.go: Active contract resolution
  - api/dto.go: JSON shape of RangeResult
*/
package timesheet

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/warp/worktime/generic"
)

// =============================================================================
// RESULT TYPES
// =============================================================================

// RangeOptions selects which parts of the result are produced.
type RangeOptions struct {
	Daily    bool
	Detailed bool
	Summary  bool
}

// HourTotals is the set of figures reported per day and per user.
type HourTotals struct {
	WorkHours      decimal.Decimal
	HolidayHours   decimal.Decimal
	LeaveHours     decimal.Decimal
	PerformedHours decimal.Decimal
	RemainingHours decimal.Decimal
	TotalHours     decimal.Decimal
	OvertimeHours  decimal.Decimal
}

// settle derives total, overtime and remaining from the four inputs.
func (h *HourTotals) settle() {
	h.TotalHours = h.HolidayHours.Add(h.LeaveHours).Add(h.PerformedHours)
	h.OvertimeHours = generic.NonNegative(h.TotalHours.Sub(h.WorkHours))
	h.RemainingHours = generic.NonNegative(h.WorkHours.Sub(h.TotalHours))
}

func (h *HourTotals) accumulate(day HourTotals) {
	h.WorkHours = h.WorkHours.Add(day.WorkHours)
	h.HolidayHours = h.HolidayHours.Add(day.HolidayHours)
	h.LeaveHours = h.LeaveHours.Add(day.LeaveHours)
	h.PerformedHours = h.PerformedHours.Add(day.PerformedHours)
}

func zeroTotals() HourTotals {
	return HourTotals{
		WorkHours:      decimal.Zero,
		HolidayHours:   decimal.Zero,
		LeaveHours:     decimal.Zero,
		PerformedHours: decimal.Zero,
		RemainingHours: decimal.Zero,
		TotalHours:     decimal.Zero,
		OvertimeHours:  decimal.Zero,
	}
}

// DayResult is one user's figures for one day.
type DayResult struct {
	Date generic.TimePoint
	HourTotals

	// Detail lists, only filled when RangeOptions.Detailed is set.
	Holidays     []Holiday
	LeaveDates   []LeaveDate
	Performances []Performance
}

// ContractSummary is the per-contract performance bucket.
type ContractSummary struct {
	ContractID  ContractID
	Duration    decimal.Decimal
	StandbyDays int
}

// RangeSummary groups summaries produced when RangeOptions.Summary is set.
type RangeSummary struct {
	Performances []ContractSummary
}

// RangeResult is one user's result over the whole range.
type RangeResult struct {
	UserID UserID
	HourTotals

	// Details is keyed by ISO date; nil unless RangeOptions.Daily.
	Details map[string]*DayResult
	Summary *RangeSummary
}

// =============================================================================
// RANGE AGGREGATOR
// =============================================================================

// RangeAggregator computes RangeResults from a ReferenceStore snapshot.
type RangeAggregator struct {
	Store ReferenceStore

	// Location is the business timezone used to assign leave spans to days.
	Location *time.Location
	Logger   logrus.FieldLogger
}

// NewRangeAggregator creates an aggregator working in UTC.
func NewRangeAggregator(store ReferenceStore) *RangeAggregator {
	return &RangeAggregator{Store: store, Location: time.UTC, Logger: logrus.StandardLogger()}
}

// GetRangeInfo computes per-user results for [from, until].
// An empty user set yields an empty map. A reversed range yields every
// user with zero totals.
func (a *RangeAggregator) GetRangeInfo(ctx context.Context, users []UserID, from, until generic.TimePoint, opts RangeOptions) (map[UserID]*RangeResult, error) {
	results := make(map[UserID]*RangeResult)
	users = uniqueUsers(users)
	if len(users) == 0 {
		return results, nil
	}

	period := generic.Period{Start: from, End: until}
	snap := emptySnapshot()
	if !period.IsEmpty() {
		var err error
		if snap, err = a.load(ctx, users, period); err != nil {
			return nil, err
		}
	}

	days := period.Days()
	for _, user := range users {
		results[user] = a.aggregateUser(user, days, snap, opts)
	}

	a.logger().WithFields(logrus.Fields{
		"users": len(users),
		"from":  from.String(),
		"until": until.String(),
		"days":  len(days),
	}).Debug("range info computed")

	return results, nil
}

func (a *RangeAggregator) aggregateUser(user UserID, days []generic.TimePoint, snap *rangeSnapshot, opts RangeOptions) *RangeResult {
	result := &RangeResult{UserID: user, HourTotals: zeroTotals()}
	if opts.Daily {
		result.Details = make(map[string]*DayResult, len(days))
	}

	buckets := make(map[ContractID]*ContractSummary)
	for _, day := range days {
		dr := a.aggregateDay(user, day, snap, buckets)
		result.accumulate(dr.HourTotals)

		if !opts.Daily {
			continue
		}
		if !opts.Detailed {
			dr.Holidays, dr.LeaveDates, dr.Performances = nil, nil, nil
		}
		result.Details[day.String()] = dr
	}
	result.settle()

	if opts.Summary {
		result.Summary = &RangeSummary{Performances: sortedSummaries(buckets)}
	}
	return result
}

func (a *RangeAggregator) aggregateDay(user UserID, day generic.TimePoint, snap *rangeSnapshot, buckets map[ContractID]*ContractSummary) *DayResult {
	key := day.String()
	dr := &DayResult{Date: day, HourTotals: zeroTotals()}

	if contract := snap.contracts.Resolve(user, day); contract != nil {
		dr.WorkHours = contract.WorkSchedule.HoursFor(day.Weekday())

		for _, h := range snap.holidays[key] {
			if h.Country != contract.Company.Country {
				continue
			}
			dr.Holidays = append(dr.Holidays, h)
		}
		if len(dr.Holidays) > 0 {
			dr.HolidayHours = contract.WorkSchedule.HoursFor(day.Weekday())
		}
	}

	for _, ld := range snap.leaveDates[key][user] {
		dr.LeaveHours = dr.LeaveHours.Add(ld.Hours())
		dr.LeaveDates = append(dr.LeaveDates, ld)
	}
	dr.LeaveHours = dr.LeaveHours.Round(generic.HoursPrecision)

	for _, p := range snap.performances[key][user] {
		bucket, ok := buckets[p.ContractID]
		if !ok {
			bucket = &ContractSummary{ContractID: p.ContractID, Duration: decimal.Zero}
			buckets[p.ContractID] = bucket
		}
		switch p.Kind {
		case PerformanceActivity:
			dr.PerformedHours = dr.PerformedHours.Add(p.Duration())
			bucket.Duration = bucket.Duration.Add(p.Duration())
		case PerformanceStandby:
			bucket.StandbyDays++
		}
		dr.Performances = append(dr.Performances, p)
	}

	dr.settle()
	return dr
}

func (a *RangeAggregator) logger() logrus.FieldLogger {
	if a.Logger == nil {
		return logrus.StandardLogger()
	}
	return a.Logger
}

func (a *RangeAggregator) location() *time.Location {
	if a.Location == nil {
		return time.UTC
	}
	return a.Location
}

// =============================================================================
// SNAPSHOT - Bulk reads indexed by day
// =============================================================================

type rangeSnapshot struct {
	contracts    *ContractIndex
	holidays     map[string][]Holiday
	leaveDates   map[string]map[UserID][]LeaveDate
	performances map[string]map[UserID][]Performance
}

func emptySnapshot() *rangeSnapshot {
	return &rangeSnapshot{
		contracts:    NewContractIndex(nil),
		holidays:     make(map[string][]Holiday),
		leaveDates:   make(map[string]map[UserID][]LeaveDate),
		performances: make(map[string]map[UserID][]Performance),
	}
}

func (a *RangeAggregator) load(ctx context.Context, users []UserID, period generic.Period) (*rangeSnapshot, error) {
	snap := emptySnapshot()

	contracts, err := a.Store.EmploymentContractsBetween(ctx, users, period)
	if err != nil {
		return nil, fmt.Errorf("failed to load employment contracts: %w", err)
	}
	snap.contracts = NewContractIndex(contracts)

	holidays, err := a.Store.HolidaysBetween(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("failed to load holidays: %w", err)
	}
	for _, h := range holidays {
		key := h.Date.String()
		snap.holidays[key] = append(snap.holidays[key], h)
	}

	// Leave spans are stored as instants; widen by a day so spans near
	// midnight in the business timezone are not missed, then re-key locally.
	widened := generic.Period{Start: period.Start.AddDays(-1), End: period.End.AddDays(1)}
	leaveDates, err := a.Store.ApprovedLeaveDatesBetween(ctx, users, widened)
	if err != nil {
		return nil, fmt.Errorf("failed to load leave dates: %w", err)
	}
	loc := a.location()
	for _, ld := range leaveDates {
		day := generic.DateOf(ld.StartsAt.In(loc))
		if !period.Contains(day) {
			continue
		}
		key := day.String()
		if snap.leaveDates[key] == nil {
			snap.leaveDates[key] = make(map[UserID][]LeaveDate)
		}
		snap.leaveDates[key][ld.UserID] = append(snap.leaveDates[key][ld.UserID], ld)
	}

	performances, err := a.Store.PerformancesBetween(ctx, users, period)
	if err != nil {
		return nil, fmt.Errorf("failed to load performances: %w", err)
	}
	for _, p := range performances {
		key := p.Date.String()
		if snap.performances[key] == nil {
			snap.performances[key] = make(map[UserID][]Performance)
		}
		snap.performances[key][p.UserID] = append(snap.performances[key][p.UserID], p)
	}

	return snap, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func uniqueUsers(users []UserID) []UserID {
	seen := make(map[UserID]bool, len(users))
	var out []UserID
	for _, u := range users {
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

func sortedSummaries(buckets map[ContractID]*ContractSummary) []ContractSummary {
	out := make([]ContractSummary, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContractID < out[j].ContractID })
	return out
}
