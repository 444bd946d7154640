package timesheet_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/worktime/generic"
	"github.com/warp/worktime/timesheet"
)

var allOptions = timesheet.RangeOptions{Daily: true, Detailed: true, Summary: true}

// March 4 2024 is a Monday.
var (
	monday  = date(2024, time.March, 4)
	tuesday = date(2024, time.March, 5)
)

func rangeInfo(t *testing.T, store timesheet.ReferenceStore, users []timesheet.UserID, from, until generic.TimePoint, opts timesheet.RangeOptions) map[timesheet.UserID]*timesheet.RangeResult {
	t.Helper()
	agg := timesheet.NewRangeAggregator(store)
	res, err := agg.GetRangeInfo(context.Background(), users, from, until, opts)
	require.NoError(t, err)
	return res
}

// approveLeave expands and approves a full-day leave for user.
func approveLeave(t *testing.T, store timesheet.TxStore, leave *timesheet.Leave, from, to time.Time, fullDay bool) {
	t.Helper()
	ctx := context.Background()
	expanded, err := timesheet.NewLeaveExpander(store).ApplyDateRange(ctx, leave.ID, from, to, fullDay)
	require.NoError(t, err)
	require.NoError(t, expanded.Transition(timesheet.LeaveApproved))
	require.NoError(t, store.SaveLeave(ctx, expanded))
}

// =============================================================================
// BASIC FIGURES
// =============================================================================

func TestGetRangeInfo_NoContract_ZeroWorkHours(t *testing.T) {
	// GIVEN: A user without any employment contract
	store := newStore(t)

	// WHEN: Aggregating a week
	res := rangeInfo(t, store, []timesheet.UserID{alice}, monday, monday.AddDays(6), allOptions)

	// THEN: Every figure is zero
	r := res[alice]
	require.NotNil(t, r)
	assertHours(t, "0", r.WorkHours, "work")
	assertHours(t, "0", r.RemainingHours, "remaining")
	assertHours(t, "0", r.TotalHours, "total")
	assert.Len(t, r.Details, 7)
}

func TestGetRangeInfo_TwoDays_AggregateRecomputesOvertime(t *testing.T) {
	// GIVEN: 8h schedule, 10h performed on Monday, nothing on Tuesday
	store := newStore(t)
	seedContract(t, store, contract("ec", alice, acmeBE, fullTime(), date(2024, time.January, 1), nil))
	store.AddPerformance(activity(alice, monday, "c-1", "10"))

	// WHEN: Aggregating Monday..Tuesday
	res := rangeInfo(t, store, []timesheet.UserID{alice}, monday, tuesday, allOptions)
	r := res[alice]

	// THEN: Day figures follow the per-day formulas
	day1 := r.Details[monday.String()]
	assertHours(t, "2", day1.OvertimeHours, "day1 overtime")
	assertHours(t, "0", day1.RemainingHours, "day1 remaining")
	day2 := r.Details[tuesday.String()]
	assertHours(t, "0", day2.OvertimeHours, "day2 overtime")
	assertHours(t, "8", day2.RemainingHours, "day2 remaining")

	// AND: User totals recompute overtime/remaining from the totals
	assertHours(t, "16", r.WorkHours, "work")
	assertHours(t, "10", r.PerformedHours, "performed")
	assertHours(t, "10", r.TotalHours, "total")
	assertHours(t, "0", r.OvertimeHours, "overtime")
	assertHours(t, "6", r.RemainingHours, "remaining")
}

func TestGetRangeInfo_Holiday_CreditsWorkHoursWithoutDebit(t *testing.T) {
	// GIVEN: A BE holiday on Monday for a BE employee
	store := newStore(t)
	seedContract(t, store, contract("ec", alice, acmeBE, fullTime(), date(2024, time.January, 1), nil))
	store.AddHoliday(timesheet.Holiday{Name: "Local holiday", Date: monday, Country: "BE"})

	// WHEN: Aggregating Monday
	r := rangeInfo(t, store, []timesheet.UserID{alice}, monday, monday, allOptions)[alice]

	// THEN: holiday hours equal work hours, and work hours are not reduced
	day := r.Details[monday.String()]
	assertHours(t, "8", day.WorkHours, "work")
	assertHours(t, "8", day.HolidayHours, "holiday")
	assertHours(t, "8", day.TotalHours, "total")
	assertHours(t, "0", day.RemainingHours, "remaining")
	require.Len(t, day.Holidays, 1)
	assert.Equal(t, "Local holiday", day.Holidays[0].Name)
}

func TestGetRangeInfo_HolidayOtherCountry_Ignored(t *testing.T) {
	store := newStore(t)
	seedContract(t, store, contract("ec", alice, acmeBE, fullTime(), date(2024, time.January, 1), nil))
	store.AddHoliday(timesheet.Holiday{Name: "Koningsdag", Date: monday, Country: "NL"})

	r := rangeInfo(t, store, []timesheet.UserID{alice}, monday, monday, allOptions)[alice]

	assertHours(t, "0", r.HolidayHours, "holiday")
	assertHours(t, "8", r.RemainingHours, "remaining")
	assert.Empty(t, r.Details[monday.String()].Holidays)
}

func TestGetRangeInfo_ApprovedLeaveCounts_PendingDoesNot(t *testing.T) {
	// GIVEN: An approved full-day leave on Monday and a pending one on Tuesday
	store := newStore(t)
	seedContract(t, store, contract("ec", alice, acmeBE, fullTime(), date(2024, time.January, 1), nil))
	approveLeave(t, store, newLeave(t, store, alice), monday.Time, monday.Time, true)

	pending := newLeave(t, store, alice)
	_, err := timesheet.NewLeaveExpander(store).ApplyDateRange(context.Background(), pending.ID, tuesday.Time, tuesday.Time, true)
	require.NoError(t, err)

	// WHEN: Aggregating both days
	r := rangeInfo(t, store, []timesheet.UserID{alice}, monday, tuesday, allOptions)[alice]

	// THEN: Only the approved leave contributes (09:00:01-17:00:00 rounds to 8h)
	assertHours(t, "8", r.Details[monday.String()].LeaveHours, "monday leave")
	assertHours(t, "0", r.Details[tuesday.String()].LeaveHours, "tuesday leave")
	assertHours(t, "8", r.LeaveHours, "leave")
	assertHours(t, "8", r.RemainingHours, "remaining")
	assert.Len(t, r.Details[monday.String()].LeaveDates, 1)
}

func TestGetRangeInfo_PartialLeave_RoundedToTwoDecimals(t *testing.T) {
	store := newStore(t)
	seedContract(t, store, contract("ec", alice, acmeBE, fullTime(), date(2024, time.January, 1), nil))
	// 13:00:01 - 14:20:00 is 1h19m59s
	approveLeave(t, store, newLeave(t, store, alice), monday.At(13, 0, 0, time.UTC), monday.At(14, 20, 0, time.UTC), false)

	r := rangeInfo(t, store, []timesheet.UserID{alice}, monday, monday, allOptions)[alice]

	assertHours(t, "1.33", r.LeaveHours, "leave")
}

// =============================================================================
// SUMMARY
// =============================================================================

func TestGetRangeInfo_Summary_GroupsPerContract(t *testing.T) {
	// GIVEN: Activities on two contracts and a standby day
	store := newStore(t)
	seedContract(t, store, contract("ec", alice, acmeBE, fullTime(), date(2024, time.January, 1), nil))
	store.AddPerformance(activity(alice, monday, "c-1", "3.5"))
	store.AddPerformance(activity(alice, monday, "c-2", "4"))
	store.AddPerformance(activity(alice, tuesday, "c-1", "2"))
	store.AddPerformance(standby(alice, tuesday, "c-2"))

	// WHEN
	r := rangeInfo(t, store, []timesheet.UserID{alice}, monday, tuesday, allOptions)[alice]

	// THEN: Durations sum per contract and standby only counts days
	require.NotNil(t, r.Summary)
	require.Len(t, r.Summary.Performances, 2)
	c1, c2 := r.Summary.Performances[0], r.Summary.Performances[1]
	assert.Equal(t, timesheet.ContractID("c-1"), c1.ContractID)
	assertHours(t, "5.5", c1.Duration, "c-1 duration")
	assert.Equal(t, 0, c1.StandbyDays)
	assertHours(t, "4", c2.Duration, "c-2 duration")
	assert.Equal(t, 1, c2.StandbyDays)

	// AND: Standby adds no performed hours
	assertHours(t, "9.5", r.PerformedHours, "performed")
	assertHours(t, "2", r.Details[tuesday.String()].PerformedHours, "tuesday performed")
}

// =============================================================================
// OUTPUT SHAPING
// =============================================================================

func TestGetRangeInfo_OutputShaping(t *testing.T) {
	store := newStore(t)
	seedContract(t, store, contract("ec", alice, acmeBE, fullTime(), date(2024, time.January, 1), nil))
	store.AddPerformance(activity(alice, monday, "c-1", "8"))

	t.Run("totals only", func(t *testing.T) {
		r := rangeInfo(t, store, []timesheet.UserID{alice}, monday, tuesday, timesheet.RangeOptions{})[alice]
		assert.Nil(t, r.Details)
		assert.Nil(t, r.Summary)
		assertHours(t, "8", r.PerformedHours, "performed")
	})

	t.Run("daily without detail lists", func(t *testing.T) {
		r := rangeInfo(t, store, []timesheet.UserID{alice}, monday, tuesday, timesheet.RangeOptions{Daily: true})[alice]
		require.Len(t, r.Details, 2)
		day := r.Details[monday.String()]
		assertHours(t, "8", day.PerformedHours, "performed")
		assert.Nil(t, day.Performances)
	})

	t.Run("summary without days", func(t *testing.T) {
		r := rangeInfo(t, store, []timesheet.UserID{alice}, monday, tuesday, timesheet.RangeOptions{Summary: true})[alice]
		assert.Nil(t, r.Details)
		require.NotNil(t, r.Summary)
		assert.Len(t, r.Summary.Performances, 1)
	})
}

// =============================================================================
// EDGE CASES
// =============================================================================

func TestGetRangeInfo_EmptyUsers_EmptyMap(t *testing.T) {
	res := rangeInfo(t, newStore(t), nil, monday, tuesday, allOptions)
	assert.Empty(t, res)
}

func TestGetRangeInfo_ReversedRange_ZeroTotals(t *testing.T) {
	store := newStore(t)
	seedContract(t, store, contract("ec", alice, acmeBE, fullTime(), date(2024, time.January, 1), nil))

	res := rangeInfo(t, store, []timesheet.UserID{alice, bob}, tuesday, monday, allOptions)

	require.Len(t, res, 2)
	assertHours(t, "0", res[alice].WorkHours, "work")
	assert.Empty(t, res[alice].Details)
}

func TestGetRangeInfo_ContractStartsMidRange(t *testing.T) {
	// GIVEN: A contract starting on Tuesday
	store := newStore(t)
	seedContract(t, store, contract("ec", alice, acmeBE, fullTime(), tuesday, nil))

	r := rangeInfo(t, store, []timesheet.UserID{alice}, monday, tuesday, allOptions)[alice]

	assertHours(t, "0", r.Details[monday.String()].WorkHours, "monday work")
	assertHours(t, "8", r.Details[tuesday.String()].WorkHours, "tuesday work")
}

func TestGetRangeInfo_OvertimeAndRemainingAreComplementary(t *testing.T) {
	// GIVEN: A month with a mix of holidays, leave and performances
	store := newStore(t)
	seedContract(t, store, contract("ec", alice, acmeBE, fullTime(), date(2024, time.January, 1), nil))
	store.AddHoliday(timesheet.Holiday{Name: "Easter Monday", Date: date(2024, time.April, 1), Country: "BE"})
	approveLeave(t, store, newLeave(t, store, alice), date(2024, time.April, 8).Time, date(2024, time.April, 10).Time, true)
	for d := date(2024, time.April, 1); !d.After(date(2024, time.April, 30)); d = d.AddDays(3) {
		store.AddPerformance(activity(alice, d, "c-1", "9.25"))
	}

	r := rangeInfo(t, store, []timesheet.UserID{alice}, date(2024, time.April, 1), date(2024, time.April, 30), allOptions)[alice]

	// THEN: For every day and for the totals the invariants hold
	check := func(h timesheet.HourTotals, label string) {
		assert.True(t, h.OvertimeHours.Add(h.WorkHours).GreaterThanOrEqual(h.TotalHours), label)
		assert.True(t, h.RemainingHours.Add(h.TotalHours).GreaterThanOrEqual(h.WorkHours), label)
		assert.True(t, h.OvertimeHours.IsZero() || h.RemainingHours.IsZero(), label)
	}
	for key, day := range r.Details {
		check(day.HourTotals, key)
	}
	check(r.HourTotals, "totals")
}
