package timesheet_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/worktime/generic"
	"github.com/warp/worktime/store/memory"
	"github.com/warp/worktime/timesheet"
)

func pendingLeave(t *testing.T, store *memory.Memory) *timesheet.Leave {
	t.Helper()
	seedContract(t, store, contract("ec", alice, acmeBE, fullTime(), date(2024, time.January, 1), nil))
	leave := newLeave(t, store, alice)
	got, err := expand(store, leave.ID, monday.Time, monday.Time, true)
	require.NoError(t, err)
	return got
}

func TestLeaveService_Decide(t *testing.T) {
	ctx := context.Background()

	t.Run("approve pending", func(t *testing.T) {
		store := newStore(t)
		leave := pendingLeave(t, store)
		svc := timesheet.NewLeaveService(store)

		got, err := svc.Decide(ctx, leave.ID, timesheet.LeaveApproved)

		require.NoError(t, err)
		assert.Equal(t, timesheet.LeaveApproved, got.Status)
		assert.Equal(t, timesheet.LeaveApproved, reload(t, store, leave.ID).Status)
	})

	t.Run("draft cannot be approved", func(t *testing.T) {
		store := newStore(t)
		leave := newLeave(t, store, alice)

		_, err := timesheet.NewLeaveService(store).Decide(ctx, leave.ID, timesheet.LeaveApproved)

		require.ErrorIs(t, err, timesheet.ErrInvalidTransition)
	})

	t.Run("decision is final", func(t *testing.T) {
		store := newStore(t)
		leave := pendingLeave(t, store)
		svc := timesheet.NewLeaveService(store)
		_, err := svc.Decide(ctx, leave.ID, timesheet.LeaveRejected)
		require.NoError(t, err)

		_, err = svc.Decide(ctx, leave.ID, timesheet.LeaveApproved)

		require.ErrorIs(t, err, timesheet.ErrLeaveFinalized)
		assert.Equal(t, timesheet.LeaveRejected, reload(t, store, leave.ID).Status)
	})

	t.Run("only decisions", func(t *testing.T) {
		store := newStore(t)
		leave := pendingLeave(t, store)

		_, err := timesheet.NewLeaveService(store).Decide(ctx, leave.ID, timesheet.LeaveDraft)

		require.ErrorIs(t, err, timesheet.ErrInvalidTransition)
	})
}

func TestLeaveService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("pending leave and its dates", func(t *testing.T) {
		store := newStore(t)
		leave := pendingLeave(t, store)

		require.NoError(t, timesheet.NewLeaveService(store).Delete(ctx, leave.ID))

		_, err := store.GetLeave(ctx, leave.ID)
		assert.True(t, generic.IsNotFound(err))
		assert.Zero(t, store.LeaveDateCount())
	})

	t.Run("approved leave is kept", func(t *testing.T) {
		store := newStore(t)
		leave := pendingLeave(t, store)
		svc := timesheet.NewLeaveService(store)
		_, err := svc.Decide(ctx, leave.ID, timesheet.LeaveApproved)
		require.NoError(t, err)

		err = svc.Delete(ctx, leave.ID)

		require.ErrorIs(t, err, timesheet.ErrLeaveNotDeletable)
		assert.Equal(t, 1, store.LeaveDateCount())
	})

	t.Run("spans on a closed timesheet are kept", func(t *testing.T) {
		store := newStore(t)
		leave := pendingLeave(t, store)
		store.SetTimesheetStatus(alice, 2024, int(time.March), timesheet.TimesheetClosed)

		err := timesheet.NewLeaveService(store).Delete(ctx, leave.ID)

		require.ErrorIs(t, err, timesheet.ErrTimesheetNotActive)
		assert.Len(t, reload(t, store, leave.ID).Dates, 1)
	})
}

func TestTransitionTimesheet(t *testing.T) {
	ctx := context.Background()

	t.Run("submit then close", func(t *testing.T) {
		store := newStore(t)
		ts, err := store.GetOrCreateTimesheet(ctx, alice, 2024, 3)
		require.NoError(t, err)

		_, err = timesheet.TransitionTimesheet(ctx, store, ts.ID, timesheet.TimesheetPending, false)
		require.NoError(t, err)
		got, err := timesheet.TransitionTimesheet(ctx, store, ts.ID, timesheet.TimesheetClosed, false)

		require.NoError(t, err)
		assert.Equal(t, timesheet.TimesheetClosed, got.Status)
		stored, err := store.GetTimesheet(ctx, ts.ID)
		require.NoError(t, err)
		assert.Equal(t, timesheet.TimesheetClosed, stored.Status)
	})

	t.Run("reopening needs privileges", func(t *testing.T) {
		store := newStore(t)
		store.SetTimesheetStatus(alice, 2024, 3, timesheet.TimesheetClosed)
		ts, err := store.GetOrCreateTimesheet(ctx, alice, 2024, 3)
		require.NoError(t, err)

		_, err = timesheet.TransitionTimesheet(ctx, store, ts.ID, timesheet.TimesheetPending, false)
		require.ErrorIs(t, err, timesheet.ErrInvalidTransition)

		got, err := timesheet.TransitionTimesheet(ctx, store, ts.ID, timesheet.TimesheetPending, true)
		require.NoError(t, err)
		assert.Equal(t, timesheet.TimesheetPending, got.Status)
	})

	t.Run("unknown timesheet", func(t *testing.T) {
		_, err := timesheet.TransitionTimesheet(ctx, newStore(t), "missing", timesheet.TimesheetPending, false)

		assert.True(t, generic.IsNotFound(err))
	})

	t.Run("stale status is a conflict", func(t *testing.T) {
		store := newStore(t)
		ts, err := store.GetOrCreateTimesheet(ctx, alice, 2024, 3)
		require.NoError(t, err)

		err = store.UpdateTimesheetStatus(ctx, ts.ID, timesheet.TimesheetPending, timesheet.TimesheetClosed)

		require.ErrorIs(t, err, generic.ErrConcurrentModification)
		stored, err := store.GetTimesheet(ctx, ts.ID)
		require.NoError(t, err)
		assert.Equal(t, timesheet.TimesheetActive, stored.Status)
	})
}

func TestLeaveService_AddAttachments_OnFinalizedLeave(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	leave := pendingLeave(t, store)
	svc := timesheet.NewLeaveService(store)
	_, err := svc.Decide(ctx, leave.ID, timesheet.LeaveApproved)
	require.NoError(t, err)

	got, err := svc.AddAttachments(ctx, leave.ID, timesheet.Attachment{ID: "a1", Name: "certificate.pdf"})

	require.NoError(t, err)
	assert.Len(t, got.Attachments, 1)
	stored := reload(t, store, leave.ID)
	assert.Equal(t, timesheet.LeaveApproved, stored.Status)
	assert.Len(t, stored.Attachments, 1)
	assert.Len(t, stored.Dates, 1)
}

func TestRecordPerformance(t *testing.T) {
	ctx := context.Background()
	billing := timesheet.Contract{
		ID: "c-1", Kind: timesheet.ContractSupport, CompanyID: "acme-be", CustomerID: "globex", Active: true,
		PerformanceTypeIDs: []timesheet.PerformanceTypeID{"normal"},
		Support:            &timesheet.SupportTerms{BillingPeriodMonths: 1},
	}

	t.Run("books on the month timesheet", func(t *testing.T) {
		store := newStore(t)

		got, err := timesheet.RecordPerformance(ctx, store, billing, activity(alice, monday, "c-1", "6"))

		require.NoError(t, err)
		assert.NotEmpty(t, got.ID)
		assert.NotEmpty(t, got.TimesheetID)
		r := rangeInfo(t, store, []timesheet.UserID{alice}, monday, monday, timesheet.RangeOptions{})[alice]
		assertHours(t, "6", r.PerformedHours, "performed")
	})

	t.Run("closed timesheet", func(t *testing.T) {
		store := newStore(t)
		store.SetTimesheetStatus(alice, 2024, 3, timesheet.TimesheetClosed)

		_, err := timesheet.RecordPerformance(ctx, store, billing, activity(alice, monday, "c-1", "6"))

		require.ErrorIs(t, err, timesheet.ErrTimesheetNotActive)
	})

	t.Run("inactive contract", func(t *testing.T) {
		inactive := billing
		inactive.Active = false

		_, err := timesheet.RecordPerformance(ctx, newStore(t), inactive, activity(alice, monday, "c-1", "6"))

		require.ErrorIs(t, err, timesheet.ErrContractInactive)
	})

	t.Run("type not allowed", func(t *testing.T) {
		p := activity(alice, monday, "c-1", "6")
		p.Activity.PerformanceTypeID = "night"

		_, err := timesheet.RecordPerformance(ctx, newStore(t), billing, p)

		require.ErrorIs(t, err, timesheet.ErrPerformanceTypeNotAllowed)
	})

	t.Run("standby", func(t *testing.T) {
		got, err := timesheet.RecordPerformance(ctx, newStore(t), billing, standby(alice, monday, "c-1"))

		require.NoError(t, err)
		assert.Equal(t, timesheet.PerformanceStandby, got.Kind)
	})
}
