package timesheet_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/warp/worktime/generic"
	"github.com/warp/worktime/store/memory"
	"github.com/warp/worktime/timesheet"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const (
	alice timesheet.UserID = "alice"
	bob   timesheet.UserID = "bob"
)

var (
	acmeBE = timesheet.Company{ID: "acme-be", Name: "Acme Belgium", Country: "BE", Internal: true}
	acmeNL = timesheet.Company{ID: "acme-nl", Name: "Acme Netherlands", Country: "NL", Internal: true}
)

func hours(s string) decimal.Decimal {
	return generic.MustParseHours(s)
}

func date(year int, month time.Month, day int) generic.TimePoint {
	return generic.NewTimePoint(year, month, day)
}

// fullTime is 8h Monday to Friday.
func fullTime() timesheet.WorkSchedule {
	eight := decimal.NewFromInt(8)
	return timesheet.WorkSchedule{
		ID: "full-time", Name: "Full time",
		Monday: eight, Tuesday: eight, Wednesday: eight, Thursday: eight, Friday: eight,
		Saturday: decimal.Zero, Sunday: decimal.Zero,
	}
}

func contract(id string, user timesheet.UserID, company timesheet.Company, ws timesheet.WorkSchedule, start generic.TimePoint, end *generic.TimePoint) timesheet.EmploymentContract {
	return timesheet.EmploymentContract{
		ID:           timesheet.EmploymentContractID(id),
		UserID:       user,
		Company:      company,
		WorkSchedule: ws,
		StartedAt:    start,
		EndedAt:      end,
	}
}

func newStore(t *testing.T) *memory.Memory {
	t.Helper()
	return memory.NewMemory()
}

func seedContract(t *testing.T, m *memory.Memory, c timesheet.EmploymentContract) {
	t.Helper()
	_, err := m.AddEmploymentContract(c)
	require.NoError(t, err)
}

func newLeave(t *testing.T, m *memory.Memory, user timesheet.UserID) *timesheet.Leave {
	t.Helper()
	leave := &timesheet.Leave{UserID: user, LeaveTypeID: "vacation", Status: timesheet.LeaveDraft}
	require.NoError(t, m.SaveLeave(context.Background(), leave))
	return leave
}

func activity(user timesheet.UserID, day generic.TimePoint, contractID string, duration string) timesheet.Performance {
	return timesheet.Performance{
		Kind:       timesheet.PerformanceActivity,
		UserID:     user,
		Date:       day,
		ContractID: timesheet.ContractID(contractID),
		Activity:   &timesheet.ActivityDetails{PerformanceTypeID: "normal", Duration: hours(duration)},
	}
}

func standby(user timesheet.UserID, day generic.TimePoint, contractID string) timesheet.Performance {
	return timesheet.Performance{
		Kind:       timesheet.PerformanceStandby,
		UserID:     user,
		Date:       day,
		ContractID: timesheet.ContractID(contractID),
	}
}

func assertHours(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	require.Truef(t, hours(want).Equal(got), "%s: want %s, got %s", msg, want, got)
}
