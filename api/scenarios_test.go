/*
scenarios_test.go - Unit tests for demo scenarios

PURPOSE:
	Tests that each scenario correctly sets up the expected state and that
	the range aggregation over it gives the figures the scenario is meant
	to demonstrate. These double as integration tests of the store, the
	expander and the aggregator.
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/worktime/generic"
	"github.com/warp/worktime/timesheet"
)

func march() generic.Period {
	return generic.MonthPeriod(time.Now().Year(), int(time.March))
}

func scenarioRange(t *testing.T, h *Handler, users ...timesheet.UserID) map[timesheet.UserID]*timesheet.RangeResult {
	t.Helper()
	p := march()
	res, err := h.Aggregator.GetRangeInfo(context.Background(), users, p.Start, p.End,
		timesheet.RangeOptions{Daily: true, Detailed: true, Summary: true})
	require.NoError(t, err)
	return res
}

func TestScenario_BelgianOffice(t *testing.T) {
	// GIVEN: The belgian-office scenario
	h := setupTestHandler(t)
	require.NoError(t, h.loadBelgianOfficeScenario(context.Background()))

	// WHEN: Aggregating March
	res := scenarioRange(t, h, "alice", "bob")

	// THEN: Alice's approved week counts, Bob's pending day does not
	assert.Equal(t, "40", res["alice"].LeaveHours.String())
	assert.True(t, res["bob"].LeaveHours.IsZero())

	users, err := h.Store.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 2)

	holidays, err := h.Store.ListHolidays(context.Background(), time.Now().Year())
	require.NoError(t, err)
	assert.Len(t, holidays, 8)
}

func TestScenario_ContractSwitch(t *testing.T) {
	// GIVEN: The contract-switch scenario
	h := setupTestHandler(t)
	require.NoError(t, h.loadContractSwitchScenario(context.Background()))

	// WHEN: Aggregating March
	res := scenarioRange(t, h, "carol")
	carol := res["carol"]

	// THEN: Work hours follow the schedule active on each day
	expected := 0
	for _, day := range march().Days() {
		if day.IsWeekend() {
			continue
		}
		if day.Day() < 16 {
			expected += 8
		} else {
			expected += 4
		}
	}
	assert.Equal(t, fmt.Sprint(expected), carol.WorkHours.String())

	// one full-time and one part-time leave day
	assert.Equal(t, "12", carol.LeaveHours.String())
}

func TestScenario_Consultancy(t *testing.T) {
	// GIVEN: The consultancy scenario
	h := setupTestHandler(t)
	require.NoError(t, h.loadConsultancyScenario(context.Background()))

	// WHEN: Aggregating March
	res := scenarioRange(t, h, "dave")

	// THEN: All activities land under the contract with one standby day
	dave := res["dave"]
	assert.Equal(t, "38.75", dave.PerformedHours.String())
	require.Len(t, dave.Summary.Performances, 1)
	s := dave.Summary.Performances[0]
	assert.Equal(t, timesheet.ContractID("globex-platform"), s.ContractID)
	assert.Equal(t, "38.75", s.Duration.String())
	assert.Equal(t, 1, s.StandbyDays)

	contract, err := h.Store.GetContract(context.Background(), "globex-platform")
	require.NoError(t, err)
	require.NotNil(t, contract.Consultancy)
	assert.Equal(t, "800", contract.Consultancy.DayRate.String())
}

func TestLoadScenario_Endpoint(t *testing.T) {
	h := setupTestHandler(t)
	router := NewRouter(h)

	t.Run("unknown scenario", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "unknown_scenario", decodeBody[ErrorResponse](t, rec).Errors["scenario_id"][0].Code)
	})

	t.Run("load twice resets", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			rec := do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "belgian-office"})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		}

		rec := do(t, router, http.MethodGet, "/api/scenarios/current", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "belgian-office", decodeBody[ScenarioDTO](t, rec).ID)
	})

	t.Run("reset clears current", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/api/scenarios/reset", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = do(t, router, http.MethodGet, "/api/scenarios/current", nil)
		assert.Equal(t, "null\n", rec.Body.String())
	})

	t.Run("list", func(t *testing.T) {
		rec := do(t, router, http.MethodGet, "/api/scenarios", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decodeBody[[]ScenarioDTO](t, rec), len(scenarios))
	})
}
