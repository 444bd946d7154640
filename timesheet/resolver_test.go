package timesheet_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/worktime/timesheet"
)

func TestResolveActiveContract_EarliestStartWins(t *testing.T) {
	// GIVEN: Two contracts at different companies both covering March 4
	later := contract("nl", alice, acmeNL, fullTime(), date(2024, time.March, 1), nil)
	earlier := contract("be", alice, acmeBE, fullTime(), date(2024, time.January, 1), nil)

	// WHEN: Resolving March 4 (input deliberately unsorted)
	got := timesheet.ResolveActiveContract([]timesheet.EmploymentContract{later, earlier}, date(2024, time.March, 4))

	// THEN: The earliest-starting contract is returned
	require.NotNil(t, got)
	assert.Equal(t, timesheet.EmploymentContractID("be"), got.ID)
}

func TestResolveActiveContract_EndedAtIsInclusive(t *testing.T) {
	end := date(2024, time.March, 4)
	c := contract("be", alice, acmeBE, fullTime(), date(2024, time.January, 1), &end)
	contracts := []timesheet.EmploymentContract{c}

	assert.NotNil(t, timesheet.ResolveActiveContract(contracts, date(2024, time.March, 4)))
	assert.Nil(t, timesheet.ResolveActiveContract(contracts, date(2024, time.March, 5)))
	assert.Nil(t, timesheet.ResolveActiveContract(contracts, date(2023, time.December, 31)))
}

func TestResolveActiveContract_None(t *testing.T) {
	assert.Nil(t, timesheet.ResolveActiveContract(nil, date(2024, time.March, 4)))
}

func TestContractIndex_GroupsPerUser(t *testing.T) {
	idx := timesheet.NewContractIndex([]timesheet.EmploymentContract{
		contract("a", alice, acmeBE, fullTime(), date(2024, time.January, 1), nil),
		contract("b", bob, acmeNL, fullTime(), date(2024, time.February, 1), nil),
	})

	assert.Equal(t, timesheet.EmploymentContractID("a"), idx.Resolve(alice, date(2024, time.January, 15)).ID)
	assert.Nil(t, idx.Resolve(bob, date(2024, time.January, 15)))
	assert.Equal(t, timesheet.EmploymentContractID("b"), idx.Resolve(bob, date(2024, time.February, 1)).ID)
}

func TestContractCursor_SwitchesWhenContractStopsCovering(t *testing.T) {
	// GIVEN: Contract A until March 10, contract B from March 11
	endA := date(2024, time.March, 10)
	idx := timesheet.NewContractIndex([]timesheet.EmploymentContract{
		contract("a", alice, acmeBE, fullTime(), date(2024, time.January, 1), &endA),
		contract("b", alice, acmeNL, fullTime(), date(2024, time.March, 11), nil),
	})
	cursor := idx.Cursor(alice)

	// WHEN: Walking March 1..20
	var ids []timesheet.EmploymentContractID
	for d := date(2024, time.March, 1); !d.After(date(2024, time.March, 20)); d = d.AddDays(1) {
		ids = append(ids, cursor.At(d).ID)
	}

	// THEN: Contract A through March 10, B from March 11
	assert.Equal(t, timesheet.EmploymentContractID("a"), ids[0])
	assert.Equal(t, timesheet.EmploymentContractID("a"), ids[9])
	assert.Equal(t, timesheet.EmploymentContractID("b"), ids[10])
	assert.Equal(t, timesheet.EmploymentContractID("b"), ids[19])
}
