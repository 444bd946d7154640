package factory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/worktime/generic"
	"github.com/warp/worktime/timesheet"
)

func TestParseContract_Variants(t *testing.T) {
	f := NewContractFactory()

	t.Run("consultancy", func(t *testing.T) {
		c, err := f.ParseContract([]byte(`{
			"type": "consultancy", "name": "Globex platform",
			"company": "acme-be", "customer": "globex",
			"day_rate": "800", "duration": "160",
			"starts_at": "2024-01-01", "ends_at": "2024-06-30"
		}`))

		require.NoError(t, err)
		assert.Equal(t, timesheet.ContractConsultancy, c.Kind)
		assert.True(t, c.Active)
		require.NotNil(t, c.Consultancy)
		assert.Nil(t, c.Project)
		assert.Equal(t, "800", c.Consultancy.DayRate.String())
		assert.Equal(t, generic.NewTimePoint(2024, time.January, 1), c.Consultancy.StartsAt)
		require.NotNil(t, c.Consultancy.EndsAt)
	})

	t.Run("support defaults to monthly billing", func(t *testing.T) {
		c, err := f.ParseContract([]byte(`{"type": "support", "company": "acme-be", "customer": "globex", "fixed_fee": "500", "active": false}`))

		require.NoError(t, err)
		require.NotNil(t, c.Support)
		assert.Equal(t, 1, c.Support.BillingPeriodMonths)
		assert.False(t, c.Active)
	})

	t.Run("project open ended", func(t *testing.T) {
		c, err := f.ParseContract([]byte(`{"type": "project", "company": "acme-be", "customer": "globex", "starts_at": "2024-03-01", "performance_types": ["normal"]}`))

		require.NoError(t, err)
		assert.Nil(t, c.Project.EndsAt)
		assert.Equal(t, []timesheet.PerformanceTypeID{"normal"}, c.PerformanceTypeIDs)
	})
}

func TestParseContract_Errors(t *testing.T) {
	f := NewContractFactory()

	tests := []struct {
		name string
		json string
		want error
	}{
		{"unknown type", `{"type": "retainer", "company": "a", "customer": "b"}`, timesheet.ErrContractKind},
		{"bad date", `{"type": "project", "company": "a", "customer": "b", "starts_at": "01/03/2024"}`, ErrInvalidDate},
		{"end before start", `{"type": "project", "company": "a", "customer": "b", "starts_at": "2024-03-01", "ends_at": "2024-02-01"}`, timesheet.ErrEndBeforeStart},
		{"same parties", `{"type": "support", "company": "a", "customer": "a"}`, timesheet.ErrContractParties},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ParseContract([]byte(tt.json))
			require.ErrorIs(t, err, tt.want)
		})
	}

	_, err := f.ParseContract([]byte(`{`))
	require.Error(t, err)
	assert.False(t, generic.IsClientError(err))
}

func TestContractFactory_ToJSONRoundTrip(t *testing.T) {
	f := NewContractFactory()
	original, err := f.ParseContract([]byte(`{"id": "c-9", "type": "project", "name": "Site", "company": "acme-be", "customer": "globex", "fixed_fee": "12000", "estimated_hours": "100", "starts_at": "2024-01-01"}`))
	require.NoError(t, err)

	again, err := f.FromJSON(f.ToJSON(*original))

	require.NoError(t, err)
	assert.Equal(t, original.ID, again.ID)
	assert.True(t, original.Project.FixedFee.Equal(again.Project.FixedFee))
	assert.Equal(t, original.Project.StartsAt, again.Project.StartsAt)
}

func TestContractFactory_Register(t *testing.T) {
	f := NewContractFactory()
	f.Register("retainer", func(cj ContractJSON, c *timesheet.Contract) error {
		c.Kind = timesheet.ContractSupport
		c.Support = &timesheet.SupportTerms{BillingPeriodMonths: 12}
		return nil
	})

	c, err := f.ParseContract([]byte(`{"type": "retainer", "company": "a", "customer": "b"}`))

	require.NoError(t, err)
	assert.Equal(t, 12, c.Support.BillingPeriodMonths)
	assert.Len(t, f.Kinds(), 4)
}

func TestParsePerformance(t *testing.T) {
	f := NewPerformanceFactory()

	t.Run("activity", func(t *testing.T) {
		p, err := f.ParsePerformance([]byte(`{"type": "activity", "user": "alice", "date": "2024-03-04", "contract": "c-1", "performance_type": "normal", "duration": "7.5"}`))

		require.NoError(t, err)
		assert.Equal(t, "7.5", p.Duration().String())
		assert.Equal(t, time.Monday, p.Date.Weekday())
	})

	t.Run("standby", func(t *testing.T) {
		p, err := f.ParsePerformance([]byte(`{"type": "standby", "user": "alice", "date": "2024-03-04", "contract": "c-1"}`))

		require.NoError(t, err)
		assert.Nil(t, p.Activity)
		assert.True(t, p.Duration().IsZero())
	})

	t.Run("activity without duration", func(t *testing.T) {
		_, err := f.ParsePerformance([]byte(`{"type": "activity", "user": "alice", "date": "2024-03-04", "contract": "c-1"}`))
		require.ErrorIs(t, err, timesheet.ErrInvalidDuration)
	})

	t.Run("duration out of range", func(t *testing.T) {
		_, err := f.ParsePerformance([]byte(`{"type": "activity", "user": "alice", "date": "2024-03-04", "contract": "c-1", "duration": "25"}`))
		require.ErrorIs(t, err, timesheet.ErrInvalidDuration)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := f.ParsePerformance([]byte(`{"type": "travel", "user": "alice", "date": "2024-03-04", "contract": "c-1"}`))
		require.ErrorIs(t, err, timesheet.ErrPerformanceKind)
	})

	t.Run("round trip", func(t *testing.T) {
		p, err := f.ParsePerformance([]byte(`{"type": "activity", "user": "alice", "date": "2024-03-04", "contract": "c-1", "description": "review", "duration": "2"}`))
		require.NoError(t, err)
		pj := f.ToJSON(*p)
		assert.Equal(t, "2024-03-04", pj.Date)
		assert.Equal(t, "review", pj.Description)
	})
}
