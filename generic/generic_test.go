package generic_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/worktime/generic"
)

// =============================================================================
// TIME POINT / PERIOD
// =============================================================================

func TestDateOf_DropsTimeOfDay(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	got := generic.DateOf(time.Date(2024, time.March, 4, 23, 30, 0, 0, loc))
	assert.Equal(t, "2024-03-04", got.String())
	assert.True(t, got.Equal(generic.NewTimePoint(2024, time.March, 4)))
}

func TestPeriod_Days_Inclusive(t *testing.T) {
	p := generic.Period{
		Start: generic.NewTimePoint(2024, time.February, 28),
		End:   generic.NewTimePoint(2024, time.March, 1),
	}
	days := p.Days()
	require.Len(t, days, 3)
	assert.Equal(t, "2024-02-29", days[1].String())
}

func TestPeriod_Reversed_IsEmpty(t *testing.T) {
	p := generic.Period{
		Start: generic.NewTimePoint(2024, time.March, 2),
		End:   generic.NewTimePoint(2024, time.March, 1),
	}
	assert.True(t, p.IsEmpty())
	assert.Empty(t, p.Days())
	assert.False(t, p.Overlaps(generic.NewTimePoint(2024, time.January, 1), nil))
}

func TestPeriod_Overlaps_OpenEnded(t *testing.T) {
	p := generic.MonthPeriod(2024, 3)
	before := generic.NewTimePoint(2024, time.February, 1)
	endBefore := generic.NewTimePoint(2024, time.February, 29)

	assert.True(t, p.Overlaps(before, nil))
	assert.False(t, p.Overlaps(before, &endBefore))
	assert.False(t, p.Overlaps(generic.NewTimePoint(2024, time.April, 1), nil))
}

func TestTimePoint_TextRoundTrip(t *testing.T) {
	var tp generic.TimePoint
	require.NoError(t, tp.UnmarshalText([]byte("2024-12-31")))
	assert.Equal(t, time.Tuesday, tp.Weekday())
	assert.Error(t, tp.UnmarshalText([]byte("31/12/2024")))
}

// =============================================================================
// HOURS
// =============================================================================

func TestHoursBetween_RoundsToTwoPlaces(t *testing.T) {
	day := generic.NewTimePoint(2024, time.March, 4)
	start := day.At(9, 0, 1, time.UTC)
	end := day.At(17, 0, 0, time.UTC)

	assert.True(t, generic.HoursBetween(start, end).Equal(decimal.NewFromInt(8)))
}

func TestHoursToDuration_FractionalHours(t *testing.T) {
	assert.Equal(t, 7*time.Hour+30*time.Minute, generic.HoursToDuration(generic.MustParseHours("7.5")))
	assert.Equal(t, 8*time.Hour, generic.HoursToDuration(decimal.NewFromInt(8)))
}

func TestNonNegative(t *testing.T) {
	assert.True(t, generic.NonNegative(decimal.NewFromInt(-3)).IsZero())
	assert.True(t, generic.NonNegative(decimal.NewFromInt(3)).Equal(decimal.NewFromInt(3)))
}

// =============================================================================
// ERRORS
// =============================================================================

func TestValidationError_MatchesByCode(t *testing.T) {
	sentinel := generic.NewValidationError("ends_at", "end_before_start", "end before start")
	err := fmt.Errorf("apply: %w", sentinel.WithMessage("ends at %s", "08:00"))

	assert.True(t, errors.Is(err, sentinel))
	assert.True(t, generic.IsClientError(err))
	assert.False(t, generic.IsNotFound(err))
}

func TestNotFoundError(t *testing.T) {
	err := fmt.Errorf("load: %w", generic.NotFound("leave", "l-1"))
	assert.True(t, generic.IsNotFound(err))
	assert.False(t, generic.IsClientError(err))
}
