package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/worktime/timesheet"
)

type recordingNotifier struct {
	mu        sync.Mutex
	reminders []Reminder
	fail      bool
}

func (n *recordingNotifier) Notify(_ context.Context, r Reminder) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("mail server down")
	}
	n.reminders = append(n.reminders, r)
	return nil
}

func (n *recordingNotifier) sent() []Reminder {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Reminder(nil), n.reminders...)
}

func setupScheduler(t *testing.T) (*ReminderScheduler, *recordingNotifier) {
	t.Helper()
	h := setupTestHandler(t)
	router := NewRouter(h)
	seedAlice(t, router)
	rec := do(t, router, http.MethodPost, "/api/users", CreateUserRequest{ID: "bob", Username: "bob", Active: false})
	require.Equal(t, http.StatusCreated, rec.Code)

	notifier := &recordingNotifier{}
	rs := NewReminderScheduler(h)
	rs.Notifier = notifier
	rs.Now = func() time.Time { return time.Date(2024, time.May, 10, 8, 0, 0, 0, time.UTC) }
	return rs, notifier
}

func TestReminderScheduler_RunOnce(t *testing.T) {
	// GIVEN: Alice (active, nothing booked in April) and Bob (inactive)
	rs, notifier := setupScheduler(t)
	ctx := context.Background()

	// WHEN: Running the check in May
	sent, err := rs.RunOnce(ctx)

	// THEN: Only Alice is reminded about April
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	reminders := notifier.sent()
	require.Len(t, reminders, 1)
	r := reminders[0]
	assert.Equal(t, "alice", string(r.User.ID))
	assert.Equal(t, "2024-04-01", r.Period.Start.String())
	assert.Equal(t, "2024-04-30", r.Period.End.String())
	// 22 working days, Easter Monday off
	assert.Equal(t, "168", r.Remaining.String())
	assert.Equal(t, "176", r.Totals.WorkHours.String())

	// WHEN: Running again in the same month
	sent, err = rs.RunOnce(ctx)

	// THEN: Alice is not reminded twice
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Len(t, notifier.sent(), 1)
}

func TestReminderScheduler_FailedDeliveryIsRetried(t *testing.T) {
	// GIVEN: A notifier that fails
	rs, notifier := setupScheduler(t)
	logger, hook := test.NewNullLogger()
	rs.Logger = logger
	notifier.fail = true

	// WHEN: Running the check
	sent, err := rs.RunOnce(context.Background())

	// THEN: Nothing is marked as sent and the failure is logged
	require.NoError(t, err)
	assert.Zero(t, sent)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	// WHEN: Delivery works again
	notifier.fail = false
	sent, err = rs.RunOnce(context.Background())

	// THEN: The reminder goes out
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestReminderScheduler_StartStop(t *testing.T) {
	t.Run("runs immediately on start", func(t *testing.T) {
		rs, notifier := setupScheduler(t)
		rs.CheckInterval = time.Hour

		rs.Start()
		rs.Stop()

		assert.Len(t, notifier.sent(), 1)
	})

	t.Run("disabled does nothing", func(t *testing.T) {
		rs, notifier := setupScheduler(t)
		rs.Enabled = false

		rs.Start()
		rs.Stop()

		assert.Empty(t, notifier.sent())
	})
}

type countingLister struct {
	UserLister
	mu    sync.Mutex
	calls int
}

func (l *countingLister) ListUsers(ctx context.Context) ([]timesheet.User, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.UserLister.ListUsers(ctx)
}

func (l *countingLister) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func TestReminderScheduler_Restart(t *testing.T) {
	t.Run("second start is ignored", func(t *testing.T) {
		rs, _ := setupScheduler(t)
		lister := &countingLister{UserLister: rs.Users}
		rs.Users = lister
		rs.CheckInterval = time.Hour

		rs.Start()
		rs.Start()
		rs.Stop()

		assert.Equal(t, 1, lister.count())
	})

	t.Run("ticks again after stop and start", func(t *testing.T) {
		rs, _ := setupScheduler(t)
		lister := &countingLister{UserLister: rs.Users}
		rs.Users = lister
		rs.CheckInterval = 5 * time.Millisecond

		rs.Start()
		rs.Stop()
		afterFirstRun := lister.count()

		rs.Start()
		defer rs.Stop()

		assert.Eventually(t, func() bool { return lister.count() >= afterFirstRun+3 },
			time.Second, 5*time.Millisecond)
	})
}

func TestLogNotifier(t *testing.T) {
	logger, hook := test.NewNullLogger()
	rs, _ := setupScheduler(t)
	rs.Notifier = LogNotifier{Logger: logger}

	sent, err := rs.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "timesheet incomplete", entry.Message)
	assert.Equal(t, "Alice", entry.Data["name"])
	assert.Equal(t, "168", entry.Data["remaining"])
}
