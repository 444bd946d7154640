/*
scheduler.go - Monthly timesheet reminder scheduler

PURPOSE:
  Periodically aggregates the previous month for every active user and
  sends a reminder to those whose timesheet still has remaining hours
  (scheduled work not covered by holidays, leave or performances).

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Uses RangeAggregator over the previous calendar month
  - Skips users already reminded for that month
  - Delivery goes through a Notifier; the default one logs

CONFIGURATION:
  - CheckInterval: How often to check (default: 24 hours)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewReminderScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - timesheet/aggregator.go: RangeAggregator
  - config/config.go: REMINDER_INTERVAL, REMINDER_ENABLED
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/warp/worktime/generic"
	"github.com/warp/worktime/timesheet"
)

// Reminder tells a user their timesheet for Period is incomplete.
type Reminder struct {
	User      timesheet.User
	Period    generic.Period
	Remaining decimal.Decimal
	Totals    timesheet.HourTotals
}

// Notifier delivers reminders.
type Notifier interface {
	Notify(ctx context.Context, r Reminder) error
}

// LogNotifier writes reminders to the log.
type LogNotifier struct {
	Logger logrus.FieldLogger
}

func (n LogNotifier) Notify(_ context.Context, r Reminder) error {
	logger := n.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger.WithFields(logrus.Fields{
		"user":      r.User.ID,
		"name":      timesheet.DisplayName(r.User),
		"period":    r.Period.String(),
		"remaining": r.Remaining.String(),
	}).Info("timesheet incomplete")
	return nil
}

// UserLister lists the users reminders are computed for.
type UserLister interface {
	ListUsers(ctx context.Context) ([]timesheet.User, error)
}

// ReminderScheduler sends monthly timesheet reminders.
type ReminderScheduler struct {
	Users         UserLister
	Aggregator    *timesheet.RangeAggregator
	Notifier      Notifier
	Logger        logrus.FieldLogger
	CheckInterval time.Duration
	Enabled       bool
	Now           func() time.Time

	// reminded holds, per user, the last month a reminder was sent for.
	reminded   map[timesheet.UserID]string
	remindedMu sync.Mutex

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewReminderScheduler creates a scheduler over the handler's store and
// aggregator.
func NewReminderScheduler(h *Handler) *ReminderScheduler {
	return &ReminderScheduler{
		Users:         h.Store,
		Aggregator:    h.Aggregator,
		Notifier:      LogNotifier{Logger: h.Logger},
		Logger:        h.Logger,
		CheckInterval: 24 * time.Hour,
		Enabled:       true,
		Now:           time.Now,
		reminded:      make(map[timesheet.UserID]string),
	}
}

// Start begins the scheduler. It does nothing if already running.
func (rs *ReminderScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.logger().Info("reminder scheduler disabled, not starting")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)

	go rs.run(rs.ticker, rs.stop)

	rs.logger().WithField("interval", rs.CheckInterval).Info("reminder scheduler started")
}

// Stop stops the scheduler and waits for a running check to finish.
func (rs *ReminderScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		rs.logger().Info("reminder scheduler stopped")
	}
}

func (rs *ReminderScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer rs.wg.Done()

	// Run immediately on start
	rs.check()

	for {
		select {
		case <-ticker.C:
			rs.check()
		case <-stop:
			return
		}
	}
}

func (rs *ReminderScheduler) check() {
	ctx, cancel := context.WithTimeout(context.Background(), rs.CheckInterval)
	defer cancel()

	sent, err := rs.RunOnce(ctx)
	if err != nil {
		rs.logger().WithError(err).Error("reminder check failed")
		return
	}
	rs.logger().WithField("sent", sent).Debug("reminder check done")
}

// RunOnce aggregates the previous month and notifies every active user
// with remaining hours who was not reminded for that month yet. It
// returns the number of reminders sent.
func (rs *ReminderScheduler) RunOnce(ctx context.Context) (int, error) {
	period := rs.previousMonth()
	key := period.Start.String()

	users, err := rs.Users.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}
	byID := make(map[timesheet.UserID]timesheet.User, len(users))
	var ids []timesheet.UserID
	for _, u := range users {
		if !u.Active || rs.alreadyReminded(u.ID, key) {
			continue
		}
		byID[u.ID] = u
		ids = append(ids, u.ID)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	results, err := rs.Aggregator.GetRangeInfo(ctx, ids, period.Start, period.End, timesheet.RangeOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate %s: %w", period, err)
	}

	sent := 0
	for _, id := range ids {
		result, ok := results[id]
		if !ok || !result.RemainingHours.IsPositive() {
			continue
		}
		reminder := Reminder{User: byID[id], Period: period, Remaining: result.RemainingHours, Totals: result.HourTotals}
		if err := rs.Notifier.Notify(ctx, reminder); err != nil {
			rs.logger().WithError(err).WithField("user", id).Warn("failed to send reminder")
			continue
		}
		rs.markReminded(id, key)
		sent++
	}
	return sent, nil
}

func (rs *ReminderScheduler) previousMonth() generic.Period {
	now := time.Now()
	if rs.Now != nil {
		now = rs.Now()
	}
	if rs.Aggregator != nil && rs.Aggregator.Location != nil {
		now = now.In(rs.Aggregator.Location)
	}
	first := generic.NewTimePoint(now.Year(), now.Month(), 1).AddMonths(-1)
	return generic.MonthPeriod(first.Year(), int(first.Month()))
}

func (rs *ReminderScheduler) alreadyReminded(id timesheet.UserID, month string) bool {
	rs.remindedMu.Lock()
	defer rs.remindedMu.Unlock()
	return rs.reminded[id] == month
}

func (rs *ReminderScheduler) markReminded(id timesheet.UserID, month string) {
	rs.remindedMu.Lock()
	defer rs.remindedMu.Unlock()
	if rs.reminded == nil {
		rs.reminded = make(map[timesheet.UserID]string)
	}
	rs.reminded[id] = month
}

func (rs *ReminderScheduler) logger() logrus.FieldLogger {
	if rs.Logger == nil {
		return logrus.StandardLogger()
	}
	return rs.Logger
}
