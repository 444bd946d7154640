/*
store.go - Persistence interfaces consumed by the calculation core

PURPOSE:
  The aggregator and the expander never talk to a database directly. They
  read bulk snapshots through ReferenceStore and write leave data through
  LeaveStore. Implementations live in store/memory and store/sqlite.

KEY INTERFACES:
  ReferenceStore: Bulk reads for a user set and a date range (one query
                  per kind, never per day)
  LeaveStore:     Leave, LeaveDate and Timesheet reads/writes
  PerformanceStore: Performance writes
  Store:          All of the above
  TxStore:        Store with a transactional scope

CONCURRENCY CONTRACT:
  - GetOrCreateTimesheet must be an atomic insert-if-absent under the
    unique (user, year, month) constraint.
  - CreateLeaveDate must check for overlapping spans of the same user and
    insert in the same transaction, returning ErrOverlappingLeave.
  - UpdateTimesheetStatus is a compare-and-set on the current status.
  - WithTx: if fn returns an error nothing fn wrote is visible afterwards.

SEE ALSO:
  - store/sqlite/sqlite.go: Production implementation
  - store/memory/memory.go: In-memory implementation for tests
*/
package timesheet

import (
	"context"

	"github.com/warp/worktime/generic"
)

// ReferenceStore provides the read-only snapshot the core computes on.
type ReferenceStore interface {
	// EmploymentContractsBetween returns the contracts of users whose
	// interval intersects period.
	EmploymentContractsBetween(ctx context.Context, users []UserID, period generic.Period) ([]EmploymentContract, error)

	// HolidaysBetween returns all holidays (any country) within period.
	HolidaysBetween(ctx context.Context, period generic.Period) ([]Holiday, error)

	// ApprovedLeaveDatesBetween returns the spans of approved leaves of
	// users that start within period.
	ApprovedLeaveDatesBetween(ctx context.Context, users []UserID, period generic.Period) ([]LeaveDate, error)

	// PerformancesBetween returns activity and standby performances of
	// users dated within period.
	PerformancesBetween(ctx context.Context, users []UserID, period generic.Period) ([]Performance, error)
}

// LeaveStore provides leave writes for the expander.
type LeaveStore interface {
	// GetLeave returns the leave with its Dates ordered by StartsAt.
	GetLeave(ctx context.Context, id LeaveID) (*Leave, error)

	// SaveLeave inserts or updates the leave header (not its Dates).
	SaveLeave(ctx context.Context, leave *Leave) error

	// DeleteLeave removes a leave and its dates.
	DeleteLeave(ctx context.Context, id LeaveID) error

	// DeleteLeaveDates removes every span of the leave.
	DeleteLeaveDates(ctx context.Context, id LeaveID) error

	// CreateLeaveDate inserts a span, assigning its ID. Returns
	// ErrOverlappingLeave if it overlaps another span of the same user.
	CreateLeaveDate(ctx context.Context, date *LeaveDate) error

	// GetOrCreateTimesheet returns the user's timesheet for the month,
	// creating an active one if absent.
	GetOrCreateTimesheet(ctx context.Context, user UserID, year, month int) (*Timesheet, error)

	// GetTimesheet returns the timesheet or a generic.NotFound error.
	GetTimesheet(ctx context.Context, id TimesheetID) (*Timesheet, error)

	// UpdateTimesheetStatus sets the status to `to` if it is still `from`,
	// else fails with generic.ErrConcurrentModification.
	UpdateTimesheetStatus(ctx context.Context, id TimesheetID, from, to TimesheetStatus) error
}

// PerformanceStore persists performances.
type PerformanceStore interface {
	// CreatePerformance inserts p, assigning its ID.
	CreatePerformance(ctx context.Context, p *Performance) error
}

// Store is everything the core needs.
type Store interface {
	ReferenceStore
	LeaveStore
	PerformanceStore
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
