/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements timesheet.TxStore plus the admin writes the API needs
  (users, companies, schedules, contracts, holidays, billing contracts).
  In production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

INTERFACES IMPLEMENTED:
  timesheet.ReferenceStore:   Bulk range reads for the aggregator
  timesheet.LeaveStore:       Leave, leave date and timesheet writes
  timesheet.PerformanceStore: Performance writes
  timesheet.TxStore:          All of the above in one transaction

KEY TABLES:
  employment_contracts: user + company + work schedule over an interval
  holidays:             unique (name, date, country)
  leaves / leave_dates: leave header and its per-day spans
  timesheets:           unique (user_id, year, month)
  performances:         activity / standby rows, discriminated by kind
  contracts:            billing contracts, variant terms as JSON

STORAGE FORMATS:
  Dates:     "2006-01-02" text, compared lexically
  Instants:  UTC "2006-01-02T15:04:05Z" text, fixed width so lexical
             comparison is chronological (overlap checks rely on it)
  Hours:     decimal text, never REAL

CONCURRENCY:
  One connection (SetMaxOpenConns(1)) and IMMEDIATE transactions
  (_txlock=immediate). Writers serialize at BEGIN; there is no second
  connection that could observe a half-written leave. Every statement
  issued inside WithTx goes through the *sql.Tx.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/worktime.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  expander := timesheet.NewLeaveExpander(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - timesheet/store.go: Interface definitions
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/worktime/generic"
	"github.com/warp/worktime/timesheet"
)

const instantLayout = "2006-01-02T15:04:05Z"

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries holds every statement, bound either to the database or to a
// transaction.
type queries struct {
	q querier
}

// Store implements all storage interfaces using SQLite.
type Store struct {
	queries
	db *sql.DB
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{queries: queries{q: db}, db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE TABLE IF NOT EXISTS companies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		country TEXT NOT NULL,
		internal BOOLEAN NOT NULL DEFAULT FALSE
	);

	-- Hours per weekday, decimal text
	CREATE TABLE IF NOT EXISTS work_schedules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		monday TEXT NOT NULL,
		tuesday TEXT NOT NULL,
		wednesday TEXT NOT NULL,
		thursday TEXT NOT NULL,
		friday TEXT NOT NULL,
		saturday TEXT NOT NULL,
		sunday TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS employment_contracts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		company_id TEXT NOT NULL REFERENCES companies(id),
		work_schedule_id TEXT NOT NULL REFERENCES work_schedules(id),
		started_at TEXT NOT NULL,
		ended_at TEXT
	);

	-- Range lookups for the aggregator (hot path)
	CREATE INDEX IF NOT EXISTS idx_employment_contracts_user_start
		ON employment_contracts(user_id, started_at);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		date TEXT NOT NULL,
		country TEXT NOT NULL,
		UNIQUE(name, date, country)
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_date
		ON holidays(date);

	CREATE TABLE IF NOT EXISTS leave_types (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS leaves (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'draft',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leaves_status
		ON leaves(status);

	CREATE TABLE IF NOT EXISTS leave_attachments (
		id TEXT PRIMARY KEY,
		leave_id TEXT NOT NULL REFERENCES leaves(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		url TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL
	);

	-- Monthly container, one per user and month
	CREATE TABLE IF NOT EXISTS timesheets (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		UNIQUE(user_id, year, month)
	);

	CREATE TABLE IF NOT EXISTS leave_dates (
		id TEXT PRIMARY KEY,
		leave_id TEXT NOT NULL REFERENCES leaves(id) ON DELETE CASCADE,
		timesheet_id TEXT NOT NULL REFERENCES timesheets(id),
		user_id TEXT NOT NULL,
		starts_at TEXT NOT NULL,
		ends_at TEXT NOT NULL
	);

	-- Overlap checks and range reads
	CREATE INDEX IF NOT EXISTS idx_leave_dates_user_start
		ON leave_dates(user_id, starts_at);
	CREATE INDEX IF NOT EXISTS idx_leave_dates_leave
		ON leave_dates(leave_id);

	CREATE TABLE IF NOT EXISTS performance_types (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		multiplier TEXT NOT NULL
	);

	-- Billing contracts: shared columns + variant terms by kind
	CREATE TABLE IF NOT EXISTS contracts (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		company_id TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		performance_types_json TEXT NOT NULL DEFAULT '[]',
		terms_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS performances (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		timesheet_id TEXT NOT NULL REFERENCES timesheets(id),
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		contract_id TEXT NOT NULL,
		performance_type_id TEXT,
		description TEXT,
		duration TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_performances_user_date
		ON performances(user_id, date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE (timesheet.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store timesheet.Store) error) error {
	return s.inTx(ctx, func(qs queries) error {
		return fn(&txStore{queries: qs})
	})
}

// inTx runs fn with statements bound to a new transaction. The store has
// a single connection, so fn must not use s.db.
func (s *Store) inTx(ctx context.Context, fn func(qs queries) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", contention(err))
	}
	defer sqlTx.Rollback()

	if err := fn(queries{q: sqlTx}); err != nil {
		return contention(err)
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", contention(err))
	}
	return nil
}

// txStore is the timesheet.Store handed to WithTx callbacks.
type txStore struct {
	queries
}

// =============================================================================
// REFERENCE READS (timesheet.ReferenceStore interface)
// =============================================================================

// EmploymentContractsBetween returns the contracts of users intersecting period.
func (qs queries) EmploymentContractsBetween(ctx context.Context, users []timesheet.UserID, period generic.Period) ([]timesheet.EmploymentContract, error) {
	if len(users) == 0 {
		return nil, nil
	}
	query := `
		SELECT ec.id, ec.user_id, ec.started_at, ec.ended_at,
		       c.id, c.name, c.country, c.internal,
		       ws.id, ws.name, ws.monday, ws.tuesday, ws.wednesday, ws.thursday,
		       ws.friday, ws.saturday, ws.sunday
		FROM employment_contracts ec
		JOIN companies c ON c.id = ec.company_id
		JOIN work_schedules ws ON ws.id = ec.work_schedule_id
		WHERE ec.user_id IN (` + placeholders(len(users)) + `)
		  AND ec.started_at <= ?
		  AND (ec.ended_at IS NULL OR ec.ended_at >= ?)
		ORDER BY ec.started_at ASC, ec.id ASC
	`
	args := append(userArgs(users), period.End.String(), period.Start.String())
	return qs.queryEmploymentContracts(ctx, query, args...)
}

// HolidaysBetween returns the holidays of every country within period.
func (qs queries) HolidaysBetween(ctx context.Context, period generic.Period) ([]timesheet.Holiday, error) {
	return qs.queryHolidays(ctx,
		"SELECT id, name, date, country FROM holidays WHERE date >= ? AND date <= ? ORDER BY date, name",
		period.Start.String(), period.End.String())
}

// ApprovedLeaveDatesBetween returns the spans of approved leaves starting
// within period (UTC days).
func (qs queries) ApprovedLeaveDatesBetween(ctx context.Context, users []timesheet.UserID, period generic.Period) ([]timesheet.LeaveDate, error) {
	if len(users) == 0 {
		return nil, nil
	}
	query := `
		SELECT ld.id, ld.leave_id, ld.timesheet_id, ld.user_id, ld.starts_at, ld.ends_at
		FROM leave_dates ld
		JOIN leaves l ON l.id = ld.leave_id
		WHERE l.status = ?
		  AND ld.user_id IN (` + placeholders(len(users)) + `)
		  AND ld.starts_at >= ? AND ld.starts_at < ?
		ORDER BY ld.starts_at ASC
	`
	args := []any{string(timesheet.LeaveApproved)}
	args = append(args, userArgs(users)...)
	args = append(args,
		formatInstant(period.Start.At(0, 0, 0, time.UTC)),
		formatInstant(period.End.AddDays(1).At(0, 0, 0, time.UTC)))
	return qs.queryLeaveDates(ctx, query, args...)
}

// PerformancesBetween returns the performances of users dated within period.
func (qs queries) PerformancesBetween(ctx context.Context, users []timesheet.UserID, period generic.Period) ([]timesheet.Performance, error) {
	if len(users) == 0 {
		return nil, nil
	}
	query := `
		SELECT id, kind, timesheet_id, user_id, date, contract_id,
		       performance_type_id, description, duration
		FROM performances
		WHERE user_id IN (` + placeholders(len(users)) + `)
		  AND date >= ? AND date <= ?
		ORDER BY date ASC, id ASC
	`
	args := append(userArgs(users), period.Start.String(), period.End.String())
	rows, err := qs.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query performances: %w", err)
	}
	defer rows.Close()

	var out []timesheet.Performance
	for rows.Next() {
		p, err := scanPerformance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// =============================================================================
// LEAVES (timesheet.LeaveStore interface)
// =============================================================================

// GetLeave returns a leave with its attachments and dates.
func (qs queries) GetLeave(ctx context.Context, id timesheet.LeaveID) (*timesheet.Leave, error) {
	var (
		l                    timesheet.Leave
		status               string
		createdAt, updatedAt string
	)
	err := qs.q.QueryRowContext(ctx,
		"SELECT id, user_id, leave_type_id, description, status, created_at, updated_at FROM leaves WHERE id = ?",
		id,
	).Scan(&l.ID, &l.UserID, &l.LeaveTypeID, &l.Description, &status, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.NotFound("leave", string(id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get leave: %w", err)
	}
	l.Status = timesheet.LeaveStatus(status)
	l.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	l.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	rows, err := qs.q.QueryContext(ctx,
		"SELECT id, name, url FROM leave_attachments WHERE leave_id = ? ORDER BY position", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query attachments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a timesheet.Attachment
		if err := rows.Scan(&a.ID, &a.Name, &a.URL); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		l.Attachments = append(l.Attachments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	l.Dates, err = qs.queryLeaveDates(ctx,
		"SELECT id, leave_id, timesheet_id, user_id, starts_at, ends_at FROM leave_dates WHERE leave_id = ? ORDER BY starts_at",
		id)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// SaveLeave upserts the leave header and replaces its attachments.
func (qs queries) SaveLeave(ctx context.Context, leave *timesheet.Leave) error {
	if leave.ID == "" {
		leave.ID = timesheet.LeaveID(uuid.NewString())
	}
	now := time.Now().UTC()
	if leave.CreatedAt.IsZero() {
		leave.CreatedAt = now
	}
	if leave.UpdatedAt.IsZero() {
		leave.UpdatedAt = now
	}

	query := `
		INSERT INTO leaves (id, user_id, leave_type_id, description, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			leave_type_id = excluded.leave_type_id,
			description = excluded.description,
			status = excluded.status,
			updated_at = excluded.updated_at
	`
	_, err := qs.q.ExecContext(ctx, query,
		leave.ID, leave.UserID, leave.LeaveTypeID, leave.Description, string(leave.Status),
		leave.CreatedAt.UTC().Format(time.RFC3339), leave.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save leave: %w", err)
	}

	if _, err := qs.q.ExecContext(ctx, "DELETE FROM leave_attachments WHERE leave_id = ?", leave.ID); err != nil {
		return fmt.Errorf("failed to replace attachments: %w", err)
	}
	for i := range leave.Attachments {
		a := &leave.Attachments[i]
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		_, err := qs.q.ExecContext(ctx,
			"INSERT INTO leave_attachments (id, leave_id, name, url, position) VALUES (?, ?, ?, ?, ?)",
			a.ID, leave.ID, a.Name, a.URL, i)
		if err != nil {
			return fmt.Errorf("failed to save attachment: %w", err)
		}
	}
	return nil
}

// DeleteLeave removes a leave; its dates and attachments cascade.
func (qs queries) DeleteLeave(ctx context.Context, id timesheet.LeaveID) error {
	res, err := qs.q.ExecContext(ctx, "DELETE FROM leaves WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete leave: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.NotFound("leave", string(id))
	}
	return nil
}

// DeleteLeaveDates removes every span of a leave.
func (qs queries) DeleteLeaveDates(ctx context.Context, id timesheet.LeaveID) error {
	_, err := qs.q.ExecContext(ctx, "DELETE FROM leave_dates WHERE leave_id = ?", id)
	return err
}

// CreateLeaveDate inserts a span after checking the user has no
// overlapping span. Run it inside WithTx so check and insert are atomic.
func (qs queries) CreateLeaveDate(ctx context.Context, ld *timesheet.LeaveDate) error {
	start, end := formatInstant(ld.StartsAt), formatInstant(ld.EndsAt)

	var otherLeave, otherStart string
	err := qs.q.QueryRowContext(ctx, `
		SELECT leave_id, starts_at FROM leave_dates
		WHERE user_id = ? AND starts_at < ? AND ends_at > ?
		LIMIT 1`,
		ld.UserID, end, start,
	).Scan(&otherLeave, &otherStart)
	switch {
	case err == nil:
		return timesheet.ErrOverlappingLeave.WithMessage("overlaps leave %s from %s", otherLeave, otherStart)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("failed to check leave overlap: %w", err)
	}

	if ld.ID == "" {
		ld.ID = timesheet.LeaveDateID(uuid.NewString())
	}
	_, err = qs.q.ExecContext(ctx,
		"INSERT INTO leave_dates (id, leave_id, timesheet_id, user_id, starts_at, ends_at) VALUES (?, ?, ?, ?, ?, ?)",
		ld.ID, ld.LeaveID, ld.TimesheetID, ld.UserID, start, end)
	if err != nil {
		return fmt.Errorf("failed to insert leave date: %w", err)
	}
	return nil
}

// GetOrCreateTimesheet is an insert-if-absent on (user_id, year, month).
func (qs queries) GetOrCreateTimesheet(ctx context.Context, user timesheet.UserID, year, month int) (*timesheet.Timesheet, error) {
	_, err := qs.q.ExecContext(ctx, `
		INSERT INTO timesheets (id, user_id, year, month, status)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, year, month) DO NOTHING`,
		uuid.NewString(), user, year, month, string(timesheet.TimesheetActive))
	if err != nil {
		return nil, fmt.Errorf("failed to create timesheet: %w", err)
	}

	ts, err := qs.scanTimesheet(qs.q.QueryRowContext(ctx,
		"SELECT id, user_id, year, month, status FROM timesheets WHERE user_id = ? AND year = ? AND month = ?",
		user, year, month))
	if err != nil {
		return nil, fmt.Errorf("failed to get timesheet: %w", err)
	}
	return ts, nil
}

// GetTimesheet retrieves a timesheet by ID.
func (qs queries) GetTimesheet(ctx context.Context, id timesheet.TimesheetID) (*timesheet.Timesheet, error) {
	ts, err := qs.scanTimesheet(qs.q.QueryRowContext(ctx,
		"SELECT id, user_id, year, month, status FROM timesheets WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.NotFound("timesheet", string(id))
	}
	return ts, err
}

// UpdateTimesheetStatus moves the timesheet from one status to another.
// It fails with generic.ErrConcurrentModification if the stored status
// is no longer from.
func (qs queries) UpdateTimesheetStatus(ctx context.Context, id timesheet.TimesheetID, from, to timesheet.TimesheetStatus) error {
	res, err := qs.q.ExecContext(ctx,
		"UPDATE timesheets SET status = ? WHERE id = ? AND status = ?", string(to), id, string(from))
	if err != nil {
		return fmt.Errorf("failed to update timesheet: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update timesheet: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: timesheet %s is no longer %s", generic.ErrConcurrentModification, id, from)
	}
	return nil
}

// =============================================================================
// PERFORMANCES (timesheet.PerformanceStore interface)
// =============================================================================

// CreatePerformance inserts a performance.
func (qs queries) CreatePerformance(ctx context.Context, p *timesheet.Performance) error {
	if p.ID == "" {
		p.ID = timesheet.PerformanceID(uuid.NewString())
	}
	var typeID, description, duration sql.NullString
	if p.Activity != nil {
		typeID = nullString(string(p.Activity.PerformanceTypeID))
		description = nullString(p.Activity.Description)
		duration = nullString(p.Activity.Duration.String())
	}
	_, err := qs.q.ExecContext(ctx, `
		INSERT INTO performances
		(id, kind, timesheet_id, user_id, date, contract_id, performance_type_id, description, duration)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, string(p.Kind), p.TimesheetID, p.UserID, p.Date.String(), p.ContractID,
		typeID, description, duration)
	if err != nil {
		return fmt.Errorf("failed to insert performance: %w", err)
	}
	return nil
}

// =============================================================================
// USERS / COMPANIES / SCHEDULES
// =============================================================================

// SaveUser upserts a user.
func (s *Store) SaveUser(ctx context.Context, u *timesheet.User) error {
	if u.ID == "" {
		u.ID = timesheet.UserID(uuid.NewString())
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, first_name, last_name, email, active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			email = excluded.email,
			active = excluded.active`,
		u.ID, u.Username, u.FirstName, u.LastName, u.Email, u.Active)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id timesheet.UserID) (*timesheet.User, error) {
	var u timesheet.User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, username, first_name, last_name, email, active FROM users WHERE id = ?", id,
	).Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email, &u.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.NotFound("user", string(id))
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns all users, active or not, ordered by username.
func (s *Store) ListUsers(ctx context.Context) ([]timesheet.User, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, username, first_name, last_name, email, active FROM users ORDER BY username")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []timesheet.User
	for rows.Next() {
		var u timesheet.User
		if err := rows.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email, &u.Active); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ActivateUser marks a user as active (timesheet.UserActivator).
func (s *Store) ActivateUser(ctx context.Context, id timesheet.UserID) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET active = TRUE WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to activate user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.NotFound("user", string(id))
	}
	return nil
}

// SaveCompany upserts a company.
func (s *Store) SaveCompany(ctx context.Context, c *timesheet.Company) error {
	if c.ID == "" {
		c.ID = timesheet.CompanyID(uuid.NewString())
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO companies (id, name, country, internal) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, country = excluded.country, internal = excluded.internal`,
		c.ID, c.Name, c.Country, c.Internal)
	if err != nil {
		return fmt.Errorf("failed to save company: %w", err)
	}
	return nil
}

// GetCompany retrieves a company by ID.
func (s *Store) GetCompany(ctx context.Context, id timesheet.CompanyID) (*timesheet.Company, error) {
	var c timesheet.Company
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, country, internal FROM companies WHERE id = ?", id,
	).Scan(&c.ID, &c.Name, &c.Country, &c.Internal)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.NotFound("company", string(id))
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SaveWorkSchedule validates and upserts a work schedule.
func (s *Store) SaveWorkSchedule(ctx context.Context, ws *timesheet.WorkSchedule) error {
	if err := ws.Validate(); err != nil {
		return err
	}
	if ws.ID == "" {
		ws.ID = timesheet.WorkScheduleID(uuid.NewString())
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO work_schedules (id, name, monday, tuesday, wednesday, thursday, friday, saturday, sunday)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			monday = excluded.monday, tuesday = excluded.tuesday, wednesday = excluded.wednesday,
			thursday = excluded.thursday, friday = excluded.friday,
			saturday = excluded.saturday, sunday = excluded.sunday`,
		ws.ID, ws.Name,
		ws.Monday.String(), ws.Tuesday.String(), ws.Wednesday.String(), ws.Thursday.String(),
		ws.Friday.String(), ws.Saturday.String(), ws.Sunday.String())
	if err != nil {
		return fmt.Errorf("failed to save work schedule: %w", err)
	}
	return nil
}

// GetWorkSchedule retrieves a work schedule by ID.
func (s *Store) GetWorkSchedule(ctx context.Context, id timesheet.WorkScheduleID) (*timesheet.WorkSchedule, error) {
	var (
		ws   timesheet.WorkSchedule
		days [7]string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, monday, tuesday, wednesday, thursday, friday, saturday, sunday
		FROM work_schedules WHERE id = ?`, id,
	).Scan(&ws.ID, &ws.Name, &days[0], &days[1], &days[2], &days[3], &days[4], &days[5], &days[6])
	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.NotFound("work schedule", string(id))
	}
	if err != nil {
		return nil, err
	}
	if err := setScheduleHours(&ws, days); err != nil {
		return nil, err
	}
	return &ws, nil
}

// =============================================================================
// EMPLOYMENT CONTRACTS
// =============================================================================

// SaveEmploymentContract inserts a contract after the same-company overlap
// check. Company and WorkSchedule must already be stored.
func (s *Store) SaveEmploymentContract(ctx context.Context, c *timesheet.EmploymentContract) error {
	return s.inTx(ctx, func(tx queries) error {
		return tx.saveEmploymentContract(ctx, c)
	})
}

func (qs queries) saveEmploymentContract(ctx context.Context, c *timesheet.EmploymentContract) error {
	existing, err := qs.queryEmploymentContracts(ctx, `
		SELECT ec.id, ec.user_id, ec.started_at, ec.ended_at,
		       c.id, c.name, c.country, c.internal,
		       ws.id, ws.name, ws.monday, ws.tuesday, ws.wednesday, ws.thursday,
		       ws.friday, ws.saturday, ws.sunday
		FROM employment_contracts ec
		JOIN companies c ON c.id = ec.company_id
		JOIN work_schedules ws ON ws.id = ec.work_schedule_id
		WHERE ec.user_id = ?`, c.UserID)
	if err != nil {
		return err
	}
	if err := timesheet.CheckContractOverlap(existing, *c); err != nil {
		return err
	}

	if c.ID == "" {
		c.ID = timesheet.EmploymentContractID(uuid.NewString())
	}
	var endedAt sql.NullString
	if c.EndedAt != nil {
		endedAt = nullString(c.EndedAt.String())
	}
	_, err = qs.q.ExecContext(ctx, `
		INSERT INTO employment_contracts (id, user_id, company_id, work_schedule_id, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			company_id = excluded.company_id,
			work_schedule_id = excluded.work_schedule_id,
			started_at = excluded.started_at,
			ended_at = excluded.ended_at`,
		c.ID, c.UserID, c.Company.ID, c.WorkSchedule.ID, c.StartedAt.String(), endedAt)
	if err != nil {
		return fmt.Errorf("failed to save employment contract: %w", err)
	}
	return nil
}

// =============================================================================
// HOLIDAYS / LEAVE TYPES / TIMESHEETS
// =============================================================================

// SaveHoliday inserts a holiday. A second holiday with the same name,
// date and country is rejected.
func (s *Store) SaveHoliday(ctx context.Context, h *timesheet.Holiday) error {
	if h.ID == "" {
		h.ID = timesheet.HolidayID(uuid.NewString())
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO holidays (id, name, date, country) VALUES (?, ?, ?, ?)",
		h.ID, h.Name, h.Date.String(), h.Country)
	if isUniqueConstraintError(err) {
		return timesheet.ErrDuplicateHoliday
	}
	if err != nil {
		return fmt.Errorf("failed to save holiday: %w", err)
	}
	return nil
}

// ListHolidays returns the holidays of a calendar year, all countries.
func (s *Store) ListHolidays(ctx context.Context, year int) ([]timesheet.Holiday, error) {
	start := generic.NewTimePoint(year, time.January, 1)
	return s.HolidaysBetween(ctx, generic.Period{Start: start, End: start.AddMonths(12).AddDays(-1)})
}

// SaveLeaveType upserts a leave type.
func (s *Store) SaveLeaveType(ctx context.Context, lt *timesheet.LeaveType) error {
	if lt.ID == "" {
		lt.ID = timesheet.LeaveTypeID(uuid.NewString())
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO leave_types (id, name) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET name = excluded.name",
		lt.ID, lt.Name)
	return err
}

// ListLeaves returns a user's leaves, oldest first, with their dates and
// attachments.
func (s *Store) ListLeaves(ctx context.Context, user timesheet.UserID) ([]timesheet.Leave, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM leaves WHERE user_id = ? ORDER BY created_at, id", user)
	if err != nil {
		return nil, fmt.Errorf("failed to list leaves: %w", err)
	}
	var ids []timesheet.LeaveID
	for rows.Next() {
		var id timesheet.LeaveID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	leaves := make([]timesheet.Leave, 0, len(ids))
	for _, id := range ids {
		l, err := s.GetLeave(ctx, id)
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, *l)
	}
	return leaves, nil
}

// =============================================================================
// BILLING CONTRACTS / PERFORMANCE TYPES
// =============================================================================

// SavePerformanceType upserts a performance type.
func (s *Store) SavePerformanceType(ctx context.Context, pt *timesheet.PerformanceType) error {
	if pt.ID == "" {
		pt.ID = timesheet.PerformanceTypeID(uuid.NewString())
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO performance_types (id, name, multiplier) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, multiplier = excluded.multiplier`,
		pt.ID, pt.Name, pt.Multiplier.String())
	return err
}

// SaveContract validates and upserts a billing contract. Variant terms
// are stored as JSON next to the kind discriminator.
func (s *Store) SaveContract(ctx context.Context, c *timesheet.Contract) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = timesheet.ContractID(uuid.NewString())
	}

	var terms any
	switch c.Kind {
	case timesheet.ContractProject:
		terms = c.Project
	case timesheet.ContractConsultancy:
		terms = c.Consultancy
	case timesheet.ContractSupport:
		terms = c.Support
	}
	termsJSON, err := json.Marshal(terms)
	if err != nil {
		return fmt.Errorf("failed to encode contract terms: %w", err)
	}
	typesJSON, err := json.Marshal(c.PerformanceTypeIDs)
	if err != nil {
		return fmt.Errorf("failed to encode performance types: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO contracts (id, kind, name, company_id, customer_id, active, performance_types_json, terms_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			name = excluded.name,
			company_id = excluded.company_id,
			customer_id = excluded.customer_id,
			active = excluded.active,
			performance_types_json = excluded.performance_types_json,
			terms_json = excluded.terms_json`,
		c.ID, string(c.Kind), c.Name, c.CompanyID, c.CustomerID, c.Active, string(typesJSON), string(termsJSON))
	if err != nil {
		return fmt.Errorf("failed to save contract: %w", err)
	}
	return nil
}

// GetContract retrieves a billing contract with its variant terms.
func (s *Store) GetContract(ctx context.Context, id timesheet.ContractID) (*timesheet.Contract, error) {
	var (
		c                    timesheet.Contract
		kind                 string
		typesJSON, termsJSON string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, kind, name, company_id, customer_id, active, performance_types_json, terms_json
		FROM contracts WHERE id = ?`, id,
	).Scan(&c.ID, &kind, &c.Name, &c.CompanyID, &c.CustomerID, &c.Active, &typesJSON, &termsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.NotFound("contract", string(id))
	}
	if err != nil {
		return nil, err
	}
	c.Kind = timesheet.ContractKind(kind)

	if err := json.Unmarshal([]byte(typesJSON), &c.PerformanceTypeIDs); err != nil {
		return nil, fmt.Errorf("failed to decode performance types: %w", err)
	}
	switch c.Kind {
	case timesheet.ContractProject:
		c.Project = &timesheet.ProjectTerms{}
		err = json.Unmarshal([]byte(termsJSON), c.Project)
	case timesheet.ContractConsultancy:
		c.Consultancy = &timesheet.ConsultancyTerms{}
		err = json.Unmarshal([]byte(termsJSON), c.Consultancy)
	case timesheet.ContractSupport:
		c.Support = &timesheet.SupportTerms{}
		err = json.Unmarshal([]byte(termsJSON), c.Support)
	default:
		return nil, timesheet.ErrContractKind.WithMessage("unknown contract kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode contract terms: %w", err)
	}
	return &c, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	tables := []string{
		"performances", "leave_dates", "leave_attachments", "leaves", "timesheets",
		"employment_contracts", "holidays", "contracts", "performance_types",
		"leave_types", "work_schedules", "companies", "users",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// SCANNING
// =============================================================================

func (qs queries) queryEmploymentContracts(ctx context.Context, query string, args ...any) ([]timesheet.EmploymentContract, error) {
	rows, err := qs.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query employment contracts: %w", err)
	}
	defer rows.Close()

	var out []timesheet.EmploymentContract
	for rows.Next() {
		var (
			ec        timesheet.EmploymentContract
			startedAt string
			endedAt   sql.NullString
			days      [7]string
		)
		err := rows.Scan(
			&ec.ID, &ec.UserID, &startedAt, &endedAt,
			&ec.Company.ID, &ec.Company.Name, &ec.Company.Country, &ec.Company.Internal,
			&ec.WorkSchedule.ID, &ec.WorkSchedule.Name,
			&days[0], &days[1], &days[2], &days[3], &days[4], &days[5], &days[6],
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employment contract: %w", err)
		}
		if ec.StartedAt, err = generic.ParseDate(startedAt); err != nil {
			return nil, err
		}
		if endedAt.Valid {
			end, err := generic.ParseDate(endedAt.String)
			if err != nil {
				return nil, err
			}
			ec.EndedAt = &end
		}
		if err := setScheduleHours(&ec.WorkSchedule, days); err != nil {
			return nil, err
		}
		out = append(out, ec)
	}
	return out, rows.Err()
}

func (qs queries) queryHolidays(ctx context.Context, query string, args ...any) ([]timesheet.Holiday, error) {
	rows, err := qs.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var out []timesheet.Holiday
	for rows.Next() {
		var (
			h    timesheet.Holiday
			date string
		)
		if err := rows.Scan(&h.ID, &h.Name, &date, &h.Country); err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		if h.Date, err = generic.ParseDate(date); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (qs queries) queryLeaveDates(ctx context.Context, query string, args ...any) ([]timesheet.LeaveDate, error) {
	rows, err := qs.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leave dates: %w", err)
	}
	defer rows.Close()

	var out []timesheet.LeaveDate
	for rows.Next() {
		var (
			ld         timesheet.LeaveDate
			start, end string
		)
		if err := rows.Scan(&ld.ID, &ld.LeaveID, &ld.TimesheetID, &ld.UserID, &start, &end); err != nil {
			return nil, fmt.Errorf("failed to scan leave date: %w", err)
		}
		if ld.StartsAt, err = time.Parse(instantLayout, start); err != nil {
			return nil, err
		}
		if ld.EndsAt, err = time.Parse(instantLayout, end); err != nil {
			return nil, err
		}
		out = append(out, ld)
	}
	return out, rows.Err()
}

func scanPerformance(rows *sql.Rows) (timesheet.Performance, error) {
	var (
		p                             timesheet.Performance
		kind, date                    string
		typeID, description, duration sql.NullString
	)
	err := rows.Scan(&p.ID, &kind, &p.TimesheetID, &p.UserID, &date, &p.ContractID, &typeID, &description, &duration)
	if err != nil {
		return p, fmt.Errorf("failed to scan performance: %w", err)
	}
	p.Kind = timesheet.PerformanceKind(kind)
	if p.Date, err = generic.ParseDate(date); err != nil {
		return p, err
	}
	if p.Kind == timesheet.PerformanceActivity {
		d, err := decimal.NewFromString(duration.String)
		if err != nil {
			return p, fmt.Errorf("invalid duration %q for performance %s: %w", duration.String, p.ID, err)
		}
		p.Activity = &timesheet.ActivityDetails{
			PerformanceTypeID: timesheet.PerformanceTypeID(typeID.String),
			Description:       description.String,
			Duration:          d,
		}
	}
	return p, nil
}

func (qs queries) scanTimesheet(row *sql.Row) (*timesheet.Timesheet, error) {
	var (
		ts     timesheet.Timesheet
		status string
	)
	if err := row.Scan(&ts.ID, &ts.UserID, &ts.Year, &ts.Month, &status); err != nil {
		return nil, err
	}
	ts.Status = timesheet.TimesheetStatus(status)
	return &ts, nil
}

func setScheduleHours(ws *timesheet.WorkSchedule, days [7]string) error {
	targets := []*decimal.Decimal{
		&ws.Monday, &ws.Tuesday, &ws.Wednesday, &ws.Thursday, &ws.Friday, &ws.Saturday, &ws.Sunday,
	}
	for i, raw := range days {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("invalid schedule hours %q in %s: %w", raw, ws.ID, err)
		}
		*targets[i] = d
	}
	return nil
}

// Helper functions

func formatInstant(t time.Time) string {
	return t.UTC().Format(instantLayout)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func userArgs(users []timesheet.UserID) []any {
	args := make([]any, len(users))
	for i, u := range users {
		args[i] = string(u)
	}
	return args
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// contention marks lock timeouts as generic.ErrConcurrentModification.
func contention(err error) error {
	var serr sqlite3.Error
	if errors.As(err, &serr) && (serr.Code == sqlite3.ErrBusy || serr.Code == sqlite3.ErrLocked) {
		return fmt.Errorf("%w: %v", generic.ErrConcurrentModification, err)
	}
	return err
}
