// Package memory provides an in-memory timesheet.TxStore for tests and dev.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/warp/worktime/generic"
	"github.com/warp/worktime/timesheet"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// Memory keeps every record in maps guarded by one mutex.
type Memory struct {
	mu sync.Mutex
	st *state
}

type timesheetKey struct {
	UserID timesheet.UserID
	Year   int
	Month  int
}

type state struct {
	contracts    map[timesheet.EmploymentContractID]timesheet.EmploymentContract
	holidays     map[timesheet.HolidayID]timesheet.Holiday
	leaves       map[timesheet.LeaveID]timesheet.Leave
	leaveDates   map[timesheet.LeaveDateID]timesheet.LeaveDate
	timesheets   map[timesheetKey]timesheet.Timesheet
	performances map[timesheet.PerformanceID]timesheet.Performance
}

func newState() *state {
	return &state{
		contracts:    make(map[timesheet.EmploymentContractID]timesheet.EmploymentContract),
		holidays:     make(map[timesheet.HolidayID]timesheet.Holiday),
		leaves:       make(map[timesheet.LeaveID]timesheet.Leave),
		leaveDates:   make(map[timesheet.LeaveDateID]timesheet.LeaveDate),
		timesheets:   make(map[timesheetKey]timesheet.Timesheet),
		performances: make(map[timesheet.PerformanceID]timesheet.Performance),
	}
}

func NewMemory() *Memory {
	return &Memory{st: newState()}
}

// =============================================================================
// SEEDING
// =============================================================================

// AddEmploymentContract stores a contract after the same-company overlap check.
func (m *Memory) AddEmploymentContract(c timesheet.EmploymentContract) (timesheet.EmploymentContract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := make([]timesheet.EmploymentContract, 0, len(m.st.contracts))
	for _, ec := range m.st.contracts {
		existing = append(existing, ec)
	}
	if err := timesheet.CheckContractOverlap(existing, c); err != nil {
		return timesheet.EmploymentContract{}, err
	}
	if c.ID == "" {
		c.ID = timesheet.EmploymentContractID(uuid.NewString())
	}
	m.st.contracts[c.ID] = c
	return c, nil
}

// AddHoliday stores a holiday.
func (m *Memory) AddHoliday(h timesheet.Holiday) timesheet.Holiday {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h.ID == "" {
		h.ID = timesheet.HolidayID(uuid.NewString())
	}
	m.st.holidays[h.ID] = h
	return h
}

// AddPerformance stores a performance.
func (m *Memory) AddPerformance(p timesheet.Performance) timesheet.Performance {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.createPerformance(&p)
	return p
}

// SetTimesheetStatus forces a timesheet status, creating it if needed.
func (m *Memory) SetTimesheetStatus(user timesheet.UserID, year, month int, status timesheet.TimesheetStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts := m.st.getOrCreateTimesheet(user, year, month)
	ts.Status = status
	m.st.timesheets[timesheetKey{UserID: user, Year: year, Month: month}] = ts
}

// LeaveDateCount returns the number of stored spans for all users.
func (m *Memory) LeaveDateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.st.leaveDates)
}

// =============================================================================
// timesheet.Store
// =============================================================================

func (m *Memory) EmploymentContractsBetween(_ context.Context, users []timesheet.UserID, period generic.Period) ([]timesheet.EmploymentContract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.employmentContractsBetween(users, period), nil
}

func (m *Memory) HolidaysBetween(_ context.Context, period generic.Period) ([]timesheet.Holiday, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.holidaysBetween(period), nil
}

func (m *Memory) ApprovedLeaveDatesBetween(_ context.Context, users []timesheet.UserID, period generic.Period) ([]timesheet.LeaveDate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.approvedLeaveDatesBetween(users, period), nil
}

func (m *Memory) PerformancesBetween(_ context.Context, users []timesheet.UserID, period generic.Period) ([]timesheet.Performance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.performancesBetween(users, period), nil
}

func (m *Memory) GetLeave(_ context.Context, id timesheet.LeaveID) (*timesheet.Leave, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.getLeave(id)
}

func (m *Memory) SaveLeave(_ context.Context, leave *timesheet.Leave) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.saveLeave(leave)
	return nil
}

func (m *Memory) DeleteLeave(_ context.Context, id timesheet.LeaveID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.deleteLeave(id)
}

func (m *Memory) DeleteLeaveDates(_ context.Context, id timesheet.LeaveID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.deleteLeaveDates(id)
	return nil
}

func (m *Memory) CreateLeaveDate(_ context.Context, ld *timesheet.LeaveDate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.createLeaveDate(ld)
}

func (m *Memory) GetOrCreateTimesheet(_ context.Context, user timesheet.UserID, year, month int) (*timesheet.Timesheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts := m.st.getOrCreateTimesheet(user, year, month)
	return &ts, nil
}

func (m *Memory) GetTimesheet(_ context.Context, id timesheet.TimesheetID) (*timesheet.Timesheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.getTimesheet(id)
}

func (m *Memory) UpdateTimesheetStatus(_ context.Context, id timesheet.TimesheetID, from, to timesheet.TimesheetStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.updateTimesheetStatus(id, from, to)
}

func (m *Memory) CreatePerformance(_ context.Context, p *timesheet.Performance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.createPerformance(p)
	return nil
}

// =============================================================================
// TRANSACTIONS - Snapshot + restore on error
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(ctx context.Context, fn func(timesheet.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.st.clone()
	if err := fn(&txView{st: m.st}); err != nil {
		m.st = snapshot
		return err
	}
	return nil
}

// txView runs against the locked state without re-acquiring the mutex.
type txView struct {
	st *state
}

func (v *txView) EmploymentContractsBetween(_ context.Context, users []timesheet.UserID, period generic.Period) ([]timesheet.EmploymentContract, error) {
	return v.st.employmentContractsBetween(users, period), nil
}

func (v *txView) HolidaysBetween(_ context.Context, period generic.Period) ([]timesheet.Holiday, error) {
	return v.st.holidaysBetween(period), nil
}

func (v *txView) ApprovedLeaveDatesBetween(_ context.Context, users []timesheet.UserID, period generic.Period) ([]timesheet.LeaveDate, error) {
	return v.st.approvedLeaveDatesBetween(users, period), nil
}

func (v *txView) PerformancesBetween(_ context.Context, users []timesheet.UserID, period generic.Period) ([]timesheet.Performance, error) {
	return v.st.performancesBetween(users, period), nil
}

func (v *txView) GetLeave(_ context.Context, id timesheet.LeaveID) (*timesheet.Leave, error) {
	return v.st.getLeave(id)
}

func (v *txView) SaveLeave(_ context.Context, leave *timesheet.Leave) error {
	v.st.saveLeave(leave)
	return nil
}

func (v *txView) DeleteLeave(_ context.Context, id timesheet.LeaveID) error {
	return v.st.deleteLeave(id)
}

func (v *txView) DeleteLeaveDates(_ context.Context, id timesheet.LeaveID) error {
	v.st.deleteLeaveDates(id)
	return nil
}

func (v *txView) CreateLeaveDate(_ context.Context, ld *timesheet.LeaveDate) error {
	return v.st.createLeaveDate(ld)
}

func (v *txView) GetOrCreateTimesheet(_ context.Context, user timesheet.UserID, year, month int) (*timesheet.Timesheet, error) {
	ts := v.st.getOrCreateTimesheet(user, year, month)
	return &ts, nil
}

func (v *txView) GetTimesheet(_ context.Context, id timesheet.TimesheetID) (*timesheet.Timesheet, error) {
	return v.st.getTimesheet(id)
}

func (v *txView) UpdateTimesheetStatus(_ context.Context, id timesheet.TimesheetID, from, to timesheet.TimesheetStatus) error {
	return v.st.updateTimesheetStatus(id, from, to)
}

func (v *txView) CreatePerformance(_ context.Context, p *timesheet.Performance) error {
	v.st.createPerformance(p)
	return nil
}

// =============================================================================
// STATE OPERATIONS (caller holds the mutex)
// =============================================================================

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.contracts {
		c.contracts[k] = v
	}
	for k, v := range s.holidays {
		c.holidays[k] = v
	}
	for k, v := range s.leaves {
		c.leaves[k] = v
	}
	for k, v := range s.leaveDates {
		c.leaveDates[k] = v
	}
	for k, v := range s.timesheets {
		c.timesheets[k] = v
	}
	for k, v := range s.performances {
		c.performances[k] = v
	}
	return c
}

func userSet(users []timesheet.UserID) map[timesheet.UserID]bool {
	set := make(map[timesheet.UserID]bool, len(users))
	for _, u := range users {
		set[u] = true
	}
	return set
}

func (s *state) employmentContractsBetween(users []timesheet.UserID, period generic.Period) []timesheet.EmploymentContract {
	wanted := userSet(users)
	var out []timesheet.EmploymentContract
	for _, c := range s.contracts {
		if wanted[c.UserID] && period.Overlaps(c.StartedAt, c.EndedAt) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

func (s *state) holidaysBetween(period generic.Period) []timesheet.Holiday {
	var out []timesheet.Holiday
	for _, h := range s.holidays {
		if period.Contains(h.Date) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (s *state) approvedLeaveDatesBetween(users []timesheet.UserID, period generic.Period) []timesheet.LeaveDate {
	wanted := userSet(users)
	var out []timesheet.LeaveDate
	for _, ld := range s.leaveDates {
		if !wanted[ld.UserID] || !period.Contains(generic.DateOf(ld.StartsAt)) {
			continue
		}
		if s.leaves[ld.LeaveID].Status != timesheet.LeaveApproved {
			continue
		}
		out = append(out, ld)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out
}

func (s *state) performancesBetween(users []timesheet.UserID, period generic.Period) []timesheet.Performance {
	wanted := userSet(users)
	var out []timesheet.Performance
	for _, p := range s.performances {
		if wanted[p.UserID] && period.Contains(p.Date) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *state) getLeave(id timesheet.LeaveID) (*timesheet.Leave, error) {
	l, ok := s.leaves[id]
	if !ok {
		return nil, generic.NotFound("leave", string(id))
	}
	l.Attachments = append([]timesheet.Attachment(nil), l.Attachments...)
	l.Dates = nil
	for _, ld := range s.leaveDates {
		if ld.LeaveID == id {
			l.Dates = append(l.Dates, ld)
		}
	}
	sort.Slice(l.Dates, func(i, j int) bool { return l.Dates[i].StartsAt.Before(l.Dates[j].StartsAt) })
	return &l, nil
}

func (s *state) saveLeave(leave *timesheet.Leave) {
	if leave.ID == "" {
		leave.ID = timesheet.LeaveID(uuid.NewString())
	}
	stored := *leave
	stored.Dates = nil
	stored.Attachments = append([]timesheet.Attachment(nil), leave.Attachments...)
	s.leaves[leave.ID] = stored
}

func (s *state) deleteLeave(id timesheet.LeaveID) error {
	if _, ok := s.leaves[id]; !ok {
		return generic.NotFound("leave", string(id))
	}
	s.deleteLeaveDates(id)
	delete(s.leaves, id)
	return nil
}

func (s *state) deleteLeaveDates(id timesheet.LeaveID) {
	for k, ld := range s.leaveDates {
		if ld.LeaveID == id {
			delete(s.leaveDates, k)
		}
	}
}

func (s *state) createLeaveDate(ld *timesheet.LeaveDate) error {
	for _, existing := range s.leaveDates {
		if existing.UserID == ld.UserID && existing.Overlaps(*ld) {
			return timesheet.ErrOverlappingLeave.WithMessage("overlaps leave %s from %s", existing.LeaveID, existing.StartsAt.Format("2006-01-02 15:04"))
		}
	}
	if ld.ID == "" {
		ld.ID = timesheet.LeaveDateID(uuid.NewString())
	}
	s.leaveDates[ld.ID] = *ld
	return nil
}

func (s *state) getOrCreateTimesheet(user timesheet.UserID, year, month int) timesheet.Timesheet {
	k := timesheetKey{UserID: user, Year: year, Month: month}
	if ts, ok := s.timesheets[k]; ok {
		return ts
	}
	ts := timesheet.Timesheet{
		ID:     timesheet.TimesheetID(uuid.NewString()),
		UserID: user,
		Year:   year,
		Month:  month,
		Status: timesheet.TimesheetActive,
	}
	s.timesheets[k] = ts
	return ts
}

func (s *state) getTimesheet(id timesheet.TimesheetID) (*timesheet.Timesheet, error) {
	for _, ts := range s.timesheets {
		if ts.ID == id {
			return &ts, nil
		}
	}
	return nil, generic.NotFound("timesheet", string(id))
}

func (s *state) updateTimesheetStatus(id timesheet.TimesheetID, from, to timesheet.TimesheetStatus) error {
	for k, ts := range s.timesheets {
		if ts.ID != id {
			continue
		}
		if ts.Status != from {
			return fmt.Errorf("%w: timesheet %s is no longer %s", generic.ErrConcurrentModification, id, from)
		}
		ts.Status = to
		s.timesheets[k] = ts
		return nil
	}
	return generic.NotFound("timesheet", string(id))
}

func (s *state) createPerformance(p *timesheet.Performance) {
	if p.ID == "" {
		p.ID = timesheet.PerformanceID(uuid.NewString())
	}
	s.performances[p.ID] = *p
}
