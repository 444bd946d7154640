/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates companies, schedules,
	users, contracts, holidays, leaves and performances that demonstrate
	specific features of the range aggregation.

AVAILABLE SCENARIOS:

	belgian-office:    Two full-time employees in Belgium, national
	                   holidays, an approved and a pending leave
	contract-switch:   Full-time to part-time switch in the middle of March
	consultancy:       Billing contract with activity and standby days

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create companies and work schedules
 3. Create users and employment contracts
 4. Add holidays
 5. Create leaves through the expander, then decide them
 6. Optionally book performances

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "belgian-office"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add it to the 'loaders' map

NOTE:

	Scenarios reset the database. Only use in development/demo environments.
	All dates are in March of the current year.

SEE ALSO:
  - handlers.go: LoadScenario, ListScenarios handlers
  - timesheet/expander.go: Leave expansion
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/worktime/generic"
	"github.com/warp/worktime/timesheet"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "belgian-office",
		Name:        "Belgian Office",
		Description: "Two full-time employees, Belgian holidays, one approved and one pending leave",
	},
	{
		ID:          "contract-switch",
		Name:        "Contract Switch",
		Description: "Employee moving from full-time to part-time in the middle of March",
	},
	{
		ID:          "consultancy",
		Name:        "Consultancy",
		Description: "Consultancy contract with activity performances and standby days",
	},
}

func (h *Handler) loaders() map[string]func(context.Context) error {
	return map[string]func(context.Context) error{
		"belgian-office":  h.loadBelgianOfficeScenario,
		"contract-switch": h.loadContractSwitchScenario,
		"consultancy":     h.loadConsultancyScenario,
	}
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	current := h.scenario()
	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decode(w, r, &req) {
		return
	}
	load, ok := h.loaders()[req.ScenarioID]
	if !ok {
		h.respondError(w, r, generic.NewValidationError("scenario_id", "unknown_scenario",
			fmt.Sprintf("unknown scenario %q", req.ScenarioID)))
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.setCurrentScenario("")

	if err := load(ctx); err != nil {
		h.requestLogger(r).WithError(err).WithField("scenario", req.ScenarioID).Error("failed to load scenario")
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.setCurrentScenario(req.ScenarioID)
	h.requestLogger(r).WithField("scenario", req.ScenarioID).Info("scenario loaded")
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadBelgianOfficeScenario(ctx context.Context) error {
	year := time.Now().Year()
	acme := timesheet.Company{ID: "acme-be", Name: "Acme Belgium", Country: "BE", Internal: true}
	fullTime := standardSchedule("full-time", "Full time", 8)
	if err := h.seedEmployer(ctx, acme, fullTime); err != nil {
		return err
	}
	if err := h.seedBelgianHolidays(ctx, year); err != nil {
		return err
	}

	start := generic.NewTimePoint(year, time.January, 1)
	alice := timesheet.User{ID: "alice", Username: "alice", FirstName: "Alice", LastName: "Peeters", Email: "alice@example.com", Active: true}
	bob := timesheet.User{ID: "bob", Username: "bob", FirstName: "Bob", LastName: "Janssens", Email: "bob@example.com", Active: true}
	for _, u := range []timesheet.User{alice, bob} {
		if err := h.seedEmployee(ctx, u, acme, fullTime, start, nil); err != nil {
			return err
		}
	}

	monday := firstWeekday(year, time.March, time.Monday)
	if _, err := h.seedLeave(ctx, alice.ID, "Spring break", monday, monday.AddDays(4), timesheet.LeaveApproved); err != nil {
		return err
	}
	if _, err := h.seedLeave(ctx, bob.ID, "Dentist", monday.AddDays(9), monday.AddDays(9), timesheet.LeavePending); err != nil {
		return err
	}
	return nil
}

func (h *Handler) loadContractSwitchScenario(ctx context.Context) error {
	year := time.Now().Year()
	acme := timesheet.Company{ID: "acme-be", Name: "Acme Belgium", Country: "BE", Internal: true}
	fullTime := standardSchedule("full-time", "Full time", 8)
	partTime := standardSchedule("part-time", "Part time", 4)
	if err := h.seedEmployer(ctx, acme, fullTime); err != nil {
		return err
	}
	if err := h.Store.SaveWorkSchedule(ctx, &partTime); err != nil {
		return err
	}

	carol := timesheet.User{ID: "carol", Username: "carol", FirstName: "Carol", LastName: "Maes", Active: true}
	switchDay := generic.NewTimePoint(year, time.March, 16)
	lastFullTime := switchDay.AddDays(-1)
	if err := h.seedEmployee(ctx, carol, acme, fullTime, generic.NewTimePoint(year, time.January, 1), &lastFullTime); err != nil {
		return err
	}
	contract := timesheet.EmploymentContract{
		ID:           "carol-part-time",
		UserID:       carol.ID,
		Company:      acme,
		WorkSchedule: partTime,
		StartedAt:    switchDay,
	}
	if err := h.Store.SaveEmploymentContract(ctx, &contract); err != nil {
		return err
	}

	// one leave on each side of the switch
	before := firstWeekday(year, time.March, time.Wednesday)
	after := switchDay
	for after.IsWeekend() {
		after = after.AddDays(1)
	}
	if _, err := h.seedLeave(ctx, carol.ID, "Moving", before, before, timesheet.LeaveApproved); err != nil {
		return err
	}
	_, err := h.seedLeave(ctx, carol.ID, "Family", after, after, timesheet.LeaveApproved)
	return err
}

func (h *Handler) loadConsultancyScenario(ctx context.Context) error {
	year := time.Now().Year()
	acme := timesheet.Company{ID: "acme-be", Name: "Acme Belgium", Country: "BE", Internal: true}
	globex := timesheet.Company{ID: "globex", Name: "Globex", Country: "NL"}
	fullTime := standardSchedule("full-time", "Full time", 8)
	if err := h.seedEmployer(ctx, acme, fullTime); err != nil {
		return err
	}
	if err := h.Store.SaveCompany(ctx, &globex); err != nil {
		return err
	}

	dave := timesheet.User{ID: "dave", Username: "dave", FirstName: "Dave", LastName: "Wouters", Active: true}
	if err := h.seedEmployee(ctx, dave, acme, fullTime, generic.NewTimePoint(year, time.January, 1), nil); err != nil {
		return err
	}

	normal := timesheet.PerformanceType{ID: "normal", Name: "Normal", Multiplier: decimal.NewFromInt(1)}
	night := timesheet.PerformanceType{ID: "night", Name: "Night work", Multiplier: decimal.NewFromFloat(1.5)}
	for _, pt := range []*timesheet.PerformanceType{&normal, &night} {
		if err := h.Store.SavePerformanceType(ctx, pt); err != nil {
			return err
		}
	}

	contract, err := h.Contracts.ParseContract([]byte(fmt.Sprintf(`{
		"id": "globex-platform", "type": "consultancy", "name": "Globex platform",
		"company": "acme-be", "customer": "globex",
		"day_rate": "800", "duration": "160",
		"starts_at": "%d-01-01", "performance_types": ["normal", "night"]
	}`, year)))
	if err != nil {
		return err
	}
	if err := h.Store.SaveContract(ctx, contract); err != nil {
		return err
	}

	monday := firstWeekday(year, time.March, time.Monday)
	durations := []string{"7.5", "8", "9.25", "6", "8"}
	for i, d := range durations {
		p, err := h.Performances.ParsePerformance([]byte(fmt.Sprintf(
			`{"type": "activity", "user": "dave", "date": %q, "contract": "globex-platform", "performance_type": "normal", "duration": %q}`,
			monday.AddDays(i).String(), d)))
		if err != nil {
			return err
		}
		if _, err := timesheet.RecordPerformance(ctx, h.Store, *contract, *p); err != nil {
			return err
		}
	}
	standby, err := h.Performances.ParsePerformance([]byte(fmt.Sprintf(
		`{"type": "standby", "user": "dave", "date": %q, "contract": "globex-platform"}`, monday.AddDays(5).String())))
	if err != nil {
		return err
	}
	_, err = timesheet.RecordPerformance(ctx, h.Store, *contract, *standby)
	return err
}

// =============================================================================
// SEED HELPERS
// =============================================================================

func (h *Handler) seedEmployer(ctx context.Context, company timesheet.Company, schedule timesheet.WorkSchedule) error {
	if err := h.Store.SaveCompany(ctx, &company); err != nil {
		return err
	}
	return h.Store.SaveWorkSchedule(ctx, &schedule)
}

func (h *Handler) seedEmployee(ctx context.Context, u timesheet.User, company timesheet.Company, schedule timesheet.WorkSchedule, start generic.TimePoint, end *generic.TimePoint) error {
	if err := h.Store.SaveUser(ctx, &u); err != nil {
		return err
	}
	contract := timesheet.EmploymentContract{
		ID:           timesheet.EmploymentContractID(string(u.ID) + "-" + string(schedule.ID)),
		UserID:       u.ID,
		Company:      company,
		WorkSchedule: schedule,
		StartedAt:    start,
		EndedAt:      end,
	}
	return h.Store.SaveEmploymentContract(ctx, &contract)
}

func (h *Handler) seedBelgianHolidays(ctx context.Context, year int) error {
	holidays := []timesheet.Holiday{
		{Name: "New Year", Date: generic.NewTimePoint(year, time.January, 1), Country: "BE"},
		{Name: "Labour Day", Date: generic.NewTimePoint(year, time.May, 1), Country: "BE"},
		{Name: "National Day", Date: generic.NewTimePoint(year, time.July, 21), Country: "BE"},
		{Name: "Assumption", Date: generic.NewTimePoint(year, time.August, 15), Country: "BE"},
		{Name: "All Saints", Date: generic.NewTimePoint(year, time.November, 1), Country: "BE"},
		{Name: "Armistice", Date: generic.NewTimePoint(year, time.November, 11), Country: "BE"},
		{Name: "Christmas", Date: generic.NewTimePoint(year, time.December, 25), Country: "BE"},
		// a holiday of another country, ignored for Belgian employees
		{Name: "King's Day", Date: generic.NewTimePoint(year, time.April, 27), Country: "NL"},
	}
	for i := range holidays {
		if err := h.Store.SaveHoliday(ctx, &holidays[i]); err != nil {
			return err
		}
	}
	return nil
}

// seedLeave creates a full-day leave over [from, to] and moves it to status.
func (h *Handler) seedLeave(ctx context.Context, user timesheet.UserID, description string, from, to generic.TimePoint, status timesheet.LeaveStatus) (*timesheet.Leave, error) {
	leaveType := timesheet.LeaveType{ID: "holiday", Name: "Holiday"}
	if err := h.Store.SaveLeaveType(ctx, &leaveType); err != nil {
		return nil, err
	}
	leave := &timesheet.Leave{UserID: user, LeaveTypeID: leaveType.ID, Description: description}

	loc := h.Expander.Location
	applied, err := h.Expander.CreateLeave(ctx, leave, from.At(0, 0, 0, loc), to.At(23, 59, 59, loc), true)
	if err != nil {
		return nil, fmt.Errorf("failed to apply range of %s leave: %w", user, err)
	}
	if status == timesheet.LeavePending {
		return applied, nil
	}
	return h.Leaves.Decide(ctx, leave.ID, status)
}

func standardSchedule(id timesheet.WorkScheduleID, name string, daily int64) timesheet.WorkSchedule {
	d := decimal.NewFromInt(daily)
	return timesheet.WorkSchedule{
		ID: id, Name: name,
		Monday: d, Tuesday: d, Wednesday: d, Thursday: d, Friday: d,
		Saturday: decimal.Zero, Sunday: decimal.Zero,
	}
}

func firstWeekday(year int, month time.Month, wd time.Weekday) generic.TimePoint {
	day := generic.NewTimePoint(year, month, 1)
	for day.Weekday() != wd {
		day = day.AddDays(1)
	}
	return day
}
