/*
handlers.go - HTTP API handlers for the worktime engine

PURPOSE:
  Exposes range aggregation, leave expansion and the reference data they
  read via REST API. Handles HTTP request/response, JSON serialization,
  and delegates to the timesheet package.

ENDPOINTS:
  Range info:
    GET    /api/range-info                  Hour totals per user over a range

  Leaves:
    GET    /api/leaves?user=                List a user's leaves
    POST   /api/leaves                      Create leave and apply its range
    GET    /api/leaves/{id}                 Get leave with its spans
    PUT    /api/leaves/{id}/range           Re-apply the date range
    POST   /api/leaves/{id}/attachments     Append attachments
    POST   /api/leaves/{id}/approve         pending → approved
    POST   /api/leaves/{id}/reject          pending → rejected
    DELETE /api/leaves/{id}                 Delete draft or pending leave

  Reference data:
    GET    /api/holidays?year=              List holidays of a year
    POST   /api/holidays                    Create holiday
    POST   /api/users                       Create user
    POST   /api/companies                   Create company
    POST   /api/work-schedules              Create work schedule
    POST   /api/employment-contracts        Create employment contract

  Billing:
    POST   /api/contracts                   Create billing contract
    POST   /api/performances                Book a performance
    POST   /api/timesheets/{id}/status      Move a timesheet

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access
  - Aggregator / Expander / Leaves: timesheet components over Store
  - Contracts / Performances: JSON factories for the variant records

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors as {"errors": {field: [{message, code}]}}
  - 404: Resource not found
  - 409: Concurrent modification, safe to retry
  - 500: Internal errors (logged, message hidden)

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/warp/worktime/factory"
	"github.com/warp/worktime/generic"
	"github.com/warp/worktime/store/sqlite"
	"github.com/warp/worktime/timesheet"
)

var (
	errInvalidBody = generic.NewValidationError("body", "invalid_body", "request body is not valid JSON")
	errRequired    = generic.NewValidationError("", "required", "this field is required")
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Options configures the timesheet components built by NewHandler.
type Options struct {
	// Location is the business timezone. Defaults to UTC.
	Location *time.Location

	// WorkdayStartHour is the hour full-day leave spans start at.
	WorkdayStartHour int

	Logger logrus.FieldLogger
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store        *sqlite.Store
	Aggregator   *timesheet.RangeAggregator
	Expander     *timesheet.LeaveExpander
	Leaves       *timesheet.LeaveService
	Contracts    *factory.ContractFactory
	Performances *factory.PerformanceFactory
	Logger       logrus.FieldLogger

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store, opts Options) *Handler {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.WorkdayStartHour == 0 {
		opts.WorkdayStartHour = timesheet.DefaultWorkdayStartHour
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	aggregator := timesheet.NewRangeAggregator(store)
	aggregator.Location = opts.Location
	aggregator.Logger = opts.Logger

	expander := timesheet.NewLeaveExpander(store)
	expander.Location = opts.Location
	expander.WorkdayStartHour = opts.WorkdayStartHour
	expander.Logger = opts.Logger

	leaves := timesheet.NewLeaveService(store)
	leaves.Logger = opts.Logger

	return &Handler{
		Store:        store,
		Aggregator:   aggregator,
		Expander:     expander,
		Leaves:       leaves,
		Contracts:    factory.NewContractFactory(),
		Performances: factory.NewPerformanceFactory(),
		Logger:       opts.Logger,
	}
}

// =============================================================================
// RANGE INFO
// =============================================================================

// GetRangeInfo returns hour totals per user.
// GET /api/range-info?users=a,b&from=2024-03-01&until=2024-03-31&daily=1&detailed=1&summary=1
func (h *Handler) GetRangeInfo(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var users []timesheet.UserID
	for _, id := range strings.Split(q.Get("users"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			users = append(users, timesheet.UserID(id))
		}
	}
	from, err := queryDate(q.Get("from"), "from")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	until, err := queryDate(q.Get("until"), "until")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	opts := timesheet.RangeOptions{
		Daily:    queryBool(q.Get("daily")),
		Detailed: queryBool(q.Get("detailed")),
		Summary:  queryBool(q.Get("summary")),
	}
	results, err := h.Aggregator.GetRangeInfo(r.Context(), users, from, until, opts)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	resp := make(map[string]RangeInfoDTO, len(results))
	for user, result := range results {
		resp[string(user)] = toRangeInfoDTO(result)
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// LEAVES
// =============================================================================

// CreateLeave creates a leave and applies its date range.
// POST /api/leaves
func (h *Handler) CreateLeave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateLeaveRequest
	if !h.decode(w, r, &req) {
		return
	}
	switch {
	case req.User == "":
		h.respondError(w, r, required("user"))
		return
	case req.StartsAt.IsZero():
		h.respondError(w, r, required("starts_at"))
		return
	case req.EndsAt.IsZero():
		h.respondError(w, r, required("ends_at"))
		return
	}

	leave := &timesheet.Leave{
		ID:          timesheet.LeaveID(uuid.NewString()),
		UserID:      timesheet.UserID(req.User),
		LeaveTypeID: timesheet.LeaveTypeID(req.LeaveType),
		Description: req.Description,
		Status:      timesheet.LeaveDraft,
	}
	applied, err := h.Expander.CreateLeave(ctx, leave, req.StartsAt, req.EndsAt, req.FullDay)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toLeaveDTO(applied))
}

// ListLeaves returns the leaves of a user.
// GET /api/leaves?user=alice
func (h *Handler) ListLeaves(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		h.respondError(w, r, required("user"))
		return
	}
	leaves, err := h.Store.ListLeaves(r.Context(), timesheet.UserID(user))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	dtos := make([]LeaveDTO, 0, len(leaves))
	for i := range leaves {
		dtos = append(dtos, toLeaveDTO(&leaves[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaves": dtos})
}

// GetLeave returns a leave with its spans.
// GET /api/leaves/{id}
func (h *Handler) GetLeave(w http.ResponseWriter, r *http.Request) {
	leave, err := h.Store.GetLeave(r.Context(), timesheet.LeaveID(chi.URLParam(r, "id")))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(leave))
}

// ApplyLeaveRange replaces the spans of a leave.
// PUT /api/leaves/{id}/range
func (h *Handler) ApplyLeaveRange(w http.ResponseWriter, r *http.Request) {
	var req ApplyRangeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.StartsAt.IsZero() || req.EndsAt.IsZero() {
		h.respondError(w, r, required("starts_at"))
		return
	}

	id := timesheet.LeaveID(chi.URLParam(r, "id"))
	leave, err := h.Expander.ApplyDateRange(r.Context(), id, req.StartsAt, req.EndsAt, req.FullDay)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(leave))
}

// AddLeaveAttachments appends attachments to a leave.
// POST /api/leaves/{id}/attachments
func (h *Handler) AddLeaveAttachments(w http.ResponseWriter, r *http.Request) {
	var req AddAttachmentsRequest
	if !h.decode(w, r, &req) {
		return
	}

	attachments := make([]timesheet.Attachment, 0, len(req.Attachments))
	for _, a := range req.Attachments {
		if a.URL == "" {
			h.respondError(w, r, required("url"))
			return
		}
		attachments = append(attachments, timesheet.Attachment{Name: a.Name, URL: a.URL})
	}

	leave, err := h.Leaves.AddAttachments(r.Context(), timesheet.LeaveID(chi.URLParam(r, "id")), attachments...)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(leave))
}

// ApproveLeave approves a pending leave.
// POST /api/leaves/{id}/approve
func (h *Handler) ApproveLeave(w http.ResponseWriter, r *http.Request) {
	h.decideLeave(w, r, timesheet.LeaveApproved)
}

// RejectLeave rejects a pending leave.
// POST /api/leaves/{id}/reject
func (h *Handler) RejectLeave(w http.ResponseWriter, r *http.Request) {
	h.decideLeave(w, r, timesheet.LeaveRejected)
}

func (h *Handler) decideLeave(w http.ResponseWriter, r *http.Request, to timesheet.LeaveStatus) {
	leave, err := h.Leaves.Decide(r.Context(), timesheet.LeaveID(chi.URLParam(r, "id")), to)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(leave))
}

// DeleteLeave deletes a draft or pending leave.
// DELETE /api/leaves/{id}
func (h *Handler) DeleteLeave(w http.ResponseWriter, r *http.Request) {
	if err := h.Leaves.Delete(r.Context(), timesheet.LeaveID(chi.URLParam(r, "id"))); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

// ListHolidays returns the holidays of a year (default: current year).
// GET /api/holidays?year=2024
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	year := time.Now().Year()
	if s := r.URL.Query().Get("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil {
			h.respondError(w, r, generic.NewValidationError("year", "invalid_year", "year must be a number"))
			return
		}
		year = y
	}

	holidays, err := h.Store.ListHolidays(r.Context(), year)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	dtos := make([]HolidayDTO, 0, len(holidays))
	for _, hol := range holidays {
		dtos = append(dtos, toHolidayDTO(hol))
	}
	writeJSON(w, http.StatusOK, map[string]any{"holidays": dtos})
}

// CreateHoliday creates a holiday.
// POST /api/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req CreateHolidayRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		h.respondError(w, r, required("name"))
		return
	}
	if req.Country == "" {
		h.respondError(w, r, required("country"))
		return
	}
	date, err := queryDate(req.Date, "date")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	holiday := &timesheet.Holiday{Name: req.Name, Date: date, Country: strings.ToUpper(req.Country)}
	if err := h.Store.SaveHoliday(r.Context(), holiday); err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toHolidayDTO(*holiday))
}

// CreateUser creates a user.
// POST /api/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Username == "" {
		h.respondError(w, r, required("username"))
		return
	}

	user := &timesheet.User{
		ID:        timesheet.UserID(req.ID),
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Active:    req.Active,
	}
	if err := h.Store.SaveUser(r.Context(), user); err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(*user))
}

// CreateCompany creates a company.
// POST /api/companies
func (h *Handler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req CreateCompanyRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		h.respondError(w, r, required("name"))
		return
	}

	company := &timesheet.Company{
		ID:       timesheet.CompanyID(req.ID),
		Name:     req.Name,
		Country:  strings.ToUpper(req.Country),
		Internal: req.Internal,
	}
	if err := h.Store.SaveCompany(r.Context(), company); err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateCompanyRequest{
		ID:       string(company.ID),
		Name:     company.Name,
		Country:  company.Country,
		Internal: company.Internal,
	})
}

// CreateWorkSchedule creates a work schedule.
// POST /api/work-schedules
func (h *Handler) CreateWorkSchedule(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkScheduleRequest
	if !h.decode(w, r, &req) {
		return
	}

	ws := &timesheet.WorkSchedule{
		ID:        timesheet.WorkScheduleID(req.ID),
		Name:      req.Name,
		Monday:    req.Monday,
		Tuesday:   req.Tuesday,
		Wednesday: req.Wednesday,
		Thursday:  req.Thursday,
		Friday:    req.Friday,
		Saturday:  req.Saturday,
		Sunday:    req.Sunday,
	}
	if err := h.Store.SaveWorkSchedule(r.Context(), ws); err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":           ws.ID,
		"name":         ws.Name,
		"weekly_hours": hours(ws.WeeklyHours()),
	})
}

// CreateEmploymentContract binds a user to a company and schedule.
// POST /api/employment-contracts
func (h *Handler) CreateEmploymentContract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateEmploymentContractRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.User == "" {
		h.respondError(w, r, required("user"))
		return
	}
	startedAt, err := queryDate(req.StartedAt, "started_at")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var endedAt *generic.TimePoint
	if req.EndedAt != "" {
		end, err := queryDate(req.EndedAt, "ended_at")
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		endedAt = &end
	}

	company, err := h.Store.GetCompany(ctx, timesheet.CompanyID(req.Company))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	schedule, err := h.Store.GetWorkSchedule(ctx, timesheet.WorkScheduleID(req.WorkSchedule))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	contract := &timesheet.EmploymentContract{
		ID:           timesheet.EmploymentContractID(req.ID),
		UserID:       timesheet.UserID(req.User),
		Company:      *company,
		WorkSchedule: *schedule,
		StartedAt:    startedAt,
		EndedAt:      endedAt,
	}
	if err := h.Store.SaveEmploymentContract(ctx, contract); err != nil {
		h.respondError(w, r, err)
		return
	}

	resp := map[string]any{
		"id":            contract.ID,
		"user":          contract.UserID,
		"company":       company.ID,
		"work_schedule": schedule.ID,
		"started_at":    startedAt.String(),
	}
	if endedAt != nil {
		resp["ended_at"] = endedAt.String()
	}
	writeJSON(w, http.StatusCreated, resp)
}

// =============================================================================
// BILLING
// =============================================================================

// CreateContract creates a billing contract from its flat JSON form.
// POST /api/contracts
func (h *Handler) CreateContract(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}
	contract, err := h.Contracts.ParseContract(body)
	if err != nil {
		h.respondError(w, r, asBodyError(err))
		return
	}
	if err := h.Store.SaveContract(r.Context(), contract); err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.Contracts.ToJSON(*contract))
}

// CreatePerformance books a performance on its contract.
// POST /api/performances
func (h *Handler) CreatePerformance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}
	p, err := h.Performances.ParsePerformance(body)
	if err != nil {
		h.respondError(w, r, asBodyError(err))
		return
	}
	contract, err := h.Store.GetContract(ctx, p.ContractID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	booked, err := timesheet.RecordPerformance(ctx, h.Store, *contract, *p)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.Performances.ToJSON(*booked))
}

// SetTimesheetStatus moves a timesheet through its lifecycle.
// POST /api/timesheets/{id}/status
func (h *Handler) SetTimesheetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req TimesheetStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	ts, err := timesheet.TransitionTimesheet(ctx, h.Store,
		timesheet.TimesheetID(chi.URLParam(r, "id")), timesheet.TimesheetStatus(req.Status), req.Privileged)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTimesheetDTO(ts))
}

// ResetDatabase clears all data.
// POST /api/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.setCurrentScenario("")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil && status < http.StatusInternalServerError {
		resp.Error = message + ": " + err.Error()
	}
	writeJSON(w, status, resp)
}

// respondError maps domain errors to HTTP responses.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *generic.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Errors: map[string][]FieldErrorDTO{
				verr.Field: {{Message: verr.Message, Code: verr.Code}},
			},
		})
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case generic.IsRetryable(err):
		h.requestLogger(r).WithError(err).Warn("write conflict")
		writeError(w, http.StatusConflict, "Concurrent modification, retry the request", nil)
	default:
		h.requestLogger(r).WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error", err)
	}
}

func (h *Handler) requestLogger(r *http.Request) logrus.FieldLogger {
	logger := h.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return logger.WithFields(logrus.Fields{
		"request_id": middleware.GetReqID(r.Context()),
		"method":     r.Method,
		"path":       r.URL.Path,
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.respondError(w, r, errInvalidBody.WithMessage("invalid request body: %v", err))
		return false
	}
	return true
}

func (h *Handler) setCurrentScenario(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.currentScenario = id
}

func (h *Handler) scenario() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentScenario
}

// asBodyError turns a JSON decoding failure into a validation error.
func asBodyError(err error) error {
	var verr *generic.ValidationError
	if errors.As(err, &verr) || generic.IsNotFound(err) {
		return err
	}
	return errInvalidBody.WithMessage("%v", err)
}

func required(field string) error {
	return generic.NewValidationError(field, errRequired.Code, field+" is required")
}

func queryDate(s, field string) (generic.TimePoint, error) {
	if s == "" {
		return generic.TimePoint{}, required(field)
	}
	tp, err := generic.ParseDate(s)
	if err != nil {
		return generic.TimePoint{}, generic.NewValidationError(field, factory.ErrInvalidDate.Code,
			field+" must be formatted as YYYY-MM-DD")
	}
	return tp, nil
}

func queryBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}
