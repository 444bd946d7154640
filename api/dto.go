/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Range info:
    RangeInfoDTO, DayInfoDTO, ContractSummaryDTO

  Leaves:
    LeaveDTO, LeaveDateDTO, CreateLeaveRequest, ApplyRangeRequest

  Reference data:
    CreateUserRequest, CreateCompanyRequest, CreateWorkScheduleRequest,
    CreateEmploymentContractRequest, CreateHolidayRequest

  Contracts / performances:
    factory.ContractJSON and factory.PerformanceJSON are used as-is

HOURS:
  Hours are decimals internally and float64 on the wire, rounded to two
  places by the domain before conversion.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/contract.go: ContractJSON and PerformanceJSON
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/worktime/generic"
	"github.com/warp/worktime/timesheet"
)

// =============================================================================
// RANGE INFO
// =============================================================================

// HoursDTO is the set of figures shared by users and days.
type HoursDTO struct {
	WorkHours      float64 `json:"work_hours"`
	HolidayHours   float64 `json:"holiday_hours"`
	LeaveHours     float64 `json:"leave_hours"`
	PerformedHours float64 `json:"performed_hours"`
	RemainingHours float64 `json:"remaining_hours"`
	TotalHours     float64 `json:"total_hours"`
	OvertimeHours  float64 `json:"overtime_hours"`
}

// RangeInfoDTO is one user's result in GET /api/range-info.
type RangeInfoDTO struct {
	HoursDTO
	Details map[string]DayInfoDTO `json:"details,omitempty"`
	Summary *SummaryDTO           `json:"summary,omitempty"`
}

// DayInfoDTO is one day inside RangeInfoDTO.Details.
type DayInfoDTO struct {
	HoursDTO
	Holidays     []HolidayDTO     `json:"holidays,omitempty"`
	LeaveDates   []LeaveDateDTO   `json:"leave_dates,omitempty"`
	Performances []PerformanceDTO `json:"performances,omitempty"`
}

// SummaryDTO wraps the per-contract performance buckets.
type SummaryDTO struct {
	Performances []ContractSummaryDTO `json:"performances"`
}

// ContractSummaryDTO is one contract's performance bucket.
type ContractSummaryDTO struct {
	Contract    string  `json:"contract"`
	Duration    float64 `json:"duration"`
	StandbyDays int     `json:"standby_days"`
}

// PerformanceDTO lists a performance inside a day's detail.
type PerformanceDTO struct {
	ID       string  `json:"id"`
	Type     string  `json:"type"`
	Contract string  `json:"contract"`
	Duration float64 `json:"duration"`
}

// =============================================================================
// LEAVES
// =============================================================================

// LeaveDTO represents a leave in API responses.
type LeaveDTO struct {
	ID          string          `json:"id"`
	User        string          `json:"user"`
	LeaveType   string          `json:"leave_type"`
	Description string          `json:"description,omitempty"`
	Status      string          `json:"status"`
	Hours       float64         `json:"hours"`
	Attachments []AttachmentDTO `json:"attachments"`
	Dates       []LeaveDateDTO  `json:"dates"`
	CreatedAt   string          `json:"created_at,omitempty"`
	UpdatedAt   string          `json:"updated_at,omitempty"`
}

// LeaveDateDTO represents one leave span.
type LeaveDateDTO struct {
	ID        string  `json:"id"`
	Leave     string  `json:"leave"`
	Timesheet string  `json:"timesheet"`
	StartsAt  string  `json:"starts_at"`
	EndsAt    string  `json:"ends_at"`
	Hours     float64 `json:"hours"`
}

// AttachmentDTO is a file reference on a leave.
type AttachmentDTO struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// CreateLeaveRequest creates a leave and applies its date range.
type CreateLeaveRequest struct {
	User        string    `json:"user"`
	LeaveType   string    `json:"leave_type"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	FullDay     bool      `json:"full_day"`
}

// ApplyRangeRequest re-applies a leave's date range.
type ApplyRangeRequest struct {
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
	FullDay  bool      `json:"full_day"`
}

// AddAttachmentsRequest appends attachments to a leave.
type AddAttachmentsRequest struct {
	Attachments []AttachmentDTO `json:"attachments"`
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

// HolidayDTO represents a holiday.
type HolidayDTO struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Date    string `json:"date"`
	Country string `json:"country"`
}

// CreateHolidayRequest is the request to create a holiday.
type CreateHolidayRequest struct {
	Name    string `json:"name"`
	Date    string `json:"date"`
	Country string `json:"country"`
}

// CreateUserRequest is the request to create a user.
type CreateUserRequest struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Active    bool   `json:"active"`
}

// UserDTO represents a user.
type UserDTO struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	Active      bool   `json:"active"`
}

// CreateCompanyRequest is the request to create a company.
type CreateCompanyRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Country  string `json:"country"`
	Internal bool   `json:"internal"`
}

// CreateWorkScheduleRequest is the request to create a work schedule.
type CreateWorkScheduleRequest struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Monday    decimal.Decimal `json:"monday"`
	Tuesday   decimal.Decimal `json:"tuesday"`
	Wednesday decimal.Decimal `json:"wednesday"`
	Thursday  decimal.Decimal `json:"thursday"`
	Friday    decimal.Decimal `json:"friday"`
	Saturday  decimal.Decimal `json:"saturday"`
	Sunday    decimal.Decimal `json:"sunday"`
}

// CreateEmploymentContractRequest binds a user to a company and schedule.
type CreateEmploymentContractRequest struct {
	ID           string `json:"id"`
	User         string `json:"user"`
	Company      string `json:"company"`
	WorkSchedule string `json:"work_schedule"`
	StartedAt    string `json:"started_at"`
	EndedAt      string `json:"ended_at,omitempty"`
}

// TimesheetStatusRequest moves a timesheet to another status.
type TimesheetStatusRequest struct {
	Status     string `json:"status"`
	Privileged bool   `json:"privileged"`
}

// TimesheetDTO represents a timesheet.
type TimesheetDTO struct {
	ID     string `json:"id"`
	User   string `json:"user"`
	Year   int    `json:"year"`
	Month  int    `json:"month"`
	Status string `json:"status"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects the scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// ERRORS
// =============================================================================

// FieldErrorDTO is one validation failure on a field.
type FieldErrorDTO struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ErrorResponse is the standard error response. Validation failures fill
// Errors keyed by field; everything else fills Error.
type ErrorResponse struct {
	Error  string                     `json:"error,omitempty"`
	Errors map[string][]FieldErrorDTO `json:"errors,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func hours(d decimal.Decimal) float64 {
	return generic.HoursFloat(d)
}

func toHoursDTO(t timesheet.HourTotals) HoursDTO {
	return HoursDTO{
		WorkHours:      hours(t.WorkHours),
		HolidayHours:   hours(t.HolidayHours),
		LeaveHours:     hours(t.LeaveHours),
		PerformedHours: hours(t.PerformedHours),
		RemainingHours: hours(t.RemainingHours),
		TotalHours:     hours(t.TotalHours),
		OvertimeHours:  hours(t.OvertimeHours),
	}
}

func toRangeInfoDTO(r *timesheet.RangeResult) RangeInfoDTO {
	dto := RangeInfoDTO{HoursDTO: toHoursDTO(r.HourTotals)}
	if r.Details != nil {
		dto.Details = make(map[string]DayInfoDTO, len(r.Details))
		for key, day := range r.Details {
			dto.Details[key] = toDayInfoDTO(day)
		}
	}
	if r.Summary != nil {
		dto.Summary = &SummaryDTO{Performances: make([]ContractSummaryDTO, 0, len(r.Summary.Performances))}
		for _, s := range r.Summary.Performances {
			dto.Summary.Performances = append(dto.Summary.Performances, ContractSummaryDTO{
				Contract:    string(s.ContractID),
				Duration:    hours(s.Duration),
				StandbyDays: s.StandbyDays,
			})
		}
	}
	return dto
}

func toDayInfoDTO(d *timesheet.DayResult) DayInfoDTO {
	dto := DayInfoDTO{HoursDTO: toHoursDTO(d.HourTotals)}
	for _, h := range d.Holidays {
		dto.Holidays = append(dto.Holidays, toHolidayDTO(h))
	}
	for _, ld := range d.LeaveDates {
		dto.LeaveDates = append(dto.LeaveDates, toLeaveDateDTO(ld))
	}
	for _, p := range d.Performances {
		dto.Performances = append(dto.Performances, PerformanceDTO{
			ID:       string(p.ID),
			Type:     string(p.Kind),
			Contract: string(p.ContractID),
			Duration: hours(p.Duration()),
		})
	}
	return dto
}

func toHolidayDTO(h timesheet.Holiday) HolidayDTO {
	return HolidayDTO{ID: string(h.ID), Name: h.Name, Date: h.Date.String(), Country: h.Country}
}

func toLeaveDateDTO(ld timesheet.LeaveDate) LeaveDateDTO {
	return LeaveDateDTO{
		ID:        string(ld.ID),
		Leave:     string(ld.LeaveID),
		Timesheet: string(ld.TimesheetID),
		StartsAt:  ld.StartsAt.Format(time.RFC3339),
		EndsAt:    ld.EndsAt.Format(time.RFC3339),
		Hours:     hours(ld.Hours()),
	}
}

func toLeaveDTO(l *timesheet.Leave) LeaveDTO {
	dto := LeaveDTO{
		ID:          string(l.ID),
		User:        string(l.UserID),
		LeaveType:   string(l.LeaveTypeID),
		Description: l.Description,
		Status:      string(l.Status),
		Hours:       hours(l.Hours()),
		Attachments: make([]AttachmentDTO, 0, len(l.Attachments)),
		Dates:       make([]LeaveDateDTO, 0, len(l.Dates)),
	}
	if !l.CreatedAt.IsZero() {
		dto.CreatedAt = l.CreatedAt.Format(time.RFC3339)
	}
	if !l.UpdatedAt.IsZero() {
		dto.UpdatedAt = l.UpdatedAt.Format(time.RFC3339)
	}
	for _, a := range l.Attachments {
		dto.Attachments = append(dto.Attachments, AttachmentDTO{ID: a.ID, Name: a.Name, URL: a.URL})
	}
	for _, ld := range l.Dates {
		dto.Dates = append(dto.Dates, toLeaveDateDTO(ld))
	}
	return dto
}

func toUserDTO(u timesheet.User) UserDTO {
	return UserDTO{
		ID:          string(u.ID),
		Username:    u.Username,
		DisplayName: timesheet.DisplayName(u),
		Email:       u.Email,
		Active:      u.Active,
	}
}

func toTimesheetDTO(ts *timesheet.Timesheet) TimesheetDTO {
	return TimesheetDTO{
		ID:     string(ts.ID),
		User:   string(ts.UserID),
		Year:   ts.Year,
		Month:  ts.Month,
		Status: string(ts.Status),
	}
}
