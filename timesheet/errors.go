package timesheet

import "github.com/warp/worktime/generic"

// Validation failures. Match with errors.Is; the returned error may carry a
// more specific message than the sentinel.
var (
	ErrEndBeforeStart = generic.NewValidationError("ends_at", "end_before_start",
		"the end of the period lies before its start")
	ErrMultipleDays = generic.NewValidationError("ends_at", "multiple_days",
		"a partial-day leave must start and end on the same day")
	ErrNoLeaveDates = generic.NewValidationError("starts_at", "no_leave_dates",
		"no leave dates are available for this period")
	ErrLeaveFinalized = generic.NewValidationError("status", "leave_finalized",
		"an approved or rejected leave can only receive new attachments")
	ErrLeaveNotDeletable = generic.NewValidationError("status", "leave_not_deletable",
		"only draft or pending leaves can be deleted")
	ErrOverlappingLeave = generic.NewValidationError("starts_at", "overlapping_leave",
		"the leave overlaps with an existing leave of this user")
	ErrTimesheetNotActive = generic.NewValidationError("timesheet", "timesheet_not_active",
		"the timesheet for this month is no longer active")
	ErrInvalidTransition = generic.NewValidationError("status", "invalid_transition",
		"this status change is not allowed")

	ErrContractOverlap = generic.NewValidationError("started_at", "contract_overlap",
		"the user already has an employment contract with this company in this period")
	ErrContractEndBeforeStart = generic.NewValidationError("ended_at", "contract_end_before_start",
		"the contract ends before it starts")
	ErrDuplicateHoliday = generic.NewValidationError("name", "duplicate_holiday",
		"a holiday with this name already exists on this date for this country")
	ErrInvalidScheduleHours = generic.NewValidationError("hours", "invalid_schedule_hours",
		"work schedule hours must be between 0 and 24")

	ErrContractKind = generic.NewValidationError("type", "invalid_contract_kind",
		"unknown contract kind")
	ErrContractTerms = generic.NewValidationError("terms", "invalid_contract_terms",
		"contract terms do not match the contract kind")
	ErrContractParties = generic.NewValidationError("customer", "invalid_contract_parties",
		"a contract's company and customer must differ")

	ErrPerformanceKind = generic.NewValidationError("type", "invalid_performance_kind",
		"unknown performance kind")
	ErrInvalidDuration = generic.NewValidationError("duration", "invalid_duration",
		"duration must be between 0.01 and 24 hours")
	ErrPerformanceContract = generic.NewValidationError("contract", "missing_contract",
		"a performance must reference a contract")
	ErrPerformanceTypeNotAllowed = generic.NewValidationError("performance_type", "performance_type_not_allowed",
		"the performance type is not allowed on this contract")
	ErrContractInactive = generic.NewValidationError("contract", "contract_inactive",
		"performances cannot be booked on an inactive contract")
)
