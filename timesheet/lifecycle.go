/*
lifecycle.go - Leave and timesheet state machines, write-time invariants

LEAVE:
  ┌───────┐  expand ok   ┌─────────┐  approve  ┌──────────┐
  │ draft │ ───────────▶ │ pending │ ────────▶ │ approved │
  │       │ ◀─────────── │         │           └──────────┘
  └───────┘  re-expand   └─────────┘  reject   ┌──────────┐
                               └─────────────▶ │ rejected │
                                               └──────────┘
  Dates can only be (re)applied in draft or pending. Approved and rejected
  are terminal: the only accepted change is adding attachments.

TIMESHEET:
  active → pending → closed
  pending → active and closed → pending need a privileged actor.
  Only an active timesheet accepts new leave dates or performances.

EMPLOYMENT CONTRACTS:
  A user cannot hold two overlapping contracts with the same company.
*/
package timesheet

import (
	"github.com/warp/worktime/generic"
)

// =============================================================================
// LEAVE
// =============================================================================

// IsFinal reports whether the leave reached a terminal status.
func (l *Leave) IsFinal() bool {
	return l.Status == LeaveApproved || l.Status == LeaveRejected
}

// CanEditDates reports whether the date range may be (re)applied.
func (l *Leave) CanEditDates() bool {
	return l.Status == LeaveDraft || l.Status == LeavePending
}

// CanDelete reports whether the leave may be deleted.
func (l *Leave) CanDelete() bool {
	return l.Status == LeaveDraft || l.Status == LeavePending
}

var leaveTransitions = map[LeaveStatus][]LeaveStatus{
	LeaveDraft:   {LeavePending},
	LeavePending: {LeaveDraft, LeaveApproved, LeaveRejected},
}

// Transition moves the leave to status `to`.
func (l *Leave) Transition(to LeaveStatus) error {
	for _, allowed := range leaveTransitions[l.Status] {
		if allowed == to {
			l.Status = to
			return nil
		}
	}
	if l.IsFinal() {
		return ErrLeaveFinalized
	}
	return ErrInvalidTransition.WithMessage("a %s leave cannot become %s", l.Status, to)
}

// AddAttachments appends attachments. Allowed in every status.
func (l *Leave) AddAttachments(attachments ...Attachment) {
	l.Attachments = append(l.Attachments, attachments...)
}

// ValidateLeaveUpdate checks an edit of current into updated. Finalized
// leaves only accept a superset of their attachments.
func ValidateLeaveUpdate(current, updated *Leave) error {
	if !current.IsFinal() {
		return nil
	}
	if updated.Status != current.Status ||
		updated.Description != current.Description ||
		updated.LeaveTypeID != current.LeaveTypeID ||
		updated.UserID != current.UserID {
		return ErrLeaveFinalized
	}
	kept := make(map[string]bool, len(updated.Attachments))
	for _, a := range updated.Attachments {
		kept[a.ID] = true
	}
	for _, a := range current.Attachments {
		if !kept[a.ID] {
			return ErrLeaveFinalized.WithMessage("attachments of a %s leave cannot be removed", current.Status)
		}
	}
	return nil
}

// =============================================================================
// TIMESHEET
// =============================================================================

// AllowsEntries reports whether leave dates or performances may be added
// to or removed from the timesheet.
func (ts Timesheet) AllowsEntries() bool {
	return ts.Status == TimesheetActive
}

// Transition moves the timesheet to status `to`. Going back requires a
// privileged actor.
func (ts *Timesheet) Transition(to TimesheetStatus, privileged bool) error {
	switch {
	case ts.Status == TimesheetActive && to == TimesheetPending,
		ts.Status == TimesheetPending && to == TimesheetClosed:
	case privileged && ts.Status == TimesheetPending && to == TimesheetActive,
		privileged && ts.Status == TimesheetClosed && to == TimesheetPending:
	default:
		return ErrInvalidTransition.WithMessage("a %s timesheet cannot become %s", ts.Status, to)
	}
	ts.Status = to
	return nil
}

// =============================================================================
// EMPLOYMENT CONTRACTS
// =============================================================================

// CheckContractOverlap rejects candidate if one of existing belongs to the
// same user and company and overlaps its interval.
func CheckContractOverlap(existing []EmploymentContract, candidate EmploymentContract) error {
	if err := candidate.Validate(); err != nil {
		return err
	}
	for _, c := range existing {
		if c.ID == candidate.ID || c.UserID != candidate.UserID || c.Company.ID != candidate.Company.ID {
			continue
		}
		if intervalsOverlap(c.StartedAt, c.EndedAt, candidate.StartedAt, candidate.EndedAt) {
			return ErrContractOverlap.WithMessage("overlaps contract %s starting %s", c.ID, c.StartedAt)
		}
	}
	return nil
}

func intervalsOverlap(aStart generic.TimePoint, aEnd *generic.TimePoint, bStart generic.TimePoint, bEnd *generic.TimePoint) bool {
	if aEnd != nil && aEnd.Before(bStart) {
		return false
	}
	if bEnd != nil && bEnd.Before(aStart) {
		return false
	}
	return true
}
