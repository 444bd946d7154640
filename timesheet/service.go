/*
service.go - Leave decisions, deletion and performance booking

PURPOSE:
  Write paths around the two core components. Each operation runs in one
  transaction and applies the lifecycle rules from lifecycle.go before
  touching the store.

OPERATIONS:
  Decide:            pending → approved | rejected
  Delete:            draft and pending only, and only while every
                     timesheet holding a span is still active
  AddAttachments:    allowed in every status
  RecordPerformance: validates against the billing contract, then books
                     the performance on the month's (active) timesheet
  TransitionTimesheet: status change with a compare-and-set write
*/
package timesheet

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// LeaveService applies leave lifecycle operations.
type LeaveService struct {
	Store  TxStore
	Logger logrus.FieldLogger
	Now    func() time.Time
}

// NewLeaveService creates a LeaveService.
func NewLeaveService(store TxStore) *LeaveService {
	return &LeaveService{Store: store, Logger: logrus.StandardLogger(), Now: time.Now}
}

// Decide moves a pending leave to approved or rejected.
func (s *LeaveService) Decide(ctx context.Context, id LeaveID, to LeaveStatus) (*Leave, error) {
	if to != LeaveApproved && to != LeaveRejected {
		return nil, ErrInvalidTransition.WithMessage("a leave can only be approved or rejected, not %s", to)
	}

	var result *Leave
	err := s.Store.WithTx(ctx, func(st Store) error {
		leave, err := st.GetLeave(ctx, id)
		if err != nil {
			return err
		}
		if err := leave.Transition(to); err != nil {
			return err
		}
		leave.UpdatedAt = s.now()
		if err := st.SaveLeave(ctx, leave); err != nil {
			return fmt.Errorf("failed to save leave: %w", err)
		}
		result = leave
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger().WithFields(logrus.Fields{"leave": id, "status": to}).Info("leave decided")
	return result, nil
}

// Delete removes a draft or pending leave and its dates.
func (s *LeaveService) Delete(ctx context.Context, id LeaveID) error {
	return s.Store.WithTx(ctx, func(st Store) error {
		leave, err := st.GetLeave(ctx, id)
		if err != nil {
			return err
		}
		if !leave.CanDelete() {
			return ErrLeaveNotDeletable
		}
		if err := ensureEntriesEditable(ctx, st, leave.Dates); err != nil {
			return err
		}
		return st.DeleteLeave(ctx, id)
	})
}

// AddAttachments appends attachments to the leave, whatever its status.
func (s *LeaveService) AddAttachments(ctx context.Context, id LeaveID, attachments ...Attachment) (*Leave, error) {
	var result *Leave
	err := s.Store.WithTx(ctx, func(st Store) error {
		current, err := st.GetLeave(ctx, id)
		if err != nil {
			return err
		}
		updated := *current
		updated.Attachments = append([]Attachment(nil), current.Attachments...)
		updated.AddAttachments(attachments...)
		if err := ValidateLeaveUpdate(current, &updated); err != nil {
			return err
		}
		updated.UpdatedAt = s.now()
		if err := st.SaveLeave(ctx, &updated); err != nil {
			return fmt.Errorf("failed to save leave: %w", err)
		}
		result = &updated
		return nil
	})
	return result, err
}

func (s *LeaveService) logger() logrus.FieldLogger {
	if s.Logger == nil {
		return logrus.StandardLogger()
	}
	return s.Logger
}

func (s *LeaveService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// RecordPerformance validates p against the billing contract it is booked
// on and stores it on the user's timesheet for p.Date's month.
func RecordPerformance(ctx context.Context, store TxStore, contract Contract, p Performance) (*Performance, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.ContractID != contract.ID {
		return nil, ErrPerformanceContract.WithMessage("performance is booked on %s, got contract %s", p.ContractID, contract.ID)
	}
	if !contract.Active {
		return nil, ErrContractInactive
	}
	if p.Activity != nil && !contract.AllowsPerformanceType(p.Activity.PerformanceTypeID) {
		return nil, ErrPerformanceTypeNotAllowed.WithMessage("performance type %s is not allowed on contract %s", p.Activity.PerformanceTypeID, contract.ID)
	}

	err := store.WithTx(ctx, func(st Store) error {
		ts, err := st.GetOrCreateTimesheet(ctx, p.UserID, p.Date.Year(), int(p.Date.Month()))
		if err != nil {
			return fmt.Errorf("failed to get timesheet: %w", err)
		}
		if !ts.AllowsEntries() {
			return ErrTimesheetNotActive.WithMessage("the timesheet for %d-%02d is %s", ts.Year, ts.Month, ts.Status)
		}
		p.TimesheetID = ts.ID
		return st.CreatePerformance(ctx, &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ensureEntriesEditable fails unless every timesheet holding one of dates
// still accepts changes.
func ensureEntriesEditable(ctx context.Context, s Store, dates []LeaveDate) error {
	seen := make(map[TimesheetID]bool, len(dates))
	for _, d := range dates {
		if seen[d.TimesheetID] {
			continue
		}
		seen[d.TimesheetID] = true
		ts, err := s.GetTimesheet(ctx, d.TimesheetID)
		if err != nil {
			return fmt.Errorf("failed to get timesheet: %w", err)
		}
		if !ts.AllowsEntries() {
			return ErrTimesheetNotActive.WithMessage("the timesheet for %d-%02d is %s", ts.Year, ts.Month, ts.Status)
		}
	}
	return nil
}

// TransitionTimesheet moves the timesheet to status `to`. The write only
// succeeds if nobody changed the status since it was read.
func TransitionTimesheet(ctx context.Context, store TxStore, id TimesheetID, to TimesheetStatus, privileged bool) (*Timesheet, error) {
	var result *Timesheet
	err := store.WithTx(ctx, func(st Store) error {
		ts, err := st.GetTimesheet(ctx, id)
		if err != nil {
			return err
		}
		from := ts.Status
		if err := ts.Transition(to, privileged); err != nil {
			return err
		}
		if err := st.UpdateTimesheetStatus(ctx, id, from, ts.Status); err != nil {
			return err
		}
		result = ts
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
