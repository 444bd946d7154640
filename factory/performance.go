package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/worktime/timesheet"
)

// PerformanceJSON is the flat JSON representation of a performance.
type PerformanceJSON struct {
	ID              string           `json:"id,omitempty"`
	Type            string           `json:"type"`
	User            string           `json:"user"`
	Date            string           `json:"date"`
	Contract        string           `json:"contract"`
	Timesheet       string           `json:"timesheet,omitempty"`
	PerformanceType string           `json:"performance_type,omitempty"`
	Description     string           `json:"description,omitempty"`
	Duration        *decimal.Decimal `json:"duration,omitempty"`
}

// PerformanceBuilder fills the variant payload of p from pj.
type PerformanceBuilder func(pj PerformanceJSON, p *timesheet.Performance) error

// PerformanceFactory converts JSON performances to timesheet.Performance.
type PerformanceFactory struct {
	builders map[timesheet.PerformanceKind]PerformanceBuilder
}

// NewPerformanceFactory creates a factory knowing activity and standby.
func NewPerformanceFactory() *PerformanceFactory {
	f := &PerformanceFactory{builders: make(map[timesheet.PerformanceKind]PerformanceBuilder)}
	f.Register(timesheet.PerformanceActivity, buildActivity)
	f.Register(timesheet.PerformanceStandby, func(PerformanceJSON, *timesheet.Performance) error { return nil })
	return f
}

// Register adds or replaces the builder for kind.
func (f *PerformanceFactory) Register(kind timesheet.PerformanceKind, b PerformanceBuilder) {
	f.builders[kind] = b
}

// ParsePerformance parses a JSON document into a validated Performance.
func (f *PerformanceFactory) ParsePerformance(data []byte) (*timesheet.Performance, error) {
	var pj PerformanceJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return nil, fmt.Errorf("failed to parse performance JSON: %w", err)
	}
	return f.FromJSON(pj)
}

// FromJSON converts PerformanceJSON to a validated Performance.
func (f *PerformanceFactory) FromJSON(pj PerformanceJSON) (*timesheet.Performance, error) {
	kind := timesheet.PerformanceKind(pj.Type)
	build, ok := f.builders[kind]
	if !ok {
		return nil, timesheet.ErrPerformanceKind.WithMessage("unknown performance type %q", pj.Type)
	}
	date, err := parseDate("date", pj.Date)
	if err != nil {
		return nil, err
	}

	p := &timesheet.Performance{
		ID:          timesheet.PerformanceID(pj.ID),
		Kind:        kind,
		TimesheetID: timesheet.TimesheetID(pj.Timesheet),
		UserID:      timesheet.UserID(pj.User),
		Date:        date,
		ContractID:  timesheet.ContractID(pj.Contract),
	}
	if err := build(pj, p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// ToJSON converts a Performance to its flat JSON form.
func (f *PerformanceFactory) ToJSON(p timesheet.Performance) PerformanceJSON {
	pj := PerformanceJSON{
		ID:        string(p.ID),
		Type:      string(p.Kind),
		User:      string(p.UserID),
		Date:      p.Date.String(),
		Contract:  string(p.ContractID),
		Timesheet: string(p.TimesheetID),
	}
	if p.Activity != nil {
		pj.PerformanceType = string(p.Activity.PerformanceTypeID)
		pj.Description = p.Activity.Description
		pj.Duration = decimalPtr(p.Activity.Duration)
	}
	return pj
}

func buildActivity(pj PerformanceJSON, p *timesheet.Performance) error {
	if pj.Duration == nil {
		return timesheet.ErrInvalidDuration.WithMessage("an activity requires a duration")
	}
	p.Activity = &timesheet.ActivityDetails{
		PerformanceTypeID: timesheet.PerformanceTypeID(pj.PerformanceType),
		Description:       pj.Description,
		Duration:          *pj.Duration,
	}
	return nil
}
