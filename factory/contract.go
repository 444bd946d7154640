/*
Package factory converts the JSON form of polymorphic records into domain types.

PURPOSE:
  Billing contracts and performances are closed families of variants that
  share a common header. On the wire they are flat JSON objects with a
  "type" discriminator; in Go they are timesheet.Contract and
  timesheet.Performance with exactly one variant payload set. The
  factories own that mapping in both directions.

JSON SCHEMA (contract):
  {
    "id": "c-1",
    "type": "consultancy",          // project | consultancy | support
    "name": "Globex platform",
    "company": "acme-be",
    "customer": "globex",
    "active": true,
    "performance_types": ["normal", "night"],

    // project
    "fixed_fee": "12500", "estimated_hours": "120",
    // consultancy
    "day_rate": "800", "duration": "160",
    // project + consultancy
    "starts_at": "2024-01-01", "ends_at": "2024-12-31",
    // support
    "fixed_fee": "500", "day_rate": "750", "billing_period_months": 1
  }

JSON SCHEMA (performance):
  {
    "type": "activity",             // activity | standby
    "user": "alice",
    "date": "2024-03-04",
    "contract": "c-1",
    "performance_type": "normal",   // activity only
    "description": "...",           // activity only
    "duration": "7.5"               // activity only, hours
  }

REGISTRY:
  Each kind has a builder registered by name. Register adds or replaces
  one; the defaults cover every kind timesheet knows.

SEE ALSO:
  - timesheet/contract.go: Contract variants
  - timesheet/performance.go: Performance variants
  - api/handlers.go: Uses the factories for request bodies
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/worktime/generic"
	"github.com/warp/worktime/timesheet"
)

// ErrInvalidDate is returned for malformed ISO dates in a payload.
var ErrInvalidDate = generic.NewValidationError("date", "invalid_date", "dates must be formatted as YYYY-MM-DD")

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ContractJSON is the flat JSON representation of a billing contract.
type ContractJSON struct {
	ID               string   `json:"id,omitempty"`
	Type             string   `json:"type"`
	Name             string   `json:"name"`
	Company          string   `json:"company"`
	Customer         string   `json:"customer"`
	Active           *bool    `json:"active,omitempty"` // default true
	PerformanceTypes []string `json:"performance_types,omitempty"`

	FixedFee            *decimal.Decimal `json:"fixed_fee,omitempty"`
	EstimatedHours      *decimal.Decimal `json:"estimated_hours,omitempty"`
	DayRate             *decimal.Decimal `json:"day_rate,omitempty"`
	Duration            *decimal.Decimal `json:"duration,omitempty"`
	StartsAt            string           `json:"starts_at,omitempty"`
	EndsAt              string           `json:"ends_at,omitempty"`
	BillingPeriodMonths int              `json:"billing_period_months,omitempty"`
}

// ContractBuilder fills the variant payload of c from cj.
type ContractBuilder func(cj ContractJSON, c *timesheet.Contract) error

// =============================================================================
// CONTRACT FACTORY
// =============================================================================

// ContractFactory converts JSON contracts to timesheet.Contract.
type ContractFactory struct {
	builders map[timesheet.ContractKind]ContractBuilder
}

// NewContractFactory creates a factory knowing every contract kind.
func NewContractFactory() *ContractFactory {
	f := &ContractFactory{builders: make(map[timesheet.ContractKind]ContractBuilder)}
	f.Register(timesheet.ContractProject, buildProject)
	f.Register(timesheet.ContractConsultancy, buildConsultancy)
	f.Register(timesheet.ContractSupport, buildSupport)
	return f
}

// Register adds or replaces the builder for kind.
func (f *ContractFactory) Register(kind timesheet.ContractKind, b ContractBuilder) {
	f.builders[kind] = b
}

// Kinds lists the registered discriminators.
func (f *ContractFactory) Kinds() []timesheet.ContractKind {
	kinds := make([]timesheet.ContractKind, 0, len(f.builders))
	for k := range f.builders {
		kinds = append(kinds, k)
	}
	return kinds
}

// ParseContract parses a JSON document into a validated Contract.
func (f *ContractFactory) ParseContract(data []byte) (*timesheet.Contract, error) {
	var cj ContractJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return nil, fmt.Errorf("failed to parse contract JSON: %w", err)
	}
	return f.FromJSON(cj)
}

// FromJSON converts ContractJSON to a validated Contract.
func (f *ContractFactory) FromJSON(cj ContractJSON) (*timesheet.Contract, error) {
	kind := timesheet.ContractKind(cj.Type)
	build, ok := f.builders[kind]
	if !ok {
		return nil, timesheet.ErrContractKind.WithMessage("unknown contract type %q", cj.Type)
	}

	c := &timesheet.Contract{
		ID:         timesheet.ContractID(cj.ID),
		Kind:       kind,
		Name:       cj.Name,
		CompanyID:  timesheet.CompanyID(cj.Company),
		CustomerID: timesheet.CompanyID(cj.Customer),
		Active:     cj.Active == nil || *cj.Active,
	}
	for _, pt := range cj.PerformanceTypes {
		c.PerformanceTypeIDs = append(c.PerformanceTypeIDs, timesheet.PerformanceTypeID(pt))
	}
	if err := build(cj, c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// ToJSON converts a Contract to its flat JSON form.
func (f *ContractFactory) ToJSON(c timesheet.Contract) ContractJSON {
	active := c.Active
	cj := ContractJSON{
		ID:       string(c.ID),
		Type:     string(c.Kind),
		Name:     c.Name,
		Company:  string(c.CompanyID),
		Customer: string(c.CustomerID),
		Active:   &active,
	}
	for _, pt := range c.PerformanceTypeIDs {
		cj.PerformanceTypes = append(cj.PerformanceTypes, string(pt))
	}

	switch {
	case c.Project != nil:
		cj.FixedFee = decimalPtr(c.Project.FixedFee)
		cj.EstimatedHours = decimalPtr(c.Project.EstimatedHours)
		cj.StartsAt, cj.EndsAt = formatInterval(c.Project.StartsAt, c.Project.EndsAt)
	case c.Consultancy != nil:
		cj.DayRate = decimalPtr(c.Consultancy.DayRate)
		cj.Duration = decimalPtr(c.Consultancy.Duration)
		cj.StartsAt, cj.EndsAt = formatInterval(c.Consultancy.StartsAt, c.Consultancy.EndsAt)
	case c.Support != nil:
		cj.FixedFee = decimalPtr(c.Support.FixedFee)
		cj.DayRate = decimalPtr(c.Support.DayRate)
		cj.BillingPeriodMonths = c.Support.BillingPeriodMonths
	}
	return cj
}

// =============================================================================
// VARIANT BUILDERS
// =============================================================================

func buildProject(cj ContractJSON, c *timesheet.Contract) error {
	start, end, err := parseInterval(cj.StartsAt, cj.EndsAt)
	if err != nil {
		return err
	}
	c.Project = &timesheet.ProjectTerms{
		FixedFee:       decimalOrZero(cj.FixedFee),
		EstimatedHours: decimalOrZero(cj.EstimatedHours),
		StartsAt:       start,
		EndsAt:         end,
	}
	return nil
}

func buildConsultancy(cj ContractJSON, c *timesheet.Contract) error {
	start, end, err := parseInterval(cj.StartsAt, cj.EndsAt)
	if err != nil {
		return err
	}
	c.Consultancy = &timesheet.ConsultancyTerms{
		DayRate:  decimalOrZero(cj.DayRate),
		Duration: decimalOrZero(cj.Duration),
		StartsAt: start,
		EndsAt:   end,
	}
	return nil
}

func buildSupport(cj ContractJSON, c *timesheet.Contract) error {
	months := cj.BillingPeriodMonths
	if months == 0 {
		months = 1
	}
	if months < 0 {
		return timesheet.ErrContractTerms.WithMessage("billing period must be a positive number of months")
	}
	c.Support = &timesheet.SupportTerms{
		FixedFee:            decimalOrZero(cj.FixedFee),
		DayRate:             decimalOrZero(cj.DayRate),
		BillingPeriodMonths: months,
	}
	return nil
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseDate(field, s string) (generic.TimePoint, error) {
	tp, err := generic.ParseDate(s)
	if err != nil {
		return generic.TimePoint{}, generic.NewValidationError(field, ErrInvalidDate.Code,
			fmt.Sprintf("%s must be formatted as YYYY-MM-DD, got %q", field, s))
	}
	return tp, nil
}

func parseInterval(startsAt, endsAt string) (generic.TimePoint, *generic.TimePoint, error) {
	start, err := parseDate("starts_at", startsAt)
	if err != nil {
		return generic.TimePoint{}, nil, err
	}
	if endsAt == "" {
		return start, nil, nil
	}
	end, err := parseDate("ends_at", endsAt)
	if err != nil {
		return generic.TimePoint{}, nil, err
	}
	if end.Before(start) {
		return generic.TimePoint{}, nil, timesheet.ErrEndBeforeStart
	}
	return start, &end, nil
}

func formatInterval(start generic.TimePoint, end *generic.TimePoint) (string, string) {
	if end == nil {
		return start.String(), ""
	}
	return start.String(), end.String()
}

func decimalOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

func decimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
