package timesheet

import (
	"github.com/shopspring/decimal"
	"github.com/warp/worktime/generic"
)

// =============================================================================
// BILLING CONTRACTS - Closed set of variants sharing common fields
// =============================================================================

type ContractID string
type PerformanceTypeID string

// ContractKind is the discriminator persisted alongside the shared columns.
type ContractKind string

const (
	ContractProject     ContractKind = "project"
	ContractConsultancy ContractKind = "consultancy"
	ContractSupport     ContractKind = "support"
)

// PerformanceType is a category of work with a billing multiplier
// (e.g. "night work" at 1.5).
type PerformanceType struct {
	ID         PerformanceTypeID
	Name       string
	Multiplier decimal.Decimal
}

// Contract binds an internal company to a customer. Exactly one of the
// variant term pointers is set, matching Kind. The aggregator only ever
// reads ID.
type Contract struct {
	ID                 ContractID
	Kind               ContractKind
	Name               string
	CompanyID          CompanyID
	CustomerID         CompanyID
	Active             bool
	PerformanceTypeIDs []PerformanceTypeID

	Project     *ProjectTerms
	Consultancy *ConsultancyTerms
	Support     *SupportTerms
}

// ProjectTerms is a fixed-fee project with an estimated effort.
type ProjectTerms struct {
	FixedFee       decimal.Decimal
	EstimatedHours decimal.Decimal
	StartsAt       generic.TimePoint
	EndsAt         *generic.TimePoint
}

// ConsultancyTerms bills per day for a bounded duration.
type ConsultancyTerms struct {
	DayRate  decimal.Decimal
	Duration decimal.Decimal // hours
	StartsAt generic.TimePoint
	EndsAt   *generic.TimePoint
}

// SupportTerms is a recurring fee with a day rate for out-of-scope work.
type SupportTerms struct {
	FixedFee            decimal.Decimal
	DayRate             decimal.Decimal
	BillingPeriodMonths int
}

// Validate checks the variant payload matches the discriminator.
func (c Contract) Validate() error {
	set := 0
	if c.Project != nil {
		set++
	}
	if c.Consultancy != nil {
		set++
	}
	if c.Support != nil {
		set++
	}
	if set != 1 {
		return ErrContractTerms
	}
	switch c.Kind {
	case ContractProject:
		if c.Project == nil {
			return ErrContractTerms
		}
	case ContractConsultancy:
		if c.Consultancy == nil {
			return ErrContractTerms
		}
	case ContractSupport:
		if c.Support == nil {
			return ErrContractTerms
		}
	default:
		return ErrContractKind.WithMessage("unknown contract kind %q", c.Kind)
	}
	if c.CompanyID == c.CustomerID {
		return ErrContractParties
	}
	return nil
}

// AllowsPerformanceType reports whether performances of the given type may
// be booked against this contract. An empty set allows any type.
func (c Contract) AllowsPerformanceType(id PerformanceTypeID) bool {
	if len(c.PerformanceTypeIDs) == 0 {
		return true
	}
	for _, allowed := range c.PerformanceTypeIDs {
		if allowed == id {
			return true
		}
	}
	return false
}
