/*
resolver.go - Active employment contract resolution

PURPOSE:
  Answers "which employment contract applies to this user on this day?".
  Both the aggregator and the leave expander need the answer for every day
  they visit, so resolution works on contracts fetched once in bulk instead
  of querying per day.

RULE:
  Scan the user's contracts ordered by StartedAt ascending and return the
  first whose [StartedAt, EndedAt] contains the day. Overlap is only
  prevented per company, so two contracts at different companies can both
  cover a day; the earliest-starting one wins.

KEY TYPES:
  ContractIndex:  contracts grouped and sorted per user, built once per pass
  ContractCursor: day-by-day cache for a single user walking forward in time

SEE ALSO:
  - aggregator.go: Uses ContractIndex
  - expander.go: Uses ContractCursor
*/
package timesheet

import (
	"sort"

	"github.com/warp/worktime/generic"
)

// ResolveActiveContract returns the first contract (by StartedAt) covering
// date, or nil. contracts need not be sorted.
func ResolveActiveContract(contracts []EmploymentContract, date generic.TimePoint) *EmploymentContract {
	sorted := sortedContracts(contracts)
	return firstCovering(sorted, date)
}

func sortedContracts(contracts []EmploymentContract) []EmploymentContract {
	sorted := make([]EmploymentContract, len(contracts))
	copy(sorted, contracts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartedAt.Before(sorted[j].StartedAt)
	})
	return sorted
}

func firstCovering(sorted []EmploymentContract, date generic.TimePoint) *EmploymentContract {
	for i := range sorted {
		if sorted[i].StartedAt.After(date) {
			// Sorted by start: nothing later can cover date.
			return nil
		}
		if sorted[i].Covers(date) {
			return &sorted[i]
		}
	}
	return nil
}

// =============================================================================
// CONTRACT INDEX - Bulk-loaded contracts grouped per user
// =============================================================================

// ContractIndex holds each user's contracts sorted by StartedAt.
type ContractIndex struct {
	byUser map[UserID][]EmploymentContract
}

// NewContractIndex groups and sorts a batch of contracts.
func NewContractIndex(contracts []EmploymentContract) *ContractIndex {
	grouped := make(map[UserID][]EmploymentContract)
	for _, c := range contracts {
		grouped[c.UserID] = append(grouped[c.UserID], c)
	}
	for user, list := range grouped {
		grouped[user] = sortedContracts(list)
	}
	return &ContractIndex{byUser: grouped}
}

// Resolve returns the active contract for user on date, or nil.
func (ci *ContractIndex) Resolve(user UserID, date generic.TimePoint) *EmploymentContract {
	return firstCovering(ci.byUser[user], date)
}

// Cursor returns a day-by-day cache over one user's contracts.
func (ci *ContractIndex) Cursor(user UserID) *ContractCursor {
	return &ContractCursor{contracts: ci.byUser[user]}
}

// =============================================================================
// CONTRACT CURSOR - Incremental cache while walking days forward
// =============================================================================

// ContractCursor keeps the last resolved contract and only re-resolves when
// it no longer covers the requested day.
type ContractCursor struct {
	contracts []EmploymentContract
	current   *EmploymentContract
}

// At returns the active contract on date, or nil.
func (cc *ContractCursor) At(date generic.TimePoint) *EmploymentContract {
	if cc.current != nil && cc.current.Covers(date) {
		return cc.current
	}
	cc.current = firstCovering(cc.contracts, date)
	return cc.current
}
