package access

import (
	pstrings "medgate/pkg/platform/strings"
)

// FilterScope says which patients a query may touch. The filter is a
// declarative predicate handed to the store layer, never a loaded-then-
// filtered list: at scale the store turns it into a WHERE clause.
type FilterScope string

const (
	// ScopeNone matches nothing. Absence of access looks identical to
	// absence of the resource, so denials are a filter, not an error.
	ScopeNone FilterScope = "none"
	// ScopeIDs restricts to an explicit set of patient ids.
	ScopeIDs FilterScope = "ids"
	// ScopeAll is unrestricted; only admins get it.
	ScopeAll FilterScope = "all"
)

// Filter is the predicate produced by BuildAccessFilter.
type Filter struct {
	Scope      FilterScope
	PatientIDs []string
}

// NoneFilter matches nothing.
func NoneFilter() Filter { return Filter{Scope: ScopeNone} }

// IDFilter restricts to the given ids, deduplicated. An empty set
// degenerates to none.
func IDFilter(ids ...string) Filter {
	ids = pstrings.DedupeAndTrim(ids)
	if len(ids) == 0 {
		return NoneFilter()
	}
	return Filter{Scope: ScopeIDs, PatientIDs: ids}
}

// AllFilter is unrestricted.
func AllFilter() Filter { return Filter{Scope: ScopeAll} }

// Matches evaluates the predicate against a single patient id. Store-backed
// callers compile the filter into SQL instead; this is the in-memory form.
func (f Filter) Matches(patientID string) bool {
	switch f.Scope {
	case ScopeAll:
		return true
	case ScopeIDs:
		for _, id := range f.PatientIDs {
			if id == patientID {
				return true
			}
		}
		return false
	default:
		return false
	}
}
