package schedule

import (
	"strings"

	"golang.org/x/text/cases"
)

// =============================================================================
// FILTER CRITERIA - Actor, subject, free text
// =============================================================================

// All is the "no filter" sentinel of every facet.
const All = "ALL"

// ActorFilter selects records by assignee. Specific, when active, fully
// supersedes Group; the two are never combined.
type ActorFilter struct {
	Specific string `json:"specific,omitempty"`
	Group    string `json:"group,omitempty"`
}

// Criteria is the full set of facet selections.
type Criteria struct {
	Actor   ActorFilter `json:"actor"`
	Subject string      `json:"subject,omitempty"`
	Search  string      `json:"search,omitempty"`
}

// Faceted is anything the pipeline can filter: Record and Entry both are.
type Faceted interface {
	AssignedTo() string
	SubjectName() string
	SearchText() string
}

func active(v string) bool { return v != "" && v != All }

// activeActor returns the assignee the actor stage matches, if any.
func (f ActorFilter) activeActor() (string, bool) {
	if active(f.Specific) {
		return f.Specific, true
	}
	if active(f.Group) {
		return f.Group, true
	}
	return "", false
}

// =============================================================================
// PIPELINE
// =============================================================================

// ApplyFilters runs the actor, subject and text stages in that order. The
// input is not modified and the relative order of items is kept.
func ApplyFilters[T Faceted](items []T, c Criteria) []T {
	out := FilterByActor(items, c.Actor)
	out = FilterBySubject(out, c.Subject)
	return FilterBySearch(out, c.Search)
}

// FilterByActor keeps items assigned to the active actor filter.
func FilterByActor[T Faceted](items []T, f ActorFilter) []T {
	actor, ok := f.activeActor()
	if !ok {
		return keep(items, nil)
	}
	return keep(items, func(it T) bool { return it.AssignedTo() == actor })
}

// FilterBySubject keeps items whose subject name equals subject.
func FilterBySubject[T Faceted](items []T, subject string) []T {
	if !active(subject) {
		return keep(items, nil)
	}
	return keep(items, func(it T) bool { return it.SubjectName() == subject })
}

// FilterBySearch keeps items whose search text contains search, compared
// with Unicode case folding. The search is matched literally, surrounding
// whitespace included; only the empty string disables the filter.
func FilterBySearch[T Faceted](items []T, search string) []T {
	if search == "" {
		return keep(items, nil)
	}
	fold := cases.Fold()
	needle := fold.String(search)
	return keep(items, func(it T) bool {
		return strings.Contains(fold.String(it.SearchText()), needle)
	})
}

// keep copies the items matching pred (all of them when pred is nil).
func keep[T any](items []T, pred func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if pred == nil || pred(it) {
			out = append(out, it)
		}
	}
	return out
}
