package schedule

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SUMMARY - Activity feed counters
// =============================================================================

// Count is one row of a breakdown. Share is the percentage of all entries,
// rounded to two places.
type Count struct {
	Key   string          `json:"key"`
	Count int             `json:"count"`
	Share decimal.Decimal `json:"share"`
}

// Summary breaks a resolved view down by category, status and assignee.
type Summary struct {
	Total          int             `json:"total"`
	Legacy         int             `json:"legacy"`
	Categories     []Count         `json:"categories"`
	Statuses       []Count         `json:"statuses"`
	Actors         []Count         `json:"actors"`
	CompletionRate decimal.Decimal `json:"completion_rate"`
}

// completedStatuses are the statuses counted as done.
var completedStatuses = []string{"completed", "done"}

var hundred = decimal.NewFromInt(100)

// Summarize counts entries. Legacy entries count toward Total and Legacy
// only; they have no category, status or assignee.
func Summarize(entries []Entry) Summary {
	s := Summary{Total: len(entries)}
	categories := map[string]int{}
	statuses := map[string]int{}
	actors := map[string]int{}
	completed := 0

	for _, e := range entries {
		if e.IsLegacy() {
			s.Legacy++
			continue
		}
		if c := e.Category(); c != "" {
			categories[c]++
		}
		if st := e.Status(); st != "" {
			statuses[st]++
			if isCompleted(st) {
				completed++
			}
		}
		if a := e.AssignedTo(); a != "" {
			actors[a]++
		}
	}

	s.Categories = breakdown(categories, s.Total)
	s.Statuses = breakdown(statuses, s.Total)
	s.Actors = breakdown(actors, s.Total)
	s.CompletionRate = percent(completed, s.Total-s.Legacy)
	return s
}

func isCompleted(status string) bool {
	for _, c := range completedStatuses {
		if strings.EqualFold(status, c) {
			return true
		}
	}
	return false
}

// breakdown sorts by count descending, then key ascending.
func breakdown(counts map[string]int, total int) []Count {
	out := make([]Count, 0, len(counts))
	for k, n := range counts {
		out = append(out, Count{Key: k, Count: n, Share: percent(n, total)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func percent(n, total int) decimal.Decimal {
	if total <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(n)).Mul(hundred).Div(decimal.NewFromInt(int64(total))).Round(2)
}
