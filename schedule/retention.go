package schedule

import (
	"fmt"
	"strings"
)

// =============================================================================
// RETENTION RULE - Which records survive persistence
// =============================================================================

// RetentionRule decides whether a record may be persisted. Rules are applied
// on every Load and every Save, so the blob never holds a refused record.
type RetentionRule interface {
	Retain(r Record) bool
}

// RetentionFunc adapts a function to RetentionRule.
type RetentionFunc func(r Record) bool

func (f RetentionFunc) Retain(r Record) bool { return f(r) }

// RetainAll keeps every record.
var RetainAll RetentionRule = RetentionFunc(func(Record) bool { return true })

// CategoryRetention keeps structured actions whose category is listed
// (case-insensitive). An empty list keeps everything, legacy records
// included. With a list, legacy records carry no category and are kept
// only when KeepLegacy is set.
type CategoryRetention struct {
	Categories []string
	KeepLegacy bool
}

func (c CategoryRetention) Retain(r Record) bool {
	if len(c.Categories) == 0 {
		return true
	}
	if r.IsLegacy() {
		return c.KeepLegacy
	}
	for _, cat := range c.Categories {
		if strings.EqualFold(strings.TrimSpace(cat), r.Category()) {
			return true
		}
	}
	return false
}

func (c CategoryRetention) String() string {
	cats := "*"
	if len(c.Categories) > 0 {
		cats = strings.Join(c.Categories, ",")
	}
	return fmt.Sprintf("categories[%s] keep_legacy=%t", cats, c.KeepLegacy)
}

// ruleName describes a rule for logs and errors.
func ruleName(rule RetentionRule) string {
	if s, ok := rule.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", rule)
}

// ApplyRetention returns a copy of b holding only retained records, and how
// many were dropped. Emptied buckets stay in the map as empty lists.
func ApplyRetention(b Buckets, rule RetentionRule) (Buckets, int) {
	if rule == nil {
		rule = RetainAll
	}
	out := make(Buckets, len(b))
	dropped := 0
	for k, records := range b {
		kept := make([]Record, 0, len(records))
		for _, r := range records {
			if rule.Retain(r) {
				kept = append(kept, r)
			} else {
				dropped++
			}
		}
		out[k] = kept
	}
	return out, dropped
}

// =============================================================================
// RETENTION MODE - What a write does with a refused record
// =============================================================================

// RetentionMode selects how Upsert and Replace treat a record the rule refuses.
type RetentionMode string

const (
	// RetentionReject refuses the write with ErrNotRetained. Nothing is stored.
	RetentionReject RetentionMode = "reject"

	// RetentionDrop accepts the write, then the save's retention pass drops
	// the record. The caller learns about it only through UpsertResult.
	RetentionDrop RetentionMode = "drop"
)

// ParseRetentionMode parses a configured mode. Empty means RetentionReject.
func ParseRetentionMode(s string) (RetentionMode, error) {
	switch RetentionMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", RetentionReject:
		return RetentionReject, nil
	case RetentionDrop:
		return RetentionDrop, nil
	default:
		return "", fmt.Errorf("unknown retention mode %q (expected reject or drop)", s)
	}
}
