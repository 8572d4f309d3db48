package schedule_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/action-calendar/schedule"
)

func facetBuckets() schedule.Buckets {
	return schedule.Buckets{
		key("2024-03-01"): {act("1", "meeting", "Ahmed", "Acme"), act("2", "call", "Bob", "Globex")},
		key("2024-01-05"): {act("3", "meeting", "Ahmed", "Initech"), schedule.NewLegacyRecord("Acme renewal")},
		key("2024-02-10"): {act("4", "meeting", "Ahmed", "Acme"), act("5", "call", "", ""), act("6", "call", "Bob", "ALL")},
	}
}

func TestDeriveSubjectOptions(t *testing.T) {
	// GIVEN: No actor scope
	got := schedule.DeriveSubjectOptions(facetBuckets(), schedule.ActorFilter{})

	// THEN: ALL first, then distinct names in date order, no empties
	assert.Equal(t, []string{schedule.All, "Initech", "Acme", "Globex"}, got)
}

func TestDeriveSubjectOptions_ActorScoped(t *testing.T) {
	got := schedule.DeriveSubjectOptions(facetBuckets(), schedule.ActorFilter{Specific: "Ahmed", Group: "Bob"})
	assert.Equal(t, []string{schedule.All, "Initech", "Acme"}, got)

	got = schedule.DeriveSubjectOptions(facetBuckets(), schedule.ActorFilter{Group: "Bob"})
	assert.Equal(t, []string{schedule.All, "Globex"}, got)

	got = schedule.DeriveSubjectOptions(facetBuckets(), schedule.ActorFilter{Specific: "Nobody"})
	assert.Equal(t, []string{schedule.All}, got)
}

func TestDeriveSubjectOptions_EmptyStore(t *testing.T) {
	assert.Equal(t, []string{schedule.All}, schedule.DeriveSubjectOptions(schedule.Buckets{}, schedule.ActorFilter{}))
}

func TestDeriveActorOptions(t *testing.T) {
	assert.Equal(t, []string{schedule.All, "Ahmed", "Bob"}, schedule.DeriveActorOptions(facetBuckets()))
}
