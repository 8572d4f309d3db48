package schedule

// DeriveSubjectOptions lists the subject names available under the actor
// filter, across the whole store regardless of timeframe. The list starts
// with All and holds each non-empty name once, in first-seen order.
func DeriveSubjectOptions(b Buckets, actor ActorFilter) []string {
	scoped := FilterByActor(b.Flatten(), actor)
	return distinct(scoped, func(e Entry) string { return e.SubjectName() })
}

// DeriveActorOptions lists every assignee in the store, starting with All.
func DeriveActorOptions(b Buckets) []string {
	return distinct(b.Flatten(), func(e Entry) string { return e.AssignedTo() })
}

func distinct(entries []Entry, value func(Entry) string) []string {
	seen := make(map[string]struct{})
	out := []string{All}
	for _, e := range entries {
		v := value(e)
		if v == "" || v == All {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
