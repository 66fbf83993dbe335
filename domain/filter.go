package domain

import "strings"

// FilterAll is the predicate value matching every status or priority.
const FilterAll = "all"

// Filter derives the view of tasks matching a free-text query and the status
// and priority predicates. A task matches the query when its title or
// description contains it, case-insensitively; an empty query matches all, as
// do empty or "all" predicates. The result is a fresh slice preserving the
// input order, and the function is pure: equal inputs always yield equal
// output.
func Filter(tasks []Task, query, status, priority string) []Task {
	q := strings.ToLower(query)
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if q != "" &&
			!strings.Contains(strings.ToLower(t.Title), q) &&
			!strings.Contains(strings.ToLower(t.Description), q) {
			continue
		}
		if status != "" && status != FilterAll && t.Status != Status(status) {
			continue
		}
		if priority != "" && priority != FilterAll && t.Priority != Priority(priority) {
			continue
		}
		out = append(out, t)
	}
	return out
}
