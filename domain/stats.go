package domain

import "time"

// Stats aggregates an owner's full task collection for the dashboard cards.
type Stats struct {
	Total      int `json:"total"`
	Todo       int `json:"todo"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
	Overdue    int `json:"overdue"`
}

// ComputeStats counts tasks per status plus the overdue tally. A task is
// overdue when it is not completed and its deadline falls strictly before
// now's calendar date; the time of day is ignored.
func ComputeStats(tasks []Task, now time.Time) Stats {
	s := Stats{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case StatusTodo:
			s.Todo++
		case StatusInProgress:
			s.InProgress++
		case StatusCompleted:
			s.Completed++
		}
		if t.Status != StatusCompleted && DateBefore(t.Deadline, now) {
			s.Overdue++
		}
	}
	return s
}
