package domain

import (
	"time"

	"github.com/google/uuid"
)

// DeadlineLayout is the calendar-date wire format for task deadlines.
const DeadlineLayout = "2006-01-02"

// Status enumerates the board columns a task can live in.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Priority enumerates task urgency levels.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task is a single board item owned by exactly one user.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Priority    Priority  `json:"priority"`
	Deadline    string    `json:"deadline"`
	CreatedAt   time.Time `json:"createdAt"`
	UserID      string    `json:"userId"`
}

// TaskFields is the mutable field set shared by create and update requests.
type TaskFields struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      Status   `json:"status"`
	Priority    Priority `json:"priority"`
	Deadline    string   `json:"deadline"`
}

// Validate checks the field set against the rules the task form enforces.
// The deadline may be today but never a day in the past, where "past"
// compares calendar dates only.
func (f TaskFields) Validate(now time.Time) error {
	if f.Title == "" {
		return &ValidationError{Field: "title", Message: "Title is required"}
	}
	if f.Description == "" {
		return &ValidationError{Field: "description", Message: "Description is required"}
	}
	if !f.Status.Valid() {
		return &ValidationError{Field: "status", Message: "Invalid status"}
	}
	if !f.Priority.Valid() {
		return &ValidationError{Field: "priority", Message: "Invalid priority"}
	}
	if f.Deadline == "" {
		return &ValidationError{Field: "deadline", Message: "Deadline is required"}
	}
	if _, err := time.Parse(DeadlineLayout, f.Deadline); err != nil {
		return &ValidationError{Field: "deadline", Message: "Deadline must be a valid date"}
	}
	if DateBefore(f.Deadline, now) {
		return &ValidationError{Field: "deadline", Message: "Deadline cannot be in the past"}
	}
	return nil
}

// NewTask builds a task for the given owner with a fresh identifier and
// creation timestamp. Fields are assumed validated.
func NewTask(ownerID string, f TaskFields, now time.Time) Task {
	return Task{
		ID:          uuid.NewString(),
		Title:       f.Title,
		Description: f.Description,
		Status:      f.Status,
		Priority:    f.Priority,
		Deadline:    f.Deadline,
		CreatedAt:   now,
		UserID:      ownerID,
	}
}

// Apply replaces the mutable fields, preserving identifier, owner and
// creation timestamp.
func (t *Task) Apply(f TaskFields) {
	t.Title = f.Title
	t.Description = f.Description
	t.Status = f.Status
	t.Priority = f.Priority
	t.Deadline = f.Deadline
}

// DateBefore reports whether the YYYY-MM-DD date falls strictly before the
// calendar date of day. The time-of-day component of day is ignored.
// Malformed dates are never before.
func DateBefore(date string, day time.Time) bool {
	d, err := time.Parse(DeadlineLayout, date)
	if err != nil {
		return false
	}
	y, m, dd := day.Date()
	return d.Before(time.Date(y, m, dd, 0, 0, 0, 0, time.UTC))
}
