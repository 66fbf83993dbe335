package domain

import (
	"errors"
	"testing"
	"time"
)

func validFields() TaskFields {
	return TaskFields{
		Title:       "Write report",
		Description: "Quarterly numbers",
		Status:      StatusTodo,
		Priority:    PriorityMedium,
		Deadline:    "2024-01-15",
	}
}

func TestTaskFieldsValidate(t *testing.T) {
	now := time.Date(2024, time.January, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		mutate  func(*TaskFields)
		wantMsg string
	}{
		{name: "valid", mutate: func(f *TaskFields) {}},
		{name: "missing title", mutate: func(f *TaskFields) { f.Title = "" }, wantMsg: "Title is required"},
		{name: "missing description", mutate: func(f *TaskFields) { f.Description = "" }, wantMsg: "Description is required"},
		{name: "bad status", mutate: func(f *TaskFields) { f.Status = "archived" }, wantMsg: "Invalid status"},
		{name: "bad priority", mutate: func(f *TaskFields) { f.Priority = "urgent" }, wantMsg: "Invalid priority"},
		{name: "missing deadline", mutate: func(f *TaskFields) { f.Deadline = "" }, wantMsg: "Deadline is required"},
		{name: "malformed deadline", mutate: func(f *TaskFields) { f.Deadline = "15/01/2024" }, wantMsg: "Deadline must be a valid date"},
		{name: "deadline yesterday", mutate: func(f *TaskFields) { f.Deadline = "2024-01-09" }, wantMsg: "Deadline cannot be in the past"},
		{name: "deadline today", mutate: func(f *TaskFields) { f.Deadline = "2024-01-10" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFields()
			tt.mutate(&f)
			err := f.Validate(now)
			if tt.wantMsg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Message != tt.wantMsg {
				t.Fatalf("expected %q, got %q", tt.wantMsg, ve.Message)
			}
		})
	}
}

func TestNewTaskAssignsIdentityAndTimestamp(t *testing.T) {
	now := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)
	f := validFields()
	f.Deadline = "2024-03-05"

	a := NewTask("owner-1", f, now)
	b := NewTask("owner-1", f, now)

	if a.ID == "" || b.ID == "" || a.ID == b.ID {
		t.Fatalf("expected unique non-empty ids, got %q and %q", a.ID, b.ID)
	}
	if a.UserID != "owner-1" {
		t.Fatalf("unexpected owner: %q", a.UserID)
	}
	if !a.CreatedAt.Equal(now) {
		t.Fatalf("unexpected creation time: %v", a.CreatedAt)
	}
	if a.Title != f.Title || a.Status != f.Status || a.Deadline != f.Deadline {
		t.Fatalf("fields not carried over: %+v", a)
	}
}

func TestApplyPreservesIdentity(t *testing.T) {
	created := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	task := Task{ID: "t1", UserID: "owner-1", CreatedAt: created, Title: "Old", Description: "Old", Status: StatusTodo, Priority: PriorityLow, Deadline: "2024-02-01"}

	task.Apply(TaskFields{Title: "New", Description: "New desc", Status: StatusCompleted, Priority: PriorityHigh, Deadline: "2024-02-10"})

	if task.ID != "t1" || task.UserID != "owner-1" || !task.CreatedAt.Equal(created) {
		t.Fatalf("identity fields changed: %+v", task)
	}
	if task.Title != "New" || task.Status != StatusCompleted || task.Deadline != "2024-02-10" {
		t.Fatalf("mutable fields not applied: %+v", task)
	}
}

func TestDateBefore(t *testing.T) {
	day := time.Date(2024, time.January, 10, 18, 45, 0, 0, time.UTC)
	tests := []struct {
		date string
		want bool
	}{
		{date: "2024-01-09", want: true},
		{date: "2024-01-10", want: false},
		{date: "2024-01-11", want: false},
		{date: "not-a-date", want: false},
	}
	for _, tt := range tests {
		if got := DateBefore(tt.date, day); got != tt.want {
			t.Fatalf("DateBefore(%q) = %v, want %v", tt.date, got, tt.want)
		}
	}
}

func TestValidEmail(t *testing.T) {
	valid := []string{"alice@example.com", "a@b.co"}
	invalid := []string{"", "alice", "alice@example", "@example.com"}
	for _, e := range valid {
		if !ValidEmail(e) {
			t.Fatalf("expected %q to be valid", e)
		}
	}
	for _, e := range invalid {
		if ValidEmail(e) {
			t.Fatalf("expected %q to be invalid", e)
		}
	}
}
