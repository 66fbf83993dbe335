package storage

import (
	"time"

	"github.com/google/uuid"

	"taskflow-api/domain"
)

// SampleTasks builds the four illustrative tasks a new owner sees on first
// load: one per board column plus a second todo, with deadlines on both sides
// of today.
func SampleTasks(ownerID string, now time.Time) []domain.Task {
	deadline := func(days int) string {
		return now.AddDate(0, 0, days).Format(domain.DeadlineLayout)
	}
	mk := func(title, description string, status domain.Status, priority domain.Priority, offsetDays int) domain.Task {
		return domain.Task{
			ID:          uuid.NewString(),
			Title:       title,
			Description: description,
			Status:      status,
			Priority:    priority,
			Deadline:    deadline(offsetDays),
			CreatedAt:   now,
			UserID:      ownerID,
		}
	}
	return []domain.Task{
		mk("Welcome to TaskFlow!",
			"This is a sample task to get you started. You can edit, delete, or mark it as completed.",
			domain.StatusTodo, domain.PriorityMedium, 7),
		mk("Create your first task",
			"Click the 'Add Task' button to create your own task and start managing your work efficiently.",
			domain.StatusTodo, domain.PriorityHigh, 3),
		mk("Review project documentation",
			"Go through the project requirements and update the documentation as needed.",
			domain.StatusInProgress, domain.PriorityMedium, 5),
		mk("Setup development environment",
			"Install necessary tools and configure the development environment for the new project.",
			domain.StatusCompleted, domain.PriorityHigh, -1),
	}
}
