package api

import (
	"context"

	"taskflow-api/domain"
)

// TaskStore abstracts owner-scoped task persistence for handlers.
type TaskStore interface {
	ListTasks(ctx context.Context, ownerID string) ([]domain.Task, error)
	CreateTask(ctx context.Context, ownerID string, task domain.Task) error
	UpdateTask(ctx context.Context, ownerID, taskID string, fields domain.TaskFields) (domain.Task, error)
	ChangeStatus(ctx context.Context, ownerID, taskID string, status domain.Status) (domain.Task, error)
	DeleteTask(ctx context.Context, ownerID, taskID string) error
}

// UserStore abstracts account persistence. Lookups miss with
// domain.ErrUserNotFound; creating a duplicate email fails with
// domain.ErrDuplicateEmail.
type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (domain.User, error)
	CreateUser(ctx context.Context, user domain.User) error
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

// SessionAuth additionally issues session tokens at login.
type SessionAuth interface {
	Authenticator
	IssueToken(user domain.User) (string, error)
}

// Deduper prevents reprocessing of replayed create requests.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, userID, key string) (bool, error)
	// Remove deletes a previously added key, used when the create fails.
	Remove(ctx context.Context, userID, key string) error
}

// EventSink receives task change events for the durable write-behind feed.
type EventSink interface {
	PublishEvents(ctx context.Context, ownerID string, events []domain.Event) error
}
