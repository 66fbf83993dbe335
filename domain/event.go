package domain

import "github.com/bytedance/sonic"

// Event change types.
const (
	EventTaskCreated = "task-created"
	EventTaskUpdated = "task-updated"
	EventTaskDeleted = "task-deleted"
)

// Event records one change applied to an owner's task collection. Events are
// published write-behind to the durable change feed after the in-memory state
// has settled.
type Event struct {
	ID     string                 `json:"id"`
	TaskID string                 `json:"taskId"`
	Type   string                 `json:"type"`
	Data   sonic.NoCopyRawMessage `json:"data,omitempty"`
	Time   int64                  `json:"time"`
}

// EventEnvelope wraps an event with the owner it belongs to.
type EventEnvelope struct {
	UserID string `json:"userId"`
	Event  Event  `json:"event"`
}
