package core

// EventLogger is the subset of the observability event log that core
// services need. Defining it here avoids importing the observability package.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}

// Event types emitted by the engine.
const (
	EventTaskCreated     = "task.created"
	EventTaskClaimed     = "task.claimed"
	EventTaskMoved       = "task.moved"
	EventTaskReleased    = "task.released"
	EventTaskBlocked     = "task.blocked"
	EventTaskUnblocked   = "task.unblocked"
	EventTaskCompleted   = "task.completed"
	EventTaskDecomposed  = "task.decomposed"
	EventHydrationFailed = "hydration.failed"
	EventRecordSkipped   = "board.record_skipped"
)
