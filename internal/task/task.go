package task

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task represents a unit of background work to be processed
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// Type returns the registered job name this task executes
	Type() string

	// Payload returns the task arguments as a byte slice. Only
	// serializable data is carried here; a task never holds another
	// stage's live objects.
	Payload() []byte

	// Status returns the current task status
	Status() TaskStatus

	// Execute runs the task logic
	Execute(ctx context.Context) error
}

// CorrelatedTask is implemented by tasks that belong to a pipeline run.
// The retry wrapper uses it to attribute terminal failures to the run's
// domain record.
type CorrelatedTask interface {
	// CorrelationID returns the run this task belongs to
	CorrelationID() uuid.UUID
}

// TaskStore defines the interface for persisting tasks
type TaskStore interface {
	// SaveTask persists a task to the database
	SaveTask(ctx context.Context, task Task) error

	// UpdateTaskStatus updates the status of a task
	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error

	// GetPendingTasks retrieves all tasks with "pending" status
	GetPendingTasks(ctx context.Context) ([]TaskRecord, error)

	// GetProcessingTasks retrieves tasks with "processing" status.
	// If olderThan is non-zero, only returns tasks that have been in this
	// state longer than the specified duration.
	GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]TaskRecord, error)
}

// TaskRecord is a persisted task row: enough to rebuild an executable
// task through the job registry after a restart.
type TaskRecord struct {
	ID        uuid.UUID
	Job       string
	Payload   []byte
	Status    TaskStatus
	ErrorMsg  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Reviver rebuilds an executable task from its persisted job name and
// payload. Implemented by the job registry.
type Reviver interface {
	// Revive constructs a ready-to-run task for the named job. Returns an
	// error when the job name is not registered or the payload does not
	// decode.
	Revive(jobName string, payload []byte) (Task, error)
}

// StatePurger removes expired shared-state entries. The runner's monitor
// loop calls it periodically.
type StatePurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}
