package task

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MockTask is a configurable Task implementation for tests.
type MockTask struct {
	TaskID       uuid.UUID
	TaskType     string
	TaskPayload  []byte
	TaskStatus   TaskStatus
	Correlation  uuid.UUID
	ExecuteFunc  func(ctx context.Context) error
	mu           sync.Mutex
	executeCalls int
}

// NewMockTask creates a MockTask with sensible defaults.
func NewMockTask(jobName string) *MockTask {
	return &MockTask{
		TaskID:     uuid.New(),
		TaskType:   jobName,
		TaskStatus: TaskStatusPending,
	}
}

func (t *MockTask) ID() uuid.UUID      { return t.TaskID }
func (t *MockTask) Type() string       { return t.TaskType }
func (t *MockTask) Payload() []byte    { return t.TaskPayload }
func (t *MockTask) Status() TaskStatus { return t.TaskStatus }

func (t *MockTask) CorrelationID() uuid.UUID { return t.Correlation }

func (t *MockTask) Execute(ctx context.Context) error {
	t.mu.Lock()
	t.executeCalls++
	t.mu.Unlock()

	if t.ExecuteFunc != nil {
		return t.ExecuteFunc(ctx)
	}
	return nil
}

// ExecuteCalls reports how many times Execute ran.
func (t *MockTask) ExecuteCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.executeCalls
}
