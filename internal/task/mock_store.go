package task

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockTaskStore is an in-memory TaskStore for tests.
type MockTaskStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]TaskRecord

	SaveTaskErr     error
	UpdateStatusErr error
}

// NewMockTaskStore creates an empty in-memory task store.
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{
		records: make(map[uuid.UUID]TaskRecord),
	}
}

func (s *MockTaskStore) SaveTask(ctx context.Context, task Task) error {
	if s.SaveTaskErr != nil {
		return s.SaveTaskErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	s.records[task.ID()] = TaskRecord{
		ID:        task.ID(),
		Job:       task.Type(),
		Payload:   task.Payload(),
		Status:    task.Status(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

func (s *MockTaskStore) UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error {
	if s.UpdateStatusErr != nil {
		return s.UpdateStatusErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[taskID]
	if !ok {
		return nil
	}
	record.Status = status
	record.ErrorMsg = errorMsg
	record.UpdatedAt = time.Now().UTC()
	s.records[taskID] = record
	return nil
}

func (s *MockTaskStore) GetPendingTasks(ctx context.Context) ([]TaskRecord, error) {
	return s.getByStatus(TaskStatusPending, 0), nil
}

func (s *MockTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]TaskRecord, error) {
	return s.getByStatus(TaskStatusProcessing, olderThan), nil
}

// Record returns the stored row for a task ID.
func (s *MockTaskStore) Record(taskID uuid.UUID) (TaskRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[taskID]
	return record, ok
}

// Seed inserts a record directly, bypassing SaveTask.
func (s *MockTaskStore) Seed(record TaskRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record
}

func (s *MockTaskStore) getByStatus(status TaskStatus, olderThan time.Duration) []TaskRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-olderThan)
	var out []TaskRecord
	for _, record := range s.records {
		if record.Status != status {
			continue
		}
		if olderThan > 0 && !record.UpdatedAt.Before(cutoff) {
			continue
		}
		out = append(out, record)
	}
	return out
}
