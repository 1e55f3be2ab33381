package pipeline

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/reelforge/reelforge-api/internal/generation"
	"github.com/reelforge/reelforge-api/internal/task"
)

// jobTask is the shared scaffolding for pipeline job tasks: identity,
// decoded payload, and the correlation ID tying the task to its run.
type jobTask struct {
	id            uuid.UUID
	job           string
	payload       Payload
	raw           json.RawMessage
	status        task.TaskStatus
	correlationID uuid.UUID
}

// newJobTask decodes the raw payload and extracts the correlation ID.
// A payload that does not decode or lacks a correlation ID cannot be
// attributed to any run, so construction fails outright.
func newJobTask(job string, raw json.RawMessage) (jobTask, error) {
	payload, err := ParsePayload(raw)
	if err != nil {
		return jobTask{}, err
	}

	correlationID, err := payload.CorrelationID()
	if err != nil {
		return jobTask{}, err
	}

	return jobTask{
		id:            uuid.New(),
		job:           job,
		payload:       payload,
		raw:           raw,
		status:        task.TaskStatusPending,
		correlationID: correlationID,
	}, nil
}

func (t *jobTask) ID() uuid.UUID           { return t.id }
func (t *jobTask) Type() string            { return t.job }
func (t *jobTask) Payload() []byte         { return t.raw }
func (t *jobTask) Status() task.TaskStatus { return t.status }

// CorrelationID implements task.CorrelatedTask so terminal failures are
// attributed to the run's domain record.
func (t *jobTask) CorrelationID() uuid.UUID { return t.correlationID }

// classifyProviderError maps a provider error onto the pipeline failure
// policy. Content blocks, malformed responses, and misconfiguration will
// not improve on retry; everything else from a provider is assumed to be
// temporary.
func classifyProviderError(err error) error {
	switch {
	case errors.Is(err, generation.ErrContentBlocked),
		errors.Is(err, generation.ErrInvalidResponse),
		errors.Is(err, generation.ErrInvalidConfig):
		return task.Permanent(task.CodeProviderError, err)
	default:
		return task.Transient(task.CodeProviderError, err)
	}
}
