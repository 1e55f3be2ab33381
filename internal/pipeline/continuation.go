package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/reelforge/reelforge-api/internal/store"
	"github.com/reelforge/reelforge-api/internal/task"
)

// VideoContinuationTask is the named callback the orchestrator wires
// between prompt and video generation. It joins the prompt stage's result
// with the original submission from the shared state store and schedules
// the video stage with the enriched payload. Because it is addressed by
// name, the prompt stage can run it without importing anything it does.
type VideoContinuationTask struct {
	jobTask
	state     store.StateStore
	scheduler *Scheduler
	logger    *slog.Logger
}

// NewVideoContinuationTask builds a continuation task from its serialized
// arguments.
func NewVideoContinuationTask(
	raw json.RawMessage,
	state store.StateStore,
	scheduler *Scheduler,
	logger *slog.Logger,
) (*VideoContinuationTask, error) {
	base, err := newJobTask(JobVideoContinuation, raw)
	if err != nil {
		return nil, err
	}

	return &VideoContinuationTask{
		jobTask:   base,
		state:     state,
		scheduler: scheduler,
		logger:    logger.With("job", JobVideoContinuation),
	}, nil
}

// Execute runs the continuation stage.
func (t *VideoContinuationTask) Execute(ctx context.Context) error {
	log := t.logger.With("correlation_id", t.correlationID)

	// The prompt must have crossed the stage boundary as payload data. If
	// it did not, the producer broke the contract and retrying cannot fix
	// it.
	if err := t.payload.Require(KeyPromptText); err != nil {
		return task.Permanent(task.CodeInvalidInput, err)
	}

	raw, err := t.state.Get(ctx, t.correlationID)
	if err != nil {
		if errors.Is(err, store.ErrStateNotFound) {
			return task.Permanent(task.CodeStateExpired,
				fmt.Errorf("original request data not found for run %s", t.correlationID))
		}
		return task.Transient(task.CodeInternal, fmt.Errorf("failed to load pipeline state: %w", err))
	}

	submission, err := ParsePayload(raw)
	if err != nil {
		return task.Permanent(task.CodeInternal, err)
	}

	enriched := submission.Merge(Payload{
		KeyCorrelationID: t.correlationID.String(),
		KeyPromptID:      t.payload.Get(KeyPromptID),
		KeyPromptText:    t.payload.Get(KeyPromptText),
	})
	if err := enriched.Require(KeyInputImageURL); err != nil {
		return task.Permanent(task.CodeInvalidInput, err)
	}

	if err := t.scheduler.Schedule(ctx, JobVideoGeneration, enriched); err != nil {
		return task.Transient(task.CodeSchedulingError, err)
	}

	log.Info("continuation joined prompt with submission", "next_job", JobVideoGeneration)
	return nil
}
