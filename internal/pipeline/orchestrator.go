package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/reelforge/reelforge-api/internal/domain"
	"github.com/reelforge/reelforge-api/internal/store"
	"github.com/reelforge/reelforge-api/internal/task"
)

// OrchestratorTask is the pipeline entry point. It creates the run's
// domain record, parks the original submission in the shared state store,
// and schedules the prompt-generation stage with its continuation wired
// in by name. It finishes immediately after scheduling; the rest of the
// pipeline happens asynchronously.
type OrchestratorTask struct {
	jobTask
	generations store.GenerationStore
	state       store.StateStore
	scheduler   *Scheduler
	stateTTL    time.Duration
	logger      *slog.Logger
}

// NewOrchestratorTask builds an orchestration task from its serialized
// arguments.
func NewOrchestratorTask(
	raw json.RawMessage,
	generations store.GenerationStore,
	state store.StateStore,
	scheduler *Scheduler,
	stateTTL time.Duration,
	logger *slog.Logger,
) (*OrchestratorTask, error) {
	base, err := newJobTask(JobOrchestrate, raw)
	if err != nil {
		return nil, err
	}

	return &OrchestratorTask{
		jobTask:     base,
		generations: generations,
		state:       state,
		scheduler:   scheduler,
		stateTTL:    stateTTL,
		logger:      logger.With("job", JobOrchestrate),
	}, nil
}

// Execute runs the orchestration stage.
func (t *OrchestratorTask) Execute(ctx context.Context) error {
	log := t.logger.With("correlation_id", t.correlationID)

	if err := t.payload.Require(KeyEmail, KeyProductTitle, KeyProductDescription, KeyInputImageURL); err != nil {
		return task.Permanent(task.CodeInvalidInput, err)
	}

	gen, err := domain.NewGeneration(
		t.correlationID,
		t.payload.Get(KeyEmail),
		t.payload.Get(KeyProductTitle),
		t.payload.Get(KeyProductDescription),
		t.payload.Get(KeyInputImageURL),
	)
	if err != nil {
		return task.Permanent(task.CodeInvalidInput, err)
	}

	// Idempotent across retries: re-creating an existing run is a no-op.
	if err := t.generations.Create(ctx, gen); err != nil {
		return task.Transient(task.CodeInternal, fmt.Errorf("failed to create generation record: %w", err))
	}

	stateJSON, err := t.payload.JSON()
	if err != nil {
		return task.Permanent(task.CodeInternal, fmt.Errorf("failed to serialize pipeline state: %w", err))
	}
	if err := t.state.Put(ctx, t.correlationID, stateJSON, t.stateTTL); err != nil {
		return task.Transient(task.CodeInternal, fmt.Errorf("failed to store pipeline state: %w", err))
	}

	next := Payload{
		KeyCorrelationID: t.correlationID.String(),
		KeyCallbackJob:   JobVideoContinuation,
	}
	if t.payload.ForceNew() {
		next[KeyForceNew] = "true"
	}

	if err := t.scheduler.Schedule(ctx, JobPromptGeneration, next); err != nil {
		return task.Transient(task.CodeSchedulingError, err)
	}

	log.Info("pipeline run orchestrated",
		"next_job", JobPromptGeneration,
		"callback_job", JobVideoContinuation)
	return nil
}
