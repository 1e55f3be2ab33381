package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/reelforge/reelforge-api/internal/events"
)

// Registered job names. Producers schedule successors by these names; the
// job registry resolves them at dispatch time.
const (
	JobOrchestrate       = "pipeline.orchestrate"
	JobPromptGeneration  = "pipeline.prompt_generation"
	JobVideoContinuation = "pipeline.video_continuation"
	JobVideoGeneration   = "pipeline.video_generation"
)

// Scheduler publishes job requests to the event bus. It is the only way
// pipeline stages reach their successors, which keeps every stage
// schedulable, testable, and replaceable in isolation.
type Scheduler struct {
	emitter events.EventEmitter
	logger  *slog.Logger
}

// NewScheduler creates a Scheduler over the given emitter.
func NewScheduler(emitter events.EventEmitter, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		emitter: emitter,
		logger:  logger.With("component", "pipeline_scheduler"),
	}
}

// Schedule emits a request to run the named job with the given payload.
// It returns once the request is accepted; the job itself runs later on
// the task runner.
func (s *Scheduler) Schedule(ctx context.Context, jobName string, payload Payload) error {
	event, err := events.NewJobRequestEvent(jobName, payload)
	if err != nil {
		return fmt.Errorf("failed to build job request for %s: %w", jobName, err)
	}

	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", jobName, err)
	}

	s.logger.Debug("scheduled job",
		"job", jobName,
		"event_id", event.ID,
		"correlation_id", payload.Get(KeyCorrelationID))
	return nil
}
