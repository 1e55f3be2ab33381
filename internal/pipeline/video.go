package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/reelforge/reelforge-api/internal/domain"
	"github.com/reelforge/reelforge-api/internal/generation"
	"github.com/reelforge/reelforge-api/internal/store"
	"github.com/reelforge/reelforge-api/internal/task"
)

// VideoGenerationTask is the final pipeline stage. It renders the product
// video from the enriched payload the continuation assembled, records the
// artifact on the run, and cleans up the shared state entry.
type VideoGenerationTask struct {
	jobTask
	generations store.GenerationStore
	state       store.StateStore
	provider    generation.VideoGenerator
	logger      *slog.Logger
}

// NewVideoGenerationTask builds a video-generation task from its
// serialized arguments.
func NewVideoGenerationTask(
	raw json.RawMessage,
	generations store.GenerationStore,
	state store.StateStore,
	provider generation.VideoGenerator,
	logger *slog.Logger,
) (*VideoGenerationTask, error) {
	base, err := newJobTask(JobVideoGeneration, raw)
	if err != nil {
		return nil, err
	}

	return &VideoGenerationTask{
		jobTask:     base,
		generations: generations,
		state:       state,
		provider:    provider,
		logger:      logger.With("job", JobVideoGeneration),
	}, nil
}

// Execute runs the video-generation stage.
func (t *VideoGenerationTask) Execute(ctx context.Context) error {
	log := t.logger.With("correlation_id", t.correlationID)

	// The continuation merges the parked submission into the payload, so a
	// missing product field means the enrichment never happened.
	if err := t.payload.Require(KeyPromptText, KeyInputImageURL, KeyProductTitle, KeyEmail); err != nil {
		return task.Permanent(task.CodeInvalidInput, err)
	}

	if err := t.generations.UpdateStatus(ctx, t.correlationID, domain.GenerationStatusVideoGenerating); err != nil {
		return task.Transient(task.CodeInternal, fmt.Errorf("failed to update run status: %w", err))
	}

	artifactURL, err := t.provider.GenerateVideo(ctx,
		t.payload.Get(KeyInputImageURL),
		t.payload.Get(KeyPromptText))
	if err != nil {
		return classifyProviderError(err)
	}

	if err := t.generations.Complete(ctx, t.correlationID, artifactURL); err != nil {
		return task.Transient(task.CodeInternal, fmt.Errorf("failed to complete run: %w", err))
	}

	// The run is finished; its parked state is garbage now. Cleanup is
	// best effort, the TTL purge catches leftovers.
	if err := t.state.Delete(ctx, t.correlationID); err != nil {
		log.Warn("failed to delete pipeline state after completion", "error", err)
	}

	log.Info("video generated", "artifact_url", artifactURL)
	return nil
}
