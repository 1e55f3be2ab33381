package pipeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/reelforge/reelforge-api/internal/domain"
	"github.com/reelforge/reelforge-api/internal/generation"
	"github.com/reelforge/reelforge-api/internal/store"
	"github.com/reelforge/reelforge-api/internal/task"
)

// PromptGenerationTask produces the video prompt for a run. It reads the
// original submission from the shared state store, consults the prompt
// reuse index, calls the LLM provider only on a miss, and schedules
// whatever callback job the orchestrator named. The stage knows nothing
// about what the callback does.
type PromptGenerationTask struct {
	jobTask
	generations store.GenerationStore
	prompts     store.PromptStore
	state       store.StateStore
	provider    generation.PromptGenerator
	scheduler   *Scheduler
	tx          store.Transactor
	modelName   string
	logger      *slog.Logger
}

// NewPromptGenerationTask builds a prompt-generation task from its
// serialized arguments.
func NewPromptGenerationTask(
	raw json.RawMessage,
	generations store.GenerationStore,
	prompts store.PromptStore,
	state store.StateStore,
	provider generation.PromptGenerator,
	scheduler *Scheduler,
	tx store.Transactor,
	modelName string,
	logger *slog.Logger,
) (*PromptGenerationTask, error) {
	base, err := newJobTask(JobPromptGeneration, raw)
	if err != nil {
		return nil, err
	}

	return &PromptGenerationTask{
		jobTask:     base,
		generations: generations,
		prompts:     prompts,
		state:       state,
		provider:    provider,
		scheduler:   scheduler,
		tx:          tx,
		modelName:   modelName,
		logger:      logger.With("job", JobPromptGeneration),
	}, nil
}

// Execute runs the prompt-generation stage.
func (t *PromptGenerationTask) Execute(ctx context.Context) error {
	log := t.logger.With("correlation_id", t.correlationID)

	if err := t.generations.UpdateStatus(ctx, t.correlationID, domain.GenerationStatusPromptGen); err != nil {
		return task.Transient(task.CodeInternal, fmt.Errorf("failed to update run status: %w", err))
	}

	submission, err := t.loadSubmission(ctx)
	if err != nil {
		return err
	}

	prompt, err := t.resolvePrompt(ctx, log, submission)
	if err != nil {
		return err
	}

	// Prompt ID and readiness land together: a run observed in prompt_ready
	// always carries its prompt reference.
	err = t.tx.Transact(ctx, func(ctx context.Context, sqlTx *sql.Tx) error {
		gens := t.generations.WithTx(sqlTx)
		if err := gens.SetPromptID(ctx, t.correlationID, prompt.ID); err != nil {
			return fmt.Errorf("failed to record prompt on run: %w", err)
		}
		return gens.UpdateStatus(ctx, t.correlationID, domain.GenerationStatusPromptReady)
	})
	if err != nil {
		return task.Transient(task.CodeInternal, fmt.Errorf("failed to mark prompt ready: %w", err))
	}

	callback := t.payload.Get(KeyCallbackJob)
	if callback == "" {
		callback = JobVideoContinuation
	}

	next := Payload{
		KeyCorrelationID: t.correlationID.String(),
		KeyPromptID:      prompt.ID.String(),
		KeyPromptText:    prompt.PromptText,
	}
	if err := t.scheduler.Schedule(ctx, callback, next); err != nil {
		return task.Transient(task.CodeSchedulingError, err)
	}

	log.Info("prompt stage finished", "prompt_id", prompt.ID, "callback_job", callback)
	return nil
}

// loadSubmission fetches the original request data parked by the
// orchestrator. An absent or expired entry is permanent: the run's inputs
// are gone and no amount of retrying brings them back.
func (t *PromptGenerationTask) loadSubmission(ctx context.Context) (Payload, error) {
	raw, err := t.state.Get(ctx, t.correlationID)
	if err != nil {
		if errors.Is(err, store.ErrStateNotFound) {
			return nil, task.Permanent(task.CodeStateExpired,
				fmt.Errorf("original request data not found for run %s", t.correlationID))
		}
		return nil, task.Transient(task.CodeInternal, fmt.Errorf("failed to load pipeline state: %w", err))
	}

	submission, err := ParsePayload(raw)
	if err != nil {
		return nil, task.Permanent(task.CodeInternal, err)
	}
	if err := submission.Require(KeyProductTitle, KeyProductDescription); err != nil {
		return nil, task.Permanent(task.CodeInvalidInput, err)
	}
	return submission, nil
}

// resolvePrompt returns the prompt for the submission, reusing an indexed
// one when possible. A forced regeneration always calls the provider but
// the reuse index keeps the first stored row for the fingerprint.
func (t *PromptGenerationTask) resolvePrompt(
	ctx context.Context,
	log *slog.Logger,
	submission Payload,
) (*domain.Prompt, error) {
	title := submission.Get(KeyProductTitle)
	description := submission.Get(KeyProductDescription)
	fingerprint := domain.PromptFingerprint(title, description)

	if !t.payload.ForceNew() {
		cached, err := t.prompts.GetByFingerprint(ctx, fingerprint)
		if err == nil {
			log.Info("reusing stored prompt",
				"prompt_id", cached.ID,
				"fingerprint", fingerprint)
			return cached, nil
		}
		if !errors.Is(err, store.ErrPromptNotFound) {
			return nil, task.Transient(task.CodeInternal, fmt.Errorf("prompt lookup failed: %w", err))
		}
	}

	promptText, err := t.provider.GeneratePrompt(ctx, generation.ProductInput{
		Title:       title,
		Description: description,
		ImageURL:    submission.Get(KeyInputImageURL),
	})
	if err != nil {
		return nil, classifyProviderError(err)
	}

	prompt, err := domain.NewPrompt(title, description, promptText, t.modelName)
	if err != nil {
		return nil, task.Permanent(task.CodeInternal, err)
	}

	// A concurrent run for the same product may have stored its prompt
	// first; the insert is a no-op then and the stored row wins for the
	// reuse index. This run still uses the text it just generated.
	if err := t.prompts.Create(ctx, prompt); err != nil {
		return nil, task.Transient(task.CodeInternal, fmt.Errorf("failed to store prompt: %w", err))
	}

	canonical, err := t.prompts.GetByFingerprint(ctx, fingerprint)
	if err != nil {
		return nil, task.Transient(task.CodeInternal, fmt.Errorf("failed to reload prompt: %w", err))
	}

	log.Info("generated new prompt",
		"prompt_id", canonical.ID,
		"fingerprint", fingerprint,
		"model", t.modelName)
	return &domain.Prompt{
		ID:                 canonical.ID,
		Fingerprint:        canonical.Fingerprint,
		ProductTitle:       title,
		ProductDescription: description,
		PromptText:         promptText,
		ModelUsed:          t.modelName,
		CreatedAt:          canonical.CreatedAt,
	}, nil
}
