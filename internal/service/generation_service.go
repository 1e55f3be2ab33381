package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/reelforge/reelforge-api/internal/domain"
	"github.com/reelforge/reelforge-api/internal/pipeline"
	"github.com/reelforge/reelforge-api/internal/store"
)

// Common sentinel errors for GenerationService
var (
	// ErrGenerationNotFound indicates that no run exists for the correlation ID
	ErrGenerationNotFound = errors.New("generation not found")

	// ErrPromptNotFound indicates that no prompt exists for the given ID
	ErrPromptNotFound = errors.New("prompt not found")
)

// SubmitRequest carries the fields of a product-video submission.
type SubmitRequest struct {
	Email              string
	ProductTitle       string
	ProductDescription string
	InputImageURL      string

	// ForceNew opts this submission out of prompt reuse.
	ForceNew bool
}

// GenerationService provides the intake and status operations for
// product-video generation runs.
type GenerationService interface {
	// StartGeneration accepts a submission, schedules the pipeline, and
	// returns the run's correlation ID. It returns as soon as the
	// orchestration job is scheduled; all processing happens
	// asynchronously.
	StartGeneration(ctx context.Context, req SubmitRequest) (uuid.UUID, error)

	// GetStatus returns the current state of a run, including the artifact
	// URL once completed and the failure response once failed.
	// Returns ErrGenerationNotFound for unknown correlation IDs.
	GetStatus(ctx context.Context, correlationID uuid.UUID) (*domain.Generation, error)

	// GetPrompt returns the stored prompt for a run's recorded prompt ID.
	// Returns ErrPromptNotFound when the ID matches no stored prompt.
	GetPrompt(ctx context.Context, promptID uuid.UUID) (*domain.Prompt, error)

	// ListByEmail returns the most recent runs submitted by the given
	// email, newest first.
	ListByEmail(ctx context.Context, email string, limit int) ([]*domain.Generation, error)
}

// GenerationServiceError wraps errors from the generation service with context.
type GenerationServiceError struct {
	// Operation is the operation that failed (e.g., "start_generation")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for GenerationServiceError.
func (e *GenerationServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("generation service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *GenerationServiceError) Unwrap() error {
	return e.Err
}

// generationService is the default GenerationService implementation.
type generationService struct {
	generations store.GenerationStore
	prompts     store.PromptStore
	scheduler   *pipeline.Scheduler
	logger      *slog.Logger
}

// NewGenerationService creates a GenerationService over the given stores
// and pipeline scheduler.
func NewGenerationService(
	generations store.GenerationStore,
	prompts store.PromptStore,
	scheduler *pipeline.Scheduler,
	logger *slog.Logger,
) GenerationService {
	return &generationService{
		generations: generations,
		prompts:     prompts,
		scheduler:   scheduler,
		logger:      logger.With(slog.String("component", "generation_service")),
	}
}

// StartGeneration implements GenerationService.StartGeneration
func (s *generationService) StartGeneration(ctx context.Context, req SubmitRequest) (uuid.UUID, error) {
	correlationID := uuid.New()

	payload := pipeline.Payload{
		pipeline.KeyCorrelationID:      correlationID.String(),
		pipeline.KeyEmail:              req.Email,
		pipeline.KeyProductTitle:       req.ProductTitle,
		pipeline.KeyProductDescription: req.ProductDescription,
		pipeline.KeyInputImageURL:      req.InputImageURL,
	}
	if req.ForceNew {
		payload[pipeline.KeyForceNew] = "true"
	}

	if err := s.scheduler.Schedule(ctx, pipeline.JobOrchestrate, payload); err != nil {
		s.logger.Error("failed to schedule orchestration",
			slog.String("correlation_id", correlationID.String()),
			slog.String("error", err.Error()))
		return uuid.Nil, &GenerationServiceError{
			Operation: "start_generation",
			Message:   "failed to schedule pipeline run",
			Err:       err,
		}
	}

	s.logger.Info("generation run scheduled",
		slog.String("correlation_id", correlationID.String()))
	return correlationID, nil
}

// GetStatus implements GenerationService.GetStatus
func (s *generationService) GetStatus(ctx context.Context, correlationID uuid.UUID) (*domain.Generation, error) {
	gen, err := s.generations.GetByCorrelationID(ctx, correlationID)
	if err != nil {
		if errors.Is(err, store.ErrGenerationNotFound) {
			return nil, ErrGenerationNotFound
		}
		return nil, &GenerationServiceError{
			Operation: "get_status",
			Message:   "failed to load generation run",
			Err:       err,
		}
	}
	return gen, nil
}

// GetPrompt implements GenerationService.GetPrompt
func (s *generationService) GetPrompt(ctx context.Context, promptID uuid.UUID) (*domain.Prompt, error) {
	prompt, err := s.prompts.GetByID(ctx, promptID)
	if err != nil {
		if errors.Is(err, store.ErrPromptNotFound) {
			return nil, ErrPromptNotFound
		}
		return nil, &GenerationServiceError{
			Operation: "get_prompt",
			Message:   "failed to load prompt",
			Err:       err,
		}
	}
	return prompt, nil
}

// ListByEmail implements GenerationService.ListByEmail
func (s *generationService) ListByEmail(ctx context.Context, email string, limit int) ([]*domain.Generation, error) {
	generations, err := s.generations.ListByEmail(ctx, email, limit)
	if err != nil {
		return nil, &GenerationServiceError{
			Operation: "list_by_email",
			Message:   "failed to list generation runs",
			Err:       err,
		}
	}
	return generations, nil
}
