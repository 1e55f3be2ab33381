package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// GenerationStatus represents the processing state of a video generation run.
type GenerationStatus string

// Possible generation status values. A run walks
// pending -> prompt_generating -> prompt_ready -> video_generating -> completed,
// and any non-terminal state may transition to failed.
const (
	GenerationStatusPending         GenerationStatus = "pending"
	GenerationStatusPromptGen       GenerationStatus = "prompt_generating"
	GenerationStatusPromptReady     GenerationStatus = "prompt_ready"
	GenerationStatusVideoGenerating GenerationStatus = "video_generating"
	GenerationStatusCompleted       GenerationStatus = "completed"
	GenerationStatusFailed          GenerationStatus = "failed"
)

// Common validation errors for Generation
var (
	ErrEmptyCorrelationID      = errors.New("generation correlation ID cannot be empty")
	ErrEmptyGenerationEmail    = errors.New("generation email cannot be empty")
	ErrEmptyProductTitle       = errors.New("generation product title cannot be empty")
	ErrEmptyProductDescription = errors.New("generation product description cannot be empty")
	ErrEmptyInputImageURL      = errors.New("generation input image URL cannot be empty")
	ErrInvalidGenerationStatus = errors.New("invalid generation status")
	ErrTerminalGeneration      = errors.New("generation is in a terminal state")
)

// Generation is the domain record for one end-to-end pipeline run. It is
// created by the orchestration job, mutated by each stage on entry/exit,
// and read by the status surface. The CorrelationID is the public handle
// tying all stages of the run together.
type Generation struct {
	CorrelationID      uuid.UUID        `json:"correlation_id"`
	Email              string           `json:"email"`
	ProductTitle       string           `json:"product_title"`
	ProductDescription string           `json:"product_description"`
	InputImageURL      string           `json:"input_image_url"`
	PromptID           uuid.NullUUID    `json:"prompt_id,omitempty"`
	ArtifactURL        string           `json:"artifact_url,omitempty"`
	Status             GenerationStatus `json:"status"`
	FailureJSON        []byte           `json:"failure,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// NewGeneration creates a Generation in the pending state for the given
// correlation ID and submission fields. Returns an error if validation fails.
func NewGeneration(
	correlationID uuid.UUID,
	email, productTitle, productDescription, inputImageURL string,
) (*Generation, error) {
	gen := &Generation{
		CorrelationID:      correlationID,
		Email:              email,
		ProductTitle:       productTitle,
		ProductDescription: productDescription,
		InputImageURL:      inputImageURL,
		Status:             GenerationStatusPending,
		CreatedAt:          time.Now().UTC(),
		UpdatedAt:          time.Now().UTC(),
	}

	if err := gen.Validate(); err != nil {
		return nil, err
	}

	return gen, nil
}

// Validate checks if the Generation has valid data.
func (g *Generation) Validate() error {
	if g.CorrelationID == uuid.Nil {
		return ErrEmptyCorrelationID
	}
	if g.Email == "" {
		return ErrEmptyGenerationEmail
	}
	if g.ProductTitle == "" {
		return ErrEmptyProductTitle
	}
	if g.ProductDescription == "" {
		return ErrEmptyProductDescription
	}
	if g.InputImageURL == "" {
		return ErrEmptyInputImageURL
	}
	if !isValidGenerationStatus(g.Status) {
		return ErrInvalidGenerationStatus
	}
	return nil
}

// UpdateStatus transitions the generation to the given status and bumps
// UpdatedAt. Terminal states are immutable: once completed or failed, any
// further transition returns ErrTerminalGeneration.
func (g *Generation) UpdateStatus(status GenerationStatus) error {
	if !isValidGenerationStatus(status) {
		return ErrInvalidGenerationStatus
	}
	if g.IsTerminal() {
		return ErrTerminalGeneration
	}

	g.Status = status
	g.UpdatedAt = time.Now().UTC()
	return nil
}

// IsTerminal reports whether the generation has reached a final state.
func (g *Generation) IsTerminal() bool {
	return g.Status == GenerationStatusCompleted || g.Status == GenerationStatusFailed
}

// isValidGenerationStatus checks if the given status is a valid GenerationStatus.
func isValidGenerationStatus(status GenerationStatus) bool {
	switch status {
	case GenerationStatusPending, GenerationStatusPromptGen, GenerationStatusPromptReady,
		GenerationStatusVideoGenerating, GenerationStatusCompleted, GenerationStatusFailed:
		return true
	default:
		return false
	}
}
