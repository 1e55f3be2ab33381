package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/reelforge/reelforge-api/internal/api/shared"
	"github.com/reelforge/reelforge-api/internal/domain"
	"github.com/reelforge/reelforge-api/internal/service"
)

// CreateGenerationRequest represents the request body for starting a
// product-video generation run
type CreateGenerationRequest struct {
	Email              string `json:"email"               validate:"required,email"`
	ProductTitle       string `json:"product_title"       validate:"required,min=1"`
	ProductDescription string `json:"product_description" validate:"required,min=1"`
	InputImageURL      string `json:"input_image_url"     validate:"required,url"`
	ForceNew           bool   `json:"force_new,omitempty"`
}

// CreateGenerationResponse is returned by the intake endpoint.
type CreateGenerationResponse struct {
	CorrelationID string `json:"correlation_id"`
	Status        string `json:"status"`
}

// GenerationResponse represents the status surface for a run
type GenerationResponse struct {
	CorrelationID string          `json:"correlation_id"`
	Email         string          `json:"email"`
	ProductTitle  string          `json:"product_title"`
	Status        string          `json:"status"`
	PromptID      string          `json:"prompt_id,omitempty"`
	PromptText    string          `json:"prompt_text,omitempty"`
	ArtifactURL   string          `json:"artifact_url,omitempty"`
	Failure       json.RawMessage `json:"failure,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// GenerationHandler handles generation-related HTTP requests
type GenerationHandler struct {
	generationService service.GenerationService
	validator         *validator.Validate
}

// NewGenerationHandler creates a new GenerationHandler
func NewGenerationHandler(generationService service.GenerationService) *GenerationHandler {
	return &GenerationHandler{
		generationService: generationService,
		validator:         validator.New(),
	}
}

// CreateGeneration handles POST /api/generations requests
func (h *GenerationHandler) CreateGeneration(w http.ResponseWriter, r *http.Request) {
	var req CreateGenerationRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	correlationID, err := h.generationService.StartGeneration(r.Context(), service.SubmitRequest{
		Email:              req.Email,
		ProductTitle:       req.ProductTitle,
		ProductDescription: req.ProductDescription,
		InputImageURL:      req.InputImageURL,
		ForceNew:           req.ForceNew,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to start generation", err)
		return
	}

	// Processing happens asynchronously; the caller polls the status
	// endpoint with the returned correlation ID.
	shared.RespondWithJSON(w, r, http.StatusAccepted, CreateGenerationResponse{
		CorrelationID: correlationID.String(),
		Status:        string(domain.GenerationStatusPending),
	})
}

// GetGeneration handles GET /api/generations/{correlationID} requests
func (h *GenerationHandler) GetGeneration(w http.ResponseWriter, r *http.Request) {
	correlationID, err := uuid.Parse(chi.URLParam(r, "correlationID"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid correlation ID")
		return
	}

	gen, err := h.generationService.GetStatus(r.Context(), correlationID)
	if err != nil {
		if errors.Is(err, service.ErrGenerationNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Generation not found")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to load generation", err)
		return
	}

	resp := generationToDTOResponse(gen)

	// The generated prompt is surfaced for diagnosis; a missing prompt row
	// never blocks the status poll.
	if gen.PromptID.Valid {
		if prompt, err := h.generationService.GetPrompt(r.Context(), gen.PromptID.UUID); err == nil {
			resp.PromptText = prompt.PromptText
		}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// ListGenerations handles GET /api/generations?email=... requests
func (h *GenerationHandler) ListGenerations(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Missing email query parameter")
		return
	}

	generations, err := h.generationService.ListByEmail(r.Context(), email, 20)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to list generations", err)
		return
	}

	responses := make([]GenerationResponse, 0, len(generations))
	for _, gen := range generations {
		responses = append(responses, generationToDTOResponse(gen))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}

// generationToDTOResponse converts a domain.Generation to a GenerationResponse
func generationToDTOResponse(gen *domain.Generation) GenerationResponse {
	resp := GenerationResponse{
		CorrelationID: gen.CorrelationID.String(),
		Email:         gen.Email,
		ProductTitle:  gen.ProductTitle,
		Status:        string(gen.Status),
		ArtifactURL:   gen.ArtifactURL,
		Failure:       gen.FailureJSON,
		CreatedAt:     gen.CreatedAt,
		UpdatedAt:     gen.UpdatedAt,
	}
	if gen.PromptID.Valid {
		resp.PromptID = gen.PromptID.UUID.String()
	}
	return resp
}
