package gemini

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/template"

	"github.com/reelforge/reelforge-api/internal/config"
	"github.com/reelforge/reelforge-api/internal/generation"
	"google.golang.org/genai"
)

// ErrEmptyProduct is returned when the product input has no title.
var ErrEmptyProduct = errors.New("product title cannot be empty")

//go:embed prompt_template.txt
var defaultPromptTemplate string

// promptData is the data passed to the prompt template.
type promptData struct {
	Title       string
	Description string
	ImageURL    string
}

// Generator implements the generation.PromptGenerator interface using
// Google's Gemini API. It makes exactly one API call per invocation;
// retrying is the caller's concern.
type Generator struct {
	logger         *slog.Logger
	promptTemplate *template.Template
	client         *genai.Client
	model          string
}

// NewGenerator creates a Gemini-backed prompt generator. The prompt
// template is loaded from cfg.PromptTemplatePath when set, otherwise the
// embedded default is used.
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	templateContent := defaultPromptTemplate
	if cfg.PromptTemplatePath != "" {
		raw, err := os.ReadFile(cfg.PromptTemplatePath)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read prompt template from %s: %v",
				generation.ErrInvalidConfig, cfg.PromptTemplatePath, err)
		}
		templateContent = string(raw)
	}

	promptTemplate, err := template.New("video_prompt").Parse(templateContent)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v",
			generation.ErrInvalidConfig, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &Generator{
		logger:         logger.With(slog.String("component", "gemini_generator")),
		promptTemplate: promptTemplate,
		client:         client,
		model:          cfg.ModelName,
	}, nil
}

// Ensure Generator implements generation.PromptGenerator
var _ generation.PromptGenerator = (*Generator)(nil)

// GeneratePrompt implements generation.PromptGenerator.GeneratePrompt
func (g *Generator) GeneratePrompt(ctx context.Context, input generation.ProductInput) (string, error) {
	prompt, err := g.renderTemplate(input)
	if err != nil {
		return "", err
	}

	g.logger.InfoContext(ctx, "calling Gemini API",
		slog.String("model", g.model),
		slog.Int("prompt_length", len(prompt)))

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		// API-level failures are assumed to be temporary; the task layer
		// decides whether and how to retry.
		return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}

	return extractText(resp)
}

// renderTemplate executes the prompt template for the given product.
func (g *Generator) renderTemplate(input generation.ProductInput) (string, error) {
	if input.Title == "" {
		return "", fmt.Errorf("%w: %v", generation.ErrGenerationFailed, ErrEmptyProduct)
	}

	var buf bytes.Buffer
	err := g.promptTemplate.Execute(&buf, promptData{
		Title:       input.Title,
		Description: input.Description,
		ImageURL:    input.ImageURL,
	})
	if err != nil {
		return "", fmt.Errorf("%w: failed to execute prompt template: %v",
			generation.ErrGenerationFailed, err)
	}

	return buf.String(), nil
}

// extractText pulls the generated prompt out of a Gemini response,
// mapping malformed or blocked responses onto the generation sentinels.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: finish reason safety", generation.ErrContentBlocked)
	}
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		text.WriteString(part.Text)
	}

	result := strings.TrimSpace(text.String())
	if result == "" {
		return "", fmt.Errorf("%w: response contained no text", generation.ErrInvalidResponse)
	}
	return result, nil
}
