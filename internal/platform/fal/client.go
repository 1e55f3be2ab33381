package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/reelforge/reelforge-api/internal/config"
	"github.com/reelforge/reelforge-api/internal/generation"
)

// defaultRequestTimeout bounds a single provider call. Video rendering is
// slow; the task-level retry policy handles anything beyond this.
const defaultRequestTimeout = 5 * time.Minute

// Client implements the generation.VideoGenerator interface against a
// hosted video-generation HTTP API. It makes exactly one request per
// invocation; retrying is the caller's concern.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a video-generation client from the provider config.
func NewClient(cfg config.VideoConfig, logger *slog.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: video endpoint cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: video API key cannot be empty", generation.ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		logger:     logger.With(slog.String("component", "video_client")),
	}, nil
}

// Ensure Client implements generation.VideoGenerator
var _ generation.VideoGenerator = (*Client)(nil)

// generateRequest is the provider request body.
type generateRequest struct {
	Prompt   string `json:"prompt"`
	ImageURL string `json:"image_url"`
}

// generateResponse is the provider response body.
type generateResponse struct {
	VideoURL string `json:"video_url"`
}

// GenerateVideo implements generation.VideoGenerator.GenerateVideo
func (c *Client) GenerateVideo(ctx context.Context, imageURL, promptText string) (string, error) {
	body, err := json.Marshal(generateRequest{Prompt: promptText, ImageURL: imageURL})
	if err != nil {
		return "", fmt.Errorf("%w: failed to encode request: %v", generation.ErrGenerationFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint+"/video/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: failed to build request: %v", generation.ErrGenerationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Key "+c.apiKey)

	c.logger.InfoContext(ctx, "calling video-generation API",
		slog.String("image_url", imageURL),
		slog.Int("prompt_length", len(promptText)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp)
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", generation.ErrInvalidResponse, err)
	}
	if decoded.VideoURL == "" {
		return "", fmt.Errorf("%w: response missing video URL", generation.ErrInvalidResponse)
	}

	return decoded.VideoURL, nil
}

// classifyStatus maps a non-200 provider status onto the generation
// sentinels: overload and server errors are temporary, anything else the
// provider rejected outright.
func classifyStatus(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	if resp.StatusCode == http.StatusTooManyRequests ||
		resp.StatusCode == http.StatusRequestTimeout ||
		resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: provider returned %d: %s",
			generation.ErrTransientFailure, resp.StatusCode, snippet)
	}

	return fmt.Errorf("%w: provider rejected request with %d: %s",
		generation.ErrInvalidResponse, resp.StatusCode, snippet)
}
