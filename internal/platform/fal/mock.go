package fal

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/reelforge/reelforge-api/internal/generation"
)

// MockGenerator is a stand-in video provider for environments without
// provider access. It fabricates a deterministic artifact URL from its
// inputs, so repeat runs of the same product yield the same URL.
type MockGenerator struct {
	logger *slog.Logger
}

// NewMockGenerator creates a mock video provider.
func NewMockGenerator(logger *slog.Logger) *MockGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &MockGenerator{
		logger: logger.With(slog.String("component", "mock_video_generator")),
	}
}

// Ensure MockGenerator implements generation.VideoGenerator
var _ generation.VideoGenerator = (*MockGenerator)(nil)

// GenerateVideo implements generation.VideoGenerator.GenerateVideo
func (m *MockGenerator) GenerateVideo(ctx context.Context, imageURL, promptText string) (string, error) {
	sum := sha256.Sum256([]byte(imageURL + "\n" + promptText))
	url := fmt.Sprintf("https://videos.example.com/mock/%s.mp4", hex.EncodeToString(sum[:8]))

	m.logger.InfoContext(ctx, "mock video generated", slog.String("artifact_url", url))
	return url, nil
}
