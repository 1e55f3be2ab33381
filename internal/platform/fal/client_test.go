package fal

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/reelforge/reelforge-api/internal/config"
	"github.com/reelforge/reelforge-api/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(config.VideoConfig{
		Endpoint: server.URL,
		APIKey:   "test-key",
	}, testLogger())
	require.NoError(t, err)
	return client
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	t.Run("missing endpoint fails", func(t *testing.T) {
		t.Parallel()

		_, err := NewClient(config.VideoConfig{APIKey: "k"}, testLogger())
		assert.ErrorIs(t, err, generation.ErrInvalidConfig)
	})

	t.Run("missing API key fails", func(t *testing.T) {
		t.Parallel()

		_, err := NewClient(config.VideoConfig{Endpoint: "https://fal.example.com"}, testLogger())
		assert.ErrorIs(t, err, generation.ErrInvalidConfig)
	})
}

func TestGenerateVideo(t *testing.T) {
	t.Parallel()

	t.Run("successful render returns artifact URL", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/video/generate", r.URL.Path)
			assert.Equal(t, "Key test-key", r.Header.Get("Authorization"))

			var req generateRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "A slow pan over the lamp.", req.Prompt)
			assert.Equal(t, "https://cdn.example.com/lamp.jpg", req.ImageURL)

			_ = json.NewEncoder(w).Encode(generateResponse{
				VideoURL: "https://videos.example.com/lamp.mp4",
			})
		})

		url, err := client.GenerateVideo(context.Background(),
			"https://cdn.example.com/lamp.jpg", "A slow pan over the lamp.")
		require.NoError(t, err)
		assert.Equal(t, "https://videos.example.com/lamp.mp4", url)
	})

	t.Run("server error is transient", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream exploded", http.StatusBadGateway)
		})

		_, err := client.GenerateVideo(context.Background(), "img", "prompt")
		assert.ErrorIs(t, err, generation.ErrTransientFailure)
	})

	t.Run("rate limit is transient", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "slow down", http.StatusTooManyRequests)
		})

		_, err := client.GenerateVideo(context.Background(), "img", "prompt")
		assert.ErrorIs(t, err, generation.ErrTransientFailure)
	})

	t.Run("rejection is permanent", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad prompt", http.StatusBadRequest)
		})

		_, err := client.GenerateVideo(context.Background(), "img", "prompt")
		assert.ErrorIs(t, err, generation.ErrInvalidResponse)
	})

	t.Run("malformed body is invalid response", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		})

		_, err := client.GenerateVideo(context.Background(), "img", "prompt")
		assert.ErrorIs(t, err, generation.ErrInvalidResponse)
	})

	t.Run("missing video URL is invalid response", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		})

		_, err := client.GenerateVideo(context.Background(), "img", "prompt")
		assert.ErrorIs(t, err, generation.ErrInvalidResponse)
	})

	t.Run("unreachable endpoint is transient", func(t *testing.T) {
		t.Parallel()

		client, err := NewClient(config.VideoConfig{
			Endpoint: "http://127.0.0.1:1",
			APIKey:   "test-key",
		}, testLogger())
		require.NoError(t, err)

		_, err = client.GenerateVideo(context.Background(), "img", "prompt")
		assert.ErrorIs(t, err, generation.ErrTransientFailure)
	})
}

func TestMockGenerator(t *testing.T) {
	t.Parallel()

	mock := NewMockGenerator(testLogger())

	first, err := mock.GenerateVideo(context.Background(), "img", "prompt")
	require.NoError(t, err)
	assert.Contains(t, first, "https://videos.example.com/mock/")

	// Deterministic for identical inputs, distinct otherwise.
	second, err := mock.GenerateVideo(context.Background(), "img", "prompt")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := mock.GenerateVideo(context.Background(), "img", "different prompt")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}
