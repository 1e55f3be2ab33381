package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/reelforge/reelforge-api/internal/domain"
	"github.com/reelforge/reelforge-api/internal/generation"
	"github.com/reelforge/reelforge-api/internal/store"
	"github.com/reelforge/reelforge-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// videoStageEnv seeds a run in prompt_ready state with parked state, the
// way the continuation leaves things.
type videoStageEnv struct {
	generations   *memGenerationStore
	state         *memStateStore
	provider      *mockVideoProvider
	correlationID uuid.UUID
}

func newVideoStageEnv(t *testing.T) *videoStageEnv {
	t.Helper()

	env := &videoStageEnv{
		generations:   newMemGenerationStore(),
		state:         newMemStateStore(),
		provider:      &mockVideoProvider{url: "https://videos.example.com/lamp.mp4"},
		correlationID: uuid.New(),
	}

	gen, err := domain.NewGeneration(env.correlationID,
		"shopper@example.com", "Walnut Desk Lamp",
		"A warm, dimmable lamp with a solid walnut base.",
		"https://cdn.example.com/lamp.jpg")
	require.NoError(t, err)
	require.NoError(t, env.generations.Create(context.Background(), gen))

	parked := submissionPayload(t, env.correlationID, nil)
	require.NoError(t, env.state.Put(context.Background(), env.correlationID, parked, time.Hour))

	return env
}

func (env *videoStageEnv) buildTask(t *testing.T, extra Payload) *VideoGenerationTask {
	t.Helper()

	p := Payload{
		KeyCorrelationID: env.correlationID.String(),
		KeyEmail:         "shopper@example.com",
		KeyProductTitle:  "Walnut Desk Lamp",
		KeyPromptText:    "Cinematic pan across a walnut desk lamp.",
		KeyInputImageURL: "https://cdn.example.com/lamp.jpg",
	}.Merge(extra)
	raw, err := p.JSON()
	require.NoError(t, err)

	stage, err := NewVideoGenerationTask(raw,
		env.generations, env.state, env.provider, testLogger())
	require.NoError(t, err)
	return stage
}

func TestVideoGenerationTask(t *testing.T) {
	t.Parallel()

	t.Run("renders, completes the run, and cleans up state", func(t *testing.T) {
		t.Parallel()

		env := newVideoStageEnv(t)
		stage := env.buildTask(t, nil)

		require.NoError(t, stage.Execute(context.Background()))

		gen, err := env.generations.GetByCorrelationID(context.Background(), env.correlationID)
		require.NoError(t, err)
		assert.Equal(t, domain.GenerationStatusCompleted, gen.Status)
		assert.Equal(t, "https://videos.example.com/lamp.mp4", gen.ArtifactURL)

		_, err = env.state.Get(context.Background(), env.correlationID)
		assert.ErrorIs(t, err, store.ErrStateNotFound)
	})

	t.Run("missing prompt text is permanent invalid_input", func(t *testing.T) {
		t.Parallel()

		env := newVideoStageEnv(t)
		stage := env.buildTask(t, Payload{KeyPromptText: ""})

		err := stage.Execute(context.Background())
		require.Error(t, err)
		code, permanent := task.Classify(err)
		assert.Equal(t, task.CodeInvalidInput, code)
		assert.True(t, permanent)
	})

	t.Run("missing product metadata is permanent invalid_input", func(t *testing.T) {
		t.Parallel()

		// A payload carrying only the prompt and image never went through
		// the continuation's enrichment; the stage must refuse it instead
		// of rendering.
		env := newVideoStageEnv(t)
		stage := env.buildTask(t, Payload{KeyProductTitle: "", KeyEmail: ""})

		err := stage.Execute(context.Background())
		require.Error(t, err)
		code, permanent := task.Classify(err)
		assert.Equal(t, task.CodeInvalidInput, code)
		assert.True(t, permanent)
		assert.Equal(t, 0, env.provider.callCount())

		gen, getErr := env.generations.GetByCorrelationID(context.Background(), env.correlationID)
		require.NoError(t, getErr)
		assert.NotEqual(t, domain.GenerationStatusCompleted, gen.Status)
	})

	t.Run("provider outage is transient provider_error", func(t *testing.T) {
		t.Parallel()

		env := newVideoStageEnv(t)
		env.provider.err = generation.ErrTransientFailure
		stage := env.buildTask(t, nil)

		err := stage.Execute(context.Background())
		require.Error(t, err)
		code, permanent := task.Classify(err)
		assert.Equal(t, task.CodeProviderError, code)
		assert.False(t, permanent)

		// The run is still in flight; nothing terminal was recorded.
		gen, getErr := env.generations.GetByCorrelationID(context.Background(), env.correlationID)
		require.NoError(t, getErr)
		assert.Equal(t, domain.GenerationStatusVideoGenerating, gen.Status)
	})

	t.Run("provider rejection is permanent provider_error", func(t *testing.T) {
		t.Parallel()

		env := newVideoStageEnv(t)
		env.provider.err = generation.ErrInvalidResponse
		stage := env.buildTask(t, nil)

		err := stage.Execute(context.Background())
		require.Error(t, err)
		code, permanent := task.Classify(err)
		assert.Equal(t, task.CodeProviderError, code)
		assert.True(t, permanent)
	})

	t.Run("completion after a terminal state is a no-op", func(t *testing.T) {
		t.Parallel()

		env := newVideoStageEnv(t)
		require.NoError(t, env.generations.MarkFailed(context.Background(),
			env.correlationID, []byte(`{"status":"error"}`)))

		stage := env.buildTask(t, nil)
		require.NoError(t, stage.Execute(context.Background()))

		gen, err := env.generations.GetByCorrelationID(context.Background(), env.correlationID)
		require.NoError(t, err)
		assert.Equal(t, domain.GenerationStatusFailed, gen.Status)
		assert.Empty(t, gen.ArtifactURL)
	})
}
