package task

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockFailureRecorder records MarkFailed calls.
type mockFailureRecorder struct {
	mu       sync.Mutex
	failures map[uuid.UUID][]byte
}

func newMockFailureRecorder() *mockFailureRecorder {
	return &mockFailureRecorder{failures: make(map[uuid.UUID][]byte)}
}

func (r *mockFailureRecorder) MarkFailed(ctx context.Context, correlationID uuid.UUID, failure []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[correlationID] = failure
	return nil
}

func (r *mockFailureRecorder) failureFor(correlationID uuid.UUID) (FailureResponse, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, ok := r.failures[correlationID]
	if !ok {
		return FailureResponse{}, false
	}
	var resp FailureResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return FailureResponse{}, false
	}
	return resp, true
}

func retryTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// fastPolicy keeps test backoff delays negligible.
func fastPolicy(maxRetries uint64) RetryPolicy {
	return RetryPolicy{MaxRetries: maxRetries, BaseDelay: time.Millisecond}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	t.Run("transient error", func(t *testing.T) {
		t.Parallel()

		code, permanent := Classify(Transient(CodeProviderError, errors.New("timeout")))
		assert.Equal(t, CodeProviderError, code)
		assert.False(t, permanent)
	})

	t.Run("permanent error", func(t *testing.T) {
		t.Parallel()

		code, permanent := Classify(Permanent(CodeStateExpired, errors.New("state gone")))
		assert.Equal(t, CodeStateExpired, code)
		assert.True(t, permanent)
	})

	t.Run("unclassified errors default to transient", func(t *testing.T) {
		t.Parallel()

		code, permanent := Classify(errors.New("something broke"))
		assert.Equal(t, CodeInternal, code)
		assert.False(t, permanent)
	})

	t.Run("classification survives wrapping", func(t *testing.T) {
		t.Parallel()

		wrapped := errors.Join(errors.New("outer"), Permanent(CodeInvalidInput, errors.New("bad field")))
		code, permanent := Classify(wrapped)
		assert.Equal(t, CodeInvalidInput, code)
		assert.True(t, permanent)
	})
}

func TestWithRetryTransientFailures(t *testing.T) {
	t.Parallel()

	t.Run("retries until success", func(t *testing.T) {
		t.Parallel()

		attempts := 0
		inner := NewMockTask("pipeline.prompt_generation")
		inner.ExecuteFunc = func(ctx context.Context) error {
			attempts++
			if attempts < 3 {
				return Transient(CodeProviderError, errors.New("rate limited"))
			}
			return nil
		}

		wrapped := WithRetry(inner, fastPolicy(3), newMockFailureRecorder(), retryTestLogger())
		require.NoError(t, wrapped.Execute(context.Background()))
		assert.Equal(t, 3, attempts)
	})

	t.Run("max_retries=3 yields exactly 4 attempts", func(t *testing.T) {
		t.Parallel()

		inner := NewMockTask("pipeline.video_generation")
		inner.Correlation = uuid.New()
		inner.ExecuteFunc = func(ctx context.Context) error {
			return Transient(CodeProviderError, errors.New("provider down"))
		}

		recorder := newMockFailureRecorder()
		wrapped := WithRetry(inner, fastPolicy(3), recorder, retryTestLogger())

		err := wrapped.Execute(context.Background())
		require.Error(t, err)
		assert.Equal(t, 4, inner.ExecuteCalls())

		failure, ok := recorder.failureFor(inner.Correlation)
		require.True(t, ok)
		assert.Equal(t, "error", failure.Status)
		assert.Equal(t, CodeRetriesExhausted, failure.ErrorKind)
		assert.Equal(t, "pipeline.video_generation", failure.Job)
		assert.Equal(t, inner.Correlation.String(), failure.CorrelationID)
	})
}

func TestWithRetryPermanentFailures(t *testing.T) {
	t.Parallel()

	t.Run("permanent error is not retried", func(t *testing.T) {
		t.Parallel()

		inner := NewMockTask("pipeline.video_continuation")
		inner.Correlation = uuid.New()
		inner.ExecuteFunc = func(ctx context.Context) error {
			return Permanent(CodeStateExpired, errors.New("original request data not found"))
		}

		recorder := newMockFailureRecorder()
		wrapped := WithRetry(inner, fastPolicy(3), recorder, retryTestLogger())

		err := wrapped.Execute(context.Background())
		require.Error(t, err)
		assert.Equal(t, 1, inner.ExecuteCalls())

		failure, ok := recorder.failureFor(inner.Correlation)
		require.True(t, ok)
		assert.Equal(t, CodeStateExpired, failure.ErrorKind)
	})

	t.Run("no recorder call without correlation id", func(t *testing.T) {
		t.Parallel()

		inner := NewMockTask("pipeline.orchestrate")
		inner.ExecuteFunc = func(ctx context.Context) error {
			return Permanent(CodeInvalidInput, errors.New("missing email"))
		}

		recorder := newMockFailureRecorder()
		wrapped := WithRetry(inner, fastPolicy(3), recorder, retryTestLogger())

		require.Error(t, wrapped.Execute(context.Background()))
		_, ok := recorder.failureFor(uuid.Nil)
		assert.False(t, ok)
	})
}

func TestWithRetryIdempotentReinvocation(t *testing.T) {
	t.Parallel()

	// A wrapped task that succeeded once can be executed again (e.g. a
	// recovered duplicate) and still succeeds with the same end state.
	inner := NewMockTask("pipeline.orchestrate")
	wrapped := WithRetry(inner, fastPolicy(3), newMockFailureRecorder(), retryTestLogger())

	require.NoError(t, wrapped.Execute(context.Background()))
	require.NoError(t, wrapped.Execute(context.Background()))
	assert.Equal(t, 2, inner.ExecuteCalls())
}

func TestNewFailureResponse(t *testing.T) {
	t.Parallel()

	correlationID := uuid.New()
	resp := NewFailureResponse("pipeline.prompt_generation", correlationID, CodeStateExpired, errors.New("gone"))

	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, CodeStateExpired, resp.ErrorKind)
	assert.Equal(t, "gone", resp.Message)
	assert.Equal(t, "pipeline.prompt_generation", resp.Job)
	assert.Equal(t, correlationID.String(), resp.CorrelationID)
}
