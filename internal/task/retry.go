package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

// Failure codes carried in the standardized failure response. Job units
// pick a code when classifying an error; unclassified errors fall back to
// CodeInternal.
const (
	CodeInvalidInput     = "invalid_input"
	CodeStateExpired     = "state_expired"
	CodeProviderError    = "provider_error"
	CodeSchedulingError  = "scheduling_error"
	CodeRetriesExhausted = "retries_exhausted"
	CodeInternal         = "internal"
)

// JobError classifies a job failure as permanent or transient and tags it
// with a machine-readable code. The retry wrapper is the only consumer of
// the classification; job units never retry on their own.
type JobError struct {
	Code      string
	Permanent bool
	Err       error
}

// Error implements the error interface.
func (e *JobError) Error() string {
	kind := "transient"
	if e.Permanent {
		kind = "permanent"
	}
	return fmt.Sprintf("%s job error (%s): %v", kind, e.Code, e.Err)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *JobError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a retry-eligible failure with the given code.
func Transient(code string, err error) error {
	return &JobError{Code: code, Permanent: false, Err: err}
}

// Permanent wraps err as an immediately-terminal failure with the given code.
func Permanent(code string, err error) error {
	return &JobError{Code: code, Permanent: true, Err: err}
}

// Classify extracts the failure code and permanence of an error.
// Unclassified errors are treated as transient, per the pipeline's error
// policy: only failures a stage explicitly marks permanent skip retries.
func Classify(err error) (code string, permanent bool) {
	var jobErr *JobError
	if errors.As(err, &jobErr) {
		return jobErr.Code, jobErr.Permanent
	}
	return CodeInternal, false
}

// FailureResponse is the standardized failure payload stored on the
// domain record and returned by the status surface for a failed run.
type FailureResponse struct {
	Status        string `json:"status"`
	ErrorKind     string `json:"error_kind"`
	Message       string `json:"message"`
	Job           string `json:"job"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// NewFailureResponse builds the failure payload for a terminal job error.
func NewFailureResponse(jobName string, correlationID uuid.UUID, errorKind string, err error) FailureResponse {
	resp := FailureResponse{
		Status:    "error",
		ErrorKind: errorKind,
		Message:   err.Error(),
		Job:       jobName,
	}
	if correlationID != uuid.Nil {
		resp.CorrelationID = correlationID.String()
	}
	return resp
}

// FailureRecorder marks a pipeline run failed with its serialized failure
// response. Implemented by the generation store.
type FailureRecorder interface {
	MarkFailed(ctx context.Context, correlationID uuid.UUID, failure []byte) error
}

// RetryPolicy configures the centralized retry behavior applied to every
// job. MaxRetries bounds retry attempts beyond the first execution, so a
// job runs at most MaxRetries+1 times.
type RetryPolicy struct {
	MaxRetries uint64
	BaseDelay  time.Duration
}

// DefaultRetryPolicy returns the policy applied when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
	}
}

// retryableTask decorates a Task with the uniform failure policy:
// transient errors are retried with exponential backoff and jitter up to
// the policy ceiling; permanent errors and exhausted retries become a
// standardized failure recorded against the run.
type retryableTask struct {
	Task
	policy   RetryPolicy
	recorder FailureRecorder
	logger   *slog.Logger
}

// WithRetry wraps the given task with the centralized retry and failure
// policy. This is the single point where retry behavior is defined; it is
// applied to every job the dispatcher builds.
func WithRetry(t Task, policy RetryPolicy, recorder FailureRecorder, logger *slog.Logger) Task {
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = DefaultRetryPolicy().BaseDelay
	}
	return &retryableTask{
		Task:     t,
		policy:   policy,
		recorder: recorder,
		logger:   logger.With("component", "retry_wrapper", "job", t.Type()),
	}
}

// Execute runs the wrapped task under the retry policy.
func (t *retryableTask) Execute(ctx context.Context) error {
	backoff := retry.WithMaxRetries(t.policy.MaxRetries,
		retry.WithJitterPercent(20, retry.NewExponential(t.policy.BaseDelay)))

	attempts := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		execErr := t.Task.Execute(ctx)
		if execErr == nil {
			return nil
		}

		code, permanent := Classify(execErr)
		if permanent {
			return execErr
		}

		t.logger.Warn("job attempt failed with transient error, will retry",
			"task_id", t.ID(),
			"attempt", attempts,
			"max_attempts", t.policy.MaxRetries+1,
			"code", code,
			"error", execErr)
		return retry.RetryableError(execErr)
	})

	if err == nil {
		return nil
	}

	// Terminal failure: either a permanent error or retries ran out.
	code, permanent := Classify(err)
	errorKind := code
	if !permanent {
		errorKind = CodeRetriesExhausted
	}

	correlationID := uuid.Nil
	if correlated, ok := t.Task.(CorrelatedTask); ok {
		correlationID = correlated.CorrelationID()
	}

	t.logger.Error("job failed terminally",
		"task_id", t.ID(),
		"attempts", attempts,
		"error_kind", errorKind,
		"correlation_id", correlationID,
		"args_summary", summarizePayload(t.Payload()),
		"error", err)

	t.recordFailure(ctx, correlationID, errorKind, err)

	return err
}

// recordFailure stores the standardized failure response on the run's
// domain record so the status surface can report it.
func (t *retryableTask) recordFailure(ctx context.Context, correlationID uuid.UUID, errorKind string, err error) {
	if t.recorder == nil || correlationID == uuid.Nil {
		return
	}

	failure := NewFailureResponse(t.Type(), correlationID, errorKind, err)
	failureJSON, marshalErr := json.Marshal(failure)
	if marshalErr != nil {
		t.logger.Error("failed to marshal failure response",
			"correlation_id", correlationID,
			"error", marshalErr)
		return
	}

	if markErr := t.recorder.MarkFailed(ctx, correlationID, failureJSON); markErr != nil {
		t.logger.Error("failed to mark run as failed",
			"correlation_id", correlationID,
			"error", markErr)
	}
}

// summarizePayload renders a short, log-safe view of the task arguments.
func summarizePayload(payload []byte) string {
	const maxLen = 256
	if len(payload) > maxLen {
		return string(payload[:maxLen]) + "...(truncated)"
	}
	return string(payload)
}
