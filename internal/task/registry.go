package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/reelforge/reelforge-api/internal/events"
)

// Common errors returned by the registry and dispatcher.
var (
	ErrJobNotRegistered = errors.New("job name not registered")
	ErrDuplicateJobName = errors.New("job name already registered")
	ErrNilFactory       = errors.New("job factory cannot be nil")
	ErrEmptyJobName     = errors.New("job name cannot be empty")
)

// Factory builds an executable task for a job from its serialized
// arguments. Factories are registered under a job name and resolved at
// call time, never at load time, so stages schedule successors without
// importing them.
type Factory func(payload json.RawMessage) (Task, error)

// Registry maps job names to task factories. It is the callback
// registration mechanism of the pipeline: producers address successors by
// name through the event bus and the registry resolves the name when the
// event is dispatched.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	policy    RetryPolicy
	recorder  FailureRecorder
	logger    *slog.Logger
}

// NewRegistry creates an empty job registry. Every task it builds is
// wrapped with the given retry policy and failure recorder, which keeps
// the failure handling uniform across all jobs.
func NewRegistry(policy RetryPolicy, recorder FailureRecorder, logger *slog.Logger) *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		policy:    policy,
		recorder:  recorder,
		logger:    logger.With("component", "job_registry"),
	}
}

// Register adds a factory under the given job name. Registering the same
// name twice is a programming error and fails loudly.
func (r *Registry) Register(jobName string, factory Factory) error {
	if jobName == "" {
		return ErrEmptyJobName
	}
	if factory == nil {
		return ErrNilFactory
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[jobName]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateJobName, jobName)
	}
	r.factories[jobName] = factory
	r.logger.Debug("registered job", "job", jobName)
	return nil
}

// Revive constructs a ready-to-run task for the named job, wrapped with
// the uniform retry policy. Implements the Reviver interface used by the
// runner's crash recovery.
func (r *Registry) Revive(jobName string, payload []byte) (Task, error) {
	r.mu.RLock()
	factory, ok := r.factories[jobName]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotRegistered, jobName)
	}

	t, err := factory(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to build task for job %s: %w", jobName, err)
	}

	return WithRetry(t, r.policy, r.recorder, r.logger), nil
}

// TaskSubmitter accepts built tasks for execution. Implemented by the
// TaskRunner.
type TaskSubmitter interface {
	Submit(ctx context.Context, task Task) error
}

// Dispatcher consumes JobRequestEvents from the event bus, resolves the
// job name through the registry, and submits the built task to the
// runner. It is the glue between schedule-by-name and actual execution.
type Dispatcher struct {
	registry  *Registry
	submitter TaskSubmitter
	logger    *slog.Logger
}

// NewDispatcher creates a dispatcher over the given registry and submitter.
func NewDispatcher(registry *Registry, submitter TaskSubmitter, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		registry:  registry,
		submitter: submitter,
		logger:    logger.With("component", "job_dispatcher"),
	}
}

// HandleEvent processes a job request by building and submitting the
// named job. An unregistered name is an error: a producer scheduled a
// successor that nothing provides.
func (d *Dispatcher) HandleEvent(ctx context.Context, event *events.JobRequestEvent) error {
	t, err := d.registry.Revive(event.Job, event.Payload)
	if err != nil {
		d.logger.Error("failed to build job from event",
			"error", err,
			"job", event.Job,
			"event_id", event.ID)
		return err
	}

	if err := d.submitter.Submit(ctx, t); err != nil {
		d.logger.Error("failed to submit job",
			"error", err,
			"job", event.Job,
			"task_id", t.ID(),
			"event_id", event.ID)
		return fmt.Errorf("failed to submit job %s: %w", event.Job, err)
	}

	d.logger.Info("job scheduled",
		"job", event.Job,
		"task_id", t.ID(),
		"event_id", event.ID)
	return nil
}

// Ensure interface conformance.
var (
	_ events.EventHandler = (*Dispatcher)(nil)
	_ Reviver             = (*Registry)(nil)
)
