package pipeline

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/reelforge/reelforge-api/internal/generation"
	"github.com/reelforge/reelforge-api/internal/store"
	"github.com/reelforge/reelforge-api/internal/task"
)

// Deps bundles everything the pipeline stages need. One value wires all
// four jobs into a registry.
type Deps struct {
	Generations    store.GenerationStore
	Prompts        store.PromptStore
	State          store.StateStore
	PromptProvider generation.PromptGenerator
	VideoProvider  generation.VideoGenerator
	Scheduler      *Scheduler
	Tx             store.Transactor
	StateTTL       time.Duration
	ModelName      string
	Logger         *slog.Logger
}

// RegisterJobs registers the four pipeline stages with the job registry.
// After this call any stage, including the recovery path, can be built
// from a job name and a serialized payload alone.
func RegisterJobs(registry *task.Registry, deps Deps) error {
	factories := map[string]task.Factory{
		JobOrchestrate: func(raw json.RawMessage) (task.Task, error) {
			return NewOrchestratorTask(raw, deps.Generations, deps.State, deps.Scheduler, deps.StateTTL, deps.Logger)
		},
		JobPromptGeneration: func(raw json.RawMessage) (task.Task, error) {
			return NewPromptGenerationTask(raw, deps.Generations, deps.Prompts, deps.State,
				deps.PromptProvider, deps.Scheduler, deps.Tx, deps.ModelName, deps.Logger)
		},
		JobVideoContinuation: func(raw json.RawMessage) (task.Task, error) {
			return NewVideoContinuationTask(raw, deps.State, deps.Scheduler, deps.Logger)
		},
		JobVideoGeneration: func(raw json.RawMessage) (task.Task, error) {
			return NewVideoGenerationTask(raw, deps.Generations, deps.State, deps.VideoProvider, deps.Logger)
		},
	}

	for name, factory := range factories {
		if err := registry.Register(name, factory); err != nil {
			return fmt.Errorf("failed to register job %s: %w", name, err)
		}
	}
	return nil
}
