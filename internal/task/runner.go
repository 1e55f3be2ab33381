package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// StuckTaskAge defines how long a task can be in processing state
	// before it's considered stuck and reset
	StuckTaskAge time.Duration

	// MonitorInterval defines how often the maintenance loop checks for
	// stuck tasks and purges expired pipeline state. Defaults to 5 minutes.
	MonitorInterval time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:     2,
		QueueSize:       100,
		StuckTaskAge:    30 * time.Minute,
		MonitorInterval: 5 * time.Minute,
	}
}

// TaskRunner manages background task processing: a worker pool consuming
// a buffered queue, durable task rows for crash recovery, and a
// maintenance loop for stuck tasks and expired state.
type TaskRunner struct {
	store      TaskStore
	reviver    Reviver
	purger     StatePurger
	taskChan   chan Task
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     TaskRunnerConfig
	logger     *slog.Logger
}

// NewTaskRunner creates a new TaskRunner. The reviver rebuilds executable
// tasks from persisted rows during recovery; the purger may be nil when no
// state store maintenance is wanted.
func NewTaskRunner(
	store TaskStore,
	reviver Reviver,
	purger StatePurger,
	config TaskRunnerConfig,
	logger *slog.Logger,
) *TaskRunner {
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultTaskRunnerConfig().WorkerCount
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultTaskRunnerConfig().QueueSize
	}
	if config.MonitorInterval == 0 {
		config.MonitorInterval = DefaultTaskRunnerConfig().MonitorInterval
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &TaskRunner{
		store:      store,
		reviver:    reviver,
		purger:     purger,
		taskChan:   make(chan Task, config.QueueSize),
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     logger.With("component", "task_runner"),
	}
}

// Submit persists and enqueues a new task. The durable row is written
// first so a crash between save and execution is recoverable.
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	if err := r.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	select {
	case r.taskChan <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full, try again later")
	}
}

// Start recovers unfinished tasks and launches the worker pool and
// maintenance monitor.
func (r *TaskRunner) Start() error {
	if err := r.Recover(); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.wg.Add(1)
	go r.monitor()

	return nil
}

// Stop gracefully shuts down the task runner.
func (r *TaskRunner) Stop() {
	r.cancelFunc()
	r.wg.Wait()
	close(r.taskChan)
}

// Recover rebuilds and requeues tasks left unfinished by a previous run:
// pending rows are requeued directly, processing rows (interrupted by a
// crash) are reset to pending first.
func (r *TaskRunner) Recover() error {
	ctx := context.Background()

	pending, err := r.store.GetPendingTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}

	processing, err := r.store.GetProcessingTasks(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing tasks: %w", err)
	}

	r.logger.Info("recovering unfinished tasks",
		"pending_count", len(pending),
		"processing_count", len(processing))

	for _, record := range pending {
		r.requeueRecord(ctx, record)
	}

	for _, record := range processing {
		if err := r.store.UpdateTaskStatus(ctx, record.ID, TaskStatusPending, "Reset after recovery"); err != nil {
			r.logger.Error("failed to reset processing task status",
				"task_id", record.ID,
				"job", record.Job,
				"error", err)
			continue
		}
		r.requeueRecord(ctx, record)
	}

	return nil
}

// requeueRecord turns a persisted row back into an executable task and
// enqueues it under its original ID.
func (r *TaskRunner) requeueRecord(ctx context.Context, record TaskRecord) {
	t, err := r.reviver.Revive(record.Job, record.Payload)
	if err != nil {
		r.logger.Error("failed to revive task, marking failed",
			"task_id", record.ID,
			"job", record.Job,
			"error", err)
		if updateErr := r.store.UpdateTaskStatus(ctx, record.ID, TaskStatusFailed, err.Error()); updateErr != nil {
			r.logger.Error("failed to mark unrevivable task failed",
				"task_id", record.ID,
				"error", updateErr)
		}
		return
	}

	revived := &revivedTask{Task: t, id: record.ID}
	select {
	case r.taskChan <- revived:
	default:
		r.logger.Error("failed to requeue task, queue is full",
			"task_id", record.ID,
			"job", record.Job)
	}
}

// revivedTask carries the original persisted task ID so status updates
// land on the existing row instead of orphaning it.
type revivedTask struct {
	Task
	id uuid.UUID
}

func (t *revivedTask) ID() uuid.UUID {
	return t.id
}

// worker processes tasks from the queue
func (r *TaskRunner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", "worker_id", id)
			return

		case task, ok := <-r.taskChan:
			if !ok {
				r.logger.Debug("task channel closed, stopping worker", "worker_id", id)
				return
			}
			r.processTask(task, id)
		}
	}
}

// processTask handles execution of a single task
func (r *TaskRunner) processTask(task Task, workerID int) {
	ctx := context.Background()
	logger := r.logger.With(
		"task_id", task.ID(),
		"job", task.Type(),
		"worker_id", workerID,
	)

	if err := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusProcessing, ""); err != nil {
		logger.Error("failed to update task status to processing", "error", err)
		return
	}

	logger.Info("processing task")

	err := task.Execute(ctx)
	if err != nil {
		logger.Error("task execution failed", "error", err)
		if updateErr := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusFailed, err.Error()); updateErr != nil {
			logger.Error("failed to update task status to failed", "error", updateErr)
		}
		return
	}

	logger.Info("task completed successfully")
	if updateErr := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusCompleted, ""); updateErr != nil {
		logger.Error("failed to update task status to completed", "error", updateErr)
	}
}

// monitor periodically resets tasks stuck in the processing state and
// purges expired pipeline state entries.
func (r *TaskRunner) monitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return

		case <-ticker.C:
			ctx := context.Background()
			r.resetStuckTasks(ctx)
			r.purgeExpiredState(ctx)
		}
	}
}

// resetStuckTasks finds tasks that have been processing for longer than
// StuckTaskAge and requeues them.
func (r *TaskRunner) resetStuckTasks(ctx context.Context) {
	if r.config.StuckTaskAge <= 0 {
		return
	}

	stuck, err := r.store.GetProcessingTasks(ctx, r.config.StuckTaskAge)
	if err != nil {
		r.logger.Error("failed to check for stuck tasks", "error", err)
		return
	}
	if len(stuck) == 0 {
		return
	}

	r.logger.Info("found stuck tasks", "count", len(stuck))
	for _, record := range stuck {
		if err := r.store.UpdateTaskStatus(ctx, record.ID, TaskStatusPending,
			"Reset after being stuck in processing state"); err != nil {
			r.logger.Error("failed to reset stuck task status",
				"task_id", record.ID,
				"job", record.Job,
				"error", err)
			continue
		}
		r.requeueRecord(ctx, record)
	}
}

// purgeExpiredState removes dead shared-state rows when a purger is wired.
func (r *TaskRunner) purgeExpiredState(ctx context.Context) {
	if r.purger == nil {
		return
	}

	purged, err := r.purger.PurgeExpired(ctx)
	if err != nil {
		r.logger.Error("failed to purge expired pipeline state", "error", err)
		return
	}
	if purged > 0 {
		r.logger.Info("purged expired pipeline state entries", "count", purged)
	}
}
