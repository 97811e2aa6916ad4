package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task is one periodic purge. Run returns the number of rows affected.
type Task struct {
	Name string
	Run  func(ctx context.Context) (int64, error)
}

// CleanupManager periodically expires sessions and purges spent codes and old login attempts
type CleanupManager struct {
	tasks    []Task
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(tasks []Task, logger *slog.Logger, interval time.Duration) *CleanupManager {
	return &CleanupManager{
		tasks:    tasks,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs every task immediately and then once per interval until
// Stop is called or ctx is cancelled.
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	cm.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			cm.RunOnce(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// RunOnce runs each task once. A failing task does not stop the others.
func (cm *CleanupManager) RunOnce(ctx context.Context) {
	for _, task := range cm.tasks {
		cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		rows, err := task.Run(cleanupCtx)
		cancel()

		if err != nil {
			cm.logger.Error("cleanup task failed",
				slog.String("task", task.Name),
				slog.Any("error", err))
			continue
		}
		if rows > 0 {
			cm.logger.Info("cleanup task completed",
				slog.String("task", task.Name),
				slog.Int64("rows", rows))
		}
	}
}

// Stop signals the cleanup manager to stop. It is safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
