// Package jobs defines background tasks such as documentation update runs.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sevigo/doc-sentry/internal/core"
)

// dispatcher implements core.JobDispatcher and manages a pool of worker
// goroutines that process GitHub events as documentation jobs.
type dispatcher struct {
	job        core.Job
	jobQueue   chan *core.GitHubEvent
	maxWorkers int
	wg         sync.WaitGroup
	logger     *slog.Logger
}

// NewDispatcher initializes a dispatcher with a worker pool.
// If maxWorkers is 0 or negative, it defaults to 1.
func NewDispatcher(job core.Job, maxWorkers int, logger *slog.Logger) core.JobDispatcher {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	d := &dispatcher{
		job:        job,
		maxWorkers: maxWorkers,
		jobQueue:   make(chan *core.GitHubEvent, 100),
		logger:     logger,
	}
	d.startWorkers()
	return d
}

func (d *dispatcher) startWorkers() {
	for i := 0; i < d.maxWorkers; i++ {
		d.wg.Add(1)
		go func(workerID int) {
			defer d.wg.Done()
			d.logger.Info("starting doc-update worker", "id", workerID)
			for event := range d.jobQueue {
				d.logger.Info("worker processing job", "worker_id", workerID, "repo", event.RepoFullName)
				if err := d.job.Run(context.Background(), event); err != nil {
					d.logger.Error("doc-update job failed",
						"repo", event.RepoFullName, "pr", event.PRNumber, "error", err)
				}
			}
			d.logger.Info("shutting down doc-update worker", "id", workerID)
		}(i)
	}
}

// Dispatch queues a GitHub event for processing by a worker.
// Returns an error if the queue is full.
func (d *dispatcher) Dispatch(ctx context.Context, event *core.GitHubEvent) error {
	d.logger.InfoContext(ctx, "queuing doc-update job", "repo", event.RepoFullName, "pr", event.PRNumber)
	select {
	case d.jobQueue <- event:
		return nil
	default:
		return fmt.Errorf("job queue is full, cannot accept new doc-update job")
	}
}

// Stop gracefully shuts down the dispatcher, waiting for all workers to finish.
func (d *dispatcher) Stop() {
	d.logger.Info("stopping dispatcher and waiting for jobs to finish")
	close(d.jobQueue)
	d.wg.Wait()
	d.logger.Info("all doc-update jobs have finished")
}
