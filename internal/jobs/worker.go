package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/larder-erp/larder-erp/internal/audit"
)

// Worker wraps the asynq server and its task routing.
type Worker struct {
	srv *asynq.Server
	mux *asynq.ServeMux
}

// NewWorker builds the background worker with all task handlers registered.
func NewWorker(redisAddr string, concurrency int, logger *slog.Logger, auditStore *audit.Store) *Worker {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				audit.QueueName: 5,
				"default":       1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task failed",
					slog.String("type", task.Type()),
					slog.String("error", err.Error()))
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(audit.TaskTypeRecord, handleAuditRecord(auditStore, logger))

	return &Worker{srv: srv, mux: mux}
}

// Run starts processing tasks and blocks until Shutdown.
func (w *Worker) Run() error {
	return w.srv.Run(w.mux)
}

// Shutdown stops the worker, waiting for in-flight tasks.
func (w *Worker) Shutdown() {
	w.srv.Shutdown()
}
