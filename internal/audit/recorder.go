package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// TaskTypeRecord is the asynq task type carrying a serialized Entry.
const TaskTypeRecord = "audit:record"

// QueueName is the asynq queue audit tasks are routed to.
const QueueName = "audit"

// Enqueuer is the slice of asynq.Client the recorder needs.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqRecorder hands entries to the background worker via asynq. The entry
// is persisted outside the caller's transaction, so audit rows may exist for
// operations that later rolled back; the worker retries transient failures.
type AsynqRecorder struct {
	enq    Enqueuer
	logger *slog.Logger
}

// NewAsynqRecorder constructs an AsynqRecorder.
func NewAsynqRecorder(enq Enqueuer, logger *slog.Logger) *AsynqRecorder {
	return &AsynqRecorder{enq: enq, logger: logger}
}

// Record enqueues the entry for background persistence.
func (r *AsynqRecorder) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("audit: marshal entry: %w", err)
	}
	task := asynq.NewTask(TaskTypeRecord, payload)
	if _, err := r.enq.Enqueue(task, asynq.Queue(QueueName), asynq.MaxRetry(5)); err != nil {
		r.logger.Error("audit enqueue failed",
			slog.String("action", e.Action),
			slog.String("entity", e.Entity),
			slog.String("entity_id", e.EntityID),
			slog.String("error", err.Error()))
		return fmt.Errorf("audit: enqueue: %w", err)
	}
	return nil
}
