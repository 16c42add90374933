// Package jobs runs the asynq background worker.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/larder-erp/larder-erp/internal/audit"
)

func handleAuditRecord(store *audit.Store, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var entry audit.Entry
		if err := json.Unmarshal(task.Payload(), &entry); err != nil {
			// Malformed payloads never succeed on retry.
			return fmt.Errorf("decode audit payload: %v: %w", err, asynq.SkipRetry)
		}
		if err := store.Insert(ctx, entry); err != nil {
			return err
		}
		logger.Debug("audit entry persisted",
			slog.String("action", entry.Action),
			slog.String("entity", entry.Entity),
			slog.String("entity_id", entry.EntityID))
		return nil
	}
}
