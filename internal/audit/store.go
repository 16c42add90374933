package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/larder-erp/larder-erp/internal/shared"
)

// Store persists and queries audit entries in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Insert writes one entry.
func (s *Store) Insert(ctx context.Context, e Entry) error {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("audit: marshal details: %w", err)
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO audit_logs
(tenant_id, branch_id, action, entity, entity_id, performed_by, details, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.TenantID, e.BranchID, e.Action, e.Entity, e.EntityID, e.PerformedBy, details, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("audit: insert entry: %w", err)
	}
	return nil
}

// Filter narrows List results.
type Filter struct {
	Entity   string
	EntityID string
	Action   string
}

// List returns the tenant's audit trail, newest first.
func (s *Store) List(ctx context.Context, tenantID int64, f Filter, p shared.Pagination) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, tenant_id, branch_id, action, entity, entity_id, performed_by, details, created_at
FROM audit_logs
WHERE tenant_id = $1
  AND ($2 = '' OR entity = $2)
  AND ($3 = '' OR entity_id = $3)
  AND ($4 = '' OR action = $4)
ORDER BY created_at DESC, id DESC
LIMIT $5 OFFSET $6`,
		tenantID, f.Entity, f.EntityID, f.Action, p.Limit, p.Offset)
	if err != nil {
		return nil, fmt.Errorf("audit: list entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var details []byte
		if err := rows.Scan(&e.ID, &e.TenantID, &e.BranchID, &e.Action, &e.Entity, &e.EntityID, &e.PerformedBy, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan entry: %w", err)
		}
		if len(details) > 0 {
			_ = json.Unmarshal(details, &e.Details)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
