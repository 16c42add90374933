package inventory

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/larder-erp/larder-erp/internal/shared"
)

// Service serves stock balance reads.
type Service struct {
	pool *pgxpool.Pool
}

// NewService constructs a Service.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// ListFilter narrows balance listings.
type ListFilter struct {
	WorkAreaID int64
	ItemID     int64
}

// List returns current balances for a branch, joined with catalog names.
func (s *Service) List(ctx context.Context, tenantID, branchID int64, f ListFilter, p shared.Pagination) ([]StockBalance, error) {
	rows, err := s.pool.Query(ctx, `SELECT sb.tenant_id, sb.branch_id, sb.work_area_id, sb.item_id, i.name, i.code, sb.qty, sb.updated_at
FROM stock_balances sb
JOIN items i ON i.id = sb.item_id
WHERE sb.tenant_id = $1 AND sb.branch_id = $2
  AND ($3 = 0 OR sb.work_area_id = $3)
  AND ($4 = 0 OR sb.item_id = $4)
ORDER BY i.name, sb.work_area_id
LIMIT $5 OFFSET $6`,
		tenantID, branchID, f.WorkAreaID, f.ItemID, p.Limit, p.Offset)
	if err != nil {
		return nil, fmt.Errorf("inventory: list balances: %w", err)
	}
	defer rows.Close()

	var out []StockBalance
	for rows.Next() {
		var b StockBalance
		if err := rows.Scan(&b.TenantID, &b.BranchID, &b.WorkAreaID, &b.ItemID, &b.ItemName, &b.ItemCode, &b.Qty, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("inventory: scan balance: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
