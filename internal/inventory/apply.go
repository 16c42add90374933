package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the slice of pgx.Tx the balance writers need, so movements
// join whichever transaction the calling document runs in.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Increment adds qty to the scope's balance, creating it on first receipt.
func Increment(ctx context.Context, q Querier, scope Scope, qty float64) error {
	if qty <= 0 {
		return fmt.Errorf("%w: increment must be positive", ErrInvalidQuantity)
	}
	_, err := q.Exec(ctx, `INSERT INTO stock_balances (tenant_id, branch_id, work_area_id, item_id, qty, updated_at)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (tenant_id, branch_id, work_area_id, item_id)
DO UPDATE SET qty = stock_balances.qty + EXCLUDED.qty, updated_at = now()`,
		scope.TenantID, scope.BranchID, scope.WorkAreaID, scope.ItemID, qty)
	if err != nil {
		return fmt.Errorf("inventory: increment stock: %w", err)
	}
	return nil
}

// Decrement removes qty from the scope's balance. A missing balance or one
// that would go negative fails the caller's transaction.
func Decrement(ctx context.Context, q Querier, scope Scope, qty float64) error {
	if qty <= 0 {
		return fmt.Errorf("%w: decrement must be positive", ErrInvalidQuantity)
	}
	var remaining float64
	err := q.QueryRow(ctx, `UPDATE stock_balances
SET qty = qty - $5, updated_at = now()
WHERE tenant_id = $1 AND branch_id = $2 AND work_area_id = $3 AND item_id = $4 AND qty >= $5
RETURNING qty`,
		scope.TenantID, scope.BranchID, scope.WorkAreaID, scope.ItemID, qty).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInsufficientStock
		}
		return fmt.Errorf("inventory: decrement stock: %w", err)
	}
	return nil
}
