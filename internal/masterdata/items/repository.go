package items

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/larder-erp/larder-erp/internal/shared"
)

// RepositoryPort is the storage surface the item service depends on.
type RepositoryPort interface {
	Create(ctx context.Context, it Item) (int64, error)
	GetByID(ctx context.Context, tenantID, id int64) (Item, error)
	FindByCode(ctx context.Context, tenantID int64, code string) (Item, error)
	List(ctx context.Context, tenantID int64, search string, p shared.Pagination) ([]Item, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the Postgres-backed item repository.
func NewRepository(pool *pgxpool.Pool) RepositoryPort {
	return &repository{pool: pool}
}

const itemColumns = `id, tenant_id, display_id, code, name, category, uom, unit_cost, tax_rate, description, status, created_from, source_order_id, created_at`

func (r *repository) Create(ctx context.Context, it Item) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO items
(tenant_id, display_id, code, name, category, uom, unit_cost, tax_rate, description, status, created_from, source_order_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING id`,
		it.TenantID, it.DisplayID, it.Code, it.Name, it.Category, it.UOM, it.UnitCost, it.TaxRate, it.Description, it.Status, it.CreatedFrom, it.SourceOrderID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("items: insert: %w", err)
	}
	return id, nil
}

func (r *repository) GetByID(ctx context.Context, tenantID, id int64) (Item, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	return scanItem(row)
}

func (r *repository) FindByCode(ctx context.Context, tenantID int64, code string) (Item, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE tenant_id = $1 AND code = $2`, tenantID, code)
	return scanItem(row)
}

func (r *repository) List(ctx context.Context, tenantID int64, search string, p shared.Pagination) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM items
WHERE tenant_id = $1 AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR code ILIKE '%' || $2 || '%')
ORDER BY name
LIMIT $3 OFFSET $4`, tenantID, search, p.Limit, p.Offset)
	if err != nil {
		return nil, fmt.Errorf("items: list: %w", err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.TenantID, &it.DisplayID, &it.Code, &it.Name, &it.Category, &it.UOM,
		&it.UnitCost, &it.TaxRate, &it.Description, &it.Status, &it.CreatedFrom, &it.SourceOrderID, &it.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrNotFound
		}
		return Item{}, fmt.Errorf("items: scan: %w", err)
	}
	return it, nil
}
