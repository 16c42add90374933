package vendors

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/larder-erp/larder-erp/internal/shared"
)

// RepositoryPort is the storage surface the vendor service depends on.
type RepositoryPort interface {
	Create(ctx context.Context, v Vendor) (int64, error)
	GetByID(ctx context.Context, tenantID, id int64) (Vendor, error)
	FindByNameOrGST(ctx context.Context, tenantID int64, name, gstNo string) (Vendor, error)
	List(ctx context.Context, tenantID int64, search string, p shared.Pagination) ([]Vendor, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the Postgres-backed vendor repository.
func NewRepository(pool *pgxpool.Pool) RepositoryPort {
	return &repository{pool: pool}
}

const vendorColumns = `id, tenant_id, display_id, name, gst_no, pan_no, categories, phone, email, address, status, created_from, source_order_id, created_at`

func (r *repository) Create(ctx context.Context, v Vendor) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO vendors
(tenant_id, display_id, name, gst_no, pan_no, categories, phone, email, address, status, created_from, source_order_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING id`,
		v.TenantID, v.DisplayID, v.Name, v.GSTNo, v.PANNo, v.Categories, v.Phone, v.Email, v.Address, v.Status, v.CreatedFrom, v.SourceOrderID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("vendors: insert: %w", err)
	}
	return id, nil
}

func (r *repository) GetByID(ctx context.Context, tenantID, id int64) (Vendor, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	return scanVendor(row)
}

// FindByNameOrGST matches by case-insensitive exact name, or by GST number
// when one is supplied. Used for promotion dedup.
func (r *repository) FindByNameOrGST(ctx context.Context, tenantID int64, name, gstNo string) (Vendor, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+vendorColumns+` FROM vendors
WHERE tenant_id = $1 AND (LOWER(name) = LOWER($2) OR ($3 <> '' AND gst_no = $3))
LIMIT 1`, tenantID, name, gstNo)
	return scanVendor(row)
}

func (r *repository) List(ctx context.Context, tenantID int64, search string, p shared.Pagination) ([]Vendor, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+vendorColumns+` FROM vendors
WHERE tenant_id = $1 AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR display_id ILIKE '%' || $2 || '%')
ORDER BY name
LIMIT $3 OFFSET $4`, tenantID, search, p.Limit, p.Offset)
	if err != nil {
		return nil, fmt.Errorf("vendors: list: %w", err)
	}
	defer rows.Close()

	var out []Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanVendor(row pgx.Row) (Vendor, error) {
	var v Vendor
	err := row.Scan(&v.ID, &v.TenantID, &v.DisplayID, &v.Name, &v.GSTNo, &v.PANNo, &v.Categories,
		&v.Phone, &v.Email, &v.Address, &v.Status, &v.CreatedFrom, &v.SourceOrderID, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Vendor{}, ErrNotFound
		}
		return Vendor{}, fmt.Errorf("vendors: scan: %w", err)
	}
	return v, nil
}
