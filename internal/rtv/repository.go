package rtv

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/larder-erp/larder-erp/internal/inventory"
	"github.com/larder-erp/larder-erp/internal/platform/db"
	"github.com/larder-erp/larder-erp/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	GetGRNRef(ctx context.Context, tenantID, grnID int64) (GRNRef, error)
	GetReceivedQty(ctx context.Context, grnID, itemID int64) (float64, error)
	SumReturnedQty(ctx context.Context, grnID, itemID int64) (float64, error)
	CreateRTV(ctx context.Context, rtv RTV) (int64, error)
	InsertLine(ctx context.Context, line Line) (int64, error)
	DecrementStock(ctx context.Context, scope inventory.Scope, qty float64) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

func (t *txRepo) GetGRNRef(ctx context.Context, tenantID, grnID int64) (GRNRef, error) {
	var ref GRNRef
	err := t.tx.QueryRow(ctx, `SELECT id, display_id, branch_id, work_area_id, vendor_id FROM grns
WHERE tenant_id=$1 AND id=$2 FOR UPDATE`, tenantID, grnID).
		Scan(&ref.ID, &ref.DisplayID, &ref.BranchID, &ref.WorkAreaID, &ref.VendorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return GRNRef{}, fmt.Errorf("%w: goods receipt %d", ErrNotFound, grnID)
		}
		return GRNRef{}, fmt.Errorf("rtv: fetch goods receipt: %w", err)
	}
	return ref, nil
}

func (t *txRepo) GetReceivedQty(ctx context.Context, grnID, itemID int64) (float64, error) {
	var qty float64
	err := t.tx.QueryRow(ctx, `SELECT received_qty FROM grn_items WHERE grn_id=$1 AND item_id=$2`,
		grnID, itemID).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: item %d was not received on this goods receipt", ErrValidation, itemID)
		}
		return 0, fmt.Errorf("rtv: fetch received quantity: %w", err)
	}
	return qty, nil
}

func (t *txRepo) SumReturnedQty(ctx context.Context, grnID, itemID int64) (float64, error) {
	var qty float64
	err := t.tx.QueryRow(ctx, `SELECT COALESCE(SUM(ri.quantity), 0) FROM rtv_items ri
JOIN rtvs r ON r.id = ri.rtv_id
WHERE r.grn_id=$1 AND ri.item_id=$2`, grnID, itemID).Scan(&qty)
	if err != nil {
		return 0, fmt.Errorf("rtv: sum returned quantity: %w", err)
	}
	return qty, nil
}

func (t *txRepo) CreateRTV(ctx context.Context, rtv RTV) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO rtvs
(tenant_id, display_id, branch_id, grn_id, vendor_id, status, total_amount, reason, is_used, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, $9, $10)
RETURNING id`,
		rtv.TenantID, rtv.DisplayID, rtv.BranchID, rtv.GRNID, rtv.VendorID,
		rtv.Status, rtv.TotalAmount, rtv.Reason, rtv.CreatedBy, rtv.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("rtv: insert return: %w", err)
	}
	return id, nil
}

func (t *txRepo) InsertLine(ctx context.Context, line Line) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO rtv_items (rtv_id, item_id, quantity, unit_cost)
VALUES ($1, $2, $3, $4)
RETURNING id`, line.RTVID, line.ItemID, line.Quantity, line.UnitCost).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("rtv: insert line: %w", err)
	}
	return id, nil
}

func (t *txRepo) DecrementStock(ctx context.Context, scope inventory.Scope, qty float64) error {
	return inventory.Decrement(ctx, t.tx, scope, qty)
}

const rtvColumns = `id, tenant_id, display_id, branch_id, grn_id, vendor_id, status, total_amount, reason, is_used, used_in_po_id, created_by, created_at`

// GetByID returns a return document with its lines.
func (r *Repository) GetByID(ctx context.Context, tenantID, id int64) (RTV, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+rtvColumns+` FROM rtvs WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	rtv, err := scanRTV(row)
	if err != nil {
		return RTV{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, rtv_id, item_id, quantity, unit_cost FROM rtv_items WHERE rtv_id=$1 ORDER BY id`, id)
	if err != nil {
		return RTV{}, fmt.Errorf("rtv: list lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.RTVID, &line.ItemID, &line.Quantity, &line.UnitCost); err != nil {
			return RTV{}, fmt.Errorf("rtv: scan line: %w", err)
		}
		rtv.Items = append(rtv.Items, line)
	}
	return rtv, rows.Err()
}

// List returns branch return documents, newest first. When unusedOnly is set
// only credits not yet consumed by a purchase order are returned.
func (r *Repository) List(ctx context.Context, tenantID, branchID int64, unusedOnly bool, p shared.Pagination) ([]RTV, error) {
	query := `SELECT ` + rtvColumns + ` FROM rtvs WHERE tenant_id=$1 AND branch_id=$2`
	if unusedOnly {
		query += ` AND is_used=FALSE`
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4`
	rows, err := r.pool.Query(ctx, query, tenantID, branchID, p.Limit, p.Offset)
	if err != nil {
		return nil, fmt.Errorf("rtv: list: %w", err)
	}
	defer rows.Close()

	var out []RTV
	for rows.Next() {
		rtv, err := scanRTV(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rtv)
	}
	return out, rows.Err()
}

func scanRTV(row pgx.Row) (RTV, error) {
	var v RTV
	err := row.Scan(&v.ID, &v.TenantID, &v.DisplayID, &v.BranchID, &v.GRNID, &v.VendorID,
		&v.Status, &v.TotalAmount, &v.Reason, &v.IsUsed, &v.UsedInPOID, &v.CreatedBy, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RTV{}, ErrNotFound
		}
		return RTV{}, fmt.Errorf("rtv: scan return: %w", err)
	}
	return v, nil
}
