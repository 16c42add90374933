package grn

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
	GetPORef(ctx context.Context, tenantID, poID int64) (PORef, error)
	CreateGRN(ctx context.Context, receipt GoodsReceipt) (int64, error)
	InsertLine(ctx context.Context, line Line) (int64, error)
	IncrementStock(ctx context.Context, scope inventory.Scope, qty float64) error
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

func (t *txRepo) GetPORef(ctx context.Context, tenantID, poID int64) (PORef, error) {
	var ref PORef
	err := t.tx.QueryRow(ctx, `SELECT id, display_id, status, vendor_id FROM purchase_orders
WHERE tenant_id=$1 AND id=$2 FOR UPDATE`, tenantID, poID).
		Scan(&ref.ID, &ref.DisplayID, &ref.Status, &ref.VendorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PORef{}, fmt.Errorf("%w: purchase order %d", ErrNotFound, poID)
		}
		return PORef{}, fmt.Errorf("grn: fetch purchase order: %w", err)
	}
	return ref, nil
}

func (t *txRepo) CreateGRN(ctx context.Context, receipt GoodsReceipt) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO grns
(tenant_id, display_id, branch_id, work_area_id, po_id, vendor_id, vendor_invoice_no, status, received_at, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id`,
		receipt.TenantID, receipt.DisplayID, receipt.BranchID, receipt.WorkAreaID, receipt.POID,
		receipt.VendorID, receipt.VendorInvoiceNo, receipt.Status, receipt.ReceivedAt, receipt.CreatedBy).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("grn: insert receipt: %w", err)
	}
	return id, nil
}

func (t *txRepo) InsertLine(ctx context.Context, line Line) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO grn_items (grn_id, item_id, received_qty, unit_cost)
VALUES ($1, $2, $3, $4)
RETURNING id`, line.GRNID, line.ItemID, line.ReceivedQty, line.UnitCost).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("grn: insert line: %w", err)
	}
	return id, nil
}

func (t *txRepo) IncrementStock(ctx context.Context, scope inventory.Scope, qty float64) error {
	return inventory.Increment(ctx, t.tx, scope, qty)
}

const grnColumns = `id, tenant_id, display_id, branch_id, work_area_id, po_id, vendor_id, vendor_invoice_no, status, received_at, created_by`

// GetByID returns a receipt with its lines.
func (r *Repository) GetByID(ctx context.Context, tenantID, id int64) (GoodsReceipt, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+grnColumns+` FROM grns WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	receipt, err := scanGRN(row)
	if err != nil {
		return GoodsReceipt{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, grn_id, item_id, received_qty, unit_cost FROM grn_items WHERE grn_id=$1 ORDER BY id`, id)
	if err != nil {
		return GoodsReceipt{}, fmt.Errorf("grn: list lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.GRNID, &line.ItemID, &line.ReceivedQty, &line.UnitCost); err != nil {
			return GoodsReceipt{}, fmt.Errorf("grn: scan line: %w", err)
		}
		receipt.Items = append(receipt.Items, line)
	}
	return receipt, rows.Err()
}

// List returns branch receipts, newest first.
func (r *Repository) List(ctx context.Context, tenantID, branchID int64, p shared.Pagination) ([]GoodsReceipt, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+grnColumns+` FROM grns
WHERE tenant_id=$1 AND branch_id=$2
ORDER BY received_at DESC, id DESC
LIMIT $3 OFFSET $4`, tenantID, branchID, p.Limit, p.Offset)
	if err != nil {
		return nil, fmt.Errorf("grn: list: %w", err)
	}
	defer rows.Close()

	var out []GoodsReceipt
	for rows.Next() {
		receipt, err := scanGRN(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, receipt)
	}
	return out, rows.Err()
}

func scanGRN(row pgx.Row) (GoodsReceipt, error) {
	var g GoodsReceipt
	err := row.Scan(&g.ID, &g.TenantID, &g.DisplayID, &g.BranchID, &g.WorkAreaID, &g.POID, &g.VendorID,
		&g.VendorInvoiceNo, &g.Status, &g.ReceivedAt, &g.CreatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return GoodsReceipt{}, ErrNotFound
		}
		return GoodsReceipt{}, fmt.Errorf("grn: scan receipt: %w", err)
	}
	return g, nil
}
