package indents

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

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
	CreateIndent(ctx context.Context, ind Indent) (int64, error)
	InsertItem(ctx context.Context, item Item) (int64, error)
	GetForUpdate(ctx context.Context, tenantID, id int64) (Indent, error)
	ListItems(ctx context.Context, indentID int64) ([]Item, error)
	UpdateStatus(ctx context.Context, id int64, status Status, approvedBy *int64) error
	SetItemApproval(ctx context.Context, itemID int64, approvedQty, pendingQty float64) error
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

const indentColumns = `id, tenant_id, display_id, branch_id, work_area_id, entry_type, status, is_po_raised, indent_date, required_date, remarks, created_by, approved_by, created_at`

// GetByID returns an indent with its items.
func (r *Repository) GetByID(ctx context.Context, tenantID, id int64) (Indent, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+indentColumns+` FROM indents WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	ind, err := scanIndent(row)
	if err != nil {
		return Indent{}, err
	}
	items, err := listItems(ctx, r.pool, id)
	if err != nil {
		return Indent{}, err
	}
	ind.Items = items
	return ind, nil
}

// List returns indents for a branch, optionally filtered by status.
func (r *Repository) List(ctx context.Context, tenantID, branchID int64, status Status, p shared.Pagination) ([]Indent, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+indentColumns+` FROM indents
WHERE tenant_id=$1 AND branch_id=$2 AND ($3 = '' OR status = $3)
ORDER BY created_at DESC, id DESC
LIMIT $4 OFFSET $5`, tenantID, branchID, string(status), p.Limit, p.Offset)
	if err != nil {
		return nil, fmt.Errorf("indents: list: %w", err)
	}
	defer rows.Close()

	var out []Indent
	for rows.Next() {
		ind, err := scanIndent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ind)
	}
	return out, rows.Err()
}

func (t *txRepo) CreateIndent(ctx context.Context, ind Indent) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO indents
(tenant_id, display_id, branch_id, work_area_id, entry_type, status, is_po_raised, indent_date, required_date, remarks, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id`,
		ind.TenantID, ind.DisplayID, ind.BranchID, ind.WorkAreaID, ind.EntryType, ind.Status, ind.IsPoRaised,
		ind.IndentDate, ind.RequiredDate, ind.Remarks, ind.CreatedBy).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("indents: insert indent: %w", err)
	}
	return id, nil
}

func (t *txRepo) InsertItem(ctx context.Context, item Item) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO indent_items
(indent_id, item_id, requested_qty, approved_qty, po_qty, pending_qty, procurement_status)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`,
		item.IndentID, item.ItemID, item.RequestedQty, item.ApprovedQty, item.POQty, item.PendingQty, item.ProcurementStatus).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("indents: insert item: %w", err)
	}
	return id, nil
}

func (t *txRepo) GetForUpdate(ctx context.Context, tenantID, id int64) (Indent, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+indentColumns+` FROM indents WHERE tenant_id=$1 AND id=$2 FOR UPDATE`, tenantID, id)
	return scanIndent(row)
}

func (t *txRepo) ListItems(ctx context.Context, indentID int64) ([]Item, error) {
	return listItems(ctx, t.tx, indentID)
}

func (t *txRepo) UpdateStatus(ctx context.Context, id int64, status Status, approvedBy *int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE indents SET status=$2, approved_by=$3 WHERE id=$1`, id, status, approvedBy)
	if err != nil {
		return fmt.Errorf("indents: update status: %w", err)
	}
	return nil
}

func (t *txRepo) SetItemApproval(ctx context.Context, itemID int64, approvedQty, pendingQty float64) error {
	_, err := t.tx.Exec(ctx, `UPDATE indent_items SET approved_qty=$2, pending_qty=$3 WHERE id=$1`, itemID, approvedQty, pendingQty)
	if err != nil {
		return fmt.Errorf("indents: set item approval: %w", err)
	}
	return nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listItems(ctx context.Context, q querier, indentID int64) ([]Item, error) {
	rows, err := q.Query(ctx, `SELECT id, indent_id, item_id, requested_qty, approved_qty, po_qty, pending_qty, procurement_status
FROM indent_items WHERE indent_id=$1 ORDER BY id`, indentID)
	if err != nil {
		return nil, fmt.Errorf("indents: list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.IndentID, &it.ItemID, &it.RequestedQty, &it.ApprovedQty, &it.POQty, &it.PendingQty, &it.ProcurementStatus); err != nil {
			return nil, fmt.Errorf("indents: scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func scanIndent(row pgx.Row) (Indent, error) {
	var ind Indent
	err := row.Scan(&ind.ID, &ind.TenantID, &ind.DisplayID, &ind.BranchID, &ind.WorkAreaID, &ind.EntryType,
		&ind.Status, &ind.IsPoRaised, &ind.IndentDate, &ind.RequiredDate, &ind.Remarks, &ind.CreatedBy, &ind.ApprovedBy, &ind.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Indent{}, ErrNotFound
		}
		return Indent{}, fmt.Errorf("indents: scan indent: %w", err)
	}
	return ind, nil
}
