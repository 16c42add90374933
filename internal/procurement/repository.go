package procurement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/larder-erp/larder-erp/internal/indents"
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

// TxRepository exposes transactional operations. Reads suffixed ForUpdate
// take row locks so concurrent lifecycle calls on the same documents
// serialize instead of losing updates.
type TxRepository interface {
	CreatePO(ctx context.Context, po PurchaseOrder) (int64, error)
	InsertLine(ctx context.Context, line Line) (int64, error)
	GetPOForUpdate(ctx context.Context, tenantID, id int64) (PurchaseOrder, error)
	ListLines(ctx context.Context, poID int64) ([]Line, error)
	GetLineForUpdate(ctx context.Context, poID, itemID int64) (Line, error)
	SetLineQuantity(ctx context.Context, lineID int64, qty, totalPrice float64) error
	SetLineItemRef(ctx context.Context, lineID, itemID int64) error
	SetTotalAmount(ctx context.Context, poID int64, total float64) error
	UpdateStatus(ctx context.Context, poID int64, status Status) error
	SetApproval(ctx context.Context, poID, approvedBy int64) error
	ClearApproval(ctx context.Context, poID int64) error
	UpdateHeader(ctx context.Context, poID int64, deliveryDate *time.Time, vendorID *int64) error
	DeleteLines(ctx context.Context, poID int64) error
	DeletePO(ctx context.Context, poID int64) error
	MarkRTVUsed(ctx context.Context, tenantID, rtvID, poID int64) error
	SetVendor(ctx context.Context, poID, vendorID int64) error

	ListIndentItemsForUpdate(ctx context.Context, tenantID int64, ids []int64) ([]indents.Item, error)
	GetIndentHeadersForUpdate(ctx context.Context, tenantID int64, ids []int64) ([]indents.Indent, error)
	ConsumeIndentItem(ctx context.Context, indentItemID int64, qty float64) error
	MarkIndentsPoRaised(ctx context.Context, indentIDs []int64) error

	GetCatalogItems(ctx context.Context, tenantID int64, ids []int64) (map[int64]CatalogItem, error)
	FindVendorByNameOrGST(ctx context.Context, tenantID int64, name, gstNo string) (int64, bool, error)
	CreateVendor(ctx context.Context, v PromotedVendor) (int64, error)
	FindItemByCode(ctx context.Context, tenantID int64, code string) (int64, bool, error)
	CreateItem(ctx context.Context, it PromotedItem) (int64, error)
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

const poColumns = `id, tenant_id, display_id, branch_id, pr_no, vendor_id, vendor_name, type, status,
total_amount, rtv_credit, linked_rtv_id, add_to_vendor_master, add_to_inventory_master, temp_vendor,
delivery_date, created_by, approved_by, created_at`

// Fetch helpers

// GetPO returns the order and its lines, with the vendor name resolved from
// the master when the order has one.
func (r *Repository) GetPO(ctx context.Context, tenantID, id int64) (PurchaseOrder, []Line, error) {
	row := r.pool.QueryRow(ctx, `SELECT po.id, po.tenant_id, po.display_id, po.branch_id, po.pr_no, po.vendor_id,
COALESCE(v.name, po.vendor_name), po.type, po.status, po.total_amount, po.rtv_credit, po.linked_rtv_id,
po.add_to_vendor_master, po.add_to_inventory_master, po.temp_vendor, po.delivery_date, po.created_by, po.approved_by, po.created_at
FROM purchase_orders po
LEFT JOIN vendors v ON v.id = po.vendor_id
WHERE po.tenant_id=$1 AND po.id=$2`, tenantID, id)
	po, err := scanPO(row)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	lines, err := listLines(ctx, r.pool, id)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	return po, lines, nil
}

// ListPOs returns branch orders, newest first, optionally filtered by status.
func (r *Repository) ListPOs(ctx context.Context, tenantID, branchID int64, status Status, p shared.Pagination) ([]PurchaseOrder, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+poColumns+` FROM purchase_orders
WHERE tenant_id=$1 AND branch_id=$2 AND ($3 = '' OR status = $3)
ORDER BY created_at DESC, id DESC
LIMIT $4 OFFSET $5`, tenantID, branchID, string(status), p.Limit, p.Offset)
	if err != nil {
		return nil, fmt.Errorf("procurement: list orders: %w", err)
	}
	defer rows.Close()

	var out []PurchaseOrder
	for rows.Next() {
		po, err := scanPO(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, po)
	}
	return out, rows.Err()
}

// ListProcurementPool returns approved indent lines not yet drawn into any
// order, joined with catalog details.
func (r *Repository) ListProcurementPool(ctx context.Context, tenantID, branchID int64) ([]PoolEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT ii.id, ind.id, ind.display_id, ind.work_area_id,
ii.item_id, i.name, i.code, i.uom, ii.approved_qty, ii.po_qty, ii.pending_qty
FROM indent_items ii
JOIN indents ind ON ind.id = ii.indent_id
JOIN items i ON i.id = ii.item_id
WHERE ind.tenant_id=$1 AND ind.branch_id=$2 AND ind.status='APPROVED' AND ii.procurement_status='PENDING'
ORDER BY ind.created_at, ii.id`, tenantID, branchID)
	if err != nil {
		return nil, fmt.Errorf("procurement: list pool: %w", err)
	}
	defer rows.Close()

	var out []PoolEntry
	for rows.Next() {
		var e PoolEntry
		if err := rows.Scan(&e.IndentItemID, &e.IndentID, &e.IndentDisplayID, &e.WorkAreaID,
			&e.ItemID, &e.ItemName, &e.ItemCode, &e.UOM, &e.ApprovedQty, &e.POQty, &e.PendingQty); err != nil {
			return nil, fmt.Errorf("procurement: scan pool entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Transactional operations

func (t *txRepo) CreatePO(ctx context.Context, po PurchaseOrder) (int64, error) {
	tempVendor, err := marshalNullable(po.TempVendor)
	if err != nil {
		return 0, fmt.Errorf("procurement: marshal temp vendor: %w", err)
	}
	var id int64
	err = t.tx.QueryRow(ctx, `INSERT INTO purchase_orders
(tenant_id, display_id, branch_id, pr_no, vendor_id, vendor_name, type, status, total_amount, rtv_credit,
linked_rtv_id, add_to_vendor_master, add_to_inventory_master, temp_vendor, delivery_date, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
RETURNING id`,
		po.TenantID, po.DisplayID, po.BranchID, po.PRNo, po.VendorID, po.VendorName, po.Type, po.Status,
		po.TotalAmount, po.RTVCredit, po.LinkedRTVID, po.MasterFlags.AddToVendorMaster,
		po.MasterFlags.AddToInventoryMaster, tempVendor, po.DeliveryDate, po.CreatedBy).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("procurement: insert order: %w", err)
	}
	return id, nil
}

func (t *txRepo) InsertLine(ctx context.Context, line Line) (int64, error) {
	tempItem, err := marshalNullable(line.Ref.Temp())
	if err != nil {
		return 0, fmt.Errorf("procurement: marshal temp item: %w", err)
	}
	links, err := json.Marshal(line.IndentLinks)
	if err != nil {
		return 0, fmt.Errorf("procurement: marshal indent links: %w", err)
	}
	var itemID *int64
	if id, ok := line.Ref.ItemID(); ok {
		itemID = &id
	}
	var id int64
	err = t.tx.QueryRow(ctx, `INSERT INTO po_items
(po_id, item_id, name, quantity, unit_cost, tax_rate, total_price, temp_item, indent_links)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id`,
		line.POID, itemID, line.Name, line.Quantity, line.UnitCost, line.TaxRate, line.TotalPrice, tempItem, links).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("procurement: insert line: %w", err)
	}
	return id, nil
}

func (t *txRepo) GetPOForUpdate(ctx context.Context, tenantID, id int64) (PurchaseOrder, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+poColumns+` FROM purchase_orders
WHERE tenant_id=$1 AND id=$2 FOR UPDATE`, tenantID, id)
	return scanPO(row)
}

func (t *txRepo) ListLines(ctx context.Context, poID int64) ([]Line, error) {
	return listLines(ctx, t.tx, poID)
}

func (t *txRepo) GetLineForUpdate(ctx context.Context, poID, itemID int64) (Line, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+lineColumns+` FROM po_items
WHERE po_id=$1 AND item_id=$2 FOR UPDATE`, poID, itemID)
	line, err := scanLine(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Line{}, fmt.Errorf("%w: item %d is not on this order", ErrNotFound, itemID)
		}
		return Line{}, err
	}
	return line, nil
}

func (t *txRepo) SetLineQuantity(ctx context.Context, lineID int64, qty, totalPrice float64) error {
	_, err := t.tx.Exec(ctx, `UPDATE po_items SET quantity=$2, total_price=$3 WHERE id=$1`, lineID, qty, totalPrice)
	if err != nil {
		return fmt.Errorf("procurement: set line quantity: %w", err)
	}
	return nil
}

func (t *txRepo) SetLineItemRef(ctx context.Context, lineID, itemID int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE po_items SET item_id=$2 WHERE id=$1`, lineID, itemID)
	if err != nil {
		return fmt.Errorf("procurement: set line item: %w", err)
	}
	return nil
}

func (t *txRepo) SetTotalAmount(ctx context.Context, poID int64, total float64) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET total_amount=$2 WHERE id=$1`, poID, total)
	if err != nil {
		return fmt.Errorf("procurement: set total: %w", err)
	}
	return nil
}

func (t *txRepo) UpdateStatus(ctx context.Context, poID int64, status Status) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET status=$2 WHERE id=$1`, poID, status)
	if err != nil {
		return fmt.Errorf("procurement: update status: %w", err)
	}
	return nil
}

func (t *txRepo) SetApproval(ctx context.Context, poID, approvedBy int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET approved_by=$2 WHERE id=$1`, poID, approvedBy)
	if err != nil {
		return fmt.Errorf("procurement: set approval: %w", err)
	}
	return nil
}

func (t *txRepo) ClearApproval(ctx context.Context, poID int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET approved_by=NULL WHERE id=$1`, poID)
	if err != nil {
		return fmt.Errorf("procurement: clear approval: %w", err)
	}
	return nil
}

func (t *txRepo) UpdateHeader(ctx context.Context, poID int64, deliveryDate *time.Time, vendorID *int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_orders
SET delivery_date = COALESCE($2, delivery_date), vendor_id = COALESCE($3, vendor_id)
WHERE id=$1`, poID, deliveryDate, vendorID)
	if err != nil {
		return fmt.Errorf("procurement: update header: %w", err)
	}
	return nil
}

func (t *txRepo) DeleteLines(ctx context.Context, poID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM po_items WHERE po_id=$1`, poID)
	if err != nil {
		return fmt.Errorf("procurement: delete lines: %w", err)
	}
	return nil
}

func (t *txRepo) DeletePO(ctx context.Context, poID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM purchase_orders WHERE id=$1`, poID)
	if err != nil {
		return fmt.Errorf("procurement: delete order: %w", err)
	}
	return nil
}

func (t *txRepo) MarkRTVUsed(ctx context.Context, tenantID, rtvID, poID int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE rtvs SET is_used=TRUE, used_in_po_id=$3
WHERE tenant_id=$1 AND id=$2 AND is_used=FALSE`, tenantID, rtvID, poID)
	if err != nil {
		return fmt.Errorf("procurement: mark rtv used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: return to vendor %d", ErrNotFound, rtvID)
	}
	return nil
}

func (t *txRepo) SetVendor(ctx context.Context, poID, vendorID int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET vendor_id=$2 WHERE id=$1`, poID, vendorID)
	if err != nil {
		return fmt.Errorf("procurement: set vendor: %w", err)
	}
	return nil
}

func (t *txRepo) ListIndentItemsForUpdate(ctx context.Context, tenantID int64, ids []int64) ([]indents.Item, error) {
	rows, err := t.tx.Query(ctx, `SELECT ii.id, ii.indent_id, ii.item_id, ii.requested_qty, ii.approved_qty, ii.po_qty, ii.pending_qty, ii.procurement_status
FROM indent_items ii
JOIN indents i ON i.id = ii.indent_id
WHERE i.tenant_id = $1 AND ii.id = ANY($2)
ORDER BY ii.id
FOR UPDATE OF ii`, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("procurement: fetch indent items: %w", err)
	}
	defer rows.Close()

	var items []indents.Item
	for rows.Next() {
		var it indents.Item
		if err := rows.Scan(&it.ID, &it.IndentID, &it.ItemID, &it.RequestedQty, &it.ApprovedQty, &it.POQty, &it.PendingQty, &it.ProcurementStatus); err != nil {
			return nil, fmt.Errorf("procurement: scan indent item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (t *txRepo) GetIndentHeadersForUpdate(ctx context.Context, tenantID int64, ids []int64) ([]indents.Indent, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, tenant_id, display_id, branch_id, work_area_id, status, is_po_raised
FROM indents WHERE tenant_id=$1 AND id = ANY($2) ORDER BY id FOR UPDATE`, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("procurement: fetch indents: %w", err)
	}
	defer rows.Close()

	var out []indents.Indent
	for rows.Next() {
		var ind indents.Indent
		if err := rows.Scan(&ind.ID, &ind.TenantID, &ind.DisplayID, &ind.BranchID, &ind.WorkAreaID, &ind.Status, &ind.IsPoRaised); err != nil {
			return nil, fmt.Errorf("procurement: scan indent: %w", err)
		}
		out = append(out, ind)
	}
	return out, rows.Err()
}

func (t *txRepo) ConsumeIndentItem(ctx context.Context, indentItemID int64, qty float64) error {
	_, err := t.tx.Exec(ctx, `UPDATE indent_items
SET po_qty = po_qty + $2,
    pending_qty = GREATEST(approved_qty - (po_qty + $2), 0),
    procurement_status = 'IN_PO'
WHERE id=$1`, indentItemID, qty)
	if err != nil {
		return fmt.Errorf("procurement: consume indent item: %w", err)
	}
	return nil
}

func (t *txRepo) MarkIndentsPoRaised(ctx context.Context, indentIDs []int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE indents SET is_po_raised=TRUE WHERE id = ANY($1)`, indentIDs)
	if err != nil {
		return fmt.Errorf("procurement: mark indents raised: %w", err)
	}
	return nil
}

func (t *txRepo) GetCatalogItems(ctx context.Context, tenantID int64, ids []int64) (map[int64]CatalogItem, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, name, code, uom, unit_cost, tax_rate
FROM items WHERE tenant_id=$1 AND id = ANY($2)`, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("procurement: fetch catalog items: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]CatalogItem, len(ids))
	for rows.Next() {
		var ci CatalogItem
		if err := rows.Scan(&ci.ID, &ci.Name, &ci.Code, &ci.UOM, &ci.UnitCost, &ci.TaxRate); err != nil {
			return nil, fmt.Errorf("procurement: scan catalog item: %w", err)
		}
		out[ci.ID] = ci
	}
	return out, rows.Err()
}

func (t *txRepo) FindVendorByNameOrGST(ctx context.Context, tenantID int64, name, gstNo string) (int64, bool, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `SELECT id FROM vendors
WHERE tenant_id=$1 AND (LOWER(name) = LOWER($2) OR ($3 <> '' AND gst_no = $3))
LIMIT 1`, tenantID, name, gstNo).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("procurement: find vendor: %w", err)
	}
	return id, true, nil
}

func (t *txRepo) CreateVendor(ctx context.Context, v PromotedVendor) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO vendors
(tenant_id, display_id, name, gst_no, pan_no, categories, status, created_from, source_order_id)
VALUES ($1, $2, $3, $4, $5, $6, 'ACTIVE', 'SPECIAL_ORDER', $7)
RETURNING id`,
		v.TenantID, v.DisplayID, v.Name, v.GSTNo, v.PANNo, v.Categories, v.SourceOrderID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("procurement: promote vendor: %w", err)
	}
	return id, nil
}

func (t *txRepo) FindItemByCode(ctx context.Context, tenantID int64, code string) (int64, bool, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `SELECT id FROM items WHERE tenant_id=$1 AND code=$2`, tenantID, code).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("procurement: find item: %w", err)
	}
	return id, true, nil
}

func (t *txRepo) CreateItem(ctx context.Context, it PromotedItem) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO items
(tenant_id, display_id, code, name, category, uom, unit_cost, tax_rate, description, status, created_from, source_order_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'ACTIVE', 'SPECIAL_ORDER', $10)
RETURNING id`,
		it.TenantID, it.DisplayID, it.Code, it.Name, it.Category, it.UOM, it.UnitCost, it.TaxRate, it.Description, it.SourceOrderID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("procurement: promote item: %w", err)
	}
	return id, nil
}

// Scan helpers

const lineColumns = `id, po_id, item_id, name, quantity, unit_cost, tax_rate, total_price, temp_item, indent_links`

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listLines(ctx context.Context, q querier, poID int64) ([]Line, error) {
	rows, err := q.Query(ctx, `SELECT `+lineColumns+` FROM po_items WHERE po_id=$1 ORDER BY id`, poID)
	if err != nil {
		return nil, fmt.Errorf("procurement: list lines: %w", err)
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func scanLine(row pgx.Row) (Line, error) {
	var (
		line     Line
		itemID   *int64
		tempItem []byte
		links    []byte
	)
	err := row.Scan(&line.ID, &line.POID, &itemID, &line.Name, &line.Quantity, &line.UnitCost,
		&line.TaxRate, &line.TotalPrice, &tempItem, &links)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Line{}, pgx.ErrNoRows
		}
		return Line{}, fmt.Errorf("procurement: scan line: %w", err)
	}
	if itemID != nil {
		line.Ref = ResolvedRef(*itemID)
	} else {
		var temp *TempItemData
		if len(tempItem) > 0 {
			temp = &TempItemData{}
			if err := json.Unmarshal(tempItem, temp); err != nil {
				return Line{}, fmt.Errorf("procurement: decode temp item: %w", err)
			}
		}
		line.Ref = PendingRef(temp)
	}
	if len(links) > 0 {
		if err := json.Unmarshal(links, &line.IndentLinks); err != nil {
			return Line{}, fmt.Errorf("procurement: decode indent links: %w", err)
		}
	}
	return line, nil
}

func scanPO(row pgx.Row) (PurchaseOrder, error) {
	var (
		po         PurchaseOrder
		tempVendor []byte
	)
	err := row.Scan(&po.ID, &po.TenantID, &po.DisplayID, &po.BranchID, &po.PRNo, &po.VendorID, &po.VendorName,
		&po.Type, &po.Status, &po.TotalAmount, &po.RTVCredit, &po.LinkedRTVID,
		&po.MasterFlags.AddToVendorMaster, &po.MasterFlags.AddToInventoryMaster, &tempVendor,
		&po.DeliveryDate, &po.CreatedBy, &po.ApprovedBy, &po.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, ErrNotFound
		}
		return PurchaseOrder{}, fmt.Errorf("procurement: scan order: %w", err)
	}
	if len(tempVendor) > 0 {
		po.TempVendor = &TempVendorData{}
		if err := json.Unmarshal(tempVendor, po.TempVendor); err != nil {
			return PurchaseOrder{}, fmt.Errorf("procurement: decode temp vendor: %w", err)
		}
	}
	return po, nil
}

func marshalNullable(v any) ([]byte, error) {
	switch val := v.(type) {
	case *TempVendorData:
		if val == nil {
			return nil, nil
		}
	case *TempItemData:
		if val == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}
