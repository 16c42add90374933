// Package procurement implements the purchase order lifecycle: direct and
// indent-derived creation, quantity patching, approval with master-data
// promotion for special orders, reversion, cancellation and deletion. Every
// multi-document mutation runs in a single transaction.
package procurement

import (
	"fmt"
	"math"
	"time"

	"github.com/larder-erp/larder-erp/internal/platform/httpx"
)

// Status is the purchase order lifecycle state.
type Status string

// Purchase order statuses. statusLegacyOpen is tolerated on approval for
// documents created before the PENDING rename and is otherwise never written.
const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusCancelled Status = "CANCELLED"

	statusLegacyOpen Status = "OPEN"
)

// OrderType distinguishes ad-hoc orders from special orders that carry
// temporary vendor/item data.
type OrderType string

// Order types.
const (
	TypeStandard OrderType = "STANDARD"
	TypeSpecial  OrderType = "SPECIAL"
)

// MasterFlags marks which master-data promotions an approval should run.
type MasterFlags struct {
	AddToVendorMaster    bool `json:"add_to_vendor_master"`
	AddToInventoryMaster bool `json:"add_to_inventory_master"`
}

// TempVendorData carries vendor details captured on a special order before
// the vendor exists in the master.
type TempVendorData struct {
	GSTNo      string   `json:"gst_no,omitempty"`
	PANNo      string   `json:"pan_no,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

// TempItemData carries item details captured on a special order line before
// the item exists in the catalog.
type TempItemData struct {
	SaveToMaster bool   `json:"save_to_master"`
	Code         string `json:"code,omitempty"`
	Category     string `json:"category,omitempty"`
	UOM          string `json:"uom,omitempty"`
	Description  string `json:"description,omitempty"`
}

// LineRef is the two-state reference of an order line: resolved to a catalog
// item, or pending with optional temporary item data until promotion (or
// forever, when the line is never saved to master).
type LineRef struct {
	itemID int64
	temp   *TempItemData
}

// ResolvedRef references an existing catalog item.
func ResolvedRef(itemID int64) LineRef {
	return LineRef{itemID: itemID}
}

// PendingRef references a not-yet-mastered item.
func PendingRef(temp *TempItemData) LineRef {
	return LineRef{temp: temp}
}

// Resolved reports whether the line points at a catalog item.
func (r LineRef) Resolved() bool {
	return r.itemID != 0
}

// ItemID returns the catalog item id when resolved.
func (r LineRef) ItemID() (int64, bool) {
	return r.itemID, r.itemID != 0
}

// Temp returns the temporary item data of a pending reference, nil otherwise.
func (r LineRef) Temp() *TempItemData {
	if r.itemID != 0 {
		return nil
	}
	return r.temp
}

// IndentLink records how much of an order line was drawn from one indent
// line, so receipts and returns can flow back proportionally.
type IndentLink struct {
	IndentItemID int64   `json:"indent_item_id"`
	Quantity     float64 `json:"quantity"`
}

// PurchaseOrder is the order header. TotalAmount is derived: it is recomputed
// from the full line set after every line mutation, never adjusted
// incrementally.
type PurchaseOrder struct {
	ID           int64
	TenantID     int64
	DisplayID    string
	BranchID     int64
	PRNo         string
	VendorID     *int64
	VendorName   string
	Type         OrderType
	Status       Status
	TotalAmount  float64
	RTVCredit    float64
	LinkedRTVID  *int64
	MasterFlags  MasterFlags
	TempVendor   *TempVendorData
	DeliveryDate *time.Time
	CreatedBy    int64
	ApprovedBy   *int64
	CreatedAt    time.Time
}

// Line is one order line.
type Line struct {
	ID          int64
	POID        int64
	Ref         LineRef
	Name        string
	Quantity    float64
	UnitCost    float64
	TaxRate     float64
	TotalPrice  float64
	IndentLinks []IndentLink
}

// CatalogItem is the slice of the item master the aggregator prices lines
// with.
type CatalogItem struct {
	ID       int64
	Name     string
	Code     string
	UOM      string
	UnitCost float64
	TaxRate  float64
}

// PoolEntry is one procurement pool row: an approved indent line not yet
// attached to any purchase order.
type PoolEntry struct {
	IndentItemID    int64   `json:"indent_item_id"`
	IndentID        int64   `json:"indent_id"`
	IndentDisplayID string  `json:"indent_display_id"`
	WorkAreaID      int64   `json:"work_area_id"`
	ItemID          int64   `json:"item_id"`
	ItemName        string  `json:"item_name"`
	ItemCode        string  `json:"item_code"`
	UOM             string  `json:"uom"`
	ApprovedQty     float64 `json:"approved_qty"`
	POQty           float64 `json:"po_qty"`
	PendingQty      float64 `json:"pending_qty"`
}

// Sentinel errors for order operations.
var (
	ErrNotFound     = fmt.Errorf("procurement: %w", httpx.ErrNotFound)
	ErrInvalidState = fmt.Errorf("procurement: %w", httpx.ErrInvalidState)
	ErrValidation   = fmt.Errorf("procurement: %w", httpx.ErrValidation)
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// lineTotal prices one line: quantity x unit cost, grossed up by tax.
func lineTotal(qty, unitCost, taxRate float64) float64 {
	return round2(qty * unitCost * (1 + taxRate/100))
}

// orderTotal sums line totals and applies the return credit, clamped at zero.
func orderTotal(lines []Line, rtvCredit float64) float64 {
	var sum float64
	for _, l := range lines {
		sum += l.TotalPrice
	}
	total := round2(sum - rtvCredit)
	if total < 0 {
		return 0
	}
	return total
}
