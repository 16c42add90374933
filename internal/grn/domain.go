// Package grn records goods receipts against approved purchase orders and
// moves received stock into the destination work area.
package grn

import (
	"fmt"
	"time"

	"github.com/larder-erp/larder-erp/internal/platform/httpx"
)

// StatusPosted is the only receipt status; receipts are immutable once
// recorded.
const StatusPosted = "POSTED"

// GoodsReceipt is a posted receipt document.
type GoodsReceipt struct {
	ID              int64     `json:"id"`
	TenantID        int64     `json:"tenant_id"`
	DisplayID       string    `json:"display_id"`
	BranchID        int64     `json:"branch_id"`
	WorkAreaID      int64     `json:"work_area_id"`
	POID            int64     `json:"po_id"`
	VendorID        int64     `json:"vendor_id"`
	VendorInvoiceNo string    `json:"vendor_invoice_no,omitempty"`
	Status          string    `json:"status"`
	ReceivedAt      time.Time `json:"received_at"`
	CreatedBy       int64     `json:"created_by"`
	Items           []Line    `json:"items,omitempty"`
}

// Line is one received item line.
type Line struct {
	ID          int64   `json:"id"`
	GRNID       int64   `json:"grn_id"`
	ItemID      int64   `json:"item_id"`
	ReceivedQty float64 `json:"received_qty"`
	UnitCost    float64 `json:"unit_cost"`
}

// PORef is the slice of the purchase order a receipt validates against.
type PORef struct {
	ID        int64
	DisplayID string
	Status    string
	VendorID  *int64
}

// Sentinel errors for receipt operations.
var (
	ErrNotFound     = fmt.Errorf("grn: %w", httpx.ErrNotFound)
	ErrInvalidState = fmt.Errorf("grn: %w", httpx.ErrInvalidState)
	ErrValidation   = fmt.Errorf("grn: %w", httpx.ErrValidation)
)
