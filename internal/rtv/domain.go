// Package rtv records returns to vendor against posted goods receipts. A
// return deducts stock immediately and its value becomes a credit a later
// purchase order can consume once.
package rtv

import (
	"fmt"
	"math"
	"time"

	"github.com/larder-erp/larder-erp/internal/platform/httpx"
)

// StatusApproved is the only return status; returns are effective as soon as
// they are recorded.
const StatusApproved = "APPROVED"

// RTV is a posted return document.
type RTV struct {
	ID          int64     `json:"id"`
	TenantID    int64     `json:"tenant_id"`
	DisplayID   string    `json:"display_id"`
	BranchID    int64     `json:"branch_id"`
	GRNID       int64     `json:"grn_id"`
	VendorID    int64     `json:"vendor_id"`
	Status      string    `json:"status"`
	TotalAmount float64   `json:"total_amount"`
	Reason      string    `json:"reason,omitempty"`
	IsUsed      bool      `json:"is_used"`
	UsedInPOID  *int64    `json:"used_in_po_id,omitempty"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	Items       []Line    `json:"items,omitempty"`
}

// Line is one returned item line.
type Line struct {
	ID       int64   `json:"id"`
	RTVID    int64   `json:"rtv_id"`
	ItemID   int64   `json:"item_id"`
	Quantity float64 `json:"quantity"`
	UnitCost float64 `json:"unit_cost"`
}

// GRNRef is the slice of the goods receipt a return validates against.
type GRNRef struct {
	ID         int64
	DisplayID  string
	BranchID   int64
	WorkAreaID int64
	VendorID   int64
}

// Sentinel errors for return operations.
var (
	ErrNotFound     = fmt.Errorf("rtv: %w", httpx.ErrNotFound)
	ErrInvalidState = fmt.Errorf("rtv: %w", httpx.ErrInvalidState)
	ErrValidation   = fmt.Errorf("rtv: %w", httpx.ErrValidation)
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
