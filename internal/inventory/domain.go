// Package inventory tracks stock balances per tenant, branch, work area and
// item. Balance mutations always run inside the caller's transaction so a
// failed document never moves stock.
package inventory

import (
	"fmt"
	"time"

	"github.com/larder-erp/larder-erp/internal/platform/httpx"
)

// Scope pins a balance to its owning location.
type Scope struct {
	TenantID   int64
	BranchID   int64
	WorkAreaID int64
	ItemID     int64
}

// StockBalance is the current on-hand quantity for a scope.
type StockBalance struct {
	TenantID   int64     `json:"tenant_id"`
	BranchID   int64     `json:"branch_id"`
	WorkAreaID int64     `json:"work_area_id"`
	ItemID     int64     `json:"item_id"`
	ItemName   string    `json:"item_name,omitempty"`
	ItemCode   string    `json:"item_code,omitempty"`
	Qty        float64   `json:"qty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Sentinel errors for stock movements.
var (
	ErrInsufficientStock = fmt.Errorf("inventory: insufficient stock: %w", httpx.ErrInvalidState)
	ErrInvalidQuantity   = fmt.Errorf("inventory: %w", httpx.ErrValidation)
)
