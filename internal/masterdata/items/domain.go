// Package items manages the item catalog. Items enter either through manual
// registration or by promotion from an approved special order.
package items

import (
	"fmt"
	"time"

	"github.com/larder-erp/larder-erp/internal/platform/httpx"
)

// Origin of an item record.
const (
	CreatedFromManual       = "MANUAL"
	CreatedFromSpecialOrder = "SPECIAL_ORDER"
)

// Item is a catalog entry. Code is unique per tenant and is the dedup key
// during promotion.
type Item struct {
	ID            int64     `json:"id"`
	TenantID      int64     `json:"tenant_id"`
	DisplayID     string    `json:"display_id"`
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	Category      string    `json:"category,omitempty"`
	UOM           string    `json:"uom,omitempty"`
	UnitCost      float64   `json:"unit_cost"`
	TaxRate       float64   `json:"tax_rate"`
	Description   string    `json:"description,omitempty"`
	Status        string    `json:"status"`
	CreatedFrom   string    `json:"created_from"`
	SourceOrderID *int64    `json:"source_order_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Sentinel errors for the item catalog.
var (
	ErrNotFound   = fmt.Errorf("items: %w", httpx.ErrNotFound)
	ErrValidation = fmt.Errorf("items: %w", httpx.ErrValidation)
	ErrDuplicate  = fmt.Errorf("items: %w", httpx.ErrDuplicate)
)
