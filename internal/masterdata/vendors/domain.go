// Package vendors manages the vendor master. Vendors enter either through
// manual registration or by promotion from an approved special order.
package vendors

import (
	"fmt"
	"time"

	"github.com/larder-erp/larder-erp/internal/platform/httpx"
)

// Origin of a vendor record.
const (
	CreatedFromManual       = "MANUAL"
	CreatedFromSpecialOrder = "SPECIAL_ORDER"
)

// Vendor is a supplier in the tenant's vendor master.
type Vendor struct {
	ID            int64     `json:"id"`
	TenantID      int64     `json:"tenant_id"`
	DisplayID     string    `json:"display_id"`
	Name          string    `json:"name"`
	GSTNo         string    `json:"gst_no,omitempty"`
	PANNo         string    `json:"pan_no,omitempty"`
	Categories    []string  `json:"categories,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Email         string    `json:"email,omitempty"`
	Address       string    `json:"address,omitempty"`
	Status        string    `json:"status"`
	CreatedFrom   string    `json:"created_from"`
	SourceOrderID *int64    `json:"source_order_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Sentinel errors for the vendor master.
var (
	ErrNotFound   = fmt.Errorf("vendors: %w", httpx.ErrNotFound)
	ErrValidation = fmt.Errorf("vendors: %w", httpx.ErrValidation)
	ErrDuplicate  = fmt.Errorf("vendors: %w", httpx.ErrDuplicate)
)
