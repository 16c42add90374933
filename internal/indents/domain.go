// Package indents manages branch material requests. Approved indent lines
// become the procurement pool that purchase orders draw from.
package indents

import (
	"fmt"
	"time"

	"github.com/larder-erp/larder-erp/internal/platform/httpx"
)

// Status is the indent document lifecycle state.
type Status string

// Indent statuses.
const (
	StatusOpen            Status = "OPEN"
	StatusApproved        Status = "APPROVED"
	StatusRejected        Status = "REJECTED"
	StatusCancelled       Status = "CANCELLED"
	StatusClosed          Status = "CLOSED"
	StatusIssued          Status = "ISSUED"
	StatusPartiallyIssued Status = "PARTIALLY_ISSUED"
)

// ProcurementStatus tracks whether a line has been drawn into a purchase
// order.
type ProcurementStatus string

// Line procurement statuses.
const (
	ProcurementPending ProcurementStatus = "PENDING"
	ProcurementInPO    ProcurementStatus = "IN_PO"
)

// Entry types.
const (
	EntryTypeOpen    = "OPEN"
	EntryTypePackage = "PACKAGE"
)

// Indent is a material request raised by a work area.
type Indent struct {
	ID           int64      `json:"id"`
	TenantID     int64      `json:"tenant_id"`
	DisplayID    string     `json:"display_id"`
	BranchID     int64      `json:"branch_id"`
	WorkAreaID   int64      `json:"work_area_id"`
	EntryType    string     `json:"entry_type"`
	Status       Status     `json:"status"`
	IsPoRaised   bool       `json:"is_po_raised"`
	IndentDate   time.Time  `json:"indent_date"`
	RequiredDate *time.Time `json:"required_date,omitempty"`
	Remarks      string     `json:"remarks,omitempty"`
	CreatedBy    int64      `json:"created_by"`
	ApprovedBy   *int64     `json:"approved_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	Items        []Item     `json:"items,omitempty"`
}

// Item is one requested line. PendingQty is the remainder a purchase order
// may still consume: approved quantity minus what earlier orders took.
type Item struct {
	ID                int64             `json:"id"`
	IndentID          int64             `json:"indent_id"`
	ItemID            int64             `json:"item_id"`
	RequestedQty      float64           `json:"requested_qty"`
	ApprovedQty       float64           `json:"approved_qty"`
	POQty             float64           `json:"po_qty"`
	PendingQty        float64           `json:"pending_qty"`
	ProcurementStatus ProcurementStatus `json:"procurement_status"`
}

// Sentinel errors for indent operations.
var (
	ErrNotFound     = fmt.Errorf("indents: %w", httpx.ErrNotFound)
	ErrInvalidState = fmt.Errorf("indents: %w", httpx.ErrInvalidState)
	ErrValidation   = fmt.Errorf("indents: %w", httpx.ErrValidation)
)
