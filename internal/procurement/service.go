package procurement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/larder-erp/larder-erp/internal/audit"
	"github.com/larder-erp/larder-erp/internal/indents"
	"github.com/larder-erp/larder-erp/internal/sequence"
	"github.com/larder-erp/larder-erp/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetPO(ctx context.Context, tenantID, id int64) (PurchaseOrder, []Line, error)
	ListPOs(ctx context.Context, tenantID, branchID int64, status Status, p shared.Pagination) ([]PurchaseOrder, error)
	ListProcurementPool(ctx context.Context, tenantID, branchID int64) ([]PoolEntry, error)
}

// SequencePort issues display identifiers.
type SequencePort interface {
	Next(ctx context.Context, prefix string) (string, error)
}

// Service orchestrates the purchase order lifecycle.
type Service struct {
	repo  RepositoryPort
	seq   SequencePort
	audit audit.Recorder
}

// NewService constructs a procurement service.
func NewService(repo RepositoryPort, seq SequencePort, rec audit.Recorder) *Service {
	return &Service{repo: repo, seq: seq, audit: rec}
}

// CreateInput describes a direct (non pool-derived) order.
type CreateInput struct {
	Type         OrderType
	PRNo         string
	VendorID     *int64
	VendorName   string
	DeliveryDate *time.Time
	RTVCredit    float64
	LinkedRTVID  *int64
	MasterFlags  MasterFlags
	TempVendor   *TempVendorData
	Items        []CreateLineInput
}

// CreateLineInput is one caller-supplied order line. Either ItemID or a name
// plus optional temporary item data must be present.
type CreateLineInput struct {
	ItemID      *int64
	Name        string
	Quantity    float64
	UnitCost    float64
	TaxRate     float64
	IndentLinks []IndentLink
	TempItem    *TempItemData
}

// Create builds an order directly from caller-supplied lines. Special orders
// get the SO number prefix. A linked return credit is consumed atomically
// with the order; lines carrying indent links run the same pool bookkeeping
// as pool-derived creation.
func (s *Service) Create(ctx context.Context, sess shared.Session, in CreateInput) (PurchaseOrder, []Line, error) {
	orderType := in.Type
	if orderType == "" {
		orderType = TypeStandard
	}
	if orderType != TypeStandard && orderType != TypeSpecial {
		return PurchaseOrder{}, nil, fmt.Errorf("%w: unknown order type %s", ErrValidation, in.Type)
	}
	if len(in.Items) == 0 {
		return PurchaseOrder{}, nil, fmt.Errorf("%w: at least one line is required", ErrValidation)
	}
	if in.RTVCredit < 0 {
		return PurchaseOrder{}, nil, fmt.Errorf("%w: rtv credit must not be negative", ErrValidation)
	}
	for _, line := range in.Items {
		if err := validateLine(line); err != nil {
			return PurchaseOrder{}, nil, err
		}
	}
	if in.LinkedRTVID != nil && in.RTVCredit == 0 {
		return PurchaseOrder{}, nil, fmt.Errorf("%w: linked rtv requires a credit amount", ErrValidation)
	}

	prefix := sequence.PrefixPurchaseOrder
	if orderType == TypeSpecial {
		prefix = sequence.PrefixSpecialOrder
	}
	displayID, err := s.seq.Next(ctx, prefix)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}

	po := PurchaseOrder{
		TenantID:     sess.TenantID,
		DisplayID:    displayID,
		BranchID:     sess.BranchID,
		PRNo:         in.PRNo,
		VendorID:     in.VendorID,
		VendorName:   strings.TrimSpace(in.VendorName),
		Type:         orderType,
		Status:       StatusPending,
		RTVCredit:    in.RTVCredit,
		LinkedRTVID:  in.LinkedRTVID,
		MasterFlags:  in.MasterFlags,
		TempVendor:   in.TempVendor,
		DeliveryDate: in.DeliveryDate,
		CreatedBy:    sess.UserID,
		CreatedAt:    time.Now().UTC(),
	}

	var lines []Line
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreatePO(ctx, po)
		if err != nil {
			return err
		}
		po.ID = id

		if in.LinkedRTVID != nil {
			if err := tx.MarkRTVUsed(ctx, sess.TenantID, *in.LinkedRTVID, id); err != nil {
				return err
			}
		}

		var links []IndentLink
		for _, input := range in.Items {
			line := Line{
				POID:        id,
				Name:        input.Name,
				Quantity:    input.Quantity,
				UnitCost:    input.UnitCost,
				TaxRate:     input.TaxRate,
				TotalPrice:  lineTotal(input.Quantity, input.UnitCost, input.TaxRate),
				IndentLinks: input.IndentLinks,
			}
			if input.ItemID != nil {
				line.Ref = ResolvedRef(*input.ItemID)
			} else {
				line.Ref = PendingRef(input.TempItem)
			}
			lineID, err := tx.InsertLine(ctx, line)
			if err != nil {
				return err
			}
			line.ID = lineID
			lines = append(lines, line)
			links = append(links, input.IndentLinks...)
		}

		if len(links) > 0 {
			if err := consumeIndentLinks(ctx, tx, sess.TenantID, links); err != nil {
				return err
			}
		}

		po.TotalAmount = orderTotal(lines, po.RTVCredit)
		return tx.SetTotalAmount(ctx, id, po.TotalAmount)
	})
	if err != nil {
		return PurchaseOrder{}, nil, err
	}

	s.record(ctx, sess, "PO_CREATE", po.DisplayID, map[string]any{
		"type":  string(po.Type),
		"total": po.TotalAmount,
		"lines": len(lines),
	})
	return po, lines, nil
}

// FromIndentInput selects pool lines to aggregate into one order.
type FromIndentInput struct {
	IndentItemIDs []int64
	VendorID      int64
	DeliveryDate  *time.Time
}

// CreateFromIndentItems aggregates the selected pool lines by catalog item
// into a single PENDING order, pricing lines from the current catalog. Every
// selected line must still be in the pool and no parent indent may already
// have an order raised; one stale selection aborts the whole batch.
func (s *Service) CreateFromIndentItems(ctx context.Context, sess shared.Session, in FromIndentInput) (PurchaseOrder, []Line, error) {
	if len(in.IndentItemIDs) == 0 {
		return PurchaseOrder{}, nil, fmt.Errorf("%w: at least one indent item is required", ErrValidation)
	}
	if in.VendorID == 0 {
		return PurchaseOrder{}, nil, fmt.Errorf("%w: vendor is required", ErrValidation)
	}
	ids := dedupeIDs(in.IndentItemIDs)

	displayID, err := s.seq.Next(ctx, sequence.PrefixPurchaseOrder)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}

	po := PurchaseOrder{
		TenantID:     sess.TenantID,
		DisplayID:    displayID,
		BranchID:     sess.BranchID,
		VendorID:     &in.VendorID,
		Type:         TypeStandard,
		Status:       StatusPending,
		DeliveryDate: in.DeliveryDate,
		CreatedBy:    sess.UserID,
		CreatedAt:    time.Now().UTC(),
	}

	var lines []Line
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		items, err := tx.ListIndentItemsForUpdate(ctx, sess.TenantID, ids)
		if err != nil {
			return err
		}
		if err := requirePendingItems(ids, items); err != nil {
			return err
		}

		var parentIDs []int64
		seenParents := map[int64]struct{}{}
		for _, it := range items {
			if _, ok := seenParents[it.IndentID]; !ok {
				seenParents[it.IndentID] = struct{}{}
				parentIDs = append(parentIDs, it.IndentID)
			}
		}
		headers, err := tx.GetIndentHeadersForUpdate(ctx, sess.TenantID, parentIDs)
		if err != nil {
			return err
		}
		for _, ind := range headers {
			if ind.IsPoRaised {
				return fmt.Errorf("%w: indent %s already has a purchase order raised", ErrInvalidState, ind.DisplayID)
			}
		}

		// Aggregate by catalog item, preserving first-seen order; each
		// contributing indent line keeps its own link quantity.
		type group struct {
			qty   float64
			links []IndentLink
		}
		groups := map[int64]*group{}
		var order []int64
		var links []IndentLink
		var catalogIDs []int64
		for _, it := range items {
			qty := it.PendingQty
			if qty <= 0 {
				qty = it.ApprovedQty - it.POQty
			}
			if qty <= 0 {
				return fmt.Errorf("%w: indent item %d has nothing left to procure", ErrInvalidState, it.ID)
			}
			g, ok := groups[it.ItemID]
			if !ok {
				g = &group{}
				groups[it.ItemID] = g
				order = append(order, it.ItemID)
				catalogIDs = append(catalogIDs, it.ItemID)
			}
			g.qty += qty
			link := IndentLink{IndentItemID: it.ID, Quantity: qty}
			g.links = append(g.links, link)
			links = append(links, link)
		}

		catalog, err := tx.GetCatalogItems(ctx, sess.TenantID, catalogIDs)
		if err != nil {
			return err
		}
		for _, itemID := range order {
			if _, ok := catalog[itemID]; !ok {
				return fmt.Errorf("%w: catalog item %d", ErrNotFound, itemID)
			}
		}

		id, err := tx.CreatePO(ctx, po)
		if err != nil {
			return err
		}
		po.ID = id

		for _, itemID := range order {
			g := groups[itemID]
			ci := catalog[itemID]
			line := Line{
				POID:        id,
				Ref:         ResolvedRef(itemID),
				Name:        ci.Name,
				Quantity:    g.qty,
				UnitCost:    ci.UnitCost,
				TaxRate:     ci.TaxRate,
				TotalPrice:  lineTotal(g.qty, ci.UnitCost, ci.TaxRate),
				IndentLinks: g.links,
			}
			lineID, err := tx.InsertLine(ctx, line)
			if err != nil {
				return err
			}
			line.ID = lineID
			lines = append(lines, line)
		}

		if err := consumeIndentLinks(ctx, tx, sess.TenantID, links); err != nil {
			return err
		}

		po.TotalAmount = orderTotal(lines, 0)
		return tx.SetTotalAmount(ctx, id, po.TotalAmount)
	})
	if err != nil {
		return PurchaseOrder{}, nil, err
	}

	s.record(ctx, sess, "PO_CREATE_FROM_INDENTS", po.DisplayID, map[string]any{
		"indent_items": len(ids),
		"total":        po.TotalAmount,
		"lines":        len(lines),
	})
	return po, lines, nil
}

// requirePendingItems checks every requested indent line came back from the
// tenant-scoped fetch and is still in the pool. A line another tenant owns is
// indistinguishable from one that does not exist.
func requirePendingItems(ids []int64, items []indents.Item) error {
	byID := make(map[int64]indents.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	for _, id := range ids {
		it, ok := byID[id]
		if !ok {
			return fmt.Errorf("%w: indent item %d", ErrNotFound, id)
		}
		if it.ProcurementStatus != indents.ProcurementPending {
			return fmt.Errorf("%w: indent item %d is already part of a purchase order", ErrInvalidState, id)
		}
	}
	return nil
}

// consumeIndentLinks is the shared pool bookkeeping path: it verifies every
// linked indent line is still consumable, applies the consumed quantities and
// raises the parent indent flags. Direct and pool-derived creation both go
// through here.
func consumeIndentLinks(ctx context.Context, tx TxRepository, tenantID int64, links []IndentLink) error {
	totals := map[int64]float64{}
	var ids []int64
	for _, link := range links {
		if link.Quantity <= 0 {
			return fmt.Errorf("%w: indent link quantity must be positive", ErrValidation)
		}
		if _, ok := totals[link.IndentItemID]; !ok {
			ids = append(ids, link.IndentItemID)
		}
		totals[link.IndentItemID] += link.Quantity
	}

	items, err := tx.ListIndentItemsForUpdate(ctx, tenantID, ids)
	if err != nil {
		return err
	}
	if err := requirePendingItems(ids, items); err != nil {
		return err
	}

	var parentIDs []int64
	seenParents := map[int64]struct{}{}
	for _, it := range items {
		remaining := it.PendingQty
		if remaining <= 0 {
			remaining = it.ApprovedQty - it.POQty
		}
		if totals[it.ID] > remaining {
			return fmt.Errorf("%w: indent item %d has only %.2f left to procure", ErrInvalidState, it.ID, remaining)
		}
		if _, ok := seenParents[it.IndentID]; !ok {
			seenParents[it.IndentID] = struct{}{}
			parentIDs = append(parentIDs, it.IndentID)
		}
	}
	headers, err := tx.GetIndentHeadersForUpdate(ctx, tenantID, parentIDs)
	if err != nil {
		return err
	}
	for _, ind := range headers {
		if ind.IsPoRaised {
			return fmt.Errorf("%w: indent %s already has a purchase order raised", ErrInvalidState, ind.DisplayID)
		}
	}

	for _, it := range items {
		if err := tx.ConsumeIndentItem(ctx, it.ID, totals[it.ID]); err != nil {
			return err
		}
	}
	return tx.MarkIndentsPoRaised(ctx, parentIDs)
}

// UpdateInput carries the header fields editable while PENDING.
type UpdateInput struct {
	DeliveryDate *time.Time
	VendorID     *int64
}

// Update reassigns the delivery date or vendor of a PENDING order. Existing
// lines keep their prices on vendor change.
func (s *Service) Update(ctx context.Context, sess shared.Session, poID int64, in UpdateInput) error {
	var displayID string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		po, err := tx.GetPOForUpdate(ctx, sess.TenantID, poID)
		if err != nil {
			return err
		}
		if err := requireStatus(po, StatusPending, "updated"); err != nil {
			return err
		}
		displayID = po.DisplayID
		return tx.UpdateHeader(ctx, poID, in.DeliveryDate, in.VendorID)
	})
	if err != nil {
		return err
	}
	s.record(ctx, sess, "PO_UPDATE", displayID, nil)
	return nil
}

// PatchItemQuantity changes one line's quantity on a PENDING order, reprices
// the line and recomputes the order total from the full line set.
func (s *Service) PatchItemQuantity(ctx context.Context, sess shared.Session, poID, itemID int64, qty float64) (PurchaseOrder, error) {
	if qty <= 0 {
		return PurchaseOrder{}, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	var (
		po     PurchaseOrder
		oldQty float64
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		po, err = tx.GetPOForUpdate(ctx, sess.TenantID, poID)
		if err != nil {
			return err
		}
		if err := requireStatus(po, StatusPending, "updated"); err != nil {
			return err
		}
		line, err := tx.GetLineForUpdate(ctx, poID, itemID)
		if err != nil {
			return err
		}
		oldQty = line.Quantity
		if err := tx.SetLineQuantity(ctx, line.ID, qty, lineTotal(qty, line.UnitCost, line.TaxRate)); err != nil {
			return err
		}
		lines, err := tx.ListLines(ctx, poID)
		if err != nil {
			return err
		}
		po.TotalAmount = orderTotal(lines, po.RTVCredit)
		return tx.SetTotalAmount(ctx, poID, po.TotalAmount)
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.record(ctx, sess, "PO_PATCH_QUANTITY", po.DisplayID, map[string]any{
		"item_id": itemID,
		"old_qty": oldQty,
		"new_qty": qty,
		"total":   po.TotalAmount,
	})
	return po, nil
}

// Approve moves a PENDING order to APPROVED. Special orders run master-data
// promotion inside the same transaction, so a promotion failure rolls the
// approval back too.
func (s *Service) Approve(ctx context.Context, sess shared.Session, poID int64) (PurchaseOrder, error) {
	var po PurchaseOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		po, err = tx.GetPOForUpdate(ctx, sess.TenantID, poID)
		if err != nil {
			return err
		}
		if po.Status != StatusPending && po.Status != statusLegacyOpen {
			return fmt.Errorf("%w: purchase order %s is %s, only PENDING orders can be approved", ErrInvalidState, po.DisplayID, po.Status)
		}
		if err := tx.UpdateStatus(ctx, poID, StatusApproved); err != nil {
			return err
		}
		if err := tx.SetApproval(ctx, poID, sess.UserID); err != nil {
			return err
		}
		po.Status = StatusApproved
		approver := sess.UserID
		po.ApprovedBy = &approver

		if po.Type == TypeSpecial {
			return s.promote(ctx, tx, &po)
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.record(ctx, sess, "PO_APPROVE", po.DisplayID, map[string]any{"type": string(po.Type)})
	return po, nil
}

// Revert moves an APPROVED order back to PENDING and clears the approver.
// Master-data promotion already performed stays in place.
func (s *Service) Revert(ctx context.Context, sess shared.Session, poID int64) (PurchaseOrder, error) {
	var po PurchaseOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		po, err = tx.GetPOForUpdate(ctx, sess.TenantID, poID)
		if err != nil {
			return err
		}
		if po.Status != StatusApproved {
			return fmt.Errorf("%w: purchase order %s is %s, only APPROVED orders can be reverted", ErrInvalidState, po.DisplayID, po.Status)
		}
		if err := tx.UpdateStatus(ctx, poID, StatusPending); err != nil {
			return err
		}
		if err := tx.ClearApproval(ctx, poID); err != nil {
			return err
		}
		po.Status = StatusPending
		po.ApprovedBy = nil
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.record(ctx, sess, "PO_REVERT", po.DisplayID, nil)
	return po, nil
}

// Cancel moves a PENDING order to CANCELLED.
func (s *Service) Cancel(ctx context.Context, sess shared.Session, poID int64) error {
	var displayID string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		po, err := tx.GetPOForUpdate(ctx, sess.TenantID, poID)
		if err != nil {
			return err
		}
		if err := requireStatus(po, StatusPending, "cancelled"); err != nil {
			return err
		}
		displayID = po.DisplayID
		return tx.UpdateStatus(ctx, poID, StatusCancelled)
	})
	if err != nil {
		return err
	}
	s.record(ctx, sess, "PO_CANCEL", displayID, nil)
	return nil
}

// Delete removes a PENDING order and its lines.
func (s *Service) Delete(ctx context.Context, sess shared.Session, poID int64) error {
	var displayID string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		po, err := tx.GetPOForUpdate(ctx, sess.TenantID, poID)
		if err != nil {
			return err
		}
		if err := requireStatus(po, StatusPending, "deleted"); err != nil {
			return err
		}
		displayID = po.DisplayID
		if err := tx.DeleteLines(ctx, poID); err != nil {
			return err
		}
		return tx.DeletePO(ctx, poID)
	})
	if err != nil {
		return err
	}
	s.record(ctx, sess, "PO_DELETE", displayID, nil)
	return nil
}

// Get returns one order with its lines.
func (s *Service) Get(ctx context.Context, tenantID, poID int64) (PurchaseOrder, []Line, error) {
	return s.repo.GetPO(ctx, tenantID, poID)
}

// List returns branch orders.
func (s *Service) List(ctx context.Context, tenantID, branchID int64, status Status, p shared.Pagination) ([]PurchaseOrder, error) {
	return s.repo.ListPOs(ctx, tenantID, branchID, status, p)
}

// ProcurementPool returns the approved indent lines still open for
// procurement.
func (s *Service) ProcurementPool(ctx context.Context, tenantID, branchID int64) ([]PoolEntry, error) {
	return s.repo.ListProcurementPool(ctx, tenantID, branchID)
}

func (s *Service) record(ctx context.Context, sess shared.Session, action, entityID string, details map[string]any) {
	_ = s.audit.Record(ctx, audit.Entry{
		TenantID:    sess.TenantID,
		BranchID:    sess.BranchID,
		Action:      action,
		Entity:      "purchase_order",
		EntityID:    entityID,
		PerformedBy: sess.UserID,
		Details:     details,
	})
}

func requireStatus(po PurchaseOrder, want Status, verb string) error {
	if po.Status != want {
		return fmt.Errorf("%w: purchase order %s is %s, only %s orders can be %s", ErrInvalidState, po.DisplayID, po.Status, want, verb)
	}
	return nil
}

func validateLine(line CreateLineInput) error {
	if line.ItemID == nil && strings.TrimSpace(line.Name) == "" {
		return fmt.Errorf("%w: line needs an item or a name", ErrValidation)
	}
	if line.Quantity <= 0 {
		return fmt.Errorf("%w: line quantity must be positive", ErrValidation)
	}
	if line.UnitCost < 0 {
		return fmt.Errorf("%w: unit cost must not be negative", ErrValidation)
	}
	if line.TaxRate < 0 || line.TaxRate > 100 {
		return fmt.Errorf("%w: tax rate must be between 0 and 100", ErrValidation)
	}
	return nil
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
