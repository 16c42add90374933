package procurement

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/larder-erp/larder-erp/internal/audit"
	"github.com/larder-erp/larder-erp/internal/indents"
	"github.com/larder-erp/larder-erp/internal/shared"
)

type fakeVendor struct {
	ID    int64
	Name  string
	GSTNo string
}

type fakeRTV struct {
	ID       int64
	TenantID int64
	IsUsed   bool
	UsedInPO int64
}

type fakeState struct {
	pos           map[int64]PurchaseOrder
	lines         map[int64]Line
	indentItems   map[int64]indents.Item
	indentHeaders map[int64]indents.Indent
	catalog       map[int64]CatalogItem
	vendors       map[int64]fakeVendor
	rtvs          map[int64]fakeRTV
	nextID        int64
}

func (s *fakeState) clone() *fakeState {
	out := &fakeState{
		pos:           make(map[int64]PurchaseOrder, len(s.pos)),
		lines:         make(map[int64]Line, len(s.lines)),
		indentItems:   make(map[int64]indents.Item, len(s.indentItems)),
		indentHeaders: make(map[int64]indents.Indent, len(s.indentHeaders)),
		catalog:       make(map[int64]CatalogItem, len(s.catalog)),
		vendors:       make(map[int64]fakeVendor, len(s.vendors)),
		rtvs:          make(map[int64]fakeRTV, len(s.rtvs)),
		nextID:        s.nextID,
	}
	for k, v := range s.pos {
		out.pos[k] = v
	}
	for k, v := range s.lines {
		out.lines[k] = v
	}
	for k, v := range s.indentItems {
		out.indentItems[k] = v
	}
	for k, v := range s.indentHeaders {
		out.indentHeaders[k] = v
	}
	for k, v := range s.catalog {
		out.catalog[k] = v
	}
	for k, v := range s.vendors {
		out.vendors[k] = v
	}
	for k, v := range s.rtvs {
		out.rtvs[k] = v
	}
	return out
}

// fakeRepo runs transactional callbacks against a copy of its state and
// swaps it in only when the callback succeeds, so forced failures leave the
// visible state untouched.
type fakeRepo struct {
	state  *fakeState
	failOn map[string]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		state: &fakeState{
			pos:           map[int64]PurchaseOrder{},
			lines:         map[int64]Line{},
			indentItems:   map[int64]indents.Item{},
			indentHeaders: map[int64]indents.Indent{},
			catalog:       map[int64]CatalogItem{},
			vendors:       map[int64]fakeVendor{},
			rtvs:          map[int64]fakeRTV{},
			nextID:        1,
		},
		failOn: map[string]bool{},
	}
}

func (r *fakeRepo) allocate() int64 {
	id := r.state.nextID
	r.state.nextID++
	return id
}

func (r *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	work := r.state.clone()
	if err := fn(ctx, &fakeTx{state: work, failOn: r.failOn}); err != nil {
		return err
	}
	r.state = work
	return nil
}

func (r *fakeRepo) GetPO(ctx context.Context, tenantID, id int64) (PurchaseOrder, []Line, error) {
	po, ok := r.state.pos[id]
	if !ok || po.TenantID != tenantID {
		return PurchaseOrder{}, nil, ErrNotFound
	}
	return po, r.linesOf(id), nil
}

func (r *fakeRepo) linesOf(poID int64) []Line {
	var out []Line
	for _, l := range r.state.lines {
		if l.POID == poID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeRepo) ListPOs(ctx context.Context, tenantID, branchID int64, status Status, p shared.Pagination) ([]PurchaseOrder, error) {
	var out []PurchaseOrder
	for _, po := range r.state.pos {
		if po.TenantID != tenantID || po.BranchID != branchID {
			continue
		}
		if status != "" && po.Status != status {
			continue
		}
		out = append(out, po)
	}
	return out, nil
}

func (r *fakeRepo) ListProcurementPool(ctx context.Context, tenantID, branchID int64) ([]PoolEntry, error) {
	var out []PoolEntry
	for _, it := range r.state.indentItems {
		if it.ProcurementStatus != indents.ProcurementPending {
			continue
		}
		ind := r.state.indentHeaders[it.IndentID]
		if ind.TenantID != tenantID || ind.BranchID != branchID || ind.Status != indents.StatusApproved {
			continue
		}
		ci := r.state.catalog[it.ItemID]
		out = append(out, PoolEntry{
			IndentItemID:    it.ID,
			IndentID:        ind.ID,
			IndentDisplayID: ind.DisplayID,
			WorkAreaID:      ind.WorkAreaID,
			ItemID:          it.ItemID,
			ItemName:        ci.Name,
			ItemCode:        ci.Code,
			UOM:             ci.UOM,
			ApprovedQty:     it.ApprovedQty,
			POQty:           it.POQty,
			PendingQty:      it.PendingQty,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IndentItemID < out[j].IndentItemID })
	return out, nil
}

type fakeTx struct {
	state  *fakeState
	failOn map[string]bool
}

func (t *fakeTx) fail(op string) error {
	if t.failOn[op] {
		return fmt.Errorf("forced %s failure", op)
	}
	return nil
}

func (t *fakeTx) allocate() int64 {
	id := t.state.nextID
	t.state.nextID++
	return id
}

func (t *fakeTx) CreatePO(ctx context.Context, po PurchaseOrder) (int64, error) {
	if err := t.fail("CreatePO"); err != nil {
		return 0, err
	}
	id := t.allocate()
	po.ID = id
	t.state.pos[id] = po
	return id, nil
}

func (t *fakeTx) InsertLine(ctx context.Context, line Line) (int64, error) {
	if err := t.fail("InsertLine"); err != nil {
		return 0, err
	}
	id := t.allocate()
	line.ID = id
	t.state.lines[id] = line
	return id, nil
}

func (t *fakeTx) GetPOForUpdate(ctx context.Context, tenantID, id int64) (PurchaseOrder, error) {
	po, ok := t.state.pos[id]
	if !ok || po.TenantID != tenantID {
		return PurchaseOrder{}, ErrNotFound
	}
	return po, nil
}

func (t *fakeTx) ListLines(ctx context.Context, poID int64) ([]Line, error) {
	var out []Line
	for _, l := range t.state.lines {
		if l.POID == poID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *fakeTx) GetLineForUpdate(ctx context.Context, poID, itemID int64) (Line, error) {
	for _, l := range t.state.lines {
		if l.POID != poID {
			continue
		}
		if id, ok := l.Ref.ItemID(); ok && id == itemID {
			return l, nil
		}
	}
	return Line{}, fmt.Errorf("%w: item %d is not on this order", ErrNotFound, itemID)
}

func (t *fakeTx) SetLineQuantity(ctx context.Context, lineID int64, qty, totalPrice float64) error {
	l, ok := t.state.lines[lineID]
	if !ok {
		return ErrNotFound
	}
	l.Quantity = qty
	l.TotalPrice = totalPrice
	t.state.lines[lineID] = l
	return nil
}

func (t *fakeTx) SetLineItemRef(ctx context.Context, lineID, itemID int64) error {
	l, ok := t.state.lines[lineID]
	if !ok {
		return ErrNotFound
	}
	l.Ref = ResolvedRef(itemID)
	t.state.lines[lineID] = l
	return nil
}

func (t *fakeTx) SetTotalAmount(ctx context.Context, poID int64, total float64) error {
	po, ok := t.state.pos[poID]
	if !ok {
		return ErrNotFound
	}
	po.TotalAmount = total
	t.state.pos[poID] = po
	return nil
}

func (t *fakeTx) UpdateStatus(ctx context.Context, poID int64, status Status) error {
	po, ok := t.state.pos[poID]
	if !ok {
		return ErrNotFound
	}
	po.Status = status
	t.state.pos[poID] = po
	return nil
}

func (t *fakeTx) SetApproval(ctx context.Context, poID, approvedBy int64) error {
	po, ok := t.state.pos[poID]
	if !ok {
		return ErrNotFound
	}
	po.ApprovedBy = &approvedBy
	t.state.pos[poID] = po
	return nil
}

func (t *fakeTx) ClearApproval(ctx context.Context, poID int64) error {
	po, ok := t.state.pos[poID]
	if !ok {
		return ErrNotFound
	}
	po.ApprovedBy = nil
	t.state.pos[poID] = po
	return nil
}

func (t *fakeTx) UpdateHeader(ctx context.Context, poID int64, deliveryDate *time.Time, vendorID *int64) error {
	po, ok := t.state.pos[poID]
	if !ok {
		return ErrNotFound
	}
	if deliveryDate != nil {
		po.DeliveryDate = deliveryDate
	}
	if vendorID != nil {
		po.VendorID = vendorID
	}
	t.state.pos[poID] = po
	return nil
}

func (t *fakeTx) DeleteLines(ctx context.Context, poID int64) error {
	for id, l := range t.state.lines {
		if l.POID == poID {
			delete(t.state.lines, id)
		}
	}
	return nil
}

func (t *fakeTx) DeletePO(ctx context.Context, poID int64) error {
	delete(t.state.pos, poID)
	return nil
}

func (t *fakeTx) MarkRTVUsed(ctx context.Context, tenantID, rtvID, poID int64) error {
	rtv, ok := t.state.rtvs[rtvID]
	if !ok || rtv.TenantID != tenantID || rtv.IsUsed {
		return fmt.Errorf("%w: return to vendor %d", ErrNotFound, rtvID)
	}
	rtv.IsUsed = true
	rtv.UsedInPO = poID
	t.state.rtvs[rtvID] = rtv
	return nil
}

func (t *fakeTx) SetVendor(ctx context.Context, poID, vendorID int64) error {
	po, ok := t.state.pos[poID]
	if !ok {
		return ErrNotFound
	}
	po.VendorID = &vendorID
	t.state.pos[poID] = po
	return nil
}

func (t *fakeTx) ListIndentItemsForUpdate(ctx context.Context, tenantID int64, ids []int64) ([]indents.Item, error) {
	var out []indents.Item
	for _, id := range ids {
		it, ok := t.state.indentItems[id]
		if !ok {
			continue
		}
		if parent, ok := t.state.indentHeaders[it.IndentID]; !ok || parent.TenantID != tenantID {
			continue
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *fakeTx) GetIndentHeadersForUpdate(ctx context.Context, tenantID int64, ids []int64) ([]indents.Indent, error) {
	var out []indents.Indent
	for _, id := range ids {
		if ind, ok := t.state.indentHeaders[id]; ok && ind.TenantID == tenantID {
			out = append(out, ind)
		}
	}
	return out, nil
}

func (t *fakeTx) ConsumeIndentItem(ctx context.Context, indentItemID int64, qty float64) error {
	it, ok := t.state.indentItems[indentItemID]
	if !ok {
		return ErrNotFound
	}
	it.POQty += qty
	it.PendingQty = it.ApprovedQty - it.POQty
	if it.PendingQty < 0 {
		it.PendingQty = 0
	}
	it.ProcurementStatus = indents.ProcurementInPO
	t.state.indentItems[indentItemID] = it
	return nil
}

func (t *fakeTx) MarkIndentsPoRaised(ctx context.Context, indentIDs []int64) error {
	if err := t.fail("MarkIndentsPoRaised"); err != nil {
		return err
	}
	for _, id := range indentIDs {
		ind, ok := t.state.indentHeaders[id]
		if !ok {
			return ErrNotFound
		}
		ind.IsPoRaised = true
		t.state.indentHeaders[id] = ind
	}
	return nil
}

func (t *fakeTx) GetCatalogItems(ctx context.Context, tenantID int64, ids []int64) (map[int64]CatalogItem, error) {
	out := map[int64]CatalogItem{}
	for _, id := range ids {
		if ci, ok := t.state.catalog[id]; ok {
			out[id] = ci
		}
	}
	return out, nil
}

func (t *fakeTx) FindVendorByNameOrGST(ctx context.Context, tenantID int64, name, gstNo string) (int64, bool, error) {
	for _, v := range t.state.vendors {
		if strings.EqualFold(v.Name, name) || (gstNo != "" && v.GSTNo == gstNo) {
			return v.ID, true, nil
		}
	}
	return 0, false, nil
}

func (t *fakeTx) CreateVendor(ctx context.Context, v PromotedVendor) (int64, error) {
	if err := t.fail("CreateVendor"); err != nil {
		return 0, err
	}
	id := t.allocate()
	t.state.vendors[id] = fakeVendor{ID: id, Name: v.Name, GSTNo: v.GSTNo}
	return id, nil
}

func (t *fakeTx) FindItemByCode(ctx context.Context, tenantID int64, code string) (int64, bool, error) {
	for _, ci := range t.state.catalog {
		if ci.Code == code {
			return ci.ID, true, nil
		}
	}
	return 0, false, nil
}

func (t *fakeTx) CreateItem(ctx context.Context, it PromotedItem) (int64, error) {
	if err := t.fail("CreateItem"); err != nil {
		return 0, err
	}
	id := t.allocate()
	t.state.catalog[id] = CatalogItem{
		ID:       id,
		Name:     it.Name,
		Code:     it.Code,
		UOM:      it.UOM,
		UnitCost: it.UnitCost,
		TaxRate:  it.TaxRate,
	}
	return id, nil
}

// Shared test stubs

type seqStub struct{ counts map[string]int64 }

func newSeqStub() *seqStub {
	return &seqStub{counts: map[string]int64{}}
}

func (s *seqStub) Next(ctx context.Context, prefix string) (string, error) {
	s.counts[prefix]++
	return fmt.Sprintf("%s-%06d", prefix, s.counts[prefix]), nil
}

type auditStub struct{ entries []audit.Entry }

func (a *auditStub) Record(ctx context.Context, e audit.Entry) error {
	a.entries = append(a.entries, e)
	return nil
}

var testSession = shared.Session{UserID: 7, TenantID: 1, BranchID: 2, Role: "purchase_manager"}

// Fixture helpers

func seedCatalogItem(repo *fakeRepo, name, code string, unitCost, taxRate float64) int64 {
	id := repo.allocate()
	repo.state.catalog[id] = CatalogItem{ID: id, Name: name, Code: code, UOM: "KG", UnitCost: unitCost, TaxRate: taxRate}
	return id
}

func seedVendor(repo *fakeRepo, name, gstNo string) int64 {
	id := repo.allocate()
	repo.state.vendors[id] = fakeVendor{ID: id, Name: name, GSTNo: gstNo}
	return id
}

func seedApprovedIndent(repo *fakeRepo, displayID string, itemQtys map[int64]float64) (int64, []int64) {
	return seedApprovedIndentForTenant(repo, testSession.TenantID, displayID, itemQtys)
}

func seedApprovedIndentForTenant(repo *fakeRepo, tenantID int64, displayID string, itemQtys map[int64]float64) (int64, []int64) {
	indentID := repo.allocate()
	repo.state.indentHeaders[indentID] = indents.Indent{
		ID:         indentID,
		TenantID:   tenantID,
		DisplayID:  displayID,
		BranchID:   testSession.BranchID,
		WorkAreaID: 4,
		Status:     indents.StatusApproved,
	}
	var lineIDs []int64
	itemIDs := make([]int64, 0, len(itemQtys))
	for itemID := range itemQtys {
		itemIDs = append(itemIDs, itemID)
	}
	sort.Slice(itemIDs, func(i, j int) bool { return itemIDs[i] < itemIDs[j] })
	for _, itemID := range itemIDs {
		qty := itemQtys[itemID]
		id := repo.allocate()
		repo.state.indentItems[id] = indents.Item{
			ID:                id,
			IndentID:          indentID,
			ItemID:            itemID,
			RequestedQty:      qty,
			ApprovedQty:       qty,
			PendingQty:        qty,
			ProcurementStatus: indents.ProcurementPending,
		}
		lineIDs = append(lineIDs, id)
	}
	return indentID, lineIDs
}

func seedRTV(repo *fakeRepo, tenantID int64) int64 {
	id := repo.allocate()
	repo.state.rtvs[id] = fakeRTV{ID: id, TenantID: tenantID}
	return id
}
