package procurement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/larder-erp/larder-erp/internal/indents"
	"github.com/larder-erp/larder-erp/internal/shared"
)

func newTestService(repo *fakeRepo) (*Service, *auditStub) {
	rec := &auditStub{}
	return NewService(repo, newSeqStub(), rec), rec
}

func int64Ptr(v int64) *int64 { return &v }

func TestCreateComputesTotals(t *testing.T) {
	repo := newFakeRepo()
	vendorID := seedVendor(repo, "Fresh Farms", "29FRESH0001Z5")
	svc, rec := newTestService(repo)

	po, lines, err := svc.Create(context.Background(), testSession, CreateInput{
		VendorID: &vendorID,
		Items: []CreateLineInput{
			{ItemID: int64Ptr(101), Name: "Basmati Rice", Quantity: 5, UnitCost: 100, TaxRate: 10},
			{ItemID: int64Ptr(102), Name: "Sunflower Oil", Quantity: 2, UnitCost: 250, TaxRate: 5},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "PO-000001", po.DisplayID)
	require.Equal(t, StatusPending, po.Status)
	require.Equal(t, TypeStandard, po.Type)
	require.Len(t, lines, 2)
	require.Equal(t, 550.0, lines[0].TotalPrice)
	require.Equal(t, 525.0, lines[1].TotalPrice)
	require.Equal(t, 1075.0, po.TotalAmount)

	stored, storedLines, err := svc.Get(context.Background(), testSession.TenantID, po.ID)
	require.NoError(t, err)
	require.Equal(t, 1075.0, stored.TotalAmount)
	require.Len(t, storedLines, 2)

	require.Len(t, rec.entries, 1)
	require.Equal(t, "PO_CREATE", rec.entries[0].Action)
	require.Equal(t, po.DisplayID, rec.entries[0].EntityID)
}

func TestCreateClampsTotalAtZero(t *testing.T) {
	repo := newFakeRepo()
	rtvID := seedRTV(repo, testSession.TenantID)
	svc, _ := newTestService(repo)

	po, _, err := svc.Create(context.Background(), testSession, CreateInput{
		VendorName:  "Green Grocers",
		RTVCredit:   5000,
		LinkedRTVID: &rtvID,
		Items: []CreateLineInput{
			{ItemID: int64Ptr(101), Name: "Basmati Rice", Quantity: 5, UnitCost: 100, TaxRate: 10},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 0.0, po.TotalAmount)
}

func TestCreateConsumesLinkedRTV(t *testing.T) {
	repo := newFakeRepo()
	rtvID := seedRTV(repo, testSession.TenantID)
	svc, _ := newTestService(repo)

	po, _, err := svc.Create(context.Background(), testSession, CreateInput{
		VendorName:  "Green Grocers",
		RTVCredit:   120,
		LinkedRTVID: &rtvID,
		Items: []CreateLineInput{
			{ItemID: int64Ptr(101), Name: "Basmati Rice", Quantity: 5, UnitCost: 100, TaxRate: 10},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 430.0, po.TotalAmount)

	rtv := repo.state.rtvs[rtvID]
	require.True(t, rtv.IsUsed)
	require.Equal(t, po.ID, rtv.UsedInPO)

	// A consumed credit cannot back a second order.
	_, _, err = svc.Create(context.Background(), testSession, CreateInput{
		VendorName:  "Green Grocers",
		RTVCredit:   120,
		LinkedRTVID: &rtvID,
		Items: []CreateLineInput{
			{ItemID: int64Ptr(101), Name: "Basmati Rice", Quantity: 1, UnitCost: 100, TaxRate: 0},
		},
	})
	require.ErrorIs(t, err, ErrNotFound)
	require.Len(t, repo.state.pos, 1)
}

func TestCreateLinkedRTVRequiresCredit(t *testing.T) {
	repo := newFakeRepo()
	rtvID := seedRTV(repo, testSession.TenantID)
	svc, _ := newTestService(repo)

	_, _, err := svc.Create(context.Background(), testSession, CreateInput{
		VendorName:  "Green Grocers",
		LinkedRTVID: &rtvID,
		Items: []CreateLineInput{
			{ItemID: int64Ptr(101), Name: "Basmati Rice", Quantity: 1, UnitCost: 100, TaxRate: 0},
		},
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreateValidatesLines(t *testing.T) {
	repo := newFakeRepo()
	svc, rec := newTestService(repo)

	_, _, err := svc.Create(context.Background(), testSession, CreateInput{VendorName: "Green Grocers"})
	require.ErrorIs(t, err, ErrValidation)

	_, _, err = svc.Create(context.Background(), testSession, CreateInput{
		VendorName: "Green Grocers",
		Items:      []CreateLineInput{{Name: "Basmati Rice", Quantity: 0, UnitCost: 100}},
	})
	require.ErrorIs(t, err, ErrValidation)

	_, _, err = svc.Create(context.Background(), testSession, CreateInput{
		VendorName: "Green Grocers",
		Items:      []CreateLineInput{{Quantity: 1, UnitCost: 100}},
	})
	require.ErrorIs(t, err, ErrValidation)

	require.Empty(t, repo.state.pos)
	require.Empty(t, rec.entries)
}

func TestCreateWithIndentLinksConsumesPool(t *testing.T) {
	repo := newFakeRepo()
	riceID := seedCatalogItem(repo, "Basmati Rice", "RICE-01", 100, 10)
	indentID, lineIDs := seedApprovedIndent(repo, "IN-000001", map[int64]float64{riceID: 20})
	svc, _ := newTestService(repo)

	_, lines, err := svc.Create(context.Background(), testSession, CreateInput{
		VendorName: "Green Grocers",
		Items: []CreateLineInput{{
			ItemID:      &riceID,
			Name:        "Basmati Rice",
			Quantity:    5,
			UnitCost:    100,
			TaxRate:     10,
			IndentLinks: []IndentLink{{IndentItemID: lineIDs[0], Quantity: 5}},
		}},
	})
	require.NoError(t, err)
	require.Len(t, lines, 1)

	it := repo.state.indentItems[lineIDs[0]]
	require.Equal(t, 5.0, it.POQty)
	require.Equal(t, 15.0, it.PendingQty)
	require.Equal(t, indents.ProcurementInPO, it.ProcurementStatus)
	require.True(t, repo.state.indentHeaders[indentID].IsPoRaised)
}

func TestCreateRejectsOverProcurement(t *testing.T) {
	repo := newFakeRepo()
	riceID := seedCatalogItem(repo, "Basmati Rice", "RICE-01", 100, 10)
	_, lineIDs := seedApprovedIndent(repo, "IN-000001", map[int64]float64{riceID: 20})
	svc, _ := newTestService(repo)

	_, _, err := svc.Create(context.Background(), testSession, CreateInput{
		VendorName: "Green Grocers",
		Items: []CreateLineInput{{
			ItemID:      &riceID,
			Name:        "Basmati Rice",
			Quantity:    25,
			UnitCost:    100,
			TaxRate:     10,
			IndentLinks: []IndentLink{{IndentItemID: lineIDs[0], Quantity: 25}},
		}},
	})
	require.ErrorIs(t, err, ErrInvalidState)
	require.Contains(t, err.Error(), "left to procure")
	require.Empty(t, repo.state.pos)
	require.Equal(t, 0.0, repo.state.indentItems[lineIDs[0]].POQty)
}

func TestCreateFromIndentItems(t *testing.T) {
	repo := newFakeRepo()
	riceID := seedCatalogItem(repo, "Basmati Rice", "RICE-01", 100, 10)
	indentID, lineIDs := seedApprovedIndent(repo, "IN-000001", map[int64]float64{riceID: 20})
	vendorID := seedVendor(repo, "Fresh Farms", "")
	svc, rec := newTestService(repo)

	po, lines, err := svc.CreateFromIndentItems(context.Background(), testSession, FromIndentInput{
		IndentItemIDs: []int64{lineIDs[0]},
		VendorID:      vendorID,
	})
	require.NoError(t, err)
	require.Equal(t, "PO-000001", po.DisplayID)
	require.Equal(t, StatusPending, po.Status)
	require.Len(t, lines, 1)
	require.Equal(t, 20.0, lines[0].Quantity)
	require.Equal(t, 2200.0, lines[0].TotalPrice)
	require.Equal(t, 2200.0, po.TotalAmount)
	require.Equal(t, []IndentLink{{IndentItemID: lineIDs[0], Quantity: 20}}, lines[0].IndentLinks)

	it := repo.state.indentItems[lineIDs[0]]
	require.Equal(t, 20.0, it.POQty)
	require.Equal(t, 0.0, it.PendingQty)
	require.Equal(t, indents.ProcurementInPO, it.ProcurementStatus)
	require.True(t, repo.state.indentHeaders[indentID].IsPoRaised)

	require.Len(t, rec.entries, 1)
	require.Equal(t, "PO_CREATE_FROM_INDENTS", rec.entries[0].Action)

	// The consumed line is gone from the pool and cannot be consumed twice.
	pool, err := svc.ProcurementPool(context.Background(), testSession.TenantID, testSession.BranchID)
	require.NoError(t, err)
	require.Empty(t, pool)

	_, _, err = svc.CreateFromIndentItems(context.Background(), testSession, FromIndentInput{
		IndentItemIDs: []int64{lineIDs[0]},
		VendorID:      vendorID,
	})
	require.ErrorIs(t, err, ErrInvalidState)
	require.Len(t, repo.state.pos, 1)
}

func TestCreateFromIndentItemsAggregatesByCatalogItem(t *testing.T) {
	repo := newFakeRepo()
	riceID := seedCatalogItem(repo, "Basmati Rice", "RICE-01", 100, 10)
	oilID := seedCatalogItem(repo, "Sunflower Oil", "OIL-01", 250, 5)
	_, first := seedApprovedIndent(repo, "IN-000001", map[int64]float64{riceID: 8, oilID: 3})
	_, second := seedApprovedIndent(repo, "IN-000002", map[int64]float64{riceID: 12})
	vendorID := seedVendor(repo, "Fresh Farms", "")
	svc, _ := newTestService(repo)

	selected := append(append([]int64{}, first...), second...)
	po, lines, err := svc.CreateFromIndentItems(context.Background(), testSession, FromIndentInput{
		IndentItemIDs: selected,
		VendorID:      vendorID,
	})
	require.NoError(t, err)
	require.Len(t, lines, 2)

	var rice, oil Line
	for _, l := range lines {
		if id, _ := l.Ref.ItemID(); id == riceID {
			rice = l
		} else {
			oil = l
		}
	}
	require.Equal(t, 20.0, rice.Quantity)
	require.Len(t, rice.IndentLinks, 2)
	require.Equal(t, 3.0, oil.Quantity)
	require.Len(t, oil.IndentLinks, 1)
	require.Equal(t, round2(rice.TotalPrice+oil.TotalPrice), po.TotalAmount)

	for _, id := range selected {
		require.Equal(t, indents.ProcurementInPO, repo.state.indentItems[id].ProcurementStatus)
	}
}

func TestCreateFromIndentItemsRejectsRaisedIndent(t *testing.T) {
	repo := newFakeRepo()
	riceID := seedCatalogItem(repo, "Basmati Rice", "RICE-01", 100, 10)
	indentID, lineIDs := seedApprovedIndent(repo, "IN-000007", map[int64]float64{riceID: 10})
	ind := repo.state.indentHeaders[indentID]
	ind.IsPoRaised = true
	repo.state.indentHeaders[indentID] = ind
	vendorID := seedVendor(repo, "Fresh Farms", "")
	svc, _ := newTestService(repo)

	_, _, err := svc.CreateFromIndentItems(context.Background(), testSession, FromIndentInput{
		IndentItemIDs: []int64{lineIDs[0]},
		VendorID:      vendorID,
	})
	require.ErrorIs(t, err, ErrInvalidState)
	require.Contains(t, err.Error(), "IN-000007")
	require.Empty(t, repo.state.pos)
}

func TestCreateFromIndentItemsRejectsStaleSelection(t *testing.T) {
	repo := newFakeRepo()
	riceID := seedCatalogItem(repo, "Basmati Rice", "RICE-01", 100, 10)
	_, lineIDs := seedApprovedIndent(repo, "IN-000001", map[int64]float64{riceID: 10})
	vendorID := seedVendor(repo, "Fresh Farms", "")
	svc, _ := newTestService(repo)

	// Another order drew the line after the pool was listed.
	stale := repo.state.indentItems[lineIDs[0]]
	stale.ProcurementStatus = indents.ProcurementInPO
	repo.state.indentItems[lineIDs[0]] = stale

	_, _, err := svc.CreateFromIndentItems(context.Background(), testSession, FromIndentInput{
		IndentItemIDs: []int64{lineIDs[0]},
		VendorID:      vendorID,
	})
	require.ErrorIs(t, err, ErrInvalidState)
	require.Empty(t, repo.state.pos)

	_, _, err = svc.CreateFromIndentItems(context.Background(), testSession, FromIndentInput{
		IndentItemIDs: []int64{9999},
		VendorID:      vendorID,
	})
	require.ErrorIs(t, err, ErrNotFound)
	require.Empty(t, repo.state.pos)
}

func TestCreateRejectsForeignTenantIndentLinks(t *testing.T) {
	repo := newFakeRepo()
	riceID := seedCatalogItem(repo, "Basmati Rice", "RICE-01", 100, 10)
	_, lineIDs := seedApprovedIndentForTenant(repo, testSession.TenantID+1, "IN-000001", map[int64]float64{riceID: 20})
	svc, _ := newTestService(repo)

	_, _, err := svc.Create(context.Background(), testSession, CreateInput{
		VendorName: "Green Grocers",
		Items: []CreateLineInput{{
			ItemID:      &riceID,
			Name:        "Basmati Rice",
			Quantity:    5,
			UnitCost:    100,
			TaxRate:     10,
			IndentLinks: []IndentLink{{IndentItemID: lineIDs[0], Quantity: 5}},
		}},
	})
	require.ErrorIs(t, err, ErrNotFound)
	require.Empty(t, repo.state.pos)

	// The other tenant's line stays in its pool untouched.
	it := repo.state.indentItems[lineIDs[0]]
	require.Equal(t, 0.0, it.POQty)
	require.Equal(t, indents.ProcurementPending, it.ProcurementStatus)
}

func TestCreateFromIndentItemsRejectsForeignTenantSelection(t *testing.T) {
	repo := newFakeRepo()
	riceID := seedCatalogItem(repo, "Basmati Rice", "RICE-01", 100, 10)
	_, lineIDs := seedApprovedIndentForTenant(repo, testSession.TenantID+1, "IN-000001", map[int64]float64{riceID: 20})
	vendorID := seedVendor(repo, "Fresh Farms", "")
	svc, _ := newTestService(repo)

	_, _, err := svc.CreateFromIndentItems(context.Background(), testSession, FromIndentInput{
		IndentItemIDs: []int64{lineIDs[0]},
		VendorID:      vendorID,
	})
	require.ErrorIs(t, err, ErrNotFound)
	require.Empty(t, repo.state.pos)
	require.Equal(t, indents.ProcurementPending, repo.state.indentItems[lineIDs[0]].ProcurementStatus)
}

func TestCreateFromIndentItemsRollsBackOnFailure(t *testing.T) {
	repo := newFakeRepo()
	riceID := seedCatalogItem(repo, "Basmati Rice", "RICE-01", 100, 10)
	indentID, lineIDs := seedApprovedIndent(repo, "IN-000001", map[int64]float64{riceID: 10})
	vendorID := seedVendor(repo, "Fresh Farms", "")
	repo.failOn["MarkIndentsPoRaised"] = true
	svc, rec := newTestService(repo)

	_, _, err := svc.CreateFromIndentItems(context.Background(), testSession, FromIndentInput{
		IndentItemIDs: []int64{lineIDs[0]},
		VendorID:      vendorID,
	})
	require.Error(t, err)

	require.Empty(t, repo.state.pos)
	require.Empty(t, repo.state.lines)
	it := repo.state.indentItems[lineIDs[0]]
	require.Equal(t, 0.0, it.POQty)
	require.Equal(t, indents.ProcurementPending, it.ProcurementStatus)
	require.False(t, repo.state.indentHeaders[indentID].IsPoRaised)
	require.Empty(t, rec.entries)
}

func TestPatchItemQuantityRecomputesTotal(t *testing.T) {
	repo := newFakeRepo()
	svc, rec := newTestService(repo)

	po, _, err := svc.Create(context.Background(), testSession, CreateInput{
		VendorName: "Green Grocers",
		Items: []CreateLineInput{
			{ItemID: int64Ptr(101), Name: "Basmati Rice", Quantity: 5, UnitCost: 100, TaxRate: 10},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 550.0, po.TotalAmount)

	patched, err := svc.PatchItemQuantity(context.Background(), testSession, po.ID, 101, 8)
	require.NoError(t, err)
	require.Equal(t, 880.0, patched.TotalAmount)

	stored, lines, err := svc.Get(context.Background(), testSession.TenantID, po.ID)
	require.NoError(t, err)
	require.Equal(t, 880.0, stored.TotalAmount)
	require.Equal(t, 8.0, lines[0].Quantity)
	require.Equal(t, 880.0, lines[0].TotalPrice)

	last := rec.entries[len(rec.entries)-1]
	require.Equal(t, "PO_PATCH_QUANTITY", last.Action)
	require.Equal(t, 5.0, last.Details["old_qty"])
	require.Equal(t, 8.0, last.Details["new_qty"])
}

func TestPatchItemQuantityGuards(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)

	po, _, err := svc.Create(context.Background(), testSession, CreateInput{
		VendorName: "Green Grocers",
		Items: []CreateLineInput{
			{ItemID: int64Ptr(101), Name: "Basmati Rice", Quantity: 5, UnitCost: 100, TaxRate: 10},
		},
	})
	require.NoError(t, err)

	_, err = svc.PatchItemQuantity(context.Background(), testSession, po.ID, 101, 0)
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.PatchItemQuantity(context.Background(), testSession, po.ID, 999, 3)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Approve(context.Background(), testSession, po.ID)
	require.NoError(t, err)
	_, err = svc.PatchItemQuantity(context.Background(), testSession, po.ID, 101, 3)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestApproveAndRevert(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)

	po, _, err := svc.Create(context.Background(), testSession, CreateInput{
		VendorName: "Green Grocers",
		Items: []CreateLineInput{
			{ItemID: int64Ptr(101), Name: "Basmati Rice", Quantity: 8, UnitCost: 100, TaxRate: 10},
		},
	})
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), testSession, po.ID)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	require.Equal(t, testSession.UserID, *approved.ApprovedBy)

	_, err = svc.Approve(context.Background(), testSession, po.ID)
	require.ErrorIs(t, err, ErrInvalidState)

	reverted, err := svc.Revert(context.Background(), testSession, po.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, reverted.Status)
	require.Nil(t, reverted.ApprovedBy)
	require.Equal(t, 880.0, reverted.TotalAmount)

	_, err = svc.Revert(context.Background(), testSession, po.ID)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestApproveToleratesLegacyOpenStatus(t *testing.T) {
	repo := newFakeRepo()
	id := repo.allocate()
	repo.state.pos[id] = PurchaseOrder{
		ID:        id,
		TenantID:  testSession.TenantID,
		DisplayID: "PO-000042",
		BranchID:  testSession.BranchID,
		Type:      TypeStandard,
		Status:    statusLegacyOpen,
	}
	svc, _ := newTestService(repo)

	approved, err := svc.Approve(context.Background(), testSession, id)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)
}

func TestCancelAndDeleteRequirePending(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)

	po, _, err := svc.Create(context.Background(), testSession, CreateInput{
		VendorName: "Green Grocers",
		Items: []CreateLineInput{
			{ItemID: int64Ptr(101), Name: "Basmati Rice", Quantity: 1, UnitCost: 100, TaxRate: 0},
		},
	})
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), testSession, po.ID)
	require.NoError(t, err)

	err = svc.Cancel(context.Background(), testSession, po.ID)
	require.ErrorIs(t, err, ErrInvalidState)
	err = svc.Delete(context.Background(), testSession, po.ID)
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.Revert(context.Background(), testSession, po.ID)
	require.NoError(t, err)

	err = svc.Delete(context.Background(), testSession, po.ID)
	require.NoError(t, err)
	require.Empty(t, repo.state.pos)
	require.Empty(t, repo.state.lines)

	_, _, err = svc.Get(context.Background(), testSession.TenantID, po.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateHeaderOnlyWhilePending(t *testing.T) {
	repo := newFakeRepo()
	vendorID := seedVendor(repo, "Fresh Farms", "")
	svc, _ := newTestService(repo)

	po, _, err := svc.Create(context.Background(), testSession, CreateInput{
		VendorName: "Green Grocers",
		Items: []CreateLineInput{
			{ItemID: int64Ptr(101), Name: "Basmati Rice", Quantity: 1, UnitCost: 100, TaxRate: 0},
		},
	})
	require.NoError(t, err)

	err = svc.Update(context.Background(), testSession, po.ID, UpdateInput{VendorID: &vendorID})
	require.NoError(t, err)
	stored, _, err := svc.Get(context.Background(), testSession.TenantID, po.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.VendorID)
	require.Equal(t, vendorID, *stored.VendorID)

	_, err = svc.Approve(context.Background(), testSession, po.ID)
	require.NoError(t, err)
	err = svc.Update(context.Background(), testSession, po.ID, UpdateInput{VendorID: &vendorID})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestGetEnforcesTenant(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)

	po, _, err := svc.Create(context.Background(), testSession, CreateInput{
		VendorName: "Green Grocers",
		Items: []CreateLineInput{
			{ItemID: int64Ptr(101), Name: "Basmati Rice", Quantity: 1, UnitCost: 100, TaxRate: 0},
		},
	})
	require.NoError(t, err)

	_, _, err = svc.Get(context.Background(), testSession.TenantID+1, po.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestProcurementPoolListsOnlyPendingApprovedLines(t *testing.T) {
	repo := newFakeRepo()
	riceID := seedCatalogItem(repo, "Basmati Rice", "RICE-01", 100, 10)
	oilID := seedCatalogItem(repo, "Sunflower Oil", "OIL-01", 250, 5)
	_, riceLines := seedApprovedIndent(repo, "IN-000001", map[int64]float64{riceID: 10})
	openID, _ := seedApprovedIndent(repo, "IN-000002", map[int64]float64{oilID: 4})
	ind := repo.state.indentHeaders[openID]
	ind.Status = indents.StatusOpen
	repo.state.indentHeaders[openID] = ind
	svc, _ := newTestService(repo)

	pool, err := svc.ProcurementPool(context.Background(), testSession.TenantID, testSession.BranchID)
	require.NoError(t, err)
	require.Len(t, pool, 1)
	require.Equal(t, riceLines[0], pool[0].IndentItemID)
	require.Equal(t, "Basmati Rice", pool[0].ItemName)
	require.Equal(t, 10.0, pool[0].PendingQty)
}

func TestListFiltersByStatus(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)

	first, _, err := svc.Create(context.Background(), testSession, CreateInput{
		VendorName: "Green Grocers",
		Items:      []CreateLineInput{{ItemID: int64Ptr(101), Name: "Basmati Rice", Quantity: 1, UnitCost: 100, TaxRate: 0}},
	})
	require.NoError(t, err)
	_, _, err = svc.Create(context.Background(), testSession, CreateInput{
		VendorName: "Green Grocers",
		Items:      []CreateLineInput{{ItemID: int64Ptr(102), Name: "Sunflower Oil", Quantity: 1, UnitCost: 250, TaxRate: 0}},
	})
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), testSession, first.ID)
	require.NoError(t, err)

	approved, err := svc.List(context.Background(), testSession.TenantID, testSession.BranchID, StatusApproved, shared.Pagination{Limit: 20})
	require.NoError(t, err)
	require.Len(t, approved, 1)
	require.Equal(t, first.ID, approved[0].ID)

	all, err := svc.List(context.Background(), testSession.TenantID, testSession.BranchID, "", shared.Pagination{Limit: 20})
	require.NoError(t, err)
	require.Len(t, all, 2)
}
