package indents

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/larder-erp/larder-erp/internal/audit"
	"github.com/larder-erp/larder-erp/internal/shared"
)

type memoryState struct {
	indents map[int64]Indent
	items   map[int64]Item
	nextID  int64
}

func (s *memoryState) clone() *memoryState {
	out := &memoryState{
		indents: make(map[int64]Indent, len(s.indents)),
		items:   make(map[int64]Item, len(s.items)),
		nextID:  s.nextID,
	}
	for k, v := range s.indents {
		v.Items = nil
		out.indents[k] = v
	}
	for k, v := range s.items {
		out.items[k] = v
	}
	return out
}

// memoryRepo applies transactional callbacks against a copy of its state and
// swaps it in only on success, so failed callbacks leave nothing behind.
type memoryRepo struct {
	state *memoryState
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: &memoryState{
		indents: map[int64]Indent{},
		items:   map[int64]Item{},
		nextID:  1,
	}}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	work := r.state.clone()
	if err := fn(ctx, &memoryTx{state: work}); err != nil {
		return err
	}
	r.state = work
	return nil
}

func (r *memoryRepo) GetByID(ctx context.Context, tenantID, id int64) (Indent, error) {
	ind, ok := r.state.indents[id]
	if !ok || ind.TenantID != tenantID {
		return Indent{}, ErrNotFound
	}
	for _, it := range r.state.items {
		if it.IndentID == id {
			ind.Items = append(ind.Items, it)
		}
	}
	return ind, nil
}

func (r *memoryRepo) List(ctx context.Context, tenantID, branchID int64, status Status, p shared.Pagination) ([]Indent, error) {
	var out []Indent
	for _, ind := range r.state.indents {
		if ind.TenantID != tenantID || ind.BranchID != branchID {
			continue
		}
		if status != "" && ind.Status != status {
			continue
		}
		out = append(out, ind)
	}
	return out, nil
}

type memoryTx struct {
	state *memoryState
}

func (t *memoryTx) CreateIndent(ctx context.Context, ind Indent) (int64, error) {
	id := t.state.nextID
	t.state.nextID++
	ind.ID = id
	ind.Items = nil
	t.state.indents[id] = ind
	return id, nil
}

func (t *memoryTx) InsertItem(ctx context.Context, item Item) (int64, error) {
	id := t.state.nextID
	t.state.nextID++
	item.ID = id
	t.state.items[id] = item
	return id, nil
}

func (t *memoryTx) GetForUpdate(ctx context.Context, tenantID, id int64) (Indent, error) {
	ind, ok := t.state.indents[id]
	if !ok || ind.TenantID != tenantID {
		return Indent{}, ErrNotFound
	}
	return ind, nil
}

func (t *memoryTx) ListItems(ctx context.Context, indentID int64) ([]Item, error) {
	var out []Item
	for _, it := range t.state.items {
		if it.IndentID == indentID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (t *memoryTx) UpdateStatus(ctx context.Context, id int64, status Status, approvedBy *int64) error {
	ind, ok := t.state.indents[id]
	if !ok {
		return ErrNotFound
	}
	ind.Status = status
	ind.ApprovedBy = approvedBy
	t.state.indents[id] = ind
	return nil
}

func (t *memoryTx) SetItemApproval(ctx context.Context, itemID int64, approvedQty, pendingQty float64) error {
	it, ok := t.state.items[itemID]
	if !ok {
		return ErrNotFound
	}
	it.ApprovedQty = approvedQty
	it.PendingQty = pendingQty
	t.state.items[itemID] = it
	return nil
}

type seqStub struct {
	n int64
}

func (s *seqStub) Next(ctx context.Context, prefix string) (string, error) {
	s.n++
	return fmt.Sprintf("%s-%06d", prefix, s.n), nil
}

type auditStub struct {
	entries []audit.Entry
}

func (a *auditStub) Record(ctx context.Context, e audit.Entry) error {
	a.entries = append(a.entries, e)
	return nil
}

var testSession = shared.Session{UserID: 7, TenantID: 1, BranchID: 2, Role: "store_keeper"}

func newTestService() (*Service, *memoryRepo, *auditStub) {
	repo := newMemoryRepo()
	rec := &auditStub{}
	return NewService(repo, &seqStub{}, rec), repo, rec
}

func TestCreateIndent(t *testing.T) {
	svc, _, rec := newTestService()
	ctx := context.Background()

	ind, err := svc.Create(ctx, testSession, CreateInput{
		WorkAreaID: 4,
		Items: []LineInput{
			{ItemID: 100, RequestedQty: 550},
			{ItemID: 101, RequestedQty: 20},
		},
	})
	require.NoError(t, err)
	require.Equal(t, StatusOpen, ind.Status)
	require.Equal(t, "IN-000001", ind.DisplayID)
	require.False(t, ind.IsPoRaised)
	require.Len(t, ind.Items, 2)
	require.Equal(t, ProcurementPending, ind.Items[0].ProcurementStatus)
	require.Len(t, rec.entries, 1)
	require.Equal(t, "INDENT_CREATE", rec.entries[0].Action)
}

func TestCreateIndentValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, testSession, CreateInput{WorkAreaID: 4})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, testSession, CreateInput{
		WorkAreaID: 4,
		Items:      []LineInput{{ItemID: 100, RequestedQty: 0}},
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestApproveIndent(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, testSession, CreateInput{
		WorkAreaID: 4,
		Items: []LineInput{
			{ItemID: 100, RequestedQty: 550},
			{ItemID: 101, RequestedQty: 20},
		},
	})
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, testSession, created.ID, map[int64]float64{101: 15})
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	require.Equal(t, testSession.UserID, *approved.ApprovedBy)

	byItem := map[int64]Item{}
	for _, it := range approved.Items {
		byItem[it.ItemID] = it
	}
	require.Equal(t, 550.0, byItem[100].ApprovedQty)
	require.Equal(t, 550.0, byItem[100].PendingQty)
	require.Equal(t, 15.0, byItem[101].ApprovedQty)
	require.Equal(t, 15.0, byItem[101].PendingQty)
}

func TestApproveRequiresOpen(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, testSession, CreateInput{
		WorkAreaID: 4,
		Items:      []LineInput{{ItemID: 100, RequestedQty: 10}},
	})
	require.NoError(t, err)

	_, err = svc.Approve(ctx, testSession, created.ID, nil)
	require.NoError(t, err)

	_, err = svc.Approve(ctx, testSession, created.ID, nil)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestRejectLeavesNoApprovals(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, testSession, CreateInput{
		WorkAreaID: 4,
		Items:      []LineInput{{ItemID: 100, RequestedQty: 10}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Reject(ctx, testSession, created.ID))

	ind, err := repo.GetByID(ctx, testSession.TenantID, created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusRejected, ind.Status)
	require.Equal(t, 0.0, ind.Items[0].ApprovedQty)

	err = svc.Cancel(ctx, testSession, created.ID)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestApproveUnknownIndent(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Approve(context.Background(), testSession, 999, nil)
	require.ErrorIs(t, err, ErrNotFound)
	require.True(t, errors.Is(err, ErrNotFound))
}
