package rtv

import (
	"context"
	"fmt"
	"time"

	"github.com/larder-erp/larder-erp/internal/audit"
	"github.com/larder-erp/larder-erp/internal/inventory"
	"github.com/larder-erp/larder-erp/internal/sequence"
	"github.com/larder-erp/larder-erp/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetByID(ctx context.Context, tenantID, id int64) (RTV, error)
	List(ctx context.Context, tenantID, branchID int64, unusedOnly bool, p shared.Pagination) ([]RTV, error)
}

// SequencePort issues return display identifiers.
type SequencePort interface {
	Next(ctx context.Context, prefix string) (string, error)
}

// Service posts returns to vendor.
type Service struct {
	repo  RepositoryPort
	seq   SequencePort
	audit audit.Recorder
}

// NewService constructs a return service.
func NewService(repo RepositoryPort, seq SequencePort, rec audit.Recorder) *Service {
	return &Service{repo: repo, seq: seq, audit: rec}
}

// CreateInput describes a return to post against a goods receipt.
type CreateInput struct {
	GRNID  int64
	Reason string
	Lines  []LineInput
}

// LineInput is one returned line.
type LineInput struct {
	ItemID   int64
	Quantity float64
	UnitCost float64
}

// Create posts a return against a goods receipt. The vendor comes from the
// receipt; per item, the cumulative returned quantity across all returns may
// not exceed what that receipt recorded. Return rows and stock deductions
// commit or roll back together.
func (s *Service) Create(ctx context.Context, sess shared.Session, in CreateInput) (RTV, error) {
	if in.GRNID == 0 {
		return RTV{}, fmt.Errorf("%w: goods receipt id is required", ErrValidation)
	}
	if len(in.Lines) == 0 {
		return RTV{}, fmt.Errorf("%w: at least one line is required", ErrValidation)
	}
	// The cap below must see the request's full quantity per item, so lines
	// naming the same item are summed before checking.
	requested := map[int64]float64{}
	var itemOrder []int64
	for _, line := range in.Lines {
		if line.ItemID == 0 {
			return RTV{}, fmt.Errorf("%w: line item id is required", ErrValidation)
		}
		if line.Quantity <= 0 {
			return RTV{}, fmt.Errorf("%w: return quantity must be positive", ErrValidation)
		}
		if line.UnitCost < 0 {
			return RTV{}, fmt.Errorf("%w: unit cost must not be negative", ErrValidation)
		}
		if _, ok := requested[line.ItemID]; !ok {
			itemOrder = append(itemOrder, line.ItemID)
		}
		requested[line.ItemID] += line.Quantity
	}

	displayID, err := s.seq.Next(ctx, sequence.PrefixRTV)
	if err != nil {
		return RTV{}, err
	}

	rtv := RTV{
		TenantID:  sess.TenantID,
		DisplayID: displayID,
		BranchID:  sess.BranchID,
		GRNID:     in.GRNID,
		Status:    StatusApproved,
		Reason:    in.Reason,
		CreatedBy: sess.UserID,
		CreatedAt: time.Now().UTC(),
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		grn, err := tx.GetGRNRef(ctx, sess.TenantID, in.GRNID)
		if err != nil {
			return err
		}
		rtv.VendorID = grn.VendorID

		for _, itemID := range itemOrder {
			received, err := tx.GetReceivedQty(ctx, in.GRNID, itemID)
			if err != nil {
				return err
			}
			returned, err := tx.SumReturnedQty(ctx, in.GRNID, itemID)
			if err != nil {
				return err
			}
			if returned+requested[itemID] > received {
				return fmt.Errorf("%w: item %d: returning %.2f exceeds received %.2f (%.2f already returned)",
					ErrInvalidState, itemID, requested[itemID], received, returned)
			}
		}

		var total float64
		for _, line := range in.Lines {
			total += line.Quantity * line.UnitCost
		}
		rtv.TotalAmount = round2(total)

		id, err := tx.CreateRTV(ctx, rtv)
		if err != nil {
			return err
		}
		rtv.ID = id
		for _, line := range in.Lines {
			l := Line{RTVID: id, ItemID: line.ItemID, Quantity: line.Quantity, UnitCost: line.UnitCost}
			lineID, err := tx.InsertLine(ctx, l)
			if err != nil {
				return err
			}
			l.ID = lineID
			rtv.Items = append(rtv.Items, l)

			scope := inventory.Scope{
				TenantID:   sess.TenantID,
				BranchID:   grn.BranchID,
				WorkAreaID: grn.WorkAreaID,
				ItemID:     line.ItemID,
			}
			if err := tx.DecrementStock(ctx, scope, line.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return RTV{}, err
	}

	_ = s.audit.Record(ctx, audit.Entry{
		TenantID:    sess.TenantID,
		BranchID:    sess.BranchID,
		Action:      "RTV_CREATE",
		Entity:      "rtv",
		EntityID:    displayID,
		PerformedBy: sess.UserID,
		Details:     map[string]any{"grn_id": in.GRNID, "total": rtv.TotalAmount, "lines": len(in.Lines)},
	})
	return rtv, nil
}

// Get returns one return document with lines.
func (s *Service) Get(ctx context.Context, tenantID, id int64) (RTV, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

// List returns branch return documents.
func (s *Service) List(ctx context.Context, tenantID, branchID int64, unusedOnly bool, p shared.Pagination) ([]RTV, error) {
	return s.repo.List(ctx, tenantID, branchID, unusedOnly, p)
}
