package grn

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
	GetByID(ctx context.Context, tenantID, id int64) (GoodsReceipt, error)
	List(ctx context.Context, tenantID, branchID int64, p shared.Pagination) ([]GoodsReceipt, error)
}

// SequencePort issues receipt display identifiers.
type SequencePort interface {
	Next(ctx context.Context, prefix string) (string, error)
}

// Service posts goods receipts.
type Service struct {
	repo  RepositoryPort
	seq   SequencePort
	audit audit.Recorder
}

// NewService constructs a receipt service.
func NewService(repo RepositoryPort, seq SequencePort, rec audit.Recorder) *Service {
	return &Service{repo: repo, seq: seq, audit: rec}
}

// CreateInput describes a receipt to post.
type CreateInput struct {
	POID            int64
	WorkAreaID      int64
	VendorInvoiceNo string
	Lines           []LineInput
}

// LineInput is one received line.
type LineInput struct {
	ItemID      int64
	ReceivedQty float64
	UnitCost    float64
}

// Create posts a receipt against an approved purchase order and increments
// stock for each received line. Receipt rows and stock movements commit or
// roll back together.
func (s *Service) Create(ctx context.Context, sess shared.Session, in CreateInput) (GoodsReceipt, error) {
	if len(in.Lines) == 0 {
		return GoodsReceipt{}, fmt.Errorf("%w: at least one line is required", ErrValidation)
	}
	for _, line := range in.Lines {
		if line.ItemID == 0 {
			return GoodsReceipt{}, fmt.Errorf("%w: line item id is required", ErrValidation)
		}
		if line.ReceivedQty <= 0 {
			return GoodsReceipt{}, fmt.Errorf("%w: received quantity must be positive", ErrValidation)
		}
		if line.UnitCost < 0 {
			return GoodsReceipt{}, fmt.Errorf("%w: unit cost must not be negative", ErrValidation)
		}
	}

	displayID, err := s.seq.Next(ctx, sequence.PrefixGoodsReceipt)
	if err != nil {
		return GoodsReceipt{}, err
	}

	receipt := GoodsReceipt{
		TenantID:        sess.TenantID,
		DisplayID:       displayID,
		BranchID:        sess.BranchID,
		WorkAreaID:      in.WorkAreaID,
		POID:            in.POID,
		VendorInvoiceNo: in.VendorInvoiceNo,
		Status:          StatusPosted,
		ReceivedAt:      time.Now().UTC(),
		CreatedBy:       sess.UserID,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		po, err := tx.GetPORef(ctx, sess.TenantID, in.POID)
		if err != nil {
			return err
		}
		if po.Status != "APPROVED" {
			return fmt.Errorf("%w: purchase order %s is %s, receipts need an APPROVED order", ErrInvalidState, po.DisplayID, po.Status)
		}
		if po.VendorID == nil {
			return fmt.Errorf("%w: purchase order %s has no resolved vendor", ErrValidation, po.DisplayID)
		}
		receipt.VendorID = *po.VendorID

		id, err := tx.CreateGRN(ctx, receipt)
		if err != nil {
			return err
		}
		receipt.ID = id
		for _, line := range in.Lines {
			l := Line{GRNID: id, ItemID: line.ItemID, ReceivedQty: line.ReceivedQty, UnitCost: line.UnitCost}
			lineID, err := tx.InsertLine(ctx, l)
			if err != nil {
				return err
			}
			l.ID = lineID
			receipt.Items = append(receipt.Items, l)

			scope := inventory.Scope{
				TenantID:   sess.TenantID,
				BranchID:   sess.BranchID,
				WorkAreaID: in.WorkAreaID,
				ItemID:     line.ItemID,
			}
			if err := tx.IncrementStock(ctx, scope, line.ReceivedQty); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return GoodsReceipt{}, err
	}

	_ = s.audit.Record(ctx, audit.Entry{
		TenantID:    sess.TenantID,
		BranchID:    sess.BranchID,
		Action:      "GRN_CREATE",
		Entity:      "goods_receipt",
		EntityID:    displayID,
		PerformedBy: sess.UserID,
		Details:     map[string]any{"po_id": in.POID, "lines": len(in.Lines)},
	})
	return receipt, nil
}

// Get returns one receipt with lines.
func (s *Service) Get(ctx context.Context, tenantID, id int64) (GoodsReceipt, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

// List returns branch receipts.
func (s *Service) List(ctx context.Context, tenantID, branchID int64, p shared.Pagination) ([]GoodsReceipt, error) {
	return s.repo.List(ctx, tenantID, branchID, p)
}
