package indents

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/larder-erp/larder-erp/internal/audit"
	"github.com/larder-erp/larder-erp/internal/sequence"
	"github.com/larder-erp/larder-erp/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetByID(ctx context.Context, tenantID, id int64) (Indent, error)
	List(ctx context.Context, tenantID, branchID int64, status Status, p shared.Pagination) ([]Indent, error)
}

// SequencePort issues indent display identifiers.
type SequencePort interface {
	Next(ctx context.Context, prefix string) (string, error)
}

// Service orchestrates indent flows.
type Service struct {
	repo  RepositoryPort
	seq   SequencePort
	audit audit.Recorder
}

// NewService constructs an indent service.
func NewService(repo RepositoryPort, seq SequencePort, rec audit.Recorder) *Service {
	return &Service{repo: repo, seq: seq, audit: rec}
}

// CreateInput describes a new indent.
type CreateInput struct {
	WorkAreaID   int64
	EntryType    string
	RequiredDate *time.Time
	Remarks      string
	Items        []LineInput
}

// LineInput is one requested line.
type LineInput struct {
	ItemID       int64
	RequestedQty float64
}

// Create raises an indent in OPEN state.
func (s *Service) Create(ctx context.Context, sess shared.Session, in CreateInput) (Indent, error) {
	if len(in.Items) == 0 {
		return Indent{}, fmt.Errorf("%w: at least one line is required", ErrValidation)
	}
	for _, line := range in.Items {
		if line.ItemID == 0 {
			return Indent{}, fmt.Errorf("%w: line item id is required", ErrValidation)
		}
		if line.RequestedQty <= 0 {
			return Indent{}, fmt.Errorf("%w: requested quantity must be positive", ErrValidation)
		}
	}
	entryType := in.EntryType
	if entryType == "" {
		entryType = EntryTypeOpen
	}
	if entryType != EntryTypeOpen && entryType != EntryTypePackage {
		return Indent{}, fmt.Errorf("%w: unknown entry type %s", ErrValidation, entryType)
	}

	displayID, err := s.seq.Next(ctx, sequence.PrefixIndent)
	if err != nil {
		return Indent{}, err
	}

	ind := Indent{
		TenantID:     sess.TenantID,
		DisplayID:    displayID,
		BranchID:     sess.BranchID,
		WorkAreaID:   in.WorkAreaID,
		EntryType:    entryType,
		Status:       StatusOpen,
		IndentDate:   time.Now().UTC(),
		RequiredDate: in.RequiredDate,
		Remarks:      in.Remarks,
		CreatedBy:    sess.UserID,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateIndent(ctx, ind)
		if err != nil {
			return err
		}
		ind.ID = id
		for _, line := range in.Items {
			item := Item{
				IndentID:          id,
				ItemID:            line.ItemID,
				RequestedQty:      line.RequestedQty,
				ProcurementStatus: ProcurementPending,
			}
			itemID, err := tx.InsertItem(ctx, item)
			if err != nil {
				return err
			}
			item.ID = itemID
			ind.Items = append(ind.Items, item)
		}
		return nil
	})
	if err != nil {
		return Indent{}, err
	}

	_ = s.audit.Record(ctx, audit.Entry{
		TenantID:    sess.TenantID,
		BranchID:    sess.BranchID,
		Action:      "INDENT_CREATE",
		Entity:      "indent",
		EntityID:    displayID,
		PerformedBy: sess.UserID,
		Details:     map[string]any{"lines": len(in.Items)},
	})
	return ind, nil
}

// Approve moves an OPEN indent to APPROVED and fixes per-line approved
// quantities. Lines without an override are approved at the requested
// quantity; pending quantity starts equal to the approval.
func (s *Service) Approve(ctx context.Context, sess shared.Session, indentID int64, overrides map[int64]float64) (Indent, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ind, err := tx.GetForUpdate(ctx, sess.TenantID, indentID)
		if err != nil {
			return err
		}
		if ind.Status != StatusOpen {
			return fmt.Errorf("%w: indent %s is %s, only OPEN indents can be approved", ErrInvalidState, ind.DisplayID, ind.Status)
		}
		items, err := tx.ListItems(ctx, indentID)
		if err != nil {
			return err
		}
		for _, item := range items {
			approved := item.RequestedQty
			if qty, ok := overrides[item.ItemID]; ok {
				approved = qty
			}
			if approved < 0 {
				return fmt.Errorf("%w: approved quantity must not be negative", ErrValidation)
			}
			if err := tx.SetItemApproval(ctx, item.ID, approved, approved); err != nil {
				return err
			}
		}
		approver := sess.UserID
		return tx.UpdateStatus(ctx, indentID, StatusApproved, &approver)
	})
	if err != nil {
		return Indent{}, err
	}

	ind, err := s.repo.GetByID(ctx, sess.TenantID, indentID)
	if err != nil {
		return Indent{}, err
	}
	_ = s.audit.Record(ctx, audit.Entry{
		TenantID:    sess.TenantID,
		BranchID:    sess.BranchID,
		Action:      "INDENT_APPROVE",
		Entity:      "indent",
		EntityID:    ind.DisplayID,
		PerformedBy: sess.UserID,
	})
	return ind, nil
}

// Reject moves an OPEN indent to REJECTED.
func (s *Service) Reject(ctx context.Context, sess shared.Session, indentID int64) error {
	return s.transition(ctx, sess, indentID, StatusRejected, "INDENT_REJECT")
}

// Cancel moves an OPEN indent to CANCELLED.
func (s *Service) Cancel(ctx context.Context, sess shared.Session, indentID int64) error {
	return s.transition(ctx, sess, indentID, StatusCancelled, "INDENT_CANCEL")
}

func (s *Service) transition(ctx context.Context, sess shared.Session, indentID int64, target Status, action string) error {
	var displayID string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ind, err := tx.GetForUpdate(ctx, sess.TenantID, indentID)
		if err != nil {
			return err
		}
		if ind.Status != StatusOpen {
			return fmt.Errorf("%w: indent %s is %s, only OPEN indents can move to %s", ErrInvalidState, ind.DisplayID, ind.Status, target)
		}
		displayID = ind.DisplayID
		return tx.UpdateStatus(ctx, indentID, target, nil)
	})
	if err != nil {
		return err
	}
	_ = s.audit.Record(ctx, audit.Entry{
		TenantID:    sess.TenantID,
		BranchID:    sess.BranchID,
		Action:      action,
		Entity:      "indent",
		EntityID:    displayID,
		PerformedBy: sess.UserID,
		Details:     map[string]any{"indent_id": strconv.FormatInt(indentID, 10)},
	})
	return nil
}

// Get returns one indent with items.
func (s *Service) Get(ctx context.Context, tenantID, id int64) (Indent, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

// List returns branch indents.
func (s *Service) List(ctx context.Context, tenantID, branchID int64, status Status, p shared.Pagination) ([]Indent, error) {
	return s.repo.List(ctx, tenantID, branchID, status, p)
}
