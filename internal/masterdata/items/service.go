package items

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/larder-erp/larder-erp/internal/audit"
	"github.com/larder-erp/larder-erp/internal/sequence"
	"github.com/larder-erp/larder-erp/internal/shared"
)

// SequencePort issues item display identifiers and auto codes.
type SequencePort interface {
	Next(ctx context.Context, prefix string) (string, error)
}

// Service covers manual item registration and reads.
type Service struct {
	repo  RepositoryPort
	seq   SequencePort
	audit audit.Recorder
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, seq SequencePort, rec audit.Recorder) *Service {
	return &Service{repo: repo, seq: seq, audit: rec}
}

// CreateInput is a manual item registration. An empty Code gets an
// auto-generated one.
type CreateInput struct {
	Code        string
	Name        string
	Category    string
	UOM         string
	UnitCost    float64
	TaxRate     float64
	Description string
}

// Create registers an item, rejecting duplicate codes within the tenant.
func (s *Service) Create(ctx context.Context, sess shared.Session, in CreateInput) (Item, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Item{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if in.UnitCost < 0 || in.TaxRate < 0 {
		return Item{}, fmt.Errorf("%w: unit cost and tax rate must not be negative", ErrValidation)
	}

	code := strings.TrimSpace(in.Code)
	if code == "" {
		generated, err := s.seq.Next(ctx, sequence.PrefixItem)
		if err != nil {
			return Item{}, err
		}
		code = generated
	} else {
		existing, err := s.repo.FindByCode(ctx, sess.TenantID, code)
		if err == nil {
			return Item{}, fmt.Errorf("%w: code %s already used by %s", ErrDuplicate, code, existing.DisplayID)
		}
		if !errors.Is(err, ErrNotFound) {
			return Item{}, err
		}
	}

	displayID, err := s.seq.Next(ctx, sequence.PrefixItem)
	if err != nil {
		return Item{}, err
	}
	item := Item{
		TenantID:    sess.TenantID,
		DisplayID:   displayID,
		Code:        code,
		Name:        name,
		Category:    in.Category,
		UOM:         in.UOM,
		UnitCost:    in.UnitCost,
		TaxRate:     in.TaxRate,
		Description: in.Description,
		Status:      "ACTIVE",
		CreatedFrom: CreatedFromManual,
	}
	id, err := s.repo.Create(ctx, item)
	if err != nil {
		return Item{}, err
	}
	item.ID = id

	_ = s.audit.Record(ctx, audit.Entry{
		TenantID:    sess.TenantID,
		BranchID:    sess.BranchID,
		Action:      "ITEM_CREATE",
		Entity:      "item",
		EntityID:    displayID,
		PerformedBy: sess.UserID,
	})
	return item, nil
}

// Get returns one item.
func (s *Service) Get(ctx context.Context, tenantID, id int64) (Item, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

// List returns items matching the optional search term.
func (s *Service) List(ctx context.Context, tenantID int64, search string, p shared.Pagination) ([]Item, error) {
	return s.repo.List(ctx, tenantID, search, p)
}
