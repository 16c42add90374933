package vendors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/larder-erp/larder-erp/internal/audit"
	"github.com/larder-erp/larder-erp/internal/sequence"
	"github.com/larder-erp/larder-erp/internal/shared"
)

// SequencePort issues vendor display identifiers.
type SequencePort interface {
	Next(ctx context.Context, prefix string) (string, error)
}

// Service covers manual vendor registration and reads.
type Service struct {
	repo  RepositoryPort
	seq   SequencePort
	audit audit.Recorder
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, seq SequencePort, rec audit.Recorder) *Service {
	return &Service{repo: repo, seq: seq, audit: rec}
}

// CreateInput is a manual vendor registration.
type CreateInput struct {
	Name       string
	GSTNo      string
	PANNo      string
	Categories []string
	Phone      string
	Email      string
	Address    string
}

// Create registers a vendor, rejecting duplicates by name or GST number.
func (s *Service) Create(ctx context.Context, sess shared.Session, in CreateInput) (Vendor, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Vendor{}, fmt.Errorf("%w: name is required", ErrValidation)
	}

	existing, err := s.repo.FindByNameOrGST(ctx, sess.TenantID, name, strings.TrimSpace(in.GSTNo))
	if err == nil {
		return Vendor{}, fmt.Errorf("%w: matches vendor %s", ErrDuplicate, existing.DisplayID)
	}
	if !errors.Is(err, ErrNotFound) {
		return Vendor{}, err
	}

	displayID, err := s.seq.Next(ctx, sequence.PrefixVendor)
	if err != nil {
		return Vendor{}, err
	}
	vendor := Vendor{
		TenantID:    sess.TenantID,
		DisplayID:   displayID,
		Name:        name,
		GSTNo:       strings.TrimSpace(in.GSTNo),
		PANNo:       strings.TrimSpace(in.PANNo),
		Categories:  in.Categories,
		Phone:       in.Phone,
		Email:       in.Email,
		Address:     in.Address,
		Status:      "ACTIVE",
		CreatedFrom: CreatedFromManual,
	}
	id, err := s.repo.Create(ctx, vendor)
	if err != nil {
		return Vendor{}, err
	}
	vendor.ID = id

	_ = s.audit.Record(ctx, audit.Entry{
		TenantID:    sess.TenantID,
		BranchID:    sess.BranchID,
		Action:      "VENDOR_CREATE",
		Entity:      "vendor",
		EntityID:    displayID,
		PerformedBy: sess.UserID,
	})
	return vendor, nil
}

// Get returns one vendor.
func (s *Service) Get(ctx context.Context, tenantID, id int64) (Vendor, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

// List returns vendors matching the optional search term.
func (s *Service) List(ctx context.Context, tenantID int64, search string, p shared.Pagination) ([]Vendor, error) {
	return s.repo.List(ctx, tenantID, search, p)
}
