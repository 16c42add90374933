package procurement

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/larder-erp/larder-erp/internal/sequence"
)

// PromotedVendor is a vendor materialized from a special order.
type PromotedVendor struct {
	TenantID      int64
	DisplayID     string
	Name          string
	GSTNo         string
	PANNo         string
	Categories    []string
	SourceOrderID int64
}

// PromotedItem is a catalog item materialized from a special order line.
type PromotedItem struct {
	TenantID      int64
	DisplayID     string
	Code          string
	Name          string
	Category      string
	UOM           string
	Description   string
	UnitCost      float64
	TaxRate       float64
	SourceOrderID int64
}

var vendorNameCaser = cases.Title(language.English)

// promote materializes the order's temporary vendor and item data into the
// masters and rewrites the order's references. Runs inside the approval
// transaction; any failure here rolls back the approval. Promotion is a
// one-way ratchet: a later revert leaves the created records in place.
func (s *Service) promote(ctx context.Context, tx TxRepository, po *PurchaseOrder) error {
	if err := s.promoteVendor(ctx, tx, po); err != nil {
		return fmt.Errorf("promote vendor: %w", err)
	}
	if err := s.promoteItems(ctx, tx, po); err != nil {
		return fmt.Errorf("promote items: %w", err)
	}
	return nil
}

// promoteVendor resolves the order's vendor name against the master by
// case-insensitive name or GST number, creating the vendor when no match
// exists.
func (s *Service) promoteVendor(ctx context.Context, tx TxRepository, po *PurchaseOrder) error {
	if !po.MasterFlags.AddToVendorMaster || po.VendorID != nil {
		return nil
	}
	name := strings.TrimSpace(po.VendorName)
	if name == "" {
		return nil
	}
	var gstNo, panNo string
	var categories []string
	if po.TempVendor != nil {
		gstNo = strings.TrimSpace(po.TempVendor.GSTNo)
		panNo = strings.TrimSpace(po.TempVendor.PANNo)
		categories = po.TempVendor.Categories
	}

	vendorID, found, err := tx.FindVendorByNameOrGST(ctx, po.TenantID, name, gstNo)
	if err != nil {
		return err
	}
	if !found {
		displayID, err := s.seq.Next(ctx, sequence.PrefixVendor)
		if err != nil {
			return err
		}
		vendorID, err = tx.CreateVendor(ctx, PromotedVendor{
			TenantID:      po.TenantID,
			DisplayID:     displayID,
			Name:          vendorNameCaser.String(strings.ToLower(name)),
			GSTNo:         gstNo,
			PANNo:         panNo,
			Categories:    categories,
			SourceOrderID: po.ID,
		})
		if err != nil {
			return err
		}
	}
	if err := tx.SetVendor(ctx, po.ID, vendorID); err != nil {
		return err
	}
	po.VendorID = &vendorID
	return nil
}

// promoteItems materializes every line flagged save-to-master, deduping by
// item code within the tenant, and rewrites the line references. Lines
// without the flag keep a pending reference permanently.
func (s *Service) promoteItems(ctx context.Context, tx TxRepository, po *PurchaseOrder) error {
	lines, err := tx.ListLines(ctx, po.ID)
	if err != nil {
		return err
	}
	for _, line := range lines {
		temp := line.Ref.Temp()
		if line.Ref.Resolved() || temp == nil || !temp.SaveToMaster {
			continue
		}

		code := strings.TrimSpace(temp.Code)
		generated := false
		if code == "" {
			code, err = s.seq.Next(ctx, sequence.PrefixItem)
			if err != nil {
				return err
			}
			generated = true
		}

		itemID, found, err := tx.FindItemByCode(ctx, po.TenantID, code)
		if err != nil {
			return err
		}
		if !found {
			displayID := code
			if !generated {
				displayID, err = s.seq.Next(ctx, sequence.PrefixItem)
				if err != nil {
					return err
				}
			}
			itemID, err = tx.CreateItem(ctx, PromotedItem{
				TenantID:      po.TenantID,
				DisplayID:     displayID,
				Code:          code,
				Name:          line.Name,
				Category:      temp.Category,
				UOM:           temp.UOM,
				Description:   temp.Description,
				UnitCost:      line.UnitCost,
				TaxRate:       line.TaxRate,
				SourceOrderID: po.ID,
			})
			if err != nil {
				return err
			}
		}
		if err := tx.SetLineItemRef(ctx, line.ID, itemID); err != nil {
			return err
		}
	}
	return nil
}
