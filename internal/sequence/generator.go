// Package sequence issues human-readable document numbers backed by
// per-prefix counters. Counters only ever move forward: a number handed out
// is never reused, even when the document it was minted for is deleted.
package sequence

import (
	"context"
	"errors"
	"fmt"
)

// Document number prefixes.
const (
	PrefixPurchaseOrder = "PO"
	PrefixSpecialOrder  = "SO"
	PrefixItem          = "IT"
	PrefixVendor        = "VN"
	PrefixUser          = "US"
	PrefixRTV           = "RV"
	PrefixBranch        = "BR"
	PrefixIndent        = "IN"
	PrefixGoodsReceipt  = "GR"
)

// ErrGeneration indicates the backing counter produced no value.
var ErrGeneration = errors.New("sequence: generation failed")

// Store increments and returns the counter value for a prefix. The increment
// must be a single atomic operation against shared storage, never a
// read-modify-write pair, and must not join any caller transaction.
type Store interface {
	Next(ctx context.Context, prefix string) (int64, error)
}

// Generator formats counter values as display identifiers.
type Generator struct {
	store Store
}

// NewGenerator constructs a Generator.
func NewGenerator(store Store) *Generator {
	return &Generator{store: store}
}

// Next returns the next display identifier for prefix, e.g. "PO-000042".
func (g *Generator) Next(ctx context.Context, prefix string) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("%w: empty prefix", ErrGeneration)
	}
	seq, err := g.store.Next(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("%w: prefix %s: %v", ErrGeneration, prefix, err)
	}
	return Format(prefix, seq), nil
}

// Format renders a display identifier with the sequence zero-padded to six digits.
func Format(prefix string, seq int64) string {
	return fmt.Sprintf("%s-%06d", prefix, seq)
}
