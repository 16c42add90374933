package sequence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists counters in the counters table. Each Next call is one
// atomic upsert-and-increment, so concurrent callers always observe distinct
// values regardless of any surrounding transaction state.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PGStore.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Next atomically increments the counter for prefix, creating it at 1 on
// first use.
func (s *PGStore) Next(ctx context.Context, prefix string) (int64, error) {
	var seq int64
	err := s.pool.QueryRow(ctx, `INSERT INTO counters (prefix, seq) VALUES ($1, 1)
ON CONFLICT (prefix) DO UPDATE SET seq = counters.seq + 1
RETURNING seq`, prefix).Scan(&seq)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrGeneration
		}
		return 0, err
	}
	return seq, nil
}
