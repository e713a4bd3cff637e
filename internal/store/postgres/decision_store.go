package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantfold/polypilot/internal/domain"
)

// DecisionStore implements domain.DecisionStore using PostgreSQL.
type DecisionStore struct {
	pool *pgxpool.Pool
}

// NewDecisionStore creates a DecisionStore backed by the given connection pool.
func NewDecisionStore(pool *pgxpool.Pool) *DecisionStore {
	return &DecisionStore{pool: pool}
}

// Insert journals one evaluation outcome.
func (s *DecisionStore) Insert(ctx context.Context, rec domain.DecisionRecord) error {
	const query = `
		INSERT INTO decisions (
			id, market_id, outcome, size, price,
			confidence, should_trade, executed, reasoning, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.MarketID, string(rec.Outcome), rec.Size, rec.Price,
		rec.Confidence, rec.ShouldTrade, rec.Executed, rec.Reasoning, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert decision %s: %w", rec.ID, err)
	}
	return nil
}

// ListRecent returns decisions ordered newest first.
func (s *DecisionStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.DecisionRecord, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	const query = `
		SELECT id, market_id, outcome, size, price,
			confidence, should_trade, executed, reasoning, created_at
		FROM decisions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := s.pool.Query(ctx, query, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list decisions: %w", err)
	}
	defer rows.Close()

	return scanDecisionRows(rows)
}

func scanDecisionRows(rows pgx.Rows) ([]domain.DecisionRecord, error) {
	var out []domain.DecisionRecord
	for rows.Next() {
		var rec domain.DecisionRecord
		var outcome string
		if err := rows.Scan(
			&rec.ID, &rec.MarketID, &outcome, &rec.Size, &rec.Price,
			&rec.Confidence, &rec.ShouldTrade, &rec.Executed, &rec.Reasoning, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan decision: %w", err)
		}
		rec.Outcome = domain.Outcome(outcome)
		out = append(out, rec)
	}
	return out, rows.Err()
}

var _ domain.DecisionStore = (*DecisionStore)(nil)
