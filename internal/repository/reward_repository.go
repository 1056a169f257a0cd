package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// RewardRepository reads the immutable reward history. Rewards are never
// mutated by the roster engine; they only gate deletion eligibility.
type RewardRepository struct {
	db *sqlx.DB
}

// NewRewardRepository constructs a RewardRepository.
func NewRewardRepository(db *sqlx.DB) *RewardRepository {
	return &RewardRepository{db: db}
}

// HasReferences reports whether any reward, in any school, was issued by or
// awarded to the staff member. A single reference anywhere blocks hard
// deletion so audit history survives offboarding.
func (r *RewardRepository) HasReferences(ctx context.Context, staffID string) (bool, error) {
	const query = `SELECT 1 FROM reward_points WHERE issuer_staff_id = $1 OR recipient_staff_id = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, staffID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check reward references: %w", err)
	}
	return true, nil
}
