package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/accessdesk/access-api/internal/models"
)

// ProfileRepository reads requester profiles and training history.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs the repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindByEID fetches a profile by employee id.
func (r *ProfileRepository) FindByEID(ctx context.Context, eid string) (*models.UserProfile, error) {
	const query = `SELECT eid, name, title, lob, completed_trainings, cbt_completions, updated_at FROM user_profiles WHERE eid = $1 LIMIT 1`
	var profile models.UserProfile
	if err := r.db.GetContext(ctx, &profile, query, eid); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find profile by eid: %w", err)
	}
	return &profile, nil
}
