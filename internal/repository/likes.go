package repository

import (
	"context"
	"fmt"
)

// LikesRepository maintains the per-review set of liking users.
type LikesRepository struct {
	db DBTX
}

// Add records that userID likes reviewID. It reports false when the like
// already existed.
func (r *LikesRepository) Add(ctx context.Context, reviewID, userID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `
        INSERT INTO review_likes (review_id, user_id)
        VALUES ($1, $2)
        ON CONFLICT (review_id, user_id) DO NOTHING
    `, reviewID, userID)
	if err != nil {
		return false, fmt.Errorf("add like: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Remove deletes the like. It reports false when there was nothing to remove.
func (r *LikesRepository) Remove(ctx context.Context, reviewID, userID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM review_likes WHERE review_id = $1 AND user_id = $2`, reviewID, userID)
	if err != nil {
		return false, fmt.Errorf("remove like: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
