package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/mangareview/internal/domain"
)

// ReviewsRepository provides helpers for series reviews.
type ReviewsRepository struct {
	db DBTX
}

const reviewColumns = `
    r.id,
    r.series_id,
    s.title,
    r.reviewer_id,
    u.username,
    r.content,
    r.rating,
    (SELECT COUNT(*) FROM review_likes l WHERE l.review_id = r.id) AS likes,
    r.date,
    r.created_at,
    r.updated_at
`

const reviewFrom = `
    FROM reviews r
    JOIN series s ON s.id = r.series_id
    JOIN users u ON u.id = r.reviewer_id
`

// ReviewCreateParams captures the payload required to create a review.
type ReviewCreateParams struct {
	SeriesID   int64
	ReviewerID int64
	Content    string
	Rating     float64
}

// Create inserts a review. Callers check for an existing review by the same
// reviewer while holding the series lock.
func (r *ReviewsRepository) Create(ctx context.Context, params ReviewCreateParams) (domain.Review, error) {
	const query = `
        INSERT INTO reviews (series_id, reviewer_id, content, rating)
        VALUES ($1,$2,$3,$4)
        RETURNING id
    `
	var id int64
	if err := r.db.QueryRow(ctx, query, params.SeriesID, params.ReviewerID, params.Content, params.Rating).Scan(&id); err != nil {
		return domain.Review{}, fmt.Errorf("insert review: %w", err)
	}
	return r.GetByID(ctx, id)
}

// ExistsForReviewer reports whether reviewerID already reviewed seriesID.
func (r *ReviewsRepository) ExistsForReviewer(ctx context.Context, seriesID, reviewerID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reviews WHERE series_id = $1 AND reviewer_id = $2)`,
		seriesID, reviewerID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check existing review: %w", err)
	}
	return exists, nil
}

// GetByID fetches a review with its series title, reviewer name and like count.
func (r *ReviewsRepository) GetByID(ctx context.Context, id int64) (domain.Review, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE r.id = $1`, reviewColumns, reviewFrom)
	review, err := scanReview(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Review{}, domain.Errorf(domain.ErrNotFound, "review %d not found", id)
		}
		return domain.Review{}, fmt.Errorf("get review %d: %w", id, err)
	}
	return review, nil
}

// Update changes content and/or rating; nil fields are left unchanged.
func (r *ReviewsRepository) Update(ctx context.Context, id int64, content *string, rating *float64) (domain.Review, error) {
	const query = `
        UPDATE reviews
        SET content = COALESCE($2, content),
            rating = COALESCE($3, rating),
            updated_at = now()
        WHERE id = $1
    `
	tag, err := r.db.Exec(ctx, query, id, content, rating)
	if err != nil {
		return domain.Review{}, fmt.Errorf("update review %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Review{}, domain.Errorf(domain.ErrNotFound, "review %d not found", id)
	}
	return r.GetByID(ctx, id)
}

// Delete removes a review together with its likes.
func (r *ReviewsRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Errorf(domain.ErrNotFound, "review %d not found", id)
	}
	return nil
}

// ListBySeries returns the reviews of a series, newest first.
func (r *ReviewsRepository) ListBySeries(ctx context.Context, seriesID int64) ([]domain.Review, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE r.series_id = $1 ORDER BY r.id DESC`, reviewColumns, reviewFrom)
	return r.list(ctx, query, seriesID)
}

// LikedBy returns the reviews userID has liked, most recently liked first.
func (r *ReviewsRepository) LikedBy(ctx context.Context, userID int64) ([]domain.Review, error) {
	query := fmt.Sprintf(`SELECT %s %s JOIN review_likes mine ON mine.review_id = r.id AND mine.user_id = $1
        ORDER BY mine.created_at DESC, r.id DESC`, reviewColumns, reviewFrom)
	return r.list(ctx, query, userID)
}

// SeriesTouchedBy lists the series whose ledger depends on userID, either
// through a review they wrote or a like they gave.
func (r *ReviewsRepository) SeriesTouchedBy(ctx context.Context, userID int64) ([]int64, error) {
	const query = `
        SELECT series_id FROM reviews WHERE reviewer_id = $1
        UNION
        SELECT r.series_id FROM review_likes l JOIN reviews r ON r.id = l.review_id WHERE l.user_id = $1
        ORDER BY 1
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list series touched by user %d: %w", userID, err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *ReviewsRepository) list(ctx context.Context, query string, args ...any) ([]domain.Review, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Review, 0)
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, review)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanReview(row pgx.Row) (domain.Review, error) {
	var review domain.Review
	err := row.Scan(
		&review.ID,
		&review.SeriesID,
		&review.SeriesTitle,
		&review.ReviewerID,
		&review.ReviewerUsername,
		&review.Content,
		&review.Rating,
		&review.Likes,
		&review.Date,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	if err != nil {
		return domain.Review{}, err
	}
	return review, nil
}
