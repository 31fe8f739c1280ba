package service

import (
	"context"

	"github.com/Clark-Hu/mangareview/internal/auth"
	"github.com/Clark-Hu/mangareview/internal/domain"
	"github.com/Clark-Hu/mangareview/internal/rating"
	"github.com/Clark-Hu/mangareview/internal/repository"
)

// ReviewInput is the payload for creating a review.
type ReviewInput struct {
	Content string   `json:"content" validate:"required,max=5000"`
	Rating  *float64 `json:"rating" validate:"required,gte=0,lte=10"`
}

// ReviewPatch changes the content and/or rating of a review.
type ReviewPatch struct {
	Content *string  `json:"content" validate:"omitempty,min=1,max=5000"`
	Rating  *float64 `json:"rating" validate:"omitempty,gte=0,lte=10"`
}

// ReviewResult is a review together with the series rating after the
// mutation committed.
type ReviewResult struct {
	Review       domain.Review
	SeriesRating *float64
}

// ListReviews returns the reviews of a series, newest first.
func (s *Service) ListReviews(ctx context.Context, seriesID int64) ([]domain.Review, error) {
	if _, err := s.repo.Series.GetByID(ctx, seriesID); err != nil {
		return nil, err
	}
	return s.repo.Reviews.ListBySeries(ctx, seriesID)
}

// GetReview returns a review addressed through its series.
func (s *Service) GetReview(ctx context.Context, seriesID, reviewID int64) (domain.Review, error) {
	if _, err := s.repo.Series.GetByID(ctx, seriesID); err != nil {
		return domain.Review{}, err
	}
	return reviewInSeries(ctx, s.repo, seriesID, reviewID)
}

// LikedReviews returns the reviews the caller has liked.
func (s *Service) LikedReviews(ctx context.Context, id auth.Identity) ([]domain.Review, error) {
	return s.repo.Reviews.LikedBy(ctx, id.UserID)
}

// CreateReview adds the caller's review to a series. A second review by the
// same reviewer is a conflict and leaves the ledger untouched.
func (s *Service) CreateReview(ctx context.Context, id auth.Identity, seriesID int64, in ReviewInput) (ReviewResult, error) {
	if err := s.validate.Struct(in); err != nil {
		return ReviewResult{}, err
	}

	var review domain.Review
	value, err := s.mutateLedger(ctx, rating.TriggerReviewCreated, seriesID, func(repo *repository.Repository) error {
		exists, err := repo.Reviews.ExistsForReviewer(ctx, seriesID, id.UserID)
		if err != nil {
			return err
		}
		if exists {
			return domain.Errorf(domain.ErrConflict, "you have already reviewed this series")
		}
		review, err = repo.Reviews.Create(ctx, repository.ReviewCreateParams{
			SeriesID:   seriesID,
			ReviewerID: id.UserID,
			Content:    in.Content,
			Rating:     *in.Rating,
		})
		return err
	})
	if err != nil {
		return ReviewResult{}, err
	}
	return ReviewResult{Review: review, SeriesRating: value}, nil
}

// UpdateReview changes the caller's own review.
func (s *Service) UpdateReview(ctx context.Context, id auth.Identity, seriesID, reviewID int64, patch ReviewPatch) (ReviewResult, error) {
	if err := s.validate.Struct(patch); err != nil {
		return ReviewResult{}, err
	}

	var review domain.Review
	value, err := s.mutateLedger(ctx, rating.TriggerReviewUpdated, seriesID, func(repo *repository.Repository) error {
		current, err := ownedReview(ctx, repo, id, seriesID, reviewID)
		if err != nil {
			return err
		}
		review, err = repo.Reviews.Update(ctx, current.ID, patch.Content, patch.Rating)
		return err
	})
	if err != nil {
		return ReviewResult{}, err
	}
	return ReviewResult{Review: review, SeriesRating: value}, nil
}

// DeleteReview removes the caller's own review and its likes.
func (s *Service) DeleteReview(ctx context.Context, id auth.Identity, seriesID, reviewID int64) (*float64, error) {
	return s.mutateLedger(ctx, rating.TriggerReviewDeleted, seriesID, func(repo *repository.Repository) error {
		current, err := ownedReview(ctx, repo, id, seriesID, reviewID)
		if err != nil {
			return err
		}
		return repo.Reviews.Delete(ctx, current.ID)
	})
}

// Like adds the caller to the likers of a review. Liking one's own review is
// allowed; liking twice is a conflict.
func (s *Service) Like(ctx context.Context, id auth.Identity, seriesID, reviewID int64) (ReviewResult, error) {
	return s.toggleLike(ctx, id, seriesID, reviewID, rating.TriggerLiked)
}

// Unlike removes the caller from the likers of a review. Unliking a review
// that is not liked is a conflict.
func (s *Service) Unlike(ctx context.Context, id auth.Identity, seriesID, reviewID int64) (ReviewResult, error) {
	return s.toggleLike(ctx, id, seriesID, reviewID, rating.TriggerUnliked)
}

func (s *Service) toggleLike(ctx context.Context, id auth.Identity, seriesID, reviewID int64, trigger rating.Trigger) (ReviewResult, error) {
	var review domain.Review
	value, err := s.mutateLedger(ctx, trigger, seriesID, func(repo *repository.Repository) error {
		if _, err := reviewInSeries(ctx, repo, seriesID, reviewID); err != nil {
			return err
		}

		var changed bool
		var err error
		if trigger == rating.TriggerLiked {
			changed, err = repo.Likes.Add(ctx, reviewID, id.UserID)
		} else {
			changed, err = repo.Likes.Remove(ctx, reviewID, id.UserID)
		}
		if err != nil {
			return err
		}
		if !changed {
			if trigger == rating.TriggerLiked {
				return domain.Errorf(domain.ErrConflict, "you already liked this review")
			}
			return domain.Errorf(domain.ErrConflict, "you have not liked this review")
		}

		review, err = repo.Reviews.GetByID(ctx, reviewID)
		return err
	})
	if err != nil {
		return ReviewResult{}, err
	}
	return ReviewResult{Review: review, SeriesRating: value}, nil
}

func reviewInSeries(ctx context.Context, repo *repository.Repository, seriesID, reviewID int64) (domain.Review, error) {
	review, err := repo.Reviews.GetByID(ctx, reviewID)
	if err != nil {
		return domain.Review{}, err
	}
	if review.SeriesID != seriesID {
		return domain.Review{}, domain.Errorf(domain.ErrReviewNotInSeries, "review %d does not belong to series %d", reviewID, seriesID)
	}
	return review, nil
}

func ownedReview(ctx context.Context, repo *repository.Repository, id auth.Identity, seriesID, reviewID int64) (domain.Review, error) {
	review, err := reviewInSeries(ctx, repo, seriesID, reviewID)
	if err != nil {
		return domain.Review{}, err
	}
	if !auth.IsOwner(id, review.ReviewerID) {
		return domain.Review{}, domain.Errorf(domain.ErrForbidden, "only the reviewer may change this review")
	}
	return review, nil
}
