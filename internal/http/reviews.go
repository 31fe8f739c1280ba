package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Clark-Hu/mangareview/internal/auth"
	"github.com/Clark-Hu/mangareview/internal/domain"
	"github.com/Clark-Hu/mangareview/internal/service"
)

type reviewResponse struct {
	ID         int64     `json:"id"`
	SeriesID   int64     `json:"series_id"`
	Series     string    `json:"series"`
	ReviewerID int64     `json:"reviewer_id"`
	Reviewer   string    `json:"reviewer"`
	Content    string    `json:"content"`
	Rating     float64   `json:"rating"`
	Likes      int64     `json:"likes"`
	Date       string    `json:"date"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// reviewMutationResponse carries the series rating as recomputed by the
// mutation, so clients need not refetch the series.
type reviewMutationResponse struct {
	Review       *reviewResponse `json:"review,omitempty"`
	SeriesID     int64           `json:"series_id"`
	SeriesRating *float64        `json:"series_rating"`
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	ids, ok := s.idParams(w, r, "seriesID")
	if !ok {
		return
	}
	reviews, err := s.svc.ListReviews(r.Context(), ids[0])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toReviewResponses(reviews))
}

func (s *Server) handleGetReview(w http.ResponseWriter, r *http.Request) {
	ids, ok := s.idParams(w, r, "seriesID", "reviewID")
	if !ok {
		return
	}
	review, err := s.svc.GetReview(r.Context(), ids[0], ids[1])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toReviewResponse(review))
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	ids, ok := s.idParams(w, r, "seriesID")
	if !ok {
		return
	}
	var req service.ReviewInput
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	res, err := s.svc.CreateReview(r.Context(), identity(r), ids[0], req)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/series/%d/reviews/%d", ids[0], res.Review.ID))
	s.respondJSON(w, http.StatusCreated, toMutationResponse(res))
}

func (s *Server) handleUpdateReview(w http.ResponseWriter, r *http.Request) {
	ids, ok := s.idParams(w, r, "seriesID", "reviewID")
	if !ok {
		return
	}
	var req service.ReviewPatch
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	res, err := s.svc.UpdateReview(r.Context(), identity(r), ids[0], ids[1], req)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMutationResponse(res))
}

func (s *Server) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	ids, ok := s.idParams(w, r, "seriesID", "reviewID")
	if !ok {
		return
	}
	value, err := s.svc.DeleteReview(r.Context(), identity(r), ids[0], ids[1])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, reviewMutationResponse{SeriesID: ids[0], SeriesRating: value})
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	s.toggleLike(w, r, s.svc.Like)
}

func (s *Server) handleUnlike(w http.ResponseWriter, r *http.Request) {
	s.toggleLike(w, r, s.svc.Unlike)
}

type likeFunc func(ctx context.Context, id auth.Identity, seriesID, reviewID int64) (service.ReviewResult, error)

func (s *Server) toggleLike(w http.ResponseWriter, r *http.Request, fn likeFunc) {
	ids, ok := s.idParams(w, r, "seriesID", "reviewID")
	if !ok {
		return
	}
	res, err := fn(r.Context(), identity(r), ids[0], ids[1])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMutationResponse(res))
}

func (s *Server) handleLikedReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.svc.LikedReviews(r.Context(), identity(r))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toReviewResponses(reviews))
}

// identity is only called behind RequireUser, which always sets it.
func identity(r *http.Request) auth.Identity {
	id, _ := auth.IdentityFromContext(r.Context())
	return id
}

func toReviewResponse(review domain.Review) reviewResponse {
	return reviewResponse{
		ID:         review.ID,
		SeriesID:   review.SeriesID,
		Series:     review.SeriesTitle,
		ReviewerID: review.ReviewerID,
		Reviewer:   review.ReviewerUsername,
		Content:    review.Content,
		Rating:     review.Rating,
		Likes:      review.Likes,
		Date:       review.Date.Format("2006-01-02"),
		CreatedAt:  review.CreatedAt,
		UpdatedAt:  review.UpdatedAt,
	}
}

func toReviewResponses(reviews []domain.Review) []reviewResponse {
	items := make([]reviewResponse, 0, len(reviews))
	for _, review := range reviews {
		items = append(items, toReviewResponse(review))
	}
	return items
}

func toMutationResponse(res service.ReviewResult) reviewMutationResponse {
	review := toReviewResponse(res.Review)
	return reviewMutationResponse{
		Review:       &review,
		SeriesID:     res.Review.SeriesID,
		SeriesRating: res.SeriesRating,
	}
}
