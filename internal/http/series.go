package httpserver

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Clark-Hu/mangareview/internal/domain"
	"github.com/Clark-Hu/mangareview/internal/repository"
	"github.com/Clark-Hu/mangareview/internal/service"
)

type seriesListResponse struct {
	Items      []seriesResponse `json:"items"`
	NextCursor *string          `json:"next_cursor,omitempty"`
}

type seriesResponse struct {
	ID                  int64     `json:"id"`
	Title               string    `json:"title"`
	Author              string    `json:"author"`
	Rating              *float64  `json:"rating"`
	Genre               []string  `json:"genre"`
	Year                int       `json:"year"`
	About               string    `json:"about"`
	Completed           bool      `json:"completed"`
	Anime               bool      `json:"anime"`
	Chapters            *int      `json:"chapters"`
	Volumes             *int      `json:"volumes"`
	OfficialTranslation bool      `json:"official_translation"`
	NumberOfReviews     int64     `json:"number_of_reviews"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (s *Server) handleListSeries(w http.ResponseWriter, r *http.Request) {
	filters, err := buildSeriesFilters(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	result, err := s.svc.ListSeries(r.Context(), filters)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	items := make([]seriesResponse, 0, len(result.Items))
	for _, series := range result.Items {
		items = append(items, toSeriesResponse(series))
	}
	s.respondJSON(w, http.StatusOK, seriesListResponse{
		Items:      items,
		NextCursor: result.NextCursor,
	})
}

func buildSeriesFilters(query url.Values) (repository.SeriesListFilters, error) {
	var filters repository.SeriesListFilters

	if val := strings.TrimSpace(query.Get("title")); val != "" {
		filters.Title = &val
	}
	if val := strings.TrimSpace(query.Get("author")); val != "" {
		filters.Author = &val
	}
	if val := strings.TrimSpace(query.Get("year")); val != "" {
		year, err := strconv.Atoi(val)
		if err != nil {
			return filters, fmt.Errorf("invalid year value")
		}
		filters.Year = &year
	}
	if val := strings.TrimSpace(query.Get("rating[gte]")); val != "" {
		threshold, err := strconv.ParseFloat(val, 64)
		if err != nil || !(threshold >= 0 && threshold <= 10) {
			return filters, fmt.Errorf("invalid rating[gte] value")
		}
		filters.RatingGTE = &threshold
	}
	if val := strings.TrimSpace(query.Get("limit")); val != "" {
		limit, err := strconv.Atoi(val)
		if err != nil || limit <= 0 {
			return filters, fmt.Errorf("invalid limit value")
		}
		filters.Limit = limit
	}
	if val := strings.TrimSpace(query.Get("cursor")); val != "" {
		cursor, err := repository.DecodeCursor(val)
		if err != nil {
			return filters, fmt.Errorf("invalid cursor")
		}
		filters.Cursor = cursor
	}
	return filters, nil
}

func (s *Server) handleCreateSeries(w http.ResponseWriter, r *http.Request) {
	var req service.SeriesInput
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	series, err := s.svc.CreateSeries(r.Context(), req)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/series/%d", series.ID))
	s.respondJSON(w, http.StatusCreated, toSeriesResponse(series))
}

func (s *Server) handleGetSeries(w http.ResponseWriter, r *http.Request) {
	ids, ok := s.idParams(w, r, "seriesID")
	if !ok {
		return
	}
	series, err := s.svc.GetSeries(r.Context(), ids[0])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toSeriesResponse(series))
}

func (s *Server) handleUpdateSeries(w http.ResponseWriter, r *http.Request) {
	ids, ok := s.idParams(w, r, "seriesID")
	if !ok {
		return
	}
	var req service.SeriesPatch
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	series, err := s.svc.UpdateSeries(r.Context(), ids[0], req)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toSeriesResponse(series))
}

func (s *Server) handleDeleteSeries(w http.ResponseWriter, r *http.Request) {
	ids, ok := s.idParams(w, r, "seriesID")
	if !ok {
		return
	}
	if err := s.svc.DeleteSeries(r.Context(), ids[0]); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toSeriesResponse(series domain.Series) seriesResponse {
	genre := series.Genre
	if genre == nil {
		genre = []string{}
	}
	return seriesResponse{
		ID:                  series.ID,
		Title:               series.Title,
		Author:              series.Author,
		Rating:              series.Rating,
		Genre:               genre,
		Year:                series.Year,
		About:               series.About,
		Completed:           series.Completed,
		Anime:               series.Anime,
		Chapters:            series.Chapters,
		Volumes:             series.Volumes,
		OfficialTranslation: series.OfficialTranslation,
		NumberOfReviews:     series.NumberOfReviews,
		CreatedAt:           series.CreatedAt,
		UpdatedAt:           series.UpdatedAt,
	}
}
