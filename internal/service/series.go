package service

import (
	"context"
	"strings"

	"github.com/Clark-Hu/mangareview/internal/domain"
	"github.com/Clark-Hu/mangareview/internal/repository"
)

// SeriesInput is the payload for creating a series. Rating is derived and
// cannot be supplied.
type SeriesInput struct {
	Title               string   `json:"title" validate:"required,max=180"`
	Author              string   `json:"author" validate:"required,max=180"`
	Genre               []string `json:"genre" validate:"required,min=1,dive,genre"`
	Year                int      `json:"year" validate:"required,gte=1900,pubyear"`
	About               string   `json:"about" validate:"max=3000"`
	Completed           bool     `json:"completed"`
	Anime               bool     `json:"anime"`
	Chapters            *int     `json:"chapters" validate:"omitempty,gte=0"`
	Volumes             *int     `json:"volumes" validate:"omitempty,gte=0"`
	OfficialTranslation bool     `json:"official_translation"`
}

// SeriesPatch is a partial update; absent fields keep their value.
type SeriesPatch struct {
	Title               *string   `json:"title" validate:"omitempty,min=1,max=180"`
	Author              *string   `json:"author" validate:"omitempty,min=1,max=180"`
	Genre               *[]string `json:"genre" validate:"omitempty,min=1,dive,genre"`
	Year                *int      `json:"year" validate:"omitempty,gte=1900,pubyear"`
	About               *string   `json:"about" validate:"omitempty,max=3000"`
	Completed           *bool     `json:"completed"`
	Anime               *bool     `json:"anime"`
	Chapters            *int      `json:"chapters" validate:"omitempty,gte=0"`
	Volumes             *int      `json:"volumes" validate:"omitempty,gte=0"`
	OfficialTranslation *bool     `json:"official_translation"`
}

// ListSeries returns one page of the catalog, newest first.
func (s *Service) ListSeries(ctx context.Context, filters repository.SeriesListFilters) (repository.SeriesListResult, error) {
	return s.repo.Series.List(ctx, filters)
}

// GetSeries returns a series with its current rating.
func (s *Service) GetSeries(ctx context.Context, id int64) (domain.Series, error) {
	return s.repo.Series.GetByID(ctx, id)
}

// CreateSeries validates and stores a new series with no rating.
func (s *Service) CreateSeries(ctx context.Context, in SeriesInput) (domain.Series, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	if err := s.validate.Struct(in); err != nil {
		return domain.Series{}, err
	}
	return s.repo.Series.Create(ctx, repository.SeriesCreateParams{
		Title:               in.Title,
		Author:              in.Author,
		Genre:               in.Genre,
		Year:                in.Year,
		About:               in.About,
		Completed:           in.Completed,
		Anime:               in.Anime,
		Chapters:            in.Chapters,
		Volumes:             in.Volumes,
		OfficialTranslation: in.OfficialTranslation,
	})
}

// UpdateSeries applies a partial update to the catalog fields.
func (s *Service) UpdateSeries(ctx context.Context, id int64, patch SeriesPatch) (domain.Series, error) {
	patch.Title = trimPtr(patch.Title)
	patch.Author = trimPtr(patch.Author)
	if err := s.validate.Struct(patch); err != nil {
		return domain.Series{}, err
	}
	params := repository.SeriesUpdateParams{
		Title:               patch.Title,
		Author:              patch.Author,
		Year:                patch.Year,
		About:               patch.About,
		Completed:           patch.Completed,
		Anime:               patch.Anime,
		Chapters:            patch.Chapters,
		Volumes:             patch.Volumes,
		OfficialTranslation: patch.OfficialTranslation,
	}
	if patch.Genre != nil {
		params.Genre = *patch.Genre
	}
	return s.repo.Series.Update(ctx, id, params)
}

// DeleteSeries removes a series with its reviews and likes.
func (s *Service) DeleteSeries(ctx context.Context, id int64) error {
	return s.repo.Series.Delete(ctx, id)
}

func trimPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}
