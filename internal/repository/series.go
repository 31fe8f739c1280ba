package repository

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/Clark-Hu/mangareview/internal/domain"
	"github.com/Clark-Hu/mangareview/internal/rating"
)

// SeriesRepository provides persistence helpers for series entities. It also
// serves as the rating.LedgerStore of a series.
type SeriesRepository struct {
	db DBTX
}

const seriesColumns = `
    s.id,
    s.title,
    s.author,
    s.rating::float8,
    s.genre,
    s.year,
    s.about,
    s.completed,
    s.anime,
    s.chapters,
    s.volumes,
    s.official_translation,
    (SELECT COUNT(*) FROM reviews r WHERE r.series_id = s.id) AS number_of_reviews,
    s.created_at,
    s.updated_at
`

// SeriesCreateParams bundles the fields required to create a series.
type SeriesCreateParams struct {
	Title               string
	Author              string
	Genre               []string
	Year                int
	About               string
	Completed           bool
	Anime               bool
	Chapters            *int
	Volumes             *int
	OfficialTranslation bool
}

// SeriesUpdateParams holds a partial update; nil fields are left unchanged.
type SeriesUpdateParams struct {
	Title               *string
	Author              *string
	Genre               []string
	Year                *int
	About               *string
	Completed           *bool
	Anime               *bool
	Chapters            *int
	Volumes             *int
	OfficialTranslation *bool
}

// SeriesListFilters encapsulates exact-match filters and keyset pagination.
type SeriesListFilters struct {
	Title     *string
	Author    *string
	Year      *int
	RatingGTE *float64
	Limit     int
	Cursor    *int64
}

// SeriesListResult returns the paginated payload.
type SeriesListResult struct {
	Items      []domain.Series
	NextCursor *string
}

// Create inserts a new series row and returns the stored entity.
func (r *SeriesRepository) Create(ctx context.Context, params SeriesCreateParams) (domain.Series, error) {
	genre, err := json.Marshal(params.Genre)
	if err != nil {
		return domain.Series{}, fmt.Errorf("encode genre: %w", err)
	}

	const query = `
        INSERT INTO series (title, author, genre, year, about, completed, anime, chapters, volumes, official_translation)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id
    `
	var id int64
	err = r.db.QueryRow(ctx, query,
		params.Title, params.Author, genre, params.Year, params.About,
		params.Completed, params.Anime, params.Chapters, params.Volumes, params.OfficialTranslation,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Series{}, domain.Errorf(domain.ErrConflict, "series %q by %s already exists", params.Title, params.Author)
		}
		return domain.Series{}, fmt.Errorf("insert series: %w", err)
	}
	return r.GetByID(ctx, id)
}

// GetByID fetches a series by its identifier.
func (r *SeriesRepository) GetByID(ctx context.Context, id int64) (domain.Series, error) {
	query := fmt.Sprintf(`SELECT %s FROM series s WHERE s.id = $1`, seriesColumns)
	series, err := scanSeries(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Series{}, domain.Errorf(domain.ErrNotFound, "series %d not found", id)
		}
		return domain.Series{}, fmt.Errorf("get series %d: %w", id, err)
	}
	return series, nil
}

// Update applies a partial update. Chapters and volumes can be changed but
// not cleared back to null.
func (r *SeriesRepository) Update(ctx context.Context, id int64, params SeriesUpdateParams) (domain.Series, error) {
	var genre []byte
	if params.Genre != nil {
		encoded, err := json.Marshal(params.Genre)
		if err != nil {
			return domain.Series{}, fmt.Errorf("encode genre: %w", err)
		}
		genre = encoded
	}

	const query = `
        UPDATE series
        SET title = COALESCE($2, title),
            author = COALESCE($3, author),
            genre = COALESCE($4::jsonb, genre),
            year = COALESCE($5, year),
            about = COALESCE($6, about),
            completed = COALESCE($7, completed),
            anime = COALESCE($8, anime),
            chapters = COALESCE($9, chapters),
            volumes = COALESCE($10, volumes),
            official_translation = COALESCE($11, official_translation),
            updated_at = now()
        WHERE id = $1
    `
	tag, err := r.db.Exec(ctx, query, id,
		params.Title, params.Author, genre, params.Year, params.About,
		params.Completed, params.Anime, params.Chapters, params.Volumes, params.OfficialTranslation,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Series{}, domain.Errorf(domain.ErrConflict, "another series already has this title and author")
		}
		return domain.Series{}, fmt.Errorf("update series %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Series{}, domain.Errorf(domain.ErrNotFound, "series %d not found", id)
	}
	return r.GetByID(ctx, id)
}

// Delete removes a series; its reviews and likes cascade.
func (r *SeriesRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM series WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete series %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Errorf(domain.ErrNotFound, "series %d not found", id)
	}
	return nil
}

// Lock takes the row lock that serializes ledger mutations of a series.
// It must run inside a transaction.
func (r *SeriesRepository) Lock(ctx context.Context, id int64) error {
	var locked int64
	err := r.db.QueryRow(ctx, `SELECT id FROM series WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Errorf(domain.ErrNotFound, "series %d not found", id)
		}
		return fmt.Errorf("lock series %d: %w", id, err)
	}
	return nil
}

// LockMany locks several series in ascending id order. Series that no longer
// exist are skipped. The sorted, de-duplicated ids are returned.
func (r *SeriesRepository) LockMany(ctx context.Context, ids []int64) ([]int64, error) {
	ordered := uniqueSorted(ids)
	locked := make([]int64, 0, len(ordered))
	for _, id := range ordered {
		if err := r.Lock(ctx, id); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		locked = append(locked, id)
	}
	return locked, nil
}

// Ledger returns every review of the series with its current like count.
func (r *SeriesRepository) Ledger(ctx context.Context, seriesID int64) ([]rating.Entry, error) {
	const query = `
        SELECT r.rating, COUNT(l.user_id)
        FROM reviews r
        LEFT JOIN review_likes l ON l.review_id = r.id
        WHERE r.series_id = $1
        GROUP BY r.id
        ORDER BY r.id
    `
	rows, err := r.db.Query(ctx, query, seriesID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]rating.Entry, 0)
	for rows.Next() {
		var e rating.Entry
		if err := rows.Scan(&e.Rating, &e.Likes); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// SetRating stores the derived rating; an invalid value stores NULL.
func (r *SeriesRepository) SetRating(ctx context.Context, seriesID int64, value decimal.NullDecimal) error {
	var stored *string
	if value.Valid {
		s := value.Decimal.StringFixed(rating.Places)
		stored = &s
	}
	tag, err := r.db.Exec(ctx, `UPDATE series SET rating = $2::numeric WHERE id = $1`, seriesID, stored)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.Errorf(domain.ErrNotFound, "series %d not found", seriesID)
	}
	return nil
}

// List returns series that match the provided filters, newest first.
func (r *SeriesRepository) List(ctx context.Context, filters SeriesListFilters) (SeriesListResult, error) {
	if filters.Limit <= 0 {
		filters.Limit = 20
	} else if filters.Limit > 100 {
		filters.Limit = 100
	}

	where := make([]string, 0)
	args := make([]any, 0)
	arg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Title != nil && strings.TrimSpace(*filters.Title) != "" {
		where = append(where, fmt.Sprintf("s.title = %s", arg(strings.TrimSpace(*filters.Title))))
	}
	if filters.Author != nil && strings.TrimSpace(*filters.Author) != "" {
		where = append(where, fmt.Sprintf("s.author = %s", arg(strings.TrimSpace(*filters.Author))))
	}
	if filters.Year != nil {
		where = append(where, fmt.Sprintf("s.year = %s", arg(*filters.Year)))
	}
	if filters.RatingGTE != nil {
		where = append(where, fmt.Sprintf("s.rating >= %s::numeric", arg(*filters.RatingGTE)))
	}
	if filters.Cursor != nil {
		where = append(where, fmt.Sprintf("s.id < %s", arg(*filters.Cursor)))
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT ")
	queryBuilder.WriteString(seriesColumns)
	queryBuilder.WriteString(" FROM series s")

	if len(where) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(where, " AND "))
	}

	queryBuilder.WriteString(" ORDER BY s.id DESC")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT %d", filters.Limit))

	rows, err := r.db.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return SeriesListResult{}, err
	}
	defer rows.Close()

	items := make([]domain.Series, 0)
	for rows.Next() {
		series, err := scanSeries(rows)
		if err != nil {
			return SeriesListResult{}, err
		}
		items = append(items, series)
	}
	if err := rows.Err(); err != nil {
		return SeriesListResult{}, err
	}

	var nextCursor *string
	if len(items) == filters.Limit {
		token := EncodeCursor(items[len(items)-1].ID)
		nextCursor = &token
	}

	return SeriesListResult{Items: items, NextCursor: nextCursor}, nil
}

func scanSeries(row pgx.Row) (domain.Series, error) {
	var (
		series    domain.Series
		genreJSON []byte
	)

	err := row.Scan(
		&series.ID,
		&series.Title,
		&series.Author,
		&series.Rating,
		&genreJSON,
		&series.Year,
		&series.About,
		&series.Completed,
		&series.Anime,
		&series.Chapters,
		&series.Volumes,
		&series.OfficialTranslation,
		&series.NumberOfReviews,
		&series.CreatedAt,
		&series.UpdatedAt,
	)
	if err != nil {
		return domain.Series{}, err
	}

	if len(genreJSON) > 0 {
		if err := json.Unmarshal(genreJSON, &series.Genre); err != nil {
			return domain.Series{}, fmt.Errorf("decode genre: %w", err)
		}
	}
	if series.Genre == nil {
		series.Genre = []string{}
	}
	return series, nil
}

// EncodeCursor turns the last id of a page into an opaque token.
func EncodeCursor(id int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(id, 10)))
}

// DecodeCursor parses a cursor token produced by EncodeCursor.
func DecodeCursor(token string) (*int64, error) {
	if token == "" {
		return nil, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", err)
	}
	id, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid cursor payload")
	}
	return &id, nil
}

func uniqueSorted(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
