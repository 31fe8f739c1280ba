// Package service implements the catalog, review and account operations.
// Every review or like mutation runs in one transaction that first locks the
// parent series row, applies the change, and recomputes the series rating
// before committing.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Clark-Hu/mangareview/internal/auth"
	"github.com/Clark-Hu/mangareview/internal/domain"
	"github.com/Clark-Hu/mangareview/internal/events"
	"github.com/Clark-Hu/mangareview/internal/metrics"
	"github.com/Clark-Hu/mangareview/internal/rating"
	"github.com/Clark-Hu/mangareview/internal/repository"
	"github.com/Clark-Hu/mangareview/internal/validation"
)

// TxRunner runs fn in a transaction, committing only when fn returns nil.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Service is the application layer shared by the HTTP handlers.
type Service struct {
	tx       TxRunner
	repo     *repository.Repository
	validate *validation.Validator
	tokens   auth.TokenService
	events   *events.Publisher
	log      *zap.Logger
}

// Deps bundles the collaborators of a Service. Events may be nil.
type Deps struct {
	Tx        TxRunner
	Repo      *repository.Repository
	Validator *validation.Validator
	Tokens    auth.TokenService
	Events    *events.Publisher
	Logger    *zap.Logger
}

// New constructs a Service.
func New(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	v := d.Validator
	if v == nil {
		v = validation.New(domain.Genres, nil)
	}
	return &Service{
		tx:       d.Tx,
		repo:     d.Repo,
		validate: v,
		tokens:   d.Tokens,
		events:   d.Events,
		log:      logger,
	}
}

// mutateLedger locks seriesID, runs fn, and recomputes the rating in the same
// transaction. The new rating is returned and announced only after commit.
func (s *Service) mutateLedger(ctx context.Context, trigger rating.Trigger, seriesID int64, fn func(repo *repository.Repository) error) (*float64, error) {
	var (
		value decimal.NullDecimal
		took  time.Duration
	)
	err := s.tx.InTx(ctx, func(tx pgx.Tx) error {
		repo := repository.WithTx(tx)
		if err := repo.Series.Lock(ctx, seriesID); err != nil {
			return err
		}
		if err := fn(repo); err != nil {
			return err
		}
		start := time.Now()
		v, err := rating.Recompute(ctx, repo.Series, seriesID)
		if err != nil {
			return err
		}
		value, took = v, time.Since(start)
		return nil
	})
	if err != nil {
		s.recordFailure(trigger, seriesID, err)
		return nil, err
	}

	metrics.RecordRecompute(string(trigger), took)
	f := rating.Float(value)
	s.events.RatingChanged(seriesID, f, trigger)
	s.log.Debug("series rating recomputed",
		zap.Int64("series_id", seriesID),
		zap.String("trigger", string(trigger)),
		zap.Stringer("rating", value.Decimal),
		zap.Bool("rated", value.Valid),
	)
	return f, nil
}

func (s *Service) recordFailure(trigger rating.Trigger, seriesID int64, err error) {
	if IsClientError(err) {
		return
	}
	metrics.RecordMutationFailure(string(trigger))
	s.log.Error("ledger mutation rolled back",
		zap.String("op", string(trigger)),
		zap.Int64("series_id", seriesID),
		zap.Error(err),
	)
}

// IsClientError reports whether err is caused by the request rather than by
// persistence.
func IsClientError(err error) bool {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrReviewNotInSeries),
		errors.Is(err, domain.ErrInvalidCredentials):
		return true
	default:
		return false
	}
}
