package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Clark-Hu/mangareview/internal/auth"
	"github.com/Clark-Hu/mangareview/internal/domain"
	"github.com/Clark-Hu/mangareview/internal/metrics"
	"github.com/Clark-Hu/mangareview/internal/rating"
	"github.com/Clark-Hu/mangareview/internal/repository"
	"github.com/Clark-Hu/mangareview/internal/validation"
)

// RegisterInput is the sign-up payload.
type RegisterInput struct {
	Username  string `json:"username" validate:"required,min=3,max=150"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	Password2 string `json:"password2" validate:"required,eqfield=Password"`
}

// LoginInput is the sign-in payload.
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Token is an issued access token.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Register creates an account and signs the caller in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (domain.User, Token, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return domain.User{}, Token{}, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, Token{}, err
	}
	user, err := s.repo.Users.Create(ctx, repository.UserCreateParams{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
	})
	if err != nil {
		return domain.User{}, Token{}, err
	}
	token, err := s.issue(user)
	if err != nil {
		return domain.User{}, Token{}, err
	}
	return user, token, nil
}

// Login checks credentials and issues a token.
func (s *Service) Login(ctx context.Context, in LoginInput) (domain.User, Token, error) {
	if err := s.validate.Struct(in); err != nil {
		return domain.User{}, Token{}, err
	}
	user, hash, err := s.repo.Users.Credentials(ctx, strings.TrimSpace(in.Username))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, Token{}, domain.Errorf(domain.ErrInvalidCredentials, "invalid username or password")
		}
		return domain.User{}, Token{}, err
	}
	if !auth.CheckPassword(hash, in.Password) {
		return domain.User{}, Token{}, domain.Errorf(domain.ErrInvalidCredentials, "invalid username or password")
	}
	token, err := s.issue(user)
	if err != nil {
		return domain.User{}, Token{}, err
	}
	return user, token, nil
}

// Logout revokes every token issued to the caller so far.
func (s *Service) Logout(ctx context.Context, id auth.Identity) error {
	_, err := s.repo.Users.BumpTokenVersion(ctx, id.UserID)
	return err
}

// ListUsers returns every account.
func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.repo.Users.List(ctx)
}

// GetUser returns one account.
func (s *Service) GetUser(ctx context.Context, userID int64) (domain.User, error) {
	return s.repo.Users.GetByID(ctx, userID)
}

// DeleteUser removes an account with its reviews and likes. Only admins may
// do this. Every series whose ledger loses an entry is locked in ascending id
// order and recomputed in the same transaction.
func (s *Service) DeleteUser(ctx context.Context, id auth.Identity, userID int64) error {
	if !id.IsAdmin() {
		return domain.Errorf(domain.ErrForbidden, "administrator privileges required")
	}

	type recomputed struct {
		seriesID int64
		value    decimal.NullDecimal
		took     time.Duration
	}
	var results []recomputed

	err := s.tx.InTx(ctx, func(tx pgx.Tx) error {
		repo := repository.WithTx(tx)
		results = results[:0]
		// Holding the user row keeps new reviews and likes by this user out
		// until commit, so the touched set below is complete.
		if err := repo.Users.Lock(ctx, userID); err != nil {
			return err
		}
		touched, err := repo.Reviews.SeriesTouchedBy(ctx, userID)
		if err != nil {
			return err
		}
		locked, err := repo.Series.LockMany(ctx, touched)
		if err != nil {
			return err
		}
		if err := repo.Users.Delete(ctx, userID); err != nil {
			return err
		}
		for _, seriesID := range locked {
			start := time.Now()
			value, err := rating.Recompute(ctx, repo.Series, seriesID)
			if err != nil {
				return err
			}
			results = append(results, recomputed{seriesID: seriesID, value: value, took: time.Since(start)})
		}
		return nil
	})
	if err != nil {
		s.recordFailure(rating.TriggerUserDeleted, 0, err)
		return err
	}

	for _, r := range results {
		metrics.RecordRecompute(string(rating.TriggerUserDeleted), r.took)
		s.events.RatingChanged(r.seriesID, rating.Float(r.value), rating.TriggerUserDeleted)
	}
	s.log.Info("user deleted", zap.Int64("user_id", userID), zap.Int("series_recomputed", len(results)))
	return nil
}

// EnsureAdmin creates the bootstrap administrator, or grants admin rights if
// the username already exists.
func (s *Service) EnsureAdmin(ctx context.Context, username, email, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return validation.Field("username", "required", "admin username and password are required")
	}
	_, _, err := s.repo.Users.Credentials(ctx, username)
	switch {
	case err == nil:
		return s.repo.Users.SetAdmin(ctx, username, true)
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = s.repo.Users.Create(ctx, repository.UserCreateParams{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      true,
	})
	if errors.Is(err, domain.ErrConflict) {
		// Created concurrently by another instance.
		return s.repo.Users.SetAdmin(ctx, username, true)
	}
	return err
}

// TokenVersion lets the auth middleware reject tokens revoked by logout.
func (s *Service) TokenVersion(ctx context.Context, userID int64) (int, error) {
	return s.repo.Users.TokenVersion(ctx, userID)
}

func (s *Service) issue(user domain.User) (Token, error) {
	signed, exp, err := s.tokens.Sign(user)
	if err != nil {
		return Token{}, err
	}
	return Token{AccessToken: signed, ExpiresAt: exp}, nil
}
