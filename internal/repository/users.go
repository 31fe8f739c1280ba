package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/mangareview/internal/domain"
)

// UsersRepository stores accounts and their token versions.
type UsersRepository struct {
	db DBTX
}

const userColumns = `
    u.id,
    u.username,
    u.email,
    u.is_admin,
    u.token_version,
    (SELECT COUNT(*) FROM review_likes l WHERE l.user_id = u.id) AS liked,
    u.created_at
`

// UserCreateParams holds an already hashed password.
type UserCreateParams struct {
	Username     string
	Email        string
	PasswordHash string
	IsAdmin      bool
}

// Create inserts a user. A taken username is a conflict.
func (r *UsersRepository) Create(ctx context.Context, params UserCreateParams) (domain.User, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
        INSERT INTO users (username, email, password_hash, is_admin)
        VALUES ($1,$2,$3,$4)
        RETURNING id
    `, params.Username, params.Email, params.PasswordHash, params.IsAdmin).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, domain.Errorf(domain.ErrConflict, "username %q is taken", params.Username)
		}
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return r.GetByID(ctx, id)
}

// GetByID fetches a user by id.
func (r *UsersRepository) GetByID(ctx context.Context, id int64) (domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users u WHERE u.id = $1`, userColumns)
	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.Errorf(domain.ErrNotFound, "user %d not found", id)
		}
		return domain.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return user, nil
}

// Credentials returns the user and password hash for a username.
func (r *UsersRepository) Credentials(ctx context.Context, username string) (domain.User, string, error) {
	query := fmt.Sprintf(`SELECT %s, u.password_hash FROM users u WHERE u.username = $1`, userColumns)
	var (
		user domain.User
		hash string
	)
	err := r.db.QueryRow(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.IsAdmin,
		&user.TokenVersion,
		&user.Liked,
		&user.CreatedAt,
		&hash,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, "", domain.Errorf(domain.ErrNotFound, "user %q not found", username)
		}
		return domain.User{}, "", fmt.Errorf("get credentials: %w", err)
	}
	return user, hash, nil
}

// List returns all users ordered by id.
func (r *UsersRepository) List(ctx context.Context) ([]domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users u ORDER BY u.id`, userColumns)
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// TokenVersion returns the current token version of a user.
func (r *UsersRepository) TokenVersion(ctx context.Context, id int64) (int, error) {
	var version int
	err := r.db.QueryRow(ctx, `SELECT token_version FROM users WHERE id = $1`, id).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.Errorf(domain.ErrNotFound, "user %d not found", id)
		}
		return 0, fmt.Errorf("get token version: %w", err)
	}
	return version, nil
}

// BumpTokenVersion invalidates every token issued so far and returns the new version.
func (r *UsersRepository) BumpTokenVersion(ctx context.Context, id int64) (int, error) {
	var version int
	err := r.db.QueryRow(ctx,
		`UPDATE users SET token_version = token_version + 1 WHERE id = $1 RETURNING token_version`, id,
	).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.Errorf(domain.ErrNotFound, "user %d not found", id)
		}
		return 0, fmt.Errorf("bump token version: %w", err)
	}
	return version, nil
}

// Lock blocks concurrent reviews and likes by the user until the
// transaction ends. It must run inside a transaction.
func (r *UsersRepository) Lock(ctx context.Context, id int64) error {
	var locked int64
	err := r.db.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Errorf(domain.ErrNotFound, "user %d not found", id)
		}
		return fmt.Errorf("lock user %d: %w", id, err)
	}
	return nil
}

// SetAdmin grants or revokes the admin flag by username.
func (r *UsersRepository) SetAdmin(ctx context.Context, username string, admin bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET is_admin = $2 WHERE username = $1`, username, admin)
	if err != nil {
		return fmt.Errorf("set admin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Errorf(domain.ErrNotFound, "user %q not found", username)
	}
	return nil
}

// Delete removes a user; their reviews and likes cascade.
func (r *UsersRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Errorf(domain.ErrNotFound, "user %d not found", id)
	}
	return nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.IsAdmin,
		&user.TokenVersion,
		&user.Liked,
		&user.CreatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}
