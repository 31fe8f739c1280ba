// Package auth issues and verifies access tokens, hashes passwords and carries
// the caller identity through request contexts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/Clark-Hu/mangareview/internal/domain"
)

// RoleAdmin is the role claim carried by administrator tokens.
const RoleAdmin = "admin"

// Identity is the authenticated caller.
type Identity struct {
	UserID int64
	Role   string
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// IsOwner is the single ownership predicate for owned resources.
func IsOwner(id Identity, ownerID int64) bool {
	return id.UserID != 0 && id.UserID == ownerID
}

type ctxKeyIdentity struct{}

// WithIdentity injects id into ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity{}, id)
}

// IdentityFromContext returns the identity injected by RequireUser.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKeyIdentity{}).(Identity)
	return id, ok
}

// Claims are the JWT claims issued by TokenService. Version must match the
// user's current token version for the token to be accepted.
type Claims struct {
	jwt.RegisteredClaims
	Role    string `json:"role,omitempty"`
	Version int    `json:"ver"`
}

// UserID parses the subject claim.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid subject")
	}
	return id, nil
}

// TokenService signs and parses HS256 access tokens.
type TokenService struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// Sign issues a token for user valid for TTL.
func (ts TokenService) Sign(user domain.User) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ts.TTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.Issuer,
			Subject:   strconv.FormatInt(user.ID, 10),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Version: user.TokenVersion,
	}
	if user.IsAdmin {
		claims.Role = RoleAdmin
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ts.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies signature, algorithm and expiry.
func (ts TokenService) Parse(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return ts.Secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// HashPassword hashes a password with bcrypt's default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a bcrypt hash with a candidate password.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
