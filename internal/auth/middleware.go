package auth

import (
	"context"
	"net/http"
	"strings"
)

// VersionSource returns the current token version of a user.
type VersionSource interface {
	TokenVersion(ctx context.Context, userID int64) (int, error)
}

// DenyFunc writes the error response for a rejected request.
type DenyFunc func(w http.ResponseWriter, status int, code, message string)

// RequireUser validates the bearer token, checks its version against
// versions when non-nil, and injects the Identity into the request context.
func RequireUser(tokens TokenService, versions VersionSource, deny DenyFunc) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				deny(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
				return
			}
			claims, err := tokens.Parse(raw)
			if err != nil {
				deny(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
				return
			}
			userID, err := claims.UserID()
			if err != nil {
				deny(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
				return
			}
			if versions != nil {
				current, err := versions.TokenVersion(r.Context(), userID)
				if err != nil || current != claims.Version {
					deny(w, http.StatusUnauthorized, "UNAUTHORIZED", "Token has been revoked")
					return
				}
			}

			ctx := WithIdentity(r.Context(), Identity{UserID: userID, Role: claims.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin allows the request only if RequireUser injected an admin identity.
func RequireAdmin(deny DenyFunc) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok || !id.IsAdmin() {
				deny(w, http.StatusForbidden, "FORBIDDEN", "Administrator privileges required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
