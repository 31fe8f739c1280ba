package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/Clark-Hu/mangareview/internal/domain"
)

var testSecret = []byte("test-secret-key-32-bytes-long!!!")

func newTokens() TokenService {
	return TokenService{Secret: testSecret, Issuer: "test", TTL: time.Hour}
}

func denyPlain(w http.ResponseWriter, status int, code, message string) {
	w.WriteHeader(status)
	_, _ = w.Write([]byte(code))
}

type versions map[int64]int

func (v versions) TokenVersion(ctx context.Context, userID int64) (int, error) {
	ver, ok := v[userID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return ver, nil
}

func TestTokenService_SignParse(t *testing.T) {
	tok, exp, err := newTokens().Sign(domain.User{ID: 42, IsAdmin: true, TokenVersion: 3})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expiry %s is not in the future", exp)
	}

	claims, err := newTokens().Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id, _ := claims.UserID(); id != 42 {
		t.Fatalf("subject = %q, want 42", claims.Subject)
	}
	if claims.Role != RoleAdmin || claims.Version != 3 {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestTokenService_Rejects(t *testing.T) {
	good, _, _ := newTokens().Sign(domain.User{ID: 1})
	expired, _, _ := TokenService{Secret: testSecret, TTL: -time.Hour}.Sign(domain.User{ID: 1})
	parts := strings.Split(good, ".")
	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "1"}}).SignedString(testSecret)

	tests := []struct {
		name  string
		token string
		ts    TokenService
	}{
		{"expired", expired, newTokens()},
		{"wrong secret", good, TokenService{Secret: []byte("other")}},
		{"malformed", "not.a.valid.token", newTokens()},
		{"tampered", parts[0] + ".dGFtcGVyZWQ." + parts[2], newTokens()},
		{"alg none", unsigned, newTokens()},
		{"no expiry", noExpiry, newTokens()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.ts.Parse(tt.token); err == nil {
				t.Fatalf("expected parse error")
			}
		})
	}
}

func TestIsOwner(t *testing.T) {
	tests := []struct {
		name  string
		id    Identity
		owner int64
		want  bool
	}{
		{"same user", Identity{UserID: 7}, 7, true},
		{"other user", Identity{UserID: 7}, 8, false},
		{"admin is not owner", Identity{UserID: 1, Role: RoleAdmin}, 8, false},
		{"anonymous", Identity{}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsOwner(tt.id, tt.owner); got != tt.want {
				t.Fatalf("IsOwner = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "correct horse") {
		t.Fatalf("expected password to match")
	}
	if CheckPassword(hash, "battery staple") {
		t.Fatalf("expected mismatch")
	}
}

func callRequireUser(req *http.Request, src VersionSource) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	RequireUser(newTokens(), src, denyPlain)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(strconv.FormatInt(id.UserID, 10) + ":" + id.Role))
	})).ServeHTTP(rr, req)
	return rr
}

func TestRequireUser(t *testing.T) {
	current, _, _ := newTokens().Sign(domain.User{ID: 42, TokenVersion: 2})
	stale, _, _ := newTokens().Sign(domain.User{ID: 42, TokenVersion: 1})
	admin, _, _ := newTokens().Sign(domain.User{ID: 9, IsAdmin: true})
	src := versions{42: 2, 9: 0}

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantBody string
	}{
		{"valid bearer", "Bearer " + current, http.StatusOK, "42:"},
		{"lowercase scheme", "bearer " + current, http.StatusOK, "42:"},
		{"admin role", "Bearer " + admin, http.StatusOK, "9:admin"},
		{"missing header", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"basic scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"invalid token", "Bearer invalid.token.here", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"revoked by logout", "Bearer " + stale, http.StatusUnauthorized, "UNAUTHORIZED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := callRequireUser(req, src)
			if rr.Code != tt.wantCode || rr.Body.String() != tt.wantBody {
				t.Fatalf("got %d %q, want %d %q", rr.Code, rr.Body.String(), tt.wantCode, tt.wantBody)
			}
		})
	}
}

func TestRequireUser_DeletedUser(t *testing.T) {
	tok, _, _ := newTokens().Sign(domain.User{ID: 5})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	if rr := callRequireUser(req, versions{}); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for deleted user, got %d", rr.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want int
	}{
		{"admin", WithIdentity(context.Background(), Identity{UserID: 1, Role: RoleAdmin}), http.StatusOK},
		{"user", WithIdentity(context.Background(), Identity{UserID: 2}), http.StatusForbidden},
		{"anonymous", context.Background(), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/users/3", nil).WithContext(tt.ctx)
			rr := httptest.NewRecorder()
			RequireAdmin(denyPlain)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})).ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestClaimsUserID(t *testing.T) {
	for _, subject := range []string{"", "abc", "0", "-4"} {
		c := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: subject}}
		if _, err := c.UserID(); err == nil {
			t.Fatalf("UserID(%q) should fail", subject)
		}
	}
}
