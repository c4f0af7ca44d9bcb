// AngelaMos | 2026
// auth_test.go

package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/storefront-api/internal/core"
)

type stubVerifier struct {
	identities map[string]*Identity
	err        error
}

func (s *stubVerifier) VerifyAccessToken(
	_ context.Context,
	token string,
) (*Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	if id, ok := s.identities[token]; ok {
		return id, nil
	}
	return nil, fmt.Errorf("verify: %w", core.ErrTokenInvalid)
}

func newStubVerifier() *stubVerifier {
	return &stubVerifier{identities: map[string]*Identity{
		"alice-token": {UserID: "alice", Role: RoleUser},
		"admin-token": {UserID: "root", Role: RoleAdmin},
	}}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
		ok     bool
	}{
		{"canonical", "Bearer abc.def.ghi", "abc.def.ghi", true},
		{"lowercase scheme", "bearer abc", "abc", true},
		{"empty", "", "", false},
		{"scheme only", "Bearer", "", false},
		{"empty token", "Bearer ", "", false},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "", false},
		{"extra part", "Bearer abc def", "", false},
		{"double space", "Bearer  abc", "", false},
		{"no scheme", "abc.def.ghi", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractBearer(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthenticator(t *testing.T) {
	var seen *Identity
	handler := Authenticator(newStubVerifier())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetIdentity(r.Context())
			w.WriteHeader(http.StatusNoContent)
		}),
	)

	t.Run("missing token never reaches the handler", func(t *testing.T) {
		seen = nil
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Nil(t, seen)
		assert.Equal(t, false, decodeBody(t, rec)["success"])
	})

	t.Run("invalid token", func(t *testing.T) {
		seen = nil
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer forged")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Nil(t, seen)
		assert.Equal(t, "TOKEN_INVALID", decodeBody(t, rec)["code"])
	})

	t.Run("valid token attaches identity", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer alice-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, "alice", seen.UserID)
	})
}

func TestAuthenticatorExpiredToken(t *testing.T) {
	verifier := &stubVerifier{err: fmt.Errorf("verify: %w", core.ErrTokenExpired)}
	handler := Authenticator(verifier)(http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_EXPIRED", decodeBody(t, rec)["code"])
}

func TestOptionalAuth(t *testing.T) {
	var seen *Identity
	handler := OptionalAuth(newStubVerifier())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetIdentity(r.Context())
			w.WriteHeader(http.StatusOK)
		}),
	)

	for _, header := range []string{"", "Bearer forged"} {
		seen = nil
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, seen)
	assert.Equal(t, RoleAdmin, seen.Role)
}

func TestRequireAdmin(t *testing.T) {
	handler := Authenticator(newStubVerifier())(
		RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})),
	)

	tests := []struct {
		token string
		want  int
	}{
		{"", http.StatusUnauthorized},
		{"alice-token", http.StatusForbidden},
		{"admin-token", http.StatusOK},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodDelete, "/", nil)
		if tt.token != "" {
			req.Header.Set("Authorization", "Bearer "+tt.token)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, tt.want, rec.Code, "token %q", tt.token)
	}
}

func TestRequireRoleWithoutAuthenticator(t *testing.T) {
	handler := RequireRole(RoleAdmin)(http.NotFoundHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireSelfOrAdmin(t *testing.T) {
	r := chi.NewRouter()
	r.With(
		Authenticator(newStubVerifier()),
		RequireSelfOrAdmin("id"),
	).Put("/users/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name  string
		token string
		path  string
		want  int
	}{
		{"own id", "alice-token", "/users/alice", http.StatusOK},
		{"other id", "alice-token", "/users/bob", http.StatusForbidden},
		{"admin on other id", "admin-token", "/users/bob", http.StatusOK},
		{"anonymous", "", "/users/alice", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestCanActOn(t *testing.T) {
	ctx := WithIdentity(context.Background(), &Identity{UserID: "u1", Role: RoleUser})
	assert.True(t, CanActOn(ctx, "u1"))
	assert.False(t, CanActOn(ctx, "u2"))
	assert.False(t, CanActOn(context.Background(), "u1"))

	admin := WithIdentity(context.Background(), &Identity{UserID: "a", Role: RoleAdmin})
	assert.True(t, CanActOn(admin, "u2"))
}
