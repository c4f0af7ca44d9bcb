// AngelaMos | 2026
// jwt_test.go

package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/storefront-api/internal/config"
	"github.com/carterperez-dev/storefront-api/internal/core"
)

const testSecret = "test-secret-that-is-at-least-32-bytes-long"

func newTestTokenManager(t *testing.T) *TokenManager {
	t.Helper()
	m, err := NewTokenManager(config.JWTConfig{
		Secret:            testSecret,
		Issuer:            "storefront-test",
		Audience:          "storefront-users",
		AccessTokenExpire: time.Hour,
	})
	require.NoError(t, err)
	return m
}

// flipSignature changes one character in the middle of the signature
// segment. The last character can carry only padding bits, so it is avoided.
func flipSignature(token string) string {
	dot := strings.LastIndex(token, ".")
	i := dot + 5
	b := []byte(token)
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	return string(b)
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	_, err := NewTokenManager(config.JWTConfig{})
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	m := newTestTokenManager(t)

	token, issued, err := m.IssueAccessToken("user-1",
		WithRole("admin"),
		WithEmail("alice@example.com"),
	)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(token, ".")+1)

	claims, err := m.VerifyAccess(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, TokenTypeAccess, claims.Type)
	assert.Equal(t, issued.TokenID, claims.TokenID)
	assert.NotEmpty(t, claims.TokenID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 2*time.Second)
}

func TestIssueAccessTokenWithoutOptionalClaims(t *testing.T) {
	m := newTestTokenManager(t)

	token, _, err := m.IssueAccessToken("user-2")
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Empty(t, claims.Role)
	assert.Empty(t, claims.Email)
	assert.Zero(t, claims.Generation)
}

func TestAccessTokenCarriesGeneration(t *testing.T) {
	m := newTestTokenManager(t)

	token, issued, err := m.IssueAccessToken("user-1", WithGeneration(7))
	require.NoError(t, err)
	assert.Equal(t, int64(7), issued.Generation)

	claims, err := m.VerifyAccess(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.Generation)
}

func TestIssueAccessTokenEmptyUser(t *testing.T) {
	m := newTestTokenManager(t)
	_, _, err := m.IssueAccessToken("")
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, _, err = m.IssueRefreshToken("", "")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestDefaultAccessExpiryIsSevenDays(t *testing.T) {
	m, err := NewTokenManager(config.JWTConfig{Secret: testSecret})
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, m.AccessExpiry())
}

func TestVerifyExpiredToken(t *testing.T) {
	m := newTestTokenManager(t)

	token, _, err := m.IssueAccessToken("user-1", WithExpiresIn(0))
	require.NoError(t, err)

	_, err = m.Verify(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
	assert.True(t, IsExpired(token))
}

func TestVerifyRejectsTampering(t *testing.T) {
	m := newTestTokenManager(t)
	token, _, err := m.IssueAccessToken("user-1", WithRole("user"))
	require.NoError(t, err)

	_, err = m.Verify(flipSignature(token))
	assert.ErrorIs(t, err, core.ErrTokenInvalid)

	_, err = m.Verify("not-a-jwt")
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestVerifyRejectsForeignSecretAndAudience(t *testing.T) {
	m := newTestTokenManager(t)

	other, err := NewTokenManager(config.JWTConfig{
		Secret:   "another-secret-that-is-long-enough-too",
		Issuer:   "storefront-test",
		Audience: "storefront-users",
	})
	require.NoError(t, err)
	foreign, _, err := other.IssueAccessToken("user-1")
	require.NoError(t, err)
	_, err = m.Verify(foreign)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)

	wrongAud, err := NewTokenManager(config.JWTConfig{
		Secret:   testSecret,
		Issuer:   "storefront-test",
		Audience: "someone-else",
	})
	require.NoError(t, err)
	token, _, err := wrongAud.IssueAccessToken("user-1")
	require.NoError(t, err)
	_, err = m.Verify(token)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestRefreshTokenType(t *testing.T) {
	m := newTestTokenManager(t)

	refresh, issued, err := m.IssueRefreshToken("user-1", "")
	require.NoError(t, err)
	assert.NotEmpty(t, issued.FamilyID)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), issued.ExpiresAt, 2*time.Second)

	claims, err := m.VerifyRefresh(refresh)
	require.NoError(t, err)
	assert.Equal(t, issued.FamilyID, claims.FamilyID)
	assert.Equal(t, TokenTypeRefresh, claims.Type)

	_, err = m.VerifyAccess(refresh)
	assert.ErrorIs(t, err, core.ErrTokenInvalid, "refresh token must not pass as access")

	access, _, err := m.IssueAccessToken("user-1")
	require.NoError(t, err)
	_, err = m.VerifyRefresh(access)
	assert.ErrorIs(t, err, core.ErrTokenInvalid, "access token must not pass as refresh")
}

func TestRefreshTokenKeepsFamily(t *testing.T) {
	m := newTestTokenManager(t)

	_, first, err := m.IssueRefreshToken("user-1", "")
	require.NoError(t, err)
	_, second, err := m.IssueRefreshToken("user-1", first.FamilyID)
	require.NoError(t, err)

	assert.Equal(t, first.FamilyID, second.FamilyID)
	assert.NotEqual(t, first.TokenID, second.TokenID)
}

func TestIsExpired(t *testing.T) {
	m := newTestTokenManager(t)

	live, _, err := m.IssueAccessToken("user-1")
	require.NoError(t, err)

	assert.False(t, IsExpired(live))
	assert.False(t, IsExpired(flipSignature(live)), "signature is not checked")
	assert.True(t, IsExpired("garbage"))
	assert.True(t, IsExpired(""))
}
