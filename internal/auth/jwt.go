// AngelaMos | 2026
// jwt.go

package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/carterperez-dev/storefront-api/internal/config"
	"github.com/carterperez-dev/storefront-api/internal/core"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	defaultAccessExpiry = 7 * 24 * time.Hour
	refreshExpiry       = 30 * 24 * time.Hour
)

var ErrMissingSecret = errors.New("jwt secret is not configured")

// Claims is the verified content of a token. Generation is the owner's
// session generation at issue time; refresh tokens leave it zero.
type Claims struct {
	UserID     string
	Role       string
	Email      string
	TokenID    string
	FamilyID   string
	Type       string
	Generation int64
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

type TokenManager struct {
	secret        []byte
	issuer        string
	audience      string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	now           func() time.Time
}

func NewTokenManager(cfg config.JWTConfig) (*TokenManager, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}

	access := cfg.AccessTokenExpire
	if access <= 0 {
		access = defaultAccessExpiry
	}

	issuer := cfg.Issuer
	if issuer == "" {
		issuer = "storefront-api"
	}
	audience := cfg.Audience
	if audience == "" {
		audience = "storefront-users"
	}

	return &TokenManager{
		secret:        []byte(cfg.Secret),
		issuer:        issuer,
		audience:      audience,
		accessExpiry:  access,
		refreshExpiry: refreshExpiry,
		now:           time.Now,
	}, nil
}

type tokenOptions struct {
	role       string
	email      string
	generation int64
	expiresIn  *time.Duration
}

type TokenOption func(*tokenOptions)

func WithRole(role string) TokenOption {
	return func(o *tokenOptions) { o.role = role }
}

func WithEmail(email string) TokenOption {
	return func(o *tokenOptions) { o.email = email }
}

// WithGeneration stamps the token with the owner's session generation so a
// later revoke-all can refuse it.
func WithGeneration(gen int64) TokenOption {
	return func(o *tokenOptions) { o.generation = gen }
}

// WithExpiresIn overrides the configured lifetime. Zero or negative values
// produce a token that is already expired.
func WithExpiresIn(d time.Duration) TokenOption {
	return func(o *tokenOptions) { o.expiresIn = &d }
}

func (m *TokenManager) IssueAccessToken(
	userID string,
	opts ...TokenOption,
) (string, *Claims, error) {
	if userID == "" {
		return "", nil, fmt.Errorf("issue access token: empty user id: %w", core.ErrInvalidInput)
	}

	o := tokenOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	lifetime := m.accessExpiry
	if o.expiresIn != nil {
		lifetime = *o.expiresIn
	}

	now := m.now().Truncate(time.Second)
	expiresAt := now.Add(lifetime)
	if lifetime <= 0 {
		expiresAt = now.Add(-time.Second)
	}

	claims := &Claims{
		UserID:     userID,
		Role:       o.role,
		Email:      o.email,
		TokenID:    uuid.NewString(),
		Type:       TokenTypeAccess,
		Generation: o.generation,
		IssuedAt:   now,
		ExpiresAt:  expiresAt,
	}

	b := m.builder(claims)
	if o.role != "" {
		b = b.Claim("role", o.role)
	}
	if o.email != "" {
		b = b.Claim("email", o.email)
	}
	if o.generation > 0 {
		b = b.Claim("gen", o.generation)
	}

	signed, err := m.sign(b)
	if err != nil {
		return "", nil, fmt.Errorf("issue access token: %w", err)
	}

	return signed, claims, nil
}

// IssueRefreshToken signs a refresh token in the given rotation family.
// An empty familyID starts a new family.
func (m *TokenManager) IssueRefreshToken(
	userID, familyID string,
) (string, *Claims, error) {
	if userID == "" {
		return "", nil, fmt.Errorf("issue refresh token: empty user id: %w", core.ErrInvalidInput)
	}
	if familyID == "" {
		familyID = uuid.NewString()
	}

	now := m.now().Truncate(time.Second)
	claims := &Claims{
		UserID:    userID,
		TokenID:   uuid.NewString(),
		FamilyID:  familyID,
		Type:      TokenTypeRefresh,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.refreshExpiry),
	}

	signed, err := m.sign(m.builder(claims).Claim("fid", familyID))
	if err != nil {
		return "", nil, fmt.Errorf("issue refresh token: %w", err)
	}

	return signed, claims, nil
}

func (m *TokenManager) builder(c *Claims) *jwt.Builder {
	return jwt.NewBuilder().
		JwtID(c.TokenID).
		Issuer(m.issuer).
		Audience([]string{m.audience}).
		Subject(c.UserID).
		IssuedAt(c.IssuedAt).
		NotBefore(c.IssuedAt).
		Expiration(c.ExpiresAt).
		Claim("userId", c.UserID).
		Claim("type", c.Type)
}

func (m *TokenManager) sign(b *jwt.Builder) (string, error) {
	token, err := b.Build()
	if err != nil {
		return "", fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), m.secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return string(signed), nil
}

// Verify checks signature, issuer, audience and time claims. Failures wrap
// core.ErrTokenExpired when the token is otherwise valid but past its
// expiry, and core.ErrTokenInvalid in every other case.
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(jwa.HS256(), m.secret),
		jwt.WithValidate(true),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithClock(jwt.ClockFunc(m.now)),
	)
	if err != nil {
		if isTokenExpiredError(err) {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenExpired)
		}
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, fmt.Errorf("verify token: missing subject: %w", core.ErrTokenInvalid)
	}

	claims := &Claims{UserID: subject}

	if err := token.Get("type", &claims.Type); err != nil {
		return nil, fmt.Errorf("verify token: missing type: %w", core.ErrTokenInvalid)
	}
	claims.TokenID, _ = token.JwtID()
	claims.IssuedAt, _ = token.IssuedAt()
	claims.ExpiresAt, _ = token.Expiration()

	// Optional claims; absent is fine.
	_ = token.Get("role", &claims.Role)    //nolint:errcheck
	_ = token.Get("email", &claims.Email)  //nolint:errcheck
	_ = token.Get("fid", &claims.FamilyID) //nolint:errcheck

	// JSON numbers decode as float64.
	var gen float64
	if err := token.Get("gen", &gen); err == nil {
		claims.Generation = int64(gen)
	}

	return claims, nil
}

func (m *TokenManager) VerifyAccess(tokenString string) (*Claims, error) {
	return m.verifyType(tokenString, TokenTypeAccess)
}

func (m *TokenManager) VerifyRefresh(tokenString string) (*Claims, error) {
	claims, err := m.verifyType(tokenString, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	if claims.FamilyID == "" || claims.TokenID == "" {
		return nil, fmt.Errorf("verify refresh token: missing fid or jti: %w", core.ErrTokenInvalid)
	}
	return claims, nil
}

func (m *TokenManager) verifyType(tokenString, want string) (*Claims, error) {
	claims, err := m.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != want {
		return nil, fmt.Errorf(
			"verify token: expected %s token, got %q: %w",
			want,
			claims.Type,
			core.ErrTokenInvalid,
		)
	}
	return claims, nil
}

func (m *TokenManager) AccessExpiry() time.Duration {
	return m.accessExpiry
}

func isTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "exp") &&
		strings.Contains(errStr, "not satisfied")
}
