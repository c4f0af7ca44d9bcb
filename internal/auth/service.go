// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/storefront-api/internal/core"
	"github.com/carterperez-dev/storefront-api/internal/metrics"
	"github.com/carterperez-dev/storefront-api/internal/middleware"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is deactivated")
	ErrTokenReuse         = errors.New("token reuse detected")
	ErrWrongPassword      = errors.New("current password is incorrect")
)

type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	Create(ctx context.Context, u NewUser) (*UserInfo, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

// ClientInfo describes where a session was opened from.
type ClientInfo struct {
	UserAgent string
	IPAddress string
}

type Service struct {
	tokens   *TokenManager
	sessions SessionRepository
	users    UserProvider
}

func NewService(
	tokens *TokenManager,
	sessions SessionRepository,
	users UserProvider,
) *Service {
	return &Service{
		tokens:   tokens,
		sessions: sessions,
		users:    users,
	}
}

func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
	client ClientInfo,
) (*AuthResult, error) {
	ctx, span := core.StartSpan(ctx, "auth.Register")
	defer span.End()

	hash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, NewUser{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
	})
	if err != nil {
		metrics.RecordAuth("register", "failure")
		return nil, err
	}

	core.AddSpanEvent(ctx, "user.registered", attribute.String("user.id", user.ID))
	metrics.RecordAuth("register", "success")

	return s.issue(ctx, user, "", client)
}

// Login answers a missing account and a wrong password identically. The
// inactive check runs only after the password matched.
func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
	client ClientInfo,
) (*AuthResult, error) {
	ctx, span := core.StartSpan(ctx, "auth.Login")
	defer span.End()

	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // equalises timing with the real comparison
			_, _, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			metrics.RecordAuth("login", "failure")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	valid, newHash, err := core.VerifyPasswordTimingSafe(req.Password, &user.PasswordHash)
	if err != nil {
		slog.WarnContext(ctx, "stored password hash unreadable",
			"user_id", user.ID,
			"error", err,
		)
		metrics.RecordAuth("login", "failure")
		return nil, ErrInvalidCredentials
	}
	if !valid {
		metrics.RecordAuth("login", "failure")
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		metrics.RecordAuth("login", "inactive")
		return nil, ErrAccountInactive
	}

	if newHash != "" {
		if err := s.users.UpdatePassword(ctx, user.ID, newHash); err != nil {
			slog.WarnContext(ctx, "password rehash failed",
				"user_id", user.ID,
				"error", err,
			)
		}
	}

	metrics.RecordAuth("login", "success")
	return s.issue(ctx, user, "", client)
}

// Refresh rotates a refresh token. Each token is single use; presenting a
// consumed token again revokes its whole family.
func (s *Service) Refresh(
	ctx context.Context,
	refreshToken string,
	client ClientInfo,
) (*AuthResult, error) {
	ctx, span := core.StartSpan(ctx, "auth.Refresh")
	defer span.End()

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		metrics.RecordAuth("refresh", "invalid")
		return nil, err
	}

	revoked, err := s.sessions.IsFamilyRevoked(ctx, claims.FamilyID)
	if err != nil {
		return nil, fmt.Errorf("check family: %w", err)
	}
	if revoked {
		metrics.RecordAuth("refresh", "revoked")
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenRevoked)
	}

	session, err := s.sessions.Consume(ctx, claims.TokenID)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("consume refresh token: %w", err)
		}

		if revokeErr := s.sessions.RevokeFamily(ctx, claims.UserID, claims.FamilyID); revokeErr != nil {
			slog.ErrorContext(ctx, "family revocation after reuse failed",
				"family_id", claims.FamilyID,
				"error", revokeErr,
			)
		}
		slog.WarnContext(ctx, "refresh token reuse detected",
			"user_id", claims.UserID,
			"family_id", claims.FamilyID,
		)
		core.AddSpanEvent(ctx, "refresh.reuse",
			attribute.String("family.id", claims.FamilyID),
		)
		metrics.RecordAuth("refresh", "reuse")
		return nil, ErrTokenReuse
	}

	if session.UserID != claims.UserID || session.FamilyID != claims.FamilyID {
		return nil, fmt.Errorf("refresh: session mismatch: %w", core.ErrTokenInvalid)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("refresh: user gone: %w", core.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	metrics.RecordAuth("refresh", "success")
	return s.issue(ctx, user, claims.FamilyID, client)
}

// Me reads the caller's profile fresh so deleted or deactivated accounts
// stop working before their access token expires.
func (s *Service) Me(ctx context.Context, userID string) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("me: %w", core.ErrUnauthorized)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	resp := toUserResponse(user)
	return &resp, nil
}

// Logout deny-lists the presented access token and, when a refresh token is
// supplied, revokes its family. A refresh token that belongs to someone
// else is ignored.
func (s *Service) Logout(
	ctx context.Context,
	identity *middleware.Identity,
	refreshToken string,
) error {
	if err := s.sessions.DenyAccessToken(ctx, identity.TokenID, identity.ExpiresAt); err != nil {
		return fmt.Errorf("deny access token: %w", err)
	}

	// An expired refresh token can no longer be redeemed; nothing to revoke.
	if refreshToken != "" && !IsExpired(refreshToken) {
		claims, err := s.tokens.VerifyRefresh(refreshToken)
		switch {
		case err != nil:
			slog.DebugContext(ctx, "logout with unusable refresh token", "error", err)
		case claims.UserID != identity.UserID:
			slog.WarnContext(ctx, "logout with foreign refresh token",
				"user_id", identity.UserID,
			)
		default:
			if err := s.sessions.RevokeFamily(ctx, identity.UserID, claims.FamilyID); err != nil {
				return fmt.Errorf("revoke family: %w", err)
			}
		}
	}

	metrics.RecordAuth("logout", "success")
	return nil
}

func (s *Service) LogoutAll(ctx context.Context, identity *middleware.Identity) error {
	if err := s.sessions.RevokeAll(ctx, identity.UserID); err != nil {
		return fmt.Errorf("revoke all: %w", err)
	}
	if err := s.sessions.DenyAccessToken(ctx, identity.TokenID, identity.ExpiresAt); err != nil {
		return fmt.Errorf("deny access token: %w", err)
	}
	return nil
}

func (s *Service) Sessions(ctx context.Context, userID string) ([]Family, error) {
	return s.sessions.ListFamilies(ctx, userID)
}

func (s *Service) RevokeSession(ctx context.Context, userID, familyID string) error {
	owner, err := s.sessions.FamilyOwner(ctx, familyID)
	if err != nil {
		return err
	}
	if owner != userID {
		return fmt.Errorf("revoke session: %w", core.ErrForbidden)
	}
	return s.sessions.RevokeFamily(ctx, userID, familyID)
}

// ChangePassword verifies the current password, stores the new one and
// signs the user out everywhere else.
func (s *Service) ChangePassword(
	ctx context.Context,
	userID string,
	req ChangePasswordRequest,
) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("change password: %w", core.ErrUnauthorized)
		}
		return fmt.Errorf("get user: %w", err)
	}

	valid, _, err := core.VerifyPasswordWithRehash(req.CurrentPassword, user.PasswordHash)
	if err != nil || !valid {
		return ErrWrongPassword
	}

	hash, err := core.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if err := s.sessions.RevokeAll(ctx, userID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	return nil
}

// VerifyAccessToken backs the Authenticator middleware. Deny-list lookups
// that fail are logged and treated as not denied.
func (s *Service) VerifyAccessToken(
	ctx context.Context,
	token string,
) (*middleware.Identity, error) {
	claims, err := s.tokens.VerifyAccess(token)
	if err != nil {
		return nil, err
	}

	denied, err := s.sessions.IsAccessTokenDenied(ctx, claims.TokenID, claims.UserID, claims.Generation)
	if err != nil {
		slog.WarnContext(ctx, "deny list unavailable, accepting token",
			"error", err,
		)
	} else if denied {
		return nil, fmt.Errorf("verify access token: %w", core.ErrTokenRevoked)
	}

	return &middleware.Identity{
		UserID:    claims.UserID,
		Role:      claims.Role,
		Email:     claims.Email,
		TokenID:   claims.TokenID,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

func (s *Service) issue(
	ctx context.Context,
	user *UserInfo,
	familyID string,
	client ClientInfo,
) (*AuthResult, error) {
	gen, err := s.sessions.Generation(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("session generation: %w", err)
	}

	access, accessClaims, err := s.tokens.IssueAccessToken(
		user.ID,
		WithRole(user.Role),
		WithEmail(user.Email),
		WithGeneration(gen),
	)
	if err != nil {
		return nil, err
	}

	refresh, refreshClaims, err := s.tokens.IssueRefreshToken(user.ID, familyID)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Save(ctx, &RefreshSession{
		TokenID:   refreshClaims.TokenID,
		UserID:    user.ID,
		FamilyID:  refreshClaims.FamilyID,
		ExpiresAt: refreshClaims.ExpiresAt,
		UserAgent: client.UserAgent,
		IPAddress: client.IPAddress,
	}); err != nil {
		return nil, fmt.Errorf("store refresh session: %w", err)
	}

	resp := toUserResponse(user)
	return &AuthResult{
		User: &resp,
		Tokens: TokenPair{
			AccessToken:  access,
			RefreshToken: refresh,
			ExpiresAt:    accessClaims.ExpiresAt,
		},
	}, nil
}

// authError maps service errors to the response the client sees.
func authError(err error) *core.AppError {
	var appErr *core.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, ErrInvalidCredentials):
		return core.UnauthorizedError("invalid email or password")
	case errors.Is(err, ErrWrongPassword):
		return core.NewAppError(err, "current password is incorrect", http.StatusBadRequest, "WRONG_PASSWORD")
	case errors.Is(err, ErrAccountInactive):
		return core.NewAppError(err, "account is deactivated", http.StatusUnauthorized, "ACCOUNT_INACTIVE")
	case errors.Is(err, ErrTokenReuse):
		return core.NewAppError(
			core.ErrTokenRevoked,
			"token reuse detected, all sessions in this chain were revoked",
			http.StatusUnauthorized,
			"TOKEN_REUSE_DETECTED",
		)
	case errors.Is(err, core.ErrTokenExpired):
		return core.TokenExpiredError()
	case errors.Is(err, core.ErrTokenRevoked):
		return core.TokenRevokedError()
	case errors.Is(err, core.ErrTokenInvalid):
		return core.TokenInvalidError()
	case errors.Is(err, core.ErrUnauthorized):
		return core.UnauthorizedError("user no longer exists")
	case errors.Is(err, core.ErrForbidden):
		return core.ForbiddenError("not your session")
	case errors.Is(err, core.ErrNotFound):
		return core.NotFoundError("session")
	default:
		return core.InternalError(err)
	}
}
