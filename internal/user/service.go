// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/storefront-api/internal/auth"
	"github.com/carterperez-dev/storefront-api/internal/core"
	"github.com/carterperez-dev/storefront-api/internal/middleware"
)

type Service struct {
	repo     Repository
	sessions auth.SessionRevoker
}

func NewService(repo Repository, sessions auth.SessionRevoker) *Service {
	return &Service{repo: repo, sessions: sessions}
}

func (s *Service) GetByID(ctx context.Context, id string) (*auth.UserInfo, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toUserInfo(user), nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*auth.UserInfo, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	return toUserInfo(user), nil
}

// Create checks email before username so the client sees the email conflict
// first. The unique indexes still settle races between the check and insert.
func (s *Service) Create(ctx context.Context, nu auth.NewUser) (*auth.UserInfo, error) {
	email := strings.ToLower(strings.TrimSpace(nu.Email))

	if err := s.ensureUnique(ctx, email, nu.Username, ""); err != nil {
		return nil, err
	}

	user := &User{
		Username:     nu.Username,
		Email:        email,
		PasswordHash: nu.PasswordHash,
		FirstName:    nu.FirstName,
		LastName:     nu.LastName,
		Role:         RoleUser,
		IsActive:     true,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return s.repo.UpdatePassword(ctx, userID, passwordHash)
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context, params ListUsersParams) ([]User, int, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// UpdateUser applies a partial update on behalf of actor. Only admins may
// change role or status, and an admin may not demote or deactivate
// themselves.
func (s *Service) UpdateUser(
	ctx context.Context,
	actor *middleware.Identity,
	id string,
	req UpdateUserRequest,
) (*User, error) {
	ctx, span := core.StartSpan(ctx, "user.UpdateUser",
		attribute.String("user.id", id),
	)
	defer span.End()

	if actor == nil {
		return nil, fmt.Errorf("update user: %w", core.ErrUnauthorized)
	}
	if actor.Role != RoleAdmin && actor.UserID != id {
		return nil, fmt.Errorf("update user: %w", core.ErrForbidden)
	}
	if req.touchesPrivileges() && actor.Role != RoleAdmin {
		return nil, core.ForbiddenError("only admins can change role or status")
	}
	if actor.UserID == id {
		if req.Role != nil && *req.Role != RoleAdmin && actor.Role == RoleAdmin {
			return nil, core.SelfActionError("you cannot change your own role")
		}
		if req.IsActive != nil && !*req.IsActive {
			return nil, core.SelfActionError("you cannot deactivate your own account")
		}
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var email, username string
	if req.Email != nil {
		if e := strings.ToLower(strings.TrimSpace(*req.Email)); e != user.Email {
			email = e
		}
	}
	if req.Username != nil {
		if u := strings.TrimSpace(*req.Username); u != user.Username {
			username = u
		}
	}
	if err := s.ensureUnique(ctx, email, username, id); err != nil {
		return nil, err
	}

	wasActive, oldRole := user.IsActive, user.Role

	if email != "" {
		user.Email = email
	}
	if username != "" {
		user.Username = username
	}
	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, user); err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	if (wasActive && !user.IsActive) || oldRole != user.Role {
		s.revokeSessions(ctx, user.ID)
	}

	return user, nil
}

func (s *Service) DeleteUser(ctx context.Context, actor *middleware.Identity, id string) error {
	if actor != nil && actor.UserID == id {
		return core.SelfActionError("you cannot delete your own account")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.revokeSessions(ctx, id)
	return nil
}

// ToggleStatus flips isActive. Deactivation ends every session of the user.
func (s *Service) ToggleStatus(ctx context.Context, actor *middleware.Identity, id string) (*User, error) {
	if actor != nil && actor.UserID == id {
		return nil, core.SelfActionError("you cannot deactivate your own account")
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user.IsActive = !user.IsActive
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	if !user.IsActive {
		s.revokeSessions(ctx, user.ID)
	}

	return user, nil
}

// RevokeSessions signs the user out of every device. Unlike the revocation
// that follows an account change, a failure here is reported to the caller.
func (s *Service) RevokeSessions(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	if s.sessions == nil {
		return fmt.Errorf("revoke sessions: no session store")
	}
	if err := s.sessions.RevokeAll(ctx, id); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	return nil
}

func (s *Service) ensureUnique(ctx context.Context, email, username, excludeID string) error {
	if email != "" {
		taken, err := s.repo.ExistsByEmail(ctx, email, excludeID)
		if err != nil {
			return err
		}
		if taken {
			return core.DuplicateError("email")
		}
	}

	if username != "" {
		taken, err := s.repo.ExistsByUsername(ctx, username, excludeID)
		if err != nil {
			return err
		}
		if taken {
			return core.DuplicateError("username")
		}
	}

	return nil
}

// revokeSessions is best effort. The account change already happened and
// the user lookup on refresh rejects removed or inactive accounts anyway.
func (s *Service) revokeSessions(ctx context.Context, userID string) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.RevokeAll(ctx, userID); err != nil {
		slog.WarnContext(ctx, "revoke sessions failed",
			"user_id", userID,
			"error", err,
		)
	}
}

func userError(err error) *core.AppError {
	if appErr, ok := core.AsAppError(err); ok {
		return appErr
	}

	switch {
	case errors.Is(err, core.ErrNotFound):
		return core.NotFoundError("user")
	case errors.Is(err, core.ErrUnauthorized):
		return core.UnauthorizedError("")
	case errors.Is(err, core.ErrForbidden):
		return core.ForbiddenError("")
	default:
		return core.InternalError(err)
	}
}

func toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Role:         u.Role,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

var _ auth.UserProvider = (*Service)(nil)
