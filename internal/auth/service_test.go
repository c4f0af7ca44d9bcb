// AngelaMos | 2026
// service_test.go

package auth

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/carterperez-dev/storefront-api/internal/core"
)

type fakeUsers struct {
	mu     sync.Mutex
	byID   map[string]*UserInfo
	nextID int
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[string]*UserInfo)}
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*UserInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("get by email: %w", core.ErrNotFound)
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*UserInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, fmt.Errorf("get by id: %w", core.ErrNotFound)
}

func (f *fakeUsers) Create(_ context.Context, nu NewUser) (*UserInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == nu.Email {
			return nil, core.DuplicateError("email")
		}
		if u.Username == nu.Username {
			return nil, core.DuplicateError("username")
		}
	}
	f.nextID++
	now := time.Now()
	u := &UserInfo{
		ID:           "u" + strconv.Itoa(f.nextID),
		Username:     nu.Username,
		Email:        nu.Email,
		PasswordHash: nu.PasswordHash,
		FirstName:    nu.FirstName,
		LastName:     nu.LastName,
		Role:         "user",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.byID[u.ID] = u
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return core.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeUsers) set(id string, fn func(*UserInfo)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f.byID[id])
}

type serviceFixture struct {
	svc   *Service
	users *fakeUsers
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	_, sessions := newTestSessions(t)
	users := newFakeUsers()
	return &serviceFixture{
		svc:   NewService(newTestTokenManager(t), sessions, users),
		users: users,
	}
}

func (f *serviceFixture) register(t *testing.T, username, email string) *AuthResult {
	t.Helper()
	res, err := f.svc.Register(context.Background(), RegisterRequest{
		Username: username,
		Email:    email,
		Password: "secret1",
	}, ClientInfo{UserAgent: "test"})
	require.NoError(t, err)
	return res
}

func TestRegisterIssuesUsableTokens(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	res := f.register(t, "alice", "Alice@Example.com")
	assert.Equal(t, "alice@example.com", res.User.Email)
	assert.Equal(t, "user", res.User.Role)

	identity, err := f.svc.VerifyAccessToken(ctx, res.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, identity.UserID)
	assert.Equal(t, "user", identity.Role)

	me, err := f.svc.Me(ctx, identity.UserID)
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Username)
}

func TestRegisterDuplicate(t *testing.T) {
	f := newServiceFixture(t)
	f.register(t, "alice", "alice@example.com")

	_, err := f.svc.Register(context.Background(), RegisterRequest{
		Username: "alice2",
		Email:    "alice@example.com",
		Password: "secret1",
	}, ClientInfo{})

	appErr := authError(err)
	assert.Equal(t, 400, appErr.StatusCode)
	assert.Contains(t, appErr.Message, "email")
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newServiceFixture(t)
	f.register(t, "alice", "alice@example.com")
	ctx := context.Background()

	_, wrongPassword := f.svc.Login(ctx, LoginRequest{
		Email:    "alice@example.com",
		Password: "nope-nope",
	}, ClientInfo{})
	_, unknownEmail := f.svc.Login(ctx, LoginRequest{
		Email:    "nobody@example.com",
		Password: "nope-nope",
	}, ClientInfo{})

	require.Error(t, wrongPassword)
	require.Error(t, unknownEmail)
	assert.Equal(t, authError(wrongPassword), authError(unknownEmail))
	assert.Equal(t, 401, authError(unknownEmail).StatusCode)
}

func TestLoginInactiveAccount(t *testing.T) {
	f := newServiceFixture(t)
	res := f.register(t, "alice", "alice@example.com")
	f.users.set(res.User.ID, func(u *UserInfo) { u.IsActive = false })

	_, err := f.svc.Login(context.Background(), LoginRequest{
		Email:    "alice@example.com",
		Password: "secret1",
	}, ClientInfo{})
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestLoginRehashesLegacyBcrypt(t *testing.T) {
	f := newServiceFixture(t)
	res := f.register(t, "alice", "alice@example.com")

	legacy, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)
	f.users.set(res.User.ID, func(u *UserInfo) { u.PasswordHash = string(legacy) })

	_, err = f.svc.Login(context.Background(), LoginRequest{
		Email:    "alice@example.com",
		Password: "secret1",
	}, ClientInfo{})
	require.NoError(t, err)

	stored, err := f.users.GetByID(context.Background(), res.User.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.PasswordHash, "$argon2id$")
}

func TestRefreshRotatesAndDetectsReuse(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	first := f.register(t, "alice", "alice@example.com")

	second, err := f.svc.Refresh(ctx, first.Tokens.RefreshToken, ClientInfo{})
	require.NoError(t, err)
	assert.NotEqual(t, first.Tokens.RefreshToken, second.Tokens.RefreshToken)

	_, err = f.svc.VerifyAccessToken(ctx, second.Tokens.AccessToken)
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, first.Tokens.RefreshToken, ClientInfo{})
	assert.ErrorIs(t, err, ErrTokenReuse)
	assert.Equal(t, "TOKEN_REUSE_DETECTED", authError(err).Code)

	_, err = f.svc.Refresh(ctx, second.Tokens.RefreshToken, ClientInfo{})
	assert.ErrorIs(t, err, core.ErrTokenRevoked, "reuse revokes the whole family")
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	f := newServiceFixture(t)
	res := f.register(t, "alice", "alice@example.com")

	_, err := f.svc.Refresh(context.Background(), res.Tokens.AccessToken, ClientInfo{})
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
	assert.Equal(t, 401, authError(err).StatusCode)
}

func TestRefreshForDeactivatedUser(t *testing.T) {
	f := newServiceFixture(t)
	res := f.register(t, "alice", "alice@example.com")
	f.users.set(res.User.ID, func(u *UserInfo) { u.IsActive = false })

	_, err := f.svc.Refresh(context.Background(), res.Tokens.RefreshToken, ClientInfo{})
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestLogoutDeniesAccessTokenAndRevokesFamily(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	res := f.register(t, "alice", "alice@example.com")

	identity, err := f.svc.VerifyAccessToken(ctx, res.Tokens.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, identity, res.Tokens.RefreshToken))

	_, err = f.svc.VerifyAccessToken(ctx, res.Tokens.AccessToken)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)

	_, err = f.svc.Refresh(ctx, res.Tokens.RefreshToken, ClientInfo{})
	assert.ErrorIs(t, err, core.ErrTokenRevoked)
}

func TestLogoutIgnoresForeignRefreshToken(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice", "alice@example.com")
	bob := f.register(t, "bob", "bob@example.com")

	identity, err := f.svc.VerifyAccessToken(ctx, alice.Tokens.AccessToken)
	require.NoError(t, err)
	require.NoError(t, f.svc.Logout(ctx, identity, bob.Tokens.RefreshToken))

	_, err = f.svc.Refresh(ctx, bob.Tokens.RefreshToken, ClientInfo{})
	assert.NoError(t, err)
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	res := f.register(t, "alice", "alice@example.com")

	err := f.svc.ChangePassword(ctx, res.User.ID, ChangePasswordRequest{
		CurrentPassword: "wrong-one",
		NewPassword:     "secret2",
	})
	assert.ErrorIs(t, err, ErrWrongPassword)

	require.NoError(t, f.svc.ChangePassword(ctx, res.User.ID, ChangePasswordRequest{
		CurrentPassword: "secret1",
		NewPassword:     "secret2",
	}))

	_, err = f.svc.Refresh(ctx, res.Tokens.RefreshToken, ClientInfo{})
	assert.ErrorIs(t, err, core.ErrTokenRevoked)

	_, err = f.svc.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "secret2"}, ClientInfo{})
	assert.NoError(t, err)
}

func TestChangePasswordKillsAccessTokenFromSameSecond(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	// Pin the clock so issuance and the password change share one second.
	pinned := time.Now().Truncate(time.Second).Add(500 * time.Millisecond)
	f.svc.tokens.now = func() time.Time { return pinned }

	res := f.register(t, "alice", "alice@example.com")
	_, err := f.svc.VerifyAccessToken(ctx, res.Tokens.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.svc.ChangePassword(ctx, res.User.ID, ChangePasswordRequest{
		CurrentPassword: "secret1",
		NewPassword:     "secret2",
	}))

	_, err = f.svc.VerifyAccessToken(ctx, res.Tokens.AccessToken)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)

	fresh, err := f.svc.Login(ctx, LoginRequest{
		Email:    "alice@example.com",
		Password: "secret2",
	}, ClientInfo{})
	require.NoError(t, err)

	_, err = f.svc.VerifyAccessToken(ctx, fresh.Tokens.AccessToken)
	assert.NoError(t, err, "tokens issued after the change carry the new generation")
}

func TestSessionsAndRevokeSession(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice", "alice@example.com")
	bob := f.register(t, "bob", "bob@example.com")

	sessions, err := f.svc.Sessions(ctx, alice.User.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	bobSessions, err := f.svc.Sessions(ctx, bob.User.ID)
	require.NoError(t, err)
	require.Len(t, bobSessions, 1)

	err = f.svc.RevokeSession(ctx, alice.User.ID, bobSessions[0].ID)
	assert.ErrorIs(t, err, core.ErrForbidden)

	require.NoError(t, f.svc.RevokeSession(ctx, alice.User.ID, sessions[0].ID))
	_, err = f.svc.Refresh(ctx, alice.Tokens.RefreshToken, ClientInfo{})
	assert.ErrorIs(t, err, core.ErrTokenRevoked)
}

func TestMeForDeletedUser(t *testing.T) {
	f := newServiceFixture(t)
	_, err := f.svc.Me(context.Background(), "ghost")
	assert.ErrorIs(t, err, core.ErrUnauthorized)
	assert.Equal(t, 401, authError(err).StatusCode)
}
