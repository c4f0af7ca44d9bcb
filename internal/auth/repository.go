// AngelaMos | 2026
// repository.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/storefront-api/internal/core"
)

// SessionRevoker is the slice of the session store that other packages need
// when an account is deleted or deactivated.
type SessionRevoker interface {
	RevokeAll(ctx context.Context, userID string) error
}

type SessionRepository interface {
	SessionRevoker
	Save(ctx context.Context, s *RefreshSession) error
	Consume(ctx context.Context, tokenID string) (*RefreshSession, error)
	IsFamilyRevoked(ctx context.Context, familyID string) (bool, error)
	RevokeFamily(ctx context.Context, userID, familyID string) error
	ListFamilies(ctx context.Context, userID string) ([]Family, error)
	FamilyOwner(ctx context.Context, familyID string) (string, error)
	DenyAccessToken(ctx context.Context, tokenID string, expiresAt time.Time) error
	Generation(ctx context.Context, userID string) (int64, error)
	IsAccessTokenDenied(
		ctx context.Context,
		tokenID, userID string,
		generation int64,
	) (bool, error)
}

// Key layout:
//
//	auth:refresh:{jti}            userID:familyID, expires with the token
//	auth:family:{fid}             hash of family metadata
//	auth:family:{fid}:revoked     tombstone for a revoked family
//	auth:user:{uid}:families      set of the user's family ids
//	auth:user:{uid}:generation    counter; access tokens carrying a lower value are dead
//	auth:blacklist:{jti}          logged-out access token
const (
	refreshPrefix   = "auth:refresh:"
	familyPrefix    = "auth:family:"
	userPrefix      = "auth:user:"
	blacklistPrefix = "auth:blacklist:"
)

type sessionRepository struct {
	rdb       *redis.Client
	familyTTL time.Duration
	now       func() time.Time
}

func NewSessionRepository(rdb *redis.Client) SessionRepository {
	return &sessionRepository{
		rdb:       rdb,
		familyTTL: refreshExpiry,
		now:       time.Now,
	}
}

func refreshKey(tokenID string) string { return refreshPrefix + tokenID }
func familyKey(familyID string) string { return familyPrefix + familyID }
func familyRevokedKey(familyID string) string {
	return familyPrefix + familyID + ":revoked"
}
func userFamiliesKey(userID string) string {
	return userPrefix + userID + ":families"
}
func userGenerationKey(userID string) string {
	return userPrefix + userID + ":generation"
}
func blacklistKey(tokenID string) string { return blacklistPrefix + tokenID }

func (r *sessionRepository) Save(ctx context.Context, s *RefreshSession) error {
	now := r.now()
	ttl := s.TTL(now)
	if ttl <= 0 {
		return fmt.Errorf("save session: %w", core.ErrTokenExpired)
	}

	fkey := familyKey(s.FamilyID)
	stamp := now.UTC().Format(time.RFC3339)

	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, refreshKey(s.TokenID), s.UserID+":"+s.FamilyID, ttl)
		pipe.HSetNX(ctx, fkey, "createdAt", stamp)
		pipe.HSet(ctx, fkey,
			"userId", s.UserID,
			"userAgent", s.UserAgent,
			"ipAddress", s.IPAddress,
			"lastUsedAt", stamp,
		)
		pipe.Expire(ctx, fkey, r.familyTTL)
		pipe.SAdd(ctx, userFamiliesKey(s.UserID), s.FamilyID)
		pipe.Expire(ctx, userFamiliesKey(s.UserID), r.familyTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	return nil
}

// Consume atomically removes and returns the session for tokenID. A token
// that was already consumed, or never existed, yields core.ErrNotFound.
func (r *sessionRepository) Consume(
	ctx context.Context,
	tokenID string,
) (*RefreshSession, error) {
	val, err := r.rdb.GetDel(ctx, refreshKey(tokenID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("consume session: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("consume session: %w", err)
	}

	userID, familyID, ok := strings.Cut(val, ":")
	if !ok {
		return nil, fmt.Errorf("consume session: malformed value: %w", core.ErrTokenInvalid)
	}

	return &RefreshSession{
		TokenID:  tokenID,
		UserID:   userID,
		FamilyID: familyID,
	}, nil
}

func (r *sessionRepository) IsFamilyRevoked(
	ctx context.Context,
	familyID string,
) (bool, error) {
	n, err := r.rdb.Exists(ctx, familyRevokedKey(familyID)).Result()
	if err != nil {
		return false, fmt.Errorf("check family: %w", err)
	}
	return n > 0, nil
}

// RevokeFamily tombstones the family. Outstanding refresh tokens of the
// family stay in Redis but are refused by the revoked check.
func (r *sessionRepository) RevokeFamily(
	ctx context.Context,
	userID, familyID string,
) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, familyRevokedKey(familyID), userID, r.familyTTL)
		pipe.Del(ctx, familyKey(familyID))
		pipe.SRem(ctx, userFamiliesKey(userID), familyID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("revoke family: %w", err)
	}
	return nil
}

// RevokeAll revokes every family of the user and bumps the session
// generation, which kills every access token issued before the call.
// The counter has no TTL so it can never fall back below a live token.
func (r *sessionRepository) RevokeAll(ctx context.Context, userID string) error {
	families, err := r.rdb.SMembers(ctx, userFamiliesKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("list families: %w", err)
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, fid := range families {
			pipe.Set(ctx, familyRevokedKey(fid), userID, r.familyTTL)
			pipe.Del(ctx, familyKey(fid))
		}
		pipe.Del(ctx, userFamiliesKey(userID))
		pipe.Incr(ctx, userGenerationKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("revoke all families: %w", err)
	}

	return nil
}

func (r *sessionRepository) FamilyOwner(
	ctx context.Context,
	familyID string,
) (string, error) {
	owner, err := r.rdb.HGet(ctx, familyKey(familyID), "userId").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("family owner: %w", core.ErrNotFound)
		}
		return "", fmt.Errorf("family owner: %w", err)
	}
	return owner, nil
}

// ListFamilies returns the user's live families, most recently used first.
// Members whose metadata already expired are pruned from the set.
func (r *sessionRepository) ListFamilies(
	ctx context.Context,
	userID string,
) ([]Family, error) {
	ids, err := r.rdb.SMembers(ctx, userFamiliesKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list families: %w", err)
	}

	families := make([]Family, 0, len(ids))
	var stale []any

	for _, fid := range ids {
		fields, hErr := r.rdb.HGetAll(ctx, familyKey(fid)).Result()
		if hErr != nil {
			return nil, fmt.Errorf("load family %s: %w", fid, hErr)
		}
		if len(fields) == 0 {
			stale = append(stale, fid)
			continue
		}

		f := Family{
			ID:        fid,
			UserAgent: fields["userAgent"],
			IPAddress: fields["ipAddress"],
		}
		f.CreatedAt, _ = time.Parse(time.RFC3339, fields["createdAt"])   //nolint:errcheck
		f.LastUsedAt, _ = time.Parse(time.RFC3339, fields["lastUsedAt"]) //nolint:errcheck
		families = append(families, f)
	}

	if len(stale) > 0 {
		//nolint:errcheck // pruning is best effort
		_ = r.rdb.SRem(ctx, userFamiliesKey(userID), stale...).Err()
	}

	sort.Slice(families, func(i, j int) bool {
		return families[i].LastUsedAt.After(families[j].LastUsedAt)
	})

	return families, nil
}

func (r *sessionRepository) DenyAccessToken(
	ctx context.Context,
	tokenID string,
	expiresAt time.Time,
) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}

	if err := r.rdb.Set(ctx, blacklistKey(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}
	return nil
}

// Generation is the user's current session generation. A user that never
// had their sessions revoked is at generation zero.
func (r *sessionRepository) Generation(
	ctx context.Context,
	userID string,
) (int64, error) {
	gen, err := r.rdb.Get(ctx, userGenerationKey(userID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("session generation: %w", err)
	}
	return gen, nil
}

func (r *sessionRepository) IsAccessTokenDenied(
	ctx context.Context,
	tokenID, userID string,
	generation int64,
) (bool, error) {
	var (
		denied  *redis.IntCmd
		current *redis.StringCmd
	)
	_, err := r.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		denied = pipe.Exists(ctx, blacklistKey(tokenID))
		current = pipe.Get(ctx, userGenerationKey(userID))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("check blacklist: %w", err)
	}

	if denied.Val() > 0 {
		return true, nil
	}

	if gen, convErr := current.Int64(); convErr == nil && generation < gen {
		return true, nil
	}

	return false, nil
}
