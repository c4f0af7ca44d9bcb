// AngelaMos | 2026
// entity.go

package auth

import (
	"time"
)

// RefreshSession is one live refresh token. Every rotation replaces the
// session with a new TokenID in the same FamilyID.
type RefreshSession struct {
	TokenID   string
	UserID    string
	FamilyID  string
	ExpiresAt time.Time
	UserAgent string
	IPAddress string
}

func (s *RefreshSession) TTL(now time.Time) time.Duration {
	return s.ExpiresAt.Sub(now)
}

func (s *RefreshSession) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Family is a login session as the user sees it: the chain of refresh
// tokens started by one login or registration.
type Family struct {
	ID         string    `json:"id"`
	UserAgent  string    `json:"userAgent"`
	IPAddress  string    `json:"ipAddress"`
	CreatedAt  time.Time `json:"createdAt"`
	LastUsedAt time.Time `json:"lastUsedAt"`
}
