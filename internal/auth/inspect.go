// AngelaMos | 2026
// inspect.go

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IsExpired decodes the token without checking its signature and reports
// whether it is past its exp claim. Unparsable tokens and tokens without
// exp count as expired. Clients use this to decide when to refresh; it must
// never gate access.
func IsExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}

	return !time.Now().Before(exp.Time)
}
