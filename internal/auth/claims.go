package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenClaims is the part of a Keycloak access token worth logging.
type tokenClaims struct {
	PreferredUsername string `json:"preferred_username"`
	jwt.RegisteredClaims
}

// inspectToken decodes the claims of an access token without verifying its
// signature. The server verifies tokens; the claims are only used for
// diagnostics. ok is false for tokens that are not JWTs.
func inspectToken(raw string) (tokenClaims, bool) {
	var claims tokenClaims

	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return tokenClaims{}, false
	}

	return claims, true
}

// expiresIn returns how long the token has left, or zero when it carries no
// expiry.
func (c tokenClaims) expiresIn(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}

	return c.ExpiresAt.Sub(now)
}
