package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenClaims represents the typed JWT issued by the identity
// provider. The subject carries the provider-side identity id that keys
// users, roles, and the authorization cache.
type AccessTokenClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// IdentityID returns the identity-provider id the token was issued for.
func (c *AccessTokenClaims) IdentityID() string {
	return strings.TrimSpace(c.Subject)
}
