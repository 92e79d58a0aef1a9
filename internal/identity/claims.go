package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims are the provider access-token fields the core reads.
type AccessClaims struct {
	Subject   string
	Email     string
	ExpiresAt time.Time
	Metadata  map[string]any
}

// ParseAccessClaims decodes the payload of a provider-issued access token
// without verifying its signature. The provider is trusted to have signed
// what it handed back over TLS; use Verifier when issuer verification is
// configured.
func ParseAccessClaims(raw string) (*AccessClaims, error) {
	var claims jwt.MapClaims = jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	out := &AccessClaims{}
	out.Subject, _ = claims["sub"].(string)
	out.Email, _ = claims["email"].(string)
	if md, ok := claims["user_metadata"].(map[string]any); ok {
		out.Metadata = md
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}
