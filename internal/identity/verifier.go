package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/pulseops/pulseops/backend/auth-core/pkg/middleware"
)

// Verifier wraps the provider's OIDC discovery document and verifies
// access-token signatures against its JWKS.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewVerifier discovers the issuer and builds a token verifier for it.
func NewVerifier(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("discover identity issuer: %w", err)
	}
	return &Verifier{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

// Verify checks the raw token's signature and returns its claims handle.
func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	tok, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	return tok, nil
}

// unverifiedToken exposes claims parsed without signature verification.
type unverifiedToken struct {
	claims *AccessClaims
}

func (t *unverifiedToken) Claims(v interface{}) error {
	m, ok := v.(*map[string]interface{})
	if !ok {
		return fmt.Errorf("unsupported claims target %T", v)
	}
	*m = map[string]interface{}{
		"sub":           t.claims.Subject,
		"email":         t.claims.Email,
		"user_metadata": t.claims.Metadata,
	}
	return nil
}

// UnverifiedVerifier accepts any well-formed provider token without checking
// its signature. Used when no issuer is configured: the tokens were issued to
// this same process over TLS and are only echoed back by the browser.
type UnverifiedVerifier struct{}

func NewUnverifiedVerifier() *UnverifiedVerifier { return &UnverifiedVerifier{} }

func (v *UnverifiedVerifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	claims, err := ParseAccessClaims(raw)
	if err != nil {
		return nil, err
	}
	if !claims.ExpiresAt.IsZero() && time.Now().After(claims.ExpiresAt) {
		return nil, fmt.Errorf("token expired at %s", claims.ExpiresAt.Format(time.RFC3339))
	}
	return &unverifiedToken{claims: claims}, nil
}
