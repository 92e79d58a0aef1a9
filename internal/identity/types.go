package identity

import "time"

// Role is the declared marketplace role carried in identity metadata.
type Role string

const (
	RoleClinician    Role = "clinician"
	RoleOrganization Role = "organization"
	RoleAdmin        Role = "admin"
)

// ParseRole normalizes a raw metadata value to a Role. Legacy aliases from
// the original frontend ("nurse", "hco") are accepted. Anything unrecognized
// (including absence) degrades to clinician: a missing role means a degraded
// registration and is tolerated, not rejected.
func ParseRole(raw string) Role {
	switch raw {
	case string(RoleClinician), "nurse":
		return RoleClinician
	case string(RoleOrganization), "hco":
		return RoleOrganization
	case string(RoleAdmin):
		return RoleAdmin
	}
	return RoleClinician
}

// Identity is the provider-side authenticated account record. Read-only to
// the auth core; metadata is whatever was attached at registration time.
type Identity struct {
	ID        string         `json:"id"`
	Email     string         `json:"email"`
	Metadata  map[string]any `json:"user_metadata"`
	CreatedAt time.Time      `json:"created_at"`
}

// Role resolves the declared role from registration metadata.
func (i *Identity) Role() Role {
	return ParseRole(i.meta("userType"))
}

func (i *Identity) meta(key string) string {
	if i.Metadata == nil {
		return ""
	}
	v, _ := i.Metadata[key].(string)
	return v
}

// MetaString returns a string metadata field, empty when absent or non-string.
func (i *Identity) MetaString(key string) string { return i.meta(key) }

// Session is a live, token-bound authentication grant tied to one Identity.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         Identity  `json:"user"`
}

// Expired reports whether the access token is past its expiry. Sessions with
// no recorded expiry are treated as live; the provider is the authority.
func (s *Session) Expired() bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(s.ExpiresAt)
}

// SignUpResult is the outcome of a registration request. Session is nil when
// the provider requires email confirmation before issuing tokens.
type SignUpResult struct {
	Identity Identity
	Session  *Session
}

// NeedsEmailConfirmation is true iff the provider created the identity
// without a session.
func (r *SignUpResult) NeedsEmailConfirmation() bool {
	return r.Session == nil
}
