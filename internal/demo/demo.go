package demo

import (
	"fmt"
	"time"

	"github.com/pulseops/pulseops/backend/auth-core/internal/identity"
	"github.com/pulseops/pulseops/backend/auth-core/internal/reconcile"
)

// Static demo account table. These accounts short-circuit real
// authentication entirely: no provider call, no profile row, and logout is a
// pure local state clear.
type account struct {
	Role     identity.Role
	Password string
}

var accounts = map[string]account{
	"demo@nurse.com":     {Role: identity.RoleClinician, Password: "demo123"},
	"demo@hco.com":       {Role: identity.RoleOrganization, Password: "demo123"},
	"admin@pulseops.com": {Role: identity.RoleAdmin, Password: "admin123"},
}

// Resolve returns a synthetic, non-persisted user iff the exact
// (email, password, role) triple matches a demo table entry. Any single
// mismatched field means "not a demo login" and the caller falls through to
// real authentication.
func Resolve(email, password string, role identity.Role) (*reconcile.User, bool) {
	acct, ok := accounts[email]
	if !ok || acct.Password != password || acct.Role != role {
		return nil, false
	}
	now := time.Now().UTC()
	u := &reconcile.User{
		ID:         fmt.Sprintf("%s%s-%d", reconcile.DemoIDPrefix, role, now.UnixMilli()),
		Email:      email,
		Role:       role,
		IsApproved: true,
		CreatedAt:  now,
		LastLogin:  now,
	}
	if role == identity.RoleClinician {
		u.CredentialingStatus = "approved"
	}
	return u, true
}
