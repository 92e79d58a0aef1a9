package reconcile

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pulseops/pulseops/backend/auth-core/internal/identity"
	"github.com/pulseops/pulseops/backend/auth-core/internal/profiles"
	"github.com/pulseops/pulseops/backend/auth-core/pkg/logger"
	"github.com/pulseops/pulseops/backend/auth-core/pkg/metrics"
)

// DemoIDPrefix marks synthetic users produced by the demo credential
// resolver. Demo users never touch the provider or the profile store.
const DemoIDPrefix = "demo-"

// User is the application-visible current-user value, fully re-derivable
// from an identity plus its declared role. Mutated only by the Reconciler.
type User struct {
	ID                  string        `json:"id"`
	Email               string        `json:"email"`
	Role                identity.Role `json:"role"`
	IsApproved          bool          `json:"isApproved"`
	CredentialingStatus string        `json:"credentialingStatus,omitempty"`
	CreatedAt           time.Time     `json:"createdAt"`
	LastLogin           time.Time     `json:"lastLogin"`
}

// IsDemo reports whether the user came from the demo credential table.
func (u *User) IsDemo() bool { return strings.HasPrefix(u.ID, DemoIDPrefix) }

// Reconciler owns the canonical current-user value. It observes provider
// session events plus demo overrides, provisions a profile the first time an
// identity is seen, and exposes a stable snapshot to the rest of the
// application. Provisioning failures never invalidate the session: a
// transient store outage must not strand an authenticated user in a login
// loop.
type Reconciler struct {
	client identity.Client
	prov   *profiles.Provisioner

	mu      sync.Mutex
	current *User
	loading bool

	unsubscribe func()
}

// New builds a Reconciler over the injected provider client and provisioner
// and subscribes to session change notifications. The reconciler starts in
// the loading state until OnInitialLoad completes.
func New(client identity.Client, prov *profiles.Provisioner) *Reconciler {
	r := &Reconciler{client: client, prov: prov, loading: true}
	r.unsubscribe = client.OnSessionChange(r.onSessionChange)
	return r
}

// Close detaches the reconciler from provider notifications.
func (r *Reconciler) Close() {
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
}

// CurrentUser returns a copy of the canonical user, or nil when signed out.
func (r *Reconciler) CurrentUser() *User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil
	}
	cp := *r.current
	return &cp
}

// IsLoading reports whether the initial session restore is still running.
func (r *Reconciler) IsLoading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading
}

// OnInitialLoad queries the provider once for an existing session and
// reconciles it. The loading flag clears regardless of outcome.
func (r *Reconciler) OnInitialLoad(ctx context.Context) {
	defer func() {
		r.mu.Lock()
		r.loading = false
		r.mu.Unlock()
	}()

	sess, err := r.client.GetSession(ctx)
	if err != nil {
		logger.Warnf("reconcile: initial session check failed: %v", err)
		return
	}
	if sess == nil {
		logger.Debug("reconcile: no session on initial load")
		return
	}
	logger.Infof("reconcile: restored session for %s", sess.User.Email)
	r.Reconcile(ctx, &sess.User)
}

// onSessionChange handles provider notifications (sign-in, sign-out, token
// refresh) in delivery order. A nil session clears the current user.
func (r *Reconciler) onSessionChange(sess *identity.Session) {
	ctx := context.Background()
	r.OnSessionEvent(ctx, sess)
}

// OnSessionEvent reconciles a session notification. Exposed for the wiring
// layer and tests; the subscription installed by New calls it too.
func (r *Reconciler) OnSessionEvent(ctx context.Context, sess *identity.Session) {
	if sess == nil {
		r.mu.Lock()
		r.current = nil
		r.loading = false
		r.mu.Unlock()
		logger.Debug("reconcile: session cleared")
		return
	}
	r.Reconcile(ctx, &sess.User)
	r.mu.Lock()
	r.loading = false
	r.mu.Unlock()
}

// Reconcile derives the application user from an identity, ensuring its
// profile exists first. Calling it twice with the same identity is
// idempotent: the store's uniqueness constraint suppresses the second
// creation and the resulting user is field-for-field equivalent modulo
// LastLogin.
func (r *Reconciler) Reconcile(ctx context.Context, ident *identity.Identity) {
	role := ident.Role()

	provisioned := false
	if role != identity.RoleAdmin {
		seed := profiles.SeedFromIdentity(ident)
		created, err := r.prov.EnsureProfile(ctx, ident.ID, role, seed)
		if err != nil {
			// non-fatal side channel only; session validity is never gated
			// on profile-store availability
			metrics.ProvisioningFailures.Inc()
			logger.Errorf("reconcile: provisioning failed for %s (%s): %v", ident.ID, role, err)
		} else {
			provisioned = true
			if created {
				logger.Infof("reconcile: provisioned %s profile for %s", role, ident.ID)
			}
		}
	}

	u := &User{
		ID:         ident.ID,
		Email:      ident.Email,
		Role:       role,
		IsApproved: true,
		CreatedAt:  ident.CreatedAt,
		LastLogin:  time.Now().UTC(),
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = u.LastLogin
	}
	if role == identity.RoleClinician && provisioned {
		u.CredentialingStatus = profiles.CredentialingStatusPending
	}

	r.mu.Lock()
	r.current = u
	r.mu.Unlock()
	logger.Debugf("reconcile: current user set to %s (%s)", u.ID, u.Role)
}

// SetDemoUser installs a synthetic demo user. No provider call and no
// provisioning happens for demo sessions.
func (r *Reconciler) SetDemoUser(u *User) {
	r.mu.Lock()
	r.current = u
	r.loading = false
	r.mu.Unlock()
	logger.Infof("reconcile: demo user active (%s as %s)", u.Email, u.Role)
}

// Logout tears the session down. Demo sessions clear locally without a
// provider call; real sessions sign out at the provider first, and the
// nil-session notification clears the user.
func (r *Reconciler) Logout(ctx context.Context) error {
	r.mu.Lock()
	cur := r.current
	r.mu.Unlock()

	if cur != nil && cur.IsDemo() {
		r.mu.Lock()
		r.current = nil
		r.mu.Unlock()
		logger.Debug("reconcile: demo session cleared locally")
		return nil
	}

	if err := r.client.SignOut(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	r.current = nil
	r.mu.Unlock()
	return nil
}
