package callback

import (
	"context"
	"net/url"
	"strings"

	"github.com/pulseops/pulseops/backend/auth-core/internal/identity"
	"github.com/pulseops/pulseops/backend/auth-core/internal/profiles"
	"github.com/pulseops/pulseops/backend/auth-core/pkg/logger"
	"github.com/pulseops/pulseops/backend/auth-core/pkg/metrics"
)

// State is the resolution of one redirect-back visit.
type State string

const (
	StatePending   State = "pending"
	StateConfirmed State = "confirmed"
	StateFailed    State = "failed"
)

// Params are the values extracted from the redirect URL. The provider may
// deliver them in the URL fragment or the query string; fragment values win
// when both are present.
type Params struct {
	Error            string
	ErrorDescription string
	AccessToken      string
	RefreshToken     string
	RegisterMode     bool
	RoleSpecified    bool
	Role             identity.Role
}

// ParseRedirect extracts callback parameters from the full redirect URL,
// reading both the fragment (access_token, refresh_token, error,
// error_description) and the query string (same keys, plus mode and
// userType).
func ParseRedirect(raw string) (Params, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Params{}, err
	}
	query := u.Query()
	fragment, _ := url.ParseQuery(strings.TrimPrefix(u.Fragment, "#"))

	pick := func(key string) string {
		if v := fragment.Get(key); v != "" {
			return v
		}
		return query.Get(key)
	}

	p := Params{
		Error:            pick("error"),
		ErrorDescription: pick("error_description"),
		AccessToken:      pick("access_token"),
		RefreshToken:     pick("refresh_token"),
	}
	if pick("mode") == "register" {
		p.RegisterMode = true
	}
	if raw := pick("userType"); raw != "" {
		p.RoleSpecified = true
		p.Role = identity.ParseRole(raw)
	}
	return p, nil
}

// Result is the terminal state of the machine plus a user-presentable
// message.
type Result struct {
	State   State
	Message string
}

// Handler resolves a redirect-back visit to confirmed or failed. It is a
// pure state machine over the injected provider client and provisioner, so
// transitions are testable without any rendering surface.
type Handler struct {
	client identity.Client
	prov   *profiles.Provisioner
}

func NewHandler(client identity.Client, prov *profiles.Provisioner) *Handler {
	return &Handler{client: client, prov: prov}
}

// Resolve runs the machine: an explicit provider error always fails without
// attempting token exchange; a token pair is exchanged for a session;
// otherwise an already-established session (cookie-based providers) counts
// as confirmed. On confirmation of a registration-flavored visit the profile
// is provisioned before the caller navigates away.
func (h *Handler) Resolve(ctx context.Context, p Params) Result {
	res := h.resolve(ctx, p)
	metrics.CallbackOutcomes.WithLabelValues(string(res.State)).Inc()
	return res
}

func (h *Handler) resolve(ctx context.Context, p Params) Result {
	if p.Error != "" {
		msg := p.ErrorDescription
		if msg == "" {
			msg = p.Error
		}
		logger.Warnf("callback: provider returned error %q (%s)", p.Error, p.ErrorDescription)
		return Result{State: StateFailed, Message: msg}
	}

	if p.AccessToken != "" && p.RefreshToken != "" {
		sess, err := h.client.SetSession(ctx, p.AccessToken, p.RefreshToken)
		if err != nil {
			logger.Errorf("callback: session exchange failed: %v", err)
			return Result{State: StateFailed, Message: "Failed to complete authentication. Please try again."}
		}
		h.provisionIfRegistering(ctx, p, &sess.User)
		return Result{State: StateConfirmed, Message: "Email confirmed successfully! Redirecting to your dashboard..."}
	}

	// some providers set the session via cookie rather than URL fragment
	sess, err := h.client.GetSession(ctx)
	if err != nil {
		logger.Errorf("callback: session lookup failed: %v", err)
		return Result{State: StateFailed, Message: "Failed to complete authentication. Please try again."}
	}
	if sess == nil {
		return Result{State: StateFailed, Message: "Invalid authentication link. Please try signing in again."}
	}
	h.provisionIfRegistering(ctx, p, &sess.User)
	return Result{State: StateConfirmed, Message: "Already signed in! Redirecting to your dashboard..."}
}

// provisionIfRegistering creates the profile for a registration-flavored
// visit. Requires both the registration marker and a role. Failures are
// logged only: the confirmed session stands and the reconciler's initial
// load retries provisioning on the next page load.
func (h *Handler) provisionIfRegistering(ctx context.Context, p Params, ident *identity.Identity) {
	if !p.RegisterMode || !p.RoleSpecified {
		return
	}
	seed := profiles.SeedFromIdentity(ident)
	created, err := h.prov.EnsureProfile(ctx, ident.ID, p.Role, seed)
	if err != nil {
		metrics.ProvisioningFailures.Inc()
		logger.Errorf("callback: provisioning failed for %s (%s): %v", ident.ID, p.Role, err)
		return
	}
	if created {
		logger.Infof("callback: provisioned %s profile for %s", p.Role, ident.ID)
	}
}
