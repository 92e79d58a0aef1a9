package actions

import (
	"context"
	"net/url"

	"github.com/pulseops/pulseops/backend/auth-core/internal/demo"
	"github.com/pulseops/pulseops/backend/auth-core/internal/identity"
	"github.com/pulseops/pulseops/backend/auth-core/internal/oauthstate"
	"github.com/pulseops/pulseops/backend/auth-core/internal/reconcile"
	"github.com/pulseops/pulseops/backend/auth-core/pkg/logger"
	"github.com/pulseops/pulseops/backend/auth-core/pkg/metrics"
)

// Service bundles the five credential actions. Each one is a thin
// request/response wrapper over the provider: it either establishes session
// state (observed by the reconciler's listener) or returns a classified
// error. None of them touch the current-user value directly, except the demo
// path which bypasses the provider entirely.
type Service struct {
	client      identity.Client
	rec         *reconcile.Reconciler
	states      oauthstate.Store
	callbackURL string
}

func NewService(client identity.Client, rec *reconcile.Reconciler, states oauthstate.Store, callbackURL string) *Service {
	return &Service{client: client, rec: rec, states: states, callbackURL: callbackURL}
}

// Login authenticates with email/password for the declared role. Demo-table
// triples short-circuit real authentication.
func (s *Service) Login(ctx context.Context, email, password string, role identity.Role) (*reconcile.User, error) {
	if u, ok := demo.Resolve(email, password, role); ok {
		s.rec.SetDemoUser(u)
		metrics.Logins.WithLabelValues("demo", "success").Inc()
		logger.Infof("login: demo account %s (%s)", email, role)
		return u, nil
	}

	if _, err := s.client.SignInWithPassword(ctx, email, password); err != nil {
		metrics.Logins.WithLabelValues("password", "failure").Inc()
		return nil, err
	}
	metrics.Logins.WithLabelValues("password", "success").Inc()
	// the session-change listener has already reconciled by now
	return s.rec.CurrentUser(), nil
}

// LoginWithGoogle starts the OAuth redirect flow and returns the
// authorization URL the browser should follow.
func (s *Service) LoginWithGoogle(ctx context.Context, role identity.Role) (string, error) {
	return s.oauthURL(ctx, role, false)
}

// RegisterWithGoogle starts the sign-up variant of the redirect flow. The
// registration marker and role ride along so the callback can provision.
func (s *Service) RegisterWithGoogle(ctx context.Context, role identity.Role) (string, error) {
	if role == identity.RoleAdmin {
		return "", identity.NewError(identity.KindUnclassified, "admin accounts cannot self-register")
	}
	return s.oauthURL(ctx, role, true)
}

func (s *Service) oauthURL(ctx context.Context, role identity.Role, register bool) (string, error) {
	state, err := s.states.Issue(ctx)
	if err != nil {
		return "", err
	}
	params := url.Values{}
	params.Set("userType", string(role))
	params.Set("state", state)
	redirect := s.callbackURL
	if register {
		params.Set("mode", "register")
		redirect += "?mode=register&userType=" + string(role)
	}
	u, err := s.client.SignInWithOAuth(ctx, "google", redirect, params)
	if err != nil {
		metrics.Logins.WithLabelValues("oauth", "failure").Inc()
		return "", err
	}
	return u, nil
}

// RegisterRequest is the registration payload. Role-specific fields are
// attached to identity metadata so provisioning can seed the profile later.
type RegisterRequest struct {
	Email             string
	Password          string
	Role              identity.Role
	FirstName         string
	LastName          string
	Phone             string
	DateOfBirth       string
	OrganizationName  string
	ContactPersonName string
	OrganizationType  string
}

// RegisterResult reports whether a confirmation email stands between the new
// identity and its first session.
type RegisterResult struct {
	NeedsEmailConfirmation bool `json:"needsEmailConfirmation"`
}

// Register creates the identity with role and profile-seed metadata. When
// the provider issues a session immediately (email confirmation disabled)
// the reconciler picks it up through the session listener; otherwise the
// result tells the caller to render the pending-confirmation state.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	metadata := map[string]any{
		"userType":          string(req.Role),
		"firstName":         req.FirstName,
		"lastName":          req.LastName,
		"phone":             req.Phone,
		"dateOfBirth":       req.DateOfBirth,
		"organizationName":  req.OrganizationName,
		"contactPersonName": req.ContactPersonName,
		"organizationType":  req.OrganizationType,
	}
	res, err := s.client.SignUp(ctx, req.Email, req.Password, metadata)
	if err != nil {
		metrics.Registrations.WithLabelValues("password", "failure").Inc()
		return nil, err
	}
	metrics.Registrations.WithLabelValues("password", "success").Inc()
	if res.NeedsEmailConfirmation() {
		logger.Infof("register: %s pending email confirmation", req.Email)
		return &RegisterResult{NeedsEmailConfirmation: true}, nil
	}
	return &RegisterResult{}, nil
}

// Logout ends the current session. Demo sessions clear locally; real
// sessions sign out at the provider first.
func (s *Service) Logout(ctx context.Context) error {
	return s.rec.Logout(ctx)
}

// ConsumeState validates a state nonce returned by the provider redirect.
func (s *Service) ConsumeState(ctx context.Context, state string) (bool, error) {
	return s.states.Consume(ctx, state)
}
