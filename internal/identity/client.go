package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/pulseops/pulseops/backend/auth-core/pkg/logger"
)

// Client is the surface the auth core consumes from the hosted identity
// provider. Credential actions and the callback handler are the only
// writers of session state; the session reconciler observes it through
// GetSession and OnSessionChange.
type Client interface {
	GetSession(ctx context.Context) (*Session, error)
	OnSessionChange(fn func(*Session)) (unsubscribe func())
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignInWithOAuth(ctx context.Context, provider, redirectURL string, params url.Values) (string, error)
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*SignUpResult, error)
	SetSession(ctx context.Context, accessToken, refreshToken string) (*Session, error)
	SignOut(ctx context.Context) error
}

// HTTPClient talks to a GoTrue-style REST API:
//
//	POST {base}/token?grant_type=password|refresh_token
//	POST {base}/signup
//	GET  {base}/authorize?provider=...&redirect_to=...
//	GET  {base}/user
//	POST {base}/logout
//
// It holds the current session in memory and fans out change notifications
// to subscribers in delivery order.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client

	mu        sync.Mutex
	current   *Session
	listeners map[int]func(*Session)
	nextID    int
}

// NewHTTPClient builds a provider client. baseURL is the auth API root
// (e.g. https://project.example.co/auth/v1) and apiKey the public API key
// sent with every request.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL:   trimSlash(baseURL),
		apiKey:    apiKey,
		http:      &http.Client{Timeout: timeout},
		listeners: map[int]func(*Session){},
	}
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

func (c *HTTPClient) configured() bool { return c.baseURL != "" && c.apiKey != "" }

// OnSessionChange registers a listener invoked on sign-in, sign-out and
// token refresh. A nil session means signed out. The returned function
// removes the listener.
func (c *HTTPClient) OnSessionChange(fn func(*Session)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// setCurrent swaps the cached session and notifies listeners outside the lock.
func (c *HTTPClient) setCurrent(s *Session) {
	c.mu.Lock()
	c.current = s
	fns := make([]func(*Session), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

// GetSession returns the current session, refreshing through the provider
// when the access token has expired. Returns (nil, nil) when signed out.
func (c *HTTPClient) GetSession(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	cur := c.current
	c.mu.Unlock()
	if cur == nil {
		return nil, nil
	}
	if !cur.Expired() {
		cp := *cur
		return &cp, nil
	}
	if cur.RefreshToken == "" {
		c.setCurrent(nil)
		return nil, nil
	}
	logger.Debugf("identity: access token expired, refreshing session for %s", cur.User.Email)
	sess, err := c.tokenGrant(ctx, "refresh_token", map[string]string{"refresh_token": cur.RefreshToken})
	if err != nil {
		// refresh rejection means the grant is gone; report signed out
		logger.Warnf("identity: session refresh failed: %v", err)
		c.setCurrent(nil)
		return nil, nil
	}
	c.setCurrent(sess)
	cp := *sess
	return &cp, nil
}

// SignInWithPassword performs the password grant and installs the session.
func (c *HTTPClient) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	if !c.configured() {
		return nil, NewError(KindOAuthNotConfigured, "identity provider is not configured")
	}
	sess, err := c.tokenGrant(ctx, "password", map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	c.setCurrent(sess)
	cp := *sess
	return &cp, nil
}

// SignInWithOAuth builds the provider's authorization URL for a redirect
// flow. No request is made; the browser follows the URL and comes back on
// the callback route.
func (c *HTTPClient) SignInWithOAuth(ctx context.Context, provider, redirectURL string, params url.Values) (string, error) {
	if !c.configured() {
		return "", NewError(KindOAuthNotConfigured, "identity provider is not configured")
	}
	if provider == "" {
		return "", NewError(KindOAuthNotConfigured, "oauth provider name is required")
	}
	q := url.Values{}
	q.Set("provider", provider)
	if redirectURL != "" {
		q.Set("redirect_to", redirectURL)
	}
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	return c.baseURL + "/authorize?" + q.Encode(), nil
}

// signUpResponse covers both provider shapes: a bare identity when email
// confirmation is pending, or a full token response when auto-confirmed.
type signUpResponse struct {
	tokenResponse
	// bare identity fields (confirmation pending)
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
	CreatedAt    time.Time      `json:"created_at"`
}

// SignUp registers a new identity with the given metadata attached. When the
// provider returns tokens the session is installed immediately; otherwise
// the caller should report that email confirmation is pending.
func (c *HTTPClient) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*SignUpResult, error) {
	if !c.configured() {
		return nil, NewError(KindOAuthNotConfigured, "identity provider is not configured")
	}
	body := map[string]any{"email": email, "password": password, "data": metadata}
	var resp signUpResponse
	if err := c.post(ctx, "/signup", "", body, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken != "" {
		sess := resp.tokenResponse.session()
		c.setCurrent(sess)
		cp := *sess
		return &SignUpResult{Identity: sess.User, Session: &cp}, nil
	}
	ident := Identity{ID: resp.ID, Email: resp.Email, Metadata: resp.UserMetadata, CreatedAt: resp.CreatedAt}
	return &SignUpResult{Identity: ident}, nil
}

// SetSession installs a session from a token pair handed back on the
// redirect route. The identity record is fetched with the access token so
// the session carries a fresh user snapshot.
func (c *HTTPClient) SetSession(ctx context.Context, accessToken, refreshToken string) (*Session, error) {
	if accessToken == "" {
		return nil, NewError(KindSessionExchangeFailed, "missing access token")
	}
	ident, err := c.fetchUser(ctx, accessToken)
	if err != nil {
		// stale access token: fall back to the refresh grant before giving up
		if refreshToken != "" {
			if sess, rerr := c.tokenGrant(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken}); rerr == nil {
				c.setCurrent(sess)
				cp := *sess
				return &cp, nil
			}
		}
		return nil, &Error{Kind: KindSessionExchangeFailed, Message: "Failed to complete authentication. Please try again.", Raw: err.Error()}
	}
	sess := &Session{AccessToken: accessToken, RefreshToken: refreshToken, TokenType: "bearer", User: *ident}
	if claims, err := ParseAccessClaims(accessToken); err == nil {
		sess.ExpiresAt = claims.ExpiresAt
	}
	c.setCurrent(sess)
	cp := *sess
	return &cp, nil
}

// SignOut revokes the session at the provider and clears local state.
// Listeners observe a nil session.
func (c *HTTPClient) SignOut(ctx context.Context) error {
	c.mu.Lock()
	cur := c.current
	c.mu.Unlock()
	if cur != nil && c.configured() {
		if err := c.post(ctx, "/logout", cur.AccessToken, nil, nil); err != nil {
			// local teardown proceeds regardless; the grant will expire server-side
			logger.Warnf("identity: provider sign-out failed: %v", err)
		}
	}
	c.setCurrent(nil)
	return nil
}

type tokenResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int      `json:"expires_in"`
	User         Identity `json:"user"`
}

func (tr *tokenResponse) session() *Session {
	s := &Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
		User:         tr.User,
	}
	if tr.ExpiresIn > 0 {
		s.ExpiresAt = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return s
}

func (c *HTTPClient) tokenGrant(ctx context.Context, grant string, fields map[string]string) (*Session, error) {
	body := map[string]any{}
	for k, v := range fields {
		body[k] = v
	}
	var tr tokenResponse
	if err := c.post(ctx, "/token?grant_type="+grant, "", body, &tr); err != nil {
		return nil, err
	}
	if tr.AccessToken == "" {
		return nil, NewError(KindSessionExchangeFailed, "provider returned no access token")
	}
	return tr.session(), nil
}

func (c *HTTPClient) fetchUser(ctx context.Context, accessToken string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/user", nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, accessToken)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, readAPIError(resp)
	}
	var ident Identity
	if err := json.NewDecoder(resp.Body).Decode(&ident); err != nil {
		return nil, fmt.Errorf("decode identity: %w", err)
	}
	return &ident, nil
}

func (c *HTTPClient) post(ctx context.Context, path, bearer string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req, bearer)
	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: KindUnclassified, Message: "identity provider unreachable", Raw: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return readAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *HTTPClient) setHeaders(req *http.Request, bearer string) {
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if bearer == "" {
		bearer = c.apiKey
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
}

// apiError is the provider's error envelope; field names vary by endpoint.
type apiError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func readAPIError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var ae apiError
	_ = json.Unmarshal(b, &ae)
	raw := ae.ErrorDescription
	if raw == "" {
		raw = ae.Msg
	}
	if raw == "" {
		raw = ae.Message
	}
	if raw == "" {
		raw = ae.Error
	}
	if raw == "" {
		raw = fmt.Sprintf("provider returned %d: %s", resp.StatusCode, string(b))
	}
	return Classify(raw)
}
