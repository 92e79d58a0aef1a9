package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fake provider implementing the GoTrue-style endpoints the client consumes
func newProviderServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	user := map[string]any{
		"id":    "user-1",
		"email": "a@b.c",
		"user_metadata": map[string]any{
			"userType": "clinician",
		},
	}

	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch r.URL.Query().Get("grant_type") {
		case "password":
			if body["password"] != "good" {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]string{"error_description": "Invalid login credentials"})
				return
			}
		case "refresh_token":
			if body["refresh_token"] == "" {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]string{"error_description": "refresh_token required"})
				return
			}
		default:
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at-1",
			"refresh_token": "rt-1",
			"token_type":    "bearer",
			"expires_in":    3600,
			"user":          user,
		})
	})

	mux.HandleFunc("/signup", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		email, _ := body["email"].(string)
		if email == "taken@b.c" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(map[string]string{"msg": "User already registered"})
			return
		}
		if strings.HasPrefix(email, "confirm") {
			// email confirmation pending: bare identity, no tokens
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":            "user-new",
				"email":         email,
				"user_metadata": body["data"],
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at-2",
			"refresh_token": "rt-2",
			"token_type":    "bearer",
			"expires_in":    3600,
			"user":          map[string]any{"id": "user-new", "email": email, "user_metadata": body["data"]},
		})
	})

	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer at-") {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"msg": "invalid token"})
			return
		}
		_ = json.NewEncoder(w).Encode(user)
	})

	mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return httptest.NewServer(mux)
}

func TestSignInWithPassword(t *testing.T) {
	srv := newProviderServer(t)
	defer srv.Close()
	c := NewHTTPClient(srv.URL, "anon", 5*time.Second)

	var events []*Session
	c.OnSessionChange(func(s *Session) { events = append(events, s) })

	sess, err := c.SignInWithPassword(context.Background(), "a@b.c", "good")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Equal(t, "user-1", sess.User.ID)
	assert.Equal(t, "at-1", sess.AccessToken)
	assert.False(t, sess.Expired())
	if len(events) != 1 || events[0] == nil {
		t.Fatalf("expected one sign-in notification, got %d", len(events))
	}

	got, err := c.GetSession(context.Background())
	if err != nil {
		t.Fatalf("GetSession error: %v", err)
	}
	if got == nil || got.User.ID != "user-1" {
		t.Fatalf("GetSession = %+v", got)
	}
}

func TestSignInWithPasswordClassifiesError(t *testing.T) {
	srv := newProviderServer(t)
	defer srv.Close()
	c := NewHTTPClient(srv.URL, "anon", 5*time.Second)

	_, err := c.SignInWithPassword(context.Background(), "a@b.c", "bad")
	if err == nil {
		t.Fatal("expected error")
	}
	assert.Equal(t, KindInvalidCredentials, KindOf(err))

	// failed sign-in leaves no session behind
	sess, _ := c.GetSession(context.Background())
	assert.Nil(t, sess)
}

func TestSignUpNeedsEmailConfirmation(t *testing.T) {
	srv := newProviderServer(t)
	defer srv.Close()
	c := NewHTTPClient(srv.URL, "anon", 5*time.Second)

	res, err := c.SignUp(context.Background(), "confirm-me@b.c", "pw", map[string]any{"userType": "clinician"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.NeedsEmailConfirmation() {
		t.Fatal("expected email confirmation to be pending")
	}
	assert.Equal(t, "user-new", res.Identity.ID)

	res2, err := c.SignUp(context.Background(), "auto@b.c", "pw", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res2.NeedsEmailConfirmation() {
		t.Fatal("session was issued; confirmation should not be pending")
	}

	_, err = c.SignUp(context.Background(), "taken@b.c", "pw", nil)
	assert.Equal(t, KindAccountAlreadyExists, KindOf(err))
}

func TestSetSessionFetchesIdentity(t *testing.T) {
	srv := newProviderServer(t)
	defer srv.Close()
	c := NewHTTPClient(srv.URL, "anon", 5*time.Second)

	sess, err := c.SetSession(context.Background(), "at-fresh", "rt-fresh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Equal(t, "user-1", sess.User.ID)
	assert.Equal(t, "rt-fresh", sess.RefreshToken)
}

func TestSetSessionFailureClassified(t *testing.T) {
	srv := newProviderServer(t)
	defer srv.Close()
	c := NewHTTPClient(srv.URL, "anon", 5*time.Second)

	_, err := c.SetSession(context.Background(), "stale-token", "")
	if err == nil {
		t.Fatal("expected exchange failure")
	}
	assert.Equal(t, KindSessionExchangeFailed, KindOf(err))
}

func TestSignOutNotifiesNil(t *testing.T) {
	srv := newProviderServer(t)
	defer srv.Close()
	c := NewHTTPClient(srv.URL, "anon", 5*time.Second)

	var events []*Session
	unsubscribe := c.OnSessionChange(func(s *Session) { events = append(events, s) })

	if _, err := c.SignInWithPassword(context.Background(), "a@b.c", "good"); err != nil {
		t.Fatalf("sign-in failed: %v", err)
	}
	if err := c.SignOut(context.Background()); err != nil {
		t.Fatalf("sign-out failed: %v", err)
	}
	if len(events) != 2 || events[1] != nil {
		t.Fatalf("expected sign-in then nil notification, got %d events", len(events))
	}
	sess, _ := c.GetSession(context.Background())
	assert.Nil(t, sess)

	// unsubscribed listeners stop receiving
	unsubscribe()
	_, _ = c.SignInWithPassword(context.Background(), "a@b.c", "good")
	assert.Len(t, events, 2)
}

func TestSignInWithOAuthBuildsURL(t *testing.T) {
	c := NewHTTPClient("https://id.example.co/auth/v1", "anon", 5*time.Second)

	params := url.Values{}
	params.Set("userType", "organization")
	params.Set("mode", "register")
	raw, err := c.SignInWithOAuth(context.Background(), "google", "https://app.example.co/auth/callback", params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("bad url: %v", err)
	}
	assert.Equal(t, "/auth/v1/authorize", u.Path)
	q := u.Query()
	assert.Equal(t, "google", q.Get("provider"))
	assert.Equal(t, "https://app.example.co/auth/callback", q.Get("redirect_to"))
	assert.Equal(t, "organization", q.Get("userType"))
	assert.Equal(t, "register", q.Get("mode"))
}

func TestUnconfiguredClientRefusesActions(t *testing.T) {
	c := NewHTTPClient("", "", 0)
	_, err := c.SignInWithPassword(context.Background(), "a@b.c", "x")
	assert.Equal(t, KindOAuthNotConfigured, KindOf(err))
	_, err = c.SignInWithOAuth(context.Background(), "google", "", nil)
	assert.Equal(t, KindOAuthNotConfigured, KindOf(err))
}
