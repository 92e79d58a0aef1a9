package reconcile

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pulseops/pulseops/backend/auth-core/internal/identity"
	"github.com/pulseops/pulseops/backend/auth-core/internal/profiles"
)

// fakeClient is an in-memory identity.Client for driving the reconciler.
type fakeClient struct {
	session  *identity.Session
	getErr   error
	signOuts int
	listener func(*identity.Session)
}

func (f *fakeClient) GetSession(context.Context) (*identity.Session, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.session, nil
}

func (f *fakeClient) OnSessionChange(fn func(*identity.Session)) func() {
	f.listener = fn
	return func() { f.listener = nil }
}

func (f *fakeClient) SignInWithPassword(context.Context, string, string) (*identity.Session, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeClient) SignInWithOAuth(context.Context, string, string, url.Values) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeClient) SignUp(context.Context, string, string, map[string]any) (*identity.SignUpResult, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeClient) SetSession(context.Context, string, string) (*identity.Session, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeClient) SignOut(context.Context) error {
	f.signOuts++
	f.session = nil
	if f.listener != nil {
		f.listener(nil)
	}
	return nil
}

// countingStore tracks inserts so idempotence is observable.
type countingStore struct {
	clinicians map[string]bool
	inserts    int
	insertErr  error
}

func newCountingStore() *countingStore {
	return &countingStore{clinicians: map[string]bool{}}
}

func (s *countingStore) HasClinician(_ context.Context, id string) (bool, error) {
	return s.clinicians[id], nil
}
func (s *countingStore) HasOrganization(context.Context, string) (bool, error) { return false, nil }
func (s *countingStore) InsertClinician(_ context.Context, p *profiles.ClinicianProfile) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	if s.clinicians[p.UserID] {
		return profiles.ErrDuplicate
	}
	s.clinicians[p.UserID] = true
	s.inserts++
	return nil
}
func (s *countingStore) InsertOrganization(context.Context, *profiles.OrganizationProfile) error {
	return nil
}
func (s *countingStore) InsertAvailability(context.Context, *profiles.Availability) error {
	return nil
}

func clinicianSession(id, email string) *identity.Session {
	return &identity.Session{
		AccessToken: "at",
		User: identity.Identity{
			ID:        id,
			Email:     email,
			Metadata:  map[string]any{"userType": "clinician", "firstName": "Ada"},
			CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestReconcileIdempotent(t *testing.T) {
	store := newCountingStore()
	client := &fakeClient{}
	r := New(client, profiles.NewProvisioner(store))
	defer r.Close()

	ident := &clinicianSession("user-1", "ada@example.com").User
	r.Reconcile(context.Background(), ident)
	first := r.CurrentUser()
	if first == nil {
		t.Fatal("expected current user after reconcile")
	}
	assert.Equal(t, identity.RoleClinician, first.Role)
	assert.Equal(t, profiles.CredentialingStatusPending, first.CredentialingStatus)
	assert.True(t, first.IsApproved)

	r.Reconcile(context.Background(), ident)
	second := r.CurrentUser()

	assert.Equal(t, 1, store.inserts)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Email, second.Email)
	assert.Equal(t, first.Role, second.Role)
	assert.Equal(t, first.CredentialingStatus, second.CredentialingStatus)
}

func TestReconcileProvisioningFailureStillSetsUser(t *testing.T) {
	store := newCountingStore()
	store.insertErr = errors.New("store offline")
	client := &fakeClient{}
	r := New(client, profiles.NewProvisioner(store))
	defer r.Close()

	r.Reconcile(context.Background(), &clinicianSession("user-1", "ada@example.com").User)

	u := r.CurrentUser()
	if u == nil {
		t.Fatal("provisioning failure must not block the session")
	}
	assert.Equal(t, "user-1", u.ID)
	// credentialing status is only attached when provisioning went through
	assert.Empty(t, u.CredentialingStatus)
}

func TestReconcileDefaultsMissingRole(t *testing.T) {
	store := newCountingStore()
	r := New(&fakeClient{}, profiles.NewProvisioner(store))
	defer r.Close()

	r.Reconcile(context.Background(), &identity.Identity{ID: "user-2", Email: "x@y.z"})

	u := r.CurrentUser()
	assert.Equal(t, identity.RoleClinician, u.Role)
	assert.False(t, u.CreatedAt.IsZero())
}

func TestOnInitialLoad(t *testing.T) {
	store := newCountingStore()
	client := &fakeClient{session: clinicianSession("user-1", "ada@example.com")}
	r := New(client, profiles.NewProvisioner(store))
	defer r.Close()

	if !r.IsLoading() {
		t.Fatal("reconciler must start loading")
	}
	r.OnInitialLoad(context.Background())
	if r.IsLoading() {
		t.Fatal("loading must clear after initial load")
	}
	u := r.CurrentUser()
	if u == nil || u.ID != "user-1" {
		t.Fatalf("restored user = %+v", u)
	}
}

func TestOnInitialLoadNoSession(t *testing.T) {
	r := New(&fakeClient{}, profiles.NewProvisioner(newCountingStore()))
	defer r.Close()

	r.OnInitialLoad(context.Background())
	assert.False(t, r.IsLoading())
	assert.Nil(t, r.CurrentUser())
}

func TestOnInitialLoadErrorClearsLoading(t *testing.T) {
	client := &fakeClient{getErr: errors.New("provider down")}
	r := New(client, profiles.NewProvisioner(newCountingStore()))
	defer r.Close()

	r.OnInitialLoad(context.Background())
	assert.False(t, r.IsLoading())
	assert.Nil(t, r.CurrentUser())
}

func TestNilSessionEventClearsUser(t *testing.T) {
	client := &fakeClient{}
	r := New(client, profiles.NewProvisioner(newCountingStore()))
	defer r.Close()

	r.Reconcile(context.Background(), &clinicianSession("user-1", "ada@example.com").User)
	if r.CurrentUser() == nil {
		t.Fatal("precondition: user set")
	}

	r.OnSessionEvent(context.Background(), nil)
	assert.Nil(t, r.CurrentUser())
}

func TestSessionChangeSubscription(t *testing.T) {
	client := &fakeClient{}
	r := New(client, profiles.NewProvisioner(newCountingStore()))
	defer r.Close()

	// the subscription installed by New feeds provider events through
	client.listener(clinicianSession("user-1", "ada@example.com"))
	u := r.CurrentUser()
	if u == nil || u.ID != "user-1" {
		t.Fatalf("user after sign-in event = %+v", u)
	}

	client.listener(nil)
	assert.Nil(t, r.CurrentUser())
}

func TestLogoutDemoSkipsProvider(t *testing.T) {
	client := &fakeClient{}
	r := New(client, profiles.NewProvisioner(newCountingStore()))
	defer r.Close()

	r.SetDemoUser(&User{ID: "demo-clinician-1", Email: "demo@nurse.com", Role: identity.RoleClinician})
	if err := r.Logout(context.Background()); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	assert.Nil(t, r.CurrentUser())
	assert.Equal(t, 0, client.signOuts)
}

func TestLogoutRealSessionSignsOut(t *testing.T) {
	client := &fakeClient{}
	r := New(client, profiles.NewProvisioner(newCountingStore()))
	defer r.Close()

	r.Reconcile(context.Background(), &clinicianSession("user-1", "ada@example.com").User)
	if err := r.Logout(context.Background()); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	assert.Nil(t, r.CurrentUser())
	assert.Equal(t, 1, client.signOuts)
}

func TestIsDemo(t *testing.T) {
	assert.True(t, (&User{ID: "demo-clinician-123"}).IsDemo())
	assert.False(t, (&User{ID: "b2f6f0aa"}).IsDemo())
}
