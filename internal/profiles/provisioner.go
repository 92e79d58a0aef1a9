package profiles

import (
	"context"
	"errors"
	"fmt"

	"github.com/pulseops/pulseops/backend/auth-core/internal/identity"
	"github.com/pulseops/pulseops/backend/auth-core/pkg/logger"
	"github.com/pulseops/pulseops/backend/auth-core/pkg/metrics"
)

// Provisioner guarantees at most one profile row per (identity, role). It
// never overwrites and never deletes; the profile-editing UI owns the row
// after creation. Duplicate suppression is delegated entirely to the store's
// uniqueness constraint, so concurrent callers racing on the same identity
// converge on a single row.
type Provisioner struct {
	store Store
}

func NewProvisioner(store Store) *Provisioner {
	return &Provisioner{store: store}
}

// EnsureProfile creates a default profile for the identity if none exists.
// Returns created=true only when this call inserted the row. Admin
// identities carry no profile and are a no-op.
func (p *Provisioner) EnsureProfile(ctx context.Context, identityID string, role identity.Role, seed Seed) (bool, error) {
	if identityID == "" {
		return false, fmt.Errorf("provision: identity id is required")
	}
	switch role {
	case identity.RoleAdmin:
		return false, nil
	case identity.RoleClinician:
		return p.ensureClinician(ctx, identityID, seed)
	case identity.RoleOrganization:
		return p.ensureOrganization(ctx, identityID, seed)
	}
	return false, fmt.Errorf("provision: unknown role %q", role)
}

func (p *Provisioner) ensureClinician(ctx context.Context, userID string, seed Seed) (bool, error) {
	exists, err := p.store.HasClinician(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("clinician profile lookup: %w", err)
	}
	if exists {
		return false, nil
	}

	prof := &ClinicianProfile{
		UserID:              userID,
		FirstName:           seed.FirstName,
		LastName:            seed.LastName,
		Email:               seed.Email,
		Phone:               seed.Phone,
		DateOfBirth:         seed.DateOfBirth,
		Specialties:         []string{},
		Licenses:            []License{},
		Education:           []Education{},
		WorkHistory:         []WorkEntry{},
		TravelRadius:        25,
		WorkPreference:      "both",
		CredentialingStatus: CredentialingStatusPending,
	}
	if err := p.store.InsertClinician(ctx, prof); err != nil {
		if errors.Is(err, ErrDuplicate) {
			// lost the race to a concurrent reconcile; the row exists, which
			// is all the caller needs
			logger.Debugf("provision: clinician profile for %s already created elsewhere", userID)
			return false, nil
		}
		return false, fmt.Errorf("clinician profile insert: %w", err)
	}
	metrics.ProfilesProvisioned.WithLabelValues(string(identity.RoleClinician)).Inc()
	logger.Infof("provision: created clinician profile for %s", userID)

	// companion schedule is best-effort; its failure must not fail the
	// primary profile creation
	avail := &Availability{
		UserID:    userID,
		Monday:    []TimeSlot{},
		Tuesday:   []TimeSlot{},
		Wednesday: []TimeSlot{},
		Thursday:  []TimeSlot{},
		Friday:    []TimeSlot{},
		Saturday:  []TimeSlot{},
		Sunday:    []TimeSlot{},
	}
	if err := p.store.InsertAvailability(ctx, avail); err != nil && !errors.Is(err, ErrDuplicate) {
		logger.Warnf("provision: availability insert failed for %s: %v", userID, err)
	}
	return true, nil
}

func (p *Provisioner) ensureOrganization(ctx context.Context, userID string, seed Seed) (bool, error) {
	exists, err := p.store.HasOrganization(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("organization profile lookup: %w", err)
	}
	if exists {
		return false, nil
	}

	prof := &OrganizationProfile{
		UserID:                userID,
		OrganizationName:      seed.OrganizationName,
		ContactPersonName:     seed.ContactPersonName,
		Email:                 seed.Email,
		Phone:                 seed.Phone,
		OrganizationType:      seed.OrganizationType,
		IsVerified:            false,
		VerificationDocuments: []string{},
	}
	if err := p.store.InsertOrganization(ctx, prof); err != nil {
		if errors.Is(err, ErrDuplicate) {
			logger.Debugf("provision: organization profile for %s already created elsewhere", userID)
			return false, nil
		}
		return false, fmt.Errorf("organization profile insert: %w", err)
	}
	metrics.ProfilesProvisioned.WithLabelValues(string(identity.RoleOrganization)).Inc()
	logger.Infof("provision: created organization profile for %s", userID)
	return true, nil
}
