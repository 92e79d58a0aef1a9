package profiles

import (
	"github.com/pulseops/pulseops/backend/auth-core/internal/identity"
)

// Seed carries the best-effort defaults a new profile is created with.
// It is built once from identity metadata; missing fields stay empty.
// Which fields apply depends on the role the seed is provisioned for.
type Seed struct {
	Email string

	// clinician fields
	FirstName   string
	LastName    string
	Phone       string
	DateOfBirth string

	// organization fields
	OrganizationName  string
	ContactPersonName string
	OrganizationType  string
}

// SeedFromIdentity pulls the registration metadata into a Seed. This is the
// single place the metadata bag is read; everything downstream works with
// the explicit structure.
func SeedFromIdentity(id *identity.Identity) Seed {
	return Seed{
		Email:             id.Email,
		FirstName:         id.MetaString("firstName"),
		LastName:          id.MetaString("lastName"),
		Phone:             id.MetaString("phone"),
		DateOfBirth:       id.MetaString("dateOfBirth"),
		OrganizationName:  id.MetaString("organizationName"),
		ContactPersonName: id.MetaString("contactPersonName"),
		OrganizationType:  id.MetaString("organizationType"),
	}
}
