package profiles

import "time"

// Address is the shared postal address block.
type Address struct {
	Street  string `bson:"street" json:"street"`
	City    string `bson:"city" json:"city"`
	State   string `bson:"state" json:"state"`
	ZipCode string `bson:"zipCode" json:"zipCode"`
}

// License is a state nursing license entry.
type License struct {
	State          string    `bson:"state" json:"state"`
	LicenseNumber  string    `bson:"licenseNumber" json:"licenseNumber"`
	LicenseType    string    `bson:"licenseType" json:"licenseType"` // RN | LPN | NP | CNS | CRNA | CNM
	ExpirationDate time.Time `bson:"expirationDate" json:"expirationDate"`
	IsActive       bool      `bson:"isActive" json:"isActive"`
}

// Education is a degree entry.
type Education struct {
	Degree         string `bson:"degree" json:"degree"`
	School         string `bson:"school" json:"school"`
	Field          string `bson:"field" json:"field"`
	GraduationDate string `bson:"graduationDate" json:"graduationDate"`
}

// WorkEntry is a single employment history record.
type WorkEntry struct {
	Employer  string `bson:"employer" json:"employer"`
	Position  string `bson:"position" json:"position"`
	StartDate string `bson:"startDate" json:"startDate"`
	EndDate   string `bson:"endDate,omitempty" json:"endDate,omitempty"`
	IsCurrent bool   `bson:"isCurrent" json:"isCurrent"`
}

// CredentialingStatusPending is the status every freshly provisioned
// clinician profile starts in.
const CredentialingStatusPending = "pending"

// ClinicianProfile is the domain record for an independent clinician.
// One row per identity; owned by the profile-editing UI after creation.
type ClinicianProfile struct {
	ID                       string      `bson:"_id,omitempty" json:"id"`
	UserID                   string      `bson:"userId" json:"userId"`
	FirstName                string      `bson:"firstName" json:"firstName"`
	LastName                 string      `bson:"lastName" json:"lastName"`
	Email                    string      `bson:"email" json:"email"`
	Phone                    string      `bson:"phone" json:"phone"`
	DateOfBirth              string      `bson:"dateOfBirth,omitempty" json:"dateOfBirth,omitempty"`
	Bio                      string      `bson:"bio" json:"bio"`
	Specialties              []string    `bson:"specialties" json:"specialties"`
	AdditionalCertifications string      `bson:"additionalCertifications" json:"additionalCertifications"`
	Licenses                 []License   `bson:"licenses" json:"licenses"`
	Education                []Education `bson:"education" json:"education"`
	WorkHistory              []WorkEntry `bson:"workHistory" json:"workHistory"`
	Address                  Address     `bson:"address" json:"address"`
	TravelRadius             int         `bson:"travelRadius" json:"travelRadius"`
	WorkPreference           string      `bson:"workPreference" json:"workPreference"` // remote | in-person | both
	CredentialingStatus      string      `bson:"credentialingStatus" json:"credentialingStatus"`
	YearsExperience          int         `bson:"yearsExperience" json:"yearsExperience"`
	Rating                   float64     `bson:"rating" json:"rating"`
	TotalJobs                int         `bson:"totalJobs" json:"totalJobs"`
	CreatedAt                time.Time   `bson:"createdAt" json:"createdAt"`
	UpdatedAt                time.Time   `bson:"updatedAt" json:"updatedAt"`
}

// OrganizationProfile is the domain record for a requesting organization.
type OrganizationProfile struct {
	ID                    string    `bson:"_id,omitempty" json:"id"`
	UserID                string    `bson:"userId" json:"userId"`
	OrganizationName      string    `bson:"organizationName" json:"organizationName"`
	ContactPersonName     string    `bson:"contactPersonName" json:"contactPersonName"`
	Email                 string    `bson:"email" json:"email"`
	Phone                 string    `bson:"phone" json:"phone"`
	OrganizationType      string    `bson:"organizationType" json:"organizationType"`
	Address               Address   `bson:"address" json:"address"`
	BillingAddress        Address   `bson:"billingAddress" json:"billingAddress"`
	IsVerified            bool      `bson:"isVerified" json:"isVerified"`
	VerificationDocuments []string  `bson:"verificationDocuments" json:"verificationDocuments"`
	CreatedAt             time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt             time.Time `bson:"updatedAt" json:"updatedAt"`
}

// TimeSlot is a start/end pair within one weekday ("09:00"–"17:00").
type TimeSlot struct {
	Start string `bson:"start" json:"start"`
	End   string `bson:"end" json:"end"`
}

// Availability is the companion weekly schedule created alongside a
// clinician profile. Starts with one empty slot set per weekday.
type Availability struct {
	ID        string     `bson:"_id,omitempty" json:"id"`
	UserID    string     `bson:"userId" json:"userId"`
	Monday    []TimeSlot `bson:"monday" json:"monday"`
	Tuesday   []TimeSlot `bson:"tuesday" json:"tuesday"`
	Wednesday []TimeSlot `bson:"wednesday" json:"wednesday"`
	Thursday  []TimeSlot `bson:"thursday" json:"thursday"`
	Friday    []TimeSlot `bson:"friday" json:"friday"`
	Saturday  []TimeSlot `bson:"saturday" json:"saturday"`
	Sunday    []TimeSlot `bson:"sunday" json:"sunday"`
	CreatedAt time.Time  `bson:"createdAt" json:"createdAt"`
}
