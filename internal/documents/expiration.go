package documents

import (
	"context"
	"sort"
	"time"
)

// AlertTier classifies how close a document is to its expiration date.
type AlertTier string

const (
	TierNone    AlertTier = ""
	Tier60Day   AlertTier = "60_day"
	Tier30Day   AlertTier = "30_day"
	Tier7Day    AlertTier = "7_day"
	TierExpired AlertTier = "expired"
)

// requiredTypes are the credentialing documents a clinician must keep
// current to apply for jobs.
var requiredTypes = []string{
	"nursing_license",
	"cpr_certification",
	"background_check",
	"immunization_record",
}

// TierFor returns the alert tier for an expiration date relative to now.
// Documents with no expiration never alert.
func TierFor(expiration *time.Time, now time.Time) AlertTier {
	if expiration == nil {
		return TierNone
	}
	until := expiration.Sub(now)
	switch {
	case until <= 0:
		return TierExpired
	case until <= 7*24*time.Hour:
		return Tier7Day
	case until <= 30*24*time.Hour:
		return Tier30Day
	case until <= 60*24*time.Hour:
		return Tier60Day
	}
	return TierNone
}

// ExpirationAlert is one document's active warning.
type ExpirationAlert struct {
	DocumentID     string    `json:"documentId"`
	DocumentType   string    `json:"documentType"`
	FileName       string    `json:"fileName"`
	ExpirationDate time.Time `json:"expirationDate"`
	Tier           AlertTier `json:"alertType"`
}

// Status is the aggregate document health for one clinician.
type Status struct {
	ExpiredCount         int  `json:"expiredCount"`
	ExpiringSoonCount    int  `json:"expiringSoonCount"`
	MissingRequiredCount int  `json:"missingRequiredCount"`
	CanApplyForJobs      bool `json:"canApplyForJobs"`
	NeedsAttention       bool `json:"needsAttention"`
	HasWarnings          bool `json:"hasWarnings"`
}

// Evaluate computes alerts and the aggregate status for a document set.
// Pure; time is injected so tests pin it down.
func Evaluate(docs []Document, now time.Time) ([]ExpirationAlert, Status) {
	var alerts []ExpirationAlert
	st := Status{}

	present := map[string]bool{}
	for _, d := range docs {
		present[d.DocumentType] = true
		tier := TierFor(d.ExpirationDate, now)
		if tier == TierNone {
			continue
		}
		alerts = append(alerts, ExpirationAlert{
			DocumentID:     d.ID,
			DocumentType:   d.DocumentType,
			FileName:       d.FileName,
			ExpirationDate: *d.ExpirationDate,
			Tier:           tier,
		})
		if tier == TierExpired {
			st.ExpiredCount++
		} else {
			st.ExpiringSoonCount++
		}
	}
	for _, typ := range requiredTypes {
		if !present[typ] {
			st.MissingRequiredCount++
		}
	}

	st.CanApplyForJobs = st.ExpiredCount == 0 && st.MissingRequiredCount == 0
	st.NeedsAttention = st.ExpiredCount > 0 || st.MissingRequiredCount > 0
	st.HasWarnings = st.ExpiringSoonCount > 0

	// most urgent first
	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].ExpirationDate.Before(alerts[j].ExpirationDate)
	})
	return alerts, st
}

// Service exposes the expiration collaborator surface. It only ever needs a
// user id; no other coupling to the auth core.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Alerts returns the active expiration alerts for a clinician.
func (s *Service) Alerts(ctx context.Context, userID string) ([]ExpirationAlert, error) {
	docs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	alerts, _ := Evaluate(docs, time.Now().UTC())
	return alerts, nil
}

// Status returns the aggregate document health for a clinician.
func (s *Service) Status(ctx context.Context, userID string) (Status, error) {
	docs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	_, st := Evaluate(docs, time.Now().UTC())
	return st, nil
}
