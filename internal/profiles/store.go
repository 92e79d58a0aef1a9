package profiles

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicate is returned by Insert* when a row for the same identity
// already exists. Callers treat it as "already provisioned", not a failure.
var ErrDuplicate = errors.New("profiles: row already exists for identity")

// Store is the persistence surface the provisioner depends on. One row per
// (identity, role); duplicate inserts must surface ErrDuplicate so the
// store-level uniqueness constraint is the sole duplicate suppressor.
type Store interface {
	HasClinician(ctx context.Context, userID string) (bool, error)
	HasOrganization(ctx context.Context, userID string) (bool, error)
	InsertClinician(ctx context.Context, p *ClinicianProfile) error
	InsertOrganization(ctx context.Context, p *OrganizationProfile) error
	InsertAvailability(ctx context.Context, a *Availability) error
}

// MongoStore implements Store over three collections, each with a unique
// index on userId (see EnsureIndexes).
type MongoStore struct {
	clinicians    *mongo.Collection
	organizations *mongo.Collection
	availability  *mongo.Collection
}

// NewMongoStore wires the store to its collections in the given database.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		clinicians:    db.Collection("clinician_profiles"),
		organizations: db.Collection("organization_profiles"),
		availability:  db.Collection("clinician_availability"),
	}
}

// EnsureIndexes creates the unique userId indexes the provisioning contract
// relies on. Idempotent; call at startup.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	model := mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	for _, col := range []*mongo.Collection{s.clinicians, s.organizations, s.availability} {
		if _, err := col.Indexes().CreateOne(ctx, model); err != nil {
			return err
		}
	}
	return nil
}

func (s *MongoStore) has(ctx context.Context, col *mongo.Collection, userID string) (bool, error) {
	err := col.FindOne(ctx, bson.M{"userId": userID}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *MongoStore) HasClinician(ctx context.Context, userID string) (bool, error) {
	return s.has(ctx, s.clinicians, userID)
}

func (s *MongoStore) HasOrganization(ctx context.Context, userID string) (bool, error) {
	return s.has(ctx, s.organizations, userID)
}

func (s *MongoStore) InsertClinician(ctx context.Context, p *ClinicianProfile) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err := s.clinicians.InsertOne(ctx, p)
	return mapDuplicate(err)
}

func (s *MongoStore) InsertOrganization(ctx context.Context, p *OrganizationProfile) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err := s.organizations.InsertOne(ctx, p)
	return mapDuplicate(err)
}

func (s *MongoStore) InsertAvailability(ctx context.Context, a *Availability) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.availability.InsertOne(ctx, a)
	return mapDuplicate(err)
}

// mapDuplicate converts the driver's duplicate-key error into ErrDuplicate.
// A constraint violation on insert means "already exists", not a failure.
func mapDuplicate(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}
