package documents

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Document is the metadata row for one uploaded credentialing document. The
// file content itself lives in object storage under ObjectKey.
type Document struct {
	ID             string     `bson:"_id,omitempty" json:"id"`
	UserID         string     `bson:"userId" json:"userId"`
	DocumentType   string     `bson:"documentType" json:"documentType"`
	FileName       string     `bson:"fileName" json:"fileName"`
	ObjectKey      string     `bson:"objectKey" json:"objectKey"`
	ContentType    string     `bson:"contentType" json:"contentType"`
	Approved       bool       `bson:"approved" json:"approved"`
	ExpirationDate *time.Time `bson:"expirationDate,omitempty" json:"expirationDate,omitempty"`
	UploadedAt     time.Time  `bson:"uploadedAt" json:"uploadedAt"`
}

// Repository provides persistence for document metadata.
type Repository interface {
	Insert(ctx context.Context, d *Document) error
	ListByUser(ctx context.Context, userID string) ([]Document, error)
}

// MongoRepository implements Repository using a Mongo collection.
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Insert(ctx context.Context, d *Document) error {
	if d.UploadedAt.IsZero() {
		d.UploadedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, d)
	return err
}

func (r *MongoRepository) ListByUser(ctx context.Context, userID string) ([]Document, error) {
	cur, err := r.col.Find(ctx, bson.M{"userId": userID}, options.Find().SetSort(bson.M{"uploadedAt": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []Document
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
