package mongostore

import (
	"context"
	"time"

	"github.com/jrsteele09/field-portal/sessions"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the collection holding session records.
const CollectionName = "sessions"

var _ sessions.Repo = (*MongoSessionRepo)(nil)

// MongoSessionRepo stores session records in MongoDB. Uniqueness of the access
// token is enforced by a unique index and garbage collection by a TTL index on
// expiresAt.
type MongoSessionRepo struct {
	collection *mongo.Collection
	nowFunc    func() time.Time
}

type Option func(*MongoSessionRepo)

func WithNowFunc(now func() time.Time) Option {
	return func(r *MongoSessionRepo) {
		r.nowFunc = now
	}
}

// New returns a repo on db and makes sure its indexes exist.
func New(ctx context.Context, db *mongo.Database, options ...Option) (*MongoSessionRepo, error) {
	r := &MongoSessionRepo{
		collection: db.Collection(CollectionName),
		nowFunc:    time.Now,
	}
	for _, opt := range options {
		opt(r)
	}

	if err := r.ensureIndexes(ctx); err != nil {
		return nil, errors.Wrap(err, "[mongostore New] failed to create indexes")
	}
	return r, nil
}

func (r *MongoSessionRepo) ensureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "accessToken", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("accessToken_unique"),
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("expiresAt_ttl"),
		},
		{
			Keys:    bson.D{{Key: "vendorId", Value: 1}, {Key: "plantId", Value: 1}},
			Options: options.Index().SetName("vendorId_plantId"),
		},
	})
	return err
}

func (r *MongoSessionRepo) Create(ctx context.Context, vendorID, plantID, accessToken string) (*sessions.Record, error) {
	record := sessions.NewRecord(vendorID, plantID, accessToken, r.now())
	if _, err := r.collection.InsertOne(ctx, record); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, sessions.ErrDuplicateToken
		}
		return nil, errors.Wrap(err, "[Create] insert session")
	}
	return record, nil
}

func (r *MongoSessionRepo) FindValid(ctx context.Context, accessToken string) (*sessions.Record, error) {
	return r.findOne(ctx, bson.M{
		"accessToken":  accessToken,
		"expiresAt":    bson.M{"$gt": r.now()},
		"supersededAt": nil,
	})
}

func (r *MongoSessionRepo) Get(ctx context.Context, accessToken string) (*sessions.Record, error) {
	return r.findOne(ctx, bson.M{"accessToken": accessToken})
}

func (r *MongoSessionRepo) findOne(ctx context.Context, filter bson.M) (*sessions.Record, error) {
	var record sessions.Record
	if err := r.collection.FindOne(ctx, filter).Decode(&record); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, sessions.ErrSessionNotFound
		}
		return nil, errors.Wrap(err, "[findOne] find session")
	}
	return &record, nil
}

func (r *MongoSessionRepo) SupersedeOthers(ctx context.Context, vendorID, plantID, keepToken string) (int, error) {
	now := r.now()
	result, err := r.collection.UpdateMany(ctx,
		bson.M{
			"vendorId":     vendorID,
			"plantId":      plantID,
			"accessToken":  bson.M{"$ne": keepToken},
			"expiresAt":    bson.M{"$gt": now},
			"supersededAt": nil,
		},
		bson.M{"$set": bson.M{"supersededAt": now}},
	)
	if err != nil {
		return 0, errors.Wrap(err, "[SupersedeOthers] update sessions")
	}
	return int(result.ModifiedCount), nil
}

// DeleteExpired is a no-op, the TTL index removes expired records.
func (r *MongoSessionRepo) DeleteExpired(context.Context) error {
	return nil
}

// Close is a no-op, the client is owned by the caller.
func (r *MongoSessionRepo) Close(context.Context) error {
	return nil
}

// now is truncated to the millisecond precision MongoDB stores.
func (r *MongoSessionRepo) now() time.Time {
	return r.nowFunc().UTC().Truncate(time.Millisecond)
}
