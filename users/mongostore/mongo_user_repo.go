package mongostore

import (
	"context"
	"time"

	"github.com/jrsteele09/field-portal/users"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "users"

var _ users.UserRepo = (*MongoUserRepo)(nil)

type MongoUserRepo struct {
	collection *mongo.Collection
}

// New returns a repo on db with a unique index on email.
func New(ctx context.Context, db *mongo.Database) (*MongoUserRepo, error) {
	r := &MongoUserRepo{collection: db.Collection(CollectionName)}
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return nil, errors.Wrap(err, "[users mongostore New] failed to create indexes")
	}
	return r, nil
}

func (r *MongoUserRepo) Insert(ctx context.Context, user *users.User) error {
	if _, err := r.collection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return users.ErrDuplicateEmail
		}
		return errors.Wrap(err, "[Insert] insert user")
	}
	return nil
}

func (r *MongoUserRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUserRepo) findOne(ctx context.Context, filter bson.M) (*users.User, error) {
	var user users.User
	if err := r.collection.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, users.ErrUserNotFound
		}
		return nil, errors.Wrap(err, "[findOne] find user")
	}
	return &user, nil
}

func (r *MongoUserRepo) List(ctx context.Context, offset, limit int) ([]*users.User, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "[List] find users")
	}
	defer cursor.Close(ctx)

	list := make([]*users.User, 0)
	if err := cursor.All(ctx, &list); err != nil {
		return nil, errors.Wrap(err, "[List] decode users")
	}
	return list, nil
}

func (r *MongoUserRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return r.set(ctx, id, bson.M{"passwordHash": hash})
}

func (r *MongoUserRepo) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.set(ctx, id, bson.M{"lastLogin": at})
}

func (r *MongoUserRepo) set(ctx context.Context, id string, fields bson.M) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return errors.Wrap(err, "[set] update user")
	}
	if result.MatchedCount == 0 {
		return users.ErrUserNotFound
	}
	return nil
}

func (r *MongoUserRepo) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "[Delete] delete user")
	}
	if result.DeletedCount == 0 {
		return users.ErrUserNotFound
	}
	return nil
}
