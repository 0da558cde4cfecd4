package mongostore

import (
	"context"

	"github.com/jrsteele09/field-portal/feedback"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "feedback"

var _ feedback.Repo = (*MongoFeedbackRepo)(nil)

type MongoFeedbackRepo struct {
	collection *mongo.Collection
}

// New returns a repo on db with the jobId and vendorId lookups indexed.
func New(ctx context.Context, db *mongo.Database) (*MongoFeedbackRepo, error) {
	r := &MongoFeedbackRepo{collection: db.Collection(CollectionName)}
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "jobId", Value: 1}}, Options: options.Index().SetName("jobId")},
		{Keys: bson.D{{Key: "vendorId", Value: 1}}, Options: options.Index().SetName("vendorId")},
	})
	if err != nil {
		return nil, errors.Wrap(err, "[feedback mongostore New] failed to create indexes")
	}
	return r, nil
}

func (r *MongoFeedbackRepo) Insert(ctx context.Context, fb *feedback.Feedback) error {
	if _, err := r.collection.InsertOne(ctx, fb); err != nil {
		return errors.Wrap(err, "[Insert] insert feedback")
	}
	return nil
}

func (r *MongoFeedbackRepo) List(ctx context.Context, filter feedback.Filter) ([]*feedback.Feedback, error) {
	query := bson.M{}
	if filter.VendorID != "" {
		query["vendorId"] = filter.VendorID
	}
	if filter.PlantID != "" {
		query["plantId"] = filter.PlantID
	}
	if filter.JobID != "" {
		query["jobId"] = filter.JobID
	}
	if filter.HasImages != nil {
		if *filter.HasImages {
			query["images.0"] = bson.M{"$exists": true}
		} else {
			query["images.0"] = bson.M{"$exists": false}
		}
	}

	cursor, err := r.collection.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, errors.Wrap(err, "[List] find feedback")
	}
	defer cursor.Close(ctx)

	list := make([]*feedback.Feedback, 0)
	if err := cursor.All(ctx, &list); err != nil {
		return nil, errors.Wrap(err, "[List] decode feedback")
	}
	return list, nil
}
