package mongodb

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Conn is a connected client together with the application database.
type Conn struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// Connect dials uri and pings the primary. A missing uri is an error, the server
// must not start without its database.
func Connect(ctx context.Context, uri, database string) (*Conn, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, errors.New("[mongodb Connect] uri is required")
	}
	if database == "" {
		return nil, errors.New("[mongodb Connect] database name is required")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "[mongodb Connect] connect")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "[mongodb Connect] ping")
	}

	return &Conn{
		Client:   client,
		Database: client.Database(database),
	}, nil
}

func (c *Conn) Close(ctx context.Context) error {
	return c.Client.Disconnect(ctx)
}
