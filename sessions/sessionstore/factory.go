package sessionstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/field-portal/sessions"
	"github.com/jrsteele09/field-portal/sessions/mongostore"
	"github.com/jrsteele09/field-portal/sessions/redisstore"
	fakesessionrepo "github.com/jrsteele09/field-portal/sessions/repofakes"
	"go.mongodb.org/mongo-driver/mongo"
)

// Driver identifiers for the session record store.
const (
	DriverMemory = "memory"
	DriverMongo  = "mongo"
	DriverRedis  = "redis"
)

// Config selects and configures a driver.
type Config struct {
	Driver  string
	Redis   redisstore.Config
	NowFunc func() time.Time
}

// Dependencies captures external handles required by certain drivers.
type Dependencies struct {
	MongoDB *mongo.Database
}

// New creates a session repo for the configured driver. An empty driver means mongo.
func New(ctx context.Context, cfg Config, deps Dependencies) (sessions.Repo, error) {
	now := cfg.NowFunc
	if now == nil {
		now = time.Now
	}

	switch cfg.Driver {
	case DriverMongo, "":
		if deps.MongoDB == nil {
			return nil, fmt.Errorf("mongo driver requires database handle")
		}
		repo, err := mongostore.New(ctx, deps.MongoDB, mongostore.WithNowFunc(now))
		if err != nil {
			return nil, err
		}
		return repo, nil
	case DriverRedis:
		repo, err := redisstore.New(ctx, cfg.Redis, redisstore.WithNowFunc(now))
		if err != nil {
			return nil, err
		}
		return repo, nil
	case DriverMemory:
		return fakesessionrepo.NewFakeSessionRepo(fakesessionrepo.WithNowFunc(now)), nil
	default:
		return nil, fmt.Errorf("unsupported session store driver: %s", cfg.Driver)
	}
}
