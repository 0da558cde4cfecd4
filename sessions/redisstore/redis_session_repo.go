package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jrsteele09/field-portal/sessions"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "portal:session:"

// Config holds the connection settings of the redis driver.
type Config struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}

var _ sessions.Repo = (*RedisSessionRepo)(nil)

// RedisSessionRepo stores each record under its own key with a TTL matching
// ExpiresAt, and keeps a per vendor/plant set of tokens for superseding.
type RedisSessionRepo struct {
	client  *redis.Client
	prefix  string
	nowFunc func() time.Time
}

type Option func(*RedisSessionRepo)

func WithNowFunc(now func() time.Time) Option {
	return func(r *RedisSessionRepo) {
		r.nowFunc = now
	}
}

// New connects to redis and verifies the connection with a ping.
func New(ctx context.Context, cfg Config, options ...Option) (*RedisSessionRepo, error) {
	if cfg.Addr == "" {
		return nil, errors.New("[redisstore New] redis address required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "[redisstore New] redis ping failed")
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}

	r := &RedisSessionRepo{
		client:  client,
		prefix:  prefix,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

func (r *RedisSessionRepo) tokenKey(accessToken string) string {
	return r.prefix + "token:" + accessToken
}

func (r *RedisSessionRepo) vendorPlantKey(vendorID, plantID string) string {
	return fmt.Sprintf("%svp:%s:%s", r.prefix, vendorID, plantID)
}

func (r *RedisSessionRepo) Create(ctx context.Context, vendorID, plantID, accessToken string) (*sessions.Record, error) {
	now := r.nowFunc()
	record := sessions.NewRecord(vendorID, plantID, accessToken, now)

	data, err := json.Marshal(record)
	if err != nil {
		return nil, errors.Wrap(err, "[Create] marshal session")
	}

	ttl := record.ExpiresAt.Sub(now)
	created, err := r.client.SetNX(ctx, r.tokenKey(accessToken), data, ttl).Result()
	if err != nil {
		return nil, errors.Wrap(err, "[Create] store session")
	}
	if !created {
		return nil, sessions.ErrDuplicateToken
	}

	vpKey := r.vendorPlantKey(vendorID, plantID)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, vpKey, accessToken)
		pipe.Expire(ctx, vpKey, ttl)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Create] index session")
	}
	return record, nil
}

func (r *RedisSessionRepo) FindValid(ctx context.Context, accessToken string) (*sessions.Record, error) {
	record, err := r.Get(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if !record.IsValid(r.nowFunc()) {
		return nil, sessions.ErrSessionNotFound
	}
	return record, nil
}

func (r *RedisSessionRepo) Get(ctx context.Context, accessToken string) (*sessions.Record, error) {
	raw, err := r.client.Get(ctx, r.tokenKey(accessToken)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sessions.ErrSessionNotFound
		}
		return nil, errors.Wrap(err, "[Get] load session")
	}

	var record sessions.Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, errors.Wrap(err, "[Get] decode session")
	}
	return &record, nil
}

func (r *RedisSessionRepo) SupersedeOthers(ctx context.Context, vendorID, plantID, keepToken string) (int, error) {
	vpKey := r.vendorPlantKey(vendorID, plantID)
	members, err := r.client.SMembers(ctx, vpKey).Result()
	if err != nil {
		return 0, errors.Wrap(err, "[SupersedeOthers] list sessions")
	}

	now := r.nowFunc()
	superseded := 0
	for _, accessToken := range members {
		if accessToken == keepToken {
			continue
		}

		record, err := r.Get(ctx, accessToken)
		if errors.Is(err, sessions.ErrSessionNotFound) {
			// expired by TTL
			r.client.SRem(ctx, vpKey, accessToken)
			continue
		}
		if err != nil {
			return superseded, err
		}
		if !record.IsValid(now) {
			continue
		}

		supersededAt := now
		record.SupersededAt = &supersededAt
		data, err := json.Marshal(record)
		if err != nil {
			return superseded, errors.Wrap(err, "[SupersedeOthers] marshal session")
		}
		if err := r.client.Set(ctx, r.tokenKey(accessToken), data, redis.KeepTTL).Err(); err != nil {
			return superseded, errors.Wrap(err, "[SupersedeOthers] store session")
		}
		superseded++
	}
	return superseded, nil
}

// DeleteExpired is a no-op, redis expires keys via TTL.
func (r *RedisSessionRepo) DeleteExpired(context.Context) error {
	return nil
}

func (r *RedisSessionRepo) Close(context.Context) error {
	return r.client.Close()
}
