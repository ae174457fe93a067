package redis

import (
	"context"

	"github.com/go-redis/redis/v8"

	"telegram-stt-bot/internal/config"
)

// RedisClient is the narrow surface the bot needs; keeping it an interface
// lets tests swap in a map-backed fake.
type RedisClient interface {
	Ping(ctx context.Context) error
	SAdd(ctx context.Context, key string, members ...interface{}) error
	SIsMember(ctx context.Context, key string, member interface{}) (bool, error)
	Close() error
}

var _ RedisClient = (*redClient)(nil)

type redClient struct {
	cli *redis.Client
}

func NewClient(ctx context.Context, cfg *config.RedisConfig) (RedisClient, error) {
	opts := &redis.Options{
		Addr:     cfg.URL,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	c := redis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &redClient{cli: c}, nil
}

func (c *redClient) Ping(ctx context.Context) error { return c.cli.Ping(ctx).Err() }

func (c *redClient) SAdd(ctx context.Context, key string, members ...interface{}) error {
	return c.cli.SAdd(ctx, key, members...).Err()
}

func (c *redClient) SIsMember(ctx context.Context, key string, member interface{}) (bool, error) {
	return c.cli.SIsMember(ctx, key, member).Result()
}

func (c *redClient) Close() error { return c.cli.Close() }
