// Package cache keeps the popular-books listing in Redis so repeated reads
// skip the sort over the whole catalog.
package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/Astemirdum/bookstore-service/bookstore/internal/model"
)

const (
	popularBooksPrefix = "bookstore:popular-books:"
	// set of every per-limit key written since the last invalidation
	popularBooksIndex = "bookstore:popular-books"
)

func popularKey(limit int) string {
	return popularBooksPrefix + strconv.Itoa(limit)
}

type Config struct {
	Addr     string        `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string        `yaml:"password" envconfig:"REDIS_PASSWORD" json:"-"`
	DB       int           `yaml:"db" envconfig:"REDIS_DB" default:"0"`
	TTL      time.Duration `yaml:"ttl" envconfig:"REDIS_POPULAR_TTL" default:"1m"`
}

func (c Config) Enabled() bool {
	return c.Addr != ""
}

type PopularCache interface {
	Get(ctx context.Context, limit int) ([]model.Book, bool, error)
	Set(ctx context.Context, limit int, books []model.Book) error
	Invalidate(ctx context.Context) error
}

func NewRedisClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "redis ping")
	}
	return client, nil
}

// RedisPopularCache stores each requested limit under its own key with its
// own TTL. An index set tracks the keys so a catalog change drops them all.
type RedisPopularCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPopularCache(client *redis.Client, ttl time.Duration) *RedisPopularCache {
	return &RedisPopularCache{client: client, ttl: ttl}
}

func (c *RedisPopularCache) Get(ctx context.Context, limit int) ([]model.Book, bool, error) {
	raw, err := c.client.Get(ctx, popularKey(limit)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var books []model.Book
	if err = json.Unmarshal(raw, &books); err != nil {
		return nil, false, errors.Wrap(err, "decode cached books")
	}
	return books, true, nil
}

func (c *RedisPopularCache) Set(ctx context.Context, limit int, books []model.Book) error {
	data, err := json.Marshal(books)
	if err != nil {
		return err
	}
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		key := popularKey(limit)
		pipe.Set(ctx, key, data, c.ttl)
		pipe.SAdd(ctx, popularBooksIndex, key)
		return nil
	})
	return err
}

func (c *RedisPopularCache) Invalidate(ctx context.Context) error {
	keys, err := c.client.SMembers(ctx, popularBooksIndex).Result()
	if err != nil {
		return err
	}
	return c.client.Del(ctx, append(keys, popularBooksIndex)...).Err()
}

// Nop never hits. It stands in when Redis is not configured.
type Nop struct{}

func (Nop) Get(context.Context, int) ([]model.Book, bool, error) { return nil, false, nil }
func (Nop) Set(context.Context, int, []model.Book) error         { return nil }
func (Nop) Invalidate(context.Context) error                     { return nil }
