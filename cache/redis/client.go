package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("cache: key not found")

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// RedisCache implements the Cache interface backed by Redis.
type RedisCache struct {
	client *goredis.Client
}

// NewCache creates a Redis-backed cache.
func NewCache(cfg Config) (*RedisCache, error) {
	client, err := connect(cfg)
	if err != nil {
		return nil, err
	}
	return &RedisCache{client: client}, nil
}

func connect(cfg Config) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return client, nil
}

// ---- KV ----

func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", ErrNotFound
	}
	return v, err
}

func (r *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisCache) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	return n > 0, err
}

func (r *RedisCache) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, value, ttl).Result()
}

func (r *RedisCache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return r.client.Expire(ctx, key, ttl).Err()
}

// ---- List ----

func (r *RedisCache) LPush(ctx context.Context, key string, values ...string) error {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return r.client.LPush(ctx, key, args...).Err()
}

func (r *RedisCache) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return r.client.LRange(ctx, key, start, stop).Result()
}

func (r *RedisCache) LTrim(ctx context.Context, key string, start, stop int64) error {
	return r.client.LTrim(ctx, key, start, stop).Err()
}

// ---- PubSub ----

// RedisMessage is the message type returned by RedisPubSub subscriptions.
type RedisMessage struct {
	Channel string
	Payload string
}

// RedisPubSub wraps the Redis PubSub client.
type RedisPubSub struct {
	client *goredis.Client
}

// NewPubSub creates a Redis-backed PubSub.
func NewPubSub(cfg Config) (*RedisPubSub, error) {
	client, err := connect(cfg)
	if err != nil {
		return nil, err
	}
	return &RedisPubSub{client: client}, nil
}

func (r *RedisPubSub) Publish(ctx context.Context, channel, message string) error {
	return r.client.Publish(ctx, channel, message).Err()
}

// Subscribe listens on exact channel names.
func (r *RedisPubSub) Subscribe(ctx context.Context, channels ...string) (<-chan *RedisMessage, func(), error) {
	ps := r.client.Subscribe(ctx, channels...)
	cancel := func() { _ = ps.Close() }
	return pump(ps), cancel, nil
}

// PSubscribe listens on glob patterns (Redis PSUBSCRIBE). The Channel of
// each received message is the concrete channel it was published to.
func (r *RedisPubSub) PSubscribe(ctx context.Context, patterns ...string) (<-chan *RedisMessage, func(), error) {
	ps := r.client.PSubscribe(ctx, patterns...)
	cancel := func() { _ = ps.Close() }
	return pump(ps), cancel, nil
}

func pump(ps *goredis.PubSub) <-chan *RedisMessage {
	ch := make(chan *RedisMessage, 256)
	go func() {
		defer close(ch)
		for msg := range ps.Channel() {
			ch <- &RedisMessage{Channel: msg.Channel, Payload: msg.Payload}
		}
	}()
	return ch
}
