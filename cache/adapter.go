package cache

import (
	"context"
	"time"

	"github.com/azattekce/redischat/cache/local"
	cacheredis "github.com/azattekce/redischat/cache/redis"
)

// Cache defines the KV and List operations the chat server needs:
// session tokens (KV with TTL) and the capped global-chat history (List).
type Cache interface {
	// KV
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// List
	LPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LTrim(ctx context.Context, key string, start, stop int64) error
}

// Message is a received pub/sub message. Channel is the concrete channel
// the message was published to, also for pattern subscriptions.
type Message struct {
	Channel string
	Payload string
}

// PubSub is the fanout bus. Delivery is at-most-once and best-effort:
// a message published with no live subscriber is dropped.
type PubSub interface {
	Publish(ctx context.Context, channel, message string) error
	Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error)
	// PSubscribe subscribes to glob patterns such as "chat:*". Received
	// messages carry the matched concrete channel so the consumer can
	// demultiplex on its suffix.
	PSubscribe(ctx context.Context, patterns ...string) (<-chan *Message, func(), error)
}

// CacheConfig holds configuration for both Redis and LocalCache.
type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

// NewCache returns a Cache backed by Redis if RedisAddr is set,
// otherwise returns an in-process LocalCache.
func NewCache(cfg CacheConfig) (Cache, error) {
	if cfg.RedisAddr != "" {
		return cacheredis.NewCache(cacheredis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	return local.NewCache(local.Config{
		GCInterval: cfg.LocalGCInterval,
	})
}

// NewPubSub returns a PubSub backed by Redis if RedisAddr is set,
// otherwise returns an in-process LocalPubSub wrapped in an adapter.
func NewPubSub(cfg CacheConfig) (PubSub, error) {
	bufSize := cfg.LocalPubSubBuf
	if bufSize <= 0 {
		bufSize = 256
	}
	if cfg.RedisAddr != "" {
		rps, err := cacheredis.NewPubSub(cacheredis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		return &redisPubSubAdapter{ps: rps}, nil
	}
	return &localPubSubAdapter{ps: local.NewPubSub(bufSize)}, nil
}

// ---- adapters to bridge sub-package message types to cache.Message ----

type localPubSubAdapter struct {
	ps *local.LocalPubSub
}

func (a *localPubSubAdapter) Publish(ctx context.Context, channel, message string) error {
	return a.ps.Publish(ctx, channel, message)
}

func (a *localPubSubAdapter) Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error) {
	localCh, cancel, err := a.ps.Subscribe(ctx, channels...)
	if err != nil {
		return nil, nil, err
	}
	return bridgeLocal(localCh), cancel, nil
}

func (a *localPubSubAdapter) PSubscribe(ctx context.Context, patterns ...string) (<-chan *Message, func(), error) {
	localCh, cancel, err := a.ps.PSubscribe(ctx, patterns...)
	if err != nil {
		return nil, nil, err
	}
	return bridgeLocal(localCh), cancel, nil
}

func bridgeLocal(in <-chan *local.LocalMessage) <-chan *Message {
	out := make(chan *Message, 256)
	go func() {
		defer close(out)
		for msg := range in {
			out <- &Message{Channel: msg.Channel, Payload: msg.Payload}
		}
	}()
	return out
}

type redisPubSubAdapter struct {
	ps *cacheredis.RedisPubSub
}

func (a *redisPubSubAdapter) Publish(ctx context.Context, channel, message string) error {
	return a.ps.Publish(ctx, channel, message)
}

func (a *redisPubSubAdapter) Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error) {
	redisCh, cancel, err := a.ps.Subscribe(ctx, channels...)
	if err != nil {
		return nil, nil, err
	}
	return bridgeRedis(redisCh), cancel, nil
}

func (a *redisPubSubAdapter) PSubscribe(ctx context.Context, patterns ...string) (<-chan *Message, func(), error) {
	redisCh, cancel, err := a.ps.PSubscribe(ctx, patterns...)
	if err != nil {
		return nil, nil, err
	}
	return bridgeRedis(redisCh), cancel, nil
}

func bridgeRedis(in <-chan *cacheredis.RedisMessage) <-chan *Message {
	out := make(chan *Message, 256)
	go func() {
		defer close(out)
		for msg := range in {
			out <- &Message{Channel: msg.Channel, Payload: msg.Payload}
		}
	}()
	return out
}
