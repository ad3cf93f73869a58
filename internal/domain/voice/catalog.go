package voice

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	platformerrors "storyvoice-server-go/internal/platform/errors"
)

// CatalogCache caches provider voice catalogs so ListVoices round-trips are
// paid once per process (or once per TTL for shared backends).
type CatalogCache interface {
	Get(ctx context.Context, provider string) ([]VoiceProfile, bool, error)
	Put(ctx context.Context, provider string, voices []VoiceProfile) error
	Close() error
}

// memoryCatalogCache is the default in-process backend.
type memoryCatalogCache struct {
	mu      sync.RWMutex
	entries map[string]memoryCatalogEntry
	ttl     time.Duration
}

type memoryCatalogEntry struct {
	voices   []VoiceProfile
	storedAt time.Time
}

// NewMemoryCatalogCache creates an in-process catalog cache. A zero TTL
// means entries live for the process lifetime.
func NewMemoryCatalogCache(ttl time.Duration) CatalogCache {
	return &memoryCatalogCache{
		entries: make(map[string]memoryCatalogEntry),
		ttl:     ttl,
	}
}

func (c *memoryCatalogCache) Get(ctx context.Context, provider string) ([]VoiceProfile, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[provider]
	c.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if c.ttl > 0 && time.Since(entry.storedAt) > c.ttl {
		c.mu.Lock()
		delete(c.entries, provider)
		c.mu.Unlock()
		return nil, false, nil
	}
	return entry.voices, true, nil
}

func (c *memoryCatalogCache) Put(ctx context.Context, provider string, voices []VoiceProfile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[provider] = memoryCatalogEntry{voices: voices, storedAt: time.Now()}
	return nil
}

func (c *memoryCatalogCache) Close() error { return nil }

// redisCatalogCache shares catalogs between processes through Redis.
type redisCatalogCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisCatalogOptions configures the Redis-backed catalog cache.
type RedisCatalogOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// NewRedisCatalogCache connects to Redis and verifies the connection.
func NewRedisCatalogCache(ctx context.Context, opts RedisCatalogOptions) (CatalogCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "catalog",
			"failed to connect to redis", err)
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "voicecatalog"
	}
	return &redisCatalogCache{client: client, prefix: prefix, ttl: opts.TTL}, nil
}

func (c *redisCatalogCache) key(provider string) string {
	return fmt.Sprintf("%s:%s", c.prefix, provider)
}

func (c *redisCatalogCache) Get(ctx context.Context, provider string) ([]VoiceProfile, bool, error) {
	data, err := c.client.Get(ctx, c.key(provider)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, platformerrors.Wrap(platformerrors.KindStorage, "catalog",
			"redis get failed", err)
	}

	var voices []VoiceProfile
	if err := sonic.Unmarshal(data, &voices); err != nil {
		return nil, false, platformerrors.Wrap(platformerrors.KindStorage, "catalog",
			"corrupt catalog entry", err)
	}
	return voices, true, nil
}

func (c *redisCatalogCache) Put(ctx context.Context, provider string, voices []VoiceProfile) error {
	data, err := sonic.Marshal(voices)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "catalog",
			"failed to encode catalog", err)
	}
	if err := c.client.Set(ctx, c.key(provider), data, c.ttl).Err(); err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "catalog",
			"redis set failed", err)
	}
	return nil
}

func (c *redisCatalogCache) Close() error {
	return c.client.Close()
}
