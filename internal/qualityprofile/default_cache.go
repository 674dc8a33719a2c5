package qualityprofile

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"qprofile/internal/constants"
	"qprofile/internal/logger"
	"qprofile/pkg/metrics"
)

// DefaultProfileCache holds the default profile of each language. Cache
// errors are never surfaced; a failing cache behaves like an empty one.
//
// Every Invalidate bumps the language's generation. A fill passes the
// generation read before the store was queried and is dropped if an
// invalidation happened since, so a slow reader cannot put back a default
// that was replaced while it was reading.
type DefaultProfileCache interface {
	Get(ctx context.Context, language string) (*Profile, bool)
	Generation(ctx context.Context, language string) int64
	Set(ctx context.Context, profile Profile, generation int64)
	Invalidate(ctx context.Context, language string)
}

var errStaleCacheFill = errors.New("default profile changed during cache fill")

type RedisDefaultCache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewRedisDefaultCache(client *redis.Client, ttl time.Duration, log logger.Logger) *RedisDefaultCache {
	if ttl <= 0 {
		ttl = constants.DefaultProfileCacheTTLSeconds * time.Second
	}
	return &RedisDefaultCache{client: client, ttl: ttl, logger: log}
}

func defaultCacheKey(language string) string {
	return constants.CacheKeyPrefixDefaultProfile + language
}

func generationCacheKey(language string) string {
	return constants.CacheKeyPrefixDefaultProfileGeneration + language
}

func (c *RedisDefaultCache) Get(ctx context.Context, language string) (*Profile, bool) {
	val, err := c.client.Get(ctx, defaultCacheKey(language)).Bytes()
	if err == redis.Nil {
		metrics.IncDefaultProfileCache("miss")
		return nil, false
	}
	if err != nil {
		metrics.IncDefaultProfileCache("error")
		c.logger.WarnwCtx(ctx, "Default profile cache read failed", "language", language, "error", err)
		return nil, false
	}

	var profile Profile
	if err := json.Unmarshal(val, &profile); err != nil {
		metrics.IncDefaultProfileCache("error")
		c.logger.WarnwCtx(ctx, "Discarding unreadable default profile cache entry", "language", language, "error", err)
		c.Invalidate(ctx, language)
		return nil, false
	}

	metrics.IncDefaultProfileCache("hit")
	return &profile, true
}

// Generation returns -1 when Redis cannot be read; such a fill is skipped.
func (c *RedisDefaultCache) Generation(ctx context.Context, language string) int64 {
	gen, err := c.client.Get(ctx, generationCacheKey(language)).Int64()
	if err == redis.Nil {
		return 0
	}
	if err != nil {
		c.logger.WarnwCtx(ctx, "Default profile cache generation read failed", "language", language, "error", err)
		return -1
	}
	return gen
}

func (c *RedisDefaultCache) Set(ctx context.Context, profile Profile, generation int64) {
	if generation < 0 {
		return
	}
	data, err := json.Marshal(profile)
	if err != nil {
		return
	}

	genKey := generationCacheKey(profile.Language)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if current != generation {
			return errStaleCacheFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, defaultCacheKey(profile.Language), data, c.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleCacheFill), errors.Is(err, redis.TxFailedErr):
		metrics.IncDefaultProfileCache("stale")
		c.logger.DebugwCtx(ctx, "Skipped stale default profile cache fill", "language", profile.Language)
	default:
		c.logger.WarnwCtx(ctx, "Default profile cache write failed", "language", profile.Language, "error", err)
	}
}

func (c *RedisDefaultCache) Invalidate(ctx context.Context, language string) {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationCacheKey(language))
		pipe.Del(ctx, defaultCacheKey(language))
		return nil
	})
	if err != nil {
		c.logger.WarnwCtx(ctx, "Default profile cache invalidation failed", "language", language, "error", err)
	}
}

type noopDefaultCache struct{}

// NoopDefaultCache is used when Redis is not configured.
func NoopDefaultCache() DefaultProfileCache {
	return noopDefaultCache{}
}

func (noopDefaultCache) Get(context.Context, string) (*Profile, bool) { return nil, false }
func (noopDefaultCache) Generation(context.Context, string) int64      { return 0 }
func (noopDefaultCache) Set(context.Context, Profile, int64)          {}
func (noopDefaultCache) Invalidate(context.Context, string)           {}
