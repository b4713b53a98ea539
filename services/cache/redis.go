package cachesvc

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/darasa/core"
)

const (
	keyPrefix         = "darasa:cache:"
	invalidateChannel = "darasa:invalidate"
)

func versionKey(path string) string {
	return keyPrefix + "version:" + path
}

func entryKey(path string, version int64, variant string) string {
	return keyPrefix + "entry:" + path + ":" + strconv.FormatInt(version, 10) + ":" + variant
}

// RedisCache keeps listings in redis. Invalidating a route bumps its version so older entries are never read again,
// then publishes the route on the "darasa:invalidate" channel.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ core.ListCache = (*RedisCache)(nil)

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) version(ctx context.Context, path string) (int64, error) {
	val, err := c.rdb.Get(ctx, versionKey(path)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return val, errors.Wrapf(err, "reading version of %s", path)
}

func (c *RedisCache) Invalidate(ctx context.Context, paths ...string) error {
	pipe := c.rdb.TxPipeline()
	for _, path := range paths {
		pipe.Incr(ctx, versionKey(path))
		pipe.Publish(ctx, invalidateChannel, path)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "invalidating cached listings")
	}
	return nil
}

func (c *RedisCache) Get(ctx context.Context, path, variant string) ([]byte, bool, error) {
	ver, err := c.version(ctx, path)
	if err != nil {
		return nil, false, err
	}
	data, err := c.rdb.Get(ctx, entryKey(path, ver, variant)).Bytes()
	switch {
	case err == redis.Nil:
		return nil, false, nil
	case err != nil:
		return nil, false, errors.Wrapf(err, "reading cached %s", path)
	}
	return data, true, nil
}

func (c *RedisCache) Set(ctx context.Context, path, variant string, data []byte) error {
	ver, err := c.version(ctx, path)
	if err != nil {
		return err
	}
	return errors.Wrapf(c.rdb.Set(ctx, entryKey(path, ver, variant), data, c.ttl).Err(), "caching %s", path)
}

// Subscribe calls fn with every route invalidated by any instance until ctx is done.
func (c *RedisCache) Subscribe(ctx context.Context, fn func(path string)) error {
	sub := c.rdb.Subscribe(ctx, invalidateChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return errors.Wrap(err, "subscribing to invalidations")
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			fn(msg.Payload)
		}
	}
}
