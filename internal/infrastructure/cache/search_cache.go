// Package cache keeps birth-date search results in redis.
package cache

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-directory/internal/domain/entity"
	"github.com/oksasatya/go-user-directory/pkg/helpers"
)

const generationKey = "users:search:gen"

// SearchCache namespaces entries under a generation counter. Invalidate bumps the
// counter, so stale entries are never read again and simply expire.
type SearchCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func NewSearchCache(rdb *redis.Client, ttl time.Duration, logger *logrus.Logger) *SearchCache {
	return &SearchCache{rdb: rdb, ttl: ttl, logger: logger}
}

func searchKey(gen int64, from, to civil.Date) string {
	return fmt.Sprintf("users:search:v%d:%s:%s", gen, from, to)
}

// Get returns the cached result for [from, to] and the generation it looked under.
// gen is -1 when the generation could not be read; Put ignores such results.
func (c *SearchCache) Get(ctx context.Context, from, to civil.Date) ([]entity.User, int64, bool) {
	gen, err := helpers.RedisGetInt64(ctx, c.rdb, generationKey)
	if err != nil {
		c.warn(err, "read search generation failed")
		return nil, -1, false
	}
	var users []entity.User
	ok, err := helpers.RedisGetJSON(ctx, c.rdb, searchKey(gen, from, to), &users)
	if err != nil {
		c.warn(err, "read search cache failed")
		return nil, gen, false
	}
	if ok && users == nil {
		users = []entity.User{}
	}
	return users, gen, ok
}

// Put stores users under gen, the generation returned by the Get that missed. A
// write landing in between bumps the generation, so the entry is never read.
func (c *SearchCache) Put(ctx context.Context, gen int64, from, to civil.Date, users []entity.User) {
	if gen < 0 {
		return
	}
	if err := helpers.RedisSetJSON(ctx, c.rdb, searchKey(gen, from, to), users, c.ttl); err != nil {
		c.warn(err, "write search cache failed")
	}
}

func (c *SearchCache) Invalidate(ctx context.Context) {
	if err := c.rdb.Incr(ctx, generationKey).Err(); err != nil {
		c.warn(err, "bump search generation failed")
	}
}

func (c *SearchCache) warn(err error, msg string) {
	if c.logger != nil {
		c.logger.WithError(err).Warn(msg)
	}
}
