package collector

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const pageCachePrefix = "filingpulse:page:"

// CachedFetcher 用 Redis 缓存页面原文，减少重复运行时对源站的请求。
// 缓存读写失败只记日志，不影响抓取本身。
type CachedFetcher struct {
	next  Fetcher
	redis *redis.Client
	ttl   time.Duration
	log   *logrus.Logger
}

func NewCachedFetcher(next Fetcher, rdb *redis.Client, ttl time.Duration, log *logrus.Logger) *CachedFetcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CachedFetcher{next: next, redis: rdb, ttl: ttl, log: log}
}

func (c *CachedFetcher) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	key := PageCacheKey(pageURL)

	if c.redis != nil {
		bs, err := c.redis.Get(ctx, key).Bytes()
		if err == nil {
			c.log.WithField("url", pageURL).Debug("page cache hit")
			return bs, nil
		}
		if err != redis.Nil {
			c.log.WithField("url", pageURL).Warnf("page cache get error: %v", err)
		}
	}

	body, err := c.next.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	if c.redis != nil && c.ttl > 0 {
		if err := c.redis.Set(ctx, key, body, c.ttl).Err(); err != nil {
			c.log.WithField("url", pageURL).Warnf("page cache set error: %v", err)
		}
	}
	return body, nil
}

// PageCacheKey 以 URL 的 sha1 作为缓存键
func PageCacheKey(pageURL string) string {
	return pageCachePrefix + hashURL(pageURL)
}

func hashURL(url string) string {
	h := sha1.New()
	h.Write([]byte(url))
	return hex.EncodeToString(h.Sum(nil))
}
