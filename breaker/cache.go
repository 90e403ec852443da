package breaker

import (
	"fmt"
	"time"

	"github.com/maypok86/otter/v2"

	"github.com/ceyewan/fuse/xerrors"
)

// cacheNeverExpires 当 CacheTTL 为 0 时使用的写入过期时间（100年，模拟永久）。
const cacheNeverExpires = 24 * 365 * 100 * time.Hour

// resultCache 成功结果缓存（内部使用）。
//
// 只缓存成功结果，失败永不缓存。过期采用写入过期策略：
// 过期时间从写入开始计算，读取不会重置 TTL；过期条目在读取时
// 由缓存惰性失效。未命中键的并发调用彼此独立执行，不做合并。
type resultCache struct {
	cache *otter.Cache[string, any]
	ttl   time.Duration
	keyFn CacheKeyFunc
}

func newResultCache(cfg *Config) (*resultCache, error) {
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = cacheNeverExpires
	}

	keyFn := cfg.CacheGetKey
	if keyFn == nil {
		keyFn = defaultCacheKey
	}

	cache, err := otter.New(&otter.Options[string, any]{
		MaximumSize:      cfg.CacheSize,
		ExpiryCalculator: otter.ExpiryWriting[string, any](ttl),
	})
	if err != nil {
		return nil, xerrors.Wrap(err, "breaker: failed to build result cache")
	}

	return &resultCache{cache: cache, ttl: ttl, keyFn: keyFn}, nil
}

// get 按参数派生键查询缓存。
func (c *resultCache) get(args []any) (any, bool) {
	return c.cache.GetIfPresent(c.keyFn(args...))
}

// set 按参数派生键写入一个成功结果。
func (c *resultCache) set(args []any, value any) {
	c.cache.Set(c.keyFn(args...), value)
}

// close 停止缓存的后台协程。
func (c *resultCache) close() {
	c.cache.StopAllGoroutines()
}

// defaultCacheKey 默认缓存键派生：参数的字符串拼接。
func defaultCacheKey(args ...any) string {
	return fmt.Sprint(args...)
}
