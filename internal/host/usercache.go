package host

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-chatmsg-core/internal/logger"
	"go.uber.org/zap"
)

const userCacheTTL = 24 * time.Hour

// UserCache 各站点域名下最近一次已知的用户名
type UserCache interface {
	Username(ctx context.Context, siteURL string) string
	SetUsername(ctx context.Context, siteURL, username string)
}

// RedisUserCache 用户名缓存
// Redis 可选：不可用时退化为进程内存缓存
type RedisUserCache struct {
	rdb *redis.Client

	mu    sync.RWMutex
	local map[string]string
}

// NewUserCache 创建用户名缓存，rdb 可为 nil
func NewUserCache(rdb *redis.Client) *RedisUserCache {
	return &RedisUserCache{rdb: rdb, local: make(map[string]string)}
}

// Username 查询域名对应的用户名，未知返回空串
func (c *RedisUserCache) Username(ctx context.Context, siteURL string) string {
	domain := domainOf(siteURL)
	if domain == "" {
		return ""
	}
	if c.rdb != nil {
		val, err := c.rdb.Get(ctx, cacheKey(domain)).Result()
		if err == nil {
			return val
		}
		if err != redis.Nil {
			logger.Logger.Debug("用户名缓存读取失败，退化为内存缓存",
				zap.String("domain", domain), zap.Error(err))
		}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.local[domain]
}

// SetUsername 记录域名对应的用户名
func (c *RedisUserCache) SetUsername(ctx context.Context, siteURL, username string) {
	domain := domainOf(siteURL)
	if domain == "" || username == "" {
		return
	}
	c.mu.Lock()
	c.local[domain] = username
	c.mu.Unlock()

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, cacheKey(domain), username, userCacheTTL).Err(); err != nil {
			logger.Logger.Debug("用户名缓存写入失败",
				zap.String("domain", domain), zap.Error(err))
		}
	}
}

func cacheKey(domain string) string {
	return "chatmsg:username:" + domain
}

func domainOf(siteURL string) string {
	u, err := url.Parse(siteURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
