package cache

import (
	"sync"
	"time"

	"breakcode4d/internal/database"
	"breakcode4d/internal/logger"
)

// DrawCache 开奖历史的内存缓存，base 直接透传到底层存储
type DrawCache struct {
	repo database.Repository
	ttl  time.Duration
	now  func() time.Time

	mu        sync.Mutex
	draws     []database.DrawRecord
	expiresAt time.Time
	valid     bool

	hits, misses int64
}

// NewDrawCache 包装存储；ttl <= 0 时不缓存
func NewDrawCache(repo database.Repository, ttl time.Duration) *DrawCache {
	logger.Debugf("Draw cache initialized, ttl: %v", ttl)
	return &DrawCache{repo: repo, ttl: ttl, now: time.Now}
}

// LoadDraws 命中时返回缓存副本，否则从存储加载
func (c *DrawCache) LoadDraws() ([]database.DrawRecord, error) {
	if c.ttl <= 0 {
		return c.repo.LoadDraws()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid && c.now().Before(c.expiresAt) {
		c.hits++
		return copyDraws(c.draws), nil
	}
	c.misses++

	draws, err := c.repo.LoadDraws()
	if err != nil {
		return nil, err
	}
	c.draws = copyDraws(draws)
	c.expiresAt = c.now().Add(c.ttl)
	c.valid = true
	logger.Debugf("Draw cache refreshed: %d draws", len(draws))
	return draws, nil
}

// AppendDraws 写入存储，有新增时使缓存失效
func (c *DrawCache) AppendDraws(records []database.DrawRecord) (int, error) {
	added, err := c.repo.AppendDraws(records)
	if added > 0 || err != nil {
		c.Invalidate()
	}
	return added, err
}

func (c *DrawCache) SaveBase(strategy string, base database.Base) error {
	return c.repo.SaveBase(strategy, base)
}

func (c *DrawCache) LoadBase(strategy string) (database.Base, error) {
	return c.repo.LoadBase(strategy)
}

func (c *DrawCache) Close() error {
	c.Invalidate()
	return c.repo.Close()
}

// Invalidate 清空缓存
func (c *DrawCache) Invalidate() {
	c.mu.Lock()
	c.draws = nil
	c.valid = false
	c.mu.Unlock()
}

// Stats 获取缓存统计信息
func (c *DrawCache) Stats() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return map[string]interface{}{
		"cached_draws": len(c.draws),
		"valid":        c.valid && c.now().Before(c.expiresAt),
		"hits":         c.hits,
		"misses":       c.misses,
		"ttl":          c.ttl.String(),
	}
}

func copyDraws(draws []database.DrawRecord) []database.DrawRecord {
	if draws == nil {
		return nil
	}
	out := make([]database.DrawRecord, len(draws))
	copy(out, draws)
	return out
}
