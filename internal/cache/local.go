package cache

import (
	"context"
	"sync"
	"time"

	"github.com/Domenick1991/heliseats/internal/domain"
	gocache "github.com/patrickmn/go-cache"
)

// LocalCache is the in-process QuotaCache used when Redis is not configured.
type LocalCache struct {
	mu    sync.Mutex
	items *gocache.Cache
}

func NewLocalCache(ttl time.Duration) *LocalCache {
	return &LocalCache{items: gocache.New(ttl, 2*ttl)}
}

func (c *LocalCache) GetQuota(_ context.Context, date string) (*domain.FlightQuota, error) {
	v, ok := c.items.Get(quotaKey(date))
	if !ok {
		return nil, nil
	}
	q := v.(domain.FlightQuota)
	return &q, nil
}

func (c *LocalCache) SetQuota(_ context.Context, q domain.FlightQuota) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.items.Get(quotaKey(q.Date)); ok && !newer(q, v.(domain.FlightQuota)) {
		return nil
	}
	c.items.SetDefault(quotaKey(q.Date), q)
	return nil
}

func (c *LocalCache) InvalidateQuotas(_ context.Context, dates ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range dates {
		c.items.Delete(quotaKey(d))
	}
	return nil
}

var _ QuotaCache = (*LocalCache)(nil)
