package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Domenick1991/heliseats/config"
	"github.com/Domenick1991/heliseats/internal/domain"
	"github.com/redis/go-redis/v9"
)

// QuotaCache holds read-side snapshots of quotas. It is never consulted by
// the seat ledger; a stale entry only affects what callers are shown.
// SetQuota never replaces a snapshot with an older one (by UpdatedAt), so a
// slow read-through fill cannot undo a committed change.
type QuotaCache interface {
	GetQuota(ctx context.Context, date string) (*domain.FlightQuota, error)
	SetQuota(ctx context.Context, q domain.FlightQuota) error
	InvalidateQuotas(ctx context.Context, dates ...string) error
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(cfg config.RedisConfig, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		ttl:    ttl,
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// GetQuota returns nil, nil on a miss.
func (c *RedisCache) GetQuota(ctx context.Context, date string) (*domain.FlightQuota, error) {
	data, err := c.client.Get(ctx, quotaKey(date)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var q domain.FlightQuota
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// SetQuota stores q unless the cached snapshot is newer. The compare and
// set runs under WATCH and is retried when another writer gets in between.
func (c *RedisCache) SetQuota(ctx context.Context, q domain.FlightQuota) error {
	payload, err := json.Marshal(q)
	if err != nil {
		return err
	}
	key := quotaKey(q.Date)

	for i := 0; i < maxSetAttempts; i++ {
		err = c.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			switch {
			case errors.Is(err, redis.Nil):
			case err != nil:
				return err
			default:
				var cached domain.FlightQuota
				if json.Unmarshal(data, &cached) == nil && !newer(q, cached) {
					return nil
				}
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, payload, c.ttl)
				return nil
			})
			return err
		}, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}

func (c *RedisCache) InvalidateQuotas(ctx context.Context, dates ...string) error {
	if len(dates) == 0 {
		return nil
	}
	keys := make([]string, 0, len(dates))
	for _, d := range dates {
		keys = append(keys, quotaKey(d))
	}
	return c.client.Del(ctx, keys...).Err()
}

const maxSetAttempts = 3

// newer reports whether q may replace cached. Snapshots with equal
// timestamps are interchangeable.
func newer(q, cached domain.FlightQuota) bool {
	return !cached.UpdatedAt.After(q.UpdatedAt)
}

func quotaKey(date string) string {
	return "cache:quota:" + date
}

var _ QuotaCache = (*RedisCache)(nil)
