// internal/applications/cache.go
package applications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"xtenda-workers/internal/common/database"

	"github.com/redis/go-redis/v9"
)

const (
	nrcKeyPrefix = "xtenda_nrc_map_"
	appKeyPrefix = "xtenda_app_"
)

// NormalizeNRC keeps the digits of an NRC and lays them out as XXXXXX/XX/X,
// truncating anything beyond nine digits.
func NormalizeNRC(nrc string) string {
	raw := make([]byte, 0, len(nrc))
	for i := 0; i < len(nrc); i++ {
		if nrc[i] >= '0' && nrc[i] <= '9' {
			raw = append(raw, nrc[i])
		}
	}

	out := string(raw)
	if len(raw) > 6 {
		out = string(raw[:6]) + "/" + string(raw[6:])
	}
	if len(raw) > 8 {
		out = out[:9] + "/" + string(raw[8:])
	}
	if len(out) > 11 {
		out = out[:11]
	}
	return out
}

func NRCCacheKey(nrc string) string { return nrcKeyPrefix + NormalizeNRC(nrc) }

func AppCacheKey(id string) string { return appKeyPrefix + id }

// StatusCache keeps the NRC to id mapping and the status preview per id.
type StatusCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStatusCache(rdb *redis.Client, ttl time.Duration) *StatusCache {
	return &StatusCache{rdb: rdb, ttl: ttl}
}

// ByNRC follows the NRC mapping to the cached preview. database.ErrCacheMiss
// is returned when either key is absent.
func (c *StatusCache) ByNRC(ctx context.Context, nrc string) (*StatusView, error) {
	id, err := c.rdb.Get(ctx, NRCCacheKey(nrc)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, database.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get nrc map: %w", err)
	}
	return c.ByID(ctx, id)
}

func (c *StatusCache) ByID(ctx context.Context, id string) (*StatusView, error) {
	var v StatusView
	if err := database.GetJSON(ctx, c.rdb, AppCacheKey(id), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *StatusCache) Put(ctx context.Context, v StatusView) error {
	if err := database.SetJSON(ctx, c.rdb, AppCacheKey(v.ID), v, c.ttl); err != nil {
		return err
	}
	if v.NRC == "" {
		return nil
	}
	if err := c.rdb.Set(ctx, NRCCacheKey(v.NRC), v.ID, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set nrc map: %w", err)
	}
	return nil
}

// Forget drops the preview for id and, when nrc is set, its mapping.
func (c *StatusCache) Forget(ctx context.Context, id, nrc string) error {
	keys := []string{AppCacheKey(id)}
	if nrc != "" {
		keys = append(keys, NRCCacheKey(nrc))
	}
	return c.rdb.Del(ctx, keys...).Err()
}
