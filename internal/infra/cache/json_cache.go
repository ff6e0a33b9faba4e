package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"taziri/internal/metric"
)

// JSONCache は値をJSONで置くだけの薄いキャッシュ。name はメトリクスのラベル
type JSONCache struct {
	rdb    *redis.Client
	name   string
	format string
	ttl    time.Duration
}

func newJSONCache(rdb *redis.Client, name, format string, ttl time.Duration) *JSONCache {
	return &JSONCache{rdb: rdb, name: name, format: format, ttl: ttl}
}

// 再販リンクの解決結果
func NewResellCache(rdb *redis.Client) *JSONCache {
	return newJSONCache(rdb, "resell_slug", KeyResellSlug, TTLResellSlug)
}

// 注文ステータス
func NewStatusCache(rdb *redis.Client) *JSONCache {
	return newJSONCache(rdb, "order_status", KeyOrderStatus, TTLStatusCache)
}

func (c *JSONCache) key(id any) string {
	return fmt.Sprintf(c.format, id)
}

// 無ければ false。壊れた値はミス扱いにして消す
func (c *JSONCache) Get(ctx context.Context, id any, out any) (bool, error) {
	b, err := c.rdb.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		metric.CacheLookups.WithLabelValues(c.name, "miss").Inc()
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, out); err != nil {
		_ = c.rdb.Del(ctx, c.key(id)).Err()
		metric.CacheLookups.WithLabelValues(c.name, "miss").Inc()
		return false, nil
	}
	metric.CacheLookups.WithLabelValues(c.name, "hit").Inc()
	return true, nil
}

func (c *JSONCache) Set(ctx context.Context, id any, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(id), b, c.ttl).Err()
}

func (c *JSONCache) Delete(ctx context.Context, id any) error {
	return c.rdb.Del(ctx, c.key(id)).Err()
}
