package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Deduper はイベントIDで二重処理を防ぐ
type Deduper struct {
	rdb      *redis.Client
	consumer string
}

func NewDeduper(rdb *redis.Client, consumer string) *Deduper {
	return &Deduper{rdb: rdb, consumer: consumer}
}

// 初めて見たIDなら true。SETNX で原子的に判定する
func (d *Deduper) FirstSeen(ctx context.Context, eventID string) (bool, error) {
	return d.rdb.SetNX(ctx, fmt.Sprintf(KeyDedup, d.consumer, eventID), "1", TTLDedup).Result()
}

// 処理に失敗したときは印を外して再配信で拾えるようにする
func (d *Deduper) Forget(ctx context.Context, eventID string) error {
	return d.rdb.Del(ctx, fmt.Sprintf(KeyDedup, d.consumer, eventID)).Err()
}
