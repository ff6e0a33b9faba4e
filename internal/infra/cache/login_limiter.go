package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const MaxLoginFailures = 5

// LoginLimiter はメール単位でログイン失敗を数え、上限を超えたら一定時間締め出す
type LoginLimiter struct {
	rdb *redis.Client
	max int64
	ttl time.Duration
}

func NewLoginLimiter(rdb *redis.Client) *LoginLimiter {
	return &LoginLimiter{rdb: rdb, max: MaxLoginFailures, ttl: TTLLoginLock}
}

func (l *LoginLimiter) key(email string) string {
	return fmt.Sprintf(KeyLoginFail, strings.ToLower(strings.TrimSpace(email)))
}

// Locked はロック中なら残り時間を返す
func (l *LoginLimiter) Locked(ctx context.Context, email string) (bool, time.Duration, error) {
	n, err := l.rdb.Get(ctx, l.key(email)).Int64()
	if errors.Is(err, redis.Nil) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}
	if n < l.max {
		return false, 0, nil
	}
	ttl, err := l.rdb.TTL(ctx, l.key(email)).Result()
	if err != nil {
		return true, l.ttl, nil
	}
	return true, ttl, nil
}

// 最初の失敗から ttl で回数はリセットされる
func (l *LoginLimiter) Fail(ctx context.Context, email string) error {
	k := l.key(email)
	pipe := l.rdb.TxPipeline()
	pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, l.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (l *LoginLimiter) Reset(ctx context.Context, email string) error {
	return l.rdb.Del(ctx, l.key(email)).Err()
}
