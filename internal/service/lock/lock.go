// Package lock 提供运行锁，防止两个进程同时写同一个数据存储
package lock

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLocked 存储已被其他运行持有
var ErrLocked = errors.New("store is locked by another run")

// Unlock 释放锁
type Unlock func(ctx context.Context) error

// Locker 运行锁接口
type Locker interface {
	Acquire(ctx context.Context, name string) (Unlock, error)
}

// ========== Redis 实现 ==========

// releaseScript 只删除自己持有的锁
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// extendScript 只续期自己持有的锁
var extendScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

// errLockLost 续期时锁已不属于当前运行
var errLockLost = errors.New("lock no longer held")

// RedisLocker 基于 SET NX 的运行锁
// 持有期间每 ttl/3 续期一次，进程崩溃时锁在 ttl 后过期
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker 创建 Redis 运行锁
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl}
}

// Key 返回锁在 Redis 中的 key
func Key(name string) string {
	return fmt.Sprintf("next-dataset:lock:%s", name)
}

// Acquire 获取锁，已被持有时返回 ErrLocked
func (l *RedisLocker) Acquire(ctx context.Context, name string) (Unlock, error) {
	key := Key(name)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, name)
	}

	stop := keepAlive(l.ttl/3, func(ctx context.Context) error {
		n, err := extendScript.Run(ctx, l.client, []string{key}, token, l.ttl.Milliseconds()).Int64()
		if err != nil {
			return err
		}
		if n == 0 {
			return errLockLost
		}
		return nil
	})

	return func(ctx context.Context) error {
		stop()
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("failed to release lock %s: %w", key, err)
		}
		return nil
	}, nil
}

// keepAlive 每个 interval 调用一次 extend，直到 stop 被调用或 extend 失败
// stop 等待续期协程退出后返回
func keepAlive(interval time.Duration, extend func(ctx context.Context) error) (stop func()) {
	if interval <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := extend(ctx); err != nil {
					if ctx.Err() == nil {
						log.Printf("[lock] Warning: failed to extend lock, renewal stopped: %v", err)
					}
					return
				}
			}
		}
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}

// ========== 空实现 ==========

// NopLocker 未启用 Redis 时使用
type NopLocker struct{}

// Acquire 总是成功
func (NopLocker) Acquire(ctx context.Context, name string) (Unlock, error) {
	return func(context.Context) error { return nil }, nil
}

var (
	_ Locker = (*RedisLocker)(nil)
	_ Locker = NopLocker{}
)
