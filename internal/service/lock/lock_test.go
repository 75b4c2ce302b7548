package lock

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestKey(t *testing.T) {
	if got := Key("10-18-2026-dataset"); got != "next-dataset:lock:10-18-2026-dataset" {
		t.Errorf("Key() = %q", got)
	}
}

func TestNopLocker(t *testing.T) {
	ctx := context.Background()
	unlock, err := NopLocker{}.Acquire(ctx, "store")
	if err != nil {
		t.Fatal(err)
	}
	if err := unlock(ctx); err != nil {
		t.Errorf("unlock() = %v", err)
	}
}

func TestRedisLocker_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	_, err := NewRedisLocker(client, time.Minute).Acquire(context.Background(), "store")
	if err == nil {
		t.Fatal("Acquire() against unreachable redis should fail")
	}
	if errors.Is(err, ErrLocked) {
		t.Errorf("connection error reported as ErrLocked: %v", err)
	}
}

func TestKeepAlive(t *testing.T) {
	tests := []struct {
		name      string
		extendErr error
		wait      time.Duration
		minCalls  int32
		maxCalls  int32
	}{
		{name: "renews until stopped", wait: 60 * time.Millisecond, minCalls: 2, maxCalls: 100},
		{name: "stops after failed renewal", extendErr: errLockLost, wait: 60 * time.Millisecond, minCalls: 1, maxCalls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			stop := keepAlive(5*time.Millisecond, func(ctx context.Context) error {
				calls.Add(1)
				return tt.extendErr
			})
			time.Sleep(tt.wait)
			stop()

			got := calls.Load()
			if got < tt.minCalls || got > tt.maxCalls {
				t.Errorf("extend calls = %d, want %d..%d", got, tt.minCalls, tt.maxCalls)
			}
			time.Sleep(20 * time.Millisecond)
			if after := calls.Load(); after != got {
				t.Errorf("extend called %d times after stop()", after-got)
			}
		})
	}
}

func TestKeepAlive_ZeroInterval(t *testing.T) {
	stop := keepAlive(0, func(ctx context.Context) error {
		t.Error("extend should not run with a zero interval")
		return nil
	})
	stop()
}
