package ratelimiter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result describes the outcome of one admission check.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter admits at most Limit requests per fixed window for each key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

type redisLimiter struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// NewRedis shares counters across instances through Redis.
func NewRedis(rdb *redis.Client, prefix string, limit int, window time.Duration) Limiter {
	return &redisLimiter{rdb: rdb, prefix: prefix, limit: limit, window: window}
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	windowStart := time.Now().Truncate(l.window).Unix()
	redisKey := fmt.Sprintf("rate_limit:%s:%s:%d", l.prefix, key, windowStart)

	var incr *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, l.window)
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	count := int(incr.Val())
	if count > l.limit {
		retry := time.Until(time.Unix(windowStart, 0).Add(l.window))
		return Result{Allowed: false, RetryAfter: retry}, nil
	}
	return Result{Allowed: true, Remaining: l.limit - count}, nil
}

type window struct {
	start time.Time
	count int
}

type memoryLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	now     func() time.Time
	windows map[string]*window
}

// NewMemory keeps counters in process. Used when Redis is not configured.
func NewMemory(limit int, w time.Duration) Limiter {
	return newMemory(limit, w, time.Now)
}

func newMemory(limit int, w time.Duration, now func() time.Time) *memoryLimiter {
	return &memoryLimiter{limit: limit, window: w, now: now, windows: make(map[string]*window)}
}

func (l *memoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	start := now.Truncate(l.window)

	w, ok := l.windows[key]
	if !ok || !w.start.Equal(start) {
		w = &window{start: start}
		l.windows[key] = w
		l.gc(start)
	}

	if w.count >= l.limit {
		return Result{Allowed: false, RetryAfter: start.Add(l.window).Sub(now)}, nil
	}
	w.count++
	return Result{Allowed: true, Remaining: l.limit - w.count}, nil
}

// gc drops windows older than the current one so idle keys do not accumulate.
func (l *memoryLimiter) gc(current time.Time) {
	if len(l.windows) < 1024 {
		return
	}
	for k, w := range l.windows {
		if w.start.Before(current) {
			delete(l.windows, k)
		}
	}
}
