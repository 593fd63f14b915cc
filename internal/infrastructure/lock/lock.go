// Package lock provides the run locks that keep a single scheduled pass or
// queue drain active at a time.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/domain"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/logger"
)

// RedisRunLock coordinates several service replicas.
type RedisRunLock struct {
	locker *redislock.Client
	ttl    time.Duration
	prefix string
	log    *logger.Logger
}

func NewRedisRunLock(rdb redis.UniversalClient, ttl time.Duration) *RedisRunLock {
	return &RedisRunLock{
		locker: redislock.New(rdb),
		ttl:    ttl,
		prefix: "storesync:lock:",
		log:    logger.Named("runlock"),
	}
}

// Acquire obtains name and keeps extending its TTL until released, so a pass
// that outlives the TTL keeps other replicas out.
func (l *RedisRunLock) Acquire(ctx context.Context, name string) (func(), error) {
	lk, err := l.locker.Obtain(ctx, l.prefix+name, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, domain.ErrLockNotObtained
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", name, err)
	}

	stop := keepAlive(refreshEvery(l.ttl), func(ctx context.Context) error {
		return lk.Refresh(ctx, l.ttl, nil)
	}, func(err error) {
		l.log.Warn().Err(err).Str("lock", name).Msg("refresh failed")
	})

	var once sync.Once
	return func() {
		once.Do(func() {
			stop()
			// context.Background: release even when the run was cancelled
			if err := lk.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				l.log.Warn().Err(err).Str("lock", name).Msg("release failed")
			}
		})
	}, nil
}

// refreshEvery leaves two refresh attempts inside one TTL.
func refreshEvery(ttl time.Duration) time.Duration {
	every := ttl / 3
	if every < time.Second {
		every = time.Second
	}
	return every
}

// keepAlive calls refresh every interval until the returned stop is called.
// stop waits for the loop to exit.
func keepAlive(every time.Duration, refresh func(context.Context) error, onErr func(error)) func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := refresh(ctx); err != nil && ctx.Err() == nil {
					onErr(err)
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// LocalRunLock is the single-process variant.
type LocalRunLock struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewLocalRunLock() *LocalRunLock {
	return &LocalRunLock{held: map[string]bool{}}
}

func (l *LocalRunLock) Acquire(_ context.Context, name string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[name] {
		return nil, domain.ErrLockNotObtained
	}
	l.held[name] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, name)
			l.mu.Unlock()
		})
	}, nil
}
