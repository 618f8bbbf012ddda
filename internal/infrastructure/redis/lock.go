package redis

import (
	"context"
	"fmt"
	"time"

	domainErrors "github.com/merchantkit/unionpay-bridge/internal/domain/errors"
	"github.com/merchantkit/unionpay-bridge/internal/infrastructure/observability"
	"github.com/merchantkit/unionpay-bridge/pkg/retry"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// Lua script for safe lock release (only owner can release)
	releaseLockScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`)

	// Lua script for lock extension
	extendLockScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("pexpire", KEYS[1], ARGV[2])
		else
			return 0
		end
	`)
)

// DistributedLock is a single-owner lock on a Redis key.
type DistributedLock struct {
	client   *redis.Client
	key      string
	value    string
	ttl      time.Duration
	acquired bool
}

// NewDistributedLock creates a new distributed lock
func NewDistributedLock(client *redis.Client, key string, ttl time.Duration) *DistributedLock {
	return &DistributedLock{
		client:   client,
		key:      fmt.Sprintf("lock:%s", key),
		value:    uuid.New().String(),
		ttl:      ttl,
		acquired: false,
	}
}

// Acquire attempts to acquire the lock
func (l *DistributedLock) Acquire(ctx context.Context) (bool, error) {
	// SET NX EX atomically sets the lock if it doesn't exist
	success, err := l.client.SetNX(ctx, l.key, l.value, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}

	l.acquired = success
	return success, nil
}

// Extend extends the lock TTL
func (l *DistributedLock) Extend(ctx context.Context, additionalTTL time.Duration) error {
	if !l.acquired {
		return domainErrors.ErrLockNotHeld
	}

	result, err := extendLockScript.Run(
		ctx,
		l.client,
		[]string{l.key},
		l.value,
		additionalTTL.Milliseconds(),
	).Result()
	if err != nil {
		return fmt.Errorf("failed to extend lock: %w", err)
	}

	val, ok := result.(int64)
	if !ok || val == 0 {
		return domainErrors.ErrLockNotHeld
	}

	return nil
}

// Release releases the lock
func (l *DistributedLock) Release(ctx context.Context) error {
	if !l.acquired {
		return nil
	}

	result, err := releaseLockScript.Run(
		ctx,
		l.client,
		[]string{l.key},
		l.value,
	).Result()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}

	val, ok := result.(int64)
	if !ok || val == 0 {
		return domainErrors.ErrLockNotHeld
	}

	l.acquired = false
	return nil
}

// OrderLocker serializes all writers for a given order id across bridge
// instances. It satisfies the service layer's OrderLocker port.
type OrderLocker struct {
	client     *redis.Client
	ttl        time.Duration
	maxRetries int
	retryDelay time.Duration
	metrics    *observability.Metrics
}

// NewOrderLocker creates a Redis-backed per-order locker. metrics may be nil.
func NewOrderLocker(client *redis.Client, ttl time.Duration, maxRetries int, retryDelay time.Duration, metrics *observability.Metrics) *OrderLocker {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	if retryDelay <= 0 {
		retryDelay = 100 * time.Millisecond
	}
	return &OrderLocker{client: client, ttl: ttl, maxRetries: maxRetries, retryDelay: retryDelay, metrics: metrics}
}

// WithOrderLock runs fn while holding the order's lock. Acquisition is
// retried with backoff; exhaustion maps to ErrLockAcquisitionFailed.
func (o *OrderLocker) WithOrderLock(ctx context.Context, orderID string, fn func(ctx context.Context) error) error {
	lock := NewDistributedLock(o.client, "order:"+orderID, o.ttl)

	err := retry.Do(ctx, retry.Config{
		MaxAttempts:  uint(o.maxRetries),
		InitialDelay: o.retryDelay,
		MaxDelay:     o.ttl,
		Multiplier:   2.0,
	}, func() error {
		acquired, err := lock.Acquire(ctx)
		if err != nil {
			return err
		}
		if !acquired {
			return domainErrors.ErrLockAcquisitionFailed
		}
		return nil
	})
	if err != nil {
		if o.metrics != nil {
			o.metrics.LockAcquireFailures.Inc()
		}
		return fmt.Errorf("lock order %s: %w", orderID, domainErrors.ErrLockAcquisitionFailed)
	}
	defer lock.Release(ctx)

	return fn(ctx)
}
