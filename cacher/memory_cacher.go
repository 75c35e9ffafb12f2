package cacher

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cyberinferno/syncutils/logger"
	"github.com/cyberinferno/syncutils/safemap"
	"github.com/cyberinferno/syncutils/singlecall"
	"golang.org/x/sync/singleflight"
)

// item is a cached value with its absolute expiry in UnixNano; 0 means never.
type item[T any] struct {
	value     T
	expiresAt int64
}

func (i item[T]) expired(now int64) bool {
	return i.expiresAt > 0 && now > i.expiresAt
}

// MemoryCacher is an in-memory implementation of the Cacher interface.
// Items live in a safemap.SafeMap, so cache hits take no lock. singleflight
// prevents cache stampede (thundering herd) when many goroutines miss the
// same key at once. Expired items are dropped lazily on access and, if a
// cleanup interval is set, by a background janitor.
type MemoryCacher[T any] struct {
	items             safemap.SafeMap[string, item[T]]
	group             singleflight.Group
	defaultExpiration time.Duration
	logger            logger.Logger

	sweep     singlecall.Guard
	stop      chan struct{}
	stopOnce  sync.Once
	janitorWg sync.WaitGroup
}

// NewMemoryCacher creates a new in-memory cache instance with the specified
// default expiration and cleanup interval.
//
// Parameters:
//   - defaultExpiration: TTL used when GetOrFetch is called with DefaultExpiration
//     (use NoExpiration for items that never expire)
//   - cleanupInterval: Interval at which expired items are removed; <= 0 disables the janitor
//
// Returns:
//   - A new MemoryCacher; call Close to stop its janitor
func NewMemoryCacher[T any](defaultExpiration, cleanupInterval time.Duration) *MemoryCacher[T] {
	return NewMemoryCacherWithLogger[T](defaultExpiration, cleanupInterval, nil)
}

// NewMemoryCacherWithLogger is like NewMemoryCacher but reports fetch
// failures and janitor sweeps to log.
//
// Parameters:
//   - defaultExpiration: TTL used when GetOrFetch is called with DefaultExpiration
//   - cleanupInterval: Interval at which expired items are removed; <= 0 disables the janitor
//   - log: Destination for diagnostic messages; nil discards them
//
// Returns:
//   - A new MemoryCacher; call Close to stop its janitor
func NewMemoryCacherWithLogger[T any](defaultExpiration, cleanupInterval time.Duration, log logger.Logger) *MemoryCacher[T] {
	if defaultExpiration == DefaultExpiration {
		defaultExpiration = NoExpiration
	}

	c := &MemoryCacher[T]{
		defaultExpiration: defaultExpiration,
		logger:            logger.OrNop(log).With(logger.Field{Key: "component", Value: "cacher"}),
		stop:              make(chan struct{}),
	}

	if cleanupInterval > 0 {
		c.janitorWg.Add(1)
		go c.janitor(cleanupInterval)
	}

	return c
}

// GetOrFetch retrieves a value from the cache, or fetches it using the provided
// function if it's not cached. The singleflight group ensures that for concurrent
// requests to the same key, only one fetch operation is executed.
//
// Parameters:
//   - ctx: Context for cancellation and timeout control
//   - key: The cache key to retrieve or set
//   - ttl: Time-to-live for the fetched value; DefaultExpiration or NoExpiration
//   - fetchFn: Function to fetch the value if not in cache
//
// Returns:
//   - The cached or fetched value of type T
//   - An error if fetching fails
func (c *MemoryCacher[T]) GetOrFetch(
	ctx context.Context,
	key string,
	ttl time.Duration,
	fetchFn FetchFunc[T],
) (T, error) {
	var zero T

	if val, found := c.get(key); found {
		return val, nil
	}

	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Another goroutine may have populated the key while we queued.
		if cachedVal, found := c.get(key); found {
			return cachedVal, nil
		}

		fetchedVal, err := fetchFn(ctx)
		if err != nil {
			c.logger.Warn("fetch failed", logger.Field{Key: "key", Value: key}, logger.Field{Key: "error", Value: err})
			return zero, err
		}

		c.set(key, fetchedVal, ttl)
		return fetchedVal, nil
	})

	if err != nil {
		return zero, err
	}

	typedVal, ok := val.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected type in cache for key %s", key)
	}

	return typedVal, nil
}

// get returns the value for key if present and unexpired.
func (c *MemoryCacher[T]) get(key string) (T, bool) {
	it, found := c.items.Load(key)
	if !found {
		var zero T
		return zero, false
	}

	if it.expired(time.Now().UnixNano()) {
		var zero T
		return zero, false
	}

	return it.value, true
}

func (c *MemoryCacher[T]) set(key string, value T, ttl time.Duration) {
	if ttl == DefaultExpiration {
		ttl = c.defaultExpiration
	}

	var expiresAt int64
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).UnixNano()
	}

	c.items.Store(key, item[T]{value: value, expiresAt: expiresAt})
}

// Delete removes a key from the cache.
func (c *MemoryCacher[T]) Delete(ctx context.Context, key string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	c.items.Delete(key)
	return nil
}

// Clear removes all items from the cache.
func (c *MemoryCacher[T]) Clear(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	c.items.Reset()
	return nil
}

// ItemCount returns the number of unexpired items in the cache.
func (c *MemoryCacher[T]) ItemCount(ctx context.Context) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	now := time.Now().UnixNano()
	count := 0
	c.items.Range(func(_ string, it item[T]) bool {
		if !it.expired(now) {
			count++
		}
		return true
	})

	return count, nil
}

// DeleteByPrefix deletes all keys with the given prefix.
func (c *MemoryCacher[T]) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	deletedCount := 0
	var err error
	c.items.Range(func(key string, _ item[T]) bool {
		// Check context cancellation during iteration
		select {
		case <-ctx.Done():
			err = ctx.Err()
			return false
		default:
		}

		if strings.HasPrefix(key, prefix) {
			if _, deleted := c.items.Delete(key); deleted {
				deletedCount++
			}
		}
		return true
	})

	return deletedCount, err
}

// DeleteExpired removes every expired item. Concurrent calls, including the
// janitor's, are collapsed: a call made while a sweep is running returns
// immediately with 0.
//
// Returns:
//   - The number of items removed
func (c *MemoryCacher[T]) DeleteExpired() int {
	removed := 0
	c.sweep.Call(func() {
		now := time.Now().UnixNano()
		c.items.Range(func(key string, it item[T]) bool {
			if it.expired(now) {
				c.items.Delete(key)
				removed++
			}
			return true
		})
	})

	return removed
}

// Close stops the janitor, if any. The cache stays usable afterwards.
func (c *MemoryCacher[T]) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	c.janitorWg.Wait()
	return nil
}

// janitor runs in a goroutine and removes expired items every interval.
func (c *MemoryCacher[T]) janitor(interval time.Duration) {
	defer c.janitorWg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if n := c.DeleteExpired(); n > 0 {
				c.logger.Debug("expired items removed", logger.Field{Key: "count", Value: n})
			}
		}
	}
}
