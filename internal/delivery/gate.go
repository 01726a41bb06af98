package delivery

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/catering-checkout/pkg/logger"
	pkgredis "github.com/angelmondragon/catering-checkout/pkg/redis"
)

// DefaultMinFetchInterval is the minimum gap between initiated quote fetches.
const DefaultMinFetchInterval = 500 * time.Millisecond

const throttleScope = "quote"

// Gate decides whether a quote fetch may be initiated for a key. Allow records
// the initiation when it returns true.
type Gate interface {
	Allow(ctx context.Context, key string) bool
}

// IntervalGate throttles in process.
type IntervalGate struct {
	interval time.Duration
	now      func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
}

// NewIntervalGate builds an in-process gate; a non-positive interval disables throttling.
func NewIntervalGate(interval time.Duration, now func() time.Time) *IntervalGate {
	if now == nil {
		now = time.Now
	}
	return &IntervalGate{interval: interval, now: now, last: map[string]time.Time{}}
}

func (g *IntervalGate) Allow(_ context.Context, key string) bool {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	if last, ok := g.last[key]; ok && g.interval > 0 && now.Sub(last) < g.interval {
		return false
	}
	g.last[key] = now
	return true
}

// Forget drops the recorded initiation for key.
func (g *IntervalGate) Forget(key string) {
	g.mu.Lock()
	delete(g.last, key)
	g.mu.Unlock()
}

// RedisGate throttles across API replicas with SET NX PX; the key expiring is the interval elapsing.
type RedisGate struct {
	store    pkgredis.ThrottleStore
	interval time.Duration
	logg     *logger.Logger
}

// NewRedisGate builds a gate backed by Redis.
func NewRedisGate(store pkgredis.ThrottleStore, interval time.Duration, logg *logger.Logger) *RedisGate {
	return &RedisGate{store: store, interval: interval, logg: logg}
}

func (g *RedisGate) Allow(ctx context.Context, key string) bool {
	if g.store == nil || g.interval <= 0 {
		return true
	}
	ok, err := g.store.SetNX(ctx, g.store.ThrottleKey(throttleScope, key), time.Now().UTC().Format(time.RFC3339Nano), g.interval)
	if err != nil {
		// fail open: a redis outage must not block checkout
		g.logg.Error(ctx, "quote throttle unavailable", err)
		return true
	}
	return ok
}
