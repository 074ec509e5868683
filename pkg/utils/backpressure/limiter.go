package backpressure

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/rzzdr/option-pricing-engine/pkg/utils/logger"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter keeps one token bucket per key, typically a client address
type KeyedLimiter struct {
	rate    rate.Limit
	burst   int
	idle    time.Duration
	mu      sync.Mutex
	buckets map[string]*entry
	now     func() time.Time
	log     *logger.Logger
}

// NewKeyedLimiter allows rps sustained requests per key with the given
// burst. Buckets unused for longer than idle are dropped by Sweep.
func NewKeyedLimiter(rps float64, burst int, idle time.Duration) *KeyedLimiter {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 1
	}
	if idle <= 0 {
		idle = 10 * time.Minute
	}

	l := &KeyedLimiter{
		rate:    rate.Limit(rps),
		burst:   burst,
		idle:    idle,
		buckets: make(map[string]*entry),
		now:     time.Now,
		log:     logger.GetLogger("backpressure.limiter"),
	}

	l.log.Infof("Keyed rate limiter created with rate=%.2f, burst=%d", rps, burst)
	return l
}

// Allow reports whether one request for key may proceed now
func (l *KeyedLimiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	e, ok := l.buckets[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.buckets[key] = e
	}
	e.lastSeen = now
	l.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

// Sweep drops buckets idle for longer than the configured period and
// returns how many were removed
func (l *KeyedLimiter) Sweep() int {
	cutoff := l.now().Add(-l.idle)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, e := range l.buckets {
		if e.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys
func (l *KeyedLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
