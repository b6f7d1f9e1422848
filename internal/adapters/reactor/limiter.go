package reactor

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdle = 10 * time.Minute

type addressEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

// AddressLimiter throttles new connections per remote address. A nil
// limiter allows everything.
type AddressLimiter struct {
	mu        sync.Mutex
	entries   map[string]*addressEntry
	limit     rate.Limit
	burst     int
	lastPrune time.Time
}

// NewAddressLimiter returns nil when perSecond is not positive.
func NewAddressLimiter(perSecond float64, burst int) *AddressLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &AddressLimiter{
		entries:   make(map[string]*addressEntry),
		limit:     rate.Limit(perSecond),
		burst:     burst,
		lastPrune: time.Now(),
	}
}

func (l *AddressLimiter) Allow(addr string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastPrune) > limiterIdle {
		for a, e := range l.entries {
			if now.Sub(e.seen) > limiterIdle {
				delete(l.entries, a)
			}
		}
		l.lastPrune = now
	}

	e, ok := l.entries[addr]
	if !ok {
		e = &addressEntry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.entries[addr] = e
	}
	e.seen = now
	return e.lim.AllowN(now, 1)
}
