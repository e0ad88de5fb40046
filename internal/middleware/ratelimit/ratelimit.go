// Package ratelimit throttles ledger writes per client IP.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const window = time.Minute

// Decision is the outcome of one counted request.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration // zero when allowed
}

// Limiter counts requests per client in fixed one-minute windows. A window
// opens with the client's first request, so steady traffic never slides it.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*clientWindow
	now     func() time.Time

	limit      int
	staleAfter time.Duration
	rejected   atomic.Int64

	stop     chan struct{}
	stopOnce sync.Once
}

type clientWindow struct {
	opened   time.Time
	lastSeen time.Time
	count    int
}

type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
	// Methods limits throttling to these methods. Empty means all.
	Methods []string
}

// DefaultConfig limits ledger writes to 60 per minute per client.
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
		Methods:           []string{http.MethodPost, http.MethodPut},
	}
}

// NewLimiter starts a limiter and its cleanup goroutine; call Stop to end it.
func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}

	rl := &Limiter{
		windows:    make(map[string]*clientWindow),
		now:        time.Now,
		limit:      config.RequestsPerMinute,
		staleAfter: 10 * time.Minute,
		stop:       make(chan struct{}),
	}
	go rl.cleanupLoop(config.CleanupInterval)
	return rl
}

// Take counts one request from client and decides on it.
func (rl *Limiter) Take(client string) Decision {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[client]
	if !ok || now.Sub(w.opened) >= window {
		w = &clientWindow{opened: now}
		rl.windows[client] = w
	}
	w.count++
	w.lastSeen = now

	d := Decision{Allowed: w.count <= rl.limit, Limit: rl.limit, Remaining: max(rl.limit-w.count, 0)}
	if !d.Allowed {
		d.RetryAfter = w.opened.Add(window).Sub(now)
		rl.rejected.Add(1)
	}
	return d
}

// Allow is Take reduced to its verdict.
func (rl *Limiter) Allow(client string) bool {
	return rl.Take(client).Allowed
}

func (rl *Limiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.dropIdle()
		case <-rl.stop:
			return
		}
	}
}

// dropIdle forgets clients idle for longer than staleAfter.
func (rl *Limiter) dropIdle() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.staleAfter)
	n := 0
	for client, w := range rl.windows {
		if w.lastSeen.Before(cutoff) {
			delete(rl.windows, client)
			n++
		}
	}
	return n
}

func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

// Rejected counts requests refused since start.
func (rl *Limiter) Rejected() int64 {
	return rl.rejected.Load()
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (rl *Limiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Middleware counts requests whose method is in methods and answers the
// rejected ones through onLimit, or a plain 429 when onLimit is nil. Every
// counted response carries X-RateLimit-Limit and X-RateLimit-Remaining.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, methods []string, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	counted := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		counted[m] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := counted[r.Method]; len(counted) > 0 && !ok {
				next.ServeHTTP(w, r)
				return
			}

			d := rl.Take(extractIP(r))
			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if d.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			h.Set("Retry-After", strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
			if onLimit == nil {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			onLimit(w, r)
		})
	}
}
