package auth

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig contains configuration for the login lockout.
type RateLimitConfig struct {
	MaxAttempts     int           // Failures within the window that lock the pair (default: 5)
	WindowDuration  time.Duration // Sliding window for counting failures (default: 15m)
	LockoutDuration time.Duration // Lock length once the limit is reached (default: 30m)
	CleanupInterval time.Duration // How often idle entries are dropped (default: 5m)
}

// DefaultRateLimitConfig returns the production lockout settings.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxAttempts:     5,
		WindowDuration:  15 * time.Minute,
		LockoutDuration: 30 * time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

func (cfg RateLimitConfig) withDefaults() RateLimitConfig {
	def := DefaultRateLimitConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.WindowDuration <= 0 {
		cfg.WindowDuration = def.WindowDuration
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = def.LockoutDuration
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	return cfg
}

// RateLimiter locks out password logins per client IP and identity after
// repeated failures. Failures are counted in a sliding window.
type RateLimiter struct {
	cfg RateLimitConfig
	now func() time.Time

	mu      sync.Mutex
	entries map[loginKey]*loginFailures

	stop     chan struct{}
	stopOnce sync.Once
}

type loginKey struct {
	ip       string
	identity string
}

type loginFailures struct {
	at          []time.Time
	lockedUntil time.Time
}

// recent drops failures that fell out of the window and returns the rest.
func (f *loginFailures) recent(now time.Time, window time.Duration) []time.Time {
	kept := f.at[:0]
	for _, t := range f.at {
		if now.Sub(t) < window {
			kept = append(kept, t)
		}
	}
	f.at = kept
	return kept
}

// NewRateLimiter starts a limiter. Call Stop to end its janitor goroutine.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		cfg:     cfg.withDefaults(),
		now:     time.Now,
		entries: make(map[loginKey]*loginFailures),
		stop:    make(chan struct{}),
	}
	go rl.janitor()
	return rl
}

// Stop ends the janitor goroutine. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Allow reports whether a login attempt may proceed. While the pair is
// locked it returns false and the remaining lock time.
func (rl *RateLimiter) Allow(ip, identity string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	f, ok := rl.entries[loginKey{ip, identity}]
	if !ok {
		return true, 0
	}
	if now.Before(f.lockedUntil) {
		return false, f.lockedUntil.Sub(now)
	}
	if len(f.recent(now, rl.cfg.WindowDuration)) >= rl.cfg.MaxAttempts {
		return false, rl.cfg.LockoutDuration
	}
	return true, 0
}

// RecordFailure counts a failed login. It returns true and the lock length
// when this failure locks the pair.
func (rl *RateLimiter) RecordFailure(ip, identity string) (bool, time.Duration) {
	now := rl.now()
	key := loginKey{ip, identity}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	f, ok := rl.entries[key]
	if !ok {
		f = &loginFailures{}
		rl.entries[key] = f
	}
	f.at = append(f.recent(now, rl.cfg.WindowDuration), now)

	if len(f.at) >= rl.cfg.MaxAttempts {
		f.lockedUntil = now.Add(rl.cfg.LockoutDuration)
		f.at = nil
		return true, rl.cfg.LockoutDuration
	}
	return false, 0
}

// RecordSuccess forgets the failures of the pair.
func (rl *RateLimiter) RecordSuccess(ip, identity string) {
	rl.mu.Lock()
	delete(rl.entries, loginKey{ip, identity})
	rl.mu.Unlock()
}

func (rl *RateLimiter) janitor() {
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stop:
			return
		}
	}
}

// sweep drops entries that are neither locked nor hold recent failures.
func (rl *RateLimiter) sweep() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, f := range rl.entries {
		if now.Before(f.lockedUntil) {
			continue
		}
		if len(f.recent(now, rl.cfg.WindowDuration)) == 0 {
			delete(rl.entries, key)
		}
	}
}

// ClientLimiter throttles an endpoint per client IP with a token bucket.
type ClientLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientEntry
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewClientLimiter allows perMinute requests per client, bursting to the same amount.
func NewClientLimiter(perMinute int) *ClientLimiter {
	if perMinute <= 0 {
		perMinute = 3
	}
	return &ClientLimiter{
		limiters: make(map[string]*clientEntry),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		idleTTL:  10 * time.Minute,
	}
}

// Allow consumes one token for the client.
func (cl *ClientLimiter) Allow(client string) bool {
	now := time.Now()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	for key, entry := range cl.limiters {
		if now.Sub(entry.lastSeen) > cl.idleTTL {
			delete(cl.limiters, key)
		}
	}

	entry, ok := cl.limiters[client]
	if !ok {
		entry = &clientEntry{limiter: rate.NewLimiter(cl.limit, cl.burst)}
		cl.limiters[client] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// Middleware answers 429 once the client has used up its budget.
func (cl *ClientLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cl.Allow(c.ClientIP()) {
			retryAfter := time.Duration(float64(time.Second) / float64(cl.limit))
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, please try again later"})
			return
		}
		c.Next()
	}
}
