package server

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/simonjohansson/taskboard/internal/auth"
)

const limiterIdleTTL = 10 * time.Minute

type identityLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// rateLimiter throttles mutating requests per identity, falling back to the
// remote address for anonymous callers.
type rateLimiter struct {
	limit  rate.Limit
	burst  int
	logger *slog.Logger

	mu       sync.Mutex
	limiters map[string]*identityLimiter

	stopOnce sync.Once
	stopCh   chan struct{}
}

func newRateLimiter(limit rate.Limit, burst int, logger *slog.Logger) *rateLimiter {
	if burst <= 0 {
		burst = int(math.Max(1, math.Ceil(float64(limit))))
	}
	rl := &rateLimiter{
		limit:    limit,
		burst:    burst,
		logger:   logger,
		limiters: make(map[string]*identityLimiter),
		stopCh:   make(chan struct{}),
	}
	if rl.enabled() {
		go rl.cleanupLoop()
	}
	return rl
}

func (rl *rateLimiter) enabled() bool {
	return rl.limit > 0
}

func (rl *rateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *rateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.enabled() || !isMutating(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		key := r.RemoteAddr
		if identity, ok := auth.IdentityFrom(r.Context()); ok {
			key = "user:" + strconv.FormatInt(int64(identity), 10)
		}
		if !rl.get(key).Allow() {
			rl.logger.Warn("rate limit exceeded", "key", key, "method", r.Method, "path", r.URL.Path)
			retryAfter := int(math.Ceil(1.0 / float64(rl.limit)))
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *rateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	entry, ok := rl.limiters[key]
	if !ok {
		entry = &identityLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastAccess = time.Now()
	return entry.limiter
}

func (rl *rateLimiter) cleanupLoop() {
	ticker := time.NewTicker(limiterIdleTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *rateLimiter) cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, entry := range rl.limiters {
		if now.Sub(entry.lastAccess) > limiterIdleTTL {
			delete(rl.limiters, key)
		}
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}
