// Package http provides HTTP middleware and utilities for authentication.
package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	authDomain "github.com/allisson/scimgate/internal/auth/domain"
	apperrors "github.com/allisson/scimgate/internal/errors"
	"github.com/allisson/scimgate/internal/httputil"
)

const (
	// limiterSweepInterval is the minimum interval between stale-limiter sweeps.
	limiterSweepInterval = 5 * time.Minute
	// limiterMaxIdle is how long an untouched limiter survives before a sweep
	// removes it.
	limiterMaxIdle = time.Hour
)

// rateLimiterStore holds per-principal rate limiters. Stale limiters are
// swept opportunistically on the request path, so the store needs no
// background goroutine and dies with the handler that owns it.
type rateLimiterStore struct {
	limiters sync.Map // map[string]*rateLimiterEntry
	rps      float64
	burst    int

	sweepMu   sync.Mutex
	lastSweep time.Time
}

// rateLimiterEntry holds a rate limiter and last access time for cleanup.
type rateLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
	mu         sync.Mutex
}

// RateLimitMiddleware enforces per-principal rate limiting on authenticated requests.
//
// MUST be used after AuthenticationMiddleware (requires authenticated principal
// in context). Uses token bucket algorithm via golang.org/x/time/rate. Each
// principal gets an independent rate limiter: user tokens are keyed by user id,
// client-only tokens by client id.
//
// Configuration:
//   - rps: Requests per second allowed per principal
//   - burst: Maximum burst capacity for temporary spikes
//
// Returns:
//   - 429 Too Many Requests: Rate limit exceeded (includes Retry-After header)
//   - Continues: Request allowed within rate limit
func RateLimitMiddleware(rps float64, burst int, logger *slog.Logger) gin.HandlerFunc {
	store := &rateLimiterStore{
		rps:       rps,
		burst:     burst,
		lastSweep: time.Now(),
	}

	return func(c *gin.Context) {
		store.maybeSweep(time.Now())

		principal, ok := GetPrincipal(c.Request.Context())
		if !ok || principal == nil {
			// Should never happen - authentication middleware should have caught this
			logger.Error("rate limit middleware: no authenticated principal in context")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		key := limiterKey(principal)
		limiter := store.getLimiter(key)

		if !limiter.Allow() {
			// Calculate retry-after delay
			reservation := limiter.Reserve()
			retryAfter := int(reservation.Delay().Seconds())
			reservation.Cancel()

			logger.Debug("rate limit exceeded",
				slog.String("principal", key),
				slog.Int("retry_after", retryAfter))

			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Too many requests. Please retry after the specified delay.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// limiterKey derives the rate limiting key for a principal. Users are limited
// individually even when they share an OAuth client.
func limiterKey(principal authDomain.Principal) string {
	if user, ok := principal.(authDomain.UserPrincipal); ok {
		return "user:" + user.UserID
	}
	return "client:" + principal.AuthClientID()
}

// getLimiter retrieves or creates a rate limiter for a principal key.
func (s *rateLimiterStore) getLimiter(key string) *rate.Limiter {
	if val, ok := s.limiters.Load(key); ok {
		entry := val.(*rateLimiterEntry)
		entry.mu.Lock()
		entry.lastAccess = time.Now()
		entry.mu.Unlock()
		return entry.limiter
	}

	limiter := rate.NewLimiter(rate.Limit(s.rps), s.burst)
	entry := &rateLimiterEntry{
		limiter:    limiter,
		lastAccess: time.Now(),
	}

	s.limiters.Store(key, entry)
	return limiter
}

// maybeSweep removes stale limiters when enough time has passed since the
// last sweep. At most one request pays the sweep cost per interval; the rest
// bail out on the mutex check.
func (s *rateLimiterStore) maybeSweep(now time.Time) {
	s.sweepMu.Lock()
	if now.Sub(s.lastSweep) < limiterSweepInterval {
		s.sweepMu.Unlock()
		return
	}
	s.lastSweep = now
	s.sweepMu.Unlock()

	s.sweep(now.Add(-limiterMaxIdle))
}

// sweep removes limiters not accessed since the threshold. Keeps the store
// bounded by the number of recently active principals.
func (s *rateLimiterStore) sweep(threshold time.Time) {
	s.limiters.Range(func(key, value interface{}) bool {
		entry := value.(*rateLimiterEntry)
		entry.mu.Lock()
		shouldDelete := entry.lastAccess.Before(threshold)
		entry.mu.Unlock()

		if shouldDelete {
			s.limiters.Delete(key)
		}
		return true
	})
}
