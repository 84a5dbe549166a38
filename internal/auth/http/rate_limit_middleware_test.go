package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	authDomain "github.com/allisson/scimgate/internal/auth/domain"
)

// rateLimitRouter wires the rate limit middleware behind a simulated
// authentication step for the given principal.
func rateLimitRouter(principal authDomain.Principal, rps float64, burst int) *gin.Engine {
	logger := createTestLogger()

	router := gin.New()
	router.Use(func(c *gin.Context) {
		ctx := WithPrincipal(c.Request.Context(), principal)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	router.Use(RateLimitMiddleware(rps, burst, logger))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func TestRateLimitMiddleware_AllowsRequestsWithinLimit(t *testing.T) {
	principal := authDomain.UserPrincipal{UserID: "7", Username: "jdoe", ClientID: "example-client"}
	router := rateLimitRouter(principal, 10.0, 20)

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimitMiddleware_BlocksRequestsExceedingLimit(t *testing.T) {
	principal := authDomain.UserPrincipal{UserID: "7", Username: "jdoe", ClientID: "example-client"}
	router := rateLimitRouter(principal, 1.0, 2)

	// Send requests up to burst capacity (should succeed)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	// Next request should be rate limited
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimitMiddleware_UsersLimitedIndependently(t *testing.T) {
	logger := createTestLogger()
	middleware := RateLimitMiddleware(1.0, 1, logger)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		// Principal comes from a header so two users can share the router.
		principal := authDomain.UserPrincipal{
			UserID:   c.GetHeader("X-Test-User"),
			ClientID: "example-client",
		}
		ctx := WithPrincipal(c.Request.Context(), principal)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	router.Use(middleware)
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	send := func(userID string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Test-User", userID)
		router.ServeHTTP(w, req)
		return w.Code
	}

	// First user consumes their burst.
	assert.Equal(t, http.StatusOK, send("alice"))
	assert.Equal(t, http.StatusTooManyRequests, send("alice"))

	// Second user is unaffected.
	assert.Equal(t, http.StatusOK, send("bob"))
}

func TestRateLimitMiddleware_NoPrincipalInContext(t *testing.T) {
	logger := createTestLogger()

	router := gin.New()
	router.Use(RateLimitMiddleware(10.0, 20, logger))
	router.GET("/test", func(c *gin.Context) {
		t.Fatal("handler should not be called without a principal")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRateLimiterStore_SweepRemovesIdleLimiters(t *testing.T) {
	store := &rateLimiterStore{rps: 10.0, burst: 20, lastSweep: time.Now()}
	store.getLimiter("user:alice")
	store.getLimiter("user:bob")

	// Age alice's limiter past the idle threshold.
	val, ok := store.limiters.Load("user:alice")
	assert.True(t, ok)
	entry := val.(*rateLimiterEntry)
	entry.mu.Lock()
	entry.lastAccess = time.Now().Add(-2 * limiterMaxIdle)
	entry.mu.Unlock()

	store.sweep(time.Now().Add(-limiterMaxIdle))

	_, ok = store.limiters.Load("user:alice")
	assert.False(t, ok, "idle limiter should be swept")
	_, ok = store.limiters.Load("user:bob")
	assert.True(t, ok, "active limiter should survive the sweep")
}

func TestRateLimiterStore_MaybeSweepHonorsInterval(t *testing.T) {
	store := &rateLimiterStore{rps: 10.0, burst: 20, lastSweep: time.Now()}
	store.getLimiter("user:alice")

	val, _ := store.limiters.Load("user:alice")
	entry := val.(*rateLimiterEntry)
	entry.mu.Lock()
	entry.lastAccess = time.Now().Add(-2 * limiterMaxIdle)
	entry.mu.Unlock()

	// A sweep just happened, so this call is a no-op even with a stale entry.
	store.maybeSweep(time.Now())
	_, ok := store.limiters.Load("user:alice")
	assert.True(t, ok)

	// Once the interval has elapsed the stale entry goes.
	store.maybeSweep(time.Now().Add(2 * limiterSweepInterval))
	_, ok = store.limiters.Load("user:alice")
	assert.False(t, ok)
}

func TestLimiterKey(t *testing.T) {
	user := authDomain.UserPrincipal{UserID: "7", ClientID: "example-client"}
	client := authDomain.ClientPrincipal{ClientID: "example-client"}

	assert.Equal(t, "user:7", limiterKey(user))
	assert.Equal(t, "client:example-client", limiterKey(client))
}
