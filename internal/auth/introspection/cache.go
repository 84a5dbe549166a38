package introspection

import (
	"sync"
	"time"

	authDomain "github.com/allisson/scimgate/internal/auth/domain"
)

// validationCache is a small TTL cache for validation results, keyed by the
// SHA-256 of the token value. Entries never outlive the token's own
// expiration; the staleness window is bounded by the configured TTL.
type validationCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	validated *authDomain.ValidatedToken
	expiresAt time.Time
}

func newValidationCache() *validationCache {
	return &validationCache{
		entries: make(map[string]cacheEntry),
	}
}

// get returns a cached validation result if present and not expired.
// Expired entries are evicted lazily.
func (c *validationCache) get(key string, now time.Time) (*authDomain.ValidatedToken, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if now.After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.validated, true
}

// put stores a validation result until the given expiry.
func (c *validationCache) put(key string, validated *authDomain.ValidatedToken, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{validated: validated, expiresAt: expiresAt}
}

// purge drops all entries. Called after a revocation so stale validation
// results cannot outlive the revoked tokens.
func (c *validationCache) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]cacheEntry)
}
