// Package introspection implements the outbound client for the authorization
// server: token validation, read-only token introspection, and the revocation
// gateway.
//
// Every validation is a synchronous out-of-process call; the request handler
// suspends until the call returns or its deadline expires. A deadline overrun
// surfaces ErrUpstreamUnavailable, never an indefinite hang. Concurrent
// requests carrying the same token share a single upstream round trip via
// singleflight.
package introspection

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	authDomain "github.com/allisson/scimgate/internal/auth/domain"
	apperrors "github.com/allisson/scimgate/internal/errors"
)

// Config holds the explicit connector configuration for the introspection
// client. These are constructor parameters, never mutated process globals.
type Config struct {
	// BaseURL is the authorization server base URL.
	BaseURL string
	// MaxConnections is the total outbound connection pool size.
	MaxConnections int
	// MaxConnectionsPerHost limits connections per upstream host.
	MaxConnectionsPerHost int
	// ConnectTimeout is the TCP connect timeout.
	ConnectTimeout time.Duration
	// ReadTimeout is the end-to-end deadline for one upstream call.
	ReadTimeout time.Duration
	// CacheTTL bounds reuse of validation results. Zero disables caching and
	// every request pays one introspection round trip. The effective TTL is
	// capped by the token's own expiration.
	CacheTTL time.Duration
}

// Client talks to the authorization server. It is safe for concurrent use;
// the underlying connection pool is bounded by Config.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	cache       *validationCache
	cacheTTL    time.Duration
	readTimeout time.Duration
	group       singleflight.Group
	logger      *slog.Logger
}

// NewClient creates an introspection client with a bounded connection pool
// sized and timed out per the given configuration.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, apperrors.Wrap(err, "invalid authorization server url")
	}

	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConns:        cfg.MaxConnections,
		MaxConnsPerHost:     cfg.MaxConnectionsPerHost,
		MaxIdleConnsPerHost: cfg.MaxConnectionsPerHost,
		IdleConnTimeout:     90 * time.Second,
	}

	var cache *validationCache
	if cfg.CacheTTL > 0 {
		cache = newValidationCache()
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.ReadTimeout,
		},
		cache:       cache,
		cacheTTL:    cfg.CacheTTL,
		readTimeout: cfg.ReadTimeout,
		logger:      logger,
	}, nil
}

// introspectionResponse is the wire format of the authorization server's
// introspection endpoint (RFC 7662 shape).
type introspectionResponse struct {
	Active   bool   `json:"active"`
	Sub      string `json:"sub,omitempty"`
	Username string `json:"username,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	Scope    string `json:"scope,omitempty"`
	Exp      int64  `json:"exp,omitempty"`
}

// Validate introspects the given bearer token with the authorization server
// and returns the validated token on success.
//
// Failure modes are distinguishable by sentinel:
//   - apperrors.ErrInvalidToken: the authority rejected the token (malformed,
//     unknown, revoked, inactive, or expired).
//   - apperrors.ErrUpstreamUnavailable: the call could not complete (network
//     failure, timeout, non-2xx infrastructure error).
func (c *Client) Validate(ctx context.Context, token string) (*authDomain.ValidatedToken, error) {
	if token == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidToken, "empty token")
	}

	key := cacheKey(token)

	if c.cache != nil {
		if validated, ok := c.cache.get(key, time.Now()); ok {
			return validated, nil
		}
	}

	// Collapse concurrent validations of the same token into one round trip.
	// The flight is shared by every caller waiting on this key, so it must
	// outlive any single caller's context: detach from the initiating request
	// and bound the call by the client's own read timeout instead.
	result, err, _ := c.group.Do(key, func() (any, error) {
		flightCtx := context.WithoutCancel(ctx)
		if c.readTimeout > 0 {
			var cancel context.CancelFunc
			flightCtx, cancel = context.WithTimeout(flightCtx, c.readTimeout)
			defer cancel()
		}
		return c.introspect(flightCtx, token)
	})
	if err != nil {
		return nil, err
	}
	validated := result.(*authDomain.ValidatedToken)

	if c.cache != nil {
		ttl := c.cacheTTL
		if remaining := time.Until(validated.ExpiresAt); !validated.ExpiresAt.IsZero() && remaining < ttl {
			ttl = remaining
		}
		if ttl > 0 {
			c.cache.put(key, validated, time.Now().Add(ttl))
		}
	}

	return validated, nil
}

// ReadAccessToken is the read-only introspection variant used by the
// token-introspection endpoint. It mutates no token state and re-derives
// scopes fresh from the same introspection call.
func (c *Client) ReadAccessToken(ctx context.Context, token string) (*authDomain.TokenMetadata, error) {
	validated, err := c.introspect(ctx, token)
	if err != nil {
		return nil, err
	}

	return &authDomain.TokenMetadata{
		Scopes:    validated.Scopes,
		ExpiresAt: validated.ExpiresAt,
		TokenType: "BEARER",
	}, nil
}

// RevokeAccessTokens forwards a revoke-all-tokens command for the given user
// to the authorization server, authenticated with the caller's own token.
// The authority authorizes the action for the caller. Idempotent: revoking an
// already-fully-revoked user succeeds silently.
func (c *Client) RevokeAccessTokens(ctx context.Context, userID, callerToken string) error {
	endpoint := fmt.Sprintf("%s/token/revocation/user/%s", c.baseURL, url.PathEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return apperrors.Wrap(err, "failed to build revocation request")
	}
	req.Header.Set("Authorization", "Bearer "+callerToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrUpstreamUnavailable, err.Error())
	}
	defer drainAndClose(resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if c.cache != nil {
			c.cache.purge()
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		// Nothing left to revoke. Revocation is idempotent.
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apperrors.Wrapf(apperrors.ErrForbidden, "revocation rejected with status %d", resp.StatusCode)
	default:
		return apperrors.Wrapf(
			apperrors.ErrUpstreamUnavailable,
			"revocation failed with status %d",
			resp.StatusCode,
		)
	}
}

// introspect performs one introspection round trip and maps the response to a
// ValidatedToken.
func (c *Client) introspect(ctx context.Context, token string) (*authDomain.ValidatedToken, error) {
	endpoint := c.baseURL + "/oauth2/introspect"
	form := url.Values{"token": {token}}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		endpoint,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to build introspection request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network failures, connect timeouts, and deadline overruns all land
		// here. They are infrastructure failures, never a token verdict.
		return nil, apperrors.Wrap(apperrors.ErrUpstreamUnavailable, err.Error())
	}
	defer drainAndClose(resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// Fall through to decode.
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		return nil, apperrors.Wrapf(
			apperrors.ErrInvalidToken,
			"authorization server rejected the token with status %d",
			resp.StatusCode,
		)
	default:
		return nil, apperrors.Wrapf(
			apperrors.ErrUpstreamUnavailable,
			"introspection failed with status %d",
			resp.StatusCode,
		)
	}

	var wire introspectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrUpstreamUnavailable, "malformed introspection response")
	}

	if !wire.Active {
		return nil, apperrors.Wrap(apperrors.ErrInvalidToken, "token is not active")
	}

	var expiresAt time.Time
	if wire.Exp > 0 {
		expiresAt = time.Unix(wire.Exp, 0)
	}

	validated := &authDomain.ValidatedToken{
		Value:     token,
		UserID:    wire.Sub,
		Username:  wire.Username,
		ClientID:  wire.ClientID,
		Scopes:    authDomain.NewScopeSet(strings.Fields(wire.Scope)...),
		ExpiresAt: expiresAt,
	}

	if validated.IsExpired(time.Now()) {
		return nil, apperrors.Wrap(apperrors.ErrInvalidToken, "token is expired")
	}

	c.logger.Debug("token validated",
		slog.String("client_id", validated.ClientID),
		slog.Bool("client_only", validated.IsClientOnly()),
		slog.Int("scope_count", len(validated.Scopes)),
	)

	return validated, nil
}

// cacheKey hashes the token value so raw tokens are never kept as map keys.
func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// drainAndClose drains the response body so the connection can be reused by
// the pool.
func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
	_ = body.Close()
}
