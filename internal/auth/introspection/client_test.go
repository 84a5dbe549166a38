package introspection

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/scimgate/internal/errors"
)

// createTestLogger creates a test logger that discards output.
func createTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestClient builds a client pointed at the given test server.
func newTestClient(t *testing.T, serverURL string, cacheTTL time.Duration) *Client {
	t.Helper()

	client, err := NewClient(Config{
		BaseURL:               serverURL,
		MaxConnections:        4,
		MaxConnectionsPerHost: 4,
		ConnectTimeout:        time.Second,
		ReadTimeout:           time.Second,
		CacheTTL:              cacheTTL,
	}, createTestLogger())
	require.NoError(t, err)
	return client
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "not a url"}, createTestLogger())
	require.Error(t, err)
}

func TestValidate_UserToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/oauth2/introspect", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "user-token", r.PostForm.Get("token"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"active":    true,
			"sub":       "42",
			"username":  "alice",
			"client_id": "example-client",
			"scope":     "GET POST ME",
			"exp":       time.Now().Add(time.Hour).Unix(),
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 0)

	validated, err := client.Validate(context.Background(), "user-token")
	require.NoError(t, err)
	assert.Equal(t, "42", validated.UserID)
	assert.Equal(t, "alice", validated.Username)
	assert.Equal(t, "example-client", validated.ClientID)
	assert.False(t, validated.IsClientOnly())
	assert.True(t, validated.Scopes.Has("GET"))
	assert.True(t, validated.Scopes.Has("POST"))
	assert.True(t, validated.Scopes.Has("ME"))
	assert.False(t, validated.IsExpired(time.Now()))
}

func TestValidate_ClientOnlyToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"active":    true,
			"client_id": "machine-client",
			"scope":     "GET",
			"exp":       time.Now().Add(time.Hour).Unix(),
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 0)

	validated, err := client.Validate(context.Background(), "client-token")
	require.NoError(t, err)
	assert.True(t, validated.IsClientOnly())
	assert.Equal(t, "machine-client", validated.ClientID)
}

func TestValidate_InvalidTokenOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "inactive token",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{"active": false})
			},
		},
		{
			name: "rejected with 401",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
		},
		{
			name: "rejected with 400",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
			},
		},
		{
			name: "expired token",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{
					"active":    true,
					"client_id": "example-client",
					"scope":     "ADMIN",
					"exp":       time.Now().Add(-time.Minute).Unix(),
				})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := newTestClient(t, server.URL, 0)

			_, err := client.Validate(context.Background(), "some-token")
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.ErrInvalidToken), "expected ErrInvalidToken, got %v", err)
			assert.False(t, apperrors.Is(err, apperrors.ErrUpstreamUnavailable))
		})
	}
}

func TestValidate_EmptyToken(t *testing.T) {
	client := newTestClient(t, "http://localhost:0", 0)

	_, err := client.Validate(context.Background(), "")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidToken))
}

func TestValidate_UpstreamUnavailableOutcomes(t *testing.T) {
	t.Run("5xx from upstream", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL, 0)

		_, err := client.Validate(context.Background(), "some-token")
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ErrUpstreamUnavailable))
		assert.False(t, apperrors.Is(err, apperrors.ErrInvalidToken))
	})

	t.Run("connection refused", func(t *testing.T) {
		// Reserve a port and close it so nothing is listening.
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		serverURL := server.URL
		server.Close()

		client := newTestClient(t, serverURL, 0)

		_, err := client.Validate(context.Background(), "some-token")
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ErrUpstreamUnavailable))
	})

	t.Run("read timeout", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		defer func() {
			close(release)
			server.Close()
		}()

		client, err := NewClient(Config{
			BaseURL:               server.URL,
			MaxConnections:        4,
			MaxConnectionsPerHost: 4,
			ConnectTimeout:        time.Second,
			ReadTimeout:           50 * time.Millisecond,
		}, createTestLogger())
		require.NoError(t, err)

		start := time.Now()
		_, err = client.Validate(context.Background(), "some-token")
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ErrUpstreamUnavailable), "timeout must not be InvalidToken: %v", err)
		assert.Less(t, time.Since(start), time.Second, "timeout must not hang the caller")
	})

	t.Run("caller cancellation aborts the call", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		defer func() {
			close(release)
			server.Close()
		}()

		client := newTestClient(t, server.URL, 0)

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		_, err := client.Validate(ctx, "some-token")
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ErrUpstreamUnavailable))
	})
}

func TestValidate_CacheReusesResultWithinTTL(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"active":    true,
			"client_id": "example-client",
			"scope":     "ADMIN",
			"exp":       time.Now().Add(time.Hour).Unix(),
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Minute)

	for i := 0; i < 5; i++ {
		_, err := client.Validate(context.Background(), "cached-token")
		require.NoError(t, err)
	}

	assert.Equal(t, int64(1), calls.Load(), "repeated validations within TTL should hit the cache")

	// A different token must not share the cached result.
	_, err := client.Validate(context.Background(), "other-token")
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
}

func TestValidate_SurvivesCallerCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"active":    true,
			"sub":       "42",
			"client_id": "example-client",
			"scope":     "ADMIN",
			"exp":       time.Now().Add(time.Hour).Unix(),
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 0)

	// The upstream round trip is shared between concurrent callers of the
	// same token, so one caller abandoning its request must not fail the
	// flight for everyone else.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	validated, err := client.Validate(ctx, "user-token")
	require.NoError(t, err)
	assert.Equal(t, "42", validated.UserID)
}

func TestValidate_CacheEntryExpires(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"active":    true,
			"client_id": "example-client",
			"scope":     "ADMIN",
			"exp":       time.Now().Add(time.Hour).Unix(),
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 50*time.Millisecond)

	_, err := client.Validate(context.Background(), "cached-token")
	require.NoError(t, err)
	require.Equal(t, int64(1), calls.Load())

	// After the TTL the upstream must be consulted again.
	time.Sleep(100 * time.Millisecond)

	_, err = client.Validate(context.Background(), "cached-token")
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
}

func TestReadAccessToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"active":    true,
			"sub":       "42",
			"username":  "alice",
			"client_id": "example-client",
			"scope":     "GET ME",
			"exp":       exp,
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 0)

	metadata, err := client.ReadAccessToken(context.Background(), "user-token")
	require.NoError(t, err)
	assert.Equal(t, "BEARER", metadata.TokenType)
	assert.Equal(t, []string{"GET", "ME"}, metadata.Scopes.Names())
	assert.Equal(t, time.Unix(exp, 0).Unix(), metadata.ExpiresAt.Unix())
}

func TestRevokeAccessTokens(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    error
	}{
		{"success", http.StatusOK, nil},
		{"already revoked is idempotent", http.StatusNotFound, nil},
		{"forbidden", http.StatusForbidden, apperrors.ErrForbidden},
		{"unauthorized", http.StatusUnauthorized, apperrors.ErrForbidden},
		{"upstream failure", http.StatusInternalServerError, apperrors.ErrUpstreamUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/token/revocation/user/42", r.URL.Path)
				assert.Equal(t, "Bearer caller-token", r.Header.Get("Authorization"))
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			client := newTestClient(t, server.URL, 0)

			err := client.RevokeAccessTokens(context.Background(), "42", "caller-token")
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, apperrors.Is(err, tt.wantErr), "expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRevokeAccessTokens_PurgesValidationCache(t *testing.T) {
	var introspections atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth2/introspect" {
			introspections.Add(1)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"active":    true,
				"sub":       "42",
				"client_id": "example-client",
				"scope":     "ME",
				"exp":       time.Now().Add(time.Hour).Unix(),
			})
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Minute)

	_, err := client.Validate(context.Background(), "user-token")
	require.NoError(t, err)
	_, err = client.Validate(context.Background(), "user-token")
	require.NoError(t, err)
	require.Equal(t, int64(1), introspections.Load())

	require.NoError(t, client.RevokeAccessTokens(context.Background(), "42", "user-token"))

	_, err = client.Validate(context.Background(), "user-token")
	require.NoError(t, err)
	assert.Equal(t, int64(2), introspections.Load(), "revocation should purge cached validations")
}
