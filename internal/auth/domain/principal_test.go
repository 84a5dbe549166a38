package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrincipal(t *testing.T) {
	tests := []struct {
		name      string
		validated *ValidatedToken
		validate  func(t *testing.T, principal Principal, scopes ScopeSet)
	}{
		{
			name: "client-only token produces ClientPrincipal",
			validated: &ValidatedToken{
				Value:     "opaque-token",
				ClientID:  "example-client",
				Scopes:    NewScopeSet("GET", "POST"),
				ExpiresAt: time.Now().Add(time.Hour),
			},
			validate: func(t *testing.T, principal Principal, scopes ScopeSet) {
				client, ok := principal.(ClientPrincipal)
				require.True(t, ok, "expected ClientPrincipal")
				assert.Equal(t, "example-client", client.ClientID)
				assert.Equal(t, "example-client", principal.AuthClientID())
				assert.True(t, scopes.Has("GET"))
				assert.True(t, scopes.Has("POST"))
			},
		},
		{
			name: "user token produces UserPrincipal",
			validated: &ValidatedToken{
				Value:     "opaque-token",
				UserID:    "42",
				Username:  "alice",
				ClientID:  "example-client",
				Scopes:    NewScopeSet("ME"),
				ExpiresAt: time.Now().Add(time.Hour),
			},
			validate: func(t *testing.T, principal Principal, scopes ScopeSet) {
				user, ok := principal.(UserPrincipal)
				require.True(t, ok, "expected UserPrincipal")
				assert.Equal(t, "42", user.UserID)
				assert.Equal(t, "alice", user.Username)
				assert.Equal(t, "example-client", user.ClientID)
				assert.True(t, scopes.Has("ME"))
			},
		},
		{
			name: "nil scope set is normalized to empty",
			validated: &ValidatedToken{
				Value:    "opaque-token",
				ClientID: "example-client",
			},
			validate: func(t *testing.T, principal Principal, scopes ScopeSet) {
				require.NotNil(t, scopes)
				assert.Empty(t, scopes.Names())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			principal, scopes := BuildPrincipal(tt.validated)
			tt.validate(t, principal, scopes)
		})
	}
}

func TestValidatedTokenIsExpired(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		expiresAt time.Time
		expected  bool
	}{
		{"future expiration", now.Add(time.Minute), false},
		{"past expiration", now.Add(-time.Minute), true},
		{"exactly now", now, true},
		{"zero expiration is treated as non-expiring", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := &ValidatedToken{ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.expected, token.IsExpired(now))
		})
	}
}

func TestScopeSet(t *testing.T) {
	set := NewScopeSet("ADMIN", "ME", "", "ME")

	assert.True(t, set.Has("ADMIN"))
	assert.True(t, set.Has("ME"))
	assert.False(t, set.Has("GET"))
	assert.False(t, set.Has(""))
	assert.Equal(t, []string{"ADMIN", "ME"}, set.Names())
}

func TestDecision(t *testing.T) {
	assert.True(t, Allow().Allowed())

	deny := Deny("insufficient scope")
	assert.False(t, deny.Allowed())
	assert.Equal(t, EffectDeny, deny.Effect)
	assert.Equal(t, "insufficient scope", deny.Reason)

	cause := assert.AnError
	errDecision := Error(cause, "upstream failed")
	assert.False(t, errDecision.Allowed())
	assert.Equal(t, EffectError, errDecision.Effect)
	assert.Equal(t, cause, errDecision.Err)
}
