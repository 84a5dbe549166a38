package policy

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/scimgate/internal/errors"
)

const validPolicyJSON = `{
  "rules": [
    {
      "name": "service-provider-configs",
      "method": "GET",
      "path": {"match": "exact", "pattern": "/ServiceProviderConfigs"},
      "expr": {"type": "always"}
    },
    {
      "name": "users-list",
      "method": "GET",
      "path": {"match": "regex", "pattern": "/Users/?"},
      "expr": {
        "type": "anyOf",
        "of": [
          {"type": "scopeForMethod"},
          {"type": "scope", "scope": "ADMIN"}
        ]
      }
    },
    {
      "name": "users-subtree",
      "method": "*",
      "path": {"match": "prefix", "pattern": "/Users"},
      "expr": {
        "type": "anyOf",
        "of": [
          {"type": "scopeForMethod"},
          {"type": "scope", "scope": "ADMIN"},
          {
            "type": "allOf",
            "of": [
              {"type": "scope", "scope": "ME"},
              {"type": "owner"}
            ]
          }
        ]
      }
    },
    {
      "name": "catch-all",
      "path": {"match": "prefix", "pattern": "/"},
      "expr": {"type": "not", "of": [{"type": "scope", "scope": "BLOCKED"}]}
    }
  ]
}`

func TestParse(t *testing.T) {
	table, err := Parse([]byte(validPolicyJSON))
	require.NoError(t, err)

	rule, ok := table.Match(http.MethodGet, "/ServiceProviderConfigs")
	require.True(t, ok)
	assert.Equal(t, "service-provider-configs", rule.Name)

	rule, ok = table.Match(http.MethodGet, "/Users")
	require.True(t, ok)
	assert.Equal(t, "users-list", rule.Name)

	rule, ok = table.Match(http.MethodDelete, "/Users/7")
	require.True(t, ok)
	assert.Equal(t, "users-subtree", rule.Name)

	// Omitted method means any.
	rule, ok = table.Match(http.MethodPatch, "/Groups")
	require.True(t, ok)
	assert.Equal(t, "catch-all", rule.Name)
}

func TestParseRejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed json", `{"rules": [`},
		{"no rules", `{"rules": []}`},
		{
			"missing rule name",
			`{"rules": [{"path": {"match": "prefix", "pattern": "/"}, "expr": {"type": "always"}}]}`,
		},
		{
			"unknown path match kind",
			`{"rules": [{"name": "r", "path": {"match": "glob", "pattern": "/"}, "expr": {"type": "always"}}]}`,
		},
		{
			"bad regex",
			`{"rules": [{"name": "r", "path": {"match": "regex", "pattern": "(["}, "expr": {"type": "always"}}]}`,
		},
		{
			"unknown expression type",
			`{"rules": [{"name": "r", "path": {"match": "prefix", "pattern": "/"}, "expr": {"type": "magic"}}]}`,
		},
		{
			"scope node without scope name",
			`{"rules": [{"name": "r", "path": {"match": "prefix", "pattern": "/"}, "expr": {"type": "scope"}}]}`,
		},
		{
			"empty combinator",
			`{"rules": [{"name": "r", "path": {"match": "prefix", "pattern": "/"}, "expr": {"type": "anyOf", "of": []}}]}`,
		},
		{
			"not with two sub-expressions",
			`{"rules": [{"name": "r", "path": {"match": "prefix", "pattern": "/"},
			  "expr": {"type": "not", "of": [{"type": "always"}, {"type": "always"}]}}]}`,
		},
		{
			"invalid method",
			`{"rules": [{"name": "r", "method": "FETCH", "path": {"match": "prefix", "pattern": "/"}, "expr": {"type": "always"}}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput), "expected ErrInvalidInput, got %v", err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	t.Run("existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "policy.json")
		require.NoError(t, os.WriteFile(path, []byte(validPolicyJSON), 0o600))

		table, err := LoadFile(path)
		require.NoError(t, err)

		_, ok := table.Match(http.MethodGet, "/Users")
		assert.True(t, ok)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
		require.Error(t, err)
	})
}
