package policy

import (
	"net/http"

	apperrors "github.com/allisson/scimgate/internal/errors"
)

// Table is an ordered, immutable policy rule table. It is loaded once at
// startup and safe for unsynchronized concurrent reads.
type Table struct {
	rules []Rule
}

// NewTable builds a table from the given rules, evaluated in declaration
// order. Every rule needs a name, a path matcher, and an expression.
func NewTable(rules ...Rule) (*Table, error) {
	if len(rules) == 0 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "policy table needs at least one rule")
	}
	for i := range rules {
		if rules[i].Name == "" {
			return nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "rule %d has no name", i)
		}
		if rules[i].Method == "" {
			rules[i].Method = MethodAny
		}
		if rules[i].Path == nil {
			return nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "rule %q has no path matcher", rules[i].Name)
		}
		if rules[i].Expr == nil {
			return nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "rule %q has no expression", rules[i].Name)
		}
	}

	table := &Table{rules: make([]Rule, len(rules))}
	copy(table.rules, rules)
	return table, nil
}

// Match returns the first rule that structurally matches the request, in
// declaration order. The second return is false when no rule matched; the
// caller must treat that as a policy misconfiguration and deny, never allow.
func (t *Table) Match(method, path string) (*Rule, bool) {
	for i := range t.rules {
		if t.rules[i].Matches(method, path) {
			return &t.rules[i], true
		}
	}
	return nil, false
}

// Rules returns the table's rules in declaration order, for diagnostics.
func (t *Table) Rules() []Rule {
	rules := make([]Rule, len(t.rules))
	copy(rules, t.rules)
	return rules
}

// DefaultTable is the built-in rule table for the SCIM resource surface.
// Declaration order is load-bearing: the root-listing rule must come before
// the general /Users subtree rule so that GET /Users/123 falls through to the
// ownership-aware rule.
//
// The final catch-all keeps "no structural match" unreachable for ordinary
// traffic; Table.Match still reports no-match for tables without one, and the
// evaluator fails closed in that case.
func DefaultTable() *Table {
	table, err := NewTable(
		Rule{
			Name:   "service-provider-configs",
			Method: http.MethodGet,
			Path:   ExactPath("/ServiceProviderConfigs"),
			Expr:   Always{},
		},
		Rule{
			Name:   "me-subtree",
			Method: MethodAny,
			Path:   PrefixPath("/me"),
			Expr: AnyOf{
				ScopeForMethod{},
				HasScope{Name: "ADMIN"},
				HasScope{Name: "ME"},
			},
		},
		Rule{
			Name:   "users-create",
			Method: http.MethodPost,
			Path:   PrefixPath("/Users"),
			Expr: AnyOf{
				ScopeForMethod{},
				HasScope{Name: "ADMIN"},
			},
		},
		Rule{
			Name:   "users-list",
			Method: http.MethodGet,
			Path:   MustRegexPath("/Users/?"),
			Expr: AnyOf{
				ScopeForMethod{},
				HasScope{Name: "ADMIN"},
			},
		},
		Rule{
			Name:   "users-subtree",
			Method: MethodAny,
			Path:   PrefixPath("/Users"),
			Expr: AnyOf{
				ScopeForMethod{},
				HasScope{Name: "ADMIN"},
				AllOf{
					HasScope{Name: "ME"},
					Owner{},
				},
			},
		},
		Rule{
			Name:   "catch-all",
			Method: MethodAny,
			Path:   PrefixPath("/"),
			Expr: AnyOf{
				ScopeForMethod{},
				HasScope{Name: "ADMIN"},
			},
		},
	)
	if err != nil {
		// The default table is static; a build error here is a programming
		// mistake, not a runtime condition.
		panic(err)
	}
	return table
}
