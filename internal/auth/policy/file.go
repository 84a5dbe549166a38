package policy

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/scimgate/internal/errors"
)

// Path matcher kinds accepted in a policy file.
const (
	matchExact  = "exact"
	matchPrefix = "prefix"
	matchRegex  = "regex"
)

// Expression node kinds accepted in a policy file.
const (
	exprAlways         = "always"
	exprScopeForMethod = "scopeForMethod"
	exprScope          = "scope"
	exprOwner          = "owner"
	exprAnyOf          = "anyOf"
	exprAllOf          = "allOf"
	exprNot            = "not"
)

// tableDocument is the on-disk shape of a policy rule table.
type tableDocument struct {
	Rules []ruleDocument `json:"rules"`
}

// ruleDocument is one serialized rule.
type ruleDocument struct {
	Name   string       `json:"name"`
	Method string       `json:"method"`
	Path   pathDocument `json:"path"`
	Expr   exprDocument `json:"expr"`
}

// pathDocument is a serialized path matcher.
type pathDocument struct {
	Match   string `json:"match"`
	Pattern string `json:"pattern"`
}

// exprDocument is a serialized expression node.
type exprDocument struct {
	Type  string         `json:"type"`
	Scope string         `json:"scope,omitempty"`
	Of    []exprDocument `json:"of,omitempty"`
}

// Validate checks the rule document shape.
func (r ruleDocument) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Method, validation.By(validateMethod)),
		validation.Field(&r.Path, validation.Required),
		validation.Field(&r.Expr, validation.Required),
	)
}

// Validate checks the path matcher document.
func (p pathDocument) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Match,
			validation.Required,
			validation.In(matchExact, matchPrefix, matchRegex),
		),
		validation.Field(&p.Pattern, validation.Required, validation.Length(1, 500)),
	)
}

// Validate checks the expression node recursively.
func (e exprDocument) Validate() error {
	err := validation.ValidateStruct(&e,
		validation.Field(&e.Type,
			validation.Required,
			validation.In(
				exprAlways,
				exprScopeForMethod,
				exprScope,
				exprOwner,
				exprAnyOf,
				exprAllOf,
				exprNot,
			),
		),
	)
	if err != nil {
		return err
	}

	switch e.Type {
	case exprScope:
		if e.Scope == "" {
			return validation.NewError("validation_scope_name", "scope node needs a scope name")
		}
	case exprAnyOf, exprAllOf:
		if len(e.Of) == 0 {
			return validation.NewError("validation_combinator_empty", e.Type+" node needs sub-expressions")
		}
	case exprNot:
		if len(e.Of) != 1 {
			return validation.NewError("validation_not_arity", "not node needs exactly one sub-expression")
		}
	}

	for _, sub := range e.Of {
		if err := sub.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// validateMethod accepts an HTTP verb, MethodAny, or empty (treated as any).
func validateMethod(value any) error {
	method, _ := value.(string)
	switch strings.ToUpper(method) {
	case "", MethodAny,
		http.MethodGet, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodHead, http.MethodOptions:
		return nil
	}
	return validation.NewError("validation_http_method", "must be an HTTP method or *")
}

// LoadFile reads and builds a policy table from a JSON file. The file is read
// once at startup; the resulting table is immutable.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrapf(err, "failed to read policy file %s", path)
	}
	return Parse(data)
}

// Parse builds a policy table from serialized JSON.
func Parse(data []byte) (*Table, error) {
	var doc tableDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "malformed policy file: "+err.Error())
	}

	if len(doc.Rules) == 0 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "policy file defines no rules")
	}

	rules := make([]Rule, 0, len(doc.Rules))
	for _, ruleDoc := range doc.Rules {
		if err := ruleDoc.Validate(); err != nil {
			return nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "rule %q", ruleDoc.Name)
		}

		matcher, err := buildPathMatcher(ruleDoc.Path)
		if err != nil {
			return nil, apperrors.Wrapf(err, "rule %q", ruleDoc.Name)
		}

		expr, err := buildExpression(ruleDoc.Expr)
		if err != nil {
			return nil, apperrors.Wrapf(err, "rule %q", ruleDoc.Name)
		}

		method := strings.ToUpper(ruleDoc.Method)
		if method == "" {
			method = MethodAny
		}

		rules = append(rules, Rule{
			Name:   ruleDoc.Name,
			Method: method,
			Path:   matcher,
			Expr:   expr,
		})
	}

	return NewTable(rules...)
}

func buildPathMatcher(doc pathDocument) (PathMatcher, error) {
	switch doc.Match {
	case matchExact:
		return ExactPath(doc.Pattern), nil
	case matchPrefix:
		return PrefixPath(doc.Pattern), nil
	case matchRegex:
		matcher, err := NewRegexPath(doc.Pattern)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "bad path regex: "+err.Error())
		}
		return matcher, nil
	default:
		return nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "unknown path match kind %q", doc.Match)
	}
}

func buildExpression(doc exprDocument) (Expression, error) {
	switch doc.Type {
	case exprAlways:
		return Always{}, nil
	case exprScopeForMethod:
		return ScopeForMethod{}, nil
	case exprScope:
		return HasScope{Name: doc.Scope}, nil
	case exprOwner:
		return Owner{}, nil
	case exprAnyOf, exprAllOf:
		subs := make([]Expression, 0, len(doc.Of))
		for _, subDoc := range doc.Of {
			sub, err := buildExpression(subDoc)
			if err != nil {
				return nil, err
			}
			subs = append(subs, sub)
		}
		if doc.Type == exprAnyOf {
			return AnyOf(subs), nil
		}
		return AllOf(subs), nil
	case exprNot:
		sub, err := buildExpression(doc.Of[0])
		if err != nil {
			return nil, err
		}
		return Not{Expr: sub}, nil
	default:
		return nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "unknown expression type %q", doc.Type)
	}
}
