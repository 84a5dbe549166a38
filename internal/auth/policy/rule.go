package policy

import (
	"regexp"
	"strings"
)

// MethodAny matches every HTTP method.
const MethodAny = "*"

// PathMatcher matches a request path against a rule's path pattern.
type PathMatcher interface {
	Match(path string) bool
	String() string
}

// ExactPath matches one literal path.
type ExactPath string

// Match implements PathMatcher.
func (p ExactPath) Match(path string) bool { return string(p) == path }

func (p ExactPath) String() string { return string(p) }

// PrefixPath matches a path subtree: the base itself, the base with a
// trailing slash, and everything below it (the "/base/**" ant pattern).
type PrefixPath string

// Match implements PathMatcher.
func (p PrefixPath) Match(path string) bool {
	base := strings.TrimRight(string(p), "/")
	if path == base || path == base+"/" {
		return true
	}
	return strings.HasPrefix(path, base+"/")
}

func (p PrefixPath) String() string {
	return strings.TrimRight(string(p), "/") + "/**"
}

// RegexPath matches a path against an anchored regular expression.
type RegexPath struct {
	re *regexp.Regexp
}

// NewRegexPath compiles the given pattern, anchoring it to the whole path.
func NewRegexPath(pattern string) (RegexPath, error) {
	if !strings.HasPrefix(pattern, "^") {
		pattern = "^" + pattern
	}
	if !strings.HasSuffix(pattern, "$") {
		pattern += "$"
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return RegexPath{}, err
	}
	return RegexPath{re: re}, nil
}

// MustRegexPath is like NewRegexPath but panics on a bad pattern. For use in
// static rule tables.
func MustRegexPath(pattern string) RegexPath {
	matcher, err := NewRegexPath(pattern)
	if err != nil {
		panic(err)
	}
	return matcher
}

// Match implements PathMatcher.
func (p RegexPath) Match(path string) bool { return p.re.MatchString(path) }

func (p RegexPath) String() string { return p.re.String() }

// Rule is one entry of the policy table: a structural matcher over
// (method, path) and the boolean expression evaluated when the rule wins.
// Rules are immutable once the table is built.
type Rule struct {
	// Name identifies the rule in logs and deny reasons.
	Name string
	// Method is an exact HTTP verb or MethodAny.
	Method string
	// Path is the structural path matcher.
	Path PathMatcher
	// Expr is evaluated only when this rule is the first structural match.
	Expr Expression
}

// Matches reports whether the rule structurally matches the request. The
// rule's expression plays no part here; a structural match wins the table
// lookup even when the expression ultimately denies.
func (r *Rule) Matches(method, path string) bool {
	if r.Method != MethodAny && !strings.EqualFold(r.Method, method) {
		return false
	}
	return r.Path.Match(path)
}
