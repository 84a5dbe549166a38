package policy

import (
	"context"
	"strings"

	authDomain "github.com/allisson/scimgate/internal/auth/domain"
)

// OwnerResolver pre-resolves the owner id of the resource a request targets,
// before policy evaluation. Implementations may consult external systems;
// a returned error makes ownership-dependent clauses fail closed.
type OwnerResolver interface {
	// ResolveOwner returns the owner id of the resource at the given path, or
	// "" when the path targets nothing ownable.
	ResolveOwner(ctx context.Context, principal authDomain.Principal, path string) (string, error)
}

// PathOwnerResolver derives ownership from the SCIM path shape itself:
// /Users/{id} is owned by user {id}, and the /me subtree is owned by the
// calling user. It performs no I/O and never fails.
type PathOwnerResolver struct{}

// ResolveOwner implements OwnerResolver.
func (PathOwnerResolver) ResolveOwner(
	_ context.Context,
	principal authDomain.Principal,
	path string,
) (string, error) {
	if id, ok := userPathTarget(path); ok {
		return id, nil
	}

	if isMePath(path) {
		user, ok := principal.(authDomain.UserPrincipal)
		if !ok {
			// Client-only callers own nothing.
			return "", nil
		}
		return user.UserID, nil
	}

	return "", nil
}

// userPathTarget extracts the user id from a /Users/{id}[/...] path.
func userPathTarget(path string) (string, bool) {
	rest, ok := strings.CutPrefix(path, "/Users/")
	if !ok {
		return "", false
	}
	id, _, _ := strings.Cut(rest, "/")
	if id == "" {
		return "", false
	}
	return id, true
}

// isMePath reports whether the path is /me or below it.
func isMePath(path string) bool {
	return path == "/me" || path == "/me/" || strings.HasPrefix(path, "/me/")
}
