package domain

// Principal is the authenticated identity derived from a validated token.
// Exactly one principal exists per request; it is owned by the request's
// processing lifetime and discarded at request end.
//
// There are exactly two implementations: ClientPrincipal for client-only
// tokens and UserPrincipal for tokens issued to a user.
type Principal interface {
	// AuthClientID returns the OAuth client through which the caller
	// authenticated.
	AuthClientID() string

	isPrincipal()
}

// ClientPrincipal represents a caller authenticated with a client-only token.
// It never satisfies an ownership check.
type ClientPrincipal struct {
	ClientID string
}

// AuthClientID returns the authenticated client id.
func (p ClientPrincipal) AuthClientID() string { return p.ClientID }

func (p ClientPrincipal) isPrincipal() {}

// UserPrincipal represents a caller authenticated on behalf of a user. It
// carries no password and no authorities beyond what scopes express.
type UserPrincipal struct {
	UserID   string
	Username string
	ClientID string
}

// AuthClientID returns the client the user's token was issued to.
func (p UserPrincipal) AuthClientID() string { return p.ClientID }

func (p UserPrincipal) isPrincipal() {}

// BuildPrincipal maps a validated token to a principal and its scope set.
// Client-only tokens produce a ClientPrincipal; tokens with a subject user
// produce a UserPrincipal. The mapping is pure and total for any well-formed
// ValidatedToken; it never fails.
func BuildPrincipal(validated *ValidatedToken) (Principal, ScopeSet) {
	scopes := validated.Scopes
	if scopes == nil {
		scopes = NewScopeSet()
	}

	if validated.IsClientOnly() {
		return ClientPrincipal{ClientID: validated.ClientID}, scopes
	}

	return UserPrincipal{
		UserID:   validated.UserID,
		Username: validated.Username,
		ClientID: validated.ClientID,
	}, scopes
}
