// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import "time"

// TokenValidationResponse mirrors the authorization server's view of the
// caller's access token. The token value itself is never included.
type TokenValidationResponse struct {
	UserID    string     `json:"user_id,omitempty"`
	Username  string     `json:"user_name,omitempty"`
	ClientID  string     `json:"client_id"`
	Scopes    []string   `json:"scopes"`
	TokenType string     `json:"token_type"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// RevocationResponse acknowledges a token revocation request.
type RevocationResponse struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}
