// Package http provides HTTP handlers for token validation and revocation.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authDomain "github.com/allisson/scimgate/internal/auth/domain"
	"github.com/allisson/scimgate/internal/auth/http/dto"
	apperrors "github.com/allisson/scimgate/internal/errors"
	"github.com/allisson/scimgate/internal/httputil"
)

// TokenReader fetches the authorization server's current view of a token,
// bypassing any local cache.
type TokenReader interface {
	ReadAccessToken(ctx context.Context, token string) (*authDomain.TokenMetadata, error)
}

// TokenRevoker revokes all access tokens of a user at the authorization server.
type TokenRevoker interface {
	RevokeAccessTokens(ctx context.Context, userID, callerToken string) error
}

// TokenHandler handles HTTP requests for token introspection and revocation.
type TokenHandler struct {
	reader  TokenReader
	revoker TokenRevoker
	logger  *slog.Logger
}

// NewTokenHandler creates a new token handler with required dependencies.
func NewTokenHandler(reader TokenReader, revoker TokenRevoker, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{
		reader:  reader,
		revoker: revoker,
		logger:  logger,
	}
}

// ValidateTokenHandler returns the authorization server's view of the caller's token.
// GET /token/validation - requires authentication.
// Returns 200 OK with the token's principal, scopes and expiration. The token
// value itself never appears in the response.
func (h *TokenHandler) ValidateTokenHandler(c *gin.Context) {
	validated, ok := GetValidatedToken(c.Request.Context())
	if !ok || validated == nil {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	// Re-read the token from the authorization server so the response
	// reflects its current state, not the cached view the middleware used.
	metadata, err := h.reader.ReadAccessToken(c.Request.Context(), validated.Value)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	response := dto.TokenValidationResponse{
		UserID:    validated.UserID,
		Username:  validated.Username,
		ClientID:  validated.ClientID,
		Scopes:    metadata.Scopes.Names(),
		TokenType: metadata.TokenType,
	}
	if !metadata.ExpiresAt.IsZero() {
		expiresAt := metadata.ExpiresAt
		response.ExpiresAt = &expiresAt
	}

	c.JSON(http.StatusOK, response)
}

// RevokeTokensHandler revokes all access tokens of the given user.
// POST /token/revocation/:id - requires authentication; the authorization
// server decides whether the caller may revoke for that user.
// Returns 200 OK on success, including when the user has no tokens.
func (h *TokenHandler) RevokeTokensHandler(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c,
			fmt.Errorf("invalid user id format: must be a valid UUID"),
			h.logger)
		return
	}

	validated, ok := GetValidatedToken(c.Request.Context())
	if !ok || validated == nil {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	if err := h.revoker.RevokeAccessTokens(c.Request.Context(), userID.String(), validated.Value); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.logger.Info("access tokens revoked",
		slog.String("user_id", userID.String()))

	c.JSON(http.StatusOK, dto.RevocationResponse{
		UserID: userID.String(),
		Status: "revoked",
	})
}
