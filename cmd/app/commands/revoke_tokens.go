package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/allisson/scimgate/internal/app"
	"github.com/allisson/scimgate/internal/config"
)

// TokenRevoker revokes all access tokens belonging to a user.
type TokenRevoker interface {
	RevokeAccessTokens(ctx context.Context, userID string, callerToken string) error
}

// RunRevokeTokens revokes every access token issued to the given user on the
// authorization server. The caller token authenticates the revocation call
// upstream; it is never printed or logged.
func RunRevokeTokens(ctx context.Context, userID, token, format string) error {
	// Load configuration
	cfg := config.Load()

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	// Get introspection client from container
	client, err := container.IntrospectionClient()
	if err != nil {
		return fmt.Errorf("failed to initialize introspection client: %w", err)
	}

	return revokeTokens(ctx, client, logger, os.Stdout, userID, token, format)
}

// revokeTokens performs the revocation against an injected revoker.
func revokeTokens(
	ctx context.Context,
	revoker TokenRevoker,
	logger *slog.Logger,
	out io.Writer,
	userID, token, format string,
) error {
	parsedID, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("user-id must be a valid UUID, got: %s", userID)
	}

	if token == "" {
		return fmt.Errorf("a caller token is required to authorize the revocation")
	}

	logger.Info("revoking access tokens", slog.String("user_id", parsedID.String()))

	if err := revoker.RevokeAccessTokens(ctx, parsedID.String(), token); err != nil {
		return fmt.Errorf("failed to revoke access tokens: %w", err)
	}

	if format == "json" {
		outputRevokeJSON(out, parsedID.String())
	} else {
		outputRevokeText(out, parsedID.String())
	}

	logger.Info("access tokens revoked", slog.String("user_id", parsedID.String()))

	return nil
}

// outputRevokeText outputs the result in human-readable text format.
func outputRevokeText(out io.Writer, userID string) {
	fmt.Fprintf(out, "Successfully revoked all access tokens for user %s\n", userID)
}

// outputRevokeJSON outputs the result in JSON format for machine consumption.
func outputRevokeJSON(out io.Writer, userID string) {
	result := map[string]interface{}{
		"user_id": userID,
		"status":  "revoked",
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal JSON: %v\n", err)
		return
	}

	fmt.Fprintln(out, string(jsonBytes))
}
