// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/scimgate/cmd/app/commands"
)

const version = "1.0.0"

func main() {
	cmd := &cli.Command{
		Name:    "scimgate",
		Usage:   "SCIM resource server front door",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the HTTP front door server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunServer(ctx, version)
				},
			},
			{
				Name:  "revoke-tokens",
				Usage: "Revoke all access tokens belonging to a user",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "user-id",
						Aliases:  []string{"u"},
						Required: true,
						Usage:    "User ID (UUID) whose tokens will be revoked",
					},
					&cli.StringFlag{
						Name:     "token",
						Aliases:  []string{"t"},
						Required: true,
						Usage:    "Caller access token authorizing the revocation",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunRevokeTokens(
						ctx,
						cmd.String("user-id"),
						cmd.String("token"),
						cmd.String("format"),
					)
				},
			},
			{
				Name:  "check-policy",
				Usage: "Evaluate the policy table against a simulated request without contacting the authorization server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "method",
						Aliases:  []string{"m"},
						Required: true,
						Usage:    "HTTP method of the simulated request",
					},
					&cli.StringFlag{
						Name:     "path",
						Aliases:  []string{"p"},
						Required: true,
						Usage:    "Request path (e.g., /Users/42)",
					},
					&cli.StringFlag{
						Name:    "scopes",
						Aliases: []string{"s"},
						Usage:   "Comma-separated scope names carried by the simulated token",
					},
					&cli.StringFlag{
						Name:    "user-id",
						Aliases: []string{"u"},
						Usage:   "Simulated user id (omit for a client-only token)",
					},
					&cli.StringFlag{
						Name:    "owner-id",
						Aliases: []string{"o"},
						Usage:   "Owner id of the targeted resource (for ownership rules)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunCheckPolicy(
						cmd.String("method"),
						cmd.String("path"),
						cmd.String("scopes"),
						cmd.String("user-id"),
						cmd.String("owner-id"),
						cmd.String("format"),
					)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
