package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/mealsync/internal/server"
)

// NewTokenCommand creates the token command.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		ttl    time.Duration
		secret string
	)
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a bearer token for a user",
		Long: `Issue a bearer token signed with the server's JWT secret. Pass the token
with --token or MEALSYNC_TOKEN to switch the CLI into remote mode.

Example:
  mealsync token alice --ttl 720h`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			if !cmd.Flags().Changed("jwt-secret") {
				secret = rootOpts.Config.Server.JWTSecret
			}
			auth, err := server.NewAuthenticator(secret)
			if err != nil {
				return out.Fail("cannot issue token", WrapExitError(ExitCommandError, "cannot issue token", err))
			}
			token, err := auth.Issue(args[0], ttl)
			if err != nil {
				return out.Fail("cannot issue token", WrapExitError(ExitCommandError, "cannot issue token", err))
			}
			return out.Success(map[string]string{"userId": args[0], "token": token}, fmt.Sprintf("%s\n", token))
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (0 never expires)")
	cmd.Flags().StringVar(&secret, "jwt-secret", "", "HMAC secret (default from config)")
	return cmd
}
