package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/mealsync/internal/server"
	"github.com/roach88/mealsync/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr   string
	Driver string
	DSN    string
	Secret string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the mealsync API server",
		Long: `Serve the vendor and meal log API backed by SQLite or PostgreSQL.

Flags override the database and server sections of the config file and the
MEALSYNC_* environment.

Examples:
  mealsync serve --addr :8080 --dsn ./mealsync.db
  mealsync serve --db-driver pgx --dsn postgres://localhost/mealsync`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.Config
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = opts.Addr
			}
			if cmd.Flags().Changed("db-driver") {
				cfg.Database.Driver = opts.Driver
			}
			if cmd.Flags().Changed("dsn") {
				cfg.Database.DSN = opts.DSN
			}
			if cmd.Flags().Changed("jwt-secret") {
				cfg.Server.JWTSecret = opts.Secret
			}

			auth, err := server.NewAuthenticator(cfg.Server.JWTSecret)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid server config", err)
			}
			db, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to open database", err)
			}
			defer db.Close()

			srv, err := server.New(server.Config{
				Store:          db,
				Auth:           auth,
				AllowedOrigins: cfg.Server.AllowedOrigins,
				Logger:         opts.logger(),
			})
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid server config", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
				return WrapExitError(ExitFailure, "server failed", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&opts.Driver, "db-driver", "", "database driver (sqlite3|pgx)")
	cmd.Flags().StringVar(&opts.DSN, "dsn", "", "database DSN or SQLite path")
	cmd.Flags().StringVar(&opts.Secret, "jwt-secret", "", "HMAC secret for bearer tokens")

	return cmd
}
