package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/mealsync/internal/config"
	"github.com/roach88/mealsync/internal/engine"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// Flag overrides applied on top of the loaded configuration.
	LocalDir  string
	RemoteURL string
	Token     string

	// Config is loaded in PersistentPreRunE.
	Config config.Config
	Logger *slog.Logger

	// OpenStore builds the session store. Tests replace it; nil uses
	// openSession.
	OpenStore func(ctx context.Context, opts *RootOptions) (*engine.Store, error)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the mealsync CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mealsync",
		Short: "mealsync - track meals received from food vendors",
		Long: `Track meals received from food vendors and what they cost.

Without a token, vendors and meal logs live in a local snapshot and a
lifetime meal quota applies. With a token, every change is reconciled with
a mealsync server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.LocalDir, "local-dir", "", "directory for the local snapshot (file driver)")
	cmd.PersistentFlags().StringVar(&opts.RemoteURL, "remote", "", "mealsync server URL")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", "", "bearer token; selects remote mode")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewVendorCommand(opts))
	cmd.AddCommand(NewMealCommand(opts))
	cmd.AddCommand(NewActivityCommand(opts))
	cmd.AddCommand(NewSummaryCommand(opts))
	cmd.AddCommand(NewQuotaCommand(opts))
	cmd.AddCommand(NewOnboardCommand(opts))
	cmd.AddCommand(NewMonthCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// load reads the configuration, applies flag overrides and installs the
// logger.
func (o *RootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.LocalDir != "" {
		cfg.Local.Dir = o.LocalDir
	}
	if o.RemoteURL != "" {
		cfg.Remote.URL = o.RemoteURL
	}
	if o.Token != "" {
		cfg.Remote.Token = o.Token
	}
	o.Config = cfg

	if o.Logger == nil {
		level := slog.LevelInfo
		if o.Verbose {
			level = slog.LevelDebug
		}
		o.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	}
	return nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

func (o *RootOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
