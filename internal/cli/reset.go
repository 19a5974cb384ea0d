package cli

import (
	"github.com/spf13/cobra"
)

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear all vendors, meal logs and activity",
		Long: `Clear the whole view. Anonymous sessions also remove the local snapshot;
logged-in sessions leave it for the next anonymous session. Server data is
not touched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			if !yes {
				return out.Fail("reset not confirmed", NewExitError(ExitCommandError, "pass --yes to clear all local data"))
			}
			st, err := rootOpts.session(cmd.Context())
			if err != nil {
				return out.Fail("failed to open store", err)
			}
			if err := st.Reset(cmd.Context()); err != nil {
				return out.Fail("failed to reset", err)
			}
			return out.Success(map[string]bool{"reset": true}, "All local data cleared.\n")
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}
