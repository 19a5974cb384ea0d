package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewActivityCommand creates the activity command.
func NewActivityCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show recent activity, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			st, err := rootOpts.session(cmd.Context())
			if err != nil {
				return out.Fail("failed to open store", err)
			}
			acts := st.Activities()
			if limit > 0 && len(acts) > limit {
				acts = acts[:limit]
			}
			var b strings.Builder
			if len(acts) == 0 {
				b.WriteString("No activity yet.\n")
			}
			for _, a := range acts {
				fmt.Fprintf(&b, "%s  %s\n", a.Timestamp.Local().Format("2006-01-02 15:04"), a.Description)
			}
			return out.Success(acts, b.String())
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show (0 for all)")
	return cmd
}
