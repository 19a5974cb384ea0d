package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewMonthCommand creates the month command.
func NewMonthCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "month [YYYY-MM]",
		Short: "Show or move the current month cursor",
		Long: `Show the month that meal lists and summaries default to, or move it.

Examples:
  mealsync month
  mealsync month 2024-03`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			st, err := rootOpts.session(cmd.Context())
			if err != nil {
				return out.Fail("failed to open store", err)
			}
			if len(args) == 1 {
				m, err := parseMonth(args[0])
				if err != nil {
					return out.Fail("invalid month", WrapExitError(ExitCommandError, "invalid month", err))
				}
				st.SetCurrentMonth(cmd.Context(), m)
			}
			m := st.CurrentMonth()
			return out.Success(map[string]string{"month": m.String()}, fmt.Sprintf("%s\n", m.Time().Format("January 2006")))
		},
	}
}
