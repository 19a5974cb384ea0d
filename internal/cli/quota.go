package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/mealsync/internal/engine"
)

// QuotaStatus reports the meal allowance of the session. Cap and Remaining
// are zero when authenticated.
type QuotaStatus struct {
	Authenticated bool `json:"authenticated"`
	Logged        int  `json:"logged"`
	Cap           int  `json:"cap"`
	Remaining     int  `json:"remaining"`
	CanLog        bool `json:"canLog"`
}

// NewQuotaCommand creates the quota command.
func NewQuotaCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Show how many more meals can be logged",
		Long:  `Show the anonymous meal allowance. Sessions with a token are unlimited.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			st, err := rootOpts.session(cmd.Context())
			if err != nil {
				return out.Fail("failed to open store", err)
			}
			auth := engine.Authenticated(st.Mode())
			q := QuotaStatus{
				Authenticated: auth,
				Logged:        len(st.MealLogs()),
				CanLog:        st.CanLogMeal(auth),
			}
			if auth {
				return out.Success(q, fmt.Sprintf("Signed in as %s: unlimited meal logs\n", st.Identity()))
			}
			q.Cap = st.QuotaCap()
			q.Remaining = st.RemainingMeals(auth)
			return out.Success(q, fmt.Sprintf("%d of %d meal logs used, %d remaining\n", q.Logged, q.Cap, q.Remaining))
		},
	}
}
