package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mealsync/internal/catalog"
	"github.com/roach88/mealsync/internal/model"
)

// OnboardResult lists the vendors an onboarding run added or skipped.
type OnboardResult struct {
	Added   []model.Vendor `json:"added"`
	Skipped []string       `json:"skipped,omitempty"`
}

// NewOnboardCommand creates the onboard command.
func NewOnboardCommand(rootOpts *RootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "onboard <catalog>",
		Short: "Add the vendors of a catalog file and finish onboarding",
		Long: `Add every vendor listed in a YAML or CUE catalog, then mark onboarding as
completed. Vendors whose name already exists are skipped.

The catalog is validated as a whole before anything is added.

Example catalog (vendors.yaml):

  vendors:
    - name: Aunty's Kitchen
      meals:
        - {mealType: lunch, price: 80}
        - {mealType: dinner, price: 100}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			cat, err := catalog.Load(args[0])
			if err != nil {
				return out.Fail("invalid catalog", WrapExitError(ExitCommandError, "invalid catalog", err))
			}
			st, err := rootOpts.session(cmd.Context())
			if err != nil {
				return out.Fail("failed to open store", err)
			}
			if st.OnboardingCompleted() && !force {
				return out.Success(OnboardResult{}, "Onboarding already completed; use --force to add the catalog anyway.\n")
			}

			var res OnboardResult
			var b strings.Builder
			for _, v := range cat.Vendors {
				if existing, err := resolveVendor(st, v.Name); err == nil {
					res.Skipped = append(res.Skipped, existing.Name)
					fmt.Fprintf(&b, "- %s (exists)\n", existing.Name)
					continue
				}
				added, err := st.AddVendor(cmd.Context(), v)
				if err != nil {
					return out.Fail(fmt.Sprintf("failed to add vendor %q", v.Name), err)
				}
				res.Added = append(res.Added, added)
				fmt.Fprintf(&b, "+ %s\n", added.Name)
			}
			st.SetOnboardingCompleted(cmd.Context(), true)
			fmt.Fprintf(&b, "Onboarding complete: %d added, %d skipped\n", len(res.Added), len(res.Skipped))
			return out.Success(res, b.String())
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "add the catalog even when onboarding is already completed")
	return cmd
}
