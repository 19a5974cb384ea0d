package cli

import (
	"fmt"
	"strings"

	money "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/roach88/mealsync/internal/engine"
)

// SummaryOptions holds flags for the summary command.
type SummaryOptions struct {
	*RootOptions
	Month string
}

// NewSummaryCommand creates the summary command.
func NewSummaryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SummaryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show the expense summary of a month",
		Long: `Show total meals and spend for a month, broken down by vendor and by
meal type. Amounts are shown in the configured currency.

Examples:
  mealsync summary
  mealsync summary --month 2024-03 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			st, err := opts.session(cmd.Context())
			if err != nil {
				return out.Fail("failed to open store", err)
			}
			month := st.CurrentMonth()
			if opts.Month != "" {
				if month, err = parseMonth(opts.Month); err != nil {
					return out.Fail("invalid --month", WrapExitError(ExitCommandError, "invalid --month", err))
				}
			}
			sum := st.Spend(month)
			return out.Success(sum, formatSummary(sum, opts.Config.Currency))
		},
	}
	cmd.Flags().StringVar(&opts.Month, "month", "", "month as YYYY-MM (default: the current month cursor)")
	return cmd
}

func formatSummary(sum engine.SpendSummary, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", sum.Month.Time().Format("January 2006"))
	fmt.Fprintf(&b, "  Meals: %d\n", sum.TotalMeals)
	fmt.Fprintf(&b, "  Spend: %s\n", formatMoney(sum.TotalCost, currency))
	writeLines := func(title string, lines []engine.SpendLine) {
		if len(lines) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n%s\n", title)
		for _, l := range lines {
			fmt.Fprintf(&b, "  %-24s %4d  %s\n", l.Name, l.Meals, formatMoney(l.Cost, currency))
		}
	}
	writeLines("By vendor", sum.ByVendor)
	writeLines("By meal type", sum.ByMealType)
	return b.String()
}

// formatMoney renders amount in currency's minor units. Unknown currency
// codes fall back to two decimal places.
func formatMoney(amount decimal.Decimal, currency string) string {
	c := money.GetCurrency(currency)
	if c == nil {
		return amount.StringFixed(2) + " " + currency
	}
	minor := amount.Shift(int32(c.Fraction)).Round(0).IntPart()
	return money.New(minor, c.Code).Display()
}
