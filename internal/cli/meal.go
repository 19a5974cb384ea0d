package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/mealsync/internal/engine"
	"github.com/roach88/mealsync/internal/model"
)

// MealOptions holds flags for the meal log and upsert subcommands.
type MealOptions struct {
	*RootOptions
	Type     string
	Dates    []string
	Quantity int
	Price    string
	File     string
	Month    string
	All      bool
}

// NewMealCommand creates the meal command group.
func NewMealCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meal",
		Short: "Record, correct and list meals",
	}
	cmd.AddCommand(newMealWriteCommand(&MealOptions{RootOptions: rootOpts}, "log"))
	cmd.AddCommand(newMealWriteCommand(&MealOptions{RootOptions: rootOpts}, "upsert"))
	cmd.AddCommand(newMealSaveCommand(&MealOptions{RootOptions: rootOpts}))
	cmd.AddCommand(newMealListCommand(&MealOptions{RootOptions: rootOpts}))
	cmd.AddCommand(newMealDeleteCommand(&MealOptions{RootOptions: rootOpts}))
	return cmd
}

func newMealWriteCommand(opts *MealOptions, verb string) *cobra.Command {
	short := "Log meals received from a vendor"
	long := `Log meals received from a vendor, one entry per --date.

Entries for a day that already has a log of the same meal type are skipped
in local mode; use "meal upsert" to correct them.`
	if verb == "upsert" {
		short = "Create or update meals received from a vendor"
		long = `Create or update meals by (vendor, meal type, date).

Replaying the same command leaves one log per day with the latest quantity
and price.`
	}
	cmd := &cobra.Command{
		Use:   verb + " <vendor>",
		Short: short,
		Long: long + `

Without --price the vendor's current price for the meal type is used.

Example:
  mealsync meal ` + verb + ` "Aunty's Kitchen" --type lunch --date 2024-03-01 --qty 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			entries, err := opts.entries()
			if err != nil {
				return out.Fail("invalid meal", WrapExitError(ExitCommandError, "invalid meal", err))
			}
			st, err := opts.session(cmd.Context())
			if err != nil {
				return out.Fail("failed to open store", err)
			}
			v, err := resolveVendor(st, args[0])
			if err != nil {
				return out.Fail("failed to "+verb+" meal", err)
			}
			if err := checkQuota(st, verb+" meal", []engine.VendorBatch{{VendorID: v.ID, Meals: entries}}); err != nil {
				return out.Fail("meal quota reached", err)
			}

			if verb == "log" {
				logs, err := st.LogMeal(cmd.Context(), v.ID, entries)
				if err != nil {
					return out.Fail("failed to log meal", err)
				}
				return out.Success(logs, fmt.Sprintf("Logged %d meal(s) from %s\n", len(logs), v.Name))
			}
			tagged, err := st.UpsertMeal(cmd.Context(), v.ID, entries)
			if err != nil {
				return out.Fail("failed to upsert meal", err)
			}
			sum := model.Summarize(tagged)
			return out.Success(model.UpsertResponse{Logs: tagged, Summary: sum},
				fmt.Sprintf("%s: %d created, %d updated\n", v.Name, sum.Created, sum.Updated))
		},
	}
	cmd.Flags().StringVar(&opts.Type, "type", "", "meal type (breakfast|lunch|dinner)")
	cmd.Flags().StringArrayVar(&opts.Dates, "date", nil, "date as YYYY-MM-DD (repeatable, default today)")
	cmd.Flags().IntVar(&opts.Quantity, "qty", 1, "quantity")
	cmd.Flags().StringVar(&opts.Price, "price", "", "unit price (default: the vendor's current price)")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

// entries builds one meal entry per --date.
func (o *MealOptions) entries() ([]model.MealEntry, error) {
	dates := o.Dates
	if len(dates) == 0 {
		dates = []string{model.DateOf(time.Now()).String()}
	}
	var price decimal.NullDecimal
	if o.Price != "" {
		p, err := decimal.NewFromString(o.Price)
		if err != nil {
			return nil, fmt.Errorf("invalid price %q: %w", o.Price, err)
		}
		price = decimal.NewNullDecimal(p)
	}
	out := make([]model.MealEntry, 0, len(dates))
	for _, s := range dates {
		d, err := model.ParseDate(s)
		if err != nil {
			return nil, err
		}
		out = append(out, model.MealEntry{
			MealType: model.MealType(strings.ToLower(o.Type)),
			Date:     d,
			Price:    price,
			Quantity: o.Quantity,
		})
	}
	return out, nil
}

// batchFile is one vendor's entry in a `meal save` file.
type batchFile struct {
	Vendor string            `json:"vendor"`
	Meals  []model.MealEntry `json:"meals"`
}

func newMealSaveCommand(opts *MealOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Upsert meals for several vendors at once",
		Long: `Upsert meals for several vendors in one save.

Each vendor's batch commits or fails on its own. When some batches fail the
command reports which ones and exits with status 1.

The file is a YAML list:

  - vendor: Aunty's Kitchen
    meals:
      - {mealType: lunch, date: "2024-03-01", quantity: 1}
  - vendor: Dabba Express
    meals:
      - {mealType: dinner, date: "2024-03-01", quantity: 2, price: 95}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			files, err := readBatchFile(opts.File)
			if err != nil {
				return out.Fail("invalid batch file", WrapExitError(ExitCommandError, "invalid batch file", err))
			}
			st, err := opts.session(cmd.Context())
			if err != nil {
				return out.Fail("failed to open store", err)
			}

			batches := make([]engine.VendorBatch, 0, len(files))
			for _, f := range files {
				id := f.Vendor
				if v, err := resolveVendor(st, f.Vendor); err == nil {
					id = v.ID
				}
				batches = append(batches, engine.VendorBatch{VendorID: id, Meals: f.Meals})
			}
			if err := checkQuota(st, "save meals", batches); err != nil {
				return out.Fail("meal quota reached", err)
			}

			report, err := st.UpsertMeals(cmd.Context(), batches)
			if err != nil {
				return out.Fail("failed to save meals", err)
			}
			return reportSave(out, report)
		},
	}
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "YAML batch file (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// checkQuota rejects a write whose new meal logs would not fit in an
// anonymous session's remaining allowance. Nothing is written on rejection.
func checkQuota(st *engine.Store, op string, batches []engine.VendorBatch) error {
	auth := engine.Authenticated(st.Mode())
	if st.CanLogMeals(auth, batches) {
		return nil
	}
	return engine.NewError(engine.KindValidation, op,
		fmt.Sprintf("anonymous sessions are limited to %d meal logs; %d remaining, %d new; log in to continue",
			st.QuotaCap(), st.RemainingMeals(auth), st.NewMealCount(batches)), nil)
}

func readBatchFile(path string) ([]batchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var generic []map[string]interface{}
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	raw, err := json.Marshal(generic)
	if err != nil {
		return nil, err
	}
	var batches []batchFile
	if err := json.Unmarshal(raw, &batches); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if len(batches) == 0 {
		return nil, fmt.Errorf("%s: no vendor batches", path)
	}
	return batches, nil
}

type saveReportView struct {
	Status  engine.SaveStatus   `json:"status"`
	Summary model.UpsertSummary `json:"summary"`
	Results []vendorResultView  `json:"results"`
}

type vendorResultView struct {
	VendorID   string `json:"vendorId"`
	VendorName string `json:"vendorName,omitempty"`
	Saved      int    `json:"saved"`
	Error      string `json:"error,omitempty"`
}

// reportSave prints a multi-vendor save report. Partial and failed saves
// exit with ExitFailure.
func reportSave(out *OutputFormatter, report engine.SaveReport) error {
	view := saveReportView{Status: report.Status, Summary: report.Summary()}
	var b strings.Builder
	for _, r := range report.Results {
		rv := vendorResultView{VendorID: r.VendorID, VendorName: r.VendorName, Saved: len(r.Logs)}
		name := r.VendorName
		if name == "" {
			name = r.VendorID
		}
		if r.Err != nil {
			rv.Error = r.Err.Error()
			fmt.Fprintf(&b, "✗ %s: %v\n", name, r.Err)
		} else {
			fmt.Fprintf(&b, "✓ %s: %d saved\n", name, len(r.Logs))
		}
		view.Results = append(view.Results, rv)
	}
	fmt.Fprintf(&b, "\n%s: %d created, %d updated\n", report.Status, view.Summary.Created, view.Summary.Updated)

	if report.Status == engine.SaveStatusSaved {
		return out.Success(view, b.String())
	}

	if out.Format == "json" {
		_ = out.Error(ErrCodePartial, fmt.Sprintf("%d of %d vendor batches not saved", len(report.Failed()), len(report.Results)), view)
	} else {
		fmt.Fprint(out.Writer, b.String())
	}
	exitErr := WrapExitError(ExitFailure, fmt.Sprintf("save %s", report.Status), report.Err())
	exitErr.Reported = true
	return exitErr
}

func newMealListCommand(opts *MealOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List meal logs of the current month",
		Args:  cobra.NoArgs,
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

			var logs []model.MealLog
			for _, l := range st.MealLogs() {
				if opts.All || l.Date.SameMonth(month) {
					logs = append(logs, l)
				}
			}
			sort.SliceStable(logs, func(i, j int) bool { return logs[i].Date.Before(logs[j].Date) })

			names := map[string]string{}
			for _, v := range st.Vendors() {
				names[v.ID] = v.Name
			}
			var b strings.Builder
			if len(logs) == 0 {
				b.WriteString("No meal logs.\n")
			}
			for _, l := range logs {
				name := names[l.VendorID]
				if name == "" {
					name = l.VendorName
				}
				fmt.Fprintf(&b, "%s  %-9s %-24s x%d @ %s\n", l.Date, l.MealType, name, l.Quantity, l.Price.StringFixed(2))
			}
			return out.Success(logs, b.String())
		},
	}
	cmd.Flags().StringVar(&opts.Month, "month", "", "month as YYYY-MM (default: the current month cursor)")
	cmd.Flags().BoolVar(&opts.All, "all", false, "list every month")
	return cmd
}

func newMealDeleteCommand(opts *MealOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <vendor>",
		Short: "Cancel a meal log",
		Long: `Remove the meal log for a vendor, meal type and date.

Example:
  mealsync meal delete "Aunty's Kitchen" --type lunch --date 2024-03-01`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			if len(opts.Dates) != 1 {
				return out.Fail("invalid --date", NewExitError(ExitCommandError, "exactly one --date is required"))
			}
			d, err := model.ParseDate(opts.Dates[0])
			if err != nil {
				return out.Fail("invalid --date", WrapExitError(ExitCommandError, "invalid --date", err))
			}
			st, err := opts.session(cmd.Context())
			if err != nil {
				return out.Fail("failed to open store", err)
			}
			v, err := resolveVendor(st, args[0])
			if err != nil {
				return out.Fail("failed to delete meal log", err)
			}
			key := model.MealKey{VendorID: v.ID, MealType: model.MealType(strings.ToLower(opts.Type)), Date: d}
			if err := st.DeleteMealLog(cmd.Context(), key); err != nil {
				return out.Fail("failed to delete meal log", err)
			}
			return out.Success(key, fmt.Sprintf("Cancelled %s from %s on %s\n", key.MealType, v.Name, d))
		},
	}
	cmd.Flags().StringVar(&opts.Type, "type", "", "meal type (breakfast|lunch|dinner)")
	cmd.Flags().StringArrayVar(&opts.Dates, "date", nil, "date as YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

// parseMonth accepts YYYY-MM or a full date and returns the first of that
// month.
func parseMonth(s string) (model.Date, error) {
	if len(s) == len("2006-01") {
		s += "-01"
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return model.Date{}, err
	}
	return d.StartOfMonth(), nil
}
