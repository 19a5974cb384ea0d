package cli

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/roach88/mealsync/internal/engine"
	"github.com/roach88/mealsync/internal/model"
)

// VendorOptions holds flags for the vendor subcommands.
type VendorOptions struct {
	*RootOptions
	Meals  []string // "lunch=80", "dinner=100", "breakfast=off"
	Status string
	Name   string
}

// NewVendorCommand creates the vendor command group.
func NewVendorCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vendor",
		Short: "Manage food vendors",
	}
	cmd.AddCommand(newVendorAddCommand(&VendorOptions{RootOptions: rootOpts}))
	cmd.AddCommand(newVendorListCommand(rootOpts))
	cmd.AddCommand(newVendorUpdateCommand(&VendorOptions{RootOptions: rootOpts}))
	cmd.AddCommand(newVendorDeleteCommand(rootOpts))
	return cmd
}

func newVendorAddCommand(opts *VendorOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a vendor",
		Long: `Add a vendor and the meals it offers.

Example:
  mealsync vendor add "Aunty's Kitchen" --meal lunch=80 --meal dinner=100`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			offerings, err := parseOfferings(opts.Meals)
			if err != nil {
				return out.Fail("invalid --meal", WrapExitError(ExitCommandError, "invalid --meal", err))
			}
			st, err := opts.session(cmd.Context())
			if err != nil {
				return out.Fail("failed to open store", err)
			}
			v, err := st.AddVendor(cmd.Context(), model.Vendor{
				Name:      args[0],
				Status:    model.VendorStatus(opts.Status),
				Offerings: offerings,
			})
			if err != nil {
				return out.Fail("failed to add vendor", err)
			}
			return out.Success(v, fmt.Sprintf("Added vendor %s (%s)\n", v.Name, v.ID))
		},
	}
	cmd.Flags().StringArrayVar(&opts.Meals, "meal", nil, "offered meal as type=price, or type=off (repeatable)")
	cmd.Flags().StringVar(&opts.Status, "status", "", "vendor status (active|inactive)")
	return cmd
}

func newVendorListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List vendors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			st, err := opts.session(cmd.Context())
			if err != nil {
				return out.Fail("failed to open store", err)
			}
			vendors := st.Vendors()
			if len(vendors) == 0 {
				return out.Success(vendors, "No vendors.\n")
			}
			var b strings.Builder
			for _, v := range vendors {
				fmt.Fprintf(&b, "%-24s %-8s %s\n", v.Name, v.Status, formatOfferings(v.Offerings))
			}
			return out.Success(vendors, b.String())
		},
	}
}

func newVendorUpdateCommand(opts *VendorOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <vendor>",
		Short: "Rename a vendor, change its status or replace its meals",
		Long: `Update a vendor referenced by id or name.

Existing meal logs keep the price they were logged with.

Example:
  mealsync vendor update "Aunty's Kitchen" --name "Aunty's Tiffin"
  mealsync vendor update "Aunty's Tiffin" --meal lunch=90 --meal dinner=off`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			var patch engine.VendorPatch
			if cmd.Flags().Changed("name") {
				patch.Name = &opts.Name
			}
			if cmd.Flags().Changed("status") {
				status := model.VendorStatus(opts.Status)
				patch.Status = &status
			}
			if len(opts.Meals) > 0 {
				offerings, err := parseOfferings(opts.Meals)
				if err != nil {
					return out.Fail("invalid --meal", WrapExitError(ExitCommandError, "invalid --meal", err))
				}
				patch.Offerings = offerings
			}

			st, err := opts.session(cmd.Context())
			if err != nil {
				return out.Fail("failed to open store", err)
			}
			current, err := resolveVendor(st, args[0])
			if err != nil {
				return out.Fail("failed to update vendor", err)
			}
			v, err := st.UpdateVendor(cmd.Context(), current.ID, patch)
			if err != nil {
				return out.Fail("failed to update vendor", err)
			}
			return out.Success(v, fmt.Sprintf("Updated vendor %s\n", v.Name))
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "new vendor name")
	cmd.Flags().StringVar(&opts.Status, "status", "", "vendor status (active|inactive)")
	cmd.Flags().StringArrayVar(&opts.Meals, "meal", nil, "offered meal as type=price, or type=off (repeatable)")
	return cmd
}

func newVendorDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <vendor>",
		Short: "Delete a vendor and all of its meal logs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			st, err := opts.session(cmd.Context())
			if err != nil {
				return out.Fail("failed to open store", err)
			}
			v, err := resolveVendor(st, args[0])
			if err != nil {
				return out.Fail("failed to delete vendor", err)
			}
			if err := st.DeleteVendor(cmd.Context(), v.ID); err != nil {
				return out.Fail("failed to delete vendor", err)
			}
			return out.Success(map[string]string{"vendorId": v.ID}, fmt.Sprintf("Deleted vendor %s\n", v.Name))
		},
	}
}

// parseOfferings parses repeated "type=price" flags. "type=off" declares
// the meal type as not offered.
func parseOfferings(specs []string) ([]model.Offering, error) {
	out := make([]model.Offering, 0, len(specs))
	for _, spec := range specs {
		typ, value, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("%q: want type=price", spec)
		}
		o := model.Offering{MealType: model.MealType(strings.ToLower(strings.TrimSpace(typ))), Offered: true}
		if !o.MealType.Valid() {
			return nil, fmt.Errorf("%q: invalid meal type %q", spec, typ)
		}
		value = strings.TrimSpace(value)
		if strings.EqualFold(value, "off") {
			o.Offered = false
			o.Price = decimal.Zero
		} else {
			price, err := decimal.NewFromString(value)
			if err != nil {
				return nil, fmt.Errorf("%q: invalid price: %w", spec, err)
			}
			o.Price = price
		}
		out = append(out, o)
	}
	return out, nil
}

func formatOfferings(offerings []model.Offering) string {
	var parts []string
	for _, t := range model.MealTypes {
		for _, o := range offerings {
			if o.MealType == t && o.Offered {
				parts = append(parts, fmt.Sprintf("%s=%s", t, o.Price.StringFixed(2)))
			}
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}
