package model

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName returns the canonical form of a vendor name: NFC, trimmed,
// inner whitespace collapsed. Vendor names are compared in this form.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(norm.NFC.String(name)), " ")
}

// ValidateVendor checks the fields a caller supplies when creating or
// replacing a vendor.
func ValidateVendor(v Vendor) error {
	if NormalizeName(v.Name) == "" {
		return errors.New("vendor name is required")
	}
	if v.Status != "" && !v.Status.Valid() {
		return fmt.Errorf("invalid vendor status %q", v.Status)
	}
	seen := make(map[MealType]bool, len(v.Offerings))
	for _, o := range v.Offerings {
		if !o.MealType.Valid() {
			return fmt.Errorf("invalid meal type %q", o.MealType)
		}
		if seen[o.MealType] {
			return fmt.Errorf("duplicate offering for %s", o.MealType)
		}
		seen[o.MealType] = true
		if o.Price.IsNegative() {
			return fmt.Errorf("%s price must not be negative", o.MealType)
		}
	}
	return nil
}

// ValidateEntry checks a single meal entry. When requirePrice is set the
// entry must carry an explicit price, as on the wire.
func ValidateEntry(e MealEntry, requirePrice bool) error {
	if !e.MealType.Valid() {
		return fmt.Errorf("invalid meal type %q", e.MealType)
	}
	if e.Date.IsZero() {
		return fmt.Errorf("%s: date is required", e.MealType)
	}
	if e.Quantity < 1 {
		return fmt.Errorf("%s on %s: quantity must be at least 1", e.MealType, e.Date)
	}
	if requirePrice && !e.Price.Valid {
		return fmt.Errorf("%s on %s: price is required", e.MealType, e.Date)
	}
	if e.Price.Valid && e.Price.Decimal.IsNegative() {
		return fmt.Errorf("%s on %s: price must not be negative", e.MealType, e.Date)
	}
	return nil
}

// ValidateBatch checks the vendor id and every entry of a batch.
func ValidateBatch(vendorID string, entries []MealEntry, requirePrice bool) error {
	if vendorID == "" {
		return errors.New("vendor ID is required")
	}
	if len(entries) == 0 {
		return errors.New("no meals provided")
	}
	for _, e := range entries {
		if err := ValidateEntry(e, requirePrice); err != nil {
			return err
		}
	}
	return nil
}
