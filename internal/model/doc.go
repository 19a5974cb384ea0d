// Package model provides the domain types shared by the mealsync packages.
//
// This package contains type definitions and validation only. Every other
// internal package imports model; model imports nothing internal, so it
// stays the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Prices are decimal.Decimal, never float64, and serialise as JSON numbers
//   - MealLog.Price is denormalised at write time and never recomputed
//   - A MealLog is identified by its natural key (owner, vendor, meal type, date)
//   - Dates carry no time component (see Date)
//   - JSON tags use camelCase to match the HTTP wire format
package model
