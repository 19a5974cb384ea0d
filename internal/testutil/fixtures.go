package testutil

import (
	"github.com/shopspring/decimal"

	"github.com/roach88/mealsync/internal/localstate"
	"github.com/roach88/mealsync/internal/model"
)

// Price parses a decimal literal and panics on malformed input.
func Price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Offering returns an offered meal type at price.
func Offering(t model.MealType, price string) model.Offering {
	return model.Offering{MealType: t, Offered: true, Price: Price(price)}
}

// Vendor returns an active vendor with the given offerings.
func Vendor(name string, offerings ...model.Offering) model.Vendor {
	return model.Vendor{Name: name, Status: model.StatusActive, Offerings: offerings}
}

// Entry returns a meal entry that takes its price from the vendor's offering.
func Entry(t model.MealType, date string, quantity int) model.MealEntry {
	return model.MealEntry{MealType: t, Date: model.MustParseDate(date), Quantity: quantity}
}

// PricedEntry returns a meal entry with an explicit price.
func PricedEntry(t model.MealType, date string, quantity int, price string) model.MealEntry {
	e := Entry(t, date, quantity)
	e.Price = decimal.NewNullDecimal(Price(price))
	return e
}

// MemoryLocal returns a snapshot store over a fresh in-memory backend.
func MemoryLocal() *localstate.Store {
	return localstate.New(localstate.NewMemory(), localstate.DefaultNamespace)
}
