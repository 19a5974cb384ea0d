package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/roach88/mealsync/internal/model"
)

// createTestStore creates a new SQLite store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestVendor creates a vendor offering lunch at 60 and dinner at 80.
func createTestVendor(t *testing.T, s *Store, userID, name string) model.Vendor {
	t.Helper()
	v, created, err := s.CreateVendor(context.Background(), userID, model.Vendor{
		Name: name,
		Offerings: []model.Offering{
			{MealType: model.Lunch, Offered: true, Price: decimal.NewFromInt(60)},
			{MealType: model.Dinner, Offered: true, Price: decimal.NewFromInt(80)},
		},
	})
	if err != nil {
		t.Fatalf("CreateVendor() failed: %v", err)
	}
	if !created {
		t.Fatalf("CreateVendor() created = false for new vendor %q", name)
	}
	return v
}

func entry(t model.MealType, date string, price int64, qty int) model.MealEntry {
	return model.MealEntry{
		MealType: t,
		Date:     model.MustParseDate(date),
		Price:    decimal.NewNullDecimal(decimal.NewFromInt(price)),
		Quantity: qty,
	}
}
