package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/roach88/mealsync/internal/model"
)

func TestUpsertMealLogs_CreatedThenUpdated(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	v := createTestVendor(t, s, "user-1", "Aunty's Kitchen")

	first, err := s.UpsertMealLogs(ctx, "user-1", v.ID, []model.MealEntry{entry(model.Lunch, "2024-03-01", 60, 1)})
	if err != nil {
		t.Fatalf("UpsertMealLogs() failed: %v", err)
	}
	if len(first) != 1 || first[0].Action != model.ActionCreated {
		t.Fatalf("first upsert = %+v, expected one created", first)
	}

	second, err := s.UpsertMealLogs(ctx, "user-1", v.ID, []model.MealEntry{entry(model.Lunch, "2024-03-01", 60, 2)})
	if err != nil {
		t.Fatalf("UpsertMealLogs() failed: %v", err)
	}
	if len(second) != 1 || second[0].Action != model.ActionUpdated {
		t.Fatalf("second upsert = %+v, expected one updated", second)
	}
	if second[0].ID != first[0].ID {
		t.Errorf("id changed on update: %q -> %q", first[0].ID, second[0].ID)
	}
	if second[0].Quantity != 2 || !second[0].Price.Equal(decimal.NewFromInt(60)) {
		t.Errorf("stored = qty %d price %s, expected qty 2 price 60", second[0].Quantity, second[0].Price)
	}
	if second[0].VendorName != "Aunty's Kitchen" {
		t.Errorf("vendor name = %q", second[0].VendorName)
	}

	logs, err := s.ListMealLogs(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListMealLogs() failed: %v", err)
	}
	if len(logs) != 1 {
		t.Errorf("len = %d, expected one record per natural key", len(logs))
	}
}

func TestUpsertMealLogs_ConcurrentSameKey(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	v := createTestVendor(t, s, "user-1", "Aunty's Kitchen")

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(qty int) {
			defer wg.Done()
			_, err := s.UpsertMealLogs(ctx, "user-1", v.ID, []model.MealEntry{entry(model.Lunch, "2024-03-01", 60, qty)})
			errs <- err
		}(i + 1)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("UpsertMealLogs() failed: %v", err)
		}
	}

	logs, err := s.ListMealLogs(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListMealLogs() failed: %v", err)
	}
	if len(logs) != 1 {
		t.Errorf("len = %d, concurrent upserts must leave one record", len(logs))
	}
}

func TestUpsertMealLogs_PriceFromOffering(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	v := createTestVendor(t, s, "user-1", "Aunty's Kitchen")

	got, err := s.UpsertMealLogs(ctx, "user-1", v.ID, []model.MealEntry{
		{MealType: model.Dinner, Date: model.MustParseDate("2024-03-01"), Quantity: 1},
	})
	if err != nil {
		t.Fatalf("UpsertMealLogs() failed: %v", err)
	}
	if !got[0].Price.Equal(decimal.NewFromInt(80)) {
		t.Errorf("price = %s, expected offering price 80", got[0].Price)
	}

	_, err = s.UpsertMealLogs(ctx, "user-1", v.ID, []model.MealEntry{
		{MealType: model.Breakfast, Date: model.MustParseDate("2024-03-01"), Quantity: 1},
	})
	if !errors.Is(err, ErrPriceRequired) {
		t.Errorf("err = %v, expected ErrPriceRequired", err)
	}
}

func TestUpsertMealLogs_ForeignVendor(t *testing.T) {
	s := createTestStore(t)
	v := createTestVendor(t, s, "user-1", "Aunty's Kitchen")

	_, err := s.UpsertMealLogs(context.Background(), "user-2", v.ID, []model.MealEntry{entry(model.Lunch, "2024-03-01", 60, 1)})
	if !errors.Is(err, ErrVendorNotFound) {
		t.Errorf("err = %v, expected ErrVendorNotFound", err)
	}
}

func TestUpsertMealLogs_BatchIsAtomic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	v := createTestVendor(t, s, "user-1", "Aunty's Kitchen")

	_, err := s.UpsertMealLogs(ctx, "user-1", v.ID, []model.MealEntry{
		entry(model.Lunch, "2024-03-01", 60, 1),
		{MealType: model.Breakfast, Date: model.MustParseDate("2024-03-01"), Quantity: 1},
	})
	if err == nil {
		t.Fatal("expected error for unpriced breakfast")
	}

	logs, err := s.ListMealLogs(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListMealLogs() failed: %v", err)
	}
	if len(logs) != 0 {
		t.Errorf("failed batch left %d logs", len(logs))
	}
}

func TestInsertMealLogs_SkipsExistingKeys(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	v := createTestVendor(t, s, "user-1", "Aunty's Kitchen")

	first, err := s.InsertMealLogs(ctx, "user-1", v.ID, []model.MealEntry{entry(model.Lunch, "2024-03-01", 60, 1)})
	if err != nil {
		t.Fatalf("InsertMealLogs() failed: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("len = %d, expected 1", len(first))
	}

	second, err := s.InsertMealLogs(ctx, "user-1", v.ID, []model.MealEntry{
		entry(model.Lunch, "2024-03-01", 70, 3),
		entry(model.Lunch, "2024-03-02", 60, 1),
	})
	if err != nil {
		t.Fatalf("InsertMealLogs() failed: %v", err)
	}
	if len(second) != 1 || second[0].Date != model.MustParseDate("2024-03-02") {
		t.Errorf("expected only the new date inserted, got %+v", second)
	}
}

func TestListMealLogs_JoinedAndScoped(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mine := createTestVendor(t, s, "user-1", "Aunty's Kitchen")
	theirs := createTestVendor(t, s, "user-2", "Dosa Corner")

	if _, err := s.InsertMealLogs(ctx, "user-1", mine.ID, []model.MealEntry{
		entry(model.Dinner, "2024-03-05", 80, 1),
		entry(model.Lunch, "2024-03-01", 60, 2),
	}); err != nil {
		t.Fatalf("InsertMealLogs() failed: %v", err)
	}
	if _, err := s.InsertMealLogs(ctx, "user-2", theirs.ID, []model.MealEntry{entry(model.Lunch, "2024-03-01", 60, 1)}); err != nil {
		t.Fatalf("InsertMealLogs() failed: %v", err)
	}

	logs, err := s.ListMealLogs(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListMealLogs() failed: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("len = %d, expected 2", len(logs))
	}
	if logs[0].Date != model.MustParseDate("2024-03-01") {
		t.Errorf("logs not ordered by date: first = %s", logs[0].Date)
	}
	if logs[0].VendorName != "Aunty's Kitchen" {
		t.Errorf("vendor name = %q, expected join", logs[0].VendorName)
	}
	if logs[0].Quantity != 2 || !logs[0].Price.Equal(decimal.NewFromInt(60)) {
		t.Errorf("unexpected first log %+v", logs[0])
	}
}

func TestDeleteMealLog(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	v := createTestVendor(t, s, "user-1", "Aunty's Kitchen")
	if _, err := s.InsertMealLogs(ctx, "user-1", v.ID, []model.MealEntry{entry(model.Lunch, "2024-03-01", 60, 1)}); err != nil {
		t.Fatalf("InsertMealLogs() failed: %v", err)
	}

	key := model.MealKey{OwnerID: "user-1", VendorID: v.ID, MealType: model.Lunch, Date: model.MustParseDate("2024-03-01")}
	foreign := key
	foreign.OwnerID = "user-2"
	if err := s.DeleteMealLog(ctx, foreign); !errors.Is(err, ErrMealLogNotFound) {
		t.Errorf("foreign delete: err = %v, expected ErrMealLogNotFound", err)
	}
	if err := s.DeleteMealLog(ctx, key); err != nil {
		t.Fatalf("DeleteMealLog() failed: %v", err)
	}
	if err := s.DeleteMealLog(ctx, key); !errors.Is(err, ErrMealLogNotFound) {
		t.Errorf("second delete: err = %v, expected ErrMealLogNotFound", err)
	}
}
