package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mealsync/internal/localstate"
	"github.com/roach88/mealsync/internal/model"
)

var testNow = time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)

func price(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}

func offering(t model.MealType, p int64) model.Offering {
	return model.Offering{MealType: t, Offered: true, Price: decimal.NewFromInt(p)}
}

func lunch(date string, qty int) model.MealEntry {
	return model.MealEntry{MealType: model.Lunch, Date: model.MustParseDate(date), Quantity: qty}
}

func newLocalStore(t *testing.T, opts ...Option) (*Store, *localstate.Store) {
	t.Helper()
	snap := localstate.New(localstate.NewMemory(), localstate.DefaultNamespace)
	s := newStoreOn(t, snap, opts...)
	require.NoError(t, s.Hydrate(context.Background()))
	return s, snap
}

func newStoreOn(t *testing.T, snap *localstate.Store, opts ...Option) *Store {
	t.Helper()
	base := []Option{
		WithIDGenerator(NewSequenceGenerator("id")),
		WithClock(FixedClock{T: testNow}),
	}
	return New(snap, append(base, opts...)...)
}

func addAunty(t *testing.T, s *Store) model.Vendor {
	t.Helper()
	v, err := s.AddVendor(context.Background(), model.Vendor{
		Name:      "Aunty's Kitchen",
		Offerings: []model.Offering{offering(model.Lunch, 60), offering(model.Dinner, 80)},
	})
	require.NoError(t, err)
	return v
}

func activityTexts(s *Store) []string {
	var out []string
	for _, a := range s.Activities() {
		out = append(out, a.Description)
	}
	return out
}

func TestStore_AuntysKitchenScenario(t *testing.T) {
	ctx := context.Background()
	s, _ := newLocalStore(t)
	v := addAunty(t, s)

	first, err := s.UpsertMeal(ctx, v.ID, []model.MealEntry{{
		MealType: model.Lunch, Date: model.MustParseDate("2024-03-01"), Price: price(60), Quantity: 1,
	}})
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, model.ActionCreated, first[0].Action)

	second, err := s.UpsertMeal(ctx, v.ID, []model.MealEntry{{
		MealType: model.Lunch, Date: model.MustParseDate("2024-03-01"), Price: price(60), Quantity: 2,
	}})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, model.ActionUpdated, second[0].Action)
	assert.Equal(t, first[0].ID, second[0].ID)

	logs := s.MealLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, 2, logs[0].Quantity)
	assert.True(t, decimal.NewFromInt(60).Equal(logs[0].Price))

	require.NoError(t, s.DeleteVendor(ctx, v.ID))
	assert.Empty(t, s.MealLogs())
	assert.Empty(t, s.Vendors())

	assert.Equal(t, []string{
		`Deleted vendor: "Aunty's Kitchen"`,
		"lunch updated for Aunty's Kitchen",
		"lunch created for Aunty's Kitchen",
		`Added new vendor: "Aunty's Kitchen"`,
	}, activityTexts(s))
}

func TestStore_AddVendor_Local(t *testing.T) {
	ctx := context.Background()
	s, snap := newLocalStore(t)

	v, err := s.AddVendor(ctx, model.Vendor{Name: "  Sharma   Tiffins "})
	require.NoError(t, err)
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, "Sharma Tiffins", v.Name)
	assert.Equal(t, model.StatusActive, v.Status)
	assert.Empty(t, v.OwnerID)

	saved, found, err := snap.Load(ctx)
	require.NoError(t, err)
	require.True(t, found, "local mutation should persist the snapshot")
	require.Len(t, saved.Vendors, 1)
	require.Len(t, saved.Activities, 1)
	assert.Equal(t, model.ActivityVendorAdd, saved.Activities[0].Type)
	assert.Equal(t, testNow, saved.Activities[0].Timestamp)
}

func TestStore_AddVendor_Validation(t *testing.T) {
	s, _ := newLocalStore(t)

	_, err := s.AddVendor(context.Background(), model.Vendor{Name: "   "})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Empty(t, s.Vendors())
	assert.Empty(t, s.Activities())
}

func TestStore_UpdateVendor(t *testing.T) {
	ctx := context.Background()
	s, _ := newLocalStore(t)
	v := addAunty(t, s)

	inactive := model.StatusInactive
	updated, err := s.UpdateVendor(ctx, v.ID, VendorPatch{Status: &inactive})
	require.NoError(t, err)
	assert.Equal(t, model.StatusInactive, updated.Status)
	assert.Len(t, updated.Offerings, 2, "nil offerings keep the current ones")
	assert.Len(t, s.Activities(), 1, "status change records no activity")

	name := "Aunty's Dhaba"
	_, err = s.UpdateVendor(ctx, v.ID, VendorPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, `Renamed vendor "Aunty's Kitchen" to "Aunty's Dhaba"`, activityTexts(s)[0])

	_, err = s.UpdateVendor(ctx, "missing", VendorPatch{Name: &name})
	assert.True(t, IsNotFound(err))
}

func TestStore_UpdateVendor_EmptyOfferingsRejected(t *testing.T) {
	ctx := context.Background()
	s, _ := newLocalStore(t)
	v := addAunty(t, s)

	_, err := s.UpdateVendor(ctx, v.ID, VendorPatch{Offerings: []model.Offering{}})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Len(t, s.Vendors()[0].Offerings, 2)
	assert.Len(t, s.Activities(), 1)
}

func TestStore_PriceImmutability(t *testing.T) {
	ctx := context.Background()
	s, _ := newLocalStore(t)
	v := addAunty(t, s)

	_, err := s.LogMeal(ctx, v.ID, []model.MealEntry{lunch("2024-03-02", 1)})
	require.NoError(t, err)

	_, err = s.UpdateVendor(ctx, v.ID, VendorPatch{Offerings: []model.Offering{offering(model.Lunch, 75)}})
	require.NoError(t, err)

	logs := s.MealLogs()
	require.Len(t, logs, 1)
	assert.True(t, decimal.NewFromInt(60).Equal(logs[0].Price), "existing log keeps its price")

	_, err = s.LogMeal(ctx, v.ID, []model.MealEntry{lunch("2024-03-03", 1)})
	require.NoError(t, err)
	logs = s.MealLogs()
	require.Len(t, logs, 2)
	assert.True(t, decimal.NewFromInt(75).Equal(logs[1].Price), "new log takes the current offering price")
}

func TestStore_DeleteVendor_Cascade(t *testing.T) {
	ctx := context.Background()
	s, _ := newLocalStore(t)
	aunty := addAunty(t, s)
	other, err := s.AddVendor(ctx, model.Vendor{Name: "Dosa Corner", Offerings: []model.Offering{offering(model.Breakfast, 40)}})
	require.NoError(t, err)

	_, err = s.LogMeal(ctx, aunty.ID, []model.MealEntry{lunch("2024-03-01", 1), lunch("2024-03-02", 1), lunch("2024-03-03", 2)})
	require.NoError(t, err)
	_, err = s.LogMeal(ctx, other.ID, []model.MealEntry{{MealType: model.Breakfast, Date: model.MustParseDate("2024-03-01"), Quantity: 1}})
	require.NoError(t, err)
	before := len(s.Activities())

	require.NoError(t, s.DeleteVendor(ctx, aunty.ID))

	logs := s.MealLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, other.ID, logs[0].VendorID)

	acts := s.Activities()
	assert.Len(t, acts, before+1, "exactly one activity per vendor delete")
	assert.Equal(t, model.ActivityVendorDelete, acts[0].Type)
}

func TestStore_DeleteVendor_Unknown(t *testing.T) {
	s, _ := newLocalStore(t)
	err := s.DeleteVendor(context.Background(), "nope")
	assert.True(t, IsNotFound(err))
	assert.Empty(t, s.Activities())
}

func TestStore_LogMeal_LocalSkipsExisting(t *testing.T) {
	ctx := context.Background()
	s, _ := newLocalStore(t)
	v := addAunty(t, s)

	created, err := s.LogMeal(ctx, v.ID, []model.MealEntry{lunch("2024-03-01", 1)})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "Aunty's Kitchen", created[0].VendorName)

	created, err = s.LogMeal(ctx, v.ID, []model.MealEntry{lunch("2024-03-01", 3), lunch("2024-03-02", 1)})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Len(t, s.MealLogs(), 2)
	assert.Equal(t, "Lunch received from Aunty's Kitchen", activityTexts(s)[0])
}

func TestStore_LogMeal_Validation(t *testing.T) {
	ctx := context.Background()
	s, _ := newLocalStore(t)
	v := addAunty(t, s)

	tests := []struct {
		name     string
		vendorID string
		entries  []model.MealEntry
		check    func(error) bool
	}{
		{"missing vendor id", "", []model.MealEntry{lunch("2024-03-01", 1)}, IsValidation},
		{"empty batch", v.ID, nil, IsValidation},
		{"zero quantity", v.ID, []model.MealEntry{lunch("2024-03-01", 0)}, IsValidation},
		{"not offered and unpriced", v.ID, []model.MealEntry{{MealType: model.Breakfast, Date: model.MustParseDate("2024-03-01"), Quantity: 1}}, IsValidation},
		{"unknown vendor", "ghost", []model.MealEntry{lunch("2024-03-01", 1)}, IsNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.LogMeal(ctx, tt.vendorID, tt.entries)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected kind for %v", err)
		})
	}
	assert.Empty(t, s.MealLogs())
}

func TestStore_LogMeal_ExplicitPriceForUnofferedMeal(t *testing.T) {
	s, _ := newLocalStore(t)
	v := addAunty(t, s)

	logs, err := s.LogMeal(context.Background(), v.ID, []model.MealEntry{{
		MealType: model.Breakfast, Date: model.MustParseDate("2024-03-01"), Price: price(30), Quantity: 1,
	}})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.True(t, decimal.NewFromInt(30).Equal(logs[0].Price))
}

func TestStore_UpsertMeal_DuplicateKeysInBatch(t *testing.T) {
	s, _ := newLocalStore(t)
	v := addAunty(t, s)

	tagged, err := s.UpsertMeal(context.Background(), v.ID, []model.MealEntry{lunch("2024-03-01", 1), lunch("2024-03-01", 4)})
	require.NoError(t, err)
	require.Len(t, tagged, 2)
	assert.Equal(t, model.ActionCreated, tagged[0].Action)
	assert.Equal(t, model.ActionUpdated, tagged[1].Action)

	logs := s.MealLogs()
	require.Len(t, logs, 1, "one log per natural key")
	assert.Equal(t, 4, logs[0].Quantity)
}

func TestStore_DeleteMealLog(t *testing.T) {
	ctx := context.Background()
	s, _ := newLocalStore(t)
	v := addAunty(t, s)
	_, err := s.LogMeal(ctx, v.ID, []model.MealEntry{lunch("2024-03-01", 1)})
	require.NoError(t, err)

	key := model.MealKey{VendorID: v.ID, MealType: model.Lunch, Date: model.MustParseDate("2024-03-01")}
	require.NoError(t, s.DeleteMealLog(ctx, key))
	assert.Empty(t, s.MealLogs())
	assert.Equal(t, "Lunch cancelled from Aunty's Kitchen", activityTexts(s)[0])

	count := len(s.Activities())
	require.NoError(t, s.DeleteMealLog(ctx, key), "absent log is a no-op")
	assert.Len(t, s.Activities(), count)

	err = s.DeleteMealLog(ctx, model.MealKey{VendorID: v.ID, MealType: "brunch", Date: key.Date})
	assert.True(t, IsValidation(err))
}

func TestStore_Quota(t *testing.T) {
	ctx := context.Background()
	snap := localstate.New(localstate.NewMemory(), localstate.DefaultNamespace)
	s := newStoreOn(t, snap)

	assert.False(t, s.CanLogMeal(false), "unhydrated anonymous store must not allow logging")
	assert.Equal(t, 0, s.RemainingMeals(false))

	require.NoError(t, s.Hydrate(ctx))
	v := addAunty(t, s)
	assert.Equal(t, 5, s.RemainingMeals(false))

	for day := 1; day <= 5; day++ {
		require.True(t, s.CanLogMeal(false))
		_, err := s.LogMeal(ctx, v.ID, []model.MealEntry{{
			MealType: model.Lunch, Date: model.NewDate(2024, time.March, day), Quantity: 1,
		}})
		require.NoError(t, err)
	}
	assert.False(t, s.CanLogMeal(false))
	assert.Equal(t, 0, s.RemainingMeals(false))
	assert.True(t, s.CanLogMeal(true))
	assert.Equal(t, Unlimited, s.RemainingMeals(true))
}

func TestStore_NewMealCount(t *testing.T) {
	ctx := context.Background()
	s, _ := newLocalStore(t)
	v := addAunty(t, s)
	_, err := s.LogMeal(ctx, v.ID, []model.MealEntry{lunch("2024-03-01", 1), lunch("2024-03-02", 1)})
	require.NoError(t, err)

	batches := []VendorBatch{
		{VendorID: v.ID, Meals: []model.MealEntry{
			lunch("2024-03-01", 3),
			lunch("2024-03-03", 1),
			lunch("2024-03-03", 2),
			{MealType: model.Dinner, Date: model.MustParseDate("2024-03-01"), Quantity: 1},
		}},
		{VendorID: v.ID, Meals: []model.MealEntry{lunch("2024-03-04", 1)}},
		{VendorID: "missing", Meals: []model.MealEntry{lunch("2024-03-05", 1)}},
	}
	assert.Equal(t, 3, s.NewMealCount(batches), "held keys, repeats and unknown vendors use no allowance")
	assert.Equal(t, 3, s.RemainingMeals(false))
	assert.True(t, s.CanLogMeals(false, batches))

	batches[1].Meals = append(batches[1].Meals, lunch("2024-03-06", 1))
	assert.False(t, s.CanLogMeals(false, batches))
	assert.True(t, s.CanLogMeals(true, batches))

	held := []VendorBatch{{VendorID: v.ID, Meals: []model.MealEntry{lunch("2024-03-02", 4)}}}
	full, _ := newLocalStore(t, WithQuotaCap(2))
	fv := addAunty(t, full)
	_, err = full.LogMeal(ctx, fv.ID, []model.MealEntry{lunch("2024-03-01", 1), lunch("2024-03-02", 1)})
	require.NoError(t, err)
	held[0].VendorID = fv.ID
	assert.False(t, full.CanLogMeal(false))
	assert.True(t, full.CanLogMeals(false, held), "updating a held key at the cap is allowed")
}

func TestStore_CanLogMeals_Unhydrated(t *testing.T) {
	snap := localstate.New(localstate.NewMemory(), localstate.DefaultNamespace)
	s := newStoreOn(t, snap)
	assert.False(t, s.CanLogMeals(false, nil))
}

func TestStore_HydrateFromSnapshot(t *testing.T) {
	ctx := context.Background()
	s, snap := newLocalStore(t)
	v := addAunty(t, s)
	_, err := s.LogMeal(ctx, v.ID, []model.MealEntry{lunch("2024-03-01", 1)})
	require.NoError(t, err)
	s.SetOnboardingCompleted(ctx, true)
	s.SetCurrentMonth(ctx, model.MustParseDate("2024-02-17"))

	reopened := newStoreOn(t, snap)
	require.NoError(t, reopened.Hydrate(ctx))
	require.Len(t, reopened.Vendors(), 1)
	assert.Equal(t, v.ID, reopened.Vendors()[0].ID)
	require.Len(t, reopened.MealLogs(), 1)
	assert.Equal(t, s.MealLogs()[0].Key(), reopened.MealLogs()[0].Key())
	assert.Equal(t, activityTexts(s), activityTexts(reopened))
	assert.True(t, reopened.OnboardingCompleted())
	assert.Equal(t, model.NewDate(2024, time.February, 1), reopened.CurrentMonth())
}

func TestStore_Reset(t *testing.T) {
	ctx := context.Background()
	s, snap := newLocalStore(t)
	addAunty(t, s)

	require.NoError(t, s.Reset(ctx))
	assert.Empty(t, s.Vendors())
	assert.Empty(t, s.Activities())
	assert.True(t, s.Hydrated())

	_, found, err := snap.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_SnapshotFailureDoesNotFailMutation(t *testing.T) {
	snap := localstate.New(failingBackend{}, localstate.DefaultNamespace)
	s := newStoreOn(t, snap)
	require.NoError(t, s.Hydrate(context.Background()))

	v, err := s.AddVendor(context.Background(), model.Vendor{Name: "Dosa Corner"})
	require.NoError(t, err)
	assert.Len(t, s.Vendors(), 1)
	assert.NotEmpty(t, v.ID)
}

type failingBackend struct{}

func (failingBackend) Load(context.Context, string) ([]byte, error) { return nil, localstate.ErrNotFound }
func (failingBackend) Save(context.Context, string, []byte) error   { return errors.New("disk full") }
func (failingBackend) Remove(context.Context, string) error         { return nil }

func TestStore_Spend(t *testing.T) {
	ctx := context.Background()
	s, _ := newLocalStore(t)
	aunty := addAunty(t, s)
	dosa, err := s.AddVendor(ctx, model.Vendor{Name: "Dosa Corner", Offerings: []model.Offering{offering(model.Breakfast, 40)}})
	require.NoError(t, err)

	_, err = s.LogMeal(ctx, aunty.ID, []model.MealEntry{lunch("2024-03-01", 2), lunch("2024-04-01", 1)})
	require.NoError(t, err)
	_, err = s.LogMeal(ctx, dosa.ID, []model.MealEntry{{MealType: model.Breakfast, Date: model.MustParseDate("2024-03-05"), Quantity: 1}})
	require.NoError(t, err)

	sum := s.Spend(model.MustParseDate("2024-03-20"))
	assert.Equal(t, model.NewDate(2024, time.March, 1), sum.Month)
	assert.Equal(t, 3, sum.TotalMeals)
	assert.True(t, decimal.NewFromInt(160).Equal(sum.TotalCost))
	require.Len(t, sum.ByVendor, 2)
	assert.Equal(t, "Aunty's Kitchen", sum.ByVendor[0].Name)
	assert.True(t, decimal.NewFromInt(120).Equal(sum.ByVendor[0].Cost))
	require.Len(t, sum.ByMealType, 2)
	assert.Equal(t, "breakfast", sum.ByMealType[0].Name)
}
