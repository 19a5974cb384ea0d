package engine

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/mealsync/internal/model"
)

// fakeRemote is an in-memory RemoteAPI for one identity.
type fakeRemote struct {
	mu       sync.Mutex
	identity string
	n        int
	vendors  []model.Vendor
	logs     []model.MealLog

	// upsertErr fails UpsertMeals for the given vendor ids.
	upsertErr map[string]error
	// deleteErr fails DeleteVendor.
	deleteErr error
	calls     []string
}

func newFakeRemote(identity string) *fakeRemote {
	return &fakeRemote{identity: identity, upsertErr: map[string]error{}}
}

func (f *fakeRemote) nextID(prefix string) string {
	f.n++
	return fmt.Sprintf("%s-%s-%d", f.identity, prefix, f.n)
}

func (f *fakeRemote) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeRemote) CreateVendor(_ context.Context, v model.Vendor) (model.Vendor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateVendor")
	for _, existing := range f.vendors {
		if existing.Name == v.Name {
			return existing, nil
		}
	}
	v.ID = f.nextID("vendor")
	v.OwnerID = f.identity
	f.vendors = append(f.vendors, v)
	return v, nil
}

func (f *fakeRemote) ListVendors(context.Context) ([]model.Vendor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListVendors")
	return slices.Clone(f.vendors), nil
}

func (f *fakeRemote) UpdateVendor(_ context.Context, v model.Vendor) (model.Vendor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdateVendor")
	i := slices.IndexFunc(f.vendors, func(x model.Vendor) bool { return x.ID == v.ID })
	if i < 0 {
		return model.Vendor{}, NewError(KindNotFound, "update vendor", "Vendor not found", nil)
	}
	f.vendors[i] = v
	return v, nil
}

func (f *fakeRemote) DeleteVendor(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteVendor")
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.vendors = slices.DeleteFunc(f.vendors, func(v model.Vendor) bool { return v.ID == id })
	f.logs = slices.DeleteFunc(f.logs, func(l model.MealLog) bool { return l.VendorID == id })
	return nil
}

func (f *fakeRemote) LogMeals(_ context.Context, vendorID string, meals []model.MealEntry) ([]model.MealLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("LogMeals")
	var out []model.MealLog
	for _, e := range meals {
		l := model.MealLog{ID: f.nextID("log"), OwnerID: f.identity, VendorID: vendorID,
			MealType: e.MealType, Date: e.Date, Price: e.Price.Decimal, Quantity: e.Quantity}
		f.logs = append(f.logs, l)
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeRemote) UpsertMeals(_ context.Context, vendorID string, meals []model.MealEntry) ([]model.TaggedLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpsertMeals")
	if err := f.upsertErr[vendorID]; err != nil {
		return nil, err
	}
	var out []model.TaggedLog
	for _, e := range meals {
		l := model.MealLog{OwnerID: f.identity, VendorID: vendorID,
			MealType: e.MealType, Date: e.Date, Price: e.Price.Decimal, Quantity: e.Quantity}
		if i := slices.IndexFunc(f.logs, func(x model.MealLog) bool { return x.Key() == l.Key() }); i >= 0 {
			l.ID = f.logs[i].ID
			f.logs[i] = l
			out = append(out, model.TaggedLog{MealLog: l, Action: model.ActionUpdated})
			continue
		}
		l.ID = f.nextID("log")
		f.logs = append(f.logs, l)
		out = append(out, model.TaggedLog{MealLog: l, Action: model.ActionCreated})
	}
	return out, nil
}

func (f *fakeRemote) ListMealLogs(context.Context) ([]model.MealLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListMealLogs")
	return slices.Clone(f.logs), nil
}

func (f *fakeRemote) DeleteMealLog(_ context.Context, key model.MealKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteMealLog")
	i := slices.IndexFunc(f.logs, func(x model.MealLog) bool { return x.Key() == key })
	if i < 0 {
		return NewError(KindNotFound, "delete meal log", "Meal log not found", nil)
	}
	f.logs = slices.Delete(f.logs, i, i+1)
	return nil
}
