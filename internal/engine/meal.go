package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/mealsync/internal/model"
)

// batch is a validated vendor batch with every entry priced.
type batch struct {
	vendor  model.Vendor
	entries []model.MealEntry
}

// prepare validates a batch against the current view and fills missing
// prices from the vendor's offerings. A price on an entry is kept as given:
// a later change to the vendor's offering never reprices existing logs.
func (s *Store) prepare(op, vendorID string, entries []model.MealEntry) (batch, error) {
	if err := model.ValidateBatch(vendorID, entries, false); err != nil {
		return batch{}, validationError(op, err)
	}
	vendor, ok := s.Vendor(vendorID)
	if !ok {
		return batch{}, NewError(KindNotFound, op, "vendor "+vendorID+" not found", nil)
	}
	priced := make([]model.MealEntry, len(entries))
	for i, e := range entries {
		if !e.Price.Valid {
			o, ok := vendor.Offering(e.MealType)
			if !ok {
				return batch{}, validationError(op, fmt.Errorf("%s does not offer %s and no price was given", vendor.Name, e.MealType))
			}
			e.Price.Decimal = o.Price
			e.Price.Valid = true
		}
		priced[i] = e
	}
	return batch{vendor: vendor, entries: priced}, nil
}

func (b batch) log(owner string, e model.MealEntry) model.MealLog {
	return model.MealLog{
		OwnerID:    owner,
		VendorID:   b.vendor.ID,
		MealType:   e.MealType,
		Date:       e.Date,
		Price:      e.Price.Decimal,
		Quantity:   e.Quantity,
		VendorName: b.vendor.Name,
	}
}

// LogMeal appends meal logs for a vendor and records one meal_add activity
// per created log.
//
// In local mode an entry whose natural key already exists is skipped. The
// remote append is not idempotent; use UpsertMeal for retries.
func (s *Store) LogMeal(ctx context.Context, vendorID string, entries []model.MealEntry) ([]model.MealLog, error) {
	const op = "log meal"
	b, err := s.prepare(op, vendorID, entries)
	if err != nil {
		return nil, err
	}

	switch m := s.Mode().(type) {
	case RemoteMode:
		logs, err := m.API.LogMeals(ctx, vendorID, b.entries)
		if err != nil {
			return nil, remoteOp(op, err)
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		effects := make([]Effect, 0, len(logs))
		for _, l := range logs {
			if l.VendorName == "" {
				l.VendorName = b.vendor.Name
			}
			s.mealLogs = append(s.mealLogs, l)
			effects = append(effects, mealLogged(b.vendor.Name, l.MealType))
		}
		s.commitLocked(ctx, effects)
		return logs, nil

	case LocalMode:
		s.mu.Lock()
		defer s.mu.Unlock()
		var created []model.MealLog
		var effects []Effect
		for _, e := range b.entries {
			l := b.log("", e)
			if s.mealIndex(l.Key()) >= 0 {
				continue
			}
			l.ID = s.ids.Generate()
			s.mealLogs = append(s.mealLogs, l)
			created = append(created, l)
			effects = append(effects, mealLogged(b.vendor.Name, l.MealType))
		}
		s.commitLocked(ctx, effects)
		return created, nil
	}
	return nil, nil
}

// UpsertMeal creates or updates the meal logs of one vendor by natural key
// and records one meal_add activity per entry. Replaying the same batch
// yields the same logs, tagged updated.
func (s *Store) UpsertMeal(ctx context.Context, vendorID string, entries []model.MealEntry) ([]model.TaggedLog, error) {
	const op = "upsert meal"
	b, err := s.prepare(op, vendorID, entries)
	if err != nil {
		return nil, err
	}

	if m, ok := s.Mode().(RemoteMode); ok {
		tagged, err := m.API.UpsertMeals(ctx, vendorID, b.entries)
		if err != nil {
			return nil, remoteOp(op, err)
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.mergeLocked(ctx, b.vendor, tagged)
		return tagged, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tagged := s.upsertLocalLocked(b)
	s.mergeLocked(ctx, b.vendor, tagged)
	return tagged, nil
}

// upsertLocalLocked computes local upsert results without touching the view.
// Duplicate keys within a batch resolve to one log, the later entry tagged
// updated.
func (s *Store) upsertLocalLocked(b batch) []model.TaggedLog {
	out := make([]model.TaggedLog, 0, len(b.entries))
	for _, e := range b.entries {
		l := b.log("", e)
		action := model.ActionCreated
		if i := s.mealIndex(l.Key()); i >= 0 {
			l.ID = s.mealLogs[i].ID
			action = model.ActionUpdated
		} else if j := slices.IndexFunc(out, func(t model.TaggedLog) bool { return t.Key() == l.Key() }); j >= 0 {
			l.ID = out[j].ID
			action = model.ActionUpdated
		} else {
			l.ID = s.ids.Generate()
		}
		out = append(out, model.TaggedLog{MealLog: l, Action: action})
	}
	return out
}

// mergeLocked folds upsert results into the view, replacing any log with the
// same natural key and appending the rest, then records the activities.
func (s *Store) mergeLocked(ctx context.Context, vendor model.Vendor, tagged []model.TaggedLog) {
	effects := make([]Effect, 0, len(tagged))
	for _, t := range tagged {
		l := t.MealLog
		if l.VendorName == "" {
			l.VendorName = vendor.Name
		}
		if i := s.mealIndex(l.Key()); i >= 0 {
			s.mealLogs[i] = l
		} else {
			s.mealLogs = append(s.mealLogs, l)
		}
		effects = append(effects, mealUpserted(vendor.Name, l.MealType, t.Action))
	}
	s.commitLocked(ctx, effects)
}

// DeleteMealLog removes the meal log with the given natural key and records
// a meal_remove activity. Removing an absent log is a no-op with no activity.
func (s *Store) DeleteMealLog(ctx context.Context, key model.MealKey) error {
	const op = "delete meal log"
	if key.VendorID == "" {
		return validationError(op, fmt.Errorf("vendor ID is required"))
	}
	if !key.MealType.Valid() {
		return validationError(op, fmt.Errorf("invalid meal type %q", key.MealType))
	}
	if key.Date.IsZero() {
		return validationError(op, fmt.Errorf("date is required"))
	}

	mode := s.Mode()
	key.OwnerID = mode.Identity()
	if m, ok := mode.(RemoteMode); ok {
		if err := m.API.DeleteMealLog(ctx, key); err != nil {
			err = remoteOp(op, err)
			if !IsNotFound(err) {
				return err
			}
			s.mu.Lock()
			defer s.mu.Unlock()
			if i := s.mealIndex(key); i >= 0 {
				s.mealLogs = slices.Delete(s.mealLogs, i, i+1)
			}
			return nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.mealIndex(key)
	if i < 0 {
		return nil
	}
	name := s.mealLogs[i].VendorName
	if j := s.vendorIndex(key.VendorID); j >= 0 {
		name = s.vendors[j].Name
	}
	s.mealLogs = slices.Delete(s.mealLogs, i, i+1)
	s.commitLocked(ctx, []Effect{mealRemoved(name, key.MealType)})
	return nil
}
