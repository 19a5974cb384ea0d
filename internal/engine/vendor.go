package engine

import (
	"context"
	"errors"
	"slices"

	"github.com/roach88/mealsync/internal/model"
)

// VendorPatch holds the fields of an UpdateVendor call. Nil fields are left
// unchanged; a nil Offerings slice keeps the current offerings and a
// non-empty one replaces them. An empty non-nil Offerings slice is a
// validation error: the backing store never clears offerings, so a meal
// type is withdrawn by sending it with Offered false.
type VendorPatch struct {
	Name      *string
	Status    *model.VendorStatus
	Offerings []model.Offering
}

// AddVendor creates a vendor and records a vendor_add activity.
//
// In remote mode the vendor is created by the backing store and the vendor
// list is refetched, so the view reflects server-assigned ids. The backing
// store returns the existing vendor when the identity already owns one with
// the same name.
func (s *Store) AddVendor(ctx context.Context, v model.Vendor) (model.Vendor, error) {
	const op = "add vendor"
	if err := model.ValidateVendor(v); err != nil {
		return model.Vendor{}, validationError(op, err)
	}
	v.Name = model.NormalizeName(v.Name)
	if v.Status == "" {
		v.Status = model.StatusActive
	}

	switch m := s.Mode().(type) {
	case RemoteMode:
		created, err := m.API.CreateVendor(ctx, v)
		if err != nil {
			return model.Vendor{}, remoteOp(op, err)
		}
		vendors, listErr := m.API.ListVendors(ctx)
		s.mu.Lock()
		defer s.mu.Unlock()
		if listErr != nil {
			s.logger.Warn("vendor list not refreshed after create", "vendor_id", created.ID, "error", listErr)
			if i := s.vendorIndex(created.ID); i >= 0 {
				s.vendors[i] = created
			} else {
				s.vendors = append(s.vendors, created)
			}
		} else {
			s.vendors = vendors
		}
		s.commitLocked(ctx, []Effect{vendorAdded(created.Name)})
		return created, nil

	case LocalMode:
		s.mu.Lock()
		defer s.mu.Unlock()
		v.ID = s.ids.Generate()
		v.OwnerID = ""
		v.Offerings = slices.Clone(v.Offerings)
		s.vendors = append(s.vendors, v)
		s.commitLocked(ctx, []Effect{vendorAdded(v.Name)})
		return v, nil
	}
	return model.Vendor{}, nil
}

// UpdateVendor applies patch to the vendor with the given id. A
// vendor_update activity is recorded only when the name changes.
func (s *Store) UpdateVendor(ctx context.Context, id string, patch VendorPatch) (model.Vendor, error) {
	const op = "update vendor"
	current, ok := s.Vendor(id)
	if !ok {
		return model.Vendor{}, NewError(KindNotFound, op, "vendor "+id+" not found", nil)
	}

	next := current
	if patch.Name != nil {
		next.Name = *patch.Name
	}
	if patch.Status != nil {
		next.Status = *patch.Status
	}
	if patch.Offerings != nil {
		if len(patch.Offerings) == 0 {
			return model.Vendor{}, validationError(op, errors.New("offerings must not be empty; mark meal types as not offered instead"))
		}
		next.Offerings = slices.Clone(patch.Offerings)
	}
	if err := model.ValidateVendor(next); err != nil {
		return model.Vendor{}, validationError(op, err)
	}
	next.Name = model.NormalizeName(next.Name)

	mode := s.Mode()
	if m, ok := mode.(RemoteMode); ok {
		updated, err := m.API.UpdateVendor(ctx, next)
		if err != nil {
			return model.Vendor{}, remoteOp(op, err)
		}
		next.Name = updated.Name
		next.Status = updated.Status
		if len(updated.Offerings) > 0 {
			next.Offerings = updated.Offerings
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.vendorIndex(id)
	if i < 0 {
		return model.Vendor{}, NewError(KindNotFound, op, "vendor "+id+" not found", nil)
	}
	s.vendors[i] = next
	var effects []Effect
	if next.Name != current.Name {
		effects = append(effects, vendorRenamed(current.Name, next.Name))
	}
	s.commitLocked(ctx, effects)
	return next, nil
}

// DeleteVendor removes a vendor and every meal log that references it, and
// records exactly one vendor_delete activity.
//
// When the backing store reports the vendor as not found, the local copy and
// its logs are dropped anyway (the vendor is confirmed absent), no activity
// is recorded and the NOT_FOUND error is returned.
func (s *Store) DeleteVendor(ctx context.Context, id string) error {
	const op = "delete vendor"
	current, ok := s.Vendor(id)
	if !ok {
		return NewError(KindNotFound, op, "vendor "+id+" not found", nil)
	}

	if m, ok := s.Mode().(RemoteMode); ok {
		if err := m.API.DeleteVendor(ctx, id); err != nil {
			err = remoteOp(op, err)
			if IsNotFound(err) {
				s.mu.Lock()
				s.removeVendorLocked(id)
				s.mu.Unlock()
			}
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeVendorLocked(id)
	s.commitLocked(ctx, []Effect{vendorDeleted(current.Name)})
	return nil
}

func (s *Store) removeVendorLocked(id string) {
	s.vendors = slices.DeleteFunc(s.vendors, func(v model.Vendor) bool { return v.ID == id })
	s.mealLogs = slices.DeleteFunc(s.mealLogs, func(l model.MealLog) bool { return l.VendorID == id })
}
