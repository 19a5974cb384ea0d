package engine

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/mealsync/internal/model"
)

// Effect describes one change a mutation made. Mutations return effects and
// the audit reducer turns them into Activity entries; nothing else appends
// to the activity log.
type Effect struct {
	Type model.ActivityType

	// Vendor is the display name of the vendor affected.
	Vendor string

	// PreviousName is set for renames.
	PreviousName string

	// MealType and Action are set for meal effects. Action is empty for
	// plain logs and removals.
	MealType model.MealType
	Action   model.UpsertAction
}

func vendorAdded(name string) Effect {
	return Effect{Type: model.ActivityVendorAdd, Vendor: name}
}

func vendorRenamed(from, to string) Effect {
	return Effect{Type: model.ActivityVendorUpdate, Vendor: to, PreviousName: from}
}

func vendorDeleted(name string) Effect {
	return Effect{Type: model.ActivityVendorDelete, Vendor: name}
}

func mealLogged(vendor string, t model.MealType) Effect {
	return Effect{Type: model.ActivityMealAdd, Vendor: vendor, MealType: t}
}

func mealUpserted(vendor string, t model.MealType, action model.UpsertAction) Effect {
	return Effect{Type: model.ActivityMealAdd, Vendor: vendor, MealType: t, Action: action}
}

func mealRemoved(vendor string, t model.MealType) Effect {
	return Effect{Type: model.ActivityMealRemove, Vendor: vendor, MealType: t}
}

var titleCase = cases.Title(language.English)

// Describe renders the human-readable activity text for an effect.
func (e Effect) Describe() string {
	vendor := e.Vendor
	if vendor == "" {
		vendor = "a vendor"
	}
	switch e.Type {
	case model.ActivityVendorAdd:
		return fmt.Sprintf("Added new vendor: %q", vendor)
	case model.ActivityVendorUpdate:
		return fmt.Sprintf("Renamed vendor %q to %q", e.PreviousName, vendor)
	case model.ActivityVendorDelete:
		return fmt.Sprintf("Deleted vendor: %q", vendor)
	case model.ActivityMealAdd:
		if e.Action != "" {
			return fmt.Sprintf("%s %s for %s", e.MealType, e.Action, vendor)
		}
		return fmt.Sprintf("%s received from %s", titleCase.String(string(e.MealType)), vendor)
	case model.ActivityMealRemove:
		return fmt.Sprintf("%s cancelled from %s", titleCase.String(string(e.MealType)), vendor)
	}
	return string(e.Type)
}

// auditLog is the single reducer that appends activities.
type auditLog struct {
	ids   IDGenerator
	clock Clock
}

// apply prepends one activity per effect to activities, preserving
// newest-first order, and returns the new slice.
func (a auditLog) apply(activities []model.Activity, effects []Effect) []model.Activity {
	if len(effects) == 0 {
		return activities
	}
	fresh := make([]model.Activity, len(effects))
	for i, e := range effects {
		fresh[len(effects)-1-i] = model.Activity{
			ID:          a.ids.Generate(),
			Type:        e.Type,
			Description: e.Describe(),
			Timestamp:   a.clock.Now(),
		}
	}
	return append(fresh, activities...)
}
