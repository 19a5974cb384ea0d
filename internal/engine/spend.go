package engine

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/roach88/mealsync/internal/model"
)

// SpendLine is the spend attributed to one vendor or meal type.
type SpendLine struct {
	Name  string          `json:"name"`
	Meals int             `json:"meals"`
	Cost  decimal.Decimal `json:"cost"`
}

// SpendSummary is the expense breakdown of one month.
type SpendSummary struct {
	Month      model.Date      `json:"month"`
	TotalMeals int             `json:"totalMeals"`
	TotalCost  decimal.Decimal `json:"totalCost"`
	ByVendor   []SpendLine     `json:"byVendor"`
	ByMealType []SpendLine     `json:"byMealType"`
}

// Summarize computes the spend of the month containing month. Cost is
// Σ price × quantity and meals is Σ quantity. Vendors are ordered by cost,
// highest first; meal types in serving order. Lines with no meals are
// omitted.
func Summarize(month model.Date, vendors []model.Vendor, logs []model.MealLog) SpendSummary {
	names := make(map[string]string, len(vendors))
	for _, v := range vendors {
		names[v.ID] = v.Name
	}

	sum := SpendSummary{Month: month.StartOfMonth(), TotalCost: decimal.Zero}
	byVendor := map[string]*SpendLine{}
	byType := map[model.MealType]*SpendLine{}
	for _, l := range logs {
		if !l.Date.SameMonth(month) {
			continue
		}
		cost := l.Cost()
		sum.TotalMeals += l.Quantity
		sum.TotalCost = sum.TotalCost.Add(cost)

		name := names[l.VendorID]
		if name == "" {
			name = l.VendorName
		}
		if name == "" {
			name = "Unknown vendor"
		}
		vl, ok := byVendor[name]
		if !ok {
			vl = &SpendLine{Name: name, Cost: decimal.Zero}
			byVendor[name] = vl
		}
		vl.Meals += l.Quantity
		vl.Cost = vl.Cost.Add(cost)

		tl, ok := byType[l.MealType]
		if !ok {
			tl = &SpendLine{Name: string(l.MealType), Cost: decimal.Zero}
			byType[l.MealType] = tl
		}
		tl.Meals += l.Quantity
		tl.Cost = tl.Cost.Add(cost)
	}

	for _, vl := range byVendor {
		sum.ByVendor = append(sum.ByVendor, *vl)
	}
	slices.SortFunc(sum.ByVendor, func(a, b SpendLine) int {
		if c := b.Cost.Cmp(a.Cost); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	for _, t := range model.MealTypes {
		if tl, ok := byType[t]; ok {
			sum.ByMealType = append(sum.ByMealType, *tl)
		}
	}
	return sum
}

// Spend summarises the month containing month from the current view.
func (s *Store) Spend(month model.Date) SpendSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summarize(month, s.vendors, s.mealLogs)
}
