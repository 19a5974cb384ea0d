package harness

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/roach88/mealsync/internal/engine"
)

// State tables exposed to final_state assertions.
const (
	TableVendors         = "vendors"
	TableMealLogs        = "meal_logs"
	TableSpendByVendor   = "spend_by_vendor"
	TableSpendByMealType = "spend_by_meal_type"
	TableSummary         = "summary"
)

var stateTables = map[string]bool{
	TableVendors:         true,
	TableMealLogs:        true,
	TableSpendByVendor:   true,
	TableSpendByMealType: true,
	TableSummary:         true,
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			if event.Type == "invocation" {
				fmt.Fprintf(&buf, "  [%d] %s %v\n", i+1, event.Action, event.Args)
			}
		}
	}
	return buf.String()
}

// snapshotState renders the store's final view as state tables.
func snapshotState(st *engine.Store) map[string][]Row {
	vendors := st.Vendors()
	names := make(map[string]string, len(vendors))
	state := map[string][]Row{}

	state[TableVendors] = []Row{}
	for _, v := range vendors {
		names[v.ID] = v.Name
		offered := 0
		for _, o := range v.Offerings {
			if o.Offered {
				offered++
			}
		}
		state[TableVendors] = append(state[TableVendors], Row{
			"id": v.ID, "name": v.Name, "status": string(v.Status), "offered": offered,
		})
	}

	logs := st.MealLogs()
	state[TableMealLogs] = []Row{}
	for _, l := range logs {
		name, ok := names[l.VendorID]
		if !ok {
			name = l.VendorName
		}
		state[TableMealLogs] = append(state[TableMealLogs], Row{
			"id":       l.ID,
			"vendorId": l.VendorID,
			"vendor":   name,
			"mealType": string(l.MealType),
			"date":     l.Date.String(),
			"quantity": l.Quantity,
			"price":    l.Price,
		})
	}

	month := st.CurrentMonth()
	spend := st.Spend(month)
	state[TableSpendByVendor] = []Row{}
	for _, line := range spend.ByVendor {
		state[TableSpendByVendor] = append(state[TableSpendByVendor], Row{
			"vendor": line.Name, "meals": line.Meals, "cost": line.Cost,
		})
	}
	state[TableSpendByMealType] = []Row{}
	for _, line := range spend.ByMealType {
		state[TableSpendByMealType] = append(state[TableSpendByMealType], Row{
			"mealType": line.Name, "meals": line.Meals, "cost": line.Cost,
		})
	}

	state[TableSummary] = []Row{{
		"vendors":    len(vendors),
		"mealLogs":   len(logs),
		"activities": len(st.Activities()),
		"month":      month.String(),
		"totalMeals": spend.TotalMeals,
		"totalCost":  spend.TotalCost,
		"onboarded":  st.OnboardingCompleted(),
		"canLog":     st.CanLogMeal(false),
		"remaining":  st.RemainingMeals(false),
	}}
	return state
}

// assertTraceContains checks if the trace contains an invocation matching
// the specified action and args (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Type == "invocation" && event.Action == assertion.Action {
			if args, ok := event.Args.(map[string]interface{}); ok && matchArgs(args, assertion.Args) {
				return nil
			}
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s with args %v", assertion.Action, assertion.Args),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if actions appear in the specified order.
// Actions don't need to be consecutive (intervening actions are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	pos := 0
	for _, want := range assertion.Actions {
		found := false
		for pos < len(trace) {
			event := trace[pos]
			pos++
			if event.Type == "invocation" && event.Action == want {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
				Actual:   fmt.Sprintf("%s not found after the preceding actions", want),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks if the action appears exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == "invocation" && event.Action == assertion.Action {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertActivities checks the whole activity log, newest first.
func assertActivities(activities []string, assertion Assertion) error {
	if reflect.DeepEqual(activities, assertion.Descriptions) ||
		(len(activities) == 0 && len(assertion.Descriptions) == 0) {
		return nil
	}
	return &AssertionError{
		Type:     AssertActivities,
		Expected: fmt.Sprintf("%q", assertion.Descriptions),
		Actual:   fmt.Sprintf("%q", activities),
	}
}

// assertFinalState checks that exactly one row of the table matches Where
// and that it carries the Expect values (subset semantics).
func assertFinalState(state map[string][]Row, assertion Assertion) error {
	rows, ok := state[assertion.Table]
	if !ok {
		return fmt.Errorf("final_state: unknown table %q", assertion.Table)
	}

	var matched []Row
	for _, row := range rows {
		if rowMatches(row, assertion.Where) {
			matched = append(matched, row)
		}
	}

	whereDesc := formatWhereClause(assertion.Where)
	switch len(matched) {
	case 0:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, whereDesc),
			Actual:   "row not found",
		}
	case 1:
	default:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, whereDesc),
			Actual:   fmt.Sprintf("%d rows matched (assertion is ambiguous)", len(matched)),
		}
	}

	row := matched[0]
	for _, key := range sortedKeys(assertion.Expect) {
		expected := assertion.Expect[key]
		actual, exists := row[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in %s rows", key, assertion.Table),
			}
		}
		if !stateValuesEqual(expected, actual) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expected, expected),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actual, actual),
			}
		}
	}
	return nil
}

func rowMatches(row Row, where map[string]interface{}) bool {
	for key, want := range where {
		got, ok := row[key]
		if !ok || !stateValuesEqual(want, got) {
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formatWhereClause creates a human-readable description of row filters.
func formatWhereClause(where map[string]interface{}) string {
	if len(where) == 0 {
		return "(no conditions)"
	}
	parts := make([]string, 0, len(where))
	for _, k := range sortedKeys(where) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// stateValuesEqual compares a YAML-decoded expected value with a state
// table value. Money compares numerically, so 80, 80.0 and "80.00" all
// equal decimal 80.
func stateValuesEqual(expected, actual interface{}) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	if d, ok := actual.(decimal.Decimal); ok {
		want, err := decimal.NewFromString(fmt.Sprint(expected))
		return err == nil && want.Equal(d)
	}

	switch exp := expected.(type) {
	case int:
		switch act := actual.(type) {
		case int:
			return exp == act
		case int64:
			return int64(exp) == act
		}
		return false
	}

	return reflect.DeepEqual(expected, actual)
}

// matchArgs checks if actual contains all expected keys with equal values
// (subset match). Extra keys in actual are ignored.
func matchArgs(actual map[string]interface{}, expected map[string]interface{}) bool {
	for key, want := range expected {
		got, exists := actual[key]
		if !exists || !stateValuesEqual(want, got) {
			return false
		}
	}
	return true
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertActivities:
			err = assertActivities(result.Activities, assertion)
		case AssertFinalState:
			err = assertFinalState(result.State, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}
