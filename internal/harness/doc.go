// Package harness runs YAML scenarios against an anonymous-mode state store.
//
// A scenario lists setup steps, a flow of store operations with expected
// outcomes, and assertions over the resulting trace, activity log and final
// state tables:
//
//	name: aunty_kitchen
//	description: Upserting the same day twice updates in place
//	setup:
//	  - action: addVendor
//	    args: {name: "Aunty's Kitchen", meals: [{mealType: lunch, price: 60}]}
//	flow:
//	  - invoke: upsertMeal
//	    args: {vendor: "Aunty's Kitchen", meals: [{mealType: lunch, date: "2024-03-01", quantity: 1}]}
//	    expect: {case: ok, result: {created: 1}}
//	assertions:
//	  - type: final_state
//	    table: meal_logs
//	    where: {date: "2024-03-01"}
//	    expect: {quantity: 1, price: 60}
//
// Operations: addVendor, updateVendor, deleteVendor, logMeal, upsertMeal,
// upsertMeals, deleteMealLog, setCurrentMonth, setOnboardingCompleted and
// reset. Vendors are referenced by name. A step completes with case "ok" or
// the lower-cased error kind ("validation", "not_found", ...).
//
// Each run uses a fresh store with sequential ids and a stepping clock, so
// traces are byte-identical across runs and can be compared against golden
// files with RunWithGolden.
package harness
