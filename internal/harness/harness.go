package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/mealsync/internal/engine"
	"github.com/roach88/mealsync/internal/model"
	"github.com/roach88/mealsync/internal/testutil"
)

// Harness executes scenario steps against one store.
type Harness struct {
	store  *engine.Store
	seq    *testutil.Sequence
	logger *slog.Logger
}

// operation runs one store operation. The returned map becomes the
// completion result; nil means no result fields.
type operation func(ctx context.Context, h *Harness, args json.RawMessage) (map[string]interface{}, error)

var operations = map[string]operation{
	"addVendor":              opAddVendor,
	"updateVendor":           opUpdateVendor,
	"deleteVendor":           opDeleteVendor,
	"logMeal":                opLogMeal,
	"upsertMeal":             opUpsertMeal,
	"upsertMeals":            opUpsertMeals,
	"deleteMealLog":          opDeleteMealLog,
	"setCurrentMonth":        opSetCurrentMonth,
	"setOnboardingCompleted": opSetOnboardingCompleted,
	"reset":                  opReset,
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh anonymous store over an in-memory
// snapshot backend, with sequential ids ("id-1", "id-2", ...) and a clock
// that starts at testutil.Epoch and advances one minute per reading.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	opts := []engine.Option{
		engine.WithIDGenerator(engine.NewSequenceGenerator("id")),
		engine.WithClock(testutil.NewClock(time.Time{}, time.Minute)),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	if scenario.Quota > 0 {
		opts = append(opts, engine.WithQuotaCap(scenario.Quota))
	}
	st := engine.New(testutil.MemoryLocal(), opts...)
	if err := st.Hydrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to hydrate store: %w", err)
	}

	h := &Harness{
		store:  st,
		seq:    &testutil.Sequence{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	result := NewResult()
	if err := h.executeSetup(ctx, scenario.Setup, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	for _, a := range st.Activities() {
		result.Activities = append(result.Activities, a.Description)
	}
	result.State = snapshotState(st)

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// executeSetup runs all setup steps. A failing setup step aborts the run.
func (h *Harness) executeSetup(ctx context.Context, setup []ActionStep, result *Result) error {
	for i, step := range setup {
		outcome, fields, err := h.invoke(ctx, step.Action, step.Args, result)
		if err != nil {
			return fmt.Errorf("setup step %d (%s): %w", i, step.Action, err)
		}
		if outcome != caseOK {
			return fmt.Errorf("setup step %d (%s): completed with %s", i, step.Action, outcome)
		}
		h.logger.Info("setup step completed", "step", i, "action", step.Action, "result", fields)
	}
	return nil
}

// executeFlow runs all flow steps and checks their expect clauses. Steps
// without an expect clause must complete with "ok".
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		outcome, fields, err := h.invoke(ctx, step.Invoke, step.Args, result)
		if err != nil {
			return fmt.Errorf("flow step %d (%s): %w", i, step.Invoke, err)
		}

		want := caseOK
		if step.Expect != nil {
			want = step.Expect.Case
		}
		if outcome != want {
			result.AddError(fmt.Sprintf("flow[%d] %s: expected case %q, got %q", i, step.Invoke, want, outcome))
		} else if step.Expect != nil && !matchArgs(fields, step.Expect.Result) {
			result.AddError(fmt.Sprintf("flow[%d] %s: expected result %v, got %v", i, step.Invoke, step.Expect.Result, fields))
		}

		h.logger.Info("flow step completed", "step", i, "action", step.Invoke, "case", outcome)
	}
	return nil
}

const caseOK = "ok"

// invoke traces and runs one operation. A non-nil error means the step
// could not be run at all (unknown operation, undecodable args); store
// errors are reported through the outcome case.
func (h *Harness) invoke(ctx context.Context, action string, args map[string]interface{}, result *Result) (string, map[string]interface{}, error) {
	op, ok := operations[action]
	if !ok {
		return "", nil, fmt.Errorf("unknown operation %q", action)
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return "", nil, fmt.Errorf("encode args: %w", err)
	}

	result.AddInvocationTrace(action, args, h.seq.Next())

	fields, err := op(ctx, h, raw)
	outcome := caseOK
	if err != nil {
		var argErr *argsError
		if errors.As(err, &argErr) {
			return "", nil, err
		}
		outcome = caseOf(err)
		fields = nil
	}

	var traced interface{}
	if fields != nil {
		traced = fields
	}
	result.AddCompletionTrace(outcome, traced, h.seq.Next())
	return outcome, fields, nil
}

// caseOf maps a store error to its outcome case.
func caseOf(err error) string {
	if kind := engine.KindOf(err); kind != "" {
		return strings.ToLower(string(kind))
	}
	return "error"
}

// vendorID resolves a vendor reference: a vendor name known to the store,
// otherwise the reference itself as an id.
func (h *Harness) vendorID(ref string) string {
	ref = model.NormalizeName(ref)
	for _, v := range h.store.Vendors() {
		if strings.EqualFold(v.Name, ref) {
			return v.ID
		}
	}
	return ref
}

type argsError struct{ err error }

func (e *argsError) Error() string { return "decode args: " + e.err.Error() }
func (e *argsError) Unwrap() error { return e.err }

func decodeArgs(raw json.RawMessage, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &argsError{err: err}
	}
	return nil
}

type offeringArgs struct {
	MealType model.MealType  `json:"mealType"`
	Price    decimal.Decimal `json:"price"`
	Offered  *bool           `json:"offered"`
}

type vendorArgs struct {
	Vendor string              `json:"vendor"`
	Name   *string             `json:"name"`
	Status *model.VendorStatus `json:"status"`
	Meals  []offeringArgs      `json:"meals"`
}

func (a vendorArgs) offerings() []model.Offering {
	out := make([]model.Offering, 0, len(a.Meals))
	for _, m := range a.Meals {
		offered := m.Offered == nil || *m.Offered
		out = append(out, model.Offering{MealType: m.MealType, Offered: offered, Price: m.Price})
	}
	return out
}

func vendorFields(v model.Vendor) map[string]interface{} {
	return map[string]interface{}{"id": v.ID, "name": v.Name, "status": string(v.Status)}
}

func opAddVendor(ctx context.Context, h *Harness, raw json.RawMessage) (map[string]interface{}, error) {
	var a vendorArgs
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	v := model.Vendor{Offerings: a.offerings()}
	if a.Name != nil {
		v.Name = *a.Name
	}
	if a.Status != nil {
		v.Status = *a.Status
	}
	added, err := h.store.AddVendor(ctx, v)
	if err != nil {
		return nil, err
	}
	return vendorFields(added), nil
}

func opUpdateVendor(ctx context.Context, h *Harness, raw json.RawMessage) (map[string]interface{}, error) {
	var a vendorArgs
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	patch := engine.VendorPatch{Name: a.Name, Status: a.Status}
	if len(a.Meals) > 0 {
		patch.Offerings = a.offerings()
	}
	v, err := h.store.UpdateVendor(ctx, h.vendorID(a.Vendor), patch)
	if err != nil {
		return nil, err
	}
	return vendorFields(v), nil
}

func opDeleteVendor(ctx context.Context, h *Harness, raw json.RawMessage) (map[string]interface{}, error) {
	var a vendorArgs
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	return nil, h.store.DeleteVendor(ctx, h.vendorID(a.Vendor))
}

type mealArgs struct {
	Vendor string            `json:"vendor"`
	Meals  []model.MealEntry `json:"meals"`
}

func opLogMeal(ctx context.Context, h *Harness, raw json.RawMessage) (map[string]interface{}, error) {
	var a mealArgs
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	logs, err := h.store.LogMeal(ctx, h.vendorID(a.Vendor), a.Meals)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"logged": len(logs)}, nil
}

func opUpsertMeal(ctx context.Context, h *Harness, raw json.RawMessage) (map[string]interface{}, error) {
	var a mealArgs
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	tagged, err := h.store.UpsertMeal(ctx, h.vendorID(a.Vendor), a.Meals)
	if err != nil {
		return nil, err
	}
	sum := model.Summarize(tagged)
	return map[string]interface{}{"created": sum.Created, "updated": sum.Updated}, nil
}

func opUpsertMeals(ctx context.Context, h *Harness, raw json.RawMessage) (map[string]interface{}, error) {
	var a struct {
		Batches []mealArgs `json:"batches"`
	}
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	batches := make([]engine.VendorBatch, 0, len(a.Batches))
	for _, b := range a.Batches {
		batches = append(batches, engine.VendorBatch{VendorID: h.vendorID(b.Vendor), Meals: b.Meals})
	}
	report, err := h.store.UpsertMeals(ctx, batches)
	if err != nil {
		return nil, err
	}
	sum := report.Summary()
	return map[string]interface{}{
		"status":  string(report.Status),
		"created": sum.Created,
		"updated": sum.Updated,
		"failed":  len(report.Failed()),
	}, nil
}

func opDeleteMealLog(ctx context.Context, h *Harness, raw json.RawMessage) (map[string]interface{}, error) {
	var a struct {
		Vendor   string         `json:"vendor"`
		MealType model.MealType `json:"mealType"`
		Date     model.Date     `json:"date"`
	}
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	key := model.MealKey{VendorID: h.vendorID(a.Vendor), MealType: a.MealType, Date: a.Date}
	return nil, h.store.DeleteMealLog(ctx, key)
}

func opSetCurrentMonth(ctx context.Context, h *Harness, raw json.RawMessage) (map[string]interface{}, error) {
	var a struct {
		Month model.Date `json:"month"`
	}
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	h.store.SetCurrentMonth(ctx, a.Month)
	return map[string]interface{}{"month": h.store.CurrentMonth().String()}, nil
}

func opSetOnboardingCompleted(ctx context.Context, h *Harness, raw json.RawMessage) (map[string]interface{}, error) {
	var a struct {
		Done bool `json:"done"`
	}
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	h.store.SetOnboardingCompleted(ctx, a.Done)
	return nil, nil
}

func opReset(ctx context.Context, h *Harness, raw json.RawMessage) (map[string]interface{}, error) {
	var a struct{}
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	return nil, h.store.Reset(ctx)
}
