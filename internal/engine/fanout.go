package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/mealsync/internal/model"
)

// VendorBatch is the meals entered for one vendor in a multi-vendor save.
type VendorBatch struct {
	VendorID string            `json:"vendorId" yaml:"vendorId"`
	Meals    []model.MealEntry `json:"meals" yaml:"meals"`
}

// SaveStatus summarises a multi-vendor save.
type SaveStatus string

const (
	SaveStatusSaved   SaveStatus = "saved"
	SaveStatusPartial SaveStatus = "partial"
	SaveStatusFailed  SaveStatus = "failed"
)

// VendorResult is the outcome of one vendor batch.
type VendorResult struct {
	VendorID   string            `json:"vendorId"`
	VendorName string            `json:"vendorName,omitempty"`
	Logs       []model.TaggedLog `json:"logs,omitempty"`
	Err        error             `json:"-"`
}

// SaveReport lists the per-vendor outcome of UpsertMeals in input order.
type SaveReport struct {
	Status  SaveStatus     `json:"status"`
	Results []VendorResult `json:"results"`
}

// Failed returns the results whose batch did not commit.
func (r SaveReport) Failed() []VendorResult {
	var out []VendorResult
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Summary counts created and updated logs across the committed batches.
func (r SaveReport) Summary() model.UpsertSummary {
	var all []model.TaggedLog
	for _, res := range r.Results {
		all = append(all, res.Logs...)
	}
	return model.Summarize(all)
}

// Err joins the per-vendor errors, or returns nil when every batch saved.
func (r SaveReport) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, res.Err)
	}
	return errors.Join(errs...)
}

// UpsertMeals upserts several vendor batches at once.
//
// Each batch is committed or rejected on its own: in remote mode the batches
// are sent concurrently and the call waits for all of them to settle. Results
// are merged into the view one batch at a time, in input order, so a failed
// batch never hides the batches that succeeded. Validation failures are
// reported per batch without a network call.
func (s *Store) UpsertMeals(ctx context.Context, batches []VendorBatch) (SaveReport, error) {
	const op = "upsert meals"
	if len(batches) == 0 {
		return SaveReport{}, validationError(op, errors.New("no meals provided"))
	}

	results := make([]VendorResult, len(batches))
	prepared := make([]batch, len(batches))
	for i, vb := range batches {
		results[i].VendorID = vb.VendorID
		b, err := s.prepare(op, vb.VendorID, vb.Meals)
		if err != nil {
			results[i].Err = err
			continue
		}
		prepared[i] = b
		results[i].VendorName = b.vendor.Name
	}

	switch m := s.Mode().(type) {
	case RemoteMode:
		var wg sync.WaitGroup
		for i := range batches {
			if results[i].Err != nil {
				continue
			}
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				tagged, err := m.API.UpsertMeals(ctx, prepared[i].vendor.ID, prepared[i].entries)
				if err != nil {
					results[i].Err = remoteOp(op, err)
					return
				}
				results[i].Logs = tagged
			}(i)
		}
		wg.Wait()

		s.mu.Lock()
		for i := range results {
			if results[i].Err == nil {
				s.mergeLocked(ctx, prepared[i].vendor, results[i].Logs)
			}
		}
		s.mu.Unlock()

	case LocalMode:
		s.mu.Lock()
		for i := range results {
			if results[i].Err != nil {
				continue
			}
			results[i].Logs = s.upsertLocalLocked(prepared[i])
			s.mergeLocked(ctx, prepared[i].vendor, results[i].Logs)
		}
		s.mu.Unlock()
	}

	report := SaveReport{Results: results}
	failed := len(report.Failed())
	switch {
	case failed == 0:
		report.Status = SaveStatusSaved
	case failed == len(results):
		report.Status = SaveStatusFailed
	default:
		report.Status = SaveStatusPartial
	}
	for _, res := range report.Failed() {
		s.logger.Warn("vendor batch not saved", "vendor_id", res.VendorID, "error", res.Err)
	}
	return report, nil
}
