package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/roach88/mealsync/internal/model"
	"github.com/roach88/mealsync/internal/store"
)

// decodeBatch reads and validates a MealBatch, writing a 400 on failure.
func decodeBatch(w http.ResponseWriter, r *http.Request) (model.MealBatch, bool) {
	var b model.MealBatch
	if err := decodeJSON(w, r, &b); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return b, false
	}
	if err := model.ValidateBatch(b.VendorID, b.Meals, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return b, false
	}
	return b, true
}

// batchError maps store errors of a meal batch to a response.
func (s *Server) batchError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, store.ErrVendorNotFound):
		writeError(w, http.StatusNotFound, "Vendor not found")
	case errors.Is(err, store.ErrPriceRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.storageError(w, r, op, err)
	}
}

func (s *Server) handleLogMeals(w http.ResponseWriter, r *http.Request) {
	b, ok := decodeBatch(w, r)
	if !ok {
		return
	}
	logs, err := s.store.InsertMealLogs(r.Context(), userID(r.Context()), b.VendorID, b.Meals)
	if err != nil {
		s.batchError(w, r, "log meals", err)
		return
	}
	writeJSON(w, http.StatusCreated, model.MealLogsResponse{Message: "Meals logged successfully", Logs: logs})
}

func (s *Server) handleUpsertMeals(w http.ResponseWriter, r *http.Request) {
	b, ok := decodeBatch(w, r)
	if !ok {
		return
	}
	logs, err := s.store.UpsertMealLogs(r.Context(), userID(r.Context()), b.VendorID, b.Meals)
	if err != nil {
		s.batchError(w, r, "upsert meals", err)
		return
	}
	s.metrics.observeUpserts(logs)
	writeJSON(w, http.StatusCreated, model.UpsertResponse{
		Message: "Meals processed successfully",
		Logs:    logs,
		Summary: model.Summarize(logs),
	})
}

func (s *Server) handleListMealLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.store.ListMealLogs(r.Context(), userID(r.Context()))
	if err != nil {
		s.storageError(w, r, "list meal logs", err)
		return
	}
	if len(logs) == 0 {
		writeError(w, http.StatusNotFound, "No meal logs found for this user")
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleDeleteMealLog(w http.ResponseWriter, r *http.Request) {
	key, err := parseMealKey(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	key.OwnerID = userID(r.Context())

	err = s.store.DeleteMealLog(r.Context(), key)
	if errors.Is(err, store.ErrMealLogNotFound) {
		writeError(w, http.StatusNotFound, "Meal log not found")
		return
	}
	if err != nil {
		s.storageError(w, r, "delete meal log", err)
		return
	}
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Meal log deleted successfully"})
}

func parseMealKey(r *http.Request) (model.MealKey, error) {
	q := r.URL.Query()
	key := model.MealKey{
		VendorID: q.Get("vendorId"),
		MealType: model.MealType(q.Get("mealType")),
	}
	if key.VendorID == "" {
		return key, errors.New("Vendor ID is required")
	}
	if !key.MealType.Valid() {
		return key, fmt.Errorf("invalid meal type %q", key.MealType)
	}
	date, err := model.ParseDate(q.Get("date"))
	if err != nil {
		return key, fmt.Errorf("invalid date: %w", err)
	}
	key.Date = date
	return key, nil
}
