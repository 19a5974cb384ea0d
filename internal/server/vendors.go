package server

import (
	"errors"
	"net/http"

	"github.com/roach88/mealsync/internal/model"
	"github.com/roach88/mealsync/internal/store"
)

func (s *Server) handleCreateVendor(w http.ResponseWriter, r *http.Request) {
	var v model.Vendor
	if err := decodeJSON(w, r, &v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := model.ValidateVendor(v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	vendor, created, err := s.store.CreateVendor(r.Context(), userID(r.Context()), v)
	if err != nil {
		s.storageError(w, r, "create vendor", err)
		return
	}
	if !created {
		writeJSON(w, http.StatusOK, model.VendorResponse{Message: "Vendor already exists", Vendor: vendor})
		return
	}
	writeJSON(w, http.StatusCreated, model.VendorResponse{Message: "Vendor created successfully", Vendor: vendor})
}

func (s *Server) handleListVendors(w http.ResponseWriter, r *http.Request) {
	vendors, err := s.store.ListVendors(r.Context(), userID(r.Context()))
	if err != nil {
		s.storageError(w, r, "list vendors", err)
		return
	}
	writeJSON(w, http.StatusOK, vendors)
}

func (s *Server) handleUpdateVendor(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Vendor ID is required")
		return
	}
	var v model.Vendor
	if err := decodeJSON(w, r, &v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := model.ValidateVendor(v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	v.ID = id

	updated, err := s.store.UpdateVendor(r.Context(), userID(r.Context()), v)
	switch {
	case errors.Is(err, store.ErrVendorNotFound):
		writeError(w, http.StatusNotFound, "Vendor not found or you don't have permission to update it")
		return
	case errors.Is(err, store.ErrVendorNameTaken):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.storageError(w, r, "update vendor", err)
		return
	}
	writeJSON(w, http.StatusOK, model.VendorResponse{Message: "Vendor updated successfully", Vendor: updated})
}

func (s *Server) handleDeleteVendor(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Vendor ID is required")
		return
	}

	removed, err := s.store.DeleteVendor(r.Context(), userID(r.Context()), id)
	if errors.Is(err, store.ErrVendorNotFound) {
		writeError(w, http.StatusNotFound, "Vendor not found or you don't have permission to delete it")
		return
	}
	if err != nil {
		s.storageError(w, r, "delete vendor", err)
		return
	}
	s.logger.Debug("vendor deleted", "vendor_id", id, "meal_logs_removed", removed)
	writeJSON(w, http.StatusOK, model.DeleteVendorResponse{Message: "Vendor deleted successfully", VendorID: id})
}
