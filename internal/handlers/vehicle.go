// Package handlers contains HTTP request handlers for the Recon API.
// Handlers parse requests, call services, and return JSON responses.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reconhq/recon-server/internal/analytics"
	"github.com/reconhq/recon-server/internal/inspection"
	"github.com/reconhq/recon-server/internal/models"
	"github.com/reconhq/recon-server/internal/services"
)

// VehicleHandler handles vehicle and team-note HTTP endpoints
type VehicleHandler struct {
	vehicleSvc *services.VehicleService
	noteSvc    *services.TeamNoteService
	logger     *zap.SugaredLogger
}

// NewVehicleHandler creates a new vehicle handler
func NewVehicleHandler(vs *services.VehicleService, ns *services.TeamNoteService, logger *zap.SugaredLogger) *VehicleHandler {
	return &VehicleHandler{vehicleSvc: vs, noteSvc: ns, logger: logger}
}

// Create handles POST /api/v1/vehicles
func (h *VehicleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.VehicleCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.StockNumber == "" || req.Make == "" || req.Model == "" {
		respondError(w, http.StatusBadRequest, "Missing required fields: stock_number, make, model")
		return
	}

	vehicle, err := h.vehicleSvc.Create(r.Context(), &req)
	if err != nil {
		h.logger.Errorw("Failed to create vehicle", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to create vehicle")
		return
	}

	respondJSON(w, http.StatusCreated, vehicle)
}

// List handles GET /api/v1/vehicles
func (h *VehicleHandler) List(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.vehicleSvc.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list vehicles")
		return
	}
	respondJSON(w, http.StatusOK, vehicles)
}

// Get handles GET /api/v1/vehicles/{id}
func (h *VehicleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := vehicleID(w, r)
	if !ok {
		return
	}

	vehicle, err := h.vehicleSvc.Get(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Vehicle not found")
		return
	}
	respondJSON(w, http.StatusOK, vehicle)
}

// Update handles PUT /api/v1/vehicles/{id}
func (h *VehicleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := vehicleID(w, r)
	if !ok {
		return
	}

	var req models.VehicleUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	vehicle, err := h.vehicleSvc.Update(r.Context(), id, &req)
	if err != nil {
		respondError(w, http.StatusNotFound, "Vehicle not found")
		return
	}
	respondJSON(w, http.StatusOK, vehicle)
}

// Delete handles DELETE /api/v1/vehicles/{id}
func (h *VehicleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := vehicleID(w, r)
	if !ok {
		return
	}

	if err := h.vehicleSvc.Delete(r.Context(), id); err != nil {
		respondError(w, http.StatusNotFound, "Vehicle not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Rate handles POST /api/v1/vehicles/{id}/ratings — the core flow: apply
// the rating, re-derive section status, record the completion event.
func (h *VehicleHandler) Rate(w http.ResponseWriter, r *http.Request) {
	id, ok := vehicleID(w, r)
	if !ok {
		return
	}

	var req models.RatingSubmission
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Section == "" || req.ItemKey == "" {
		respondError(w, http.StatusBadRequest, "Missing required fields: section, item_key")
		return
	}

	rating, err := inspection.ParseRating(req.Rating)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	vehicle, err := h.vehicleSvc.RateItem(r.Context(), id, req.Section, req.ItemKey, rating, req.UserInitials)
	if errors.Is(err, analytics.ErrMissingActor) {
		respondError(w, http.StatusBadRequest, "User initials required")
		return
	}
	if err != nil {
		h.logger.Errorw("Failed to rate item", "vehicle", id, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to rate item")
		return
	}

	respondJSON(w, http.StatusOK, vehicle)
}

// AddNote handles POST /api/v1/vehicles/{id}/notes
func (h *VehicleHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	id, ok := vehicleID(w, r)
	if !ok {
		return
	}

	var req models.TeamNoteCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Author == "" || req.Text == "" {
		respondError(w, http.StatusBadRequest, "Missing required fields: author, text")
		return
	}

	note, err := h.noteSvc.Add(r.Context(), id, &req)
	if err != nil {
		h.logger.Errorw("Failed to add note", "vehicle", id, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to add note")
		return
	}
	respondJSON(w, http.StatusCreated, note)
}

// ListNotes handles GET /api/v1/vehicles/{id}/notes
func (h *VehicleHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := vehicleID(w, r)
	if !ok {
		return
	}

	notes, err := h.noteSvc.ListByVehicle(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list notes")
		return
	}
	respondJSON(w, http.StatusOK, notes)
}

// DeleteNote handles DELETE /api/v1/vehicles/{id}/notes/{noteID}
func (h *VehicleHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	noteID, err := uuid.Parse(chi.URLParam(r, "noteID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid note ID")
		return
	}

	if err := h.noteSvc.Delete(r.Context(), noteID); err != nil {
		respondError(w, http.StatusNotFound, "Note not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func vehicleID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid vehicle ID")
		return uuid.Nil, false
	}
	return id, true
}

// Helper: respond with JSON
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Helper: respond with error
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
