package handlers

import (
	"net/http"

	"harmonia/internal/models"
	"harmonia/internal/validation"
	"harmonia/internal/world"
)

// WorldHandler lets game servers report hostile positions
type WorldHandler struct {
	registry *world.Registry
}

// NewWorldHandler creates a new world handler
func NewWorldHandler(registry *world.Registry) *WorldHandler {
	return &WorldHandler{registry: registry}
}

type hostileRequest struct {
	Position models.Vector `json:"position"`
}

// ListHostiles returns every known hostile with its resonance buffs
func (h *WorldHandler) ListHostiles(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.registry.All())
}

// PutHostile adds or moves a hostile
func (h *WorldHandler) PutHostile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := validation.ValidateIdentifier("id", id); err != nil {
		respondServiceError(w, "", err)
		return
	}
	var req hostileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.ValidateLocation(req.Position); err != nil {
		respondServiceError(w, "", err)
		return
	}
	respondJSON(w, http.StatusOK, h.registry.Upsert(id, req.Position))
}

// DeleteHostile removes a hostile
func (h *WorldHandler) DeleteHostile(w http.ResponseWriter, r *http.Request) {
	if !h.registry.Remove(r.PathValue("id")) {
		respondWithError(w, http.StatusNotFound, "hostile not found", "", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
