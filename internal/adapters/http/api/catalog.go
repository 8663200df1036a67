package api

import (
	"net/http"

	service "github.com/GruntingRhino/Athlemetry/internal/app"
)

// CatalogHandler handles drill and athlete requests.
type CatalogHandler struct {
	deps Dependencies
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(deps Dependencies) *CatalogHandler {
	return &CatalogHandler{deps: deps}
}

// HandleDrills handles GET /api/v1/drills.
func (h *CatalogHandler) HandleDrills(w http.ResponseWriter, r *http.Request) {
	drills, err := h.deps.Drills(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"drills": drills})
}

// HandleRegisterAthlete handles POST /api/v1/athletes.
func (h *CatalogHandler) HandleRegisterAthlete(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterAthleteInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	athlete, err := h.deps.RegisterAthlete(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, athlete)
}

// HandleApproveConsent handles POST /api/v1/athletes/{id}/consent.
func (h *CatalogHandler) HandleApproveConsent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.deps.ApproveParentConsent(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "athleteId": id, "granted": true})
}

// HandleAthleteBenchmarks handles GET /api/v1/athletes/{id}/benchmarks.
func (h *CatalogHandler) HandleAthleteBenchmarks(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.deps.AthleteBenchmarks(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": snaps,
		"meta": map[string]any{"count": len(snaps), "version": "v1"},
	})
}
