package api

import (
	"net/http"

	service "github.com/GruntingRhino/Athlemetry/internal/app"
)

const purgeSweepLimit = 500

// AdminHandler handles operator requests.
type AdminHandler struct {
	deps Dependencies
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps Dependencies) *AdminHandler {
	return &AdminHandler{deps: deps}
}

// HandlePurgeExpired handles POST /api/v1/admin/storage/purge-expired.
func (h *AdminHandler) HandlePurgeExpired(w http.ResponseWriter, r *http.Request) {
	var req limitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	limit := purgeSweepLimit
	if req.Limit != nil && *req.Limit > 0 {
		limit = *req.Limit
	}
	summary, err := h.deps.PurgeExpiredVideos(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"scanned": summary.Scanned,
		"purged":  summary.Purged,
		"failed":  summary.Failed,
	})
}

type versionRequest struct {
	Version string `json:"version"`
	Notes   string `json:"notes"`
}

// HandleActivateVersion handles POST /api/v1/admin/model/version.
func (h *AdminHandler) HandleActivateVersion(w http.ResponseWriter, r *http.Request) {
	var req versionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	mv, err := h.deps.ActivateModelVersion(r.Context(), req.Version, req.Notes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "modelVersion": mv})
}

// HandleManualOverride handles POST /api/v1/admin/manual-override.
func (h *AdminHandler) HandleManualOverride(w http.ResponseWriter, r *http.Request) {
	var in service.ManualOverrideInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	override, err := h.deps.ApplyManualOverride(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "override": override})
}
