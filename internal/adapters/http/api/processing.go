package api

import (
	"net/http"
)

const (
	defaultBatchLimit = 10
	maxBatchLimit     = 50
)

// ProcessingHandler handles batch and benchmark requests.
type ProcessingHandler struct {
	deps Dependencies
}

// NewProcessingHandler creates a new processing handler.
func NewProcessingHandler(deps Dependencies) *ProcessingHandler {
	return &ProcessingHandler{deps: deps}
}

type limitRequest struct {
	Limit *int `json:"limit"`
}

// HandleRunBatch handles POST /api/v1/processing/run. The limit is clamped to [1, 50].
func (h *ProcessingHandler) HandleRunBatch(w http.ResponseWriter, r *http.Request) {
	var req limitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	limit := defaultBatchLimit
	if req.Limit != nil {
		limit = min(max(*req.Limit, 1), maxBatchLimit)
	}

	res, err := h.deps.RunProcessingBatch(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleRecalculateOne handles POST /api/v1/submissions/{id}/benchmark.
func (h *ProcessingHandler) HandleRecalculateOne(w http.ResponseWriter, r *http.Request) {
	snap, err := h.deps.RecalculateBenchmarksForSubmission(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "snapshot": snap})
}

// HandleRecalculateAll handles POST /api/v1/benchmarks/recalculate.
func (h *ProcessingHandler) HandleRecalculateAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.deps.RecalculateAllBenchmarks(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "recalculated": n})
}
