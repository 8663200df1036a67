package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	service "github.com/GruntingRhino/Athlemetry/internal/app"
)

// SubmissionsHandler handles upload and per-submission requests.
type SubmissionsHandler struct {
	deps           Dependencies
	maxUploadBytes int64
}

// NewSubmissionsHandler creates a new submissions handler.
func NewSubmissionsHandler(deps Dependencies, maxUploadBytes int64) *SubmissionsHandler {
	return &SubmissionsHandler{deps: deps, maxUploadBytes: maxUploadBytes}
}

// HandleUpload handles POST /api/v1/submissions with a multipart body
// carrying the "video" file and the recording metadata fields.
func (h *SubmissionsHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+formOverheadBytes)
	if err := r.ParseMultipartForm(formOverheadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", ErrPayloadTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	in, err := uploadInput(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	res, err := h.deps.SubmitVideo(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func uploadInput(r *http.Request) (service.SubmitVideoInput, error) {
	file, header, err := r.FormFile("video")
	if err != nil {
		return service.SubmitVideoInput{}, ErrMissingVideo
	}
	defer func() { _ = file.Close() }()

	body, err := io.ReadAll(file)
	if err != nil {
		return service.SubmitVideoInput{}, fmt.Errorf("%w: read video: %w", ErrBadRequest, err)
	}

	in := service.SubmitVideoInput{
		AthleteID:         r.FormValue("athleteId"),
		DrillDefinitionID: r.FormValue("drillDefinitionId"),
		Location:          strings.TrimSpace(r.FormValue("location")),
		DrillType:         strings.TrimSpace(r.FormValue("drillType")),
		UploadSource:      r.FormValue("uploadSource"),
		FileName:          header.Filename,
		ContentType:       header.Header.Get("Content-Type"),
		Body:              body,
	}
	if in.RecordingDate, err = parseDate(r.FormValue("recordingDate")); err != nil {
		return in, err
	}
	if in.FrameRate, err = optionalFloat(r, "frameRate"); err != nil {
		return in, err
	}
	if in.StartFrame, err = optionalInt(r, "startFrame"); err != nil {
		return in, err
	}
	if in.FinishFrame, err = optionalInt(r, "finishFrame"); err != nil {
		return in, err
	}
	if in.RepetitionHint, err = optionalInt(r, "repetitionHint"); err != nil {
		return in, err
	}
	return in, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: recordingDate is required", ErrBadRequest)
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: recordingDate must be RFC3339 or YYYY-MM-DD", ErrBadRequest)
}

func optionalFloat(r *http.Request, field string) (*float64, error) {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", ErrBadRequest, field)
	}
	return &v, nil
}

func optionalInt(r *http.Request, field string) (*int, error) {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", ErrBadRequest, field)
	}
	return &v, nil
}

// HandleStatus handles GET /api/v1/submissions/{id}.
func (h *SubmissionsHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	sub, err := h.deps.SubmissionStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"submission": sub})
}

// HandleRetry handles POST /api/v1/submissions/{id}/retry.
func (h *SubmissionsHandler) HandleRetry(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.RetrySubmission(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": res.OK, "result": res})
}

// HandleProcess handles POST /api/v1/submissions/{id}/process.
func (h *SubmissionsHandler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	res := h.deps.ProcessSubmission(r.Context(), r.PathValue("id"))
	if res.NotFound() {
		writeServiceError(w, res.Err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": res.OK, "result": res})
}
