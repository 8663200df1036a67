package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"

	"github.com/GruntingRhino/Athlemetry/internal/domain/model"
	"github.com/GruntingRhino/Athlemetry/pkg/logger"
)

// StatusError reports an unexpected response status.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Client calls the Athlemetry HTTP API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Health calls GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", "", nil, http.StatusOK, nil)
}

// Drills lists the active drill catalog.
func (c *Client) Drills(ctx context.Context) ([]model.DrillDefinition, error) {
	var out struct {
		Drills []model.DrillDefinition `json:"drills"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/drills", "", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.Drills, nil
}

// RegisterAthlete creates an athlete and returns it.
func (c *Client) RegisterAthlete(ctx context.Context, p AthleteProfile) (*model.Athlete, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal athlete: %w", err)
	}
	var out model.Athlete
	if err := c.do(ctx, http.MethodPost, "/api/v1/athletes", "application/json", body, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ApproveConsent records parental consent for an athlete.
func (c *Client) ApproveConsent(ctx context.Context, athleteID string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/athletes/"+athleteID+"/consent", "", nil, http.StatusOK, nil)
}

// Upload posts one video and returns the new submission id.
func (c *Client) Upload(ctx context.Context, drillID string, u Upload) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := map[string]string{
		"athleteId":         u.AthleteID,
		"drillDefinitionId": drillID,
		"location":          "Load Test Ground",
		"uploadSource":      "loadtest",
		"recordingDate":     time.Now().UTC().Format(time.DateOnly),
		"frameRate":         strconv.FormatFloat(u.FrameRate, 'f', -1, 64),
		"startFrame":        "0",
		"finishFrame":       strconv.Itoa(u.Finish),
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return "", fmt.Errorf("write field %s: %w", k, err)
		}
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="video"; filename="sprint.mp4"`)
	h.Set("Content-Type", videoContentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("create video part: %w", err)
	}
	if _, err := part.Write(syntheticVideo(u.Size)); err != nil {
		return "", fmt.Errorf("write video part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	var out struct {
		SubmissionID string `json:"submissionId"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/submissions", mw.FormDataContentType(), buf.Bytes(), http.StatusCreated, &out); err != nil {
		return "", err
	}
	return out.SubmissionID, nil
}

// RunBatch processes up to limit pending submissions.
func (c *Client) RunBatch(ctx context.Context, limit int) (BatchSummary, error) {
	var out BatchSummary
	body := []byte(`{"limit":` + strconv.Itoa(limit) + `}`)
	err := c.do(ctx, http.MethodPost, "/api/v1/processing/run", "application/json", body, http.StatusOK, &out)
	return out, err
}

// RecalculateAll refreshes every completed submission's benchmark.
func (c *Client) RecalculateAll(ctx context.Context) (int, error) {
	var out struct {
		Recalculated int `json:"recalculated"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/benchmarks/recalculate", "", nil, http.StatusOK, &out)
	return out.Recalculated, err
}

// Submission fetches a submission's status detail.
func (c *Client) Submission(ctx context.Context, id string) (*model.Submission, error) {
	var out struct {
		Submission *model.Submission `json:"submission"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/submissions/"+id, "", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	if out.Submission == nil {
		return nil, fmt.Errorf("submission %s: empty response", id)
	}
	return out.Submission, nil
}

// BatchSummary is the subset of a batch response the runner reads.
type BatchSummary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte, want int, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}
	if resp.StatusCode != want {
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: string(bytes.TrimSpace(data))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
