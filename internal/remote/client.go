// Package remote is the HTTP client for the backend API. The engine treats
// the backend as a plain request/response JSON contract; every non-2xx
// response surfaces as a StatusError so the sync service can classify it.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// DefaultTimeout bounds every call. Sync must treat a slow backend as
// failed, not hung.
const DefaultTimeout = 5 * time.Second

// StatusError is a non-2xx backend response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Code, e.Body)
}

// Retryable reports whether the failure is worth another attempt: 5xx means
// the backend broke, anything else means the request itself is rejected.
func (e *StatusError) Retryable() bool {
	return e.Code >= 500
}

// Client talks to the backend over HTTPS with an API key.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a Client. A zero timeout uses DefaultTimeout.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: reading body: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("%s %s: decoding response: %w", method, path, err)
		}
	}
	return nil
}

// Healthy is the synchronous connectivity probe used before a sync pass.
func (c *Client) Healthy(ctx context.Context) bool {
	return c.do(ctx, http.MethodGet, "/api/v1/health", nil, nil) == nil
}

// --- Workout sessions ---

// SessionUpload is the wire form of a completed session.
type SessionUpload struct {
	UserID      string           `json:"userId"`
	SplitID     string           `json:"splitId"`
	DayName     string           `json:"dayName"`
	DayNumber   int              `json:"dayNumber"`
	CompletedAt time.Time        `json:"completedAt"`
	Exercises   []UploadExercise `json:"exercises"`
}

type UploadExercise struct {
	Name string      `json:"name"`
	Sets []UploadSet `json:"sets"`
}

type UploadSet struct {
	SetNumber int     `json:"setNumber"`
	Weight    float64 `json:"weight"`
	Reps      int     `json:"reps"`
	Completed bool    `json:"completed"`
}

// CreateWorkoutSession uploads a completed session and returns the backend
// row id.
func (c *Client) CreateWorkoutSession(ctx context.Context, upload SessionUpload) (int64, error) {
	var created struct {
		ID int64 `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/workout-sessions", upload, &created); err != nil {
		return 0, err
	}
	return created.ID, nil
}

// DeleteWorkoutSession removes a previously uploaded session by backend id.
func (c *Client) DeleteWorkoutSession(ctx context.Context, backendID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/workout-sessions/%d", backendID), nil, nil)
}

// --- Splits ---

// ListSplits fetches the server's splits.
func (c *Client) ListSplits(ctx context.Context) ([]models.Split, error) {
	var splits []models.Split
	if err := c.do(ctx, http.MethodGet, "/splits", nil, &splits); err != nil {
		return nil, err
	}
	return splits, nil
}

// CreateSplit mirrors a locally created split to the backend.
func (c *Client) CreateSplit(ctx context.Context, split models.Split) error {
	return c.do(ctx, http.MethodPost, "/splits", split, nil)
}

// UpdateSplit mirrors a local split edit to the backend.
func (c *Client) UpdateSplit(ctx context.Context, split models.Split) error {
	return c.do(ctx, http.MethodPut, "/splits/"+split.ID, split, nil)
}

// DeleteSplit removes a split from the backend.
func (c *Client) DeleteSplit(ctx context.Context, splitID string) error {
	return c.do(ctx, http.MethodDelete, "/splits/"+splitID, nil, nil)
}

// --- Custom exercises ---

// ListCustomExercises fetches server truth for the custom-exercise catalog.
func (c *Client) ListCustomExercises(ctx context.Context) ([]models.CustomExercise, error) {
	var exercises []models.CustomExercise
	if err := c.do(ctx, http.MethodGet, "/custom-exercises", nil, &exercises); err != nil {
		return nil, err
	}
	return exercises, nil
}

// CreateCustomExercise uploads a locally created exercise and returns its
// backend id.
func (c *Client) CreateCustomExercise(ctx context.Context, e models.CustomExercise) (int64, error) {
	var created struct {
		ID int64 `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/custom-exercises", e, &created); err != nil {
		return 0, err
	}
	return created.ID, nil
}

// UpdateCustomExercise mirrors a local edit to the backend.
func (c *Client) UpdateCustomExercise(ctx context.Context, e models.CustomExercise) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/custom-exercises/%d", e.BackendID), e, nil)
}

// DeleteCustomExercise removes a custom exercise from the backend.
func (c *Client) DeleteCustomExercise(ctx context.Context, backendID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/custom-exercises/%d", backendID), nil, nil)
}
