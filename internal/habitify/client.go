// Package habitify is a thin client for the Habitify REST API. The session
// controller drives it as a best-effort collaborator: errors are returned to
// be logged, never retried here.
package habitify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const DefaultBaseURL = "https://api.habitify.me"

// Client targets one habit. Authorization is the raw API key, per the
// Habitify API (no Bearer prefix).
type Client struct {
	baseURL string
	apiKey  string
	habitID string
	unit    string
	client  *http.Client
}

// New creates a client for the given habit. unit is the log unit_type; with
// "rep" each session logs a value of 1, any other unit logs elapsed minutes.
func New(baseURL, apiKey, habitID, unit string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if unit == "" {
		unit = "min"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		habitID: habitID,
		unit:    unit,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// CreateSessionMarker registers a pending action for the habit and returns
// its id. Habitify may answer success with "data": null; that is not an
// error, just an empty id.
func (c *Client) CreateSessionMarker(ctx context.Context) (string, error) {
	payload := map[string]string{
		"title":     "Focus session (sensor)",
		"remind_at": isoTimestamp(time.Now()),
	}

	var out struct {
		Data json.RawMessage `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/actions/"+c.habitID, payload, &out); err != nil {
		return "", err
	}

	var data struct {
		ID string `json:"id"`
	}
	if len(out.Data) > 0 {
		// "data": null unmarshals to nothing; any parse failure here means
		// no usable id, which is fine.
		_ = json.Unmarshal(out.Data, &data)
	}
	return data.ID, nil
}

// CompleteSessionMarker marks the action as done (status 1).
func (c *Client) CompleteSessionMarker(ctx context.Context, id string) error {
	payload := map[string]int{"status": 1}
	return c.do(ctx, http.MethodPut, "/actions/"+c.habitID+"/"+id, payload, nil)
}

// RecordSession adds a log entry for the finished session. Elapsed time is
// floored at 0.1 minutes so that very short sessions still register.
func (c *Client) RecordSession(ctx context.Context, elapsed time.Duration, endedAt time.Time) error {
	value := elapsed.Minutes()
	if value < 0.1 {
		value = 0.1
	}
	if c.unit == "rep" {
		value = 1
	}

	payload := map[string]interface{}{
		"unit_type":   c.unit,
		"value":       value,
		"target_date": isoTimestamp(endedAt),
	}
	return c.do(ctx, http.MethodPost, "/logs/"+c.habitID, payload, nil)
}

// Habit is one entry from the habit list.
type Habit struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ListHabits fetches all habits on the account. Used by the -list-habits
// startup mode so users can find the habit id to configure.
func (c *Client) ListHabits(ctx context.Context) ([]Habit, error) {
	var out struct {
		Data []Habit `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/habits", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, string(respBody))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// isoTimestamp formats t the way Habitify wants it: local time with offset,
// seconds precision (2025-11-30T14:12:03-05:00).
func isoTimestamp(t time.Time) string {
	return t.Truncate(time.Second).Format(time.RFC3339)
}
