package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/okian/polytrack/internal/domain/model"
)

// Client talks to the leaderboard HTTP API.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a client for the service at base.
func NewClient(base string, timeout time.Duration) *Client {
	return &Client{base: base, http: &http.Client{Timeout: timeout}}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var rd io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	status, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("health check returned %d", status)
	}
	return nil
}

// Submit posts one race result.
func (c *Client) Submit(ctx context.Context, s Submission) (Ack, error) {
	var ack Ack
	status, err := c.do(ctx, http.MethodPost, "/api/race-result", s, &ack)
	if err != nil {
		return ack, err
	}
	if status != http.StatusOK || !ack.Success {
		return ack, fmt.Errorf("submit returned %d: %s", status, ack.Error)
	}
	return ack, nil
}

// TrackLeaderboard fetches up to limit entries of a track board.
func (c *Client) TrackLeaderboard(ctx context.Context, trackID string, limit int) ([]model.TrackEntry, error) {
	var body struct {
		Entries []model.TrackEntry `json:"entries"`
	}
	q := url.Values{"trackId": {trackID}, "limit": {strconv.Itoa(limit)}}
	status, err := c.do(ctx, http.MethodGet, "/api/leaderboard?"+q.Encode(), nil, &body)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("leaderboard %s returned %d", trackID, status)
	}
	return body.Entries, nil
}

// OverallLeaderboard fetches up to limit overall entries.
func (c *Client) OverallLeaderboard(ctx context.Context, limit int) ([]model.OverallEntry, error) {
	var body struct {
		Entries []model.OverallEntry `json:"entries"`
	}
	status, err := c.do(ctx, http.MethodGet, "/api/overall-leaderboard?limit="+strconv.Itoa(limit), nil, &body)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("overall leaderboard returned %d", status)
	}
	return body.Entries, nil
}
