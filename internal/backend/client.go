// Package backend is the HTTP client for the remote Sulam API. The backend
// is an opaque collaborator: only its wire shapes are modeled, and nothing
// here retries automatically; a failed call surfaces and the caller decides.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"sulamboard/internal/model"
)

var (
	// ErrUnauthorized marks 401/403 responses. Callers clear the session on
	// this error and only this error; transport failures must not log anyone
	// out.
	ErrUnauthorized = errors.New("backend rejected credentials")

	// ErrUnavailable marks transport-level failures (connection refused,
	// timeout) where no response arrived at all.
	ErrUnavailable = errors.New("backend unreachable")

	// ErrDecode marks a response whose body did not match the expected
	// shape. Callers may degrade to an empty collection.
	ErrDecode = errors.New("unexpected backend payload")
)

// Client calls the remote Sulam API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a backend client for the given base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Login exchanges credentials for a backend token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp model.BackendLoginResponse
	err := c.do(ctx, http.MethodPost, "/user/login", "", model.LoginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", fmt.Errorf("%w: login response missing token", ErrDecode)
	}
	return resp.Token, nil
}

// GetSelf fetches the current user for a token.
func (c *Client) GetSelf(ctx context.Context, token string) (*model.User, error) {
	var user model.User
	if err := c.do(ctx, http.MethodGet, "/user/get_self", token, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListOrgUsers fetches the roster: every person in the caller's
// organizations, grouped by organization.
func (c *Client) ListOrgUsers(ctx context.Context, token string) (model.Roster, error) {
	var roster model.Roster
	if err := c.do(ctx, http.MethodGet, "/user/list_my_org_users", token, nil, &roster); err != nil {
		return nil, err
	}
	if roster == nil {
		roster = model.Roster{}
	}
	return roster, nil
}

// ListVisibleLeaderboards fetches every leaderboard the caller may see.
func (c *Client) ListVisibleLeaderboards(ctx context.Context, token string) ([]model.Leaderboard, error) {
	var boards []model.Leaderboard
	if err := c.do(ctx, http.MethodGet, "/leaderboard/visible", token, nil, &boards); err != nil {
		return nil, err
	}
	return boards, nil
}

// GetLeaderboard fetches one leaderboard record.
func (c *Client) GetLeaderboard(ctx context.Context, token, id string) (*model.Leaderboard, error) {
	var lb model.Leaderboard
	if err := c.do(ctx, http.MethodGet, "/leaderboard/get/"+id, token, nil, &lb); err != nil {
		return nil, err
	}
	return &lb, nil
}

// GetScores fetches the ranked point rows for a leaderboard.
func (c *Client) GetScores(ctx context.Context, token, id string) ([]model.ScoreRow, error) {
	var rows []model.ScoreRow
	if err := c.do(ctx, http.MethodGet, "/leaderboard/"+id, token, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// CreateLeaderboard submits a new leaderboard definition.
func (c *Client) CreateLeaderboard(ctx context.Context, token string, body *model.LeaderboardSubmission) error {
	return c.do(ctx, http.MethodPost, "/leaderboard/create", token, body, nil)
}

// UpdateLeaderboard submits an edit of an existing leaderboard.
func (c *Client) UpdateLeaderboard(ctx context.Context, token, id string, body *model.LeaderboardSubmission) error {
	return c.do(ctx, http.MethodPut, "/leaderboard/"+id+"/edit", token, body, nil)
}

// DeleteLeaderboard deletes a leaderboard by id.
func (c *Client) DeleteLeaderboard(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/leaderboard/"+id+"/delete", token, nil, nil)
}

// ExportData fetches per-student metric rows for the export flow.
func (c *Client) ExportData(ctx context.Context, token string, req *model.ExportRequest) (*model.ExportResponse, error) {
	var resp model.ExportResponse
	if err := c.do(ctx, http.MethodPost, "/export/data", token, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PercentageLeaderboard fetches per-student completion percentages.
func (c *Client) PercentageLeaderboard(ctx context.Context, token string, userIDs []string, startISO, endISO string) (*model.PercentageResponse, error) {
	body := map[string]interface{}{
		"user_ids":   userIDs,
		"start_date": startISO,
		"end_date":   endISO,
	}
	var resp model.PercentageResponse
	if err := c.do(ctx, http.MethodPost, "/export/percentage_leaderboard", token, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, errorMessage(data))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("backend returned %d for %s %s: %s", resp.StatusCode, method, path, errorMessage(data))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrDecode, method, path, err)
	}
	return nil
}

// errorMessage pulls the backend's {"error": ...} message out of a failure
// body, falling back to a trimmed raw body.
func errorMessage(data []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	if len(data) > 200 {
		data = data[:200]
	}
	return string(bytes.TrimSpace(data))
}
