package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"trackeco/internal/models"
)

const DefaultRequestTimeout = 15 * time.Second

// TrackEcoClient talks to the TrackEco API
type TrackEcoClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewTrackEcoClient creates a client. A non-positive timeout uses DefaultRequestTimeout.
func NewTrackEcoClient(baseURL, token string, timeout time.Duration) *TrackEcoClient {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &TrackEcoClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// SetToken replaces the bearer token used for authenticated calls
func (c *TrackEcoClient) SetToken(token string) {
	c.token = token
}

// Submit pushes one waste record.
//
// Errors wrap models.ErrTransport when the API could not be reached,
// models.ErrServerUnavailable on 5xx, and models.ErrServerRejected on 4xx or
// an unsuccessful ack. A cancelled ctx is returned as is.
func (c *TrackEcoClient) Submit(ctx context.Context, rec *models.WasteRecord) (*models.ServerAck, error) {
	body := models.NewWasteRecordSubmission(rec)

	var ack models.ServerAck
	if err := c.do(ctx, http.MethodPost, "/api/waste-record", body, true, &ack); err != nil {
		return nil, fmt.Errorf("submit %s: %w", rec.ID, err)
	}
	if !ack.Success {
		return nil, fmt.Errorf("submit %s: %w: %s", rec.ID, models.ErrServerRejected, ack.Message)
	}
	return &ack, nil
}

// Login exchanges credentials for a token and remembers it
func (c *TrackEcoClient) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	req := models.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", req, false, &resp); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	c.token = resp.Token
	return &resp, nil
}

// Stats fetches the server-side totals for the signed-in user
func (c *TrackEcoClient) Stats(ctx context.Context) (*models.UserStats, error) {
	var stats models.UserStats
	if err := c.do(ctx, http.MethodGet, "/api/user/stats", nil, true, &stats); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return &stats, nil
}

func (c *TrackEcoClient) do(ctx context.Context, method, path string, in interface{}, auth bool, out interface{}) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", models.ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: reading response: %v", models.ErrTransport, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d: %s", models.ErrServerUnavailable, resp.StatusCode, errorMessage(data))
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: status %d: %s", models.ErrServerRejected, resp.StatusCode, errorMessage(data))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", models.ErrServerUnavailable, err)
	}
	return nil
}

// errorMessage pulls the "error" field out of an API error body
func errorMessage(data []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return body.Error
	}
	msg := strings.TrimSpace(string(data))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
