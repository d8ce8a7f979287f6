package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/harrison/bshape/internal/models"
)

// SubmitPath is the persistence endpoint route.
const SubmitPath = "/api/submit-assessment"

// maxResponseBytes caps how much of an endpoint reply is read.
const maxResponseBytes = 1 << 20

// Response is the persistence endpoint reply.
type Response struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Client posts session snapshots to a persistence endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient returns a client for the endpoint URL. A zero timeout means no timeout.
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Endpoint returns the URL submissions are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Submit posts the snapshot and returns the id assigned by the endpoint.
func (c *Client) Submit(ctx context.Context, sess *models.Session) (string, error) {
	if sess == nil {
		return "", fmt.Errorf("submit: nil session")
	}

	body, err := json.Marshal(sess)
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("post to %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var reply Response
	decodeErr := json.Unmarshal(raw, &reply)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && reply.Error != "" {
			return "", fmt.Errorf("endpoint returned %d: %s", resp.StatusCode, reply.Error)
		}
		return "", fmt.Errorf("endpoint returned %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decode response: %w", decodeErr)
	}
	if !reply.Success || reply.ID == "" {
		if reply.Error != "" {
			return "", fmt.Errorf("endpoint rejected submission: %s", reply.Error)
		}
		return "", fmt.Errorf("endpoint reply carried no submission id")
	}
	return reply.ID, nil
}
