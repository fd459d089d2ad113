// Package engine is a thin REST client for the managed agent runtime: it
// deploys the agent object, creates sessions and runs streaming queries
// against a deployed engine.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yapweiyih/auth-agent/internal/logger"
)

const maxResponseBytes = 8 << 20

// Client calls the regional agent-runtime API for one project/location pair
type Client struct {
	baseURL  string
	project  string
	location string
	client   *http.Client
	logger   logger.Logger

	// Operation polling knobs, shortened in tests
	pollInterval time.Duration
	pollTimeout  time.Duration
}

func NewClient(project, location string, httpClient *http.Client, l logger.Logger) (*Client, error) {
	if project == "" || location == "" {
		return nil, fmt.Errorf("project and location must not be empty")
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Client{
		baseURL:      fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1", location),
		project:      project,
		location:     location,
		client:       httpClient,
		logger:       l,
		pollInterval: 10 * time.Second,
		pollTimeout:  15 * time.Minute,
	}, nil
}

// EngineName returns the full resource name for an engine ID
func (c *Client) EngineName(engineID string) string {
	return fmt.Sprintf("projects/%s/locations/%s/reasoningEngines/%s", c.project, c.location, engineID)
}

func (c *Client) enginesURL() string {
	return fmt.Sprintf("%s/projects/%s/locations/%s/reasoningEngines", c.baseURL, c.project, c.location)
}

// postJSON sends a JSON body and decodes the JSON answer into out
func (c *Client) postJSON(ctx context.Context, url string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() // nolint:errcheck

	return decodeResponse(resp, out)
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() // nolint:errcheck

	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("agent runtime returned %d: %s", resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("bad agent runtime response: %w", err)
	}
	return nil
}
