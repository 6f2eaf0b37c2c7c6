// Package restgpu is the shared HTTP plumbing the smaller GPU
// marketplace adapters (runpod, lambdalabs, coreweave, tensordock,
// huggingface, baseten, crusoe, digitalocean, hyperstack) build on.
// Those packages share one generic.Adapter, which composes a Client
// rather than inheriting from a base type; each package supplies only
// its own generic.Config.
package restgpu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a minimal authenticated JSON REST client.
type Client struct {
	BaseURL    string
	AuthHeader string // e.g. "Authorization"
	AuthValue  string // e.g. "Bearer sk-..."
	HTTP       *http.Client
}

func NewClient(baseURL, authHeader, authValue string) *Client {
	return &Client{
		BaseURL:    baseURL,
		AuthHeader: authHeader,
		AuthValue:  authValue,
		HTTP:       &http.Client{Timeout: 30 * time.Second},
	}
}

// DoJSON issues method against path (joined to BaseURL), marshaling
// body (if non-nil) as the request payload and unmarshaling the
// response into out (if non-nil).
func (c *Client) DoJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("restgpu: marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("restgpu: build request: %w", err)
	}
	if c.AuthHeader != "" {
		req.Header.Set(c.AuthHeader, c.AuthValue)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("restgpu: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("restgpu: decode response: %w", err)
	}
	return nil
}

// HTTPError is a response with status 400 or above from a provider's
// REST API.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("restgpu: HTTP %d: %s", e.StatusCode, e.Body)
}
