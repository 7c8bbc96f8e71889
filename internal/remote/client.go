// Package remote talks to the coordinate transform service.
//
// The service receives the session's common points and points together with
// opaque transform parameters and answers with one result row per point.
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

	"github.com/JonMunkholm/CoordImport/internal/core"
)

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 32 << 20

// Client posts transform requests to {baseURL}/transform.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

var _ core.Transformer = (*Client)(nil)

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// wireResult is one row of the service's answer: the coordinates sit next to
// name and error rather than under a target object.
type wireResult struct {
	Name string `json:"name"`
	core.NumericTuple
	Error string `json:"error"`
}

type transformResponse struct {
	Results []wireResult `json:"results"`
	Error   string       `json:"error,omitempty"`
}

// Transform sends req and returns the computed results in response order.
func (c *Client) Transform(ctx context.Context, req core.TransformRequest) ([]core.Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode transform request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transform", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrTransformFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", core.ErrTransformFailed, err)
	}

	var decoded transformResponse
	decodeErr := json.Unmarshal(data, &decoded)

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(decoded.Error)
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return nil, fmt.Errorf("%w: unexpected status %d: %s", core.ErrTransformFailed, resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: decode response: %w", core.ErrTransformFailed, decodeErr)
	}

	results := make([]core.Result, len(decoded.Results))
	for i, r := range decoded.Results {
		results[i] = core.Result{Name: r.Name, Target: r.NumericTuple, Error: r.Error}
	}
	return results, nil
}
