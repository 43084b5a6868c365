// Package classifier talks to the external frame-classification service.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var ErrUpstreamStatus = errors.New("classifier returned non-success status")

// Verdict is the classifier's JSON response, kept verbatim.
type Verdict map[string]any

type request struct {
	Image string `json:"image"`
}

// Client posts frames to an HTTP classification endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

func New(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{endpoint: endpoint, http: httpClient}
}

// Classify sends image to the endpoint. Deadlines come from ctx.
func (c *Client) Classify(ctx context.Context, image string) (Verdict, error) {
	body, err := json.Marshal(request{Image: image})
	if err != nil {
		return nil, fmt.Errorf("encode classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %d", ErrUpstreamStatus, resp.StatusCode)
	}

	var v Verdict
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return nil, fmt.Errorf("decode classify response: %w", err)
	}
	if v == nil {
		v = Verdict{}
	}
	return v, nil
}
