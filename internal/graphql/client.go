// Package graphql is the HTTP transport for downstream mutation calls.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/darmiel/fxrelay/internal/buildinfo"
	"github.com/darmiel/fxrelay/internal/core"
)

var ErrTransport = errors.New("downstream transport error")

// maxResponseSize caps how much of a downstream response is read.
const maxResponseSize = 4 << 20

type request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables"`
}

// Client posts GraphQL documents to a single endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	userAgent  string
}

var _ core.MutationGateway = (*Client)(nil)

func NewClient(endpoint string, timeout time.Duration) *Client {
	return NewClientWithHTTP(endpoint, &http.Client{Timeout: timeout})
}

func NewClientWithHTTP(endpoint string, httpClient *http.Client) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: httpClient,
		userAgent:  buildinfo.UserAgent(),
	}
}

// Call sends the mutation and returns the decoded {data, errors} envelope.
// A response carrying GraphQL errors is returned as a result, not as an error,
// even when the status code is not 2xx.
func (c *Client) Call(ctx context.Context, mut core.MutationRequest) (*core.MutationResult, error) {
	vars := mut.Variables
	if vars == nil {
		vars = map[string]any{}
	}
	body, err := json.Marshal(request{
		Query:         mut.Document,
		OperationName: mut.Name,
		Variables:     vars,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling mutation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if mut.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+mut.BearerToken)
	}
	for k, v := range mut.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrTransport, err)
	}

	var result core.MutationResult
	decodeErr := json.Unmarshal(raw, &result)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decodeErr == nil && result.HasErrors() {
			return &result, nil
		}
		return nil, fmt.Errorf("%w: status %d: %s", ErrTransport, resp.StatusCode, truncate(raw, 256))
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", ErrTransport, decodeErr)
	}
	return &result, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
