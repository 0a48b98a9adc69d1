// Package wordpress fetches blog content from a headless WordPress install
// through its GraphQL endpoint.
package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

const defaultTimeout = 15 * time.Second

// Client posts GraphQL queries to a WordPress endpoint.
//
// FetchAPI never returns an error: every failure is logged and reported as an
// empty result so page handlers can render an empty blog instead of failing.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     echo.Logger

	// OnFailure, if set, is called once per failed fetch.
	OnFailure func()
}

// NewClient creates a Client for endpoint. A nil httpClient uses a client with
// a 15s timeout; a nil logger logs with the "wordpress" prefix.
func NewClient(endpoint string, httpClient *http.Client, logger echo.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if logger == nil {
		logger = log.New("wordpress")
	}
	return &Client{endpoint: endpoint, httpClient: httpClient, logger: logger}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   map[string]any `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// FetchAPI runs query with variables and returns the response "data" object.
// It returns an empty map on any failure.
func (c *Client) FetchAPI(ctx context.Context, query string, variables map[string]any) map[string]any {
	data, err := c.fetch(ctx, query, variables)
	if err != nil {
		c.logger.Errorf("graphql fetch failed: %v", err)
		if c.OnFailure != nil {
			c.OnFailure()
		}
		return map[string]any{}
	}
	return data
}

func (c *Client) fetch(ctx context.Context, query string, variables map[string]any) (map[string]any, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("no endpoint configured")
	}
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed graphQLResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	if len(parsed.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %s", parsed.Errors[0].Message)
	}
	if parsed.Data == nil {
		return nil, fmt.Errorf("response has no data")
	}
	return parsed.Data, nil
}

// decodeInto re-encodes a generic GraphQL result into a typed struct.
func decodeInto(data map[string]any, out any) bool {
	if len(data) == 0 {
		return false
	}
	b, err := json.Marshal(data)
	if err != nil {
		return false
	}
	return json.Unmarshal(b, out) == nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
