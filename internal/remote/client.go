// Package remote reads rows from the hosted backend's REST data API.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	RequestTimeout  = 15 * time.Second
	MaxResponseSize = 4 * 1024 * 1024 // 4MB
)

// Source returns the rows of table matching q as a JSON array.
type Source interface {
	Query(ctx context.Context, table string, q Query) (json.RawMessage, error)
}

// HTTPError captures an unexpected status code and response body.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status code: %d, body: %s", e.StatusCode, string(e.Body))
}

// Client queries a PostgREST endpoint at <BaseURL>/rest/v1/<table>.
type Client struct {
	baseURL string
	apiKey  string
	token   string
	client  *http.Client
}

type ClientOption func(*Client)

// WithHTTPClient replaces the default client with a 15s timeout.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.client = hc }
}

// WithAccessToken sends token as the bearer instead of the API key.
func WithAccessToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: RequestTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Query(ctx context.Context, table string, q Query) (json.RawMessage, error) {
	if table == "" {
		return nil, errors.New("empty table")
	}
	endpoint := c.baseURL + "/rest/v1/" + table + "?" + q.values().Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	bearer := c.token
	if bearer == "" {
		bearer = c.apiKey
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: body}
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("%s: response exceeds %d bytes", table, MaxResponseSize)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%s: invalid json response", table)
	}
	return body, nil
}

// Select runs q against src and decodes the row array into []T.
func Select[T any](ctx context.Context, src Source, table string, q Query) ([]T, error) {
	raw, err := src.Query(ctx, table, q)
	if err != nil {
		return nil, err
	}
	var rows []T
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode %s rows: %w", table, err)
	}
	if rows == nil {
		rows = []T{}
	}
	return rows, nil
}
