// Package vapi is a small client for the Vapi voice-AI calling API: placing
// outbound calls and reading, listing and deleting call records.
package vapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wahealthh/recall-product-backend/internal/platform/metrics"
)

const DefaultBaseURL = "https://api.vapi.ai"

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 8 << 20

type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, payload interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveUpstream("vapi", op, 0, start)
		return nil, fmt.Errorf("vapi %s: %w", op, err)
	}
	defer resp.Body.Close()
	metrics.ObserveUpstream("vapi", op, resp.StatusCode, start)

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read vapi %s response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(resp.StatusCode, respBody)
		c.logger.Warn().
			Str("operation", op).
			Int("status", resp.StatusCode).
			Str("body", apiErr.BodyString()).
			Msg("vapi request failed")
		return nil, apiErr
	}
	return respBody, nil
}

// CreateCall places one outbound call.
func (c *Client) CreateCall(ctx context.Context, req CreateCallRequest) (*Call, error) {
	body, err := c.do(ctx, "create_call", http.MethodPost, "/call", nil, req)
	if err != nil {
		return nil, err
	}
	call, err := DecodeCall(body)
	if err != nil {
		return nil, err
	}
	return &call, nil
}

// ListParams selects a page of call records, newest first.
type ListParams struct {
	Limit int
	// CreatedAtLt restricts the page to calls created before this
	// timestamp, as returned in a record's createdAt.
	CreatedAtLt string
}

// ListCalls returns one page of raw call records.
func (c *Client) ListCalls(ctx context.Context, p ListParams) ([]json.RawMessage, error) {
	q := url.Values{}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.CreatedAtLt != "" {
		q.Set("createdAtLt", p.CreatedAtLt)
	}
	body, err := c.do(ctx, "list_calls", http.MethodGet, "/call", q, nil)
	if err != nil {
		return nil, err
	}
	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decode call list: %w", err)
	}
	return records, nil
}

// GetCall returns the provider's record unchanged.
func (c *Client) GetCall(ctx context.Context, id string) (json.RawMessage, error) {
	body, err := c.do(ctx, "get_call", http.MethodGet, "/call/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(body), nil
}

// DeleteCall removes a call record. Any 2xx answer counts as success.
func (c *Client) DeleteCall(ctx context.Context, id string) error {
	_, err := c.do(ctx, "delete_call", http.MethodDelete, "/call/"+url.PathEscape(id), nil, nil)
	return err
}
