package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wahealthh/recall-product-backend/internal/platform/metrics"
)

// ErrInvalidToken means the auth service answered verify_token with a
// non-200 status.
var ErrInvalidToken = errors.New("invalid or expired token")

// UpstreamError carries a non-2xx answer from the auth service so handlers
// can relay the same status and body to the caller.
type UpstreamError struct {
	StatusCode int
	Body       json.RawMessage
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("auth service returned %d: %s", e.StatusCode, string(e.Body))
}

// User is the verify_token payload. Claims keeps the full body so it can be
// echoed back unchanged by /admin/me.
type User struct {
	ID       string
	Email    string
	Role     string
	Verified *bool
	Claims   map[string]interface{}
}

func (u *User) IsAdmin() bool {
	return u.Role == "admin"
}

func userFromClaims(claims map[string]interface{}) *User {
	u := &User{Claims: claims}
	u.ID = stringValue(claims["user_id"])
	if u.ID == "" {
		u.ID = stringValue(claims["id"])
	}
	u.Email = stringValue(claims["email"])
	u.Role = stringValue(claims["role"])
	if v, ok := claims["is_verified"].(bool); ok {
		u.Verified = &v
	}
	return u
}

func stringValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

// RegisterRequest is forwarded to POST /auth/register.
type RegisterRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password1 string `json:"password1"`
	Password2 string `json:"password2"`
	Role      string `json:"role"`
}

// Registration is the auth service's answer to a successful register call.
type Registration struct {
	UserID      string
	AccessToken string
	TokenType   string
}

// Client talks to the external auth service. It keeps no state between
// calls; every verification is a fresh round trip.
type Client struct {
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

// WithLogger sets the logger used for upstream failures.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) post(ctx context.Context, op, path string, payload interface{}) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal %s payload: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveUpstream("auth", op, 0, start)
		return 0, nil, err
	}
	defer resp.Body.Close()
	metrics.ObserveUpstream("auth", op, resp.StatusCode, start)

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read %s response: %w", op, err)
	}
	return resp.StatusCode, respBody, nil
}

// Verify posts the token to /auth/verify_token. A non-200 answer yields
// ErrInvalidToken; transport failures are returned as-is.
func (c *Client) Verify(ctx context.Context, token string) (*User, error) {
	status, body, err := c.post(ctx, "verify_token", "/auth/verify_token", map[string]string{"token": token})
	if err != nil {
		c.logger.Warn().Err(err).Msg("auth verify_token request failed")
		return nil, err
	}
	if status != http.StatusOK {
		return nil, ErrInvalidToken
	}

	var claims map[string]interface{}
	if err := json.Unmarshal(body, &claims); err != nil {
		return nil, fmt.Errorf("decode verify_token response: %w", err)
	}
	return userFromClaims(claims), nil
}

// Register creates a user in the auth service. Non-2xx answers come back
// as *UpstreamError.
func (c *Client) Register(ctx context.Context, r RegisterRequest) (*Registration, error) {
	status, body, err := c.post(ctx, "register", "/auth/register", r)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		raw := json.RawMessage(body)
		if !json.Valid(body) {
			raw, _ = json.Marshal(string(body))
		}
		return nil, &UpstreamError{StatusCode: status, Body: raw}
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode register response: %w", err)
	}
	reg := &Registration{
		UserID:      stringValue(payload["id"]),
		AccessToken: stringValue(payload["access_token"]),
		TokenType:   stringValue(payload["token_type"]),
	}
	if reg.UserID == "" {
		return nil, fmt.Errorf("register response has no user id")
	}
	return reg, nil
}
