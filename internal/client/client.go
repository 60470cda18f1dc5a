package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"alpaca/internal/reconciler"
	"alpaca/pkg/logging"
)

// DefaultTimeout bounds a single HTTP request.
const DefaultTimeout = 30 * time.Second

const loginPath = "/auth/login"

// Client is an authenticated ALPACA Operator API client. It is safe for
// concurrent use.
type Client struct {
	conn       Connection
	baseURL    string
	httpClient *http.Client

	tokenMu    sync.RWMutex
	token      Secret
	loginGroup singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithBaseURL overrides the URL derived from the connection.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// New creates a client for conn. No request is sent until the first call.
func New(conn Connection, opts ...Option) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !conn.VerifyTLS() {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // tls_verify: false
	}

	c := &Client{
		conn:       conn,
		baseURL:    conn.BaseURL(),
		httpClient: &http.Client{Timeout: DefaultTimeout, Transport: transport},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login authenticates and caches the bearer token. Concurrent callers share
// one request.
func (c *Client) Login(ctx context.Context) error {
	_, err, _ := c.loginGroup.Do("login", func() (interface{}, error) {
		token, err := c.doLogin(ctx)
		if err != nil {
			return nil, err
		}
		c.tokenMu.Lock()
		c.token = token
		c.tokenMu.Unlock()
		return nil, nil
	})
	return err
}

func (c *Client) doLogin(ctx context.Context) (Secret, error) {
	url := c.baseURL + loginPath
	payload, err := json.Marshal(map[string]string{
		"username": c.conn.Username,
		"password": c.conn.Password,
	})
	if err != nil {
		return Secret{}, fmt.Errorf("failed to encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Secret{}, fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Secret{}, &AuthError{URL: url, Username: c.conn.Username, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Secret{}, fmt.Errorf("failed to read login response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		logging.Debug("Client", "Login failed: status=%d body=%s", resp.StatusCode, string(body))
		return Secret{}, &AuthError{URL: url, Username: c.conn.Username, StatusCode: resp.StatusCode}
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return Secret{}, fmt.Errorf("failed to parse login response: %w", err)
	}
	if result.Token == "" {
		return Secret{}, &AuthError{URL: url, Username: c.conn.Username, StatusCode: resp.StatusCode,
			Err: fmt.Errorf("response contains no token")}
	}

	logging.Debug("Client", "Logged in to %s", c.conn)
	return NewSecret(result.Token), nil
}

func (c *Client) currentToken() Secret {
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	return c.token
}

func (c *Client) invalidate(stale Secret) {
	c.tokenMu.Lock()
	if c.token == stale {
		c.token = Secret{}
	}
	c.tokenMu.Unlock()
}

// Do sends body as JSON to path (relative to /api) and decodes the response
// into out when out is non-nil and the response has a body.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s %s request: %w", method, path, err)
		}
	}

	for attempt := 0; ; attempt++ {
		token := c.currentToken()
		if token.IsEmpty() {
			if err := c.Login(ctx); err != nil {
				return err
			}
			token = c.currentToken()
		}

		status, respBody, err := c.send(ctx, method, path, payload, token)
		if err != nil {
			return err
		}

		if status == http.StatusUnauthorized && attempt == 0 {
			logging.Debug("Client", "Token rejected for %s %s, logging in again", method, path)
			c.invalidate(token)
			continue
		}

		if status < 200 || status >= 300 {
			return &APIError{Method: method, URL: c.baseURL + path, StatusCode: status, Body: string(respBody)}
		}

		if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
			return nil
		}
		dec := json.NewDecoder(bytes.NewReader(respBody))
		dec.UseNumber()
		if err := dec.Decode(out); err != nil {
			return fmt.Errorf("failed to parse response of %s %s: %w", method, path, err)
		}
		return nil
	}
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, token Secret) (int, []byte, error) {
	url := c.baseURL + path

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+token.Value())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response of %s %s: %w", method, url, err)
	}

	logging.Debug("Client", "%s %s -> %d in %s (request %s)", method, url, resp.StatusCode, time.Since(start).Round(time.Millisecond), requestID)
	return resp.StatusCode, body, nil
}

// Get decodes GET path into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post sends body with POST and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Put sends body with PUT and decodes the response into out.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

// Delete issues DELETE path.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// List returns the collection at /<resource>.
func (c *Client) List(ctx context.Context, resource string) ([]Record, error) {
	var items []Record
	if err := c.Get(ctx, "/"+resource, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Lookup returns the first item of /<resource> whose key matches value, or
// nil when there is none. Values are compared in their string form.
func (c *Client) Lookup(ctx context.Context, resource, key string, value any) (Record, error) {
	if value == nil {
		return nil, nil
	}
	items, err := c.List(ctx, resource)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s by %s: %w", resource, key, err)
	}
	return Find(items, key, value), nil
}

// Find returns the first record whose key matches value in string form.
func Find(items []Record, key string, value any) Record {
	want := reconciler.String(value)
	for _, item := range items {
		if v, ok := item[key]; ok && v != nil && reconciler.String(v) == want {
			return item
		}
	}
	return nil
}

// LookupProcessID searches the process tree for a process whose key matches
// value and returns its id, or nil when there is none.
func (c *Client) LookupProcessID(ctx context.Context, key string, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	var tree []struct {
		Processes []Record `json:"processes"`
	}
	if err := c.Get(ctx, "/processes/tree", &tree); err != nil {
		return nil, fmt.Errorf("failed to load process tree: %w", err)
	}
	for _, group := range tree {
		if process := Find(group.Processes, key, value); process != nil {
			return process["id"], nil
		}
	}
	return nil, nil
}
