package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/blognest/blognest-go/internal/apperr"
)

const (
	DefaultTimeout  = 10 * time.Second
	RequestIDHeader = "X-Request-ID"

	maxResponseBytes = 10 << 20 // 10MB
)

// Doer sends a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Options struct {
	// Timeout bounds every request including reading the body. Zero means
	// DefaultTimeout.
	Timeout time.Duration
	// Limiter throttles outgoing requests. Nil disables throttling.
	Limiter    *rate.Limiter
	HTTPClient Doer
	Logger     *slog.Logger
}

// Client talks to the blog backend. It attaches the bearer credential set by
// the session manager and reports authentication rejections back to it.
type Client struct {
	baseURL *url.URL
	http    Doer
	timeout time.Duration
	limiter *rate.Limiter
	logger  *slog.Logger

	mu          sync.RWMutex
	bearer      string
	onUnauth    func(rejected string)
	onUnauthGen uint64
}

// New creates a Client for the backend at baseURL.
func New(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    opts.HTTPClient,
		timeout: opts.Timeout,
		limiter: opts.Limiter,
		logger:  opts.Logger,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// SetBearer makes every following request carry token.
func (c *Client) SetBearer(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bearer = token
}

// ClearBearer stops attaching a credential.
func (c *Client) ClearBearer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bearer = ""
}

// HasBearer reports whether a credential is currently attached.
func (c *Client) HasBearer() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bearer != ""
}

// OnUnauthorized registers fn to run whenever a response has status 401. fn
// receives the bearer the rejected request carried ("" for none) and runs
// before the failing call returns. Only one hook is kept; registering replaces
// the previous one. The returned func detaches fn if it is still registered.
func (c *Client) OnUnauthorized(fn func(rejected string)) (detach func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthGen++
	gen := c.onUnauthGen
	c.onUnauth = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.onUnauthGen == gen {
			c.onUnauth = nil
		}
	}
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	// anonymous requests carry no bearer and never trigger the 401 hook.
	anonymous bool
}

func jsonRequest(method, path string, v any) (request, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return request{}, fmt.Errorf("encoding request body: %w", err)
	}
	return request{method: method, path: path, body: bytes.NewReader(data), contentType: "application/json"}, nil
}

// do sends r and decodes a successful JSON response into out when out is
// non-nil. Every failure is returned as *apperr.Error.
func (c *Client) do(ctx context.Context, r request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return apperr.Network("rate limit wait", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL.JoinPath(r.path)
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), r.body)
	if err != nil {
		return apperr.Network("building request", err)
	}

	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	var bearer string
	if !r.anonymous {
		c.mu.RLock()
		bearer = c.bearer
		c.mu.RUnlock()
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", r.method, "path", r.path, "request_id", requestID, "error", err)
		return transportError(ctx, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return transportError(ctx, err)
	}

	c.logger.Debug("request completed",
		"method", r.method,
		"path", r.path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"request_id", requestID,
	)

	if resp.StatusCode == http.StatusUnauthorized && !r.anonymous {
		c.unauthorized(bearer)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperr.FromResponse(resp.StatusCode, body)
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperr.Network("decoding response", err)
	}
	return nil
}

func (c *Client) unauthorized(rejected string) {
	c.mu.RLock()
	fn := c.onUnauth
	c.mu.RUnlock()

	if fn != nil {
		fn(rejected)
	}
}

func transportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.Network("request timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return apperr.Network("request canceled", err)
	}
	return apperr.Network("request failed", err)
}
