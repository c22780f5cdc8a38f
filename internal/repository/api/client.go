package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-client/internal/metrics"
	"github.com/kirinyoku/tix-client/internal/repository"
)

const maxBodyBytes = 4 << 20

// Session supplies the credentials of the signed-in user.
type Session interface {
	Token() string
	UserID() string
}

// LoadingTracker is notified around every tracked request.
type LoadingTracker interface {
	Show()
	Hide()
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	now     func() time.Time

	mu             sync.RWMutex
	session        Session
	loading        LoadingTracker
	onUnauthorized func(ctx context.Context)
}

type Option func(*Client)

func WithSession(s Session) Option { return func(c *Client) { c.session = s } }

func WithLoading(l LoadingTracker) Option { return func(c *Client) { c.loading = l } }

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

func WithClock(now func() time.Time) Option { return func(c *Client) { c.now = now } }

func NewClient(cfg Config, logger *slog.Logger, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:5000/api/v1"
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SetSession replaces the credential source. Used to break the construction
// cycle between the client and the auth store.
func (c *Client) SetSession(s Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

func (c *Client) SetLoading(l LoadingTracker) {
	c.mu.Lock()
	c.loading = l
	c.mu.Unlock()
}

// OnUnauthorized registers the hook run when a non-auth request comes back 401.
func (c *Client) OnUnauthorized(fn func(ctx context.Context)) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

type ctxKey int

const idempotencyKey ctxKey = iota

// WithIdempotencyKey makes requests sent with the returned context carry an
// Idempotency-Key header, so a retried create is applied once.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKey, key)
}

func (c *Client) currentUserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.UserID()
}

type errorBody struct {
	Message string    `json:"message"`
	Code    errorCode `json:"code"`
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *errorBody      `json:"error"`
	Message string          `json:"message"`
}

func (e envelope) serverMessage() string {
	if e.Error != nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return e.Message
}

func (e envelope) code() string {
	if e.Error == nil {
		return ""
	}
	return string(e.Error.Code)
}

func isAuthEndpoint(path string) bool {
	return strings.Contains(path, "/auth/")
}

func resourceOf(path string) string {
	p := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		p = p[:i]
	}
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	return p
}

// do sends one request and decodes the envelope's data into out. out may be
// nil when the call does not need a payload. defaultMsg is used when the
// server reports failure without a message.
func (c *Client) do(ctx context.Context, method, path string, body, out any, defaultMsg string) error {
	c.mu.RLock()
	session, loading, onUnauthorized := c.session, c.loading, c.onUnauthorized
	c.mu.RUnlock()

	authCall := isAuthEndpoint(path)
	url := c.baseURL + path

	if loading != nil && !authCall {
		loading.Show()
		defer loading.Hide()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key, ok := ctx.Value(idempotencyKey).(string); ok && key != "" {
		req.Header.Set("Idempotency-Key", key)
	}

	if !authCall && session != nil {
		if token := session.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveRequest(method, resourceOf(path), 0, time.Since(start))
		c.logger.Warn("network error", "method", method, "url", url, "error", err)
		return &Error{Method: method, URL: url, Kind: repository.ErrNetwork, Err: err}
	}
	defer resp.Body.Close()

	metrics.ObserveRequest(method, resourceOf(path), resp.StatusCode, time.Since(start))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &Error{Status: resp.StatusCode, Method: method, URL: url, Kind: repository.ErrNetwork, Err: err}
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode >= 400 {
		e := &Error{
			Status:  resp.StatusCode,
			Code:    env.code(),
			Message: env.serverMessage(),
			Method:  method,
			URL:     url,
			Kind:    kindForStatus(resp.StatusCode),
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized && !authCall:
			c.logger.Warn("unauthorized", "method", method, "url", url)
			if onUnauthorized != nil {
				onUnauthorized(ctx)
			}
		case resp.StatusCode == http.StatusForbidden:
			c.logger.Warn("forbidden", "method", method, "url", url)
		case resp.StatusCode >= 500:
			c.logger.Error("server error", "status", resp.StatusCode, "method", method, "url", url)
		}

		return e
	}

	if decodeErr != nil {
		return &Error{
			Status:  resp.StatusCode,
			Message: defaultMsg,
			Method:  method,
			URL:     url,
			Kind:    repository.ErrUnexpected,
			Err:     decodeErr,
		}
	}

	if !env.Success {
		msg := env.serverMessage()
		if msg == "" {
			msg = defaultMsg
		}
		return &Error{
			Status:  resp.StatusCode,
			Code:    env.code(),
			Message: msg,
			Method:  method,
			URL:     url,
			Kind:    repository.ErrEnvelope,
		}
	}

	if out == nil {
		return nil
	}

	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return &Error{
			Status:  resp.StatusCode,
			Message: defaultMsg,
			Method:  method,
			URL:     url,
			Kind:    repository.ErrUnexpected,
		}
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return &Error{
			Status:  resp.StatusCode,
			Message: defaultMsg,
			Method:  method,
			URL:     url,
			Kind:    repository.ErrUnexpected,
			Err:     err,
		}
	}

	return nil
}
