// Package backend is the typed client of the shop REST API.
package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/niksmo/shopfront/internal/core/domain"
	"github.com/niksmo/shopfront/internal/core/port"
	"golang.org/x/time/rate"
)

var _ port.Backend = (*Client)(nil)

// DefaultBaseURL is the origin used when none is configured.
const DefaultBaseURL = "http://localhost:5000"

const (
	routeAuth     = "/auth"
	routeRegister = "/register"
	routeLogin    = "/login"
	routeProducts = "/products"
	routeCart     = "/cart"
	routeCheckout = "/checkout"

	headerRequestID = "X-Request-ID"

	maxBodySize = 8 << 20
)

var ErrMalformedResponse = fmt.Errorf("%w: malformed response", domain.ErrBackend)

type Config struct {
	BaseURL string

	// Timeout bounds a whole request. Zero means no timeout.
	Timeout time.Duration

	TLSConfig *tls.Config

	// HTTPClient overrides Timeout and TLSConfig when set.
	HTTPClient *http.Client

	// RateLimit caps outgoing requests per second. Zero means unlimited.
	RateLimit float64
	Burst     int
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func New(cfg Config) (*Client, error) {
	const op = "backend.New"

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasPrefix(baseURL, "http://") &&
		!strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("%s: base url %q has no http scheme", op, baseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
		if cfg.TLSConfig != nil {
			tr := http.DefaultTransport.(*http.Transport).Clone()
			tr.TLSClientConfig = cfg.TLSConfig
			httpClient.Transport = tr
		}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := max(cfg.Burst, 1)
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		limiter:    limiter,
	}, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

type request struct {
	method string
	route  string
	authed bool
	token  string
	body   any
	header http.Header
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (c *Client) do(ctx context.Context, r request) (response, error) {
	if r.authed && r.token == "" {
		return response{}, domain.ErrAuthRequired
	}

	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return response{}, ctxErr
		}
		return response{}, fmt.Errorf("rate limiter: %w", err)
	}

	var bodyReader io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return response{}, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(
		ctx, r.method, c.baseURL+r.route, bodyReader,
	)
	if err != nil {
		return response{}, fmt.Errorf("failed to create request: %w", err)
	}

	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerRequestID, requestID)
	if r.authed {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	log := slog.With(
		"method", r.method, "route", r.route, "request_id", requestID,
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return response{}, ctxErr
		}
		log.Debug("request failed", "err", err)
		return response{}, &domain.ConnectionError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return response{}, ctxErr
		}
		return response{}, &domain.ConnectionError{Err: err}
	}

	log.Debug("response received", "status", resp.StatusCode)

	out := response{status: resp.StatusCode, header: resp.Header, body: body}
	if err := statusError(r, out); err != nil {
		return response{}, err
	}
	return out, nil
}

// statusError maps a non-2xx answer onto the error taxonomy.
func statusError(r request, resp response) error {
	if resp.status >= 200 && resp.status < 300 {
		return nil
	}

	backendErr := &domain.BackendError{
		Status:  resp.status,
		Message: errorMessage(resp.body),
	}

	switch {
	case resp.status == http.StatusUnauthorized && r.authed:
		return fmt.Errorf("%w: %w", domain.ErrSessionExpired, backendErr)
	case resp.status == http.StatusConflict,
		resp.status == http.StatusPreconditionFailed:
		return fmt.Errorf("%w: %w", domain.ErrConflict, backendErr)
	default:
		return backendErr
	}
}

func opErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
