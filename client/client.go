package client

import (
	"asterctl/logger"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type Client struct {
	httpClient *http.Client
	baseUrl    string
	auth       AuthProvider
	limiter    *rate.Limiter
	log        *logger.Logger
}

var ErrAPIFailure = errors.New("api request failed")

// APIError is a non-2xx response. The exchange reports failures as
// {"code": -1022, "msg": "..."}; Code and Message are empty when the body has
// another shape.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"code"`
	Message    string `json:"msg"`
	Body       string `json:"-"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API error %d (code %d): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error { return ErrAPIFailure }

type Options struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	// Limiter, when set, is shared with other clients and RequestsPerSecond is ignored.
	Limiter *rate.Limiter
	Logger  *logger.Logger
}

// NewLimiter returns a limiter allowing requestsPerSecond, or no limit when it is not positive.
func NewLimiter(requestsPerSecond float64) *rate.Limiter {
	if requestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
}

func NewClient(baseUrl string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}

	if opts.Limiter == nil {
		opts.Limiter = NewLimiter(opts.RequestsPerSecond)
	}

	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseUrl:    baseUrl,
		limiter:    opts.Limiter,
		log:        opts.Logger,
	}
}

// SetAuth configures an optional AuthProvider. If set, it will be applied
// to outbound requests for endpoints that require authentication.
func (c *Client) SetAuth(auth AuthProvider) {
	c.auth = auth
}

func (c *Client) doRequest(req *http.Request, signed bool, result interface{}) error {
	if signed && c.auth == nil {
		return fmt.Errorf("%s %s requires authentication", req.Method, req.URL.Path)
	}

	// Signing stamps timestamp and nonce, so it must happen after any throttling.
	if err := c.limiter.Wait(req.Context()); err != nil {
		return err
	}

	if signed {
		if err := c.auth.Apply(req); err != nil {
			return fmt.Errorf("failed to authenticate request: %w", err)
		}
	}

	requestID := uuid.NewString()
	start := time.Now()
	c.log.Debug("api_request", "request_id", requestID, "method", req.Method, "path", req.URL.Path, "signed", signed)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	c.log.Debug("api_response", "request_id", requestID, "status", resp.StatusCode, "latency", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(body)}
		_ = json.Unmarshal(body, apiErr)
		c.log.Warn("api_error", "request_id", requestID, "path", req.URL.Path, "status", resp.StatusCode, "code", apiErr.Code)
		return apiErr
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", req.URL.Path, err)
		}
	}

	return nil
}

func (c *Client) newGet(ctx context.Context, endpoint string, params url.Values) (*http.Request, error) {
	reqUrl := c.baseUrl + endpoint
	if len(params) > 0 {
		reqUrl += "?" + params.Encode()
	}

	return http.NewRequestWithContext(ctx, http.MethodGet, reqUrl, nil)
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, result interface{}) error {
	req, err := c.newGet(ctx, endpoint, params)
	if err != nil {
		return err
	}

	return c.doRequest(req, false, result)
}

func (c *Client) signedGet(ctx context.Context, endpoint string, params url.Values, result interface{}) error {
	req, err := c.newGet(ctx, endpoint, params)
	if err != nil {
		return err
	}

	return c.doRequest(req, true, result)
}
