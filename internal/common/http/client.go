// Package http is the JSON transport shared by the backend service clients.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ergasia-workers/internal/common/config"
	"ergasia-workers/internal/common/errors"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Options configure one service's client.
type Options struct {
	Service   string
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables limiting
	Burst     int
	Transport http.RoundTripper
}

// Client calls one backend service with JSON bodies. Non-2xx responses are
// mapped to *errors.StandardError so the sagas can branch on codes.
type Client struct {
	service    string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// errorBody is the error envelope every backend returns.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func NewClient(opts Options) *Client {
	c := &Client{
		service: opts.Service,
		baseURL: strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: opts.Transport,
		},
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return c
}

// Service names the backend this client talks to.
func (c *Client) Service() string {
	return c.service
}

// Get issues a GET and decodes the body into out when out is non-nil.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out interface{}) error {
	if len(query) > 0 {
		path = path + "?" + query.Encode()
	}
	return c.DoJSON(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.DoJSON(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out interface{}) error {
	return c.DoJSON(ctx, http.MethodPatch, path, body, out)
}

// DoJSON sends one request. It waits on the rate limiter first so a saga step
// never bursts a backend beyond its configured budget.
func (c *Client) DoJSON(ctx context.Context, method, path string, body, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return errors.NewTimeoutError(c.service, fmt.Errorf("rate limiter: %w", err))
		}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.NewValidationError(fmt.Sprintf("encode %s request: %v", c.service, err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.NewValidationError(fmt.Sprintf("create %s request: %v", c.service, err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.transportError(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.transportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(resp.StatusCode, payload)
	}

	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return errors.NewExternalServiceError(c.service, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) transportError(err error) error {
	var netErr net.Error
	if stderrors.Is(err, context.DeadlineExceeded) || (stderrors.As(err, &netErr) && netErr.Timeout()) {
		return errors.NewTimeoutError(c.service, err)
	}
	return errors.NewExternalServiceError(c.service, err)
}

// statusError maps a non-2xx response. Known business codes in the body win
// over the status class.
func (c *Client) statusError(status int, payload []byte) error {
	var body errorBody
	_ = json.Unmarshal(payload, &body)

	message := body.Message
	if message == "" {
		message = body.Error
	}
	if message == "" {
		message = strings.TrimSpace(string(payload))
	}
	details := fmt.Sprintf("service: %s, status: %d, message: %s", c.service, status, message)

	if stdErr := knownCode(errors.ErrorCode(strings.ToUpper(body.Code)), message, details); stdErr != nil {
		return stdErr
	}

	switch {
	case status == http.StatusNotFound:
		return errors.NewResourceNotFoundError(c.service, details)
	case status == http.StatusConflict:
		return errors.NewConflictError(c.service, details)
	case status == http.StatusForbidden || status == http.StatusUnauthorized:
		return errors.NewForbiddenError(details)
	case status == http.StatusPaymentRequired:
		return errors.NewInsufficientFundsError(details)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return errors.NewTimeoutError(c.service, fmt.Errorf("%s", details))
	case status == http.StatusTooManyRequests || status >= 500:
		return errors.NewExternalServiceError(c.service, fmt.Errorf("%s", details))
	default:
		return errors.NewValidationError(details)
	}
}

func knownCode(code errors.ErrorCode, message, details string) *errors.StandardError {
	switch code {
	case errors.ErrCodeDuplicateApplication,
		errors.ErrCodeDuplicateInvitation,
		errors.ErrCodeSlotsFull,
		errors.ErrCodeInsufficientFunds,
		errors.ErrCodeInvalidState,
		errors.ErrCodeForbidden:
		if message == "" {
			message = string(code)
		}
		return &errors.StandardError{
			Code:      code,
			Message:   message,
			Details:   details,
			Retryable: false,
			Timestamp: time.Now().UTC(),
		}
	}
	return nil
}

// OptionsFor builds the client options of one configured backend.
func OptionsFor(service string, ep config.ServiceEndpoint) Options {
	return Options{
		Service:   service,
		BaseURL:   ep.BaseURL,
		Timeout:   config.GetDuration(ep.Timeout),
		RateLimit: ep.RateLimit,
		Burst:     ep.Burst,
	}
}

// Segment escapes one path segment.
func Segment(id string) string {
	return url.PathEscape(id)
}
