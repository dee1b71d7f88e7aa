package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"ergasia-workers/internal/common/config"
	"ergasia-workers/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Options{Service: "job", BaseURL: server.URL + "/", Timeout: time.Second})
}

func TestClient_DecodesSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/jobs", r.URL.Path)
		assert.Equal(t, "owner-1", r.URL.Query().Get("ownerId"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"job-1"}`))
	})

	var out struct {
		ID string `json:"id"`
	}
	err := client.Get(context.Background(), "/jobs", url.Values{"ownerId": {"owner-1"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, "job-1", out.ID)
}

func TestClient_SendsJSONBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNoContent)
	})

	err := client.Post(context.Background(), "/appliers", map[string]string{"jobId": "j"}, nil)
	assert.NoError(t, err)
}

func TestClient_MapsErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCode  errors.ErrorCode
		retryable bool
	}{
		{"body code wins", http.StatusConflict, `{"code":"slots_full","message":"no room"}`, errors.ErrCodeSlotsFull, false},
		{"duplicate apply", http.StatusConflict, `{"code":"DUPLICATE_APPLICATION"}`, errors.ErrCodeDuplicateApplication, false},
		{"plain conflict", http.StatusConflict, `{"message":"stale"}`, errors.ErrCodeConflict, false},
		{"not found", http.StatusNotFound, ``, errors.ErrCodeResourceNotFound, false},
		{"payment required", http.StatusPaymentRequired, `{"error":"balance too low"}`, errors.ErrCodeInsufficientFunds, false},
		{"forbidden", http.StatusForbidden, `{}`, errors.ErrCodeForbidden, false},
		{"bad request", http.StatusBadRequest, `{"message":"jobId required"}`, errors.ErrCodeValidationFailed, false},
		{"server error", http.StatusBadGateway, `oops`, errors.ErrCodeExternalService, true},
		{"gateway timeout", http.StatusGatewayTimeout, ``, errors.ErrCodeTimeout, true},
		{"throttled", http.StatusTooManyRequests, ``, errors.ErrCodeExternalService, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			err := client.Post(context.Background(), "/x", struct{}{}, nil)
			require.Error(t, err)
			stdErr, ok := errors.AsStandard(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			assert.Equal(t, tt.retryable, stdErr.Retryable)
		})
	}
}

func TestClient_TimeoutIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(Options{Service: "inbox", BaseURL: server.URL, Timeout: 20 * time.Millisecond})
	err := client.Get(context.Background(), "/inbox", nil, nil)

	assert.True(t, errors.HasCode(err, errors.ErrCodeTimeout))
	assert.True(t, errors.IsTransient(err))
}

func TestClient_ConnectionRefusedIsTransient(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	client := NewClient(Options{Service: "ledger", BaseURL: addr, Timeout: time.Second})
	err := client.Get(context.Background(), "/x", nil, nil)

	assert.True(t, errors.HasCode(err, errors.ErrCodeExternalService))
}

func TestClient_RateLimiterHonoursContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	client.limiter = nil
	limited := NewClient(Options{Service: "job", BaseURL: "http://unused", RateLimit: 0.001, Burst: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	// The first token is available immediately; the second must wait far
	// longer than the context allows.
	limited.limiter.Allow()
	err := limited.Get(ctx, "/x", nil, nil)

	assert.True(t, errors.HasCode(err, errors.ErrCodeTimeout))
	assert.NoError(t, client.Get(context.Background(), "/ok", nil, nil))
}

func TestOptionsFor(t *testing.T) {
	opts := OptionsFor("inbox", config.ServiceEndpoint{BaseURL: "http://inbox", Timeout: 1500, RateLimit: 20, Burst: 4})
	assert.Equal(t, "inbox", opts.Service)
	assert.Equal(t, 1500*time.Millisecond, opts.Timeout)
	assert.Equal(t, 20.0, opts.RateLimit)
	assert.Equal(t, 4, opts.Burst)
}

func TestSegment(t *testing.T) {
	assert.Equal(t, "a%2Fb", Segment("a/b"))
}
