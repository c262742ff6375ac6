package defensio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// maxResponseSize bounds the bytes read from a response body.
const maxResponseSize = 10 << 20

// Doer performs HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// httpClient sends requests to the Defensio API.
type httpClient struct {
	doer      Doer
	baseURL   string
	userAgent string
	accept    string
	apiKey    string
	hook      HTTPHook
	logger    StructuredLogger
	metrics   Metrics
}

func newHTTPClient(cfg *Config, c codec) *httpClient {
	return &httpClient{
		doer:      cfg.HTTPClient,
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		accept:    c.mediaType(),
		apiKey:    cfg.APIKey,
		hook:      combineHooks(cfg.HTTPHooks),
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}
}

// request represents an HTTP request to be made. All parameters travel in
// the query string; the body is always empty.
type request struct {
	method string
	path   string
	params Params
}

// response is a fully read HTTP response.
type response struct {
	status    int
	body      []byte
	requestID string
}

// do executes a single HTTP request. An error means no status was received.
func (h *httpClient) do(ctx context.Context, req *request) (*response, error) {
	query, ok, err := EncodeQuery(req.params)
	if err != nil {
		return nil, err
	}

	u := h.baseURL + req.path
	if ok && query != "" {
		u += "?" + query
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("defensio: failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("User-Agent", h.userAgent)
	httpReq.Header.Set("Accept", h.accept)
	httpReq.Header.Set("X-Request-ID", requestID)

	path := maskPath(req.path, h.apiKey)
	ctx = withLogPath(ctx, path)

	if h.hook != nil {
		if err := h.hook.BeforeRequest(ctx, httpReq); err != nil {
			return nil, fmt.Errorf("defensio: request hook: %w", err)
		}
	}

	h.metrics.IncrementCounter(MetricRequests, 1)
	start := time.Now()
	resp, err := h.doer.Do(httpReq)
	duration := time.Since(start)
	h.metrics.RecordDuration(MetricRequestDuration, duration)

	if h.hook != nil {
		h.hook.AfterResponse(ctx, httpReq, resp, duration, err)
	}

	if err != nil {
		h.metrics.IncrementCounter(MetricRequestErrors, 1)
		h.logger.Debug("request failed",
			"method", req.method,
			"path", path,
			"request_id", requestID,
			"duration", duration,
			"error", err,
		)
		return nil, &NetworkError{RequestID: requestID, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		h.metrics.IncrementCounter(MetricRequestErrors, 1)
		return nil, &NetworkError{RequestID: requestID, Err: fmt.Errorf("read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		h.metrics.IncrementCounter(MetricRequestErrors, 1)
	}

	h.logger.Debug("request completed",
		"method", req.method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", duration,
		"bytes", len(body),
	)

	return &response{status: resp.StatusCode, body: body, requestID: requestID}, nil
}
