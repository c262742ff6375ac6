package defensio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-hclog"
)

// DefaultCallbackMaxBytes bounds the body accepted by CallbackHandler.
const DefaultCallbackMaxBytes = 1 << 20

// BodyReader is implemented by request types that expose their body as a
// stream, such as wrappers around framework request objects.
type BodyReader interface {
	Body() io.Reader
}

// DecodeCallback decodes the body of an asynchronous classification result
// posted by Defensio. It needs no API key. Bodies are decoded as JSON unless
// WithCallbackFormat says otherwise; with the format of a client, the result
// equals that of Client.DecodeCallback for the same input.
//
// input must be one of:
//   - string or []byte holding the raw payload
//   - *http.Request, whose body is read fully
//   - BodyReader, whose body is read fully
//   - io.Reader, read fully
//
// Any other value, including nil, yields an *InvalidInputError.
//
// Of the options, only WithCallbackFormat applies.
func DecodeCallback(input any, opts ...CallbackOption) (Result, error) {
	h := newCallbackHandler(codecs[DefaultFormat], nil, opts)
	return decodeCallback(h.codec, input)
}

// DecodeCallback is like the package-level DecodeCallback but decodes in the
// client's format.
func (c *Client) DecodeCallback(input any) (Result, error) {
	return DecodeCallback(input, WithCallbackFormat(c.config.Format))
}

func decodeCallback(c codec, input any) (Result, error) {
	payload, err := callbackPayload(input)
	if err != nil {
		return nil, err
	}
	return decodeEnvelope(c, payload)
}

// callbackPayload returns the raw bytes of a supported callback input.
func callbackPayload(input any) ([]byte, error) {
	var r io.Reader
	switch v := input.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	case *http.Request:
		if v == nil || v.Body == nil {
			return nil, &InvalidInputError{Type: fmt.Sprintf("%T without body", input)}
		}
		r = v.Body
	case BodyReader:
		r = v.Body()
	case io.Reader:
		r = v
	default:
		return nil, &InvalidInputError{Type: fmt.Sprintf("%T", input)}
	}
	if r == nil {
		return nil, &InvalidInputError{Type: fmt.Sprintf("%T without body", input)}
	}

	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("defensio: read callback body: %w", err)
	}
	return payload, nil
}

// CallbackFunc receives a decoded callback result.
type CallbackFunc func(ctx context.Context, result Result) error

// CallbackOption configures a callback handler.
type CallbackOption func(*callbackHandler)

// WithCallbackLogger sets the logger of a callback handler.
func WithCallbackLogger(logger StructuredLogger) CallbackOption {
	return func(h *callbackHandler) {
		h.logger = logger
	}
}

// WithCallbackMaxBytes sets the largest body a callback handler accepts.
func WithCallbackMaxBytes(n int64) CallbackOption {
	return func(h *callbackHandler) {
		if n > 0 {
			h.maxBytes = n
		}
	}
}

// WithCallbackMetrics sets the metrics collector of a callback handler.
func WithCallbackMetrics(metrics Metrics) CallbackOption {
	return func(h *callbackHandler) {
		h.metrics = metrics
	}
}

// WithCallbackFormat sets the format callback bodies are decoded in.
// Unsupported formats are ignored.
func WithCallbackFormat(f Format) CallbackOption {
	return func(h *callbackHandler) {
		if c, ok := codecs[f]; ok {
			h.codec = c
		}
	}
}

// CallbackHandler returns an http.Handler for the endpoint Defensio posts
// asynchronous results to. Bodies are decoded as JSON unless
// WithCallbackFormat says otherwise.
//
// The handler replies 405 to anything but POST, 413 to oversized bodies, 400
// when the body does not decode, 500 when fn fails and 200 otherwise.
//
//	http.Handle("/defensio/callback", defensio.CallbackHandler(
//	    func(ctx context.Context, r defensio.Result) error {
//	        return store.SaveClassification(ctx, r.StringField("signature"), r)
//	    },
//	))
func CallbackHandler(fn CallbackFunc, opts ...CallbackOption) http.Handler {
	return newCallbackHandler(codecs[DefaultFormat], fn, opts)
}

// CallbackHandler is like the package-level CallbackHandler but decodes in
// the client's format and logs to the client's logger by default.
func (c *Client) CallbackHandler(fn CallbackFunc, opts ...CallbackOption) http.Handler {
	base := []CallbackOption{
		WithCallbackLogger(c.config.Logger),
		WithCallbackMetrics(c.config.Metrics),
	}
	return newCallbackHandler(c.codec, fn, append(base, opts...))
}

type callbackHandler struct {
	codec    codec
	fn       CallbackFunc
	logger   StructuredLogger
	metrics  Metrics
	maxBytes int64
}

func newCallbackHandler(c codec, fn CallbackFunc, opts []CallbackOption) *callbackHandler {
	h := &callbackHandler{
		codec:    c,
		fn:       fn,
		logger:   hclog.NewNullLogger(),
		metrics:  nopMetrics{},
		maxBytes: DefaultCallbackMaxBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *callbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.metrics.IncrementCounter(MetricCallbacks, 1)
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	result, err := decodeCallback(h.codec, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.Warn("callback body too large", "limit", tooLarge.Limit)
			http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
			return
		}
		h.metrics.IncrementCounter(MetricDecodeErrors, 1)
		h.logger.Warn("callback rejected", "error", err)
		http.Error(w, "invalid callback payload", http.StatusBadRequest)
		return
	}

	if err := h.fn(r.Context(), result); err != nil {
		h.logger.Error("callback handler failed", "signature", result.StringField("signature"), "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.logger.Debug("callback accepted", "signature", result.StringField("signature"), "status", result.Status())
	w.WriteHeader(http.StatusOK)
}
