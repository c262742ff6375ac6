package defensio

import (
	"context"
	"net/http"
	"time"
)

// HTTPHook allows customizing HTTP request/response handling.
//
//	client, _ := defensio.New(key,
//	    defensio.WithHTTPHooks(
//	        defensio.HeaderHook("X-Integrator", "acme"),
//	        defensio.LoggingHook(logger),
//	    ),
//	)
type HTTPHook interface {
	// BeforeRequest is called before sending the request. It may modify the
	// request; a non-nil error aborts the call.
	BeforeRequest(ctx context.Context, req *http.Request) error

	// AfterResponse is called after the transport returns, even on error.
	AfterResponse(ctx context.Context, req *http.Request, resp *http.Response, duration time.Duration, err error)
}

// HTTPHookFunc builds an HTTPHook from functions. Either may be nil.
type HTTPHookFunc struct {
	Before func(ctx context.Context, req *http.Request) error
	After  func(ctx context.Context, req *http.Request, resp *http.Response, duration time.Duration, err error)
}

// BeforeRequest implements HTTPHook.
func (f HTTPHookFunc) BeforeRequest(ctx context.Context, req *http.Request) error {
	if f.Before != nil {
		return f.Before(ctx, req)
	}
	return nil
}

// AfterResponse implements HTTPHook.
func (f HTTPHookFunc) AfterResponse(ctx context.Context, req *http.Request, resp *http.Response, duration time.Duration, err error) {
	if f.After != nil {
		f.After(ctx, req, resp, duration, err)
	}
}

// hookChain runs BeforeRequest in order and AfterResponse in reverse order.
type hookChain struct {
	hooks []HTTPHook
}

func (c *hookChain) BeforeRequest(ctx context.Context, req *http.Request) error {
	for _, hook := range c.hooks {
		if err := hook.BeforeRequest(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

func (c *hookChain) AfterResponse(ctx context.Context, req *http.Request, resp *http.Response, duration time.Duration, err error) {
	for i := len(c.hooks) - 1; i >= 0; i-- {
		c.hooks[i].AfterResponse(ctx, req, resp, duration, err)
	}
}

// combineHooks returns nil for no hooks and the hook itself for one.
func combineHooks(hooks []HTTPHook) HTTPHook {
	switch len(hooks) {
	case 0:
		return nil
	case 1:
		return hooks[0]
	default:
		return &hookChain{hooks: hooks}
	}
}

// HeaderHook sets a fixed header on every request.
func HeaderHook(key, value string) HTTPHook {
	return HTTPHookFunc{
		Before: func(_ context.Context, req *http.Request) error {
			req.Header.Set(key, value)
			return nil
		},
	}
}

// LoggingHook logs every response at info level and transport failures at
// error level. The API key segment of the path is masked.
func LoggingHook(logger StructuredLogger) HTTPHook {
	return HTTPHookFunc{
		After: func(ctx context.Context, req *http.Request, resp *http.Response, duration time.Duration, err error) {
			path := logPath(ctx, req)
			if err != nil {
				logger.Error("request failed", "method", req.Method, "path", path, "duration", duration, "error", err)
				return
			}
			logger.Info("request completed", "method", req.Method, "path", path, "status", resp.StatusCode, "duration", duration)
		},
	}
}

type logPathKey struct{}

// withLogPath records the masked request path for hooks.
func withLogPath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, logPathKey{}, path)
}

func logPath(ctx context.Context, req *http.Request) string {
	if path, ok := ctx.Value(logPathKey{}).(string); ok {
		return path
	}
	return req.URL.Path
}
