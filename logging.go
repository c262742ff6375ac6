package defensio

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// StructuredLogger provides leveled, key-value logging for the client.
//
// hclog.Logger satisfies it directly:
//
//	client, _ := defensio.New(key,
//	    defensio.WithLogger(hclog.New(&hclog.LoggerOptions{Name: "defensio"})),
//	)
//
// Use NewSlogAdapter for a *slog.Logger.
type StructuredLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

var _ StructuredLogger = hclog.Logger(nil)

// newDebugLogger is installed when Debug is set and no logger is configured.
func newDebugLogger() StructuredLogger {
	return hclog.New(&hclog.LoggerOptions{
		Name:  "defensio",
		Level: hclog.Debug,
	})
}

// SlogAdapter adapts a *slog.Logger to StructuredLogger.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter wraps logger. If logger is nil, slog.Default() is used.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAdapter{logger: logger}
}

func (a *SlogAdapter) Debug(msg string, args ...any) { a.logger.Debug(msg, args...) }
func (a *SlogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *SlogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *SlogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }

// MaskAPIKey masks an API key for safe logging, keeping the last four
// characters.
//
//	MaskAPIKey("0123456789abcdef") => "************cdef"
func MaskAPIKey(key string) string {
	const visible = 4
	if key == "" {
		return ""
	}
	if len(key) <= visible {
		return "****"
	}
	return strings.Repeat("*", len(key)-visible) + key[len(key)-visible:]
}

// maskPath replaces the API key segment of a request path built by
// BuildPath, where the key appears path-escaped.
func maskPath(path, apiKey string) string {
	if apiKey == "" {
		return path
	}
	return strings.Replace(path, "/users/"+url.PathEscape(apiKey), "/users/"+MaskAPIKey(apiKey), 1)
}
