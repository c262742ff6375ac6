package defensio

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
)

// Version is the library version sent in the User-Agent header.
const Version = "1.0.0"

// Default configuration values.
const (
	// DefaultBaseURL is the production API host.
	DefaultBaseURL = "http://api.defensio.com"

	// DefaultAPIVersion is the API version segment of every path.
	DefaultAPIVersion = "2.0"

	// DefaultTimeout bounds every request made with the default transport.
	DefaultTimeout = 30 * time.Second

	// MaxTimeout is the maximum allowed request timeout.
	MaxTimeout = 5 * time.Minute

	// DefaultUserAgent identifies the library to the service.
	DefaultUserAgent = "Defensio-Go " + Version

	// DefaultClientID is sent as the "client" parameter of new documents.
	DefaultClientID = "Defensio-Go | " + Version + " | defensio-go"
)

// Config holds the configuration for the Defensio client.
type Config struct {
	// APIKey is the Defensio API key (required).
	APIKey string

	// ClientID is the free-form label sent with every new document.
	// Defaults to DefaultClientID.
	ClientID string

	// BaseURL is the API host. Defaults to DefaultBaseURL.
	BaseURL string

	// APIVersion is the version path segment. Defaults to DefaultAPIVersion.
	APIVersion string

	// Format is the serialization format. Defaults to DefaultFormat.
	Format Format

	// HTTPClient performs requests. If nil, an *http.Client with Timeout is
	// used.
	HTTPClient Doer

	// Timeout is the request timeout of the default HTTP client.
	// Defaults to 30 seconds.
	Timeout time.Duration

	// UserAgent overrides the User-Agent header.
	UserAgent string

	// Debug enables debug logging to stderr when Logger is nil.
	Debug bool

	// Logger receives structured client logs. If nil, logs are discarded
	// unless Debug is set.
	Logger StructuredLogger

	// Metrics receives client telemetry. If nil, nothing is recorded.
	Metrics Metrics

	// HTTPHooks are called around each HTTP request.
	HTTPHooks []HTTPHook
}

// String returns a representation of the config with the API key masked.
func (c *Config) String() string {
	return fmt.Sprintf("Config{APIKey: %q, BaseURL: %q, APIVersion: %q, Format: %q, ClientID: %q}",
		MaskAPIKey(c.APIKey),
		c.BaseURL,
		c.APIVersion,
		c.Format,
		c.ClientID,
	)
}

// applyDefaults sets default values for unset configuration options.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")

	if c.APIVersion == "" {
		c.APIVersion = DefaultAPIVersion
	}

	if c.Format == "" {
		c.Format = DefaultFormat
	}

	if c.ClientID == "" {
		c.ClientID = DefaultClientID
	}

	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}

	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}

	if c.Logger == nil {
		if c.Debug {
			c.Logger = newDebugLogger()
		} else {
			c.Logger = hclog.NewNullLogger()
		}
	}

	if c.Metrics == nil {
		c.Metrics = nopMetrics{}
	}

	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
}

// validate checks that the configuration is valid, reporting every problem
// found rather than only the first.
func (c *Config) validate() error {
	var result *multierror.Error

	if c.APIKey == "" {
		result = multierror.Append(result, ErrMissingAPIKey)
	}

	if c.BaseURL == "" {
		result = multierror.Append(result, ErrMissingBaseURL)
	} else if u, err := url.Parse(c.BaseURL); err != nil {
		result = multierror.Append(result, fmt.Errorf("defensio: invalid base URL: %w", err))
	} else if u.Scheme == "" || u.Host == "" {
		result = multierror.Append(result, fmt.Errorf("defensio: base URL %q must include scheme and host", c.BaseURL))
	}

	if strings.TrimSpace(c.APIVersion) == "" {
		result = multierror.Append(result, errors.New("defensio: API version cannot be blank"))
	}

	if !c.Format.Supported() {
		result = multierror.Append(result, &FormatError{Format: string(c.Format)})
	}

	if c.Timeout < 0 {
		result = multierror.Append(result, errors.New("defensio: timeout cannot be negative"))
	}
	if c.Timeout > MaxTimeout {
		result = multierror.Append(result, fmt.Errorf("defensio: timeout cannot exceed %v", MaxTimeout))
	}

	if result == nil {
		return nil
	}
	result.ErrorFormat = formatConfigErrors
	return result
}

func formatConfigErrors(errs []error) string {
	if len(errs) == 1 {
		return errs[0].Error()
	}
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("defensio: %d configuration errors: %s", len(errs), strings.Join(msgs, "; "))
}
