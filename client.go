package defensio

import (
	"context"
	"net/http"
	"strings"
)

// Client is a Defensio API client.
//
// A Client is immutable after construction and safe for concurrent use as
// long as its Doer is.
type Client struct {
	config *Config
	codec  codec
	http   *httpClient
}

// New creates a new Defensio client with the given API key and options.
//
//	client, err := defensio.New("your-api-key",
//	    defensio.WithFormat(defensio.FormatYAML),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
func New(apiKey string, opts ...ConfigOption) (*Client, error) {
	cfg := &Config{
		APIKey: apiKey,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return NewWithConfig(cfg)
}

// NewWithConfig creates a new client from a Config struct. The config is
// copied; later changes to cfg do not affect the client.
func NewWithConfig(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	cfgCopy := *cfg
	cfgCopy.HTTPHooks = append([]HTTPHook(nil), cfg.HTTPHooks...)

	cfgCopy.applyDefaults()

	if err := cfgCopy.validate(); err != nil {
		return nil, err
	}

	c, err := codecFor(cfgCopy.Format)
	if err != nil {
		return nil, err
	}

	return &Client{
		config: &cfgCopy,
		codec:  c,
		http:   newHTTPClient(&cfgCopy, c),
	}, nil
}

// APIKey returns the API key the client was built with.
func (c *Client) APIKey() string { return c.config.APIKey }

// ClientID returns the identifier sent with new documents.
func (c *Client) ClientID() string { return c.config.ClientID }

// Format returns the serialization format used for every request.
func (c *Client) Format() Format { return c.config.Format }

// Path returns the request path of a resource for this client.
//
//	client.Path("", "")                       // /2.0/users/<key>.json
//	client.Path(defensio.ActionDocuments, "") // /2.0/users/<key>/documents.json
func (c *Client) Path(action, id string) string {
	return BuildPath(c.config.APIVersion, c.config.APIKey, action, id, string(c.config.Format))
}

// GetUser returns information about the API key's account.
func (c *Client) GetUser(ctx context.Context) (int, Result, error) {
	return c.call(ctx, http.MethodGet, "", "", nil, decodeEnvelope)
}

// PostDocument submits a document for classification.
//
// The client identifier is sent as the "client" parameter unless params
// already holds a key named "client", in which case the caller's value is
// sent.
func (c *Client) PostDocument(ctx context.Context, params Params) (int, Result, error) {
	data := params.Merge(Params{Symbol("client"): c.config.ClientID})
	return c.call(ctx, http.MethodPost, ActionDocuments, "", data, decodeEnvelope)
}

// GetDocument returns the current status of a document.
func (c *Client) GetDocument(ctx context.Context, signature string) (int, Result, error) {
	if err := validateSignature(signature); err != nil {
		return 0, nil, err
	}
	return c.call(ctx, http.MethodGet, ActionDocuments, signature, nil, decodeEnvelope)
}

// PutDocument updates a document, typically to report a false positive or
// negative with params such as {Symbol("allow"): true}.
func (c *Client) PutDocument(ctx context.Context, signature string, params Params) (int, Result, error) {
	if err := validateSignature(signature); err != nil {
		return 0, nil, err
	}
	return c.call(ctx, http.MethodPut, ActionDocuments, signature, params, decodeEnvelope)
}

// GetBasicStats returns aggregate statistics for the account.
func (c *Client) GetBasicStats(ctx context.Context) (int, Result, error) {
	return c.call(ctx, http.MethodGet, ActionBasicStats, "", nil, decodeEnvelope)
}

// GetExtendedStats returns daily statistics. The "date" field of each entry
// in "data" is returned as a Date.
//
//	status, stats, err := client.GetExtendedStats(ctx,
//	    defensio.ExtendedStatsRange(defensio.NewDate(2009, 9, 1), defensio.NewDate(2009, 9, 3)))
func (c *Client) GetExtendedStats(ctx context.Context, params Params) (int, Result, error) {
	return c.call(ctx, http.MethodGet, ActionExtendedStats, "", params, decodeExtendedStats)
}

// PostProfanityFilter filters each field of params against the account's
// dictionary.
func (c *Client) PostProfanityFilter(ctx context.Context, params Params) (int, Result, error) {
	return c.call(ctx, http.MethodPost, ActionProfanityFilter, "", params, decodeEnvelope)
}

// call performs a request and decodes the response body.
//
// A well-formed body is returned with its status code whatever the code is.
// An undecodable body on a non-2xx response becomes an *APIError wrapping
// the *DecodeError.
func (c *Client) call(ctx context.Context, method, action, id string, params Params, decode decodeFunc) (int, Result, error) {
	resp, err := c.http.do(ctx, &request{
		method: method,
		path:   c.Path(action, id),
		params: params,
	})
	if err != nil {
		return 0, nil, err
	}

	result, err := decode(c.codec, resp.body)
	if err != nil {
		c.config.Metrics.IncrementCounter(MetricDecodeErrors, 1)
		if resp.status < 200 || resp.status >= 300 {
			return resp.status, nil, &APIError{
				StatusCode: resp.status,
				Body:       resp.body,
				RequestID:  resp.requestID,
				Err:        err,
			}
		}
		return resp.status, nil, err
	}
	return resp.status, result, nil
}

func validateSignature(signature string) error {
	if strings.TrimSpace(signature) == "" {
		return &ValidationError{
			Field:   "signature",
			Message: "signature cannot be empty",
		}
	}
	return nil
}
