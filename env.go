package defensio

import (
	"fmt"
	"os"
)

// Environment variable names for configuration.
const (
	// EnvAPIKey is the environment variable for the API key.
	EnvAPIKey = "DEFENSIO_KEY"
	// EnvHost is the environment variable for the API host.
	EnvHost = "DEFENSIO_HOST"
	// EnvFormat is the environment variable for the serialization format.
	EnvFormat = "DEFENSIO_FORMAT"
	// EnvClientID is the environment variable for the client label.
	EnvClientID = "DEFENSIO_CLIENT"
	// EnvDebug is the environment variable to enable debug mode.
	EnvDebug = "DEFENSIO_DEBUG"
)

// NewFromEnv creates a client from DEFENSIO_KEY and, optionally,
// DEFENSIO_HOST, DEFENSIO_FORMAT, DEFENSIO_CLIENT and DEFENSIO_DEBUG.
// Explicit options override the environment.
//
//	client, err := defensio.NewFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
func NewFromEnv(opts ...ConfigOption) (*Client, error) {
	apiKey := os.Getenv(EnvAPIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("defensio: %s environment variable is required", EnvAPIKey)
	}

	envOpts := make([]ConfigOption, 0, 4)
	if host := os.Getenv(EnvHost); host != "" {
		envOpts = append(envOpts, WithBaseURL(host))
	}
	if name := os.Getenv(EnvFormat); name != "" {
		format, err := ParseFormat(name)
		if err != nil {
			return nil, fmt.Errorf("defensio: %s: %w", EnvFormat, err)
		}
		envOpts = append(envOpts, WithFormat(format))
	}
	if clientID := os.Getenv(EnvClientID); clientID != "" {
		envOpts = append(envOpts, WithClientID(clientID))
	}
	if debug := os.Getenv(EnvDebug); debug == "true" || debug == "1" {
		envOpts = append(envOpts, WithDebug(true))
	}

	return New(apiKey, append(envOpts, opts...)...)
}
