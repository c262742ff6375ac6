package defensiotest

import (
	"github.com/jdziat/defensio-go"
)

// TestingT is an interface that matches *testing.T and *testing.B.
type TestingT interface {
	Fatalf(format string, args ...any)
	Cleanup(func())
	Helper()
}

// TestAPIKey is the default test API key.
const TestAPIKey = "0123456789abcdef0123456789abcdef"

// NewTestClient creates a client pointed at a fresh MockServer.
// The server is closed when the test ends.
func NewTestClient(t TestingT) (*defensio.Client, *MockServer) {
	t.Helper()
	return NewTestClientWithConfig(t)
}

// NewTestClientWithConfig creates a client with custom configuration for testing.
// The mock server URL is applied first, then the provided options on top. The
// server answers in the format the options select.
func NewTestClientWithConfig(t TestingT, opts ...defensio.ConfigOption) (*defensio.Client, *MockServer) {
	t.Helper()

	server := NewMockServer()

	allOpts := append([]defensio.ConfigOption{defensio.WithBaseURL(server.URL)}, opts...)

	client, err := defensio.New(TestAPIKey, allOpts...)
	if err != nil {
		server.Close()
		t.Fatalf("Failed to create test client: %v", err)
		return nil, nil
	}

	server.mu.Lock()
	server.format = client.Format()
	server.mu.Unlock()

	t.Cleanup(server.Close)

	return client, server
}
