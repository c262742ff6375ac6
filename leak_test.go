package defensio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/goleak"
)

// TestMain runs goleak verification for all tests in the package.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("testing.(*T).Run"),
		goleak.IgnoreTopFunction("testing.(*T).Parallel"),
		// Idle keep-alive connections of the default transport.
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

// TestClientCalls_NoLeaks verifies that a request and a callback round do not
// leave goroutines behind once the server and idle connections are closed.
func TestClientCalls_NoLeaks(t *testing.T) {
	before := goleak.IgnoreCurrent()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"defensio-result":{"status":"success"}}`))
	}))

	transport := &http.Transport{}
	client, err := New("leak-key",
		WithBaseURL(server.URL),
		WithHTTPClient(&http.Client{Transport: transport}),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for range 5 {
		if _, _, err := client.GetBasicStats(context.Background()); err != nil {
			t.Fatalf("GetBasicStats() error = %v", err)
		}
	}

	h := client.CallbackHandler(func(context.Context, Result) error { return nil })
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cb", strings.NewReader(`{"defensio-result":{}}`)))

	transport.CloseIdleConnections()
	server.Close()

	goleak.VerifyNone(t, before)
}
