package defensio

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

type countingMetrics struct {
	mu        sync.Mutex
	counters  map[string]int64
	durations map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{counters: map[string]int64{}, durations: map[string]int{}}
}

func (m *countingMetrics) IncrementCounter(name string, value int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] += value
}

func (m *countingMetrics) RecordDuration(name string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations[name]++
}

func TestRequestHeaders(t *testing.T) {
	tests := []struct {
		name      string
		opts      []ConfigOption
		userAgent string
		accept    string
	}{
		{"defaults", nil, "Defensio-Go " + Version, "application/json"},
		{"yaml", []ConfigOption{WithFormat(FormatYAML)}, "Defensio-Go " + Version, "application/x-yaml"},
		{"custom user agent", []ConfigOption{WithUserAgent("acme/1.0")}, "acme/1.0", "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, http.StatusOK, `{"defensio-result":{}}`)
			client := newServerClient(t, ts, tt.opts...)

			if _, _, err := client.GetUser(context.Background()); err != nil {
				t.Fatalf("GetUser() error = %v", err)
			}

			h := ts.last(t).Header
			if got := h.Get("User-Agent"); got != tt.userAgent {
				t.Errorf("User-Agent = %q, want %q", got, tt.userAgent)
			}
			if got := h.Get("Accept"); got != tt.accept {
				t.Errorf("Accept = %q, want %q", got, tt.accept)
			}
			if _, err := uuid.Parse(h.Get("X-Request-ID")); err != nil {
				t.Errorf("X-Request-ID = %q is not a UUID: %v", h.Get("X-Request-ID"), err)
			}
		})
	}
}

func TestRequestIDsAreUnique(t *testing.T) {
	ts := newTestServer(t, http.StatusOK, `{"defensio-result":{}}`)
	client := newServerClient(t, ts)

	for range 3 {
		if _, _, err := client.GetUser(context.Background()); err != nil {
			t.Fatalf("GetUser() error = %v", err)
		}
	}

	seen := map[string]bool{}
	for _, r := range ts.requests {
		id := r.Header.Get("X-Request-ID")
		if seen[id] {
			t.Errorf("duplicate request id %s", id)
		}
		seen[id] = true
	}
}

func TestRequestMetrics(t *testing.T) {
	metrics := newCountingMetrics()

	ok := newTestServer(t, http.StatusOK, `{"defensio-result":{}}`)
	client := newServerClient(t, ok, WithMetrics(metrics))
	if _, _, err := client.GetUser(context.Background()); err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}

	bad := newTestServer(t, http.StatusInternalServerError, `oops`)
	client = newServerClient(t, bad, WithMetrics(metrics))
	if _, _, err := client.GetUser(context.Background()); err == nil {
		t.Fatal("GetUser() error = nil, want error")
	}

	if got := metrics.counters[MetricRequests]; got != 2 {
		t.Errorf("%s = %d, want 2", MetricRequests, got)
	}
	if got := metrics.counters[MetricRequestErrors]; got != 1 {
		t.Errorf("%s = %d, want 1", MetricRequestErrors, got)
	}
	if got := metrics.counters[MetricDecodeErrors]; got != 1 {
		t.Errorf("%s = %d, want 1", MetricDecodeErrors, got)
	}
	if got := metrics.durations[MetricRequestDuration]; got != 2 {
		t.Errorf("%s recorded %d times, want 2", MetricRequestDuration, got)
	}
}

func TestRequestDebugLogging(t *testing.T) {
	ts := newTestServer(t, http.StatusOK, `{"defensio-result":{}}`)
	logger := &recordingLogger{}
	client := newServerClient(t, ts, WithLogger(logger))

	if _, _, err := client.GetDocument(context.Background(), "sig-1"); err != nil {
		t.Fatalf("GetDocument() error = %v", err)
	}

	out := logger.joined()
	if !strings.Contains(out, "DEBUG request completed") {
		t.Errorf("log = %q, want debug line", out)
	}
	if strings.Contains(out, testAPIKey) {
		t.Errorf("log leaks API key: %q", out)
	}
}

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func TestCustomDoer(t *testing.T) {
	var gotURL string
	doer := doerFunc(func(req *http.Request) (*http.Response, error) {
		gotURL = req.URL.String()
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       http.NoBody,
		}, nil
	})

	client, err := New("k", WithHTTPClient(doer), WithBaseURL("http://api.example.test"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, _, err = client.GetExtendedStats(context.Background(), Params{})
	if _, ok := AsDecodeError(err); !ok {
		t.Errorf("error = %v, want *DecodeError for empty body", err)
	}
	if want := "http://api.example.test/2.0/users/k/extended-stats.json"; gotURL != want {
		t.Errorf("URL = %s, want %s", gotURL, want)
	}
}

func TestUnsupportedParamNotSent(t *testing.T) {
	doer := doerFunc(func(*http.Request) (*http.Response, error) {
		t.Error("request should not be sent")
		return nil, errors.New("unreachable")
	})
	client, err := New("k", WithHTTPClient(doer))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	status, _, err := client.PostProfanityFilter(context.Background(), Params{
		Literal("fields"): []string{"a", "b"},
	})
	if !errors.Is(err, ErrUnsupportedParam) {
		t.Errorf("error = %v, want ErrUnsupportedParam", err)
	}
	if status != 0 {
		t.Errorf("status = %d, want 0", status)
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"abc", "****"},
		{"0123456789abcdef", "************cdef"},
	}
	for _, tt := range tests {
		if got := MaskAPIKey(tt.in); got != tt.want {
			t.Errorf("MaskAPIKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if got, want := maskPath("/2.0/users/secretkey1/documents.json", "secretkey1"), "/2.0/users/******key1/documents.json"; got != want {
		t.Errorf("maskPath() = %q, want %q", got, want)
	}
}

func TestMaskPathEscapedKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"plain", "0123456789abcdef"},
		{"space and slash", "secret key/with space"},
		{"percent", "100%secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := BuildPath(DefaultAPIVersion, tt.key, ActionDocuments, "", "json")
			got := maskPath(path, tt.key)

			want := "/" + DefaultAPIVersion + "/users/" + MaskAPIKey(tt.key) + "/documents.json"
			if got != want {
				t.Errorf("maskPath(%q) = %q, want %q", path, got, want)
			}
		})
	}
}

func TestRequestDebugLoggingEscapedKey(t *testing.T) {
	const key = "secret key/with space"
	var gotPath string
	doer := doerFunc(func(req *http.Request) (*http.Response, error) {
		gotPath = req.URL.EscapedPath()
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"defensio-result":{}}`)),
		}, nil
	})

	logger := &recordingLogger{}
	client, err := New(key, WithHTTPClient(doer), WithLogger(logger))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, _, err := client.GetUser(context.Background()); err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}

	if gotPath != "/2.0/users/secret%20key%2Fwith%20space.json" {
		t.Errorf("request path = %q", gotPath)
	}
	out := logger.joined()
	for _, leak := range []string{key, "secret%20key", "with%20space"} {
		if strings.Contains(out, leak) {
			t.Errorf("log leaks %q: %q", leak, out)
		}
	}
	if !strings.Contains(out, "/users/"+MaskAPIKey(key)+".json") {
		t.Errorf("log = %q, want masked path", out)
	}
}
