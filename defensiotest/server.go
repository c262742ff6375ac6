package defensiotest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/jdziat/defensio-go"
)

// MockServer is a test HTTP server that records requests for verification.
type MockServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []*RecordedRequest
	format   defensio.Format

	// ResponseFunc allows customizing responses. If nil, returns a success envelope.
	ResponseFunc func(r *http.Request) (int, []byte)
}

// RecordedRequest represents a recorded HTTP request.
type RecordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

// NewMockServer creates a new mock server that answers in JSON.
func NewMockServer() *MockServer {
	return NewMockServerWithFormat(defensio.FormatJSON)
}

// NewMockServerWithFormat creates a new mock server answering in the given format.
func NewMockServerWithFormat(f defensio.Format) *MockServer {
	ms := &MockServer{
		requests: make([]*RecordedRequest, 0),
		format:   f,
	}

	ms.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		ms.mu.Lock()
		ms.requests = append(ms.requests, &RecordedRequest{
			Method:   r.Method,
			Path:     r.URL.EscapedPath(),
			RawQuery: r.URL.RawQuery,
			Header:   r.Header.Clone(),
			Body:     body,
		})
		fn := ms.ResponseFunc
		format := ms.format
		ms.mu.Unlock()

		status := http.StatusOK
		var payload []byte
		if fn != nil {
			status, payload = fn(r)
		} else {
			payload = encodeEnvelope(format, defensio.Result{"status": defensio.StatusSuccess, "message": ""})
		}

		w.Header().Set("Content-Type", mediaType(format))
		w.WriteHeader(status)
		w.Write(payload)
	}))

	return ms
}

func mediaType(f defensio.Format) string {
	if f == defensio.FormatYAML {
		return "application/x-yaml"
	}
	return "application/json"
}

func encodeEnvelope(f defensio.Format, r defensio.Result) []byte {
	payload, err := defensio.EncodeResult(f, r)
	if err != nil {
		return []byte(err.Error())
	}
	return payload
}

// Requests returns all recorded requests.
func (ms *MockServer) Requests() []*RecordedRequest {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return append([]*RecordedRequest{}, ms.requests...)
}

// RequestCount returns the number of recorded requests.
func (ms *MockServer) RequestCount() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.requests)
}

// Reset clears all recorded requests.
func (ms *MockServer) Reset() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.requests = make([]*RecordedRequest, 0)
}

// LastRequest returns the most recent request, or nil if none.
func (ms *MockServer) LastRequest() *RecordedRequest {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if len(ms.requests) == 0 {
		return nil
	}
	return ms.requests[len(ms.requests)-1]
}

// RequestAt returns the request at the given index, or nil if out of bounds.
func (ms *MockServer) RequestAt(index int) *RecordedRequest {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if index < 0 || index >= len(ms.requests) {
		return nil
	}
	return ms.requests[index]
}

// SetResponseFunc sets the response function for customizing responses.
func (ms *MockServer) SetResponseFunc(fn func(r *http.Request) (int, []byte)) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.ResponseFunc = fn
}

// Response scenarios

// RespondWith answers every request with status and result wrapped in the
// defensio-result envelope.
func (ms *MockServer) RespondWith(statusCode int, result defensio.Result) {
	ms.SetResponseFunc(func(*http.Request) (int, []byte) {
		ms.mu.Lock()
		format := ms.format
		ms.mu.Unlock()
		return statusCode, encodeEnvelope(format, result)
	})
}

// RespondRaw answers every request with status and an unmodified body.
func (ms *MockServer) RespondRaw(statusCode int, body string) {
	ms.SetResponseFunc(func(*http.Request) (int, []byte) {
		return statusCode, []byte(body)
	})
}

// RespondWithFailure answers with a well-formed result whose status is fail.
func (ms *MockServer) RespondWithFailure(statusCode int, message string) {
	ms.RespondWith(statusCode, defensio.Result{
		"status":  defensio.StatusFail,
		"message": message,
	})
}

// RespondWithUnauthorized answers with the service's response to an unknown key.
func (ms *MockServer) RespondWithUnauthorized() {
	ms.RespondWithFailure(http.StatusUnauthorized, "API key not valid")
}

// RespondWithServerError answers with a 500 and a body that is not an envelope.
func (ms *MockServer) RespondWithServerError() {
	ms.RespondRaw(http.StatusInternalServerError, "Internal Server Error")
}

// HasRequestWithPath returns true if any request matched the given path.
func (ms *MockServer) HasRequestWithPath(path string) bool {
	return len(ms.RequestsWithPath(path)) > 0
}

// RequestsWithPath returns all requests that matched the given path.
func (ms *MockServer) RequestsWithPath(path string) []*RecordedRequest {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	var matched []*RecordedRequest
	for _, req := range ms.requests {
		if req.Path == path {
			matched = append(matched, req)
		}
	}
	return matched
}

// HasRequestWithParam returns true if any request carried name=value in its
// query string. Value is compared in its escaped form.
func (ms *MockServer) HasRequestWithParam(name, value string) bool {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	want := name + "=" + value
	for _, req := range ms.requests {
		for _, pair := range strings.Split(req.RawQuery, "&") {
			if pair == want {
				return true
			}
		}
	}
	return false
}
