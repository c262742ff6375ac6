// Package defensiotest provides testing utilities for applications using the defensio-go client.
//
// This package provides mock implementations and test helpers that make it easy to
// test code that uses the Defensio client without making real API calls.
//
// # Mock Server
//
// Use MockServer to script responses and inspect HTTP requests:
//
//	server := defensiotest.NewMockServer()
//	defer server.Close()
//	server.RespondWith(200, defensio.Result{"status": "success", "allow": true})
//
//	client, _ := defensio.New("key", defensio.WithBaseURL(server.URL))
//	// ... use client ...
//
//	req := server.LastRequest()
//	// assert on req.Path and req.RawQuery
//
// # Test Client
//
// Use NewTestClient for a pre-configured client with a mock server:
//
//	func TestModeration(t *testing.T) {
//	    client, server := defensiotest.NewTestClient(t)
//
//	    status, result, _ := client.PostDocument(ctx, params)
//	    // ...
//
//	    if !server.HasRequestWithParam("type", "comment") {
//	        t.Error("expected type=comment")
//	    }
//	}
//
// # Mock Metrics and Logger
//
// MockMetrics and MockLogger implement defensio.Metrics and
// defensio.StructuredLogger and record every call.
package defensiotest
