package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/defensio-go"
	"github.com/jdziat/defensio-go/defensiotest"
)

const testKey = "cli-test-key"

func newTestCommand(t *testing.T) (*Command, *cli.MockUi) {
	t.Helper()
	for _, name := range []string{"DEFENSIO_KEY", "DEFENSIO_HOST", "DEFENSIO_FORMAT", "DEFENSIO_CLIENT", "DEFENSIO_DEBUG"} {
		t.Setenv(name, "")
	}
	ui := cli.NewMockUi()
	return &Command{Log: hclog.NewNullLogger(), UI: ui, Stdin: strings.NewReader("")}, ui
}

// emptyConfig keeps tests independent of any .defensio.yaml above the
// working directory.
func emptyConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".defensio.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o600))
	return path
}

func connFlags(t *testing.T, server *defensiotest.MockServer, extra ...string) []string {
	return append([]string{"-config", emptyConfig(t), "-key", testKey, "-host", server.URL}, extra...)
}

func decodeOutput(t *testing.T, ui *cli.MockUi) output {
	t.Helper()
	var out output
	require.NoError(t, json.Unmarshal([]byte(ui.OutputWriter.String()), &out), ui.OutputWriter.String())
	return out
}

func TestCommandsRegistered(t *testing.T) {
	base, _ := newTestCommand(t)
	commands := Commands(base)

	for _, name := range []string{
		"user", "post-document", "get-document", "put-document", "basic-stats",
		"extended-stats", "filter", "decode-callback", "serve-callbacks", "version",
	} {
		factory, ok := commands[name]
		require.True(t, ok, "missing command %s", name)
		cmd, err := factory()
		require.NoError(t, err)
		assert.NotEmpty(t, cmd.Synopsis(), name)
		assert.True(t, strings.HasPrefix(cmd.Help(), "Usage: defensio "+name), name)
	}
}

func TestUserCommand(t *testing.T) {
	base, ui := newTestCommand(t)
	server := defensiotest.NewMockServer()
	defer server.Close()
	server.RespondWith(http.StatusOK, defensio.Result{"status": "success", "owner-url": "http://example.org"})

	code := newUserCommand(base).Run(connFlags(t, server))
	require.Equal(t, 0, code, ui.ErrorWriter.String())

	out := decodeOutput(t, ui)
	assert.Equal(t, http.StatusOK, out.Status)
	assert.Equal(t, "http://example.org", out.Result["owner-url"])
	assert.Equal(t, "/2.0/users/"+testKey+".json", server.LastRequest().Path)
}

func TestPostDocumentCommand(t *testing.T) {
	base, ui := newTestCommand(t)
	server := defensiotest.NewMockServer()
	defer server.Close()
	server.RespondWith(http.StatusOK, defensio.Result{"status": "success", "signature": "abc", "allow": true})

	code := newPostDocumentCommand(base).Run(connFlags(t, server,
		"-client", "Acme | 1.0 | ops@example.org",
		"-param", "content=hello world",
		"-param", "type=comment",
		"-param", "platform=cli",
	))
	require.Equal(t, 0, code, ui.ErrorWriter.String())

	req := server.LastRequest()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/2.0/users/"+testKey+"/documents.json", req.Path)
	assert.True(t, server.HasRequestWithParam("content", "hello%20world"), req.RawQuery)
	assert.True(t, server.HasRequestWithParam("type", "comment"), req.RawQuery)
	assert.True(t, server.HasRequestWithParam("client", "Acme%20%7C%201.0%20%7C%20ops%40example.org"), req.RawQuery)

	assert.Equal(t, "abc", decodeOutput(t, ui).Result["signature"])
}

func TestPutDocumentFailStatus(t *testing.T) {
	base, ui := newTestCommand(t)
	server := defensiotest.NewMockServer()
	defer server.Close()
	server.RespondWithFailure(http.StatusNotFound, "document not found")

	code := newPutDocumentCommand(base).Run(connFlags(t, server, "-param", "allow=false", "sig-1"))
	assert.Equal(t, 1, code)

	req := server.LastRequest()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/2.0/users/"+testKey+"/documents/sig-1.json", req.Path)
	assert.Equal(t, "allow=false", req.RawQuery)

	out := decodeOutput(t, ui)
	assert.Equal(t, http.StatusNotFound, out.Status)
	assert.Equal(t, "document not found", out.Result["message"])
}

func TestGetDocumentRequiresSignature(t *testing.T) {
	base, ui := newTestCommand(t)
	server := defensiotest.NewMockServer()
	defer server.Close()

	code := newGetDocumentCommand(base).Run(connFlags(t, server))
	assert.Equal(t, cli.RunResultHelp, code)
	assert.Contains(t, ui.ErrorWriter.String(), "signature")
	assert.Zero(t, server.RequestCount())
}

func TestMissingAPIKey(t *testing.T) {
	base, ui := newTestCommand(t)

	code := newBasicStatsCommand(base).Run([]string{"-config", emptyConfig(t)})
	assert.Equal(t, 1, code)
	assert.Contains(t, ui.ErrorWriter.String(), "API key is required")
}

func TestInvalidParamFlag(t *testing.T) {
	base, ui := newTestCommand(t)

	code := newFilterCommand(base).Run([]string{"-param", "novalue"})
	assert.Equal(t, 1, code)
	assert.Contains(t, ui.ErrorWriter.String(), "key=value")
}

func TestConfigFileKey(t *testing.T) {
	base, ui := newTestCommand(t)
	server := defensiotest.NewMockServer()
	defer server.Close()

	path := filepath.Join(t.TempDir(), ".defensio.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_key: file-key\nhost: "+server.URL+"\nformat: yaml\n"), 0o600))

	code := newBasicStatsCommand(base).Run([]string{"-config", path})
	require.Equal(t, 0, code, ui.ErrorWriter.String())

	require.NotNil(t, server.LastRequest())
	assert.Equal(t, "/2.0/users/file-key/basic-stats.yaml", server.LastRequest().Path)
}

func TestExtendedStatsCommand(t *testing.T) {
	base, ui := newTestCommand(t)
	server := defensiotest.NewMockServer()
	defer server.Close()
	server.RespondWith(http.StatusOK, defensio.Result{
		"status": "success",
		"data": []any{
			map[string]any{"date": "2009-09-01", "legitimate": 3, "unwanted": 1},
		},
	})

	cmd := &ExtendedStatsCommand{Command: base}
	code := cmd.Run(connFlags(t, server, "-from", "2009-09-01", "-to", "2009-09-03"))
	require.Equal(t, 0, code, ui.ErrorWriter.String())

	assert.Equal(t, "from=2009-09-01&to=2009-09-03", server.LastRequest().RawQuery)
	assert.Contains(t, ui.OutputWriter.String(), `"date": "2009-09-01"`)
}

func TestExtendedStatsCommandValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"missing range", nil, cli.RunResultHelp},
		{"bad date", []string{"-from", "09/01/2009", "-to", "2009-09-03"}, 1},
		{"reversed", []string{"-from", "2009-09-03", "-to", "2009-09-01"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, _ := newTestCommand(t)
			cmd := &ExtendedStatsCommand{Command: base}
			assert.Equal(t, tt.code, cmd.Run(tt.args))
		})
	}
}

func TestDecodeCallbackCommand(t *testing.T) {
	t.Run("stdin json", func(t *testing.T) {
		base, ui := newTestCommand(t)
		base.Stdin = strings.NewReader(`{"defensio-result":{"status":"success","signature":"s1"}}`)

		code := (&DecodeCallbackCommand{Command: base}).Run(nil)
		require.Equal(t, 0, code, ui.ErrorWriter.String())
		assert.Contains(t, ui.OutputWriter.String(), `"signature": "s1"`)
	})

	t.Run("yaml file", func(t *testing.T) {
		base, ui := newTestCommand(t)
		path := filepath.Join(t.TempDir(), "body.yaml")
		require.NoError(t, os.WriteFile(path, []byte("defensio-result:\n  status: success\n  signature: s2\n"), 0o600))

		code := (&DecodeCallbackCommand{Command: base}).Run([]string{"-format", "yaml", path})
		require.Equal(t, 0, code, ui.ErrorWriter.String())
		assert.Contains(t, ui.OutputWriter.String(), `"signature": "s2"`)
	})

	t.Run("missing envelope", func(t *testing.T) {
		base, ui := newTestCommand(t)
		base.Stdin = strings.NewReader(`{"status":"success"}`)

		assert.Equal(t, 1, (&DecodeCallbackCommand{Command: base}).Run(nil))
		assert.Contains(t, ui.ErrorWriter.String(), "defensio-result")
	})
}

func TestCallbackRouter(t *testing.T) {
	ui := cli.NewMockUi()
	handler := defensio.CallbackHandler(printResult(ui))
	router := newCallbackRouter(hclog.NewNullLogger(), "/defensio/callback", handler)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/defensio/callback",
		strings.NewReader(`{"defensio-result":{"status":"success","signature":"abc"}}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, ui.OutputWriter.String(), `"signature":"abc"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/defensio/callback", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/elsewhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, ln, newCallbackRouter(hclog.NewNullLogger(), "/cb", http.NotFoundHandler()))
	}()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	assert.NoError(t, <-done)
}

func TestParamList(t *testing.T) {
	var p paramList
	assert.Nil(t, p.Params())

	require.NoError(t, p.Set("content=a=b"))
	require.NoError(t, p.Set("type=comment"))
	require.NoError(t, p.Set("content=again"))
	assert.Error(t, p.Set("=x"))

	params := p.Params()
	assert.Len(t, params, 2)
	v, ok := params.Lookup("content")
	assert.True(t, ok)
	assert.Equal(t, "again", v)
	assert.Equal(t, "content=again,type=comment", p.String())
}

func TestVersionCommand(t *testing.T) {
	base, ui := newTestCommand(t)
	assert.Equal(t, 0, (&VersionCommand{Command: base}).Run(nil))
	assert.Contains(t, ui.OutputWriter.String(), defensio.Version)
}

func TestDebugFlagScopedToClientLogger(t *testing.T) {
	base, ui := newTestCommand(t)
	var logs bytes.Buffer
	base.Log = newLogger(&logs)

	server := defensiotest.NewMockServer()
	defer server.Close()

	code := newUserCommand(base).Run(connFlags(t, server, "-debug"))
	require.Equal(t, 0, code, ui.ErrorWriter.String())

	assert.Contains(t, logs.String(), "request completed")
	assert.False(t, base.Log.IsDebug(), "-debug raised the root logger level")

	base.Log.Debug("root debug line")
	assert.NotContains(t, logs.String(), "root debug line")
}
