package mcp

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"reval/internal/core"
	"reval/internal/logging"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	uri  string
	body string
}

// createTestServer starts a fake reval server and a project whose .revalrc
// points at it. It returns the MCP server, the path of src/app.js and a
// function listing the requests received.
func createTestServer(t *testing.T, addr string) (*Server, string, func() []recorded) {
	t.Helper()
	var mu sync.Mutex
	var reqs []recorded

	if addr == "" {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			mu.Lock()
			reqs = append(reqs, recorded{uri: r.RequestURI, body: string(body)})
			mu.Unlock()
			w.WriteHeader(http.StatusInternalServerError)
		}))
		t.Cleanup(srv.Close)
		addr = srv.Listener.Addr().String()
	}

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".revalrc"), []byte(addr+"/svc"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	file := filepath.Join(dir, "src", "app.js")
	require.NoError(t, os.WriteFile(file, []byte("disk content"), 0o644))

	logger, _ := logging.NewTestLogger()
	s := NewServer(core.Options{Logger: logger}, "test", logger)
	s.plugin.Start()
	t.Cleanup(s.plugin.Stop)

	return s, file, func() []recorded {
		mu.Lock()
		defer mu.Unlock()
		return append([]recorded(nil), reqs...)
	}
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func TestNewServer(t *testing.T) {
	logger, _ := logging.NewTestLogger()
	s := NewServer(core.Options{}, "1.2.3", logger)

	require.NotNil(t, s)
	assert.NotNil(t, s.MCPServer())
	assert.NotNil(t, s.plugin)
	assert.False(t, s.plugin.Started(), "commands register on Start")
}

func TestReloadFile_DiskContent(t *testing.T) {
	s, file, requests := createTestServer(t, "")

	res, err := s.handleReload(context.Background(), callRequest(map[string]any{"file_path": file}))
	require.NoError(t, err)

	assert.False(t, res.IsError)
	assert.Equal(t, "Patch Applied", resultText(t, res))

	reqs := requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/svc/reval/reload?filePath=src/app.js", reqs[0].uri)
	assert.Equal(t, "disk content", reqs[0].body)
}

func TestReloadFile_ContentOverride(t *testing.T) {
	s, file, requests := createTestServer(t, "")

	res, err := s.handleReload(context.Background(), callRequest(map[string]any{
		"file_path": file,
		"content":   "from assistant",
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	reqs := requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "from assistant", reqs[0].body)
}

func TestReloadFile_MissingPath(t *testing.T) {
	s, _, requests := createTestServer(t, "")

	res, err := s.handleReload(context.Background(), callRequest(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Empty(t, requests())
}

func TestClearTools(t *testing.T) {
	s, file, requests := createTestServer(t, "")

	res, err := s.commandHandler("reval:clear-current-file")(context.Background(), callRequest(map[string]any{"file_path": file}))
	require.NoError(t, err)
	assert.Equal(t, "Patch Cleared", resultText(t, res))

	res, err = s.commandHandler("reval:clear-all-files")(context.Background(), callRequest(map[string]any{"file_path": file}))
	require.NoError(t, err)
	assert.Equal(t, "All Patches Cleared", resultText(t, res))

	reqs := requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/svc/reval/clear", reqs[0].uri)
	assert.JSONEq(t, `["src/app.js"]`, reqs[0].body)
	assert.Equal(t, "/svc/reval/clear", reqs[1].uri)
	assert.Empty(t, reqs[1].body)
}

func TestTransportErrorIsToolError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	s, file, _ := createTestServer(t, addr)

	res, err := s.commandHandler("reval:clear-all-files")(context.Background(), callRequest(map[string]any{"file_path": file}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.True(t, strings.HasPrefix(resultText(t, res), "Reval Error: ECONNREFUSED\nError: ECONNREFUSED"))
}

func TestResolveConfig(t *testing.T) {
	s, file, requests := createTestServer(t, "")

	res, err := s.handleResolve(context.Background(), callRequest(map[string]any{"file_path": file}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var got resolvedConfig
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	assert.True(t, got.Found)
	assert.Equal(t, "127.0.0.1", got.Host)
	assert.Equal(t, "/svc", got.PathPrefix)
	assert.Equal(t, "src/app.js", got.RelativePath)
	assert.Equal(t, filepath.Dir(filepath.Dir(file)), got.Root)
	assert.Empty(t, requests(), "resolving sends nothing")
}
