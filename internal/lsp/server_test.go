package lsp

import (
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
	"reval/internal/editors"
	"reval/internal/errors"
	"reval/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

type hit struct {
	uri  string
	body string
}

type fixture struct {
	server  *Server
	ctx     *glsp.Context
	file    string
	uri     string
	mu      sync.Mutex
	hits    []hit
	message []protocol.ShowMessageParams
}

func newFixture(t *testing.T, addr string) *fixture {
	t.Helper()
	f := &fixture{}

	if addr == "" {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			f.mu.Lock()
			f.hits = append(f.hits, hit{uri: r.RequestURI, body: string(body)})
			f.mu.Unlock()
		}))
		t.Cleanup(srv.Close)
		addr = srv.Listener.Addr().String()
	}

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".revalrc"), []byte(addr), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	f.file = filepath.Join(dir, "src", "app.js")
	require.NoError(t, os.WriteFile(f.file, []byte("on disk"), 0o644))
	f.uri = "file://" + filepath.ToSlash(f.file)

	logger, _ := logging.NewTestLogger()
	f.server = New(core.Options{Logger: logger}, Options{Logger: logger, Version: "test"})
	f.ctx = &glsp.Context{Notify: func(method string, params any) {
		if method != protocol.ServerWindowShowMessage {
			return
		}
		f.mu.Lock()
		f.message = append(f.message, params.(protocol.ShowMessageParams))
		f.mu.Unlock()
	}}
	return f
}

func (f *fixture) initialize(t *testing.T, options any) protocol.InitializeResult {
	t.Helper()
	res, err := f.server.Initialize(f.ctx, &protocol.InitializeParams{InitializationOptions: options})
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.server.Shutdown(f.ctx) })
	return res.(protocol.InitializeResult)
}

func (f *fixture) execute(t *testing.T, command string, args ...any) {
	t.Helper()
	_, err := f.server.WorkspaceExecuteCommand(f.ctx, &protocol.ExecuteCommandParams{Command: command, Arguments: args})
	require.NoError(t, err)
}

func (f *fixture) snapshot() ([]hit, []protocol.ShowMessageParams) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]hit(nil), f.hits...), append([]protocol.ShowMessageParams(nil), f.message...)
}

func TestInitialize_AdvertisesCommands(t *testing.T) {
	f := newFixture(t, "")
	res := f.initialize(t, nil)

	require.NotNil(t, res.Capabilities.ExecuteCommandProvider)
	assert.ElementsMatch(t, editors.IDs(), res.Capabilities.ExecuteCommandProvider.Commands)
	require.NotNil(t, res.ServerInfo)
	assert.Equal(t, "reval", res.ServerInfo.Name)
	require.NotNil(t, res.ServerInfo.Version)
	assert.Equal(t, "test", *res.ServerInfo.Version)
	assert.False(t, f.server.ReloadOnSave())
}

func TestExecuteCommand_SendsOpenBufferText(t *testing.T) {
	f := newFixture(t, "")
	f.initialize(t, nil)

	require.NoError(t, f.server.TextDocumentDidOpen(f.ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: protocol.DocumentUri(f.uri), Text: "opened"},
	}))
	require.NoError(t, f.server.TextDocumentDidChange(f.ctx, &protocol.DidChangeTextDocumentParams{
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: "edited, unsaved"}},
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: protocol.DocumentUri(f.uri)},
		},
	}))

	f.execute(t, editors.ReloadCurrentFile, f.uri)

	hits, msgs := f.snapshot()
	require.Len(t, hits, 1)
	assert.Equal(t, "/reval/reload?filePath=src/app.js", hits[0].uri)
	assert.Equal(t, "edited, unsaved", hits[0].body)
	require.Len(t, msgs, 1)
	assert.Equal(t, protocol.MessageTypeInfo, msgs[0].Type)
	assert.Equal(t, "Patch Applied", msgs[0].Message)
}

func TestExecuteCommand_ClosedDocumentReadsDisk(t *testing.T) {
	f := newFixture(t, "")
	f.initialize(t, nil)

	f.execute(t, editors.ReloadCurrentFile, map[string]any{"uri": f.uri})

	hits, _ := f.snapshot()
	require.Len(t, hits, 1)
	assert.Equal(t, "on disk", hits[0].body)
}

func TestExecuteCommand_NoArgumentWarns(t *testing.T) {
	f := newFixture(t, "")
	f.initialize(t, nil)

	f.execute(t, editors.ClearAllFiles)

	hits, msgs := f.snapshot()
	assert.Empty(t, hits)
	require.Len(t, msgs, 1)
	assert.Equal(t, protocol.MessageTypeWarning, msgs[0].Type)
	assert.Equal(t, "Reval Error: No File Path\nPlease save the file before using reval.", msgs[0].Message)
}

func TestExecuteCommand_TransportErrorWarns(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	f := newFixture(t, addr)
	f.initialize(t, nil)

	f.execute(t, editors.ClearCurrentFile, f.uri)

	_, msgs := f.snapshot()
	require.Len(t, msgs, 1)
	assert.Equal(t, protocol.MessageTypeWarning, msgs[0].Type)
	assert.True(t, strings.HasPrefix(msgs[0].Message, "Reval Error: ECONNREFUSED\nError: ECONNREFUSED\nAddress: 127.0.0.1\nPort: "))
}

func TestExecuteCommand_Unknown(t *testing.T) {
	f := newFixture(t, "")
	f.initialize(t, nil)

	_, err := f.server.WorkspaceExecuteCommand(f.ctx, &protocol.ExecuteCommandParams{Command: "reval:nope"})
	assert.True(t, errors.Is(err, errors.ErrUnknownCommand))
}

func TestDidSave_ReloadOnSaveOption(t *testing.T) {
	f := newFixture(t, "")
	f.initialize(t, map[string]any{"reval": map[string]any{"reloadOnSave": true}})
	assert.True(t, f.server.ReloadOnSave())

	saved := "saved text"
	require.NoError(t, f.server.TextDocumentDidSave(f.ctx, &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentUri(f.uri)},
		Text:         &saved,
	}))

	hits, _ := f.snapshot()
	require.Len(t, hits, 1)
	assert.Equal(t, "saved text", hits[0].body)
}

func TestDidSave_DisabledByDefault(t *testing.T) {
	f := newFixture(t, "")
	f.initialize(t, nil)

	require.NoError(t, f.server.TextDocumentDidSave(f.ctx, &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentUri(f.uri)},
	}))

	hits, _ := f.snapshot()
	assert.Empty(t, hits)
}

func TestDidClose_ForgetsDocument(t *testing.T) {
	f := newFixture(t, "")
	f.initialize(t, nil)

	item := protocol.TextDocumentItem{URI: protocol.DocumentUri(f.uri), Text: "x"}
	require.NoError(t, f.server.TextDocumentDidOpen(f.ctx, &protocol.DidOpenTextDocumentParams{TextDocument: item}))
	assert.Equal(t, []string{f.uri}, f.server.Documents())

	require.NoError(t, f.server.TextDocumentDidClose(f.ctx, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentUri(f.uri)},
	}))
	assert.Empty(t, f.server.Documents())
}

func TestShutdown_StopsCommands(t *testing.T) {
	f := newFixture(t, "")
	f.initialize(t, nil)
	require.NoError(t, f.server.Shutdown(f.ctx))

	_, err := f.server.WorkspaceExecuteCommand(f.ctx, &protocol.ExecuteCommandParams{
		Command: editors.ClearAllFiles, Arguments: []any{f.uri},
	})
	assert.True(t, errors.Is(err, errors.ErrStopped))
}

func TestURIToPath(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"file:///home/me/app.js", "/home/me/app.js"},
		{"file:///home/me/my%20app.js", "/home/me/my app.js"},
		{"untitled:Untitled-1", ""},
		{"https://example.com/x.js", ""},
		{"/plain/path.js", "/plain/path.js"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, uriToPath(tt.uri), tt.uri)
	}
}
