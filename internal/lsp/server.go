// Package lsp exposes the reval commands to editors as a stdio language
// server. Editors attach to it the way they attach to any LSP server and
// invoke the commands through workspace/executeCommand.
package lsp

import (
	"context"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"reval/internal/core"
	"reval/internal/editors"
	"reval/internal/errors"
	"reval/internal/logging"
	"reval/internal/notify"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"
)

const serverName = "reval"

// Options configures the language server.
type Options struct {
	Version string
	Logger  *logging.AppLogger
	// ReloadOnSave reloads every saved document. Clients can also enable it
	// with the reval.reloadOnSave initialization option.
	ReloadOnSave bool
}

// Server tracks open documents and runs reval commands against them.
type Server struct {
	plugin  *core.Plugin
	logger  *logging.AppLogger
	version string

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.RWMutex
	documents    map[string]string
	notifyClient glsp.NotifyFunc
	reloadOnSave bool
}

// New builds a server with its own plugin. Command outcomes are shown in
// the client with window/showMessage and mirrored to the log.
func New(pluginOpts core.Options, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetDefault()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		logger:       logger.With("component", "lsp"),
		version:      opts.Version,
		ctx:          ctx,
		cancel:       cancel,
		documents:    make(map[string]string),
		reloadOnSave: opts.ReloadOnSave,
	}
	pluginOpts.Notifier = notify.Multi{s, notify.Logged{Logger: s.logger}}
	if pluginOpts.Logger == nil {
		pluginOpts.Logger = logger
	}
	s.plugin = core.New(pluginOpts)
	return s
}

// Handler returns the protocol handler table.
func (s *Server) Handler() *protocol.Handler {
	return &protocol.Handler{
		Initialize:              s.Initialize,
		Initialized:             s.Initialized,
		Shutdown:                s.Shutdown,
		TextDocumentDidOpen:     s.TextDocumentDidOpen,
		TextDocumentDidChange:   s.TextDocumentDidChange,
		TextDocumentDidClose:    s.TextDocumentDidClose,
		TextDocumentDidSave:     s.TextDocumentDidSave,
		WorkspaceExecuteCommand: s.WorkspaceExecuteCommand,
	}
}

// RunStdio serves the protocol on stdin/stdout until the client exits.
func (s *Server) RunStdio() error {
	srv := glspserver.NewServer(s.Handler(), serverName, false)
	s.logger.Info("Serving LSP over stdio")
	return srv.RunStdio()
}

func (s *Server) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.setNotify(ctx)
	if enabled, ok := reloadOnSaveOption(params.InitializationOptions); ok {
		s.mu.Lock()
		s.reloadOnSave = enabled
		s.mu.Unlock()
	}
	s.plugin.Start()

	client := ""
	if params.ClientInfo != nil {
		client = params.ClientInfo.Name
	}
	s.logger.Info("LSP client initializing", "client", client, "reloadOnSave", s.ReloadOnSave())

	openClose := true
	syncKind := protocol.TextDocumentSyncKindFull
	capabilities := protocol.ServerCapabilities{
		TextDocumentSync: &protocol.TextDocumentSyncOptions{
			OpenClose: &openClose,
			Change:    &syncKind,
			Save:      true,
		},
		ExecuteCommandProvider: &protocol.ExecuteCommandOptions{
			Commands: editors.IDs(),
		},
	}

	result := protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name: serverName,
		},
	}
	if s.version != "" {
		v := s.version
		result.ServerInfo.Version = &v
	}
	return result, nil
}

func (s *Server) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	s.setNotify(ctx)
	return nil
}

func (s *Server) Shutdown(ctx *glsp.Context) error {
	s.logger.Info("LSP client shutting down")
	s.cancel()
	s.plugin.Stop()
	return nil
}

func (s *Server) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.mu.Lock()
	s.documents[string(params.TextDocument.URI)] = params.TextDocument.Text
	s.mu.Unlock()
	return nil
}

func (s *Server) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, change := range params.ContentChanges {
		if whole, ok := change.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.documents[uri] = whole.Text
		}
	}
	return nil
}

func (s *Server) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.mu.Lock()
	delete(s.documents, string(params.TextDocument.URI))
	s.mu.Unlock()
	return nil
}

func (s *Server) TextDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	s.setNotify(ctx)
	uri := string(params.TextDocument.URI)
	if params.Text != nil {
		s.mu.Lock()
		s.documents[uri] = *params.Text
		s.mu.Unlock()
	}
	if !s.ReloadOnSave() {
		return nil
	}
	if err := s.plugin.ReloadCurrentFile(s.ctx, s.editorFor(uri)); err != nil {
		s.logger.Debug("Reload on save failed", "uri", uri, "error", err)
	}
	return nil
}

// WorkspaceExecuteCommand runs a reval command. The first argument is the
// document URI; without it the command reports that no file is active.
// Command failures are shown to the user and not returned as errors.
func (s *Server) WorkspaceExecuteCommand(ctx *glsp.Context, params *protocol.ExecuteCommandParams) (any, error) {
	s.setNotify(ctx)
	if _, ok := editors.Lookup(params.Command); !ok {
		return nil, errors.Wrapf(errors.ErrUnknownCommand, "%s", params.Command)
	}

	uri := ""
	if len(params.Arguments) > 0 {
		uri = uriArgument(params.Arguments[0])
	}

	if err := s.plugin.Execute(s.ctx, params.Command, s.editorFor(uri)); err != nil {
		if errors.Is(err, errors.ErrStopped) {
			return nil, err
		}
		s.logger.Debug("Command failed", "command", params.Command, "uri", uri, "error", err)
	}
	return nil, nil
}

// Success implements notify.Notifier.
func (s *Server) Success(title string) {
	s.show(protocol.MessageTypeInfo, notify.Notification{Title: title})
}

// Warning implements notify.Notifier.
func (s *Server) Warning(title, detail string) {
	s.show(protocol.MessageTypeWarning, notify.Notification{Title: title, Detail: detail})
}

func (s *Server) show(kind protocol.MessageType, n notify.Notification) {
	s.mu.RLock()
	send := s.notifyClient
	s.mu.RUnlock()
	if send == nil {
		return
	}
	send(protocol.ServerWindowShowMessage, protocol.ShowMessageParams{
		Type:    kind,
		Message: n.String(),
	})
}

func (s *Server) ReloadOnSave() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reloadOnSave
}

// Documents returns the URIs of the open documents, sorted.
func (s *Server) Documents() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uris := make([]string, 0, len(s.documents))
	for uri := range s.documents {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

func (s *Server) setNotify(ctx *glsp.Context) {
	if ctx == nil || ctx.Notify == nil {
		return
	}
	s.mu.Lock()
	s.notifyClient = ctx.Notify
	s.mu.Unlock()
}

// editorFor prefers the open buffer over the file on disk.
func (s *Server) editorFor(uri string) core.ActiveEditor {
	path := uriToPath(uri)
	if path == "" {
		return core.StaticEditor{}
	}
	s.mu.RLock()
	text, open := s.documents[uri]
	s.mu.RUnlock()
	if open {
		return core.StaticEditor{Path: path, Text: text}
	}
	return &core.FileEditor{Path: path}
}

func uriArgument(arg any) string {
	switch v := arg.(type) {
	case string:
		return v
	case map[string]any:
		if uri, ok := v["uri"].(string); ok {
			return uri
		}
	}
	return ""
}

// uriToPath converts a file URI to a local path. Non-file URIs such as
// untitled: buffers have no path.
func uriToPath(uri string) string {
	if uri == "" {
		return ""
	}
	if !strings.Contains(uri, "://") && !strings.HasPrefix(uri, "untitled:") {
		return filepath.Clean(uri)
	}
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return ""
	}
	return filepath.FromSlash(u.Path)
}

func reloadOnSaveOption(opts any) (bool, bool) {
	m, ok := opts.(map[string]any)
	if !ok {
		return false, false
	}
	if nested, ok := m["reval"].(map[string]any); ok {
		m = nested
	}
	v, ok := m["reloadOnSave"].(bool)
	return v, ok
}
