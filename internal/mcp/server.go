package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"reval/internal/core"
	"reval/internal/editors"
	"reval/internal/errors"
	"reval/internal/logging"
	"reval/internal/notify"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	ToolReloadFile    = "reval_reload_file"
	ToolClearFile     = "reval_clear_file"
	ToolClearAll      = "reval_clear_all"
	ToolResolveConfig = "reval_resolve_config"
)

// Server represents an MCP server instance using mcp-go
type Server struct {
	plugin    *core.Plugin
	logger    *logging.AppLogger
	version   string
	mcpServer *server.MCPServer

	// callMu serializes tool calls so each call collects only its own
	// notifications.
	callMu  sync.Mutex
	mu      sync.Mutex
	current *notify.Recorder
}

// NewServer creates a new MCP server instance with its own plugin.
func NewServer(pluginOpts core.Options, version string, logger *logging.AppLogger) *Server {
	if logger == nil {
		logger = logging.GetDefault()
	}
	s := &Server{
		logger:  logger.With("component", "mcp"),
		version: version,
	}
	pluginOpts.Notifier = notify.Multi{s, notify.Logged{Logger: s.logger}}
	if pluginOpts.Logger == nil {
		pluginOpts.Logger = logger
	}
	s.plugin = core.New(pluginOpts)
	s.mcpServer = s.build()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// Start registers the reval commands and serves MCP on stdio until EOF.
func (s *Server) Start() error {
	s.plugin.Start()
	defer s.plugin.Stop()

	s.logger.Info("MCP server created, starting stdio communication")
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return errors.Wrap(err, "MCP server failed")
	}
	return nil
}

func (s *Server) build() *server.MCPServer {
	ms := server.NewMCPServer("reval", s.version, server.WithToolCapabilities(true))

	ms.AddTool(mcp.NewTool(ToolReloadFile,
		mcp.WithDescription("Send a file to the reval server so the running app picks up the change without a restart."),
		mcp.WithString("file_path", mcp.Required(), mcp.Description("Absolute path of the file to reload")),
		mcp.WithString("content", mcp.Description("File content to send instead of the content on disk")),
	), s.handleReload)

	ms.AddTool(mcp.NewTool(ToolClearFile,
		mcp.WithDescription("Remove the reval patch for one file, restoring the original code."),
		mcp.WithString("file_path", mcp.Required(), mcp.Description("Absolute path of the patched file")),
	), s.commandHandler(editors.ClearCurrentFile))

	ms.AddTool(mcp.NewTool(ToolClearAll,
		mcp.WithDescription("Remove every reval patch on the server that serves the given file's project."),
		mcp.WithString("file_path", mcp.Required(), mcp.Description("Any file inside the project")),
	), s.commandHandler(editors.ClearAllFiles))

	ms.AddTool(mcp.NewTool(ToolResolveConfig,
		mcp.WithDescription("Show the reval server address and project-relative path for a file."),
		mcp.WithString("file_path", mcp.Required(), mcp.Description("Absolute path of the file")),
	), s.handleResolve)

	return ms
}

func (s *Server) handleReload(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("file_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	editor, err := core.NewFileEditor(path, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var active core.ActiveEditor = editor
	if content := request.GetString("content", ""); content != "" {
		active = core.StaticEditor{Path: editor.Path, Text: content}
	}
	return s.run(ctx, editors.ReloadCurrentFile, active), nil
}

func (s *Server) commandHandler(id string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := request.RequireString("file_path")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		editor, err := core.NewFileEditor(path, nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return s.run(ctx, id, editor), nil
	}
}

type resolvedConfig struct {
	Found        bool   `json:"found"`
	ConfigPath   string `json:"config_path,omitempty"`
	Root         string `json:"root,omitempty"`
	Host         string `json:"host"`
	Port         int    `json:"port"`
	PathPrefix   string `json:"path_prefix"`
	RelativePath string `json:"relative_path"`
	BaseURL      string `json:"base_url"`
}

func (s *Server) handleResolve(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("file_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	editor, err := core.NewFileEditor(path, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	cfg := s.plugin.Resolve(editor.Path)
	out, err := json.MarshalIndent(resolvedConfig{
		Found:        cfg.Found(),
		ConfigPath:   cfg.ConfigPath,
		Root:         cfg.Root,
		Host:         cfg.Host,
		Port:         cfg.Port,
		PathPrefix:   cfg.PathPrefix,
		RelativePath: cfg.RelativePath,
		BaseURL:      cfg.BaseURL(),
	}, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encode config")
	}
	return mcp.NewToolResultText(string(out)), nil
}

// run executes one command and turns its notifications into the result.
func (s *Server) run(ctx context.Context, id string, editor core.ActiveEditor) *mcp.CallToolResult {
	s.callMu.Lock()
	defer s.callMu.Unlock()

	rec := notify.NewRecorder()
	s.mu.Lock()
	s.current = rec
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.current = nil
		s.mu.Unlock()
	}()

	err := s.plugin.Execute(ctx, id, editor)

	var lines []string
	for _, n := range rec.All() {
		lines = append(lines, n.String())
	}
	if err != nil && len(lines) == 0 {
		lines = append(lines, errors.UserMessage(err))
	}
	text := strings.Join(lines, "\n")

	if err != nil || rec.Count(notify.LevelWarning) > 0 {
		s.logger.Debug("Tool call failed", "command", id, "error", err)
		return mcp.NewToolResultError(text)
	}
	return mcp.NewToolResultText(text)
}

// Success implements notify.Notifier for the call in progress.
func (s *Server) Success(title string) {
	if rec := s.recorder(); rec != nil {
		rec.Success(title)
	}
}

// Warning implements notify.Notifier for the call in progress.
func (s *Server) Warning(title, detail string) {
	if rec := s.recorder(); rec != nil {
		rec.Warning(title, detail)
	}
}

func (s *Server) recorder() *notify.Recorder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}
