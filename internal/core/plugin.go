// Package core wires the reval commands together: resolve the active file's
// .revalrc, build the request, dispatch it and notify the user.
package core

import (
	"context"
	"sync"

	"reval/internal/dispatch"
	"reval/internal/editors"
	"reval/internal/errors"
	"reval/internal/logging"
	"reval/internal/notify"
	"reval/internal/revalrc"
)

const (
	noFilePathTitle  = "Reval Error: No File Path"
	noFilePathDetail = "Please save the file before using reval."
)

// ErrReloadsFailed is returned by ReloadChanged when some reloads failed.
// Each failure has already been notified.
var ErrReloadsFailed = errors.New("reloads failed")

// Dispatcher sends one request. *dispatch.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, target dispatch.Target, body []byte) (*dispatch.Result, error)
}

// Options configures a Plugin. Zero values get defaults; the zero Parallel
// serializes requests.
type Options struct {
	Resolver   *revalrc.Resolver
	Dispatcher Dispatcher
	Notifier   notify.Notifier
	Logger     *logging.AppLogger

	// Parallel lets concurrent commands dispatch at the same time. When
	// false a lock is held across each dispatch so responses arrive in
	// command order.
	Parallel bool

	// ChangedFiles lists files to reload for ReloadChanged.
	ChangedFiles func(dir string) ([]string, error)
}

// Plugin owns the command subscriptions for one editor session.
type Plugin struct {
	resolver     *revalrc.Resolver
	dispatcher   Dispatcher
	notifier     notify.Notifier
	logger       *logging.AppLogger
	parallel     bool
	changedFiles func(dir string) ([]string, error)

	registry *Registry

	stateMu       sync.Mutex
	subscriptions *CompositeDisposable

	requestMu sync.Mutex
}

func New(opts Options) *Plugin {
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetDefault()
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = revalrc.NewResolver(logger)
	}
	dp := opts.Dispatcher
	if dp == nil {
		dp = dispatch.New(dispatch.WithLogger(logger))
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Logged{Logger: logger}
	}

	return &Plugin{
		resolver:     resolver,
		dispatcher:   dp,
		notifier:     notifier,
		logger:       logger,
		parallel:     opts.Parallel,
		changedFiles: opts.ChangedFiles,
		registry:     NewRegistry(),
	}
}

// Start registers the editor commands. Calling Start on a started plugin
// is a no-op.
func (p *Plugin) Start() {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	if p.subscriptions != nil {
		return
	}

	subs := &CompositeDisposable{}
	for _, cmd := range editors.GetAllCommands() {
		subs.Add(p.registry.Add(cmd.ID, p.handlerFor(cmd)))
	}
	p.subscriptions = subs
	p.logger.LogStateTransition("Plugin", "stopped", "started")
}

// Stop releases every subscription made by Start.
func (p *Plugin) Stop() {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	if p.subscriptions == nil {
		return
	}
	p.subscriptions.Dispose()
	p.subscriptions = nil
	p.logger.LogStateTransition("Plugin", "started", "stopped")
}

// Started reports whether the commands are registered.
func (p *Plugin) Started() bool {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	return p.subscriptions != nil
}

// Commands returns the ids currently registered.
func (p *Plugin) Commands() []string {
	return p.registry.IDs()
}

// Resolve exposes the project configuration for path.
func (p *Plugin) Resolve(path string) revalrc.ProjectConfig {
	return p.resolver.Resolve(path)
}

// Execute runs the command id against editor.
func (p *Plugin) Execute(ctx context.Context, id string, editor ActiveEditor) error {
	if !p.Started() {
		return errors.Wrapf(errors.ErrStopped, "execute %s", id)
	}
	return p.registry.Run(ctx, id, editor)
}

func (p *Plugin) ReloadCurrentFile(ctx context.Context, editor ActiveEditor) error {
	return p.Execute(ctx, editors.ReloadCurrentFile, editor)
}

func (p *Plugin) ClearCurrentFile(ctx context.Context, editor ActiveEditor) error {
	return p.Execute(ctx, editors.ClearCurrentFile, editor)
}

func (p *Plugin) ClearAllFiles(ctx context.Context, editor ActiveEditor) error {
	return p.Execute(ctx, editors.ClearAllFiles, editor)
}

// ReloadChanged reloads every file ChangedFiles reports under dir.
func (p *Plugin) ReloadChanged(ctx context.Context, dir string) (int, error) {
	if p.changedFiles == nil {
		return 0, errors.New("changed-file listing is not configured")
	}
	files, err := p.changedFiles(dir)
	if err != nil {
		return 0, errors.Wrapf(err, "list changed files in %s", dir)
	}

	failed := 0
	for _, f := range files {
		if ctx.Err() != nil {
			return len(files) - failed, ctx.Err()
		}
		if err := p.ReloadCurrentFile(ctx, &FileEditor{Path: f}); err != nil {
			failed++
		}
	}
	if failed > 0 {
		return len(files) - failed, errors.Wrapf(ErrReloadsFailed, "%d of %d", failed, len(files))
	}
	return len(files), nil
}

func (p *Plugin) handlerFor(cmd editors.Command) Handler {
	return func(ctx context.Context, editor ActiveEditor) error {
		path := editor.ActivePath()
		if path == "" {
			p.notifier.Warning(noFilePathTitle, noFilePathDetail)
			return errors.WithHint(errors.Wrap(errors.ErrNoActiveFile, cmd.ID), noFilePathDetail)
		}

		cfg := p.resolver.Resolve(path)

		var text string
		if cmd.NeedsBufferText() {
			var err error
			text, err = editor.ActiveText()
			if err != nil {
				p.notifier.Warning("Reval Error: Cannot Read Buffer", err.Error())
				return err
			}
		}

		target, body, err := cmd.Request(cfg, text)
		if err != nil {
			p.notifier.Warning("Reval Error", err.Error())
			return err
		}

		if !p.parallel {
			p.requestMu.Lock()
			defer p.requestMu.Unlock()
		}

		p.logger.Debug("Running command", "command", cmd.ID, "file", cfg.RelativePath, "server", cfg.Address())
		if _, err := p.dispatcher.Dispatch(ctx, target, body); err != nil {
			if terr, ok := dispatch.IsTransportError(err); ok {
				p.notifier.Warning("Reval Error: "+terr.Code, terr.Detail())
			} else {
				p.notifier.Warning("Reval Error", err.Error())
			}
			return err
		}

		p.notifier.Success(cmd.SuccessMessage)
		return nil
	}
}
