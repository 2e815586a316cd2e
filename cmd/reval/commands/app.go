// Package commands implements the reval command line.
package commands

import (
	"context"
	"io"
	"os"

	"reval/internal/config"
	"reval/internal/core"
	"reval/internal/dispatch"
	"reval/internal/errors"
	"reval/internal/logging"
	"reval/internal/notify"
	"reval/internal/vcs"
	"reval/pkg/fileops"

	"github.com/spf13/cobra"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	version  string
	settings *config.Config
	logger   *logging.AppLogger

	// settingsPath is where settings were read from, or would be.
	settingsPath string
}

type appKey struct{}

// notifiedError marks a failure the user already saw as a notification.
type notifiedError struct {
	err error
}

func (e *notifiedError) Error() string { return e.err.Error() }
func (e *notifiedError) Unwrap() error { return e.err }

// IsNotified reports whether err was already shown to the user.
func IsNotified(err error) bool {
	var n *notifiedError
	return errors.As(err, &n)
}

func notified(err error) error {
	if err == nil {
		return nil
	}
	return &notifiedError{err: err}
}

func newApp(version string, debug bool, configPath string, stderr io.Writer) (*app, error) {
	opts := logging.Options{Debug: debug}
	if !debug {
		opts.Output = stderr
	}
	logger := logging.NewAppLoggerWithOptions(opts)
	logging.SetDefault(logger)

	var (
		settings     *config.Config
		settingsPath = config.ConfigPath()
		err          error
	)
	if configPath != "" {
		settingsPath = fileops.ExpandPath(configPath)
		if _, statErr := os.Stat(settingsPath); statErr == nil {
			settings, err = config.LoadFrom(settingsPath)
		} else {
			// A missing file is fine: config --init may be about to create it.
			settings = defaultSettings()
		}
	} else {
		settings, err = config.Load()
	}
	if err != nil {
		return nil, errors.WithHint(err, "Fix or remove the reval settings file.")
	}

	return &app{version: version, settings: settings, logger: logger, settingsPath: settingsPath}, nil
}

// envDebug mirrors logging.NewAppLogger: any DEBUG value enables debug logs.
func envDebug() bool {
	return os.Getenv("DEBUG") != ""
}

func withApp(ctx context.Context, a *app) context.Context {
	return context.WithValue(ctx, appKey{}, a)
}

func appFrom(cmd *cobra.Command) *app {
	if a, ok := cmd.Context().Value(appKey{}).(*app); ok {
		return a
	}
	return &app{settings: defaultSettings(), logger: logging.GetDefault()}
}

func defaultSettings() *config.Config {
	cfg := config.DefaultConfig()
	return &cfg
}

// pluginOptions builds the core options from the user settings. The
// notifier is left for the caller.
func (a *app) pluginOptions() core.Options {
	return core.Options{
		Dispatcher: dispatch.New(
			dispatch.WithLogger(a.logger),
			dispatch.WithTimeout(a.settings.Dispatch.Timeout.Std()),
		),
		Logger:       a.logger,
		Parallel:     !a.settings.SerializeRequests(),
		ChangedFiles: vcs.ChangedFiles,
	}
}

// terminalPlugin returns a started plugin that prints notifications to out.
func (a *app) terminalPlugin(out io.Writer) *core.Plugin {
	opts := a.pluginOptions()
	plain := !a.settings.ColorEnabled() || !notify.ColorSupported(out)
	opts.Notifier = notify.Multi{notify.NewTerminal(out, plain), notify.Logged{Logger: a.logger}}
	p := core.New(opts)
	p.Start()
	return p
}
