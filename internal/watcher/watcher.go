// Package watcher reloads files on the reval server as they are saved,
// for editors that have no reval integration of their own.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"reval/internal/errors"
	"reval/internal/logging"
	"reval/internal/revalrc"

	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 300 * time.Millisecond

// ChangeFunc is called once per debounced change with the absolute path of
// a regular file.
type ChangeFunc func(ctx context.Context, path string) error

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration
	// Ignore adds base names to skip on top of the built-in list.
	Ignore []string
	Logger *logging.AppLogger
}

// Watcher follows a directory tree and reports saved files.
type Watcher struct {
	root     string
	watcher  *fsnotify.Watcher
	onChange ChangeFunc
	debounce time.Duration
	ignore   map[string]bool
	logger   *logging.AppLogger

	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
}

var defaultIgnore = []string{revalrc.FileName, ".git", ".hg", ".svn", "node_modules", ".DS_Store"}

// New watches root and every directory below it that is not ignored.
func New(root string, onChange ChangeFunc, opts Options) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", root)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.Wrapf(err, "watch %s", abs)
	}
	if !info.IsDir() {
		return nil, errors.Newf("watch %s: not a directory", abs)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.GetDefault()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	ignore := make(map[string]bool, len(defaultIgnore)+len(opts.Ignore))
	for _, name := range defaultIgnore {
		ignore[name] = true
	}
	for _, name := range opts.Ignore {
		ignore[name] = true
	}

	w := &Watcher{
		root:     abs,
		watcher:  fw,
		onChange: onChange,
		debounce: debounce,
		ignore:   ignore,
		logger:   logger.With("component", "watcher"),
		pending:  make(map[string]*time.Timer),
	}

	if _, err := w.addTree(abs); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// Root returns the absolute directory being watched.
func (w *Watcher) Root() string {
	return w.root
}

// Run delivers changes until ctx is cancelled, then waits for in-flight
// callbacks and releases the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.shutdown()

	w.logger.Info("Watching for changes", "root", w.root, "debounce", w.debounce)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if w.ignored(event.Name) {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}

	if info.IsDir() {
		if !event.Has(fsnotify.Create) {
			return
		}
		// Files written before the directory was added produce no events.
		files, err := w.addTree(event.Name)
		if err != nil {
			w.logger.Warn("Cannot watch new directory", "path", event.Name, "error", err)
			return
		}
		for _, f := range files {
			w.schedule(ctx, f)
		}
		return
	}

	if info.Mode().IsRegular() {
		w.logger.Debug("Change detected", "file", event.Name, "op", event.Op.String())
		w.schedule(ctx, event.Name)
	}
}

// schedule debounces per path: each event restarts that path's timer.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		if t.Stop() {
			w.wg.Done()
		}
	}

	w.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()

		// A newer timer may already own the entry.
		w.mu.Lock()
		if w.pending[path] == t {
			delete(w.pending, path)
		}
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
			return
		}
		if err := w.onChange(ctx, path); err != nil {
			w.logger.Debug("Change handler failed", "file", path, "error", err)
		}
	})
	w.pending[path] = t
}

// addTree watches dir and its subdirectories and returns the regular files
// found along the way.
func (w *Watcher) addTree(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if path != dir && w.ignored(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				return errors.Wrapf(err, "watch %s", path)
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func (w *Watcher) ignored(path string) bool {
	base := filepath.Base(path)
	if w.ignore[base] {
		return true
	}
	return isBackupFile(base)
}

func (w *Watcher) shutdown() {
	w.mu.Lock()
	for path, t := range w.pending {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
	w.mu.Unlock()

	w.wg.Wait()
	if err := w.watcher.Close(); err != nil {
		w.logger.Warn("Failed to close watcher", "error", err)
	}
}

// isBackupFile matches swap, backup and lock files editors write beside the
// real one.
func isBackupFile(base string) bool {
	switch {
	case strings.HasSuffix(base, "~"),
		strings.HasSuffix(base, ".swp"),
		strings.HasSuffix(base, ".swo"),
		strings.HasSuffix(base, ".swx"),
		strings.HasSuffix(base, ".tmp"),
		strings.HasPrefix(base, ".#"),
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"),
		base == "4913":
		return true
	}
	return false
}
