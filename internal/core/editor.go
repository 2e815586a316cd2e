package core

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"reval/internal/errors"
	"reval/pkg/fileops"
)

// ActiveEditor is the editor state a command works on: the saved path of
// the active file and its current buffer text.
type ActiveEditor interface {
	// ActivePath returns the absolute path of the active file, or "" when
	// the buffer has never been saved.
	ActivePath() string
	// ActiveText returns the buffer content, which may differ from disk.
	ActiveText() (string, error)
}

// FileEditor is the command-line ActiveEditor: a path plus an optional
// reader that supplies unsaved buffer content.
type FileEditor struct {
	Path string
	// Buffer, when set, is read instead of the file on disk.
	Buffer io.Reader
}

// NewFileEditor expands a leading ~ and makes path absolute. An empty path
// stays empty.
func NewFileEditor(path string, buffer io.Reader) (*FileEditor, error) {
	if path == "" {
		return &FileEditor{Buffer: buffer}, nil
	}
	abs, err := filepath.Abs(fileops.ExpandPath(path))
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", path)
	}
	return &FileEditor{Path: abs, Buffer: buffer}, nil
}

func (e *FileEditor) ActivePath() string {
	return e.Path
}

func (e *FileEditor) ActiveText() (string, error) {
	if e.Buffer != nil {
		b, err := io.ReadAll(e.Buffer)
		if err != nil {
			return "", errors.Wrap(err, "read buffer")
		}
		return string(b), nil
	}
	b, err := os.ReadFile(e.Path)
	if err != nil {
		return "", errors.Wrapf(err, "read %s", e.Path)
	}
	return string(b), nil
}

// StaticEditor is an ActiveEditor with fixed content, used by the LSP and
// MCP surfaces that already hold the buffer text.
type StaticEditor struct {
	Path string
	Text string
}

func (e StaticEditor) ActivePath() string          { return e.Path }
func (e StaticEditor) ActiveText() (string, error) { return e.Text, nil }

// EditFile launches the user's preferred editor for the given file and
// waits for it to exit. Uses $VISUAL, then $EDITOR, or falls back to nano/vi.
func EditFile(ctx context.Context, path string) error {
	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		if _, err := exec.LookPath("nano"); err == nil {
			editor = "nano"
		} else if _, err := exec.LookPath("vi"); err == nil {
			editor = "vi"
		} else {
			return errors.WithHint(errors.Wrap(err, "no editor found"), "Set $EDITOR to your editor command.")
		}
	}
	cmd := exec.CommandContext(ctx, editor, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
