// Package notify delivers the user-visible outcome of reval commands.
//
// Editors show these as popups; the CLI prints them; the MCP server hands
// them back as tool results. Every surface implements Notifier.
package notify

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"reval/internal/logging"
	"reval/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Notifier receives the outcome of a command.
type Notifier interface {
	Success(title string)
	Warning(title, detail string)
}

// Level classifies a recorded notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
)

// Notification is one delivered message.
type Notification struct {
	Level  Level
	Title  string
	Detail string
}

func (n Notification) String() string {
	if n.Detail == "" {
		return n.Title
	}
	return n.Title + "\n" + n.Detail
}

// Terminal prints notifications to a writer, styled unless Plain is set.
type Terminal struct {
	mu    sync.Mutex
	out   io.Writer
	plain bool
}

// ColorSupported reports whether out is a terminal that renders colors and
// NO_COLOR is unset.
func ColorSupported(out io.Writer) bool {
	if termenv.EnvNoColor() {
		return false
	}
	return termenv.NewOutput(out).ColorProfile() != termenv.Ascii
}

// NewTerminal creates a terminal notifier. plain disables colors.
func NewTerminal(out io.Writer, plain bool) *Terminal {
	return &Terminal{out: out, plain: plain}
}

func (t *Terminal) Success(title string) {
	t.write(styles.SuccessStyle, "✓ "+title, "")
}

func (t *Terminal) Warning(title, detail string) {
	t.write(styles.WarningStyle, "! "+title, detail)
}

func (t *Terminal) write(style lipgloss.Style, title, detail string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.plain {
		fmt.Fprintln(t.out, title)
		if detail != "" {
			for _, line := range strings.Split(detail, "\n") {
				fmt.Fprintln(t.out, "  "+line)
			}
		}
		return
	}

	fmt.Fprintln(t.out, style.Render(title))
	if detail != "" {
		fmt.Fprintln(t.out, styles.DetailStyle.Render(detail))
	}
}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu            sync.Mutex
	notifications []Notification
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Success(title string) {
	r.add(Notification{Level: LevelSuccess, Title: title})
}

func (r *Recorder) Warning(title, detail string) {
	r.add(Notification{Level: LevelWarning, Title: title, Detail: detail})
}

func (r *Recorder) add(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
}

// All returns a copy of everything recorded so far.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notifications...)
}

// Count returns how many notifications of level were recorded.
func (r *Recorder) Count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.notifications {
		if rec.Level == level {
			n++
		}
	}
	return n
}

// Multi fans out to several notifiers in order.
type Multi []Notifier

func (m Multi) Success(title string) {
	for _, n := range m {
		n.Success(title)
	}
}

func (m Multi) Warning(title, detail string) {
	for _, n := range m {
		n.Warning(title, detail)
	}
}

// Logged mirrors notifications into the application log.
type Logged struct {
	Logger *logging.AppLogger
}

func (l Logged) Success(title string) {
	l.Logger.Info("Notification", "level", LevelSuccess, "title", title)
}

func (l Logged) Warning(title, detail string) {
	l.Logger.Warn("Notification", "level", LevelWarning, "title", title, "detail", detail)
}
