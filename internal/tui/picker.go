// Package tui provides the interactive command picker behind `reval pick`.
//
// The picker lists the reval commands for one file, using the Bubble Tea
// framework and a bubbles list. Choosing an entry ends the program and
// reports the choice; the caller runs the command so the picker itself
// never talks to the network.
package tui

import (
	"fmt"

	"reval/internal/editors"
	"reval/internal/logging"
	"reval/internal/revalrc"
	"reval/internal/tui/components"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	defaultWidth  = 80
	defaultHeight = 20
)

// PickerModel is the root model of the picker.
type PickerModel struct {
	logger *logging.AppLogger
	list   list.Model
	layout components.LayoutModel

	chosen   *editors.Command
	quitting bool
}

// NewPickerModel lists the editor commands for the file described by cfg.
func NewPickerModel(cfg revalrc.ProjectConfig, logger *logging.AppLogger) PickerModel {
	if logger == nil {
		logger = logging.GetDefault()
	}

	commands := editors.GetAllCommands()
	items := make([]list.Item, 0, len(commands))
	for _, c := range commands {
		items = append(items, c)
	}

	l := list.New(items, list.NewDefaultDelegate(), defaultWidth, defaultHeight)
	l.Title = ""
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	layout := components.NewLayout(components.LayoutConfig{
		Title:    "reval",
		Subtitle: fmt.Sprintf("%s → %s%s", cfg.RelativePath, cfg.BaseURL(), cfg.PathPrefix),
		HelpText: "↑/↓ navigate • / filter • enter run • q quit",
		MarginX:  2,
		MarginY:  1,
		MaxWidth: 100,
	})

	return PickerModel{logger: logger, list: l, layout: layout}
}

func (m PickerModel) Init() tea.Cmd {
	return nil
}

func (m PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.logger.LogMessage(msg)
	m.layout, _ = m.layout.Update(msg)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if msg.Width > 0 && msg.Height > 0 {
			m.list.SetSize(m.layout.ContentWidth(), m.layout.ContentHeight())
		}
		return m, nil

	case tea.KeyMsg:
		filtering := m.list.FilterState() == list.Filtering
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "q":
			if !filtering {
				m.quitting = true
				return m, tea.Quit
			}
		case "esc":
			// Esc clears an applied filter before it quits.
			if !filtering && m.list.FilterState() != list.FilterApplied {
				m.quitting = true
				return m, tea.Quit
			}
		case "enter":
			if !filtering {
				if c, ok := m.list.SelectedItem().(editors.Command); ok {
					m.logger.LogUserAction("command_selected", c.ID)
					m.chosen = &c
					return m, tea.Quit
				}
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m PickerModel) View() string {
	if m.chosen != nil || m.quitting {
		return ""
	}
	return m.layout.Render(m.list.View())
}

// Chosen returns the selected command. ok is false when the user quit.
func (m PickerModel) Chosen() (editors.Command, bool) {
	if m.chosen == nil {
		return editors.Command{}, false
	}
	return *m.chosen, true
}

// Pick runs the picker on the terminal and returns the chosen command.
func Pick(cfg revalrc.ProjectConfig, logger *logging.AppLogger, opts ...tea.ProgramOption) (editors.Command, bool, error) {
	final, err := tea.NewProgram(NewPickerModel(cfg, logger), opts...).Run()
	if err != nil {
		return editors.Command{}, false, err
	}
	cmd, ok := final.(PickerModel).Chosen()
	return cmd, ok, nil
}
