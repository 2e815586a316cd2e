package commands

import (
	"fmt"

	"reval/internal/core"
	"reval/internal/editors"
	"reval/internal/errors"
	"reval/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func newReloadCmd() *cobra.Command {
	var fromStdin bool
	cmd := &cobra.Command{
		Use:   "reload FILE",
		Short: "Patch the running app with FILE",
		Long: `Send FILE to the reval server, which replaces the running module with it.

With --stdin the content is read from standard input instead of disk, so an
editor can send its unsaved buffer.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			editor, err := core.NewFileEditor(args[0], nil)
			if err != nil {
				return err
			}
			if fromStdin {
				editor.Buffer = cmd.InOrStdin()
			}
			return runCommand(cmd, editors.ReloadCurrentFile, editor)
		},
	}
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read the file content from standard input")
	return cmd
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear FILE",
		Short: "Drop the patch for FILE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			editor, err := core.NewFileEditor(args[0], nil)
			if err != nil {
				return err
			}
			return runCommand(cmd, editors.ClearCurrentFile, editor)
		},
	}
}

func newClearAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-all FILE",
		Short: "Drop every patch on the server that owns FILE",
		Long:  `FILE only selects the project: its .revalrc decides which server is cleared.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			editor, err := core.NewFileEditor(args[0], nil)
			if err != nil {
				return err
			}
			return runCommand(cmd, editors.ClearAllFiles, editor)
		},
	}
}

func newEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit FILE",
		Short: "Open FILE in $EDITOR and reload it when the editor exits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			editor, err := core.NewFileEditor(args[0], nil)
			if err != nil {
				return err
			}
			if err := core.EditFile(cmd.Context(), editor.Path); err != nil {
				return errors.Wrapf(err, "edit %s", editor.Path)
			}
			return runCommand(cmd, editors.ReloadCurrentFile, editor)
		},
	}
}

func newPickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pick FILE",
		Short: "Choose a reval command for FILE interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			editor, err := core.NewFileEditor(args[0], nil)
			if err != nil {
				return err
			}

			p := a.terminalPlugin(cmd.OutOrStdout())
			defer p.Stop()

			chosen, ok, err := tui.Pick(p.Resolve(editor.Path), a.logger,
				tea.WithInput(cmd.InOrStdin()), tea.WithOutput(cmd.ErrOrStderr()))
			if err != nil {
				return errors.Wrap(err, "run picker")
			}
			if !ok {
				return nil
			}
			return notified(p.Execute(cmd.Context(), chosen.ID, editor))
		},
	}
}

func newReloadChangedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload-changed [DIR]",
		Short: "Reload every file git reports as changed under DIR",
		Long: `Reload the modified, added and untracked files of the enclosing git
working tree that live under DIR (default: the current directory). Useful
after switching branches or running a formatter.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			p := appFrom(cmd).terminalPlugin(cmd.OutOrStdout())
			defer p.Stop()

			n, err := p.ReloadChanged(cmd.Context(), dir)
			if errors.Is(err, core.ErrReloadsFailed) {
				return notified(err)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d file(s) reloaded\n", n)
			return nil
		},
	}
}

// runCommand executes one editor command with terminal notifications.
func runCommand(cmd *cobra.Command, id string, editor core.ActiveEditor) error {
	p := appFrom(cmd).terminalPlugin(cmd.OutOrStdout())
	defer p.Stop()
	return notified(p.Execute(cmd.Context(), id, editor))
}
