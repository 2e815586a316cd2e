package commands

import (
	"context"
	"fmt"

	"reval/internal/core"
	"reval/internal/lsp"
	"reval/internal/mcp"
	"reval/internal/watcher"

	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var debounce string
	cmd := &cobra.Command{
		Use:   "watch [DIR]",
		Short: "Reload files under DIR as they are saved",
		Long: `Watch DIR (default: the current directory) and reload each file shortly
after it is written. Swap files, .revalrc, .git and node_modules are skipped;
add more names with watch.ignore in the settings file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			opts := watcher.Options{
				Debounce: a.settings.WatchDebounce(),
				Ignore:   a.settings.Watch.Ignore,
				Logger:   a.logger,
			}
			if debounce != "" {
				d, err := parseDuration(debounce)
				if err != nil {
					return err
				}
				opts.Debounce = d
			}

			p := a.terminalPlugin(cmd.OutOrStdout())
			defer p.Stop()

			w, err := watcher.New(dir, func(ctx context.Context, path string) error {
				return p.ReloadCurrentFile(ctx, &core.FileEditor{Path: path})
			}, opts)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (ctrl+c to stop)\n", w.Root())
			return w.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&debounce, "debounce", "", "Quiet period before a saved file is sent, e.g. 200ms")
	return cmd
}

func newLSPCmd() *cobra.Command {
	var reloadOnSave bool
	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Serve the reval commands as a language server on stdio",
		Long: `Run a language server on stdin/stdout. Editors invoke the reval commands
through workspace/executeCommand with the document URI as the first argument;
results appear as window/showMessage notifications.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			srv := lsp.New(a.pluginOptions(), lsp.Options{
				Version:      a.version,
				Logger:       a.logger,
				ReloadOnSave: reloadOnSave,
			})
			return srv.RunStdio()
		},
	}
	cmd.Flags().BoolVar(&reloadOnSave, "reload-on-save", false, "Reload documents when the editor saves them")
	return cmd
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the reval commands as MCP tools on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			return mcp.NewServer(a.pluginOptions(), a.version, a.logger).Start()
		},
	}
}
