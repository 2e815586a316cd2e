package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the reval command tree.
func NewRootCmd(version string) *cobra.Command {
	var (
		debug      bool
		configPath string
	)

	root := &cobra.Command{
		Use:   "reval",
		Short: "Patch a running app with the file you are editing",
		Long: `reval sends the file you are editing to a reval server running inside your
app, which swaps the module in place without a restart.

The server address comes from the nearest .revalrc above the file, a single
line of the form host:port[/prefix]. Without one, localhost:3000 is used.

Examples:
  reval reload src/app.js            # Patch the running app with src/app.js
  cat buf | reval reload --stdin f   # Send unsaved editor content
  reval clear src/app.js             # Drop the patch for one file
  reval clear-all src/app.js         # Drop every patch in the project
  reval watch                        # Reload files as they are saved
  reval lsp                          # Serve the commands over LSP`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !debug {
				debug = envDebug()
			}
			a, err := newApp(version, debug, configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			cmd.SetContext(withApp(cmd.Context(), a))
			return nil
		},
	}

	root.PersistentFlags().BoolVar(&debug, "debug", false, "Write debug logs to the reval state directory")
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to the reval settings file")

	root.AddCommand(
		newReloadCmd(),
		newClearCmd(),
		newClearAllCmd(),
		newEditCmd(),
		newPickCmd(),
		newConfigCmd(),
		newWatchCmd(),
		newReloadChangedCmd(),
		newLSPCmd(),
		newMCPCmd(),
		newVersionCmd(),
	)
	return root
}
