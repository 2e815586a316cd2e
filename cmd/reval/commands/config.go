package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"reval/internal/core"
	"reval/internal/errors"
	"reval/internal/revalrc"
	"reval/internal/tui/styles"

	"github.com/spf13/cobra"
)

type configReport struct {
	File         string `json:"file"`
	ConfigPath   string `json:"config_path,omitempty"`
	Root         string `json:"root,omitempty"`
	Host         string `json:"host"`
	Port         int    `json:"port"`
	PathPrefix   string `json:"path_prefix"`
	RelativePath string `json:"relative_path"`
	BaseURL      string `json:"base_url"`
}

func newConfigCmd() *cobra.Command {
	var (
		jsonOutput bool
		initialize bool
		force      bool
	)
	cmd := &cobra.Command{
		Use:   "config FILE | config --init",
		Short: "Show which reval server FILE is sent to",
		Long: `Show the .revalrc, server and filePath reval uses for FILE.

With --init, write the default user settings file instead (the --config path,
$REVAL_CONFIG, or $XDG_CONFIG_HOME/reval/config.yaml).`,
		Args: func(cmd *cobra.Command, args []string) error {
			if initialize {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			if initialize {
				return initSettings(cmd, a.settingsPath, force)
			}

			editor, err := core.NewFileEditor(args[0], nil)
			if err != nil {
				return err
			}
			cfg := revalrc.NewResolver(a.logger).Resolve(editor.Path)
			report := configReport{
				File:         editor.Path,
				ConfigPath:   cfg.ConfigPath,
				Root:         cfg.Root,
				Host:         cfg.Host,
				Port:         cfg.Port,
				PathPrefix:   cfg.PathPrefix,
				RelativePath: cfg.RelativePath,
				BaseURL:      cfg.BaseURL(),
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				data, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return errors.Wrap(err, "encode config")
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			source := report.ConfigPath
			if source == "" {
				source = "(none found, using " + revalrc.DefaultConfig + ")"
			}
			fmt.Fprintf(out, "%s %s\n", styles.KeyStyle.Render(".revalrc:"), source)
			fmt.Fprintf(out, "%s %s%s\n", styles.KeyStyle.Render("server:  "), report.BaseURL, report.PathPrefix)
			fmt.Fprintf(out, "%s %s\n", styles.KeyStyle.Render("filePath:"), report.RelativePath)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output the resolved configuration as JSON")
	cmd.Flags().BoolVar(&initialize, "init", false, "Write the default settings file")
	cmd.Flags().BoolVar(&force, "force", false, "With --init, overwrite an existing settings file")
	return cmd
}

func initSettings(cmd *cobra.Command, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.WithHint(errors.Newf("settings file already exists: %s", path), "Pass --force to overwrite it.")
	}
	if err := defaultSettings().SaveTo(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.WithHintf(errors.Wrapf(err, "invalid duration %q", s), "Use Go duration syntax, e.g. %q.", "200ms")
	}
	return d, nil
}
