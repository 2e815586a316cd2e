// Package main is the entry point for the reval CLI.
//
// reval sends the file being edited to a reval server embedded in a running
// app. Every subcommand lives in the commands package; main only wires
// signals and turns errors into exit codes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"reval/cmd/reval/commands"
	"reval/internal/errors"
	"reval/internal/tui/styles"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := commands.NewRootCmd(Version)
	if err := root.ExecuteContext(ctx); err != nil {
		// Command failures were already shown as notifications.
		if !commands.IsNotified(err) {
			fmt.Fprintln(os.Stderr, styles.ErrorStyle.Render("Error: "+errors.UserMessage(err)))
			if details := errors.FlattenDetails(err); details != "" {
				fmt.Fprintln(os.Stderr, styles.DetailStyle.Render(details))
			}
		}
		stop()
		os.Exit(1)
	}
}
