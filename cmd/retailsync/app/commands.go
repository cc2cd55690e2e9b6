package app

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/agentstation/retailsync/cmd/retailsync/cmd/match"
	"github.com/agentstation/retailsync/cmd/retailsync/cmd/normalize"
	"github.com/agentstation/retailsync/cmd/retailsync/cmd/reconcile"
	"github.com/agentstation/retailsync/cmd/retailsync/cmd/runs"
)

// CreateReconcileCommand creates the reconcile command.
func (a *App) CreateReconcileCommand() *cobra.Command {
	return reconcile.NewCommand(a)
}

// CreateRunsCommand creates the runs command.
func (a *App) CreateRunsCommand() *cobra.Command {
	return runs.NewCommand(a)
}

// CreateNormalizeCommand creates the normalize command.
func (a *App) CreateNormalizeCommand() *cobra.Command {
	return normalize.NewCommand(a)
}

// CreateMatchCommand creates the match command.
func (a *App) CreateMatchCommand() *cobra.Command {
	return match.NewCommand(a)
}

// CreateVersionCommand creates the version command.
func (a *App) CreateVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("retailsync %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
				cmd.Printf("  go:       %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
			}
		},
	}
}
