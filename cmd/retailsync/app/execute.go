package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/agentstation/retailsync/internal/cmd/globals"
)

// Execute runs the retailsync CLI application with the given arguments.
// This is the main entry point called from main.go.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "retailsync",
		Short:   "Retail data reconciliation CLI",
		Version: a.version,
		Long: `Retailsync reconciles retail records from independent sources.

It normalizes entity labels, links labels that name the same store, SKU or
region across sources, assigns each linked group a canonical id and builds
one gap-filled time series per canonical entity.

Sources are declared in the config file (default .retailsync.yaml in the
working directory or $HOME) or passed ad hoc with --source name=path.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "Core Commands:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "debug",
		Title: "Debugging Commands:",
	})

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default is ./.retailsync.yaml or $HOME/.retailsync.yaml)")
	flags.BoolP("verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	flags.BoolP("quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	flags.Bool("no-color", false, "disable colored output")
	flags.StringP("format", "o", "", "output format: table, json, yaml, csv")
	flags.String("log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")

	globals.BindKeys(flags, map[string]string{
		"verbose":   "verbose",
		"quiet":     "quiet",
		"no-color":  "no_color",
		"format":    "format",
		"log-level": "log_level",
	})

	if a.out != nil {
		rootCmd.SetOut(a.out)
		rootCmd.SetErr(a.out)
	}

	rootCmd.SetVersionTemplate("retailsync {{.Version}}\n")

	a.registerCommands(rootCmd)

	return rootCmd
}

// setupCommand is called before any command runs, after flags are parsed.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	if !a.fixed {
		if err := a.bindFlags(cmd.Flags()); err != nil {
			return err
		}

		var err error
		if configFile := mustGetString(cmd, "config"); configFile != "" {
			a.config, err = LoadConfig(a.viper, configFile)
		} else {
			a.config, err = decodeConfig(a.viper)
		}
		if err != nil {
			return err
		}
	}

	logger := NewLogger(a.config)
	a.logger = &logger

	if a.config.ConfigFile != "" {
		a.logger.Debug().Str("file", a.config.ConfigFile).Msg("Using config file")
	}
	return nil
}

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(a.CreateReconcileCommand())
	rootCmd.AddCommand(a.CreateRunsCommand())

	// Debugging commands
	rootCmd.AddCommand(a.CreateNormalizeCommand())
	rootCmd.AddCommand(a.CreateMatchCommand())

	// Utility commands
	rootCmd.AddCommand(a.CreateVersionCommand())
}

// bindFlags binds the annotated flags of the running command to viper.
// Binding per run keeps commands that share a key from shadowing each other.
func (a *App) bindFlags(flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		key, ok := globals.Key(f)
		if !ok || err != nil {
			return
		}
		err = a.viper.BindPFlag(key, f)
	})
	return err
}

// ExitOnError is a helper that prints an error and exits with status 1.
// This is meant to be used in main.go for top-level error handling.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

// mustGetString retrieves a string flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}
