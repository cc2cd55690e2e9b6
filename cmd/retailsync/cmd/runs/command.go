// Package runs provides the runs command, which reads stored results.
package runs

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/retailsync/cmd/application"
	"github.com/agentstation/retailsync/internal/cmd/globals"
	"github.com/agentstation/retailsync/internal/cmd/output"
	"github.com/agentstation/retailsync/pkg/period"
)

// NewCommand creates the runs command using app context.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "runs [run-id]",
		GroupID: "core",
		Short:   "List stored runs or print the series of one run",
		Example: `  retailsync runs --store-dsn retailsync.db
  retailsync runs 6c1f0b6e-... -o csv
  retailsync runs diff <old-run-id> <new-run-id>`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := app.Store(ctx)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			format := output.DetectFormat(app.OutputFormat())

			if len(args) == 0 {
				runs, err := s.Runs(ctx)
				if err != nil {
					return err
				}
				return output.NewFormatter(format).Format(w, output.RunsView(runs))
			}

			run, err := s.Run(ctx, args[0])
			if err != nil {
				return err
			}
			points, err := s.Series(ctx, run.ID)
			if err != nil {
				return err
			}
			if format == output.FormatJSON || format == output.FormatYAML {
				return output.NewFormatter(format).Format(w, points)
			}
			entities, err := s.Entities(ctx, run.ID)
			if err != nil {
				return err
			}
			view := output.SeriesView{Points: points, Entities: entities, Granularity: app.Pipeline().PeriodGranularity}
			if g, err := period.ParseGranularity(run.Granularity); err == nil {
				view.Granularity = g
			}
			return output.NewFormatter(format).Format(w, view)
		},
	}

	cmd.PersistentFlags().String("store-dsn", "", "result store (sqlite path or postgres:// URL)")
	globals.BindKeys(cmd.PersistentFlags(), map[string]string{"store-dsn": "store_dsn"})
	cmd.AddCommand(newDiffCommand(app))
	return cmd
}
