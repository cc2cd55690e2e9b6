package runs

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/retailsync/cmd/application"
	"github.com/agentstation/retailsync/internal/cmd/output"
	"github.com/agentstation/retailsync/pkg/differ"
	"github.com/agentstation/retailsync/pkg/period"
)

// newDiffCommand creates the runs diff command.
func newDiffCommand(app application.Application) *cobra.Command {
	var tolerance float64
	var skipImputed bool

	cmd := &cobra.Command{
		Use:   "diff <old-run-id> <new-run-id>",
		Short: "Compare the entities and series of two stored runs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := app.Store(ctx)
			if err != nil {
				return err
			}

			snaps := make([]differ.Snapshot, 2)
			var granularity period.Granularity
			for i, id := range args {
				run, err := s.Run(ctx, id)
				if err != nil {
					return err
				}
				if g, err := period.ParseGranularity(run.Granularity); err == nil {
					granularity = g
				}
				if snaps[i].Entities, err = s.Entities(ctx, id); err != nil {
					return err
				}
				if snaps[i].Points, err = s.Series(ctx, id); err != nil {
					return err
				}
			}

			cs := differ.New(differ.WithTolerance(tolerance), differ.WithImputed(!skipImputed)).
				Snapshots(snaps[0], snaps[1])

			w := cmd.OutOrStdout()
			format := output.DetectFormat(app.OutputFormat())
			view := output.ChangesView{Changeset: cs, Granularity: granularity}
			switch format {
			case output.FormatJSON, output.FormatYAML:
				return output.NewFormatter(format).Format(w, cs)
			case output.FormatCSV:
				return output.NewFormatter(format).Format(w, view)
			}
			if !cs.IsEmpty() {
				if err := output.NewFormatter(output.FormatTable).Format(w, view); err != nil {
					return err
				}
				fmt.Fprintln(w)
			}
			fmt.Fprintln(w, cs.String())
			return nil
		},
	}

	cmd.Flags().Float64Var(&tolerance, "tolerance", 0, "treat values closer than this as equal")
	cmd.Flags().BoolVar(&skipImputed, "skip-imputed", false, "ignore imputed points")
	return cmd
}
