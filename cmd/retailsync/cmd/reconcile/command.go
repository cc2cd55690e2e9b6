// Package reconcile provides the reconcile command implementation.
package reconcile

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/retailsync/cmd/application"
	"github.com/agentstation/retailsync/internal/cmd/globals"
)

// Flags holds the reconcile-specific flags that are not config keys.
type Flags struct {
	Sources  []string
	Entities bool
}

// NewCommand creates the reconcile command using app context.
func NewCommand(app application.Application) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "reconcile",
		GroupID: "core",
		Short:   "Reconcile the configured sources into canonical series",
		Long: `Reconcile reads every configured source, links records that name the
same entity, and prints one gap-filled series per canonical entity followed
by the per-source report.

Records that cannot be used are reported and skipped; the run fails only on
invalid configuration, an internal resolution conflict or cancellation.`,
		Example: `  retailsync reconcile --source pos=pos.csv --source erp=erp.json
  retailsync reconcile -o json --store-dsn retailsync.db
  retailsync reconcile --granularity week --duplicate-policy mean`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Execute(cmd.Context(), app, flags, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	globals.AddPipelineFlags(f)
	f.String("granularity", "", "series bucket: day, week, month")
	f.String("duplicate-policy", "", "duplicate observations: sum, mean, last")
	f.String("resolve-policy", "", "entity membership: one_to_one, one_to_many")
	f.Int("max-periods", 0, "maximum gap-filled periods per entity")
	f.String("store-dsn", "", "persist the result (sqlite path or postgres:// URL)")
	f.String("metrics-file", "", "write Prometheus metrics to this textfile")
	globals.AddSourceFlag(f, &flags.Sources)
	f.BoolVar(&flags.Entities, "entities", false, "also print the canonical entities (table output)")
	globals.BindKeys(f, map[string]string{
		"granularity":      "period_granularity",
		"duplicate-policy": "duplicate_policy",
		"resolve-policy":   "resolve_policy",
		"max-periods":      "max_periods",
		"store-dsn":        "store_dsn",
		"metrics-file":     "metrics_file",
	})

	return cmd
}
