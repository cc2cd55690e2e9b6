// Package match provides the match command, which prints the candidate
// links between two sources without resolving them.
package match

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agentstation/retailsync/cmd/application"
	"github.com/agentstation/retailsync/internal/cmd/globals"
	"github.com/agentstation/retailsync/internal/cmd/output"
	"github.com/agentstation/retailsync/pkg/errors"
	"github.com/agentstation/retailsync/pkg/matcher"
	"github.com/agentstation/retailsync/pkg/normalize"
	"github.com/agentstation/retailsync/pkg/records"
	"github.com/agentstation/retailsync/pkg/sources"
)

// NewCommand creates the match command using app context.
func NewCommand(app application.Application) *cobra.Command {
	var adhoc []string

	cmd := &cobra.Command{
		Use:     "match <source-a> <source-b>",
		GroupID: "debug",
		Short:   "Print the candidate links between two sources",
		Example: `  retailsync match pos erp --source pos=pos.csv --source erp=erp.json --threshold 0.8`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return Execute(cmd.Context(), app, adhoc, args[0], args[1], cmd.OutOrStdout())
		},
	}

	globals.AddPipelineFlags(cmd.Flags())
	globals.AddSourceFlag(cmd.Flags(), &adhoc)
	return cmd
}

// Execute reads both sources and prints the links the matcher proposes
// between them.
func Execute(ctx context.Context, app application.Application, adhoc []string, a, b string, w io.Writer) error {
	srcs, err := app.Sources(adhoc)
	if err != nil {
		return err
	}

	keyed := make([][]matcher.Keyed, 2)
	for i, name := range []string{a, b} {
		src, ok := srcs.Get(sources.ID(name))
		if !ok {
			return errors.NewConfigError("cli", "sources", fmt.Sprintf("unknown source %q", name))
		}
		batch, err := src.Records(ctx)
		if err != nil {
			return err
		}
		keyed[i] = keyRecords(name, batch.Records)
	}

	cfg := app.Pipeline().WithDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	m, err := matcher.New(&matcher.Options{Blocking: cfg.Blocking, Workers: cfg.Workers, MatchedOn: "label"})
	if err != nil {
		return err
	}
	links, err := m.Match(ctx, keyed[0], keyed[1], cfg.SimilarityThreshold)
	if err != nil {
		return err
	}

	format := output.DetectFormat(app.OutputFormat())
	return output.NewFormatter(format).Format(w, output.LinksView(links))
}

// keyRecords normalizes the labels of one source, keeping the first label
// seen per member. Records the pipeline would reject are skipped.
func keyRecords(source string, recs []records.RawRecord) []matcher.Keyed {
	seen := make(map[records.MemberID]bool)
	var out []matcher.Keyed
	for _, rec := range recs {
		rec.Source = source
		member, key, err := normalize.Record(source, rec)
		if err != nil {
			continue
		}
		if seen[member] {
			continue
		}
		seen[member] = true
		out = append(out, matcher.Keyed{Member: member, Key: key})
	}
	return out
}
