package reconcile

import (
	"fmt"
	"io"

	"github.com/agentstation/retailsync/internal/cmd/output"
	"github.com/agentstation/retailsync/pkg/reconciler"
)

// printResult writes the full result for json and yaml, the series for csv,
// and the series followed by the report tables otherwise.
func printResult(w io.Writer, requested string, result *reconciler.Result, showEntities bool) error {
	format := output.DetectFormat(requested)
	switch format {
	case output.FormatJSON, output.FormatYAML:
		return output.NewFormatter(format).Format(w, result)
	case output.FormatCSV:
		return output.NewFormatter(format).Format(w, output.NewSeriesView(result))
	}

	table := output.NewFormatter(output.FormatTable)
	if err := table.Format(w, output.NewSeriesView(result)); err != nil {
		return err
	}
	if showEntities {
		fmt.Fprintln(w)
		if err := table.Format(w, output.EntitiesView(result.Entities)); err != nil {
			return err
		}
	}
	fmt.Fprintln(w)
	if err := table.Format(w, output.SourcesView(result.Report.Sources)); err != nil {
		return err
	}
	if len(result.Report.Errors) > 0 {
		fmt.Fprintln(w)
		if err := table.Format(w, output.ErrorsView{Report: result.Report}); err != nil {
			return err
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, result.Report.Summary())
	return nil
}
