// Package normalize provides the normalize command, which prints the
// comparison key of each label.
package normalize

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/retailsync/cmd/application"
	"github.com/agentstation/retailsync/internal/cmd/output"
)

// NewCommand creates the normalize command using app context.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "normalize <label>...",
		GroupID: "debug",
		Short:   "Print the normalized key of each label",
		Example: `  retailsync normalize "Store 12 North" "north store #12"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := output.DetectFormat(app.OutputFormat())
			return output.NewFormatter(format).Format(cmd.OutOrStdout(), output.NewKeysView(args))
		},
	}
}
