package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.trai.ch/purl2notices/internal/build"
	"go.trai.ch/purl2notices/internal/core/domain"
)

func (c *CLI) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of " + domain.ToolName,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (commit: %s, date: %s)\n",
				domain.ToolName, build.Version, build.Commit, build.Date)
		},
	}
}
