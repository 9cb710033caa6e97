package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect cache files",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate <file>",
		Short: "Check a cache file against the cache schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := c.app.ValidateCache(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			s := report.Stats
			_, _ = fmt.Fprintf(cmd.OutOrStdout(),
				"%s: %d entries (%d resolved, %d failed, %d skipped), %d without license, %d without copyright\n",
				report.Path, s.Entries, s.Resolved, s.Failed, s.Skipped, s.WithoutLicense, s.WithoutCopyright)
			return nil
		},
	})
	return cmd
}
