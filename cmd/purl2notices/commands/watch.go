package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [input]",
		Short: "Regenerate the notice document whenever the input or the cache changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.generateOptions(cmd, args)
			if err != nil {
				return err
			}
			return c.app.Watch(cmd.Context(), opts)
		},
	}
	addGenerateFlags(cmd.Flags())
	return cmd
}
