package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odvcencio/plumb/pkg/repo"
)

func newWriteTreeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "write-tree",
		Short: "Snapshot the work tree into tree objects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.openRepo()
			if err != nil {
				return err
			}
			h, ok, err := r.WriteTree()
			if err != nil {
				return err
			}
			if !ok {
				return repo.ErrEmptyTree
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
}
