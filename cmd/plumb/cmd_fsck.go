package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFsckCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "fsck",
		Short: "Check that every reachable object is present and well formed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.openRepo()
			if err != nil {
				return err
			}
			res, err := r.Verify()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, h := range res.Missing {
				fmt.Fprintf(out, "missing %s\n", h)
			}
			fmt.Fprintf(out, "checked %d objects\n", len(res.Present))
			if len(res.Missing) > 0 {
				return fmt.Errorf("fsck: %d missing objects", len(res.Missing))
			}
			return nil
		},
	}
}
