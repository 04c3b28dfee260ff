package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/odvcencio/plumb/pkg/object"
)

func newCatFileCmd(c *cli) *cobra.Command {
	var pretty, showKind, showSize bool

	cmd := &cobra.Command{
		Use:   "cat-file (-p | -t | -s) <object>",
		Short: "Show the content, kind or size of an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := object.ParseHash(args[0])
			if err != nil {
				return err
			}
			r, err := c.openRepo()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			kind, size, err := r.Store.Stat(h)
			if err != nil {
				return err
			}
			switch {
			case showKind:
				fmt.Fprintln(out, kind)
				return nil
			case showSize:
				fmt.Fprintln(out, size)
				return nil
			case kind == object.KindTree:
				tr, err := r.Store.ReadTree(h)
				if err != nil {
					return err
				}
				for _, e := range tr.Entries {
					fmt.Fprintln(out, formatTreeEntry(e, e.Name))
				}
				return nil
			}

			obj, err := r.Store.Read(h)
			if err != nil {
				return err
			}
			defer obj.Close()

			n, err := io.Copy(out, obj.Body)
			if err != nil {
				return fmt.Errorf("cat-file %s: %w", h, err)
			}
			if n != obj.Size {
				return fmt.Errorf("cat-file %s: %w: header=%d, actual=%d", h, object.ErrSizeMismatch, obj.Size, n)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&pretty, "pretty", "p", false, "pretty-print the object content")
	cmd.Flags().BoolVarP(&showKind, "type", "t", false, "show the object kind")
	cmd.Flags().BoolVarP(&showSize, "size", "s", false, "show the object size")
	cmd.MarkFlagsMutuallyExclusive("pretty", "type", "size")
	cmd.MarkFlagsOneRequired("pretty", "type", "size")

	return cmd
}
