package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odvcencio/plumb/pkg/object"
)

func newLsTreeCmd(c *cli) *cobra.Command {
	var nameOnly, recursive bool

	cmd := &cobra.Command{
		Use:   "ls-tree [--name-only] [-r] <tree> [path]",
		Short: "List the entries of a tree object",
		Args:  cobra.RangeArgs(1, 2),
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
			emit := func(e object.TreeEntry, name string) {
				if nameOnly {
					fmt.Fprintln(out, name)
					return
				}
				fmt.Fprintln(out, formatTreeEntry(e, name))
			}

			prefix := ""
			if len(args) == 2 {
				prefix = strings.Trim(args[1], "/")
				e, ok, err := r.LookupPath(h, prefix)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("ls-tree: path %q not found in %s", args[1], h)
				}
				if !recursive || !e.IsDir() {
					emit(e, prefix)
					return nil
				}
				h = e.Hash
			}

			if recursive {
				files, err := r.FlattenTree(h)
				if err != nil {
					return err
				}
				for _, f := range files {
					name := f.Path
					if prefix != "" {
						name = prefix + "/" + f.Path
					}
					emit(object.TreeEntry{Mode: f.Mode, Hash: f.Hash}, name)
				}
				return nil
			}

			tr, err := r.Store.ReadTree(h)
			if err != nil {
				return err
			}
			for _, e := range tr.Entries {
				emit(e, e.Name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&nameOnly, "name-only", false, "list only entry names")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "recurse into subtrees, listing files by path")

	return cmd
}

// formatTreeEntry renders "<mode> <kind> <hash>\t<name>" with the mode
// zero-padded to six digits.
func formatTreeEntry(e object.TreeEntry, name string) string {
	kind := object.KindBlob
	if e.IsDir() {
		kind = object.KindTree
	}
	mode := e.Mode
	if len(mode) < 6 {
		mode = strings.Repeat("0", 6-len(mode)) + mode
	}
	return fmt.Sprintf("%s %s %s\t%s", mode, kind, e.Hash, name)
}
