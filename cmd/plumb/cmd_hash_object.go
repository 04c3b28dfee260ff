package main

import (
	"fmt"

	"github.com/sourcegraph/conc/iter"
	"github.com/spf13/cobra"

	"github.com/odvcencio/plumb/pkg/object"
)

func newHashObjectCmd(c *cli) *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "hash-object [-w] <file>...",
		Short: "Compute the blob hash of files, optionally storing them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// A store with no root is enough for hashing; nothing is written.
			store := object.NewStore("")
			if write {
				r, err := c.openRepo()
				if err != nil {
					return err
				}
				store = r.Store
			}

			hashes, err := iter.MapErr(args, func(path *string) (object.Hash, error) {
				return hashFile(store, *path, write)
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, h := range hashes {
				fmt.Fprintln(out, h)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the blobs into the object store")

	return cmd
}

func hashFile(store *object.Store, path string, write bool) (object.Hash, error) {
	obj, err := object.BlobFromFile(path)
	if err != nil {
		return object.ZeroHash, err
	}
	defer obj.Close()

	if write {
		return store.Persist(obj)
	}
	return store.Hash(obj)
}
