package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/odvcencio/plumb/pkg/object"
	"github.com/odvcencio/plumb/pkg/repo"
)

func newCommitTreeCmd(c *cli) *cobra.Command {
	var (
		parent      string
		message     string
		authorName  string
		authorEmail string
	)

	cmd := &cobra.Command{
		Use:   "commit-tree <tree> [-p <parent>] -m <message>",
		Short: "Create a commit object for a tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := object.ParseHash(args[0])
			if err != nil {
				return fmt.Errorf("tree: %w", err)
			}
			var parentHash object.Hash
			if parent != "" {
				parentHash, err = object.ParseHash(parent)
				if err != nil {
					return fmt.Errorf("parent: %w", err)
				}
			}

			r, err := c.openRepo()
			if err != nil {
				return err
			}
			id := c.identity(r, authorName, authorEmail)

			h, err := repo.CommitTree(r.Store, repo.CommitRequest{
				Tree:    tree,
				Parent:  parentHash,
				Message: message,
				Author:  id.Signature(time.Now()),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}

	cmd.Flags().StringVarP(&parent, "parent", "p", "", "parent commit hash")
	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	cmd.Flags().StringVar(&authorName, "author-name", "", "author name (default: $NAME, then [user] name)")
	cmd.Flags().StringVar(&authorEmail, "author-email", "", "author email (default: $EMAIL, then [user] email)")
	cmd.MarkFlagRequired("message")

	return cmd
}
