package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newCommitCmd(c *cli) *cobra.Command {
	var (
		message     string
		authorName  string
		authorEmail string
	)

	cmd := &cobra.Command{
		Use:   "commit -m <message>",
		Short: "Snapshot the work tree and advance the current branch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if message == "" {
				return fmt.Errorf("commit message is required (-m)")
			}

			r, err := c.openRepo()
			if err != nil {
				return err
			}

			h, err := r.Commit(message, c.identity(r, authorName, authorEmail))
			if err != nil {
				return err
			}

			branch := "HEAD"
			head, err := r.Head()
			if err == nil && strings.HasPrefix(head, "refs/heads/") {
				branch = strings.TrimPrefix(head, "refs/heads/")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "[%s %s] %s\n", branch, shortHash(h.String()), message)
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	cmd.Flags().StringVar(&authorName, "author-name", "", "author name (default: $NAME, then [user] name)")
	cmd.Flags().StringVar(&authorEmail, "author-email", "", "author email (default: $EMAIL, then [user] email)")

	return cmd
}
