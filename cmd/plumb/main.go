package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/odvcencio/plumb/pkg/repo"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cli carries settings shared by every subcommand.
type cli struct {
	v   *viper.Viper
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{
		v:   viper.New(),
		log: slog.New(slog.DiscardHandler),
	}

	root := &cobra.Command{
		Use:           "plumb",
		Short:         "Content-addressed object store and tree plumbing",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			c.log = newLogger(cmd.ErrOrStderr(), c.v.GetBool("verbose"))
		},
	}

	pf := root.PersistentFlags()
	pf.String("git-dir", "", "metadata directory name, or an absolute path to it (default .git)")
	pf.StringP("work-tree", "C", ".", "run as if started in this directory")
	pf.BoolP("verbose", "v", false, "log debug output to stderr")

	c.v.BindPFlag("git_dir", pf.Lookup("git-dir"))
	c.v.BindPFlag("work_tree", pf.Lookup("work-tree"))
	c.v.BindPFlag("verbose", pf.Lookup("verbose"))
	c.v.SetEnvPrefix("PLUMB")
	c.v.AutomaticEnv()
	c.v.BindEnv("author_name", "NAME")
	c.v.BindEnv("author_email", "EMAIL")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(c))
	root.AddCommand(newCatFileCmd(c))
	root.AddCommand(newHashObjectCmd(c))
	root.AddCommand(newLsTreeCmd(c))
	root.AddCommand(newWriteTreeCmd(c))
	root.AddCommand(newCommitTreeCmd(c))
	root.AddCommand(newCommitCmd(c))
	root.AddCommand(newLogCmd(c))
	root.AddCommand(newReflogCmd(c))
	root.AddCommand(newFsckCmd(c))

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "plumb 0.1.0-dev")
		},
	}
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (c *cli) repoOptions() repo.Options {
	return repo.Options{DirName: c.v.GetString("git_dir"), Logger: c.log}
}

func (c *cli) workTree() string {
	if wt := c.v.GetString("work_tree"); wt != "" {
		return wt
	}
	return "."
}

func (c *cli) openRepo() (*repo.Repo, error) {
	return repo.Open(c.workTree(), c.repoOptions())
}

// identity layers the author flags over NAME/EMAIL and the repository's
// [user] settings.
func (c *cli) identity(r *repo.Repo, name, email string) repo.Identity {
	return repo.ResolveIdentity(
		repo.Identity{Name: name, Email: email},
		repo.Identity{Name: c.v.GetString("author_name"), Email: c.v.GetString("author_email")},
		r.Config.Identity(),
	)
}

func shortHash(s string) string {
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
