package repo

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/odvcencio/plumb/pkg/object"
)

// DefaultDirName is the metadata directory created inside a work tree.
const DefaultDirName = ".git"

// Repo represents an opened repository: a work tree, its metadata directory
// and the object store inside it.
type Repo struct {
	RootDir string        // work tree root
	GitDir  string        // metadata directory holding HEAD, refs/ and objects/
	Store   *object.Store // content-addressed object store
	Config  *Config

	log *slog.Logger
}

// Options controls where Init and Open look for repository metadata.
type Options struct {
	// DirName is the metadata directory name, or an absolute path to it.
	// Empty means DefaultDirName.
	DirName string

	Logger *slog.Logger
}

func (o Options) dirName() string {
	if o.DirName == "" {
		return DefaultDirName
	}
	return o.DirName
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// Open searches upward from path for the metadata directory and opens the
// repository. When opts.DirName is absolute no search happens and path is
// taken as the work tree.
func Open(path string, opts Options) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("open: abs path: %w", err)
	}

	if filepath.IsAbs(opts.dirName()) {
		gitDir := opts.dirName()
		info, err := os.Stat(gitDir)
		if err != nil || !info.IsDir() {
			return nil, fmt.Errorf("open: not a repository: %s", gitDir)
		}
		return load(abs, gitDir, opts)
	}

	cur := abs
	for {
		gitDir := filepath.Join(cur, opts.dirName())
		info, err := os.Stat(gitDir)
		if err == nil && info.IsDir() {
			return load(cur, gitDir, opts)
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return nil, fmt.Errorf("open: not a repository (or any parent up to /): %s", opts.dirName())
		}
		cur = parent
	}
}

func load(root, gitDir string, opts Options) (*Repo, error) {
	cfg, err := ReadConfig(gitDir)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	log := opts.logger()
	return &Repo{
		RootDir: root,
		GitDir:  gitDir,
		Config:  cfg,
		Store:   newStore(gitDir, cfg, log),
		log:     log,
	}, nil
}

func newStore(gitDir string, cfg *Config, log *slog.Logger) *object.Store {
	return object.NewStore(
		filepath.Join(gitDir, "objects"),
		object.WithCompressionLevel(cfg.Core.Compression),
		object.WithHeaderCache(cfg.Core.HeaderCache),
		object.WithLogger(log),
	)
}
