package repo

import (
	"fmt"
	"os"
	"path/filepath"
)

// Init creates a new repository at path. It creates the metadata directory
// with HEAD, objects/ and refs/heads/, pointing HEAD at an unborn main
// branch. Returns an error if the metadata directory already exists.
func Init(path string, opts Options) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("init: abs path: %w", err)
	}
	gitDir := opts.dirName()
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(abs, gitDir)
	}

	if _, err := os.Stat(gitDir); err == nil {
		return nil, fmt.Errorf("init: repository already exists at %s", gitDir)
	}

	dirs := []string{
		filepath.Join(gitDir, "objects"),
		filepath.Join(gitDir, "refs", "heads"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("init: mkdir %s: %w", d, err)
		}
	}

	headPath := filepath.Join(gitDir, "HEAD")
	if err := os.WriteFile(headPath, []byte("ref: refs/heads/main\n"), 0o644); err != nil {
		return nil, fmt.Errorf("init: write HEAD: %w", err)
	}

	cfg := DefaultConfig()
	log := opts.logger()
	log.Debug("initialized repository", "git_dir", gitDir)
	return &Repo{
		RootDir: abs,
		GitDir:  gitDir,
		Config:  cfg,
		Store:   newStore(gitDir, cfg, log),
		log:     log,
	}, nil
}
