package repo

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/odvcencio/plumb/pkg/object"
)

// Refs returns every ref under refs/ with the hash it holds, keyed by its
// slash-separated name. Unparseable ref files are reported as errors.
func (r *Repo) Refs() (map[string]object.Hash, error) {
	refs := make(map[string]object.Hash)
	root := filepath.Join(r.GitDir, "refs")
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || filepath.Ext(path) == ".lock" {
			return nil
		}
		raw, err := readRefHash(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(r.GitDir, path)
		if err != nil {
			return err
		}
		h, err := object.ParseHash(raw)
		if err != nil {
			return fmt.Errorf("ref %s: %w", filepath.ToSlash(rel), err)
		}
		refs[filepath.ToSlash(rel)] = h
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	return refs, nil
}

// Verify reads every object reachable from the refs and from a detached
// HEAD, failing on the first corrupt object and reporting missing ones.
func (r *Repo) Verify() (*object.Reachability, error) {
	refs, err := r.Refs()
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sort.Strings(names)

	roots := make([]object.Hash, 0, len(refs)+1)
	for _, name := range names {
		roots = append(roots, refs[name])
	}
	if tip, ok, err := r.ReadTip(); err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	} else if ok {
		roots = append(roots, tip)
	}

	res, err := r.Store.Reachable(roots)
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	r.log.Debug("verified objects", "roots", len(roots), "present", len(res.Present), "missing", len(res.Missing))
	return res, nil
}
