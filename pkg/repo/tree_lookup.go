package repo

import (
	"fmt"
	"strings"

	"github.com/odvcencio/plumb/pkg/object"
)

// LookupPath resolves a slash-separated path inside the tree treeHash. ok is
// false when no entry exists at that path. Directories resolve to their
// subtree entry.
func (r *Repo) LookupPath(treeHash object.Hash, relPath string) (object.TreeEntry, bool, error) {
	relPath = strings.Trim(relPath, "/")
	if relPath == "" {
		return object.TreeEntry{Mode: object.TreeModeDir, Hash: treeHash}, true, nil
	}
	parts := strings.Split(relPath, "/")
	current := treeHash

	for i, part := range parts {
		treeObj, err := r.Store.ReadTree(current)
		if err != nil {
			return object.TreeEntry{}, false, fmt.Errorf("read tree %s: %w", current, err)
		}

		var (
			entry object.TreeEntry
			found bool
		)
		for _, te := range treeObj.Entries {
			if te.Name == part {
				entry = te
				found = true
				break
			}
		}
		if !found {
			return object.TreeEntry{}, false, nil
		}

		if i == len(parts)-1 {
			return entry, true, nil
		}
		if !entry.IsDir() {
			return object.TreeEntry{}, false, nil
		}
		current = entry.Hash
	}

	return object.TreeEntry{}, false, nil
}
