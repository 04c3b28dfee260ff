package repo

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/odvcencio/plumb/pkg/object"
)

// TreeBuilder snapshots directories into tree objects. Files become blobs,
// subdirectories become subtrees, and directories holding nothing worth
// recording are left out entirely.
type TreeBuilder struct {
	store *object.Store
	skip  map[string]struct{}
	log   *slog.Logger
}

// TreeBuilderOption configures a TreeBuilder.
type TreeBuilderOption func(*TreeBuilder)

// WithSkipPaths excludes the given paths, and everything beneath them, from
// snapshots. Used to keep the metadata directory out of its own trees.
func WithSkipPaths(paths ...string) TreeBuilderOption {
	return func(b *TreeBuilder) {
		for _, p := range paths {
			if abs, err := filepath.Abs(p); err == nil {
				b.skip[abs] = struct{}{}
			}
		}
	}
}

// WithTreeLogger sets the logger for debug output.
func WithTreeLogger(l *slog.Logger) TreeBuilderOption {
	return func(b *TreeBuilder) {
		if l != nil {
			b.log = l
		}
	}
}

// NewTreeBuilder returns a TreeBuilder persisting into store. The store's
// root is always skipped so a store inside the walked directory never ends
// up in its own trees.
func NewTreeBuilder(store *object.Store, opts ...TreeBuilderOption) *TreeBuilder {
	b := &TreeBuilder{
		store: store,
		skip:  make(map[string]struct{}),
		log:   slog.New(slog.DiscardHandler),
	}
	if root := store.Root(); root != "" {
		if abs, err := filepath.Abs(root); err == nil {
			b.skip[abs] = struct{}{}
		}
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// WriteTree persists the tree for dir and everything below it, children
// first, and returns the root tree hash. ok is false when dir contains no
// files at any depth; nothing is persisted for such a directory.
func (b *TreeBuilder) WriteTree(dir string) (h object.Hash, ok bool, err error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return object.ZeroHash, false, fmt.Errorf("write tree: abs path: %w", err)
	}
	return b.writeTree(abs)
}

func (b *TreeBuilder) writeTree(dir string) (object.Hash, bool, error) {
	children, err := os.ReadDir(dir)
	if err != nil {
		return object.ZeroHash, false, fmt.Errorf("write tree: read dir %s: %w", dir, err)
	}

	entries := make([]object.TreeEntry, 0, len(children))
	for _, child := range children {
		path := filepath.Join(dir, child.Name())
		if _, skip := b.skip[path]; skip {
			continue
		}
		info, err := child.Info()
		if err != nil {
			return object.ZeroHash, false, fmt.Errorf("write tree: stat %s: %w", path, err)
		}
		mode, ok := modeFromFileInfo(info)
		if !ok {
			b.log.Debug("skipping unsupported file", "path", path, "type", info.Mode().Type().String())
			continue
		}

		var h object.Hash
		if mode == object.TreeModeDir {
			sub, ok, err := b.writeTree(path)
			if err != nil {
				return object.ZeroHash, false, err
			}
			if !ok {
				b.log.Debug("pruned empty directory", "path", path)
				continue
			}
			h = sub
		} else {
			h, err = b.writeBlob(path, info)
			if err != nil {
				return object.ZeroHash, false, err
			}
		}
		entries = append(entries, object.TreeEntry{Mode: mode, Name: child.Name(), Hash: h})
	}

	if len(entries) == 0 {
		return object.ZeroHash, false, nil
	}
	h, err := b.store.PersistTree(&object.TreeObj{Entries: entries})
	if err != nil {
		return object.ZeroHash, false, fmt.Errorf("write tree %s: %w", dir, err)
	}
	return h, true, nil
}

func (b *TreeBuilder) writeBlob(path string, info os.FileInfo) (object.Hash, error) {
	obj, err := object.BlobFromFileInfo(path, info)
	if err != nil {
		return object.ZeroHash, fmt.Errorf("write tree: %w", err)
	}
	defer obj.Close()

	h, err := b.store.Persist(obj)
	if err != nil {
		return object.ZeroHash, fmt.Errorf("write tree: blob %s: %w", path, err)
	}
	return h, nil
}

// WriteTree snapshots the work tree, leaving out the metadata directory.
func (r *Repo) WriteTree() (object.Hash, bool, error) {
	b := NewTreeBuilder(r.Store, WithSkipPaths(r.GitDir), WithTreeLogger(r.log))
	return b.WriteTree(r.RootDir)
}

// TreeFileEntry represents a single file in a flattened tree.
type TreeFileEntry struct {
	Path string
	Mode string
	Hash object.Hash
}

// FlattenTree walks a tree object recursively, returning all non-directory
// entries with their full paths (using forward slashes) in tree order.
func (r *Repo) FlattenTree(h object.Hash) ([]TreeFileEntry, error) {
	return r.flattenTreeRec(h, "")
}

func (r *Repo) flattenTreeRec(h object.Hash, prefix string) ([]TreeFileEntry, error) {
	treeObj, err := r.Store.ReadTree(h)
	if err != nil {
		return nil, fmt.Errorf("flatten tree: read %s: %w", h, err)
	}

	var result []TreeFileEntry
	for _, entry := range treeObj.Entries {
		fullPath := entry.Name
		if prefix != "" {
			fullPath = prefix + "/" + entry.Name
		}

		if entry.IsDir() {
			sub, err := r.flattenTreeRec(entry.Hash, fullPath)
			if err != nil {
				return nil, err
			}
			result = append(result, sub...)
		} else {
			result = append(result, TreeFileEntry{
				Path: fullPath,
				Mode: entry.Mode,
				Hash: entry.Hash,
			})
		}
	}
	return result, nil
}
