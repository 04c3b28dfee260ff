package object

import (
	"fmt"
	"io"
	"time"
)

// Kind identifies the kind of object stored.
type Kind uint8

const (
	KindBlob Kind = iota + 1
	KindTree
	KindCommit
)

// String returns the token used for k in object headers.
func (k Kind) String() string {
	switch k {
	case KindBlob:
		return "blob"
	case KindTree:
		return "tree"
	case KindCommit:
		return "commit"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind maps a header token to its Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "blob":
		return KindBlob, nil
	case "tree":
		return KindTree, nil
	case "commit":
		return KindCommit, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

const (
	// Tree mode constants, in git's canonical spelling.
	TreeModeDir        = "40000"
	TreeModeFile       = "100644"
	TreeModeExecutable = "100755"
	TreeModeSymlink    = "120000"
)

// ValidTreeMode reports whether mode is one of the four tree entry modes.
func ValidTreeMode(mode string) bool {
	switch mode {
	case TreeModeDir, TreeModeFile, TreeModeExecutable, TreeModeSymlink:
		return true
	}
	return false
}

// Object is a typed payload with a length known up front. Body yields the
// payload bytes; for objects obtained from Store.Read or BlobFromFile the
// caller must Close the object when done.
type Object struct {
	Kind Kind
	Size int64
	Body io.Reader

	closer io.Closer
}

// Close releases the resources backing the body, if any.
func (o *Object) Close() error {
	if o == nil || o.closer == nil {
		return nil
	}
	c := o.closer
	o.closer = nil
	return c.Close()
}

// TreeEntry is one entry in a tree object.
type TreeEntry struct {
	Mode string
	Name string
	Hash Hash
}

// IsDir reports whether the entry refers to a subtree.
func (e TreeEntry) IsDir() bool {
	return e.Mode == TreeModeDir
}

// TreeObj holds the entries of a tree object.
type TreeObj struct {
	Entries []TreeEntry
}

// Signature identifies who authored or committed a change and when.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// CommitObj represents a commit pointing to a tree with metadata.
type CommitObj struct {
	TreeHash  Hash
	Parents   []Hash
	Author    Signature
	Committer Signature
	Message   string
}
