package repo

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/odvcencio/plumb/pkg/object"
)

// Placeholder identity used when nothing else is configured.
const (
	DefaultAuthorName  = "plumb"
	DefaultAuthorEmail = "plumb@example.com"
)

// ErrEmptyTree is returned when a snapshot would contain no files.
var ErrEmptyTree = errors.New("empty tree object")

// Identity names the person recorded in a commit signature.
type Identity struct {
	Name  string
	Email string
}

// ResolveIdentity takes each field from the first layer that sets it, in
// order, falling back to the placeholder identity.
func ResolveIdentity(layers ...Identity) Identity {
	var id Identity
	for _, l := range layers {
		if id.Name == "" {
			id.Name = l.Name
		}
		if id.Email == "" {
			id.Email = l.Email
		}
	}
	if id.Name == "" {
		id.Name = DefaultAuthorName
	}
	if id.Email == "" {
		id.Email = DefaultAuthorEmail
	}
	return id
}

// Identity returns the identity configured in the [user] section.
func (c *Config) Identity() Identity {
	return Identity{Name: c.User.Name, Email: c.User.Email}
}

// Signature stamps id with a time.
func (id Identity) Signature(when time.Time) object.Signature {
	return object.Signature{Name: id.Name, Email: id.Email, When: when}
}

// CommitRequest describes a commit to assemble.
type CommitRequest struct {
	Tree    object.Hash
	Parent  object.Hash // zero for a root commit
	Message string

	Author object.Signature
	// Committer defaults to Author when its name is empty.
	Committer object.Signature
}

// CommitTree assembles a commit object for req and persists it. An author
// without a timestamp is stamped with the current time.
func CommitTree(store *object.Store, req CommitRequest) (object.Hash, error) {
	if req.Tree.IsZero() {
		return object.ZeroHash, fmt.Errorf("commit tree: tree hash is required")
	}
	author := req.Author
	if author.When.IsZero() {
		author.When = time.Now()
	}
	committer := req.Committer
	if committer.Name == "" {
		committer = author
	} else if committer.When.IsZero() {
		committer.When = author.When
	}

	c := &object.CommitObj{
		TreeHash:  req.Tree,
		Author:    author,
		Committer: committer,
		Message:   req.Message,
	}
	if !req.Parent.IsZero() {
		c.Parents = []object.Hash{req.Parent}
	}

	h, err := store.PersistCommit(c)
	if err != nil {
		return object.ZeroHash, fmt.Errorf("commit tree: %w", err)
	}
	return h, nil
}

// Commit snapshots the work tree and records it on the current branch:
//
//  1. WriteTree over the work tree
//  2. ReadTip for the parent (none on an unborn branch)
//  3. CommitTree with id as author and committer
//  4. Advance the tip, failing if it moved since step 2
//
// Fields missing from id come from the [user] config, then the placeholders.
func (r *Repo) Commit(message string, id Identity) (object.Hash, error) {
	id = ResolveIdentity(id, r.Config.Identity())

	tree, ok, err := r.WriteTree()
	if err != nil {
		return object.ZeroHash, fmt.Errorf("commit: %w", err)
	}
	if !ok {
		return object.ZeroHash, fmt.Errorf("commit: %w", ErrEmptyTree)
	}

	parent, _, err := r.ReadTip()
	if err != nil {
		return object.ZeroHash, fmt.Errorf("commit: %w", err)
	}

	sig := id.Signature(time.Now())
	h, err := CommitTree(r.Store, CommitRequest{
		Tree:    tree,
		Parent:  parent,
		Message: message,
		Author:  sig,
	})
	if err != nil {
		return object.ZeroHash, fmt.Errorf("commit: %w", err)
	}

	reason := "commit: "
	if parent.IsZero() {
		reason = "commit (initial): "
	}
	reason += Subject(message)
	if err := r.writeTipCAS(h, parent, sig, reason); err != nil {
		return object.ZeroHash, fmt.Errorf("commit: %w", err)
	}
	return h, nil
}

// Subject returns the first line of a commit message.
func Subject(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// LogEntry is one commit visited by Log.
type LogEntry struct {
	Hash   object.Hash
	Commit *object.CommitObj
}

// Log walks the commit history starting from the given hash, following
// first-parent links, returning up to limit commits newest first. A limit of
// zero or less means no limit.
func (r *Repo) Log(start object.Hash, limit int) ([]LogEntry, error) {
	var entries []LogEntry
	current := start

	for limit <= 0 || len(entries) < limit {
		c, err := r.Store.ReadCommit(current)
		if err != nil {
			return nil, fmt.Errorf("log: read commit %s: %w", current, err)
		}
		entries = append(entries, LogEntry{Hash: current, Commit: c})

		if len(c.Parents) == 0 {
			break
		}
		current = c.Parents[0]
	}

	return entries, nil
}
