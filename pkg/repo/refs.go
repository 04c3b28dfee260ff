package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/odvcencio/plumb/pkg/object"
)

var ErrRefCASMismatch = errors.New("ref compare-and-swap mismatch")
var ErrRefUpdatedButReflogAppendFailed = errors.New("ref updated but reflog append failed")

// RefUpdateReflogError indicates the ref file update succeeded, but appending
// the corresponding reflog entry failed.
type RefUpdateReflogError struct {
	Ref     string
	OldHash object.Hash
	NewHash object.Hash
	Err     error
}

func (e *RefUpdateReflogError) Error() string {
	return fmt.Sprintf("update ref %q: %s (old=%s new=%s): %v",
		e.Ref, ErrRefUpdatedButReflogAppendFailed, e.OldHash, e.NewHash, e.Err)
}

func (e *RefUpdateReflogError) Unwrap() error { return e.Err }

func (e *RefUpdateReflogError) Is(target error) bool {
	return target == ErrRefUpdatedButReflogAppendFailed
}

const (
	refLockRetryDelay = 5 * time.Millisecond
	refLockWaitLimit  = 2 * time.Second
)

// Head reads HEAD. If the content starts with "ref: ", it returns the ref
// path (e.g., "refs/heads/main"). Otherwise it returns the raw content as a
// detached hash string.
func (r *Repo) Head() (string, error) {
	data, err := os.ReadFile(filepath.Join(r.GitDir, "HEAD"))
	if err != nil {
		return "", fmt.Errorf("head: %w", err)
	}
	content := strings.TrimRight(string(data), "\n")

	if strings.HasPrefix(content, "ref: ") {
		return strings.TrimPrefix(content, "ref: "), nil
	}
	return content, nil
}

// tipRef returns the ref file the current tip lives in: the branch HEAD
// points at, or HEAD itself when detached.
func (r *Repo) tipRef() (string, error) {
	head, err := r.Head()
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(head, "refs/") {
		return head, nil
	}
	return "HEAD", nil
}

// ReadTip returns the commit the current branch points at. ok is false on an
// unborn branch.
func (r *Repo) ReadTip() (h object.Hash, ok bool, err error) {
	name, err := r.tipRef()
	if err != nil {
		return object.ZeroHash, false, fmt.Errorf("read tip: %w", err)
	}
	raw, err := readRefHash(filepath.Join(r.GitDir, name))
	if err != nil {
		return object.ZeroHash, false, fmt.Errorf("read tip %q: %w", name, err)
	}
	if raw == "" {
		return object.ZeroHash, false, nil
	}
	h, err = object.ParseHash(raw)
	if err != nil {
		return object.ZeroHash, false, fmt.Errorf("read tip %q: %w", name, err)
	}
	return h, true, nil
}

// WriteTip points the current branch (or detached HEAD) at h. The reflog
// entry is attributed to the configured identity.
func (r *Repo) WriteTip(h object.Hash) error {
	name, err := r.tipRef()
	if err != nil {
		return fmt.Errorf("write tip: %w", err)
	}
	who := ResolveIdentity(r.Config.Identity()).Signature(time.Now())
	return r.updateRef(name, h, nil, who, "update")
}

// writeTipCAS is WriteTip that only succeeds while the tip still equals old.
// A zero old requires the branch to be unborn.
func (r *Repo) writeTipCAS(h, old object.Hash, who object.Signature, reason string) error {
	name, err := r.tipRef()
	if err != nil {
		return fmt.Errorf("write tip: %w", err)
	}
	return r.updateRef(name, h, &old, who, reason)
}

// updateRef writes a hash to the named ref file using lockfile + rename
// atomic semantics and records the change in the ref's reflog. If
// expectedOld is non-nil, the update only succeeds when the current ref hash
// matches it. When only the reflog append fails the ref update stands and a
// *RefUpdateReflogError is returned.
func (r *Repo) updateRef(name string, h object.Hash, expectedOld *object.Hash, who object.Signature, reason string) error {
	refPath := filepath.Join(r.GitDir, name)

	dir := filepath.Dir(refPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("update ref %q: mkdir: %w", name, err)
	}

	lockPath := refPath + ".lock"
	lockFile, err := acquireRefLock(lockPath)
	if err != nil {
		return fmt.Errorf("update ref %q: lock: %w", name, err)
	}
	cleanupLock := true
	defer func() {
		if lockFile != nil {
			_ = lockFile.Close()
		}
		if cleanupLock {
			_ = os.Remove(lockPath)
		}
	}()

	oldRaw, err := readRefHash(refPath)
	if err != nil {
		return fmt.Errorf("update ref %q: read old hash: %w", name, err)
	}
	if expectedOld != nil {
		want := ""
		if !expectedOld.IsZero() {
			want = expectedOld.String()
		}
		if oldRaw != want {
			return fmt.Errorf("update ref %q: %w (expected %q, found %q)", name, ErrRefCASMismatch, want, oldRaw)
		}
	}
	var oldHash object.Hash
	if oldRaw != "" {
		// A malformed previous value is logged as zero.
		oldHash, _ = object.ParseHash(oldRaw)
	}

	if _, err := lockFile.WriteString(h.String() + "\n"); err != nil {
		return fmt.Errorf("update ref %q: write: %w", name, err)
	}
	if err := lockFile.Sync(); err != nil {
		return fmt.Errorf("update ref %q: sync: %w", name, err)
	}
	if err := lockFile.Close(); err != nil {
		lockFile = nil
		return fmt.Errorf("update ref %q: close: %w", name, err)
	}
	lockFile = nil

	if err := os.Rename(lockPath, refPath); err != nil {
		return fmt.Errorf("update ref %q: rename: %w", name, err)
	}
	cleanupLock = false
	r.log.Debug("updated ref", "ref", name, "old", oldHash, "new", h)

	if err := r.appendReflog(name, oldHash, h, who, reason); err != nil {
		return &RefUpdateReflogError{
			Ref:     name,
			OldHash: oldHash,
			NewHash: h,
			Err:     err,
		}
	}
	return nil
}

func acquireRefLock(lockPath string) (*os.File, error) {
	deadline := time.Now().Add(refLockWaitLimit)
	for {
		f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nil
		}
		if os.IsExist(err) {
			if time.Now().After(deadline) {
				return nil, fmt.Errorf("timeout waiting for lock %q", lockPath)
			}
			time.Sleep(refLockRetryDelay)
			continue
		}
		return nil, err
	}
}

// readRefHash returns the trimmed contents of a ref file, or "" if it does
// not exist.
func readRefHash(refPath string) (string, error) {
	data, err := os.ReadFile(refPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
