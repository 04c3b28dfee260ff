package repo

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/odvcencio/plumb/pkg/object"
)

// ReflogEntry records one update of a ref.
type ReflogEntry struct {
	Ref     string
	OldHash object.Hash // zero when the ref was created
	NewHash object.Hash
	Who     object.Signature
	Reason  string
}

// appendReflog adds a line to <gitdir>/logs/<ref> in git's format:
//
//	<old> <new> <name> <<email>> <unix> <zone>\t<reason>
func (r *Repo) appendReflog(ref string, oldHash, newHash object.Hash, who object.Signature, reason string) error {
	if strings.TrimSpace(reason) == "" {
		reason = "update"
	}
	reason = strings.ReplaceAll(reason, "\n", " ")

	logPath := filepath.Join(r.GitDir, "logs", filepath.FromSlash(ref))
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("reflog mkdir: %w", err)
	}

	line := fmt.Sprintf("%s %s %s\t%s\n", oldHash, newHash, object.FormatSignature(who), reason)

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("reflog open: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("reflog write: %w", err)
	}
	return nil
}

// ReadReflog returns the update history of ref, newest first. An empty ref
// or "HEAD" means the ref HEAD currently resolves to; a bare name means a
// branch. Lines that do not parse are skipped.
func (r *Repo) ReadReflog(ref string, limit int) ([]ReflogEntry, error) {
	refName, err := r.resolveReflogRefName(ref)
	if err != nil {
		return nil, err
	}

	logPath := filepath.Join(r.GitDir, "logs", filepath.FromSlash(refName))
	f, err := os.Open(logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read reflog: %w", err)
	}
	defer f.Close()

	var entries []ReflogEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		e, ok := parseReflogLine(scanner.Text())
		if !ok {
			continue
		}
		e.Ref = refName
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read reflog: %w", err)
	}

	// Return newest first.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func parseReflogLine(line string) (ReflogEntry, bool) {
	head, reason, _ := strings.Cut(line, "\t")
	parts := strings.SplitN(head, " ", 3)
	if len(parts) < 3 {
		return ReflogEntry{}, false
	}
	oldHash, err := object.ParseHash(parts[0])
	if err != nil {
		return ReflogEntry{}, false
	}
	newHash, err := object.ParseHash(parts[1])
	if err != nil {
		return ReflogEntry{}, false
	}

	who, err := object.ParseSignature(parts[2])
	if err != nil {
		return ReflogEntry{}, false
	}
	return ReflogEntry{
		OldHash: oldHash,
		NewHash: newHash,
		Who:     who,
		Reason:  reason,
	}, true
}

func (r *Repo) resolveReflogRefName(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || ref == "HEAD" {
		return r.tipRef()
	}
	if strings.HasPrefix(ref, "refs/") {
		return ref, nil
	}
	return "refs/heads/" + ref, nil
}
