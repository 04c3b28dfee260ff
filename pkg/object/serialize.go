package object

import (
	"bytes"
	"cmp"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// TreeObj
// ---------------------------------------------------------------------------

// CompareEntries orders tree entries the way git does: names compare byte by
// byte, and a directory name that runs out first compares as if it were
// followed by '/'. So "bin.txt" sorts before the directory "bin", while a
// plain file "bin" sorts before "bin.txt".
func CompareEntries(a, b TreeEntry) int {
	return compareNames(a.Name, a.IsDir(), b.Name, b.IsDir())
}

func compareNames(a string, aDir bool, b string, bDir bool) int {
	n := min(len(a), len(b))
	if c := strings.Compare(a[:n], b[:n]); c != 0 {
		return c
	}
	if len(a) == len(b) {
		return 0
	}
	return cmp.Compare(nextByte(a, n, aDir), nextByte(b, n, bDir))
}

// nextByte returns name[i], or '/' past the end of a directory name, or -1
// past the end of any other name.
func nextByte(name string, i int, dir bool) int {
	if i < len(name) {
		return int(name[i])
	}
	if dir {
		return '/'
	}
	return -1
}

// SortEntries sorts entries in place into canonical tree order.
func SortEntries(entries []TreeEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return CompareEntries(entries[i], entries[j]) < 0
	})
}

// MarshalTree serializes a TreeObj. Entries are written in canonical order,
// each as
//
//	mode SP name NUL <20 raw hash bytes>
//
// with nothing between records.
func MarshalTree(tr *TreeObj) []byte {
	sorted := make([]TreeEntry, len(tr.Entries))
	copy(sorted, tr.Entries)
	SortEntries(sorted)

	var buf bytes.Buffer
	for _, e := range sorted {
		buf.WriteString(e.Mode)
		buf.WriteByte(' ')
		buf.WriteString(e.Name)
		buf.WriteByte(0)
		buf.Write(e.Hash[:])
	}
	return buf.Bytes()
}

// UnmarshalTree parses a TreeObj from its serialized form. Entries are
// returned in stored order.
func UnmarshalTree(data []byte) (*TreeObj, error) {
	tr := &TreeObj{}
	for len(data) > 0 {
		nul := bytes.IndexByte(data, 0)
		if nul < 0 {
			return nil, fmt.Errorf("unmarshal tree: %w: entry without NUL", ErrMalformedTree)
		}
		mode, name, ok := strings.Cut(string(data[:nul]), " ")
		if !ok || name == "" {
			return nil, fmt.Errorf("unmarshal tree: %w: entry %q has no name", ErrMalformedTree, data[:nul])
		}
		if !ValidTreeMode(mode) {
			return nil, fmt.Errorf("unmarshal tree: %w: unknown mode %q", ErrMalformedTree, mode)
		}
		data = data[nul+1:]
		if len(data) < HashSize {
			return nil, fmt.Errorf("unmarshal tree: %w: truncated hash for %q", ErrMalformedTree, name)
		}
		e := TreeEntry{Mode: mode, Name: name}
		copy(e.Hash[:], data[:HashSize])
		data = data[HashSize:]
		tr.Entries = append(tr.Entries, e)
	}
	return tr, nil
}

// ---------------------------------------------------------------------------
// CommitObj
// ---------------------------------------------------------------------------

// MarshalCommit serializes a CommitObj:
//
//	tree H
//	parent H     (zero or more)
//	author NAME <EMAIL> UNIX ZONE
//	committer NAME <EMAIL> UNIX ZONE
//
//	message
//
// The message is followed by a single newline.
func MarshalCommit(c *CommitObj) string {
	var b strings.Builder
	fmt.Fprintf(&b, "tree %s\n", c.TreeHash)
	for _, p := range c.Parents {
		fmt.Fprintf(&b, "parent %s\n", p)
	}
	fmt.Fprintf(&b, "author %s\n", FormatSignature(c.Author))
	fmt.Fprintf(&b, "committer %s\n", FormatSignature(c.Committer))
	b.WriteByte('\n')
	b.WriteString(c.Message)
	b.WriteByte('\n')
	return b.String()
}

// FormatSignature renders s as "NAME <EMAIL> UNIX ZONE".
func FormatSignature(s Signature) string {
	return fmt.Sprintf("%s <%s> %d %s", s.Name, s.Email, s.When.Unix(), s.When.Format("-0700"))
}

// UnmarshalCommit parses a CommitObj from its serialized form. Header keys
// other than tree, parent, author and committer are ignored, along with
// their continuation lines.
func UnmarshalCommit(data []byte) (*CommitObj, error) {
	text := string(data)
	header, message, ok := strings.Cut(text, "\n\n")
	if !ok {
		return nil, fmt.Errorf("unmarshal commit: %w: missing header/message separator", ErrMalformedCommit)
	}

	c := &CommitObj{Message: strings.TrimSuffix(message, "\n")}
	var sawTree bool
	for _, line := range strings.Split(header, "\n") {
		if strings.HasPrefix(line, " ") {
			continue
		}
		key, val, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("unmarshal commit: %w: malformed header line %q", ErrMalformedCommit, line)
		}
		switch key {
		case "tree":
			h, err := ParseHash(val)
			if err != nil {
				return nil, fmt.Errorf("unmarshal commit: %w: %v", ErrMalformedCommit, err)
			}
			c.TreeHash = h
			sawTree = true
		case "parent":
			h, err := ParseHash(val)
			if err != nil {
				return nil, fmt.Errorf("unmarshal commit: %w: %v", ErrMalformedCommit, err)
			}
			c.Parents = append(c.Parents, h)
		case "author":
			sig, err := ParseSignature(val)
			if err != nil {
				return nil, fmt.Errorf("unmarshal commit: author: %w", err)
			}
			c.Author = sig
		case "committer":
			sig, err := ParseSignature(val)
			if err != nil {
				return nil, fmt.Errorf("unmarshal commit: committer: %w", err)
			}
			c.Committer = sig
		}
	}
	if !sawTree {
		return nil, fmt.Errorf("unmarshal commit: %w: missing tree", ErrMalformedCommit)
	}
	return c, nil
}

// ParseSignature parses "NAME <EMAIL> UNIX ZONE", the inverse of
// FormatSignature.
func ParseSignature(s string) (Signature, error) {
	lt := strings.IndexByte(s, '<')
	gt := strings.LastIndexByte(s, '>')
	if lt < 0 || gt < lt {
		return Signature{}, fmt.Errorf("%w: bad signature %q", ErrMalformedCommit, s)
	}
	sig := Signature{
		Name:  strings.TrimSpace(s[:lt]),
		Email: s[lt+1 : gt],
	}
	fields := strings.Fields(s[gt+1:])
	if len(fields) != 2 {
		return Signature{}, fmt.Errorf("%w: bad signature time %q", ErrMalformedCommit, s[gt+1:])
	}
	unix, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Signature{}, fmt.Errorf("%w: bad timestamp %q", ErrMalformedCommit, fields[0])
	}
	loc, err := parseZone(fields[1])
	if err != nil {
		return Signature{}, err
	}
	sig.When = time.Unix(unix, 0).In(loc)
	return sig, nil
}

// parseZone parses a "+hhmm" / "-hhmm" offset.
func parseZone(z string) (*time.Location, error) {
	if len(z) != 5 || (z[0] != '+' && z[0] != '-') {
		return nil, fmt.Errorf("%w: bad timezone %q", ErrMalformedCommit, z)
	}
	hh, err1 := strconv.Atoi(z[1:3])
	mm, err2 := strconv.Atoi(z[3:5])
	if err1 != nil || err2 != nil {
		return nil, fmt.Errorf("%w: bad timezone %q", ErrMalformedCommit, z)
	}
	offset := hh*3600 + mm*60
	if z[0] == '-' {
		offset = -offset
	}
	return time.FixedZone(z, offset), nil
}
