package object

import (
	"bytes"
	"fmt"
	"sort"
)

// Reachability is the result of walking the object graph from a set of
// roots.
type Reachability struct {
	Present map[Hash]Kind // every reachable object found in the store
	Missing []Hash        // referenced but absent, sorted
}

// Reachable walks every object reachable from roots by following commit
// tree and parent links and tree entries. Each present object is read in
// full, so a corrupt object anywhere in the graph fails the walk. Objects
// that are referenced but not stored are reported in Missing.
func (s *Store) Reachable(roots []Hash) (*Reachability, error) {
	roots = uniqueHashes(roots)
	out := &Reachability{Present: make(map[Hash]Kind, len(roots))}
	missing := make(map[Hash]struct{})

	stack := make([]Hash, 0, len(roots))
	stack = append(stack, roots...)
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if h.IsZero() {
			continue
		}
		if _, ok := out.Present[h]; ok {
			continue
		}
		if !s.Has(h) {
			missing[h] = struct{}{}
			continue
		}

		kind, data, err := s.ReadAll(h)
		if err != nil {
			return nil, fmt.Errorf("reachable: %w", err)
		}
		out.Present[h] = kind
		refs, err := referencedHashes(kind, data)
		if err != nil {
			return nil, fmt.Errorf("reachable: parse %s (%s): %w", h, kind, err)
		}
		stack = append(stack, refs...)
	}

	for h := range missing {
		out.Missing = append(out.Missing, h)
	}
	sortHashes(out.Missing)
	return out, nil
}

func referencedHashes(kind Kind, data []byte) ([]Hash, error) {
	switch kind {
	case KindBlob:
		return nil, nil
	case KindCommit:
		commit, err := UnmarshalCommit(data)
		if err != nil {
			return nil, err
		}
		refs := make([]Hash, 0, 1+len(commit.Parents))
		refs = append(refs, commit.TreeHash)
		refs = append(refs, commit.Parents...)
		return refs, nil
	case KindTree:
		tree, err := UnmarshalTree(data)
		if err != nil {
			return nil, err
		}
		refs := make([]Hash, 0, len(tree.Entries))
		for _, e := range tree.Entries {
			refs = append(refs, e.Hash)
		}
		return refs, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
}

func uniqueHashes(in []Hash) []Hash {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[Hash]struct{}, len(in))
	out := make([]Hash, 0, len(in))
	for _, h := range in {
		if h.IsZero() {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	sortHashes(out)
	return out
}

func sortHashes(hs []Hash) {
	sort.Slice(hs, func(i, j int) bool { return bytes.Compare(hs[i][:], hs[j][:]) < 0 })
}
