package object

import (
	lru "github.com/hashicorp/golang-lru"
)

type objectHeader struct {
	kind Kind
	size int64
}

// headerCache remembers object headers by hash. Objects never change once
// written, so entries are only ever evicted for space. A nil cache is valid
// and caches nothing.
type headerCache struct {
	c *lru.Cache // Hash -> objectHeader
}

func newHeaderCache(size int) *headerCache {
	if size <= 0 {
		return nil
	}
	c, err := lru.New(size)
	if err != nil {
		return nil
	}
	return &headerCache{c: c}
}

func (hc *headerCache) get(h Hash) (objectHeader, bool) {
	if hc == nil {
		return objectHeader{}, false
	}
	v, ok := hc.c.Get(h)
	if !ok {
		return objectHeader{}, false
	}
	return v.(objectHeader), true
}

func (hc *headerCache) add(h Hash, hdr objectHeader) {
	if hc == nil {
		return
	}
	hc.c.Add(h, hdr)
}

func (hc *headerCache) len() int {
	if hc == nil {
		return 0
	}
	return hc.c.Len()
}
