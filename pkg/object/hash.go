package object

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// HashSize is the length in bytes of a raw object hash.
const HashSize = sha1.Size

// Hash is a SHA-1 object digest.
type Hash [HashSize]byte

// ZeroHash is the all-zero hash, never the hash of a real object.
var ZeroHash Hash

// String returns the 40-character lowercase hex form of h.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// ParseHash decodes a 40-character hex string.
func ParseHash(s string) (Hash, error) {
	var h Hash
	if len(s) != 2*HashSize {
		return h, fmt.Errorf("parse hash %q: want %d hex characters, got %d", s, 2*HashSize, len(s))
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return h, fmt.Errorf("parse hash %q: %w", s, err)
	}
	return h, nil
}

// header returns the envelope prefix "kind size\0".
func header(kind Kind, size int64) []byte {
	return []byte(fmt.Sprintf("%s %d\x00", kind, size))
}

// HashObject computes the SHA-1 of the envelope "kind len\0content" without
// compressing or storing anything.
func HashObject(kind Kind, data []byte) Hash {
	h := sha1.New()
	h.Write(header(kind, int64(len(data))))
	h.Write(data)
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}
