package object

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("object not found")
	ErrCorruptHeader   = errors.New("corrupt object header")
	ErrUnknownKind     = fmt.Errorf("%w: unknown object kind", ErrCorruptHeader)
	ErrInvalidSize     = errors.New("invalid object size")
	ErrSizeMismatch    = errors.New("object size mismatch")
	ErrMalformedTree   = errors.New("malformed tree object")
	ErrMalformedCommit = errors.New("malformed commit object")
)

// Error records the store operation and the object or path it failed on.
type Error struct {
	Op   string // "read", "write", "persist", ...
	Hash Hash   // zero when the object address is not yet known
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case !e.Hash.IsZero():
		return fmt.Sprintf("object %s %s: %v", e.Op, e.Hash, e.Err)
	case e.Path != "":
		return fmt.Sprintf("object %s %s: %v", e.Op, e.Path, e.Err)
	default:
		return fmt.Sprintf("object %s: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
