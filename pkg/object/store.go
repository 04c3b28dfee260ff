package object

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/zlib"
)

// maxHeaderLen bounds the "kind size" prefix of an object. The longest valid
// header, "commit " plus a 19 digit size, fits comfortably.
const maxHeaderLen = 32

// Store is a content-addressed object store with a 2-character fan-out
// directory layout: <root>/ab/cdef0123...
//
// Objects are the zlib-compressed envelope "kind size\0payload" and are
// never modified once written.
type Store struct {
	root    string
	level   int
	headers *headerCache
	log     *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithCompressionLevel sets the zlib level used for new objects. The level
// does not affect object hashes.
func WithCompressionLevel(level int) StoreOption {
	return func(s *Store) { s.level = level }
}

// WithHeaderCache caches up to size object headers for Stat. A size of zero
// or less disables the cache.
func WithHeaderCache(size int) StoreOption {
	return func(s *Store) { s.headers = newHeaderCache(size) }
}

// WithLogger sets the logger for debug output.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// NewStore creates a Store whose objects live directly under root (usually
// <gitdir>/objects). Directories are created lazily on first write.
func NewStore(root string, opts ...StoreOption) *Store {
	s := &Store{
		root:  root,
		level: DefaultCompressionLevel,
		log:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the directory objects are stored under.
func (s *Store) Root() string {
	return s.root
}

// Path returns the filesystem path for a given hash.
func (s *Store) Path(h Hash) string {
	hex := h.String()
	return filepath.Join(s.root, hex[:2], hex[2:])
}

// Has reports whether the store contains an object with the given hash.
func (s *Store) Has(h Hash) bool {
	_, err := os.Stat(s.Path(h))
	return err == nil
}

// Read opens the object with the given hash. The header is parsed eagerly;
// the payload is decompressed lazily as Body is read and is limited to the
// size recorded in the header. The caller must Close the returned object.
func (s *Store) Read(h Hash) (*Object, error) {
	f, err := os.Open(s.Path(h))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &Error{Op: "read", Hash: h, Err: ErrNotFound}
		}
		return nil, &Error{Op: "read", Hash: h, Err: err}
	}
	zr, err := zlib.NewReader(f)
	if err != nil {
		f.Close()
		return nil, &Error{Op: "read", Hash: h, Err: fmt.Errorf("%w: zlib: %v", ErrCorruptHeader, err)}
	}
	br := bufio.NewReader(zr)
	kind, size, err := readHeader(br)
	if err != nil {
		zr.Close()
		f.Close()
		return nil, &Error{Op: "read", Hash: h, Err: err}
	}
	return &Object{
		Kind:   kind,
		Size:   size,
		Body:   io.LimitReader(br, size),
		closer: &readCloser{zr: zr, f: f},
	}, nil
}

type readCloser struct {
	zr io.Closer
	f  *os.File
}

func (c *readCloser) Close() error {
	zerr := c.zr.Close()
	ferr := c.f.Close()
	if zerr != nil {
		return zerr
	}
	return ferr
}

// readHeader consumes "kind size\0" from br.
func readHeader(br *bufio.Reader) (Kind, int64, error) {
	buf := make([]byte, 0, maxHeaderLen)
	for {
		b, err := br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return 0, 0, fmt.Errorf("%w: missing NUL terminator", ErrCorruptHeader)
			}
			return 0, 0, err
		}
		if b == 0 {
			break
		}
		if len(buf) == maxHeaderLen {
			return 0, 0, fmt.Errorf("%w: no NUL within %d bytes", ErrCorruptHeader, maxHeaderLen)
		}
		buf = append(buf, b)
	}
	return parseHeader(buf)
}

// parseHeader parses the header bytes preceding the NUL terminator.
func parseHeader(buf []byte) (Kind, int64, error) {
	if !utf8.Valid(buf) {
		return 0, 0, fmt.Errorf("%w: header is not valid UTF-8", ErrCorruptHeader)
	}
	kindTok, sizeTok, ok := strings.Cut(string(buf), " ")
	if !ok {
		return 0, 0, fmt.Errorf("%w: no space in header %q", ErrCorruptHeader, buf)
	}
	kind, err := ParseKind(kindTok)
	if err != nil {
		return 0, 0, err
	}
	size, err := strconv.ParseUint(sizeTok, 10, 63)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidSize, sizeTok)
	}
	return kind, int64(size), nil
}

// ReadAll reads an object fully. It fails with ErrSizeMismatch if the stored
// payload is shorter than its header claims.
func (s *Store) ReadAll(h Hash) (Kind, []byte, error) {
	obj, err := s.Read(h)
	if err != nil {
		return 0, nil, err
	}
	defer obj.Close()

	var buf bytes.Buffer
	n, err := io.Copy(&buf, obj.Body)
	if err != nil {
		return 0, nil, &Error{Op: "read", Hash: h, Err: err}
	}
	if n != obj.Size {
		return 0, nil, &Error{Op: "read", Hash: h, Err: fmt.Errorf("%w: header=%d, actual=%d", ErrSizeMismatch, obj.Size, n)}
	}
	return obj.Kind, buf.Bytes(), nil
}

// Stat returns the kind and payload size of an object without reading the
// payload.
func (s *Store) Stat(h Hash) (Kind, int64, error) {
	if hdr, ok := s.headers.get(h); ok {
		return hdr.kind, hdr.size, nil
	}
	obj, err := s.Read(h)
	if err != nil {
		return 0, 0, err
	}
	obj.Close()
	s.headers.add(h, objectHeader{kind: obj.Kind, size: obj.Size})
	return obj.Kind, obj.Size, nil
}

// Write streams the envelope of obj through the compressing hasher into
// sink and returns the object hash. Exactly obj.Size bytes must come out of
// obj.Body; anything else fails with ErrSizeMismatch.
func (s *Store) Write(obj *Object, sink io.Writer) (Hash, error) {
	if obj.Kind < KindBlob || obj.Kind > KindCommit {
		return ZeroHash, &Error{Op: "write", Err: fmt.Errorf("%w: %s", ErrUnknownKind, obj.Kind)}
	}
	if obj.Size < 0 {
		return ZeroHash, &Error{Op: "write", Err: fmt.Errorf("%w: %d", ErrInvalidSize, obj.Size)}
	}

	hw, err := NewHashWriter(sink, s.level)
	if err != nil {
		return ZeroHash, &Error{Op: "write", Err: fmt.Errorf("compressor: %w", err)}
	}
	hdr := header(obj.Kind, obj.Size)
	if _, err := hw.Write(hdr); err != nil {
		hw.abort()
		return ZeroHash, &Error{Op: "write", Err: err}
	}

	// Read one byte past the declared size so an overlong body is detected
	// without draining it.
	if _, err := io.Copy(hw, io.LimitReader(obj.Body, obj.Size+1)); err != nil {
		hw.abort()
		return ZeroHash, &Error{Op: "write", Err: err}
	}
	if n := hw.Written() - int64(len(hdr)); n != obj.Size {
		hw.abort()
		if n > obj.Size {
			return ZeroHash, &Error{Op: "write", Err: fmt.Errorf("%w: declared %d bytes, body is longer", ErrSizeMismatch, obj.Size)}
		}
		return ZeroHash, &Error{Op: "write", Err: fmt.Errorf("%w: declared %d bytes, body yielded %d", ErrSizeMismatch, obj.Size, n)}
	}

	h, err := hw.Finish()
	if err != nil {
		return ZeroHash, &Error{Op: "write", Err: fmt.Errorf("flush: %w", err)}
	}
	return h, nil
}

// Hash computes the hash obj would be stored under without storing it.
func (s *Store) Hash(obj *Object) (Hash, error) {
	return s.Write(obj, io.Discard)
}

// Persist stores obj and returns its hash. The object is written to a unique
// temporary file in the store root and renamed into place, so a partially
// written object never appears under its final path. Persisting content that
// already exists is a no-op.
func (s *Store) Persist(obj *Object) (h Hash, err error) {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return ZeroHash, &Error{Op: "persist", Path: s.root, Err: fmt.Errorf("mkdir: %w", err)}
	}

	tmp, err := os.CreateTemp(s.root, "tmp_obj_*")
	if err != nil {
		return ZeroHash, &Error{Op: "persist", Path: s.root, Err: fmt.Errorf("tmpfile: %w", err)}
	}
	tmpName := tmp.Name()
	closed := false
	defer func() {
		if err != nil {
			if !closed {
				tmp.Close()
			}
			os.Remove(tmpName)
		}
	}()

	h, err = s.Write(obj, tmp)
	if err != nil {
		return ZeroHash, err
	}
	closed = true
	if err = tmp.Close(); err != nil {
		return ZeroHash, &Error{Op: "persist", Hash: h, Err: fmt.Errorf("close: %w", err)}
	}

	dest := s.Path(h)
	if s.Has(h) {
		s.log.Debug("object already present", "hash", h, "kind", obj.Kind)
		os.Remove(tmpName)
		return h, nil
	}
	if err = os.Chmod(tmpName, 0o444); err != nil {
		return ZeroHash, &Error{Op: "persist", Hash: h, Err: fmt.Errorf("chmod: %w", err)}
	}
	if err = os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return ZeroHash, &Error{Op: "persist", Hash: h, Err: fmt.Errorf("mkdir: %w", err)}
	}
	if err = os.Rename(tmpName, dest); err != nil {
		return ZeroHash, &Error{Op: "persist", Hash: h, Err: fmt.Errorf("rename: %w", err)}
	}

	s.headers.add(h, objectHeader{kind: obj.Kind, size: obj.Size})
	s.log.Debug("persisted object", "hash", h, "kind", obj.Kind, "size", obj.Size)
	return h, nil
}

// ---------------------------------------------------------------------------
// Typed convenience methods
// ---------------------------------------------------------------------------

// PersistBytes stores an in-memory payload.
func (s *Store) PersistBytes(kind Kind, data []byte) (Hash, error) {
	return s.Persist(FromBytes(kind, data))
}

// PersistTree serializes and stores a TreeObj.
func (s *Store) PersistTree(tr *TreeObj) (Hash, error) {
	return s.PersistBytes(KindTree, MarshalTree(tr))
}

// ReadTree reads and deserializes a TreeObj.
func (s *Store) ReadTree(h Hash) (*TreeObj, error) {
	kind, data, err := s.ReadAll(h)
	if err != nil {
		return nil, err
	}
	if kind != KindTree {
		return nil, fmt.Errorf("object %s: type mismatch: got %q, want %q", h, kind, KindTree)
	}
	return UnmarshalTree(data)
}

// PersistCommit serializes and stores a CommitObj.
func (s *Store) PersistCommit(c *CommitObj) (Hash, error) {
	return s.Persist(FromString(KindCommit, MarshalCommit(c)))
}

// ReadCommit reads and deserializes a CommitObj.
func (s *Store) ReadCommit(h Hash) (*CommitObj, error) {
	kind, data, err := s.ReadAll(h)
	if err != nil {
		return nil, err
	}
	if kind != KindCommit {
		return nil, fmt.Errorf("object %s: type mismatch: got %q, want %q", h, kind, KindCommit)
	}
	return UnmarshalCommit(data)
}
