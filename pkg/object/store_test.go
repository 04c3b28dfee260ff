package object

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/klauspost/compress/zlib"
)

func mustParseHash(t *testing.T, s string) Hash {
	t.Helper()
	h, err := ParseHash(s)
	if err != nil {
		t.Fatalf("ParseHash(%q): %v", s, err)
	}
	return h
}

func TestHashObjectKnownValues(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		data string
		want string
	}{
		{"blob", KindBlob, "hello world\n", "3b18e512dba79e4c8300dd08aeb37f8e728b8dad"},
		{"empty blob", KindBlob, "", "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391"},
		{"empty tree", KindTree, "", "4b825dc642cb6eb9a060e54bf8d69288fbee4904"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := HashObject(tc.kind, []byte(tc.data)).String(); got != tc.want {
				t.Errorf("HashObject: got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestParseHash(t *testing.T) {
	h := mustParseHash(t, "3b18e512dba79e4c8300dd08aeb37f8e728b8dad")
	if h.String() != "3b18e512dba79e4c8300dd08aeb37f8e728b8dad" {
		t.Errorf("round trip: got %s", h)
	}
	for _, bad := range []string{"", "3b18", "zz18e512dba79e4c8300dd08aeb37f8e728b8dad", strings.Repeat("a", 41)} {
		if _, err := ParseHash(bad); err == nil {
			t.Errorf("ParseHash(%q): expected error", bad)
		}
	}
}

func tempStore(t *testing.T, opts ...StoreOption) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "objects"), opts...)
}

func TestStoreHashDeterminism(t *testing.T) {
	s := tempStore(t)
	data := []byte("same bytes, same address")
	h1, err := s.Hash(FromBytes(KindBlob, data))
	if err != nil {
		t.Fatalf("Hash 1: %v", err)
	}
	h2, err := s.Hash(FromBytes(KindBlob, data))
	if err != nil {
		t.Fatalf("Hash 2: %v", err)
	}
	if h1 != h2 {
		t.Errorf("Hash not deterministic: %s != %s", h1, h2)
	}
	if want := HashObject(KindBlob, data); h1 != want {
		t.Errorf("Hash: got %s, want %s", h1, want)
	}
	if h3, _ := s.Hash(FromBytes(KindCommit, data)); h3 == h1 {
		t.Error("different kinds produced the same hash")
	}

	// Dry-run hashing must not touch the store.
	if _, err := os.Stat(s.Root()); !os.IsNotExist(err) {
		t.Errorf("Hash created the store root: %v", err)
	}
}

func TestStorePersistRead(t *testing.T) {
	s := tempStore(t)
	for _, kind := range []Kind{KindBlob, KindTree, KindCommit} {
		t.Run(kind.String(), func(t *testing.T) {
			data := []byte("payload for " + kind.String())
			h, err := s.Persist(FromBytes(kind, data))
			if err != nil {
				t.Fatalf("Persist: %v", err)
			}

			obj, err := s.Read(h)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			defer obj.Close()
			if obj.Kind != kind {
				t.Errorf("Kind: got %s, want %s", obj.Kind, kind)
			}
			if obj.Size != int64(len(data)) {
				t.Errorf("Size: got %d, want %d", obj.Size, len(data))
			}
			got, err := io.ReadAll(obj.Body)
			if err != nil {
				t.Fatalf("ReadAll body: %v", err)
			}
			if !bytes.Equal(got, data) {
				t.Errorf("Body: got %q, want %q", got, data)
			}
		})
	}
}

func TestStoreOnDiskFormat(t *testing.T) {
	s := tempStore(t)
	h, err := s.PersistBytes(KindBlob, []byte("hello world\n"))
	if err != nil {
		t.Fatalf("PersistBytes: %v", err)
	}
	hex := h.String()
	objPath := filepath.Join(s.Root(), hex[:2], hex[2:])
	if objPath != s.Path(h) {
		t.Errorf("Path: got %s, want %s", s.Path(h), objPath)
	}

	f, err := os.Open(objPath)
	if err != nil {
		t.Fatalf("expected fan-out file at %s: %v", objPath, err)
	}
	defer f.Close()
	zr, err := zlib.NewReader(f)
	if err != nil {
		t.Fatalf("zlib.NewReader: %v", err)
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if want := "blob 12\x00hello world\n"; string(raw) != want {
		t.Errorf("envelope: got %q, want %q", raw, want)
	}
}

func TestStoreDuplicatePersist(t *testing.T) {
	s := tempStore(t)
	data := []byte("duplicate")
	h1, err := s.PersistBytes(KindBlob, data)
	if err != nil {
		t.Fatalf("Persist 1: %v", err)
	}
	h2, err := s.PersistBytes(KindBlob, data)
	if err != nil {
		t.Fatalf("Persist 2: %v", err)
	}
	if h1 != h2 {
		t.Errorf("duplicate persist produced different hashes: %s vs %s", h1, h2)
	}

	prefix := filepath.Dir(s.Path(h1))
	files, err := os.ReadDir(prefix)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(files) != 1 {
		t.Errorf("expected exactly one object file, found %d", len(files))
	}
	assertNoTempFiles(t, s)
}

func assertNoTempFiles(t *testing.T, s *Store) {
	t.Helper()
	entries, err := os.ReadDir(s.Root())
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("ReadDir root: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "tmp_obj_") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestPersistRenameFailureCleansUp(t *testing.T) {
	s := tempStore(t)
	data := []byte("hello world\n")
	h := HashObject(KindBlob, data)

	// A regular file where the prefix directory belongs makes the final
	// mkdir fail after the temporary file has been written and closed.
	if err := os.MkdirAll(s.Root(), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	prefix := filepath.Dir(s.Path(h))
	if err := os.WriteFile(prefix, []byte("in the way"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := s.PersistBytes(KindBlob, data)
	var serr *Error
	if !errors.As(err, &serr) || serr.Op != "persist" {
		t.Fatalf("PersistBytes: got %v, want persist error", err)
	}
	if serr.Hash != h {
		t.Errorf("error hash = %s, want %s", serr.Hash, h)
	}
	assertNoTempFiles(t, s)
}

func TestWriteSizeMismatch(t *testing.T) {
	tests := []struct {
		name string
		size int64
		body string
	}{
		{"too short", 10, "hello"},
		{"too long", 3, "hello"},
		{"empty body", 1, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := tempStore(t)
			obj := &Object{Kind: KindBlob, Size: tc.size, Body: strings.NewReader(tc.body)}
			if _, err := s.Write(obj, io.Discard); !errors.Is(err, ErrSizeMismatch) {
				t.Fatalf("Write: got %v, want ErrSizeMismatch", err)
			}

			obj = &Object{Kind: KindBlob, Size: tc.size, Body: strings.NewReader(tc.body)}
			if _, err := s.Persist(obj); !errors.Is(err, ErrSizeMismatch) {
				t.Fatalf("Persist: got %v, want ErrSizeMismatch", err)
			}
			assertNoTempFiles(t, s)
		})
	}
}

func TestWriteSourceError(t *testing.T) {
	s := tempStore(t)
	boom := errors.New("boom")
	obj := &Object{Kind: KindBlob, Size: 4, Body: iotest.ErrReader(boom)}
	_, err := s.Persist(obj)
	if !errors.Is(err, boom) {
		t.Fatalf("Persist: got %v, want %v", err, boom)
	}
	var oerr *Error
	if !errors.As(err, &oerr) || oerr.Op != "write" {
		t.Errorf("expected *Error with Op write, got %#v", err)
	}
	assertNoTempFiles(t, s)
}

func TestWriteRejectsUnknownKind(t *testing.T) {
	s := tempStore(t)
	if _, err := s.Hash(FromBytes(Kind(42), []byte("x"))); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("Hash: got %v, want ErrUnknownKind", err)
	}
}

func TestReadNotFound(t *testing.T) {
	s := tempStore(t)
	h := HashObject(KindBlob, []byte("never stored"))
	_, err := s.Read(h)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Read: got %v, want ErrNotFound", err)
	}
	if !strings.Contains(err.Error(), h.String()) {
		t.Errorf("error %q does not name the hash", err)
	}
	if s.Has(h) {
		t.Error("Has returned true for non-existing object")
	}
}

// writeRawObject compresses raw verbatim into the slot for h, bypassing all
// envelope checks.
func writeRawObject(t *testing.T, s *Store, h Hash, raw []byte) {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		t.Fatalf("compress: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("compress close: %v", err)
	}
	writeFileObject(t, s, h, buf.Bytes())
}

func writeFileObject(t *testing.T, s *Store, h Hash, content []byte) {
	t.Helper()
	p := s.Path(h)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, content, 0o644); err != nil {
		t.Fatalf("write object file: %v", err)
	}
}

func TestReadCorruptObjects(t *testing.T) {
	h := mustParseHash(t, "ab00000000000000000000000000000000000000")
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"missing NUL", "blob 5hello", ErrCorruptHeader},
		{"no space", "blob5\x00hello", ErrCorruptHeader},
		{"unknown kind", "blub 5\x00hello", ErrUnknownKind},
		{"non-numeric size", "blob five\x00hello", ErrInvalidSize},
		{"negative size", "blob -5\x00hello", ErrInvalidSize},
		{"empty size", "blob \x00hello", ErrInvalidSize},
		{"invalid utf-8", "bl\xffb 5\x00hello", ErrCorruptHeader},
		{"overlong header", "blob " + strings.Repeat("1", 64) + "\x00", ErrCorruptHeader},
		{"empty stream", "", ErrCorruptHeader},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := tempStore(t)
			writeRawObject(t, s, h, []byte(tc.raw))
			obj, err := s.Read(h)
			if err == nil {
				obj.Close()
				t.Fatalf("Read: expected error")
			}
			if !errors.Is(err, tc.want) {
				t.Errorf("Read: got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestReadUnknownKindIsCorruptHeader(t *testing.T) {
	s := tempStore(t)
	h := mustParseHash(t, "cd00000000000000000000000000000000000000")
	writeRawObject(t, s, h, []byte("tag 3\x00abc"))
	_, err := s.Read(h)
	if !errors.Is(err, ErrCorruptHeader) || !errors.Is(err, ErrUnknownKind) {
		t.Errorf("Read: got %v, want both ErrCorruptHeader and ErrUnknownKind", err)
	}
}

func TestReadNotCompressed(t *testing.T) {
	s := tempStore(t)
	h := mustParseHash(t, "ef00000000000000000000000000000000000000")
	writeFileObject(t, s, h, []byte("blob 5\x00hello"))
	if _, err := s.Read(h); !errors.Is(err, ErrCorruptHeader) {
		t.Errorf("Read: got %v, want ErrCorruptHeader", err)
	}
}

func TestReadAllTruncatedPayload(t *testing.T) {
	s := tempStore(t)
	h := mustParseHash(t, "0100000000000000000000000000000000000000")
	writeRawObject(t, s, h, []byte("blob 10\x00hello"))
	if _, _, err := s.ReadAll(h); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("ReadAll: got %v, want ErrSizeMismatch", err)
	}
}

func TestReadBodyIsBounded(t *testing.T) {
	s := tempStore(t)
	h := mustParseHash(t, "0200000000000000000000000000000000000000")
	writeRawObject(t, s, h, []byte("blob 3\x00hello"))
	kind, data, err := s.ReadAll(h)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if kind != KindBlob || string(data) != "hel" {
		t.Errorf("ReadAll: got %s %q, want blob \"hel\"", kind, data)
	}
}

func TestStatHeaderCache(t *testing.T) {
	s := tempStore(t, WithHeaderCache(8))
	h, err := s.PersistBytes(KindCommit, []byte("tree x\n\nmsg\n"))
	if err != nil {
		t.Fatalf("PersistBytes: %v", err)
	}
	if n := s.headers.len(); n != 1 {
		t.Errorf("cached headers after persist: got %d, want 1", n)
	}

	// Served from the cache even once the file is gone.
	if err := os.Remove(s.Path(h)); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	kind, size, err := s.Stat(h)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if kind != KindCommit || size != 12 {
		t.Errorf("Stat: got %s %d, want commit 12", kind, size)
	}
}

func TestStatWithoutCache(t *testing.T) {
	s := tempStore(t)
	h, err := s.PersistBytes(KindBlob, []byte("abc"))
	if err != nil {
		t.Fatalf("PersistBytes: %v", err)
	}
	kind, size, err := s.Stat(h)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if kind != KindBlob || size != 3 {
		t.Errorf("Stat: got %s %d, want blob 3", kind, size)
	}
	if err := os.Remove(s.Path(h)); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, _, err := s.Stat(h); !errors.Is(err, ErrNotFound) {
		t.Errorf("Stat after remove: got %v, want ErrNotFound", err)
	}
}

func TestCompressionLevelDoesNotChangeHash(t *testing.T) {
	data := bytes.Repeat([]byte("compressible "), 200)
	fast := tempStore(t, WithCompressionLevel(zlib.BestSpeed))
	best := tempStore(t, WithCompressionLevel(zlib.BestCompression))
	h1, err := fast.PersistBytes(KindBlob, data)
	if err != nil {
		t.Fatalf("fast: %v", err)
	}
	h2, err := best.PersistBytes(KindBlob, data)
	if err != nil {
		t.Fatalf("best: %v", err)
	}
	if h1 != h2 {
		t.Errorf("compression level changed hash: %s vs %s", h1, h2)
	}
}

func TestBlobFromFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "hello.txt")
	if err := os.WriteFile(p, []byte("hello world\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	s := tempStore(t)
	obj, err := BlobFromFile(p)
	if err != nil {
		t.Fatalf("BlobFromFile: %v", err)
	}
	defer obj.Close()
	h, err := s.Persist(obj)
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if got := h.String(); got != "3b18e512dba79e4c8300dd08aeb37f8e728b8dad" {
		t.Errorf("blob hash: got %s", got)
	}
}

func TestBlobFromSymlink(t *testing.T) {
	dir := t.TempDir()
	link := filepath.Join(dir, "link")
	if err := os.Symlink("a.txt", link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	obj, err := BlobFromFile(link)
	if err != nil {
		t.Fatalf("BlobFromFile: %v", err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj.Body)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "a.txt" || obj.Size != 5 {
		t.Errorf("symlink blob: got %q (size %d), want \"a.txt\"", data, obj.Size)
	}
}
