package object

import (
	"bytes"
	"crypto/sha1"
	"errors"
	"io"
	"testing"

	"github.com/klauspost/compress/zlib"
)

func TestHashWriterDigestsUncompressedBytes(t *testing.T) {
	var sink bytes.Buffer
	hw, err := NewHashWriter(&sink, DefaultCompressionLevel)
	if err != nil {
		t.Fatalf("NewHashWriter: %v", err)
	}
	parts := []string{"blob 11\x00", "hello", " ", "world"}
	for _, p := range parts {
		if _, err := io.WriteString(hw, p); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if hw.Written() != 19 {
		t.Errorf("Written: got %d, want 19", hw.Written())
	}
	h, err := hw.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	want := sha1.Sum([]byte("blob 11\x00hello world"))
	if h != Hash(want) {
		t.Errorf("digest: got %s, want %x", h, want)
	}

	zr, err := zlib.NewReader(&sink)
	if err != nil {
		t.Fatalf("zlib.NewReader: %v", err)
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if string(raw) != "blob 11\x00hello world" {
		t.Errorf("decompressed: got %q", raw)
	}
}

func TestHashWriterDiscardSink(t *testing.T) {
	hw, err := NewHashWriter(io.Discard, DefaultCompressionLevel)
	if err != nil {
		t.Fatalf("NewHashWriter: %v", err)
	}
	if _, err := hw.Write([]byte("blob 0\x00")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	h, err := hw.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if h.String() != "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391" {
		t.Errorf("empty blob digest: got %s", h)
	}
}

func TestHashWriterFinishTwice(t *testing.T) {
	hw, err := NewHashWriter(io.Discard, DefaultCompressionLevel)
	if err != nil {
		t.Fatalf("NewHashWriter: %v", err)
	}
	if _, err := hw.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if _, err := hw.Finish(); err == nil {
		t.Error("second Finish: expected error")
	}
	if _, err := hw.Write([]byte("x")); err == nil {
		t.Error("Write after Finish: expected error")
	}
}

type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

func TestHashWriterSinkError(t *testing.T) {
	boom := errors.New("disk full")
	s := NewStore(t.TempDir())
	_, err := s.Write(FromBytes(KindBlob, bytes.Repeat([]byte("x"), 1<<20)), failingWriter{boom})
	if !errors.Is(err, boom) {
		t.Errorf("Write: got %v, want %v", err, boom)
	}
}

func TestHashWriterBadLevel(t *testing.T) {
	if _, err := NewHashWriter(io.Discard, 42); err == nil {
		t.Error("NewHashWriter(level 42): expected error")
	}
}
