package object

import (
	"crypto/sha1"
	"errors"
	"hash"
	"io"

	"github.com/klauspost/compress/zlib"
)

// DefaultCompressionLevel matches zlib's own default.
const DefaultCompressionLevel = zlib.DefaultCompression

// HashWriter compresses everything written to it into a sink while keeping a
// SHA-1 digest of the uncompressed bytes. Pass io.Discard as the sink to
// compute a hash without storing anything.
type HashWriter struct {
	zw       *zlib.Writer
	digest   hash.Hash
	n        int64
	finished bool
}

// NewHashWriter returns a HashWriter compressing into sink at the given zlib
// level.
func NewHashWriter(sink io.Writer, level int) (*HashWriter, error) {
	zw, err := zlib.NewWriterLevel(sink, level)
	if err != nil {
		return nil, err
	}
	return &HashWriter{zw: zw, digest: sha1.New()}, nil
}

// Write compresses p and adds the accepted bytes to the digest.
func (w *HashWriter) Write(p []byte) (int, error) {
	if w.finished {
		return 0, errors.New("hash writer: write after finish")
	}
	n, err := w.zw.Write(p)
	w.digest.Write(p[:n])
	w.n += int64(n)
	return n, err
}

// Written returns the number of uncompressed bytes accepted so far.
func (w *HashWriter) Written() int64 {
	return w.n
}

// Finish flushes the compressed stream to completion and returns the digest
// of all bytes written.
func (w *HashWriter) Finish() (Hash, error) {
	var h Hash
	if w.finished {
		return h, errors.New("hash writer: already finished")
	}
	w.finished = true
	if err := w.zw.Close(); err != nil {
		return h, err
	}
	copy(h[:], w.digest.Sum(nil))
	return h, nil
}

// abort releases the compressor without producing a digest. The sink may
// hold a truncated stream afterwards.
func (w *HashWriter) abort() {
	if !w.finished {
		w.finished = true
		_ = w.zw.Close()
	}
}
