package object

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// FromBytes returns an in-memory object over data.
func FromBytes(kind Kind, data []byte) *Object {
	return &Object{
		Kind: kind,
		Size: int64(len(data)),
		Body: bytes.NewReader(data),
	}
}

// FromString is FromBytes for text payloads such as commits.
func FromString(kind Kind, s string) *Object {
	return &Object{
		Kind: kind,
		Size: int64(len(s)),
		Body: strings.NewReader(s),
	}
}

// BlobFromFile returns a blob object streaming the contents of path. The size
// is taken from lstat up front. A symbolic link yields a blob holding the link
// target as written, without following it.
func BlobFromFile(path string) (*Object, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, fmt.Errorf("blob from file: %w", err)
	}
	return blobFromInfo(path, info)
}

func blobFromInfo(path string, info fs.FileInfo) (*Object, error) {
	switch {
	case info.Mode()&fs.ModeSymlink != 0:
		target, err := os.Readlink(path)
		if err != nil {
			return nil, fmt.Errorf("blob from file: readlink: %w", err)
		}
		return FromString(KindBlob, target), nil
	case info.Mode().IsRegular():
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("blob from file: %w", err)
		}
		return &Object{
			Kind:   KindBlob,
			Size:   info.Size(),
			Body:   f,
			closer: f,
		}, nil
	default:
		return nil, fmt.Errorf("blob from file %s: unsupported file type %s", path, info.Mode().Type())
	}
}

// BlobFromFileInfo is BlobFromFile for callers that already hold lstat
// metadata for path, such as a directory walk.
func BlobFromFileInfo(path string, info fs.FileInfo) (*Object, error) {
	return blobFromInfo(path, info)
}
