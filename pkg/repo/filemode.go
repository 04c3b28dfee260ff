package repo

import (
	"io/fs"

	"github.com/odvcencio/plumb/pkg/object"
)

// modeFromFileInfo maps lstat metadata to a tree entry mode. ok is false for
// file types a tree cannot record (sockets, devices, named pipes).
func modeFromFileInfo(info fs.FileInfo) (mode string, ok bool) {
	m := info.Mode()
	switch {
	case m.IsDir():
		return object.TreeModeDir, true
	case m&fs.ModeSymlink != 0:
		return object.TreeModeSymlink, true
	case m.IsRegular():
		if m.Perm()&0o111 != 0 {
			return object.TreeModeExecutable, true
		}
		return object.TreeModeFile, true
	default:
		return "", false
	}
}
