package fs

import (
	"context"
	"os"

	"bazil.org/fuse"
)

// Symlink represents a symbolic link of the source tree.
type Symlink struct {
	fs   *ScriptFS
	path *SourcePath
}

// Attr implements the Node interface, returning the link's own
// attributes (never the target's).
func (s *Symlink) Attr(_ context.Context, a *fuse.Attr) error {
	info, err := os.Lstat(s.path.FullPath(s.fs.sourceDir))
	if err != nil {
		return ToFuseError(err)
	}

	a.Mode = info.Mode()
	a.Size = safeInt64ToUint64(info.Size())
	a.Mtime = info.ModTime()
	a.Atime = info.ModTime()
	a.Ctime = info.ModTime()
	a.Uid = s.fs.uid
	a.Gid = s.fs.gid
	return nil
}

// Readlink implements the NodeReadlinker interface.
func (s *Symlink) Readlink(_ context.Context, _ *fuse.ReadlinkRequest) (string, error) {
	target, err := os.Readlink(s.path.FullPath(s.fs.sourceDir))
	if err != nil {
		return "", ToFuseError(err)
	}
	return target, nil
}
