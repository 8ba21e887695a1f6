package fs

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"syscall"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
	"golang.org/x/sys/unix"
)

// File represents a regular file of the source tree. Every operation
// is a direct delegation to the real path; the overlay adds nothing.
type File struct {
	fs   *ScriptFS
	path *SourcePath
}

func (f *File) fullPath() string {
	return f.path.FullPath(f.fs.sourceDir)
}

// Attr implements the Node interface, returning the file's attributes.
func (f *File) Attr(_ context.Context, a *fuse.Attr) error {
	info, err := os.Lstat(f.fullPath())
	if err != nil {
		return ToFuseError(err)
	}

	a.Mode = info.Mode()
	a.Size = safeInt64ToUint64(info.Size())
	a.Mtime = info.ModTime()
	a.Atime = info.ModTime()
	a.Ctime = info.ModTime()
	a.Uid = f.fs.uid
	a.Gid = f.fs.gid
	a.BlockSize = 4096
	a.Blocks = safeInt64ToUint64((info.Size() + 511) / 512)

	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		a.Nlink = uint32(st.Nlink)
	}
	return nil
}

// Open implements the NodeOpener interface, opening the underlying
// source file with the caller's flags.
func (f *File) Open(_ context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fusefs.Handle, error) {
	file, err := os.OpenFile(f.fullPath(), int(req.Flags), 0)
	if err != nil {
		f.fs.log.Debug("open failed", "path", f.path.String(), "err", err)
		return nil, ToFuseError(err)
	}

	resp.Flags |= fuse.OpenDirectIO

	return &FileHandle{file: file, path: f.path.String()}, nil
}

// Setattr implements the NodeSetattrer interface, applying truncate,
// chmod, chown, and utimens requests to the real file.
func (f *File) Setattr(ctx context.Context, req *fuse.SetattrRequest, resp *fuse.SetattrResponse) error {
	full := f.fullPath()

	if req.Valid.Size() {
		if err := os.Truncate(full, int64(req.Size)); err != nil {
			return ToFuseError(err)
		}
	}
	if req.Valid.Mode() {
		if err := os.Chmod(full, req.Mode.Perm()); err != nil {
			return ToFuseError(err)
		}
	}
	if req.Valid.Uid() || req.Valid.Gid() {
		uid, gid := -1, -1
		if req.Valid.Uid() {
			uid = int(req.Uid)
		}
		if req.Valid.Gid() {
			gid = int(req.Gid)
		}
		if err := os.Lchown(full, uid, gid); err != nil {
			return ToFuseError(err)
		}
	}
	if req.Valid.Atime() || req.Valid.Mtime() {
		ts := []unix.Timespec{
			{Nsec: unix.UTIME_OMIT},
			{Nsec: unix.UTIME_OMIT},
		}
		if req.Valid.Atime() {
			ts[0] = unix.NsecToTimespec(req.Atime.UnixNano())
		}
		if req.Valid.Mtime() {
			ts[1] = unix.NsecToTimespec(req.Mtime.UnixNano())
		}
		if err := unix.UtimesNanoAt(unix.AT_FDCWD, full, ts, unix.AT_SYMLINK_NOFOLLOW); err != nil {
			return ToFuseError(err)
		}
	}

	return f.Attr(ctx, &resp.Attr)
}

// Fsync implements the NodeFsyncer interface, flushing the real file
// to stable storage.
func (f *File) Fsync(_ context.Context, _ *fuse.FsyncRequest) error {
	file, err := os.Open(f.fullPath())
	if err != nil {
		return ToFuseError(err)
	}
	defer file.Close()

	if err := file.Sync(); err != nil {
		return ToFuseError(err)
	}
	return nil
}

// Getxattr implements the NodeGetxattrer interface. Extended
// attributes are a capability of the backing filesystem; where it
// lacks them, the answer is "no such attribute" rather than an error.
func (f *File) Getxattr(_ context.Context, req *fuse.GetxattrRequest, resp *fuse.GetxattrResponse) error {
	value, err := lgetxattr(f.fullPath(), req.Name)
	if err != nil {
		if xattrMissing(err) {
			return fuse.ErrNoXattr
		}
		return ToFuseError(err)
	}
	resp.Xattr = value
	return nil
}

// Listxattr implements the NodeListxattrer interface.
func (f *File) Listxattr(_ context.Context, _ *fuse.ListxattrRequest, resp *fuse.ListxattrResponse) error {
	names, err := llistxattr(f.fullPath())
	if err != nil {
		if xattrMissing(err) {
			return nil
		}
		return ToFuseError(err)
	}
	resp.Append(names...)
	return nil
}

// Setxattr implements the NodeSetxattrer interface.
func (f *File) Setxattr(_ context.Context, req *fuse.SetxattrRequest) error {
	err := unix.Lsetxattr(f.fullPath(), req.Name, req.Xattr, int(req.Flags))
	if err != nil {
		return ToFuseError(err)
	}
	return nil
}

// Removexattr implements the NodeRemovexattrer interface.
func (f *File) Removexattr(_ context.Context, req *fuse.RemovexattrRequest) error {
	err := unix.Lremovexattr(f.fullPath(), req.Name)
	if err != nil {
		if xattrMissing(err) {
			return fuse.ErrNoXattr
		}
		return ToFuseError(err)
	}
	return nil
}

// xattrMissing reports errors that mean "no such attribute here":
// either the name is absent or the backing filesystem has no xattr
// capability at all. Both answer as absence, never as a hard error.
func xattrMissing(err error) bool {
	return errors.Is(err, unix.ENODATA) || errors.Is(err, unix.ENOTSUP) ||
		errors.Is(err, unix.EOPNOTSUPP)
}

func lgetxattr(path, name string) ([]byte, error) {
	size, err := unix.Lgetxattr(path, name, nil)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, nil
	}
	buf := make([]byte, size)
	n, err := unix.Lgetxattr(path, name, buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func llistxattr(path string) ([]string, error) {
	size, err := unix.Llistxattr(path, nil)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, nil
	}
	buf := make([]byte, size)
	n, err := unix.Llistxattr(path, buf)
	if err != nil {
		return nil, err
	}

	return splitNul(buf[:n]), nil
}

func splitNul(buf []byte) []string {
	var out []string
	start := 0
	for i, b := range buf {
		if b == 0 {
			if i > start {
				out = append(out, string(buf[start:i]))
			}
			start = i + 1
		}
	}
	if start < len(buf) {
		out = append(out, string(buf[start:]))
	}
	return out
}

// FileHandle manages access to an open file descriptor from the
// source filesystem. The mutex makes each positioned transfer atomic
// with respect to other operations on the same handle.
type FileHandle struct {
	file *os.File
	path string // For logging purposes
	mu   sync.Mutex
}

// Read implements the HandleReader interface, reading data from the file.
func (fh *FileHandle) Read(_ context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	fh.mu.Lock()
	defer fh.mu.Unlock()

	buf := make([]byte, req.Size)
	n, err := fh.file.ReadAt(buf, req.Offset)
	if err != nil && err != io.EOF {
		return ToFuseError(err)
	}
	resp.Data = buf[:n]
	return nil
}

// Write implements the HandleWriter interface, writing data to the file.
func (fh *FileHandle) Write(_ context.Context, req *fuse.WriteRequest, resp *fuse.WriteResponse) error {
	fh.mu.Lock()
	defer fh.mu.Unlock()

	n, err := fh.file.WriteAt(req.Data, req.Offset)
	resp.Size = n
	if err != nil {
		return ToFuseError(err)
	}
	return nil
}

// Flush implements the HandleFlusher interface, syncing the descriptor
// so writes reach the source tree before the handle is released.
func (fh *FileHandle) Flush(_ context.Context, _ *fuse.FlushRequest) error {
	fh.mu.Lock()
	defer fh.mu.Unlock()

	if err := fh.file.Sync(); err != nil {
		return ToFuseError(err)
	}
	return nil
}

// Release implements the HandleReleaser interface, closing the file handle.
func (fh *FileHandle) Release(_ context.Context, _ *fuse.ReleaseRequest) error {
	fh.mu.Lock()
	defer fh.mu.Unlock()

	return fh.file.Close()
}
