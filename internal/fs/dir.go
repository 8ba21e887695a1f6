package fs

import (
	"context"
	"os"
	"path/filepath"
	"syscall"

	"scriptfs/internal/manifest"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
	"golang.org/x/sys/unix"
)

// Dir represents a real directory of the source tree. Lookups prefer
// physical children; names that only exist in the directory's manifest
// resolve to script-backed virtual files. The manifest is re-read on
// every resolution so edits take effect without remounting.
type Dir struct {
	fs   *ScriptFS
	path *SourcePath
}

func (d *Dir) fullPath() string {
	return d.path.FullPath(d.fs.sourceDir)
}

// entries loads the directory's manifest. A broken manifest is logged
// and treated as empty so the real tree stays browsable.
func (d *Dir) entries() []manifest.Entry {
	entries, err := manifest.Load(d.fullPath())
	if err != nil {
		d.fs.log.Warn("Manifest unreadable, ignoring",
			"dir", d.path.String(), "err", err)
		return nil
	}
	return entries
}

// Attr implements the Node interface, returning directory attributes.
func (d *Dir) Attr(_ context.Context, a *fuse.Attr) error {
	info, err := os.Stat(d.fullPath())
	if err != nil {
		return ToFuseError(err)
	}

	a.Mode = info.Mode()
	a.Size = safeInt64ToUint64(info.Size())
	a.Mtime = info.ModTime()
	a.Atime = info.ModTime()
	a.Ctime = info.ModTime()
	a.Uid = d.fs.uid
	a.Gid = d.fs.gid
	return nil
}

// Lookup implements the NodeStringLookuper interface, finding a child
// node. A physical entry always wins over a manifest entry of the same
// name; names matching neither fail with ENOENT.
func (d *Dir) Lookup(_ context.Context, name string) (fusefs.Node, error) {
	childPath := d.path.Child(name)
	full := childPath.FullPath(d.fs.sourceDir)

	info, err := os.Lstat(full)
	if err == nil {
		switch {
		case info.IsDir():
			return &Dir{fs: d.fs, path: childPath}, nil
		case info.Mode()&os.ModeSymlink != 0:
			return &Symlink{fs: d.fs, path: childPath}, nil
		default:
			return &File{fs: d.fs, path: childPath}, nil
		}
	}
	if !os.IsNotExist(err) {
		d.fs.log.Error("lstat failed", "path", childPath.String(), "err", err)
		return nil, ToFuseError(err)
	}

	if entry, ok := manifest.Lookup(d.entries(), name); ok {
		d.fs.log.Debug("Resolved virtual file",
			"path", childPath.String(), "script", entry.OutScript)
		return d.scriptNode(entry), nil
	}

	return nil, ToFuseError(NewFSError(OpLookup, childPath.String(), ErrNotFound))
}

// scriptNode builds the virtual node for one manifest entry, wiring in
// the entry's long-lived cache policy from the mount registry.
func (d *Dir) scriptNode(entry manifest.Entry) *ScriptFile {
	dirFull := d.fullPath()
	key := filepath.Join(dirFull, entry.Filename)
	return &ScriptFile{
		fs:      d.fs,
		path:    d.path.Child(entry.Filename),
		command: entry.OutScript,
		workdir: entry.WorkdirIn(dirFull),
		env:     entry.Env,
		policy:  d.fs.policyFor(key, entry.Cache, dirFull),
	}
}

// ReadDirAll implements the HandleReadDirAller interface, listing the
// physical entries followed by the manifest's virtual filenames.
// Virtual names shadowed by a real entry are not listed twice.
func (d *Dir) ReadDirAll(_ context.Context) ([]fuse.Dirent, error) {
	real, err := os.ReadDir(d.fullPath())
	if err != nil {
		return nil, ToFuseError(err)
	}

	entries := []fuse.Dirent{
		{Name: ".", Type: fuse.DT_Dir},
		{Name: "..", Type: fuse.DT_Dir},
	}

	seen := make(map[string]bool, len(real))
	for _, e := range real {
		seen[e.Name()] = true
		entries = append(entries, fuse.Dirent{
			Name: e.Name(),
			Type: direntType(e.Type()),
		})
	}

	for _, name := range manifest.Filenames(d.entries()) {
		if seen[name] {
			continue
		}
		seen[name] = true
		entries = append(entries, fuse.Dirent{Name: name, Type: fuse.DT_File})
	}

	return entries, nil
}

func direntType(mode os.FileMode) fuse.DirentType {
	switch {
	case mode.IsDir():
		return fuse.DT_Dir
	case mode&os.ModeSymlink != 0:
		return fuse.DT_Link
	case mode&os.ModeNamedPipe != 0:
		return fuse.DT_FIFO
	case mode&os.ModeSocket != 0:
		return fuse.DT_Socket
	case mode&os.ModeCharDevice != 0:
		return fuse.DT_Char
	case mode&os.ModeDevice != 0:
		return fuse.DT_Block
	default:
		return fuse.DT_File
	}
}

// isVirtual reports whether name exists only as a manifest entry in
// this directory. Used by the mutating operations: a virtual name is
// part of the read-only namespace and cannot be created over, removed,
// renamed, or renamed onto.
func (d *Dir) isVirtual(name string) bool {
	if _, err := os.Lstat(d.path.Child(name).FullPath(d.fs.sourceDir)); err == nil {
		return false
	}
	_, ok := manifest.Lookup(d.entries(), name)
	return ok
}

// virtualGuard returns the EPERM-mapped read-only error when name is a
// virtual entry of this directory, nil otherwise.
func (d *Dir) virtualGuard(op, name string) error {
	if d.isVirtual(name) {
		return ToFuseError(NewFSError(op, d.path.Child(name).String(), ErrVirtualReadOnly))
	}
	return nil
}

// Create implements the NodeCreater interface, creating a real file in
// the source directory.
func (d *Dir) Create(_ context.Context, req *fuse.CreateRequest, resp *fuse.CreateResponse) (fusefs.Node, fusefs.Handle, error) {
	if err := d.virtualGuard(OpCreate, req.Name); err != nil {
		return nil, nil, err
	}

	childPath := d.path.Child(req.Name)
	full := childPath.FullPath(d.fs.sourceDir)

	file, err := os.OpenFile(full, int(req.Flags), req.Mode.Perm())
	if err != nil {
		d.fs.log.Error("create failed", "path", childPath.String(), "err", err)
		return nil, nil, ToFuseError(err)
	}

	resp.Flags |= fuse.OpenDirectIO

	node := &File{fs: d.fs, path: childPath}
	handle := &FileHandle{file: file, path: childPath.String()}
	return node, handle, nil
}

// Mkdir implements the NodeMkdirer interface, creating a real
// directory in the source tree.
func (d *Dir) Mkdir(_ context.Context, req *fuse.MkdirRequest) (fusefs.Node, error) {
	if err := d.virtualGuard(OpMkdir, req.Name); err != nil {
		return nil, err
	}

	childPath := d.path.Child(req.Name)
	if err := os.Mkdir(childPath.FullPath(d.fs.sourceDir), req.Mode.Perm()); err != nil {
		return nil, ToFuseError(err)
	}
	return &Dir{fs: d.fs, path: childPath}, nil
}

// Remove implements the NodeRemover interface, unlinking a real file
// or removing a real directory.
func (d *Dir) Remove(_ context.Context, req *fuse.RemoveRequest) error {
	if err := d.virtualGuard(OpRemove, req.Name); err != nil {
		return err
	}

	full := d.path.Child(req.Name).FullPath(d.fs.sourceDir)
	if req.Dir {
		return ToFuseError(unix.Rmdir(full))
	}
	return ToFuseError(unix.Unlink(full))
}

// Rename implements the NodeRenamer interface, moving a real entry.
// Virtual files cannot be moved, and a real entry cannot be renamed
// onto a virtual name; manifest names stay out of reach either way.
func (d *Dir) Rename(_ context.Context, req *fuse.RenameRequest, newDir fusefs.Node) error {
	target, ok := newDir.(*Dir)
	if !ok {
		return syscall.EINVAL
	}

	if err := d.virtualGuard(OpRename, req.OldName); err != nil {
		return err
	}
	if err := target.virtualGuard(OpRename, req.NewName); err != nil {
		return err
	}

	oldFull := d.path.Child(req.OldName).FullPath(d.fs.sourceDir)
	newFull := target.path.Child(req.NewName).FullPath(d.fs.sourceDir)
	return ToFuseError(os.Rename(oldFull, newFull))
}

// Link implements the NodeLinker interface, hard-linking a real file.
func (d *Dir) Link(_ context.Context, req *fuse.LinkRequest, old fusefs.Node) (fusefs.Node, error) {
	source, ok := old.(*File)
	if !ok {
		// Virtual files have no underlying inode to link to.
		return nil, syscall.EPERM
	}
	if err := d.virtualGuard(OpLink, req.NewName); err != nil {
		return nil, err
	}

	childPath := d.path.Child(req.NewName)
	oldFull := source.path.FullPath(d.fs.sourceDir)
	if err := os.Link(oldFull, childPath.FullPath(d.fs.sourceDir)); err != nil {
		return nil, ToFuseError(err)
	}
	return &File{fs: d.fs, path: childPath}, nil
}

// Symlink implements the NodeSymlinker interface, creating a real
// symlink in the source tree.
func (d *Dir) Symlink(_ context.Context, req *fuse.SymlinkRequest) (fusefs.Node, error) {
	if err := d.virtualGuard(OpSymlink, req.NewName); err != nil {
		return nil, err
	}

	childPath := d.path.Child(req.NewName)
	if err := os.Symlink(req.Target, childPath.FullPath(d.fs.sourceDir)); err != nil {
		return nil, ToFuseError(err)
	}
	return &Symlink{fs: d.fs, path: childPath}, nil
}

// Mknod implements the NodeMknoder interface, creating a special file
// in the source tree.
func (d *Dir) Mknod(_ context.Context, req *fuse.MknodRequest) (fusefs.Node, error) {
	if err := d.virtualGuard(OpMknod, req.Name); err != nil {
		return nil, err
	}

	childPath := d.path.Child(req.Name)
	full := childPath.FullPath(d.fs.sourceDir)
	if err := unix.Mknod(full, unixMode(req.Mode), int(req.Rdev)); err != nil {
		return nil, ToFuseError(err)
	}
	return &File{fs: d.fs, path: childPath}, nil
}
