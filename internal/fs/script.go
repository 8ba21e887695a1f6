package fs

import (
	"context"
	"syscall"
	"time"

	"scriptfs/internal/cache"
	"scriptfs/internal/script"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
)

// scriptEpoch is the fixed timestamp reported for all virtual files.
var scriptEpoch = time.Unix(0, 0)

// ScriptFile is a virtual file declared by a manifest entry. Its
// content is the captured stdout of a shell command, gated by the
// entry's cache policy. The node itself is immutable and rebuilt on
// every resolution; only the policy (held in the mount registry)
// carries state between resolutions.
type ScriptFile struct {
	fs      *ScriptFS
	path    *SourcePath
	command string
	workdir string
	env     map[string]string
	policy  cache.Policy
}

// content produces the current bytes, consulting the cache policy and
// running the script only on a miss. The mount point is exported to
// the script as ROOT.
func (f *ScriptFile) content() []byte {
	runner := &script.Runner{
		Command: f.command,
		Workdir: f.workdir,
		Env:     f.env,
		Root:    f.fs.mountPoint,
	}
	return f.policy.Content(runner.Output)
}

// Attr implements the Node interface. Virtual files are regular,
// owner-readable only, with synthetic timestamps fixed at the epoch
// and a size equal to the current content length.
func (f *ScriptFile) Attr(_ context.Context, a *fuse.Attr) error {
	a.Mode = 0o400
	a.Nlink = 1
	a.Size = safeIntToUint64(len(f.content()))
	a.Atime = scriptEpoch
	a.Mtime = scriptEpoch
	a.Ctime = scriptEpoch
	a.Uid = f.fs.uid
	a.Gid = f.fs.gid
	return nil
}

// Open implements the NodeOpener interface. Opening for read always
// succeeds with a sentinel handle; no descriptor exists. Write intent
// is refused. DirectIO keeps the kernel from trusting a size that may
// change between generations.
func (f *ScriptFile) Open(_ context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fusefs.Handle, error) {
	if req.Flags&fuse.OpenAccessModeMask != fuse.OpenReadOnly {
		return nil, syscall.EPERM
	}
	resp.Flags |= fuse.OpenDirectIO
	return &ScriptHandle{file: f}, nil
}

// Setattr implements the NodeSetattrer interface. Every attribute
// mutation (truncate, chmod, chown, utimens) is refused: virtual
// files are read-only and the attempt leaves cached state untouched.
func (f *ScriptFile) Setattr(_ context.Context, _ *fuse.SetattrRequest, _ *fuse.SetattrResponse) error {
	return syscall.EPERM
}

// Fsync implements the NodeFsyncer interface as a no-op; there is no
// backing storage to flush.
func (f *ScriptFile) Fsync(_ context.Context, _ *fuse.FsyncRequest) error {
	return nil
}

// Getxattr implements the NodeGetxattrer interface. Virtual files
// carry no extended attributes.
func (f *ScriptFile) Getxattr(_ context.Context, _ *fuse.GetxattrRequest, _ *fuse.GetxattrResponse) error {
	return fuse.ErrNoXattr
}

// Listxattr implements the NodeListxattrer interface.
func (f *ScriptFile) Listxattr(_ context.Context, _ *fuse.ListxattrRequest, _ *fuse.ListxattrResponse) error {
	return nil
}

// Setxattr implements the NodeSetxattrer interface.
func (f *ScriptFile) Setxattr(_ context.Context, _ *fuse.SetxattrRequest) error {
	return syscall.EPERM
}

// Removexattr implements the NodeRemovexattrer interface.
func (f *ScriptFile) Removexattr(_ context.Context, _ *fuse.RemovexattrRequest) error {
	return syscall.EPERM
}

// ScriptHandle is the sentinel handle for an open virtual file. There
// is no descriptor behind it, so flush and release trivially succeed.
type ScriptHandle struct {
	file *ScriptFile
}

// Read implements the HandleReader interface, serving the requested
// slice of the generated content. Offsets at or past the end yield an
// empty result, never an error; short tails are clipped.
func (h *ScriptHandle) Read(_ context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	content := h.file.content()

	if req.Offset >= int64(len(content)) {
		resp.Data = nil
		return nil
	}

	end := req.Offset + int64(req.Size)
	if end > int64(len(content)) {
		end = int64(len(content))
	}
	resp.Data = content[req.Offset:end]
	return nil
}

// Flush implements the HandleFlusher interface as a no-op.
func (h *ScriptHandle) Flush(_ context.Context, _ *fuse.FlushRequest) error {
	return nil
}

// Release implements the HandleReleaser interface as a no-op.
func (h *ScriptHandle) Release(_ context.Context, _ *fuse.ReleaseRequest) error {
	return nil
}
