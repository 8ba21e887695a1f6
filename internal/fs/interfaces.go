// internal/fs/interfaces.go

package fs

import (
	fusefs "bazil.org/fuse/fs"
)

// Compile-time checks pinning each node type to the operation surface
// it is expected to serve. A capability missing here is answered by
// the transport with its "unsupported" default rather than dispatched.

var (
	_ fusefs.FS         = (*ScriptFS)(nil)
	_ fusefs.FSStatfser = (*ScriptFS)(nil)

	_ fusefs.Node               = (*Dir)(nil)
	_ fusefs.NodeStringLookuper = (*Dir)(nil)
	_ fusefs.HandleReadDirAller = (*Dir)(nil)
	_ fusefs.NodeCreater        = (*Dir)(nil)
	_ fusefs.NodeMkdirer        = (*Dir)(nil)
	_ fusefs.NodeRemover        = (*Dir)(nil)
	_ fusefs.NodeRenamer        = (*Dir)(nil)
	_ fusefs.NodeLinker         = (*Dir)(nil)
	_ fusefs.NodeSymlinker      = (*Dir)(nil)
	_ fusefs.NodeMknoder        = (*Dir)(nil)

	_ fusefs.Node              = (*File)(nil)
	_ fusefs.NodeOpener        = (*File)(nil)
	_ fusefs.NodeSetattrer     = (*File)(nil)
	_ fusefs.NodeFsyncer       = (*File)(nil)
	_ fusefs.NodeGetxattrer    = (*File)(nil)
	_ fusefs.NodeListxattrer   = (*File)(nil)
	_ fusefs.NodeSetxattrer    = (*File)(nil)
	_ fusefs.NodeRemovexattrer = (*File)(nil)

	_ fusefs.Node           = (*Symlink)(nil)
	_ fusefs.NodeReadlinker = (*Symlink)(nil)

	_ fusefs.Node              = (*ScriptFile)(nil)
	_ fusefs.NodeOpener        = (*ScriptFile)(nil)
	_ fusefs.NodeSetattrer     = (*ScriptFile)(nil)
	_ fusefs.NodeFsyncer       = (*ScriptFile)(nil)
	_ fusefs.NodeGetxattrer    = (*ScriptFile)(nil)
	_ fusefs.NodeListxattrer   = (*ScriptFile)(nil)
	_ fusefs.NodeSetxattrer    = (*ScriptFile)(nil)
	_ fusefs.NodeRemovexattrer = (*ScriptFile)(nil)

	_ fusefs.Handle         = (*FileHandle)(nil)
	_ fusefs.HandleReader   = (*FileHandle)(nil)
	_ fusefs.HandleWriter   = (*FileHandle)(nil)
	_ fusefs.HandleFlusher  = (*FileHandle)(nil)
	_ fusefs.HandleReleaser = (*FileHandle)(nil)

	_ fusefs.Handle         = (*ScriptHandle)(nil)
	_ fusefs.HandleReader   = (*ScriptHandle)(nil)
	_ fusefs.HandleFlusher  = (*ScriptHandle)(nil)
	_ fusefs.HandleReleaser = (*ScriptHandle)(nil)
)
