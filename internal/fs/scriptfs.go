package fs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"scriptfs/internal/cache"
	"scriptfs/internal/clock"
	"scriptfs/internal/logging"
	"scriptfs/internal/manifest"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
	"golang.org/x/sys/unix"
)

// ScriptFS is the core overlay filesystem. It exposes the source
// directory unchanged, except that directories carrying a manifest
// gain script-backed virtual files. One instance lives for the whole
// mount; it owns the cache-policy registry shared by all virtual
// nodes, keyed by the virtual file's source-side path so that a
// policy and its stored value stay private to one manifest entry.
type ScriptFS struct {
	sourceDir  string // Root directory of source files
	mountPoint string // Where the overlay is exposed; injected as ROOT
	uid        uint32 // User ID reported for synthetic attributes
	gid        uint32 // Group ID reported for synthetic attributes
	clk        clock.Clock
	log        *slog.Logger

	mu       sync.Mutex
	policies map[string]cache.Policy
}

// NewScriptFS creates the overlay over sourceDir, to be exposed at
// mountPoint. The source directory must exist and be readable.
func NewScriptFS(sourceDir, mountPoint string) (*ScriptFS, error) {
	log := logging.Component("fs")

	absSource, err := filepath.Abs(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("resolving source directory: %w", err)
	}
	absMount, err := filepath.Abs(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("resolving mount point: %w", err)
	}

	if _, err := os.ReadDir(absSource); err != nil {
		return nil, fmt.Errorf("source directory not readable: %w", err)
	}

	// Get UID/GID from environment if set
	uid := safeIntToUint32(os.Getuid())
	gid := safeIntToUint32(os.Getgid())
	if puidStr := os.Getenv("PUID"); puidStr != "" {
		if puid, err := strconv.ParseUint(puidStr, 10, 32); err == nil {
			uid = uint32(puid)
		}
	}
	if pgidStr := os.Getenv("PGID"); pgidStr != "" {
		if pgid, err := strconv.ParseUint(pgidStr, 10, 32); err == nil {
			gid = uint32(pgid)
		}
	}

	log.Debug("Creating overlay filesystem",
		"source", absSource, "mount", absMount, "uid", uid, "gid", gid)

	return &ScriptFS{
		sourceDir:  absSource,
		mountPoint: absMount,
		uid:        uid,
		gid:        gid,
		clk:        clock.Real(),
		log:        log,
		policies:   make(map[string]cache.Policy),
	}, nil
}

// MountPoint returns the absolute path the overlay is exposed at.
func (sfs *ScriptFS) MountPoint() string {
	return sfs.mountPoint
}

// Root implements the fusefs.FS interface, returning the root directory node.
func (sfs *ScriptFS) Root() (fusefs.Node, error) {
	return &Dir{fs: sfs, path: NewSourcePath("")}, nil
}

// Statfs implements the fusefs.FSStatfser interface, reporting the
// statistics of the filesystem backing the source directory.
func (sfs *ScriptFS) Statfs(_ context.Context, _ *fuse.StatfsRequest, resp *fuse.StatfsResponse) error {
	var st unix.Statfs_t
	if err := unix.Statfs(sfs.sourceDir, &st); err != nil {
		sfs.log.Error("statfs failed", "path", sfs.sourceDir, "err", err)
		return ToFuseError(err)
	}

	resp.Blocks = st.Blocks
	resp.Bfree = st.Bfree
	resp.Bavail = st.Bavail
	resp.Files = st.Files
	resp.Ffree = st.Ffree
	resp.Bsize = uint32(st.Bsize)
	resp.Namelen = uint32(st.Namelen)
	resp.Frsize = uint32(st.Frsize)
	return nil
}

// policyFor returns the cache policy for the virtual file at key,
// creating it from spec on first use. The registry lives as long as
// the mount, so a policy's stored value survives across resolutions
// of the same entry.
func (sfs *ScriptFS) policyFor(key string, spec *manifest.CacheSpec, manifestDir string) cache.Policy {
	sfs.mu.Lock()
	defer sfs.mu.Unlock()

	if p, ok := sfs.policies[key]; ok {
		return p
	}
	p := cache.FromSpec(spec, manifestDir, sfs.clk)
	sfs.policies[key] = p
	return p
}

// MountOptions returns the FUSE mount options for this overlay.
func (sfs *ScriptFS) MountOptions() []fuse.MountOption {
	return []fuse.MountOption{
		fuse.FSName("scriptfs"),
		fuse.Subtype("scriptfs"),
		fuse.AllowNonEmptyMount(),
	}
}
