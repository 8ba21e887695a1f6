package fs

import (
	"context"
	"path/filepath"
	"strings"

	fusefs "bazil.org/fuse/fs"
)

// SourcePath represents a path in the underlying source filesystem.
// All paths are stored relative to the source root directory.
type SourcePath struct {
	// relative path from source root; empty for the root itself
	path string
}

// NewSourcePath creates a new SourcePath instance.
// It cleans the path and ensures it's relative to the source root.
func NewSourcePath(path string) *SourcePath {
	cleaned := filepath.Clean(path)
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "." {
		cleaned = ""
	}
	return &SourcePath{path: cleaned}
}

// String returns the string representation of the path
func (sp *SourcePath) String() string {
	return sp.path
}

// FullPath returns the absolute path by joining with the source root
func (sp *SourcePath) FullPath(sourceRoot string) string {
	return filepath.Join(sourceRoot, sp.path)
}

// Child returns a SourcePath for the named entry beneath this path
func (sp *SourcePath) Child(name string) *SourcePath {
	if sp.path == "" {
		return NewSourcePath(name)
	}
	return NewSourcePath(sp.path + "/" + name)
}

// Parent returns a SourcePath representing the parent directory
func (sp *SourcePath) Parent() *SourcePath {
	parent := filepath.Dir(sp.path)
	if parent == "." {
		parent = ""
	}
	return NewSourcePath(parent)
}

// Base returns the last element of the path
func (sp *SourcePath) Base() string {
	if sp.path == "" {
		return "/"
	}
	return filepath.Base(sp.path)
}

// IsRoot returns true if this is the source root itself
func (sp *SourcePath) IsRoot() bool {
	return sp.path == ""
}

// Resolve walks a slash-separated path from the mount root and returns
// the node for its final segment, descending through directories with
// the same real-entry-first, manifest-second rule the kernel-driven
// lookup uses. Empty segments are skipped, so "/a//b" and "a/b"
// resolve identically.
func Resolve(ctx context.Context, sfs *ScriptFS, path string) (fusefs.Node, error) {
	node, err := sfs.Root()
	if err != nil {
		return nil, err
	}

	for _, segment := range strings.Split(path, "/") {
		if segment == "" || segment == "." {
			continue
		}
		dir, ok := node.(*Dir)
		if !ok {
			return nil, NewFSError(OpLookup, path, ErrNotDirectory)
		}
		node, err = dir.Lookup(ctx, segment)
		if err != nil {
			return nil, err
		}
	}
	return node, nil
}
