package fs

import (
	"context"
	"testing"

	"bazil.org/fuse"

	"scriptfs/internal/manifest"
)

func TestStatfs(t *testing.T) {
	vfs, _ := setupTestFS(t)

	resp := &fuse.StatfsResponse{}
	if err := vfs.Statfs(context.Background(), &fuse.StatfsRequest{}, resp); err != nil {
		t.Fatalf("Statfs failed: %v", err)
	}
	if resp.Blocks == 0 {
		t.Error("Statfs should report the backing filesystem's blocks")
	}
	if resp.Bsize == 0 {
		t.Error("Statfs should report a block size")
	}
}

func TestPolicyRegistry(t *testing.T) {
	vfs, _ := setupTestFS(t)

	spec := &manifest.CacheSpec{Method: manifest.MethodStat, Path: "watched"}

	first := vfs.policyFor("/src/dir/v.txt", spec, "/src/dir")
	second := vfs.policyFor("/src/dir/v.txt", spec, "/src/dir")
	if first != second {
		t.Error("Same key must return the same policy instance")
	}

	// Distinct entries watching the same path still get their own
	// policy, so cached values are never shared between entries.
	other := vfs.policyFor("/src/dir/w.txt", spec, "/src/dir")
	if other == first {
		t.Error("Distinct keys must not share a policy instance")
	}
}

func TestNewScriptFSRejectsMissingSource(t *testing.T) {
	if _, err := NewScriptFS("/definitely/not/there", t.TempDir()); err == nil {
		t.Error("Expected an error for an unreadable source directory")
	}
}
