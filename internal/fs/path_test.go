package fs

import (
	"context"
	"errors"
	"syscall"
	"testing"

	"bazil.org/fuse"

	"scriptfs/internal/manifest"
)

func TestSourcePath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Simple", "foo/bar", "foo/bar"},
		{"LeadingSlash", "/foo/bar", "foo/bar"},
		{"Cleaned", "foo//bar/../baz", "foo/baz"},
		{"Root", "/", ""},
		{"Dot", ".", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp := NewSourcePath(tt.input)
			if sp.String() != tt.expected {
				t.Errorf("NewSourcePath(%q) = %q, want %q", tt.input, sp.String(), tt.expected)
			}
		})
	}
}

func TestSourcePathNavigation(t *testing.T) {
	sp := NewSourcePath("a/b/c")

	if got := sp.Base(); got != "c" {
		t.Errorf("Base = %q", got)
	}
	if got := sp.Parent().String(); got != "a/b" {
		t.Errorf("Parent = %q", got)
	}
	if got := sp.Child("d").String(); got != "a/b/c/d" {
		t.Errorf("Child = %q", got)
	}

	root := NewSourcePath("")
	if !root.IsRoot() {
		t.Error("Empty path should be root")
	}
	if got := root.Child("x").String(); got != "x" {
		t.Errorf("Root child = %q", got)
	}
	if got := root.FullPath("/src"); got != "/src" {
		t.Errorf("Root full path = %q", got)
	}
	if got := sp.FullPath("/src"); got != "/src/a/b/c" {
		t.Errorf("Full path = %q", got)
	}
}

func TestResolve(t *testing.T) {
	vfs, sourceDir := setupTestFS(t)
	ctx := context.Background()

	writeSourceFile(t, sourceDir, "a.txt", "real")
	writeSourceFile(t, sourceDir, "sub/"+manifest.Filename, `
- filename: v.txt
  out_script: echo virtual
`)

	t.Run("Root", func(t *testing.T) {
		node, err := Resolve(ctx, vfs, "/")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if _, ok := node.(*Dir); !ok {
			t.Errorf("Expected *Dir, got %T", node)
		}
	})

	t.Run("RealFile", func(t *testing.T) {
		node, err := Resolve(ctx, vfs, "/a.txt")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if _, ok := node.(*File); !ok {
			t.Errorf("Expected *File, got %T", node)
		}
	})

	t.Run("NestedVirtual", func(t *testing.T) {
		node, err := Resolve(ctx, vfs, "/sub/v.txt")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if _, ok := node.(*ScriptFile); !ok {
			t.Errorf("Expected *ScriptFile, got %T", node)
		}
	})

	t.Run("EmptySegmentsSkipped", func(t *testing.T) {
		node, err := Resolve(ctx, vfs, "sub//v.txt")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if _, ok := node.(*ScriptFile); !ok {
			t.Errorf("Expected *ScriptFile, got %T", node)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		if _, err := Resolve(ctx, vfs, "/ghost"); err != syscall.ENOENT {
			t.Errorf("Expected ENOENT, got %v", err)
		}
	})

	t.Run("ThroughNonDirectory", func(t *testing.T) {
		_, err := Resolve(ctx, vfs, "/a.txt/child")
		if !errors.Is(err, ErrNotDirectory) {
			t.Errorf("Expected ErrNotDirectory, got %v", err)
		}
		if ToFuseError(err) != syscall.ENOTDIR {
			t.Errorf("Should map to ENOTDIR, got %v", ToFuseError(err))
		}
	})
}

func TestEndToEnd(t *testing.T) {
	// A source tree with one real file and a manifest declaring one
	// virtual file, exercised through listing and both read paths.
	vfs, sourceDir := setupTestFS(t)
	ctx := context.Background()

	writeSourceFile(t, sourceDir, "a.txt", "real bytes\n")
	writeSourceFile(t, sourceDir, manifest.Filename, `
- filename: b.txt
  out_script: echo hello
`)

	entries, err := rootDir(t, vfs).ReadDirAll(ctx)
	if err != nil {
		t.Fatalf("ReadDirAll failed: %v", err)
	}
	found := map[string]bool{}
	for _, e := range entries {
		found[e.Name] = true
	}
	if !found["a.txt"] || !found["b.txt"] {
		t.Errorf("Listing should contain a.txt and b.txt: %v", found)
	}

	virtual := lookupScript(t, vfs, "b.txt")
	h := openScript(t, virtual)
	if got := string(readAt(t, h, 0, 4096)); got != "hello\n" {
		t.Errorf("Virtual read = %q, want %q", got, "hello\n")
	}

	real := lookupFile(t, vfs, "a.txt")
	handle, err := real.Open(ctx, &fuse.OpenRequest{}, &fuse.OpenResponse{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	resp := &fuse.ReadResponse{}
	if err := handle.(*FileHandle).Read(ctx, &fuse.ReadRequest{Offset: 0, Size: 4096}, resp); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(resp.Data) != "real bytes\n" {
		t.Errorf("Real read = %q", resp.Data)
	}
}
