// Package fs provides the overlay filesystem implementation.
//
// This file contains error types and error handling utilities.
package fs

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

var (
	// ErrNotFound indicates a path that resolves to neither a real
	// entry nor a manifest entry
	ErrNotFound = errors.New("path not found")

	// ErrNotDirectory indicates a lookup descending through a
	// non-directory segment
	ErrNotDirectory = errors.New("not a directory")

	// ErrVirtualReadOnly indicates a mutating operation on a
	// script-backed virtual file
	ErrVirtualReadOnly = errors.New("virtual file is read-only")
)

// Error wraps filesystem errors with context about the operation and
// affected path to provide more detailed error information.
type Error struct {
	Op   string // Operation that failed (e.g., "lookup", "read")
	Path string // Affected path
	Err  error  // Underlying error
}

// Error implements the error interface, providing a formatted error message
func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("operation %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("operation %s on %s failed: %v", e.Op, e.Path, e.Err)
}

// Unwrap implements error unwrapping for the errors.Is/As functions
func (e *Error) Unwrap() error {
	return e.Err
}

// NewFSError creates a new Error with the given operation, path, and
// underlying error
func NewFSError(op string, path string, err error) *Error {
	return &Error{Op: op, Path: path, Err: err}
}

// ToFuseError translates an error into the syscall errno the FUSE
// transport hands back to the kernel. OS-level errors pass through
// with their native errno; internal sentinels map to their semantic
// equivalent; anything unrecognized becomes EIO.
func ToFuseError(err error) error {
	if err == nil {
		return nil
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return syscall.ENOENT
	case errors.Is(err, ErrNotDirectory):
		return syscall.ENOTDIR
	case errors.Is(err, ErrVirtualReadOnly):
		return syscall.EPERM
	case errors.Is(err, os.ErrNotExist):
		return syscall.ENOENT
	case errors.Is(err, os.ErrPermission):
		return syscall.EACCES
	default:
		return syscall.EIO
	}
}

// Common operation names for consistent logging and error reporting
const (
	OpLookup  = "lookup"
	OpReadDir = "readdir"
	OpOpen    = "open"
	OpRead    = "read"
	OpWrite   = "write"
	OpCreate  = "create"
	OpMkdir   = "mkdir"
	OpRemove  = "remove"
	OpRename  = "rename"
	OpLink    = "link"
	OpSymlink = "symlink"
	OpMknod   = "mknod"
	OpSetattr = "setattr"
	OpGetattr = "getattr"
)
