// Package cache decides when a virtual file's script is re-run versus
// served from a stored result. Each manifest entry owns exactly one
// policy instance for the lifetime of the mount; the stored value is
// never shared between entries.
package cache

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"scriptfs/internal/clock"
	"scriptfs/internal/manifest"
)

// DefaultDebounceWindow is the time-method window used when the
// manifest does not give one.
const DefaultDebounceWindow = time.Second

// Policy gates script execution. Content either returns the stored
// value or calls generate, stores its result, and returns it. Stateful
// policies serialize the check-generate-store sequence, so concurrent
// misses for one entry produce a single script run and late arrivals
// reuse its result.
type Policy interface {
	Content(generate func() []byte) []byte
}

// PassThrough runs the script on every call. It is the policy for
// entries with no cache spec.
type PassThrough struct{}

func (PassThrough) Content(generate func() []byte) []byte {
	return generate()
}

// MtimeWatch re-runs the script whenever the modification time of a
// watched path changes. With recurse set, the witness is the maximum
// mtime over the watched path and every directory beneath it, so a
// touched file anywhere in the tree bumps its parent directory and
// invalidates the entry.
type MtimeWatch struct {
	path    string
	recurse bool

	mu    sync.Mutex
	mtime time.Time
	valid bool
	value []byte
}

// NewMtimeWatch returns a policy watching path, which must already be
// resolved to an absolute location.
func NewMtimeWatch(path string, recurse bool) *MtimeWatch {
	return &MtimeWatch{path: path, recurse: recurse}
}

func (c *MtimeWatch) Content(generate func() []byte) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	mtime, err := c.modTime()
	if err == nil && c.valid && mtime.Equal(c.mtime) {
		return c.value
	}

	c.value = generate()
	c.mtime = mtime
	// A stat failure counts as a change: the next call re-checks
	// rather than trusting a witness we could not compute.
	c.valid = err == nil
	return c.value
}

func (c *MtimeWatch) modTime() (time.Time, error) {
	info, err := os.Stat(c.path)
	if err != nil {
		return time.Time{}, err
	}
	// The watched path itself is always part of the witness; a plain
	// file with recurse set degenerates to watching that file.
	if !c.recurse || !info.IsDir() {
		return info.ModTime(), nil
	}

	max := info.ModTime()
	err = filepath.WalkDir(c.path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(max) {
			max = info.ModTime()
		}
		return nil
	})
	return max, err
}

// TimeDebounce coalesces bursts of reads: the script re-runs only when
// more than the window has elapsed since the last run.
type TimeDebounce struct {
	window time.Duration
	clk    clock.Clock

	mu      sync.Mutex
	lastRun time.Time
	valid   bool
	value   []byte
}

// NewTimeDebounce returns a debouncing policy. A zero or negative
// window falls back to DefaultDebounceWindow.
func NewTimeDebounce(window time.Duration, clk clock.Clock) *TimeDebounce {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &TimeDebounce{window: window, clk: clk}
}

func (c *TimeDebounce) Content(generate func() []byte) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clk.Now()
	if c.valid && now.Sub(c.lastRun) <= c.window {
		return c.value
	}

	c.value = generate()
	c.lastRun = now
	c.valid = true
	return c.value
}

// FromSpec builds the policy for one manifest entry. manifestDir is
// the directory holding the manifest, used to resolve relative watch
// paths. A nil spec means no caching.
func FromSpec(spec *manifest.CacheSpec, manifestDir string, clk clock.Clock) Policy {
	if spec == nil {
		return PassThrough{}
	}
	switch spec.Method {
	case manifest.MethodStat:
		return NewMtimeWatch(spec.WatchPathIn(manifestDir), spec.Recurse)
	case manifest.MethodTime:
		window := time.Duration(spec.Seconds * float64(time.Second))
		return NewTimeDebounce(window, clk)
	default:
		slog.Warn("Unknown cache method, caching disabled",
			"method", spec.Method, "dir", manifestDir)
		return PassThrough{}
	}
}
