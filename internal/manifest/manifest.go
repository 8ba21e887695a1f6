// Package manifest loads the per-directory configuration file that
// declares virtual script-backed files. Any directory in the source
// tree may carry a manifest; its absence is equivalent to declaring
// no virtual files at all.
package manifest

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Filename is the manifest file name looked for in every directory.
const Filename = ".config.yml"

// Cache method names accepted in a manifest cache spec.
const (
	MethodStat = "stat"
	MethodTime = "time"
)

// CacheSpec selects and parameterizes the cache policy for one entry.
type CacheSpec struct {
	// Method is the policy name: "stat" re-runs the script when the
	// watched path's mtime changes, "time" debounces re-runs.
	Method string `yaml:"method"`

	// Path is the watched path for the stat method, resolved
	// relative to the manifest's directory.
	Path string `yaml:"path"`

	// Recurse widens the stat method to the maximum mtime of the
	// watched path and every directory beneath it.
	Recurse bool `yaml:"recurse"`

	// Seconds is the debounce window for the time method.
	// Zero means the default one-second window.
	Seconds float64 `yaml:"seconds"`
}

// Entry declares one virtual file inside a directory.
type Entry struct {
	// Filename is the name the virtual file appears under. It must
	// be unique within one manifest; on duplicates the first entry
	// wins.
	Filename string `yaml:"filename"`

	// OutScript is the shell command whose standard output becomes
	// the file's content.
	OutScript string `yaml:"out_script"`

	// Workdir is the working directory for the script. Empty means
	// the manifest's own directory. Relative paths are resolved
	// against the manifest's directory.
	Workdir string `yaml:"workdir"`

	// Env holds environment overrides applied on top of the process
	// environment when the script runs.
	Env map[string]string `yaml:"env"`

	// Cache selects the cache policy. Nil means no caching: the
	// script runs on every read.
	Cache *CacheSpec `yaml:"cache"`
}

// WorkdirIn resolves the entry's working directory against the
// directory holding its manifest.
func (e Entry) WorkdirIn(dir string) string {
	if e.Workdir == "" {
		return dir
	}
	if filepath.IsAbs(e.Workdir) {
		return e.Workdir
	}
	return filepath.Join(dir, e.Workdir)
}

// WatchPathIn resolves the cache spec's watched path against the
// directory holding its manifest.
func (c *CacheSpec) WatchPathIn(dir string) string {
	if filepath.IsAbs(c.Path) {
		return c.Path
	}
	return filepath.Join(dir, c.Path)
}

// Load reads the manifest of dir. A missing manifest file yields an
// empty entry list and no error; a malformed one is an error. Entries
// missing required fields are dropped with a warning so one bad entry
// cannot take the whole directory down.
func Load(dir string) ([]Entry, error) {
	raw, err := os.ReadFile(filepath.Join(dir, Filename))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading manifest in %s: %w", dir, err)
	}

	var entries []Entry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parsing manifest in %s: %w", dir, err)
	}

	valid := entries[:0]
	for _, e := range entries {
		if e.Filename == "" || e.OutScript == "" {
			slog.Warn("Ignoring incomplete manifest entry",
				"dir", dir, "filename", e.Filename)
			continue
		}
		valid = append(valid, e)
	}
	return valid, nil
}

// Lookup returns the first entry declaring name.
func Lookup(entries []Entry, name string) (Entry, bool) {
	for _, e := range entries {
		if e.Filename == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Filenames returns the declared virtual file names in manifest order.
func Filenames(entries []Entry) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Filename)
	}
	return names
}
