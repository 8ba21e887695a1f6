package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, Filename), []byte(content), 0o644))
}

func TestLoadMissingManifest(t *testing.T) {
	dir := t.TempDir()

	entries, err := Load(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestLoadFullEntry(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
- filename: report.txt
  out_script: "generate-report --full"
  workdir: src
  env:
    LANG: C
    MODE: fast
  cache:
    method: stat
    path: src/data
    recurse: true
`)

	entries, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	require.Equal(t, "report.txt", e.Filename)
	require.Equal(t, "generate-report --full", e.OutScript)
	require.Equal(t, map[string]string{"LANG": "C", "MODE": "fast"}, e.Env)
	require.Equal(t, filepath.Join(dir, "src"), e.WorkdirIn(dir))

	require.NotNil(t, e.Cache)
	require.Equal(t, MethodStat, e.Cache.Method)
	require.True(t, e.Cache.Recurse)
	require.Equal(t, filepath.Join(dir, "src/data"), e.Cache.WatchPathIn(dir))
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
- filename: b.txt
  out_script: echo hello
`)

	entries, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	require.Nil(t, e.Cache)
	require.Empty(t, e.Env)
	require.Equal(t, dir, e.WorkdirIn(dir), "workdir defaults to the manifest's directory")
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "{:::not yaml")

	_, err := Load(dir)
	require.Error(t, err)
}

func TestLoadDropsIncompleteEntries(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
- filename: good.txt
  out_script: echo ok
- filename: missing-script.txt
- out_script: echo orphaned
`)

	entries, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"good.txt"}, Filenames(entries))
}

func TestLookupFirstEntryWins(t *testing.T) {
	entries := []Entry{
		{Filename: "dup.txt", OutScript: "echo first"},
		{Filename: "dup.txt", OutScript: "echo second"},
		{Filename: "other.txt", OutScript: "echo other"},
	}

	e, ok := Lookup(entries, "dup.txt")
	require.True(t, ok)
	require.Equal(t, "echo first", e.OutScript)

	_, ok = Lookup(entries, "absent.txt")
	require.False(t, ok)
}

func TestAbsoluteWorkdirAndWatchPath(t *testing.T) {
	e := Entry{Filename: "x", OutScript: "true", Workdir: "/opt/build"}
	require.Equal(t, "/opt/build", e.WorkdirIn("/src"))

	c := &CacheSpec{Method: MethodStat, Path: "/var/data"}
	require.Equal(t, "/var/data", c.WatchPathIn("/src"))
}
