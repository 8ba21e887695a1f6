package script

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOutputCapturesStdout(t *testing.T) {
	r := &Runner{Command: "echo hello"}
	require.Equal(t, "hello\n", string(r.Output()))
}

func TestOutputRunsInWorkdir(t *testing.T) {
	dir := t.TempDir()
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	r := &Runner{Command: "pwd", Workdir: dir}
	require.Equal(t, resolved+"\n", string(r.Output()))
}

func TestOutputEnvironment(t *testing.T) {
	t.Setenv("SCRIPTFS_TEST_INHERITED", "from-process")

	r := &Runner{
		Command: `printf '%s/%s/%s' "$SCRIPTFS_TEST_INHERITED" "$EXTRA" "$ROOT"`,
		Env:     map[string]string{"EXTRA": "overlay"},
		Root:    "/mnt/overlay",
	}
	require.Equal(t, "from-process/overlay//mnt/overlay", string(r.Output()))
}

func TestOutputFailureBecomesContent(t *testing.T) {
	r := &Runner{Command: "echo boom >&2; exit 3"}

	out := string(r.Output())
	require.Contains(t, out, "exit status 3")
	require.Contains(t, out, "boom", "stderr is folded into the diagnostic")
}

func TestOutputUnstartableCommand(t *testing.T) {
	// A nonexistent workdir means the shell itself cannot start.
	r := &Runner{Command: "true", Workdir: filepath.Join(t.TempDir(), "gone")}

	out := string(r.Output())
	require.NotEmpty(t, out)
	require.Contains(t, out, "failed")
}

func TestOutputEmptyStdoutOnSuccess(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	r := &Runner{Command: "true"}
	require.Empty(t, r.Output())
}
