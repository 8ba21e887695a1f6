// Package script executes the shell command behind a virtual file and
// captures its output.
package script

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
)

// Runner holds everything needed to produce one virtual file's
// content: the shell command, its working directory, environment
// overrides, and the mount point exported to the command as ROOT.
type Runner struct {
	Command string
	Workdir string
	Env     map[string]string
	Root    string
}

// Output runs the command through /bin/sh and returns its captured
// standard output. A command that cannot be started or exits abnormally
// degrades to diagnostic text as the returned content instead of an
// error, so a broken script still reads as a file and the mount stays
// usable. There is no timeout: a hung command blocks its caller.
func (r *Runner) Output() []byte {
	cmd := exec.Command("/bin/sh", "-c", r.Command)
	cmd.Dir = r.Workdir

	env := os.Environ()
	for k, v := range r.Env {
		env = append(env, k+"="+v)
	}
	env = append(env, "ROOT="+r.Root)
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		slog.Warn("Script failed", "command", r.Command, "err", err)
		var diag bytes.Buffer
		fmt.Fprintf(&diag, "scriptfs: command %q failed: %v\n", r.Command, err)
		if stderr.Len() > 0 {
			diag.Write(stderr.Bytes())
		}
		return diag.Bytes()
	}

	if stderr.Len() > 0 {
		slog.Debug("Script wrote to stderr",
			"command", r.Command, "stderr", stderr.String())
	}
	return stdout.Bytes()
}
