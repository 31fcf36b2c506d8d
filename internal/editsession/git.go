package editsession

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/CyberismoCom/cyberismo-engine/internal/engineerr"
)

// git runs the system git binary with args inside dir, the same
// exec.CommandContext-wrapping idiom internal/calc uses for `clingo`/`dot`.
func (m *Manager) git(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", engineerr.Filesystem("editsession.git", "git "+args[0], &gitError{args: args, stderr: stderr.String(), underlying: err})
	}
	return stdout.String(), nil
}

// requireGitRepo reports an error unless root is inside a Git worktree.
func (m *Manager) requireGitRepo(ctx context.Context) error {
	_, err := m.git(ctx, m.root, "rev-parse", "--is-inside-work-tree")
	return err
}

// isDirty reports whether the main worktree has uncommitted changes.
func (m *Manager) isDirty(ctx context.Context) (bool, error) {
	out, err := m.git(ctx, m.root, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return len(out) > 0, nil
}

type gitError struct {
	args       []string
	stderr     string
	underlying error
}

func (e *gitError) Error() string {
	if e.stderr != "" {
		return e.stderr
	}
	return e.underlying.Error()
}

func (e *gitError) Unwrap() error { return e.underlying }
