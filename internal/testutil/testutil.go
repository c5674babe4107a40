// Package testutil provides throwaway git repository fixtures for tests
// that exercise real git behavior. Tests using it skip when no git binary
// is available.
package testutil

import (
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"aiblame/internal/logging"
)

// QuietLogger returns a logger that discards everything, for wiring into
// components under test.
func QuietLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{
		Format: logging.HumanFormat,
		Level:  logging.ErrorLevel,
		Output: io.Discard,
	})
}

// RequireGit skips the calling test when git is not installed.
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not found in PATH")
	}
}

// Repo is a temporary git repository scoped to one test.
type Repo struct {
	t    *testing.T
	Root string
}

// NewRepo initializes an empty repository under the test's temp directory
// with a committer identity configured.
func NewRepo(t *testing.T) *Repo {
	t.Helper()
	RequireGit(t)

	root := t.TempDir()
	r := &Repo{t: t, Root: root}
	r.Git("init", "--quiet")
	r.Git("config", "user.email", "test@example.com")
	r.Git("config", "user.name", "Test User")
	r.Git("config", "commit.gpgsign", "false")
	return r
}

// Git runs a git command in the repository and returns trimmed stdout,
// failing the test on any error.
func (r *Repo) Git(args ...string) string {
	r.t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Root
	out, err := cmd.CombinedOutput()
	if err != nil {
		r.t.Fatalf("git %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// GitMay runs a git command and returns its combined output and error
// without failing the test, for exercising expected failures.
func (r *Repo) GitMay(args ...string) (string, error) {
	r.t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Root
	out, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

// WriteFile writes content to a repo-relative path, creating parent
// directories as needed.
func (r *Repo) WriteFile(rel, content string) {
	r.t.Helper()
	path := filepath.Join(r.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.t.Fatalf("mkdir for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		r.t.Fatalf("write %s: %v", rel, err)
	}
}

// Commit stages everything and commits, returning the new HEAD SHA.
func (r *Repo) Commit(message string) string {
	r.t.Helper()
	r.Git("add", "-A")
	r.Git("commit", "--quiet", "--no-verify", "-m", message)
	return r.Head()
}

// Head returns the current HEAD commit SHA.
func (r *Repo) Head() string {
	r.t.Helper()
	return r.Git("rev-parse", "HEAD")
}

// GitDir returns the absolute path of the repository's .git directory.
func (r *Repo) GitDir() string {
	r.t.Helper()
	out := r.Git("rev-parse", "--absolute-git-dir")
	return filepath.Clean(out)
}
