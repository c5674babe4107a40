// Package gitrepo wraps the git CLI for repository discovery, revision
// resolution, diffs, blame, and notes. All operations shell out to git with
// a bounded timeout; porcelain output parsing lives here so callers work
// with typed results.
package gitrepo

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"aiblame/internal/config"
	aberr "aiblame/internal/errors"
	"aiblame/internal/logging"
)

// DefaultCommandTimeout bounds git invocations when config carries no value.
const DefaultCommandTimeout = 10 * time.Second

// Repo is a handle to a discovered git repository.
type Repo struct {
	root    string
	gitDir  string
	timeout time.Duration
	logger  *logging.Logger
}

// ExecError carries the failure detail of a git invocation. Callers that
// need to distinguish expected nonzero exits (missing note, unknown config
// key) unwrap to it with errors.As.
type ExecError struct {
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExecError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("git %s: %s", strings.Join(e.Args, " "), strings.TrimSpace(e.Stderr))
	}
	return fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// Discover locates the repository containing dir by asking git for the
// worktree root and git directory.
func Discover(ctx context.Context, dir string, cfg *config.Config, logger *logging.Logger) (*Repo, error) {
	if logger == nil {
		return nil, aberr.New(aberr.InternalError, "logger is required for repository access", nil)
	}

	timeout := DefaultCommandTimeout
	if cfg != nil && cfg.Git.CommandTimeoutMs > 0 {
		timeout = time.Duration(cfg.Git.CommandTimeoutMs) * time.Millisecond
	}

	probe := &Repo{root: dir, timeout: timeout, logger: logger}
	out, err := probe.run(ctx, nil, "rev-parse", "--show-toplevel", "--absolute-git-dir")
	if err != nil {
		return nil, aberr.New(aberr.NotARepository, "not a git repository", err)
	}
	lines := strings.SplitN(out, "\n", 2)
	if len(lines) != 2 {
		return nil, aberr.Newf(aberr.GitOperation, nil, "unexpected rev-parse output: %q", out)
	}

	return &Repo{
		root:    strings.TrimSpace(lines[0]),
		gitDir:  strings.TrimSpace(lines[1]),
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Root returns the worktree root.
func (r *Repo) Root() string {
	return r.root
}

// GitDir returns the absolute path of the .git directory.
func (r *Repo) GitDir() string {
	return r.gitDir
}

// run executes git with the repository as working directory. stdin may be
// nil. Nonzero exits come back as *ExecError.
func (r *Repo) run(ctx context.Context, stdin []byte, args ...string) (string, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, "git", args...)
	cmd.Dir = r.root
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	r.logger.Debug("Executing git command", map[string]interface{}{
		"args":    args,
		"timeout": r.timeout.String(),
	})

	output, err := cmd.Output()
	if err != nil {
		if cmdCtx.Err() == context.DeadlineExceeded {
			return "", aberr.Newf(aberr.GitOperation, err, "git %s timed out after %s", strings.Join(args, " "), r.timeout)
		}
		execErr := &ExecError{Args: args, ExitCode: -1, Stderr: stderr.String(), Err: err}
		if exitErr, ok := err.(*exec.ExitError); ok {
			execErr.ExitCode = exitErr.ExitCode()
		}
		return "", execErr
	}

	return strings.TrimRight(string(output), "\n"), nil
}

// runLines executes git and splits stdout into non-empty trimmed lines.
func (r *Repo) runLines(ctx context.Context, args ...string) ([]string, error) {
	output, err := r.run(ctx, nil, args...)
	if err != nil {
		return nil, err
	}
	if output == "" {
		return nil, nil
	}
	raw := strings.Split(output, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines, nil
}

// ResolveCommit resolves a revision expression to a full commit SHA.
func (r *Repo) ResolveCommit(ctx context.Context, rev string) (string, error) {
	out, err := r.run(ctx, nil, "rev-parse", "--verify", rev+"^{commit}")
	if err != nil {
		return "", aberr.Newf(aberr.UnresolvableRevision, err, "cannot resolve revision %q", rev)
	}
	return strings.TrimSpace(out), nil
}

// Head returns the commit SHA of HEAD.
func (r *Repo) Head(ctx context.Context) (string, error) {
	return r.ResolveCommit(ctx, "HEAD")
}

// Parents returns the parent SHAs of a commit, empty for a root commit.
func (r *Repo) Parents(ctx context.Context, commit string) ([]string, error) {
	out, err := r.run(ctx, nil, "rev-list", "--parents", "-n", "1", commit)
	if err != nil {
		return nil, aberr.Newf(aberr.GitOperation, err, "cannot list parents of %s", commit)
	}
	fields := strings.Fields(out)
	if len(fields) < 1 {
		return nil, aberr.Newf(aberr.GitOperation, nil, "unexpected rev-list output for %s: %q", commit, out)
	}
	return fields[1:], nil
}

// RevList returns commit SHAs for a revision range, newest first. Extra
// arguments are passed through to rev-list.
func (r *Repo) RevList(ctx context.Context, args ...string) ([]string, error) {
	full := append([]string{"rev-list"}, args...)
	lines, err := r.runLines(ctx, full...)
	if err != nil {
		return nil, aberr.New(aberr.GitOperation, "rev-list failed", err)
	}
	return lines, nil
}

// GitPath resolves a path inside the git directory, honoring worktree and
// hooksPath redirections.
func (r *Repo) GitPath(ctx context.Context, name string) (string, error) {
	out, err := r.run(ctx, nil, "rev-parse", "--git-path", name)
	if err != nil {
		return "", aberr.Newf(aberr.GitOperation, err, "cannot resolve git path %q", name)
	}
	return strings.TrimSpace(out), nil
}

// ConfigGetAll returns every value of a (possibly multi-valued) config key.
// A missing key yields an empty slice, not an error.
func (r *Repo) ConfigGetAll(ctx context.Context, key string) ([]string, error) {
	lines, err := r.runLines(ctx, "config", "--get-all", key)
	if err != nil {
		var execErr *ExecError
		if aberr.As(err, &execErr) && execErr.ExitCode == 1 {
			return nil, nil
		}
		return nil, aberr.Newf(aberr.GitOperation, err, "cannot read config key %q", key)
	}
	return lines, nil
}

// ConfigAdd appends a value to a multi-valued config key.
func (r *Repo) ConfigAdd(ctx context.Context, key, value string) error {
	if _, err := r.run(ctx, nil, "config", "--add", key, value); err != nil {
		return aberr.Newf(aberr.GitOperation, err, "cannot add config %s=%s", key, value)
	}
	return nil
}

// ShortSHA truncates a commit SHA for display.
func ShortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
