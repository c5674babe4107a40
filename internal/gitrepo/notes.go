package gitrepo

import (
	"context"
	"strings"

	aberr "aiblame/internal/errors"
)

// NoteShow reads the note blob attached to a commit under the given notes
// ref. found is false when the commit carries no note.
func (r *Repo) NoteShow(ctx context.Context, ref, commit string) ([]byte, bool, error) {
	out, err := r.run(ctx, nil, "notes", "--ref="+ref, "show", commit)
	if err != nil {
		var execErr *ExecError
		if aberr.As(err, &execErr) && execErr.ExitCode == 1 {
			return nil, false, nil
		}
		return nil, false, aberr.Newf(aberr.GitOperation, err, "cannot read note for %s", ShortSHA(commit))
	}
	return []byte(out + "\n"), true, nil
}

// NoteWrite attaches data as the note for a commit, replacing any existing
// note under the ref.
func (r *Repo) NoteWrite(ctx context.Context, ref, commit string, data []byte) error {
	if _, err := r.run(ctx, data, "notes", "--ref="+ref, "add", "-f", "-F", "-", commit); err != nil {
		return aberr.Newf(aberr.GitOperation, err, "cannot write note for %s", ShortSHA(commit))
	}
	return nil
}

// NoteRemove deletes the note for a commit. A missing note is not an error.
func (r *Repo) NoteRemove(ctx context.Context, ref, commit string) error {
	if _, err := r.run(ctx, nil, "notes", "--ref="+ref, "remove", "--ignore-missing", commit); err != nil {
		return aberr.Newf(aberr.GitOperation, err, "cannot remove note for %s", ShortSHA(commit))
	}
	return nil
}

// NotesList returns the commit SHAs that carry a note under the ref.
func (r *Repo) NotesList(ctx context.Context, ref string) ([]string, error) {
	lines, err := r.runLines(ctx, "notes", "--ref="+ref, "list")
	if err != nil {
		var execErr *ExecError
		if aberr.As(err, &execErr) && execErr.ExitCode == 1 {
			return nil, nil
		}
		return nil, aberr.New(aberr.GitOperation, "cannot list notes", err)
	}

	commits := make([]string, 0, len(lines))
	for _, line := range lines {
		// Each line is "<note object> <annotated commit>".
		fields := strings.Fields(line)
		if len(fields) == 2 {
			commits = append(commits, fields[1])
		}
	}
	return commits, nil
}

// IsLockConflict reports whether a git failure looks like a transient ref
// lock collision from a concurrent writer.
func IsLockConflict(err error) bool {
	var execErr *ExecError
	if !aberr.As(err, &execErr) {
		return false
	}
	stderr := execErr.Stderr
	return strings.Contains(stderr, ".lock") ||
		strings.Contains(stderr, "cannot lock ref") ||
		strings.Contains(stderr, "Unable to create")
}
