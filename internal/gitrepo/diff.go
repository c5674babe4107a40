package gitrepo

import (
	"context"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"

	aberr "aiblame/internal/errors"
)

// FileDelta describes the changes to one file between two commits.
type FileDelta struct {
	OldPath   string
	NewPath   string
	IsNew     bool
	IsDeleted bool
	IsRenamed bool
	Hunks     []HunkDelta
}

// HunkDelta is one change hunk. Added holds new-side line numbers, Removed
// old-side line numbers, both 1-indexed.
type HunkDelta struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Added    []int
	Removed  []int
}

// Path returns the surviving path for the file, falling back to the old
// path for deletions.
func (d FileDelta) Path() string {
	if d.IsDeleted {
		return d.OldPath
	}
	return d.NewPath
}

// AddedLines returns every new-side line number the delta adds or modifies.
func (d FileDelta) AddedLines() []int {
	var lines []int
	for _, hunk := range d.Hunks {
		lines = append(lines, hunk.Added...)
	}
	return lines
}

// DiffCommits diffs two commits with zero context and rename detection and
// parses the result. oldRev may be empty to diff against the empty tree.
func (r *Repo) DiffCommits(ctx context.Context, oldRev, newRev string) ([]FileDelta, error) {
	args := []string{"diff", "--unified=0", "--find-renames", "--no-color"}
	if oldRev == "" {
		// Hash of git's empty tree, stable across repositories.
		oldRev = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"
	}
	args = append(args, oldRev, newRev)

	out, err := r.run(ctx, nil, args...)
	if err != nil {
		return nil, aberr.Newf(aberr.GitOperation, err, "diff %s..%s failed", ShortSHA(oldRev), ShortSHA(newRev))
	}
	return ParseUnifiedDiff(out)
}

// ParseUnifiedDiff parses unified diff text into file deltas.
func ParseUnifiedDiff(diffText string) ([]FileDelta, error) {
	if strings.TrimSpace(diffText) == "" {
		return nil, nil
	}

	fileDiffs, err := godiff.ParseMultiFileDiff([]byte(diffText))
	if err != nil {
		return nil, aberr.New(aberr.GitOperation, "failed to parse diff output", err)
	}

	deltas := make([]FileDelta, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		deltas = append(deltas, parseFileDiff(fd))
	}
	return deltas, nil
}

func parseFileDiff(fd *godiff.FileDiff) FileDelta {
	delta := FileDelta{
		OldPath: cleanDiffPath(fd.OrigName),
		NewPath: cleanDiffPath(fd.NewName),
		Hunks:   make([]HunkDelta, 0, len(fd.Hunks)),
	}

	if fd.OrigName == "/dev/null" || fd.OrigName == "" {
		delta.IsNew = true
		delta.OldPath = ""
	}
	if fd.NewName == "/dev/null" || fd.NewName == "" {
		delta.IsDeleted = true
		delta.NewPath = ""
	}
	if delta.OldPath != "" && delta.NewPath != "" && delta.OldPath != delta.NewPath {
		delta.IsRenamed = true
	}

	for _, hunk := range fd.Hunks {
		delta.Hunks = append(delta.Hunks, parseHunk(hunk))
	}
	return delta
}

func parseHunk(hunk *godiff.Hunk) HunkDelta {
	hd := HunkDelta{
		OldStart: int(hunk.OrigStartLine),
		OldLines: int(hunk.OrigLines),
		NewStart: int(hunk.NewStartLine),
		NewLines: int(hunk.NewLines),
	}

	oldLine := int(hunk.OrigStartLine)
	newLine := int(hunk.NewStartLine)

	for _, line := range strings.Split(string(hunk.Body), "\n") {
		if len(line) == 0 {
			oldLine++
			newLine++
			continue
		}
		switch line[0] {
		case '+':
			hd.Added = append(hd.Added, newLine)
			newLine++
		case '-':
			hd.Removed = append(hd.Removed, oldLine)
			oldLine++
		case ' ':
			oldLine++
			newLine++
		case '\\':
			// "\ No newline at end of file"
		}
	}
	return hd
}

// cleanDiffPath strips the a/ or b/ prefix git puts on diff paths.
func cleanDiffPath(path string) string {
	if path == "" || path == "/dev/null" {
		return path
	}
	if strings.HasPrefix(path, "a/") || strings.HasPrefix(path, "b/") {
		return path[2:]
	}
	return path
}
