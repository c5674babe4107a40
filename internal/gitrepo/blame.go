package gitrepo

import (
	"bufio"
	"bytes"
	"context"
	"strconv"
	"strings"
	"time"

	aberr "aiblame/internal/errors"
)

// BlameLine describes one line of blame output. OrigLine is the line's
// number in the commit that introduced it, FinalLine its number in the
// blamed revision. Filename is the path the line had in the introducing
// commit, which differs from the blamed path across renames.
type BlameLine struct {
	SHA        string
	OrigLine   int
	FinalLine  int
	Filename   string
	Content    string
	Author     string
	AuthorTime time.Time
}

// BlameFile runs git blame in porcelain format for a file at a revision.
func (r *Repo) BlameFile(ctx context.Context, rev, path string) ([]BlameLine, error) {
	out, err := r.run(ctx, nil, "blame", "--porcelain", rev, "--", path)
	if err != nil {
		return nil, aberr.Newf(aberr.GitOperation, err, "blame failed for %s at %s", path, ShortSHA(rev))
	}
	return parsePorcelainBlame(out)
}

// parsePorcelainBlame parses `git blame --porcelain` output. Porcelain
// suppresses repeated commit metadata, so author and filename values are
// cached per commit as they appear.
func parsePorcelainBlame(output string) ([]BlameLine, error) {
	var lines []BlameLine

	type commitMeta struct {
		author     string
		authorTime time.Time
		filename   string
	}
	meta := make(map[string]*commitMeta)

	scanner := bufio.NewScanner(bytes.NewReader([]byte(output)))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var current *BlameLine
	for scanner.Scan() {
		line := scanner.Text()

		if sha, orig, final, ok := parseBlameHeader(line); ok {
			if current != nil {
				lines = append(lines, *current)
			}
			current = &BlameLine{SHA: sha, OrigLine: orig, FinalLine: final}
			if m := meta[sha]; m != nil {
				current.Author = m.author
				current.AuthorTime = m.authorTime
				current.Filename = m.filename
			} else {
				meta[sha] = &commitMeta{}
			}
			continue
		}

		if current == nil {
			continue
		}

		switch {
		case strings.HasPrefix(line, "\t"):
			current.Content = line[1:]
		case strings.HasPrefix(line, "author "):
			current.Author = strings.TrimPrefix(line, "author ")
			meta[current.SHA].author = current.Author
		case strings.HasPrefix(line, "author-time "):
			if secs, err := strconv.ParseInt(strings.TrimPrefix(line, "author-time "), 10, 64); err == nil {
				current.AuthorTime = time.Unix(secs, 0).UTC()
				meta[current.SHA].authorTime = current.AuthorTime
			}
		case strings.HasPrefix(line, "filename "):
			current.Filename = strings.TrimPrefix(line, "filename ")
			meta[current.SHA].filename = current.Filename
		}
	}

	if current != nil {
		lines = append(lines, *current)
	}
	if err := scanner.Err(); err != nil {
		return nil, aberr.New(aberr.GitOperation, "failed to scan blame output", err)
	}
	return lines, nil
}

// parseBlameHeader matches "<40-hex sha> <orig> <final> [<group>]".
func parseBlameHeader(line string) (sha string, orig, final int, ok bool) {
	if len(line) < 40 || !isHexString(line[:40]) {
		return "", 0, 0, false
	}
	fields := strings.Fields(line)
	if len(fields) < 3 || len(fields) > 4 {
		return "", 0, 0, false
	}
	orig, err := strconv.Atoi(fields[1])
	if err != nil {
		return "", 0, 0, false
	}
	final, err = strconv.Atoi(fields[2])
	if err != nil {
		return "", 0, 0, false
	}
	return fields[0], orig, final, true
}

func isHexString(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return len(s) > 0
}
