// Package blame joins git blame output with attribution records. Each line
// of a file at a revision is traced to its introducing commit; a record
// entry covering the line's original position marks it AI-authored,
// everything else is human.
package blame

import (
	"context"

	"aiblame/internal/attr"
	aberr "aiblame/internal/errors"
	"aiblame/internal/gitrepo"
	"aiblame/internal/logging"
	"aiblame/internal/notes"
)

// Line classifies one line of the blamed file.
type Line struct {
	Number       int                  `json:"line"`
	Content      string               `json:"content"`
	Commit       string               `json:"commit"`
	Author       string               `json:"author,omitempty"`
	Kind         attr.ContributorKind `json:"kind"`
	Tool         string               `json:"tool,omitempty"`
	SessionID    string               `json:"sessionId,omitempty"`
	PromptDigest string               `json:"promptDigest,omitempty"`
}

// Stats aggregates a blamed file.
type Stats struct {
	TotalLines int `json:"totalLines"`
	AILines    int `json:"aiLines"`
}

// Result is the attribution of one file at one revision.
type Result struct {
	Path  string `json:"path"`
	Rev   string `json:"rev"`
	Lines []Line `json:"lines"`
	Stats Stats  `json:"stats"`
}

// Engine runs attribution-aware blame over a repository.
type Engine struct {
	repo   *gitrepo.Repo
	notes  *notes.Repository
	logger *logging.Logger
}

// NewEngine builds a blame engine.
func NewEngine(repo *gitrepo.Repo, notesRepo *notes.Repository, logger *logging.Logger) *Engine {
	return &Engine{repo: repo, notes: notesRepo, logger: logger}
}

// File blames path at rev and classifies every line. Records are read at
// most once per introducing commit within a call.
func (e *Engine) File(ctx context.Context, rev, path string) (*Result, error) {
	resolved, err := e.repo.ResolveCommit(ctx, rev)
	if err != nil {
		return nil, err
	}

	blameLines, err := e.repo.BlameFile(ctx, resolved, path)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Path:  path,
		Rev:   resolved,
		Lines: make([]Line, 0, len(blameLines)),
	}

	records := make(map[string]*attr.AttributionRecord)
	for _, bl := range blameLines {
		line := Line{
			Number:  bl.FinalLine,
			Content: bl.Content,
			Commit:  bl.SHA,
			Author:  bl.Author,
			Kind:    attr.KindHuman,
		}

		if rec := e.recordFor(ctx, records, bl.SHA); rec != nil {
			lookupPath := bl.Filename
			if lookupPath == "" {
				lookupPath = path
			}
			if entry := rec.FindLine(lookupPath, bl.OrigLine); entry != nil {
				line.Kind = attr.KindAI
				line.Tool = entry.Tool
				line.SessionID = entry.SessionID
				line.PromptDigest = entry.PromptDigest
			}
		}

		result.Stats.TotalLines++
		if line.Kind == attr.KindAI {
			result.Stats.AILines++
		}
		result.Lines = append(result.Lines, line)
	}

	return result, nil
}

// Line returns the classification of a single line, for prompt lookup.
func (e *Engine) Line(ctx context.Context, rev, path string, number int) (*Line, error) {
	result, err := e.File(ctx, rev, path)
	if err != nil {
		return nil, err
	}
	for i := range result.Lines {
		if result.Lines[i].Number == number {
			return &result.Lines[i], nil
		}
	}
	return nil, aberr.Newf(aberr.NoAttribution, nil,
		"%s has no line %d at %s", path, number, gitrepo.ShortSHA(result.Rev))
}

// recordFor reads a commit's record once, caching hits and misses alike.
func (e *Engine) recordFor(ctx context.Context, cache map[string]*attr.AttributionRecord, sha string) *attr.AttributionRecord {
	if rec, seen := cache[sha]; seen {
		return rec
	}
	rec, err := e.notes.Read(ctx, sha)
	if err != nil {
		if aberr.CodeOf(err) != aberr.NoAttribution {
			e.logger.Warn("cannot read attribution record", map[string]interface{}{
				"commit": gitrepo.ShortSHA(sha),
				"error":  err.Error(),
			})
		}
		cache[sha] = nil
		return nil
	}
	cache[sha] = rec
	return rec
}
