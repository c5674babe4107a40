// Package propagate carries attribution records across history rewrites.
// When a rebase, squash, or amend produces a new commit whose content
// shifted relative to the old one, recorded line ranges are remapped
// through the old-to-new diff instead of copied verbatim. Rewritten lines
// lose their attribution; the operation never claims AI authorship for
// lines it cannot prove survived.
package propagate

import (
	"bufio"
	"context"
	"io"
	"strings"

	"aiblame/internal/attr"
	aberr "aiblame/internal/errors"
	"aiblame/internal/gitrepo"
	"aiblame/internal/logging"
	"aiblame/internal/notes"
)

// Propagator remaps one commit's attribution record onto its rewritten
// successor.
type Propagator struct {
	repo   *gitrepo.Repo
	notes  *notes.Repository
	logger *logging.Logger
}

// New builds a propagator over a discovered repository.
func New(repo *gitrepo.Repo, notesRepo *notes.Repository, logger *logging.Logger) *Propagator {
	return &Propagator{
		repo:   repo,
		notes:  notesRepo,
		logger: logger,
	}
}

// Result describes the outcome of propagating one commit pair.
type Result struct {
	OldCommit    string                 `json:"oldCommit"`
	NewCommit    string                 `json:"newCommit"`
	Written      bool                   `json:"written"`
	DryRun       bool                   `json:"dryRun,omitempty"`
	LinesMapped  int                    `json:"linesMapped"`
	LinesDropped int                    `json:"linesDropped"`
	Entries      []attr.LineAttribution `json:"entries,omitempty"`
}

// Pair is one old-to-new commit rewrite.
type Pair struct {
	Old string
	New string
}

// Propagate maps the old commit's attribution record through the diff
// between the two commits and writes the surviving ranges as the new
// commit's record. An old commit without a record fails with a
// no-attribution error. A record whose every range was rewritten away is
// not an error: nothing is written and the result reports zero mapped
// lines. With dryRun set the remapped entries are computed but not
// written.
func (p *Propagator) Propagate(ctx context.Context, oldRev, newRev string, dryRun bool) (*Result, error) {
	oldCommit, err := p.repo.ResolveCommit(ctx, oldRev)
	if err != nil {
		return nil, err
	}
	newCommit, err := p.repo.ResolveCommit(ctx, newRev)
	if err != nil {
		return nil, err
	}

	rec, err := p.notes.Read(ctx, oldCommit)
	if err != nil {
		return nil, err
	}

	deltas, err := p.repo.DiffCommits(ctx, oldCommit, newCommit)
	if err != nil {
		return nil, err
	}
	byOldPath := make(map[string]*gitrepo.FileDelta, len(deltas))
	for i := range deltas {
		if deltas[i].OldPath != "" {
			byOldPath[deltas[i].OldPath] = &deltas[i]
		}
	}

	// Surviving lines accumulate per new-side path so that renames land
	// under the name the new commit knows them by.
	owners := make(map[string]map[int]attr.LineAttribution)
	mapped := 0
	for _, entry := range rec.Entries {
		newPath := entry.Path
		var hunks []gitrepo.HunkDelta
		if delta, changed := byOldPath[entry.Path]; changed {
			if delta.IsDeleted {
				continue
			}
			newPath = delta.Path()
			hunks = delta.Hunks
		}

		fileOwners := owners[newPath]
		if fileOwners == nil {
			fileOwners = make(map[int]attr.LineAttribution)
			owners[newPath] = fileOwners
		}
		for line := entry.StartLine; line < entry.EndLine; line++ {
			newLine, ok := MapLine(hunks, line)
			if !ok {
				continue
			}
			fileOwners[newLine] = entry
			mapped++
		}
	}

	var entries []attr.LineAttribution
	for path, fileOwners := range owners {
		entries = append(entries, attr.CoalesceOwners(path, fileOwners)...)
	}

	result := &Result{
		OldCommit:    oldCommit,
		NewCommit:    newCommit,
		DryRun:       dryRun,
		LinesMapped:  mapped,
		LinesDropped: rec.TotalLines() - mapped,
		Entries:      entries,
	}

	if len(entries) == 0 {
		p.logger.Info("no attribution survived the rewrite", map[string]interface{}{
			"old": gitrepo.ShortSHA(oldCommit),
			"new": gitrepo.ShortSHA(newCommit),
		})
		return result, nil
	}
	if dryRun {
		return result, nil
	}

	newRec := attr.NewRecord(newCommit, rec.CreatedAt, entries)
	if err := p.notes.Write(ctx, newRec); err != nil {
		return nil, err
	}
	result.Written = true
	p.logger.Debug("propagated attribution", map[string]interface{}{
		"old":     gitrepo.ShortSHA(oldCommit),
		"new":     gitrepo.ShortSHA(newCommit),
		"mapped":  mapped,
		"dropped": result.LinesDropped,
	})
	return result, nil
}

// PropagateAll runs Propagate for each rewritten pair, skipping pairs
// whose old commit has no record. The post-rewrite hook reports every
// rewritten commit and most carry no attribution.
func (p *Propagator) PropagateAll(ctx context.Context, pairs []Pair, dryRun bool) ([]*Result, error) {
	var results []*Result
	for _, pair := range pairs {
		res, err := p.Propagate(ctx, pair.Old, pair.New, dryRun)
		if err != nil {
			if aberr.CodeOf(err) == aberr.NoAttribution {
				p.logger.Debug("skipping rewritten commit without attribution", map[string]interface{}{
					"old": pair.Old,
				})
				continue
			}
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// ParseRewrittenPairs reads post-rewrite hook input: one "old-sha new-sha"
// pair per line, with an optional extra-info field git may append. Blank
// lines are skipped.
func ParseRewrittenPairs(r io.Reader) ([]Pair, error) {
	var pairs []Pair
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, aberr.Newf(aberr.InternalError, nil,
				"malformed rewrite pair at line %d: %q", lineNo, line)
		}
		pairs = append(pairs, Pair{Old: fields[0], New: fields[1]})
	}
	if err := scanner.Err(); err != nil {
		return nil, aberr.New(aberr.InternalError, "failed to read rewrite pairs", err)
	}
	return pairs, nil
}
