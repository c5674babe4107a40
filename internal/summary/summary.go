// Package summary aggregates attribution records over a commit range into
// per-tool, per-session, and per-commit line counts.
package summary

import (
	"context"
	"sort"

	"aiblame/internal/attr"
	aberr "aiblame/internal/errors"
	"aiblame/internal/gitrepo"
	"aiblame/internal/logging"
	"aiblame/internal/notes"
)

// CommitSummary is one attributed commit's contribution to an aggregate.
type CommitSummary struct {
	Commit  string   `json:"commit"`
	Lines   int      `json:"lines"`
	AILines int      `json:"aiLines"`
	Tools   []string `json:"tools,omitempty"`
}

// Aggregate sums attribution over a commit range. Commits without a record
// contribute zero; each commit identity is counted once regardless of how
// many paths reach it.
type Aggregate struct {
	Range             string          `json:"range"`
	TotalCommits      int             `json:"totalCommits"`
	AttributedCommits int             `json:"attributedCommits"`
	TotalLines        int             `json:"totalLines"`
	AILines           int             `json:"aiLines"`
	ByTool            map[string]int  `json:"byTool,omitempty"`
	BySession         map[string]int  `json:"bySession,omitempty"`
	Commits           []CommitSummary `json:"commits,omitempty"`
}

// Aggregator folds attribution records across revision ranges.
type Aggregator struct {
	repo   *gitrepo.Repo
	notes  *notes.Repository
	logger *logging.Logger
}

// New builds an aggregator over a discovered repository.
func New(repo *gitrepo.Repo, notesRepo *notes.Repository, logger *logging.Logger) *Aggregator {
	return &Aggregator{
		repo:   repo,
		notes:  notesRepo,
		logger: logger,
	}
}

// Summarize aggregates attribution over a rev-list range expression
// (A..B, A...B, or a single revision meaning that commit and its
// ancestors). Attributed commits appear in Commits newest first,
// following rev-list order.
func (a *Aggregator) Summarize(ctx context.Context, rangeExpr string) (*Aggregate, error) {
	commits, err := a.repo.RevList(ctx, rangeExpr)
	if err != nil {
		return nil, err
	}

	// One notes listing up front; most commits in a range carry no record
	// and reading each one would cost a git invocation apiece.
	noted, err := a.notes.List(ctx)
	if err != nil {
		return nil, err
	}
	hasRecord := make(map[string]bool, len(noted))
	for _, c := range noted {
		hasRecord[c] = true
	}

	agg := &Aggregate{
		Range:     rangeExpr,
		ByTool:    make(map[string]int),
		BySession: make(map[string]int),
	}

	seen := make(map[string]bool, len(commits))
	for _, commit := range commits {
		if seen[commit] {
			continue
		}
		seen[commit] = true
		agg.TotalCommits++

		if !hasRecord[commit] {
			continue
		}
		rec, err := a.notes.Read(ctx, commit)
		if err != nil {
			// The note can vanish between the listing and the read.
			if aberr.CodeOf(err) == aberr.NoAttribution {
				continue
			}
			return nil, err
		}
		agg.fold(commit, rec)
	}
	return agg, nil
}

func (agg *Aggregate) fold(commit string, rec *attr.AttributionRecord) {
	agg.AttributedCommits++

	cs := CommitSummary{Commit: commit}
	toolSet := make(map[string]bool)
	for _, e := range rec.Entries {
		n := e.Lines()
		agg.TotalLines += n
		cs.Lines += n
		if e.Kind == attr.KindAI {
			agg.AILines += n
			cs.AILines += n
		}
		if e.Tool != "" {
			agg.ByTool[e.Tool] += n
			toolSet[e.Tool] = true
		}
		if e.SessionID != "" {
			agg.BySession[e.SessionID] += n
		}
	}

	for tool := range toolSet {
		cs.Tools = append(cs.Tools, tool)
	}
	sort.Strings(cs.Tools)
	agg.Commits = append(agg.Commits, cs)
}
