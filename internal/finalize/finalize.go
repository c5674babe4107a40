// Package finalize turns staged capture events into the attribution record
// of a freshly created commit. It drains the staging area, intersects
// captured ranges with what the commit actually changed, stores prompt
// bodies, and writes the resulting record as a git note.
package finalize

import (
	"context"
	"time"

	"aiblame/internal/attr"
	"aiblame/internal/gitrepo"
	"aiblame/internal/logging"
	"aiblame/internal/notes"
	"aiblame/internal/promptstore"
	"aiblame/internal/staging"
)

// Finalizer wires the staging area, repository, prompt store, and notes.
type Finalizer struct {
	repo    *gitrepo.Repo
	area    *staging.Area
	notes   *notes.Repository
	prompts *promptstore.Store
	logger  *logging.Logger
}

// New builds a Finalizer.
func New(repo *gitrepo.Repo, area *staging.Area, notesRepo *notes.Repository, prompts *promptstore.Store, logger *logging.Logger) *Finalizer {
	return &Finalizer{
		repo:    repo,
		area:    area,
		notes:   notesRepo,
		prompts: prompts,
		logger:  logger,
	}
}

// Result summarizes one finalize run.
type Result struct {
	Commit  string `json:"commit"`
	Events  int    `json:"events"`
	Written bool   `json:"written"`
	Entries int    `json:"entries"`
	Files   int    `json:"files"`
	Lines   int    `json:"lines"`
}

// Run finalizes the staged events against a commit. Staged events are
// consumed exactly once: any failure before the note is durably written
// leaves them staged for the next attempt. Events whose lines did not
// survive the commit are consumed without producing a record.
func (f *Finalizer) Run(ctx context.Context, commit string) (*Result, error) {
	result := &Result{Commit: commit}

	err := f.area.DrainAll(ctx, func(events []attr.CaptureEvent) error {
		if len(events) == 0 {
			return nil
		}
		result.Events = len(events)

		f.storePrompts(ctx, events)

		changed, keepAll := f.changedLines(ctx, commit)
		entries := attr.Resolve(events, changed, keepAll)
		if len(entries) == 0 {
			f.logger.Info("no captured lines survived the commit", map[string]interface{}{
				"commit": gitrepo.ShortSHA(commit),
				"events": len(events),
			})
			return nil
		}

		rec := attr.NewRecord(commit, time.Now().UTC(), entries)
		if err := f.notes.Write(ctx, rec); err != nil {
			return err
		}

		result.Written = true
		result.Entries = len(rec.Entries)
		result.Files = len(rec.Files())
		result.Lines = rec.TotalLines()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// storePrompts resolves prompt text to digests and persists the bodies.
// The digest goes into the record even when the body store fails; a
// missing body later is a graceful miss, a missing digest is forever.
func (f *Finalizer) storePrompts(ctx context.Context, events []attr.CaptureEvent) {
	for i := range events {
		if events[i].Prompt == "" || events[i].PromptDigest != "" {
			continue
		}
		events[i].PromptDigest = promptstore.Digest(events[i].Prompt)
		if f.prompts == nil {
			continue
		}
		if _, err := f.prompts.Put(ctx, events[i].Prompt, events[i].Tool, events[i].SessionID, events[i].Timestamp); err != nil {
			f.logger.Warn("prompt body not stored", map[string]interface{}{
				"digest": events[i].PromptDigest,
				"error":  err.Error(),
			})
		}
	}
}

// changedLines returns the per-file new-side lines the commit changed
// relative to its first parent. keepAll is true when no usable diff
// exists: root commits keep captured ranges whole, and a failing diff
// degrades the same way rather than dropping attribution.
func (f *Finalizer) changedLines(ctx context.Context, commit string) (map[string][]int, bool) {
	parents, err := f.repo.Parents(ctx, commit)
	if err != nil {
		f.logger.Warn("cannot determine commit parents, keeping captured ranges whole", map[string]interface{}{
			"commit": gitrepo.ShortSHA(commit),
			"error":  err.Error(),
		})
		return nil, true
	}
	if len(parents) == 0 {
		return nil, true
	}

	deltas, err := f.repo.DiffCommits(ctx, parents[0], commit)
	if err != nil {
		f.logger.Warn("diff failed, keeping captured ranges whole", map[string]interface{}{
			"commit": gitrepo.ShortSHA(commit),
			"error":  err.Error(),
		})
		return nil, true
	}

	changed := make(map[string][]int, len(deltas))
	for _, delta := range deltas {
		if delta.IsDeleted {
			continue
		}
		if lines := delta.AddedLines(); len(lines) > 0 {
			changed[delta.Path()] = lines
		}
	}
	return changed, false
}
