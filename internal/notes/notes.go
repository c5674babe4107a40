// Package notes persists attribution records as git notes under a
// dedicated ref. Records travel with the repository through the normal
// notes push/fetch refspecs and never touch commit objects.
package notes

import (
	"context"
	"time"

	"aiblame/internal/attr"
	"aiblame/internal/config"
	aberr "aiblame/internal/errors"
	"aiblame/internal/gitrepo"
	"aiblame/internal/logging"
)

// Repository reads and writes attribution records for commits.
type Repository struct {
	repo    *gitrepo.Repo
	ref     string
	retries int
	backoff time.Duration
	logger  *logging.Logger
}

// NewRepository builds a notes repository over a discovered git repo.
func NewRepository(repo *gitrepo.Repo, cfg *config.Config, logger *logging.Logger) *Repository {
	ref := config.DefaultNotesRef
	retries := 3
	backoff := 50 * time.Millisecond
	if cfg != nil {
		if cfg.NotesRef != "" {
			ref = cfg.NotesRef
		}
		if cfg.Notes.WriteRetries > 0 {
			retries = cfg.Notes.WriteRetries
		}
		if cfg.Notes.RetryBackoffMs > 0 {
			backoff = time.Duration(cfg.Notes.RetryBackoffMs) * time.Millisecond
		}
	}
	return &Repository{
		repo:    repo,
		ref:     ref,
		retries: retries,
		backoff: backoff,
		logger:  logger,
	}
}

// Ref returns the notes ref records live under.
func (r *Repository) Ref() string {
	return r.ref
}

// Has reports whether a commit carries an attribution record.
func (r *Repository) Has(ctx context.Context, commit string) (bool, error) {
	_, found, err := r.repo.NoteShow(ctx, r.ref, commit)
	return found, err
}

// Read returns the attribution record for a commit.
func (r *Repository) Read(ctx context.Context, commit string) (*attr.AttributionRecord, error) {
	data, found, err := r.repo.NoteShow(ctx, r.ref, commit)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, aberr.Newf(aberr.NoAttribution, nil,
			"commit %s has no attribution", gitrepo.ShortSHA(commit))
	}
	return attr.DecodeRecord(data)
}

// Write replaces the record for the record's commit. Concurrent writers
// race on git's ref lock; conflicts are retried with backoff before
// surfacing as a conflict error.
func (r *Repository) Write(ctx context.Context, rec *attr.AttributionRecord) error {
	data, err := attr.EncodeRecord(rec)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 {
			r.logger.Warn("retrying note write after ref conflict", map[string]interface{}{
				"commit":  gitrepo.ShortSHA(rec.Commit),
				"attempt": attempt,
			})
			select {
			case <-ctx.Done():
				return aberr.New(aberr.NoteConflict, "note write canceled during retry", ctx.Err())
			case <-time.After(r.backoff):
			}
		}

		err := r.repo.NoteWrite(ctx, r.ref, rec.Commit, data)
		if err == nil {
			r.logger.Debug("wrote attribution note", map[string]interface{}{
				"commit":  gitrepo.ShortSHA(rec.Commit),
				"entries": len(rec.Entries),
			})
			return nil
		}
		if !gitrepo.IsLockConflict(err) {
			return err
		}
		lastErr = err
	}

	return aberr.Newf(aberr.NoteConflict, lastErr,
		"note for %s still locked after %d retries", gitrepo.ShortSHA(rec.Commit), r.retries)
}

// Remove deletes the record for a commit if one exists.
func (r *Repository) Remove(ctx context.Context, commit string) error {
	return r.repo.NoteRemove(ctx, r.ref, commit)
}

// List returns the commits that carry attribution records.
func (r *Repository) List(ctx context.Context) ([]string, error) {
	return r.repo.NotesList(ctx, r.ref)
}

// Copy attaches the source commit's record to the target commit, with the
// record's commit field retargeted. The creation timestamp is preserved;
// it dates the attribution, not the copy. A recordless source fails with
// a no-attribution error and leaves the target untouched.
func (r *Repository) Copy(ctx context.Context, source, target string) (*attr.AttributionRecord, error) {
	rec, err := r.Read(ctx, source)
	if err != nil {
		return nil, err
	}

	copied := attr.NewRecord(target, rec.CreatedAt, rec.Entries)
	if err := r.Write(ctx, copied); err != nil {
		return nil, err
	}
	return copied, nil
}
